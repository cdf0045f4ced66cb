// file: cmd/serve.go
// version: 1.1.0
// guid: 6fd00455-7871-4f8b-855c-c57ddb7bea2f

package cmd

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jdfalk/manga-organizer/internal/config"
	"github.com/jdfalk/manga-organizer/internal/database"
	"github.com/jdfalk/manga-organizer/internal/importer"
	"github.com/jdfalk/manga-organizer/internal/operations"
	"github.com/jdfalk/manga-organizer/internal/realtime"
	"github.com/jdfalk/manga-organizer/internal/server"
	"github.com/jdfalk/manga-organizer/internal/watcher"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the HTTP API. With --watch the inbox directory is watched and
every settled batch of PDFs is imported as one operation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		closer, err := openStore()
		if err != nil {
			return err
		}
		defer closer()
		store := database.GlobalStore

		if err := seedPolicyFile(store); err != nil {
			log.Warn().Err(err).Msg("policy file not applied")
		}

		realtime.InitializeEventHub()
		hub := realtime.GlobalHub
		hub.SetHeartbeat(config.AppConfig.SSEHeartbeat)

		operations.InitializeQueue(hub, config.AppConfig.Workers)
		defer func() {
			log.Info().Msg("shutting down operation queue")
			if err := operations.ShutdownQueue(30 * time.Second); err != nil {
				log.Warn().Err(err).Msg("operation queue shutdown error")
			}
		}()

		imp := newImporter(store, hub, newOracle())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if config.AppConfig.WatchInbox {
			if config.AppConfig.InboxDir == "" {
				log.Warn().Msg("inbox watching requested but no inbox directory is set")
			} else {
				w := watcher.New(inboxBatchHandler(operations.GlobalQueue, imp), config.AppConfig.WatchDebounce)
				if err := w.Start(config.AppConfig.InboxDir); err != nil {
					return err
				}
				defer w.Stop()
			}
		}

		srv := server.NewServer(server.Deps{
			Store:    store,
			Importer: imp,
			Queue:    operations.GlobalQueue,
			Hub:      hub,
		})

		cfg := server.GetDefaultServerConfig()
		cfg.Host = config.AppConfig.Host
		cfg.Port = strconv.Itoa(config.AppConfig.Port)
		if d, err := cmd.Flags().GetDuration("read-timeout"); err == nil && d > 0 {
			cfg.ReadTimeout = d
		}
		if d, err := cmd.Flags().GetDuration("write-timeout"); err == nil && d > 0 {
			cfg.WriteTimeout = d
		}
		if d, err := cmd.Flags().GetDuration("idle-timeout"); err == nil && d > 0 {
			cfg.IdleTimeout = d
		}

		return srv.Start(ctx, cfg)
	},
}

// inboxBatchHandler turns a settled watcher batch into one import operation.
// Imported files leave the inbox.
func inboxBatchHandler(queue *operations.OperationQueue, imp operations.FileImporter) watcher.Callback {
	return func(paths []string) {
		if len(paths) == 0 {
			return
		}
		sources := make([]importer.ImportSource, len(paths))
		for i, p := range paths {
			sources[i] = importer.ImportSource{Path: p, RemoveSource: true}
		}
		id, err := queue.Enqueue("", operations.TypeInboxBatch, operations.PriorityHigh, operations.ImportFilesFunc(imp, sources))
		if err != nil {
			log.Error().Err(err).Int("files", len(paths)).Msg("failed to queue inbox batch")
			return
		}
		log.Info().Str("operation", id).Int("files", len(paths)).Msg("inbox batch queued")
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "host to bind the web server to")
	serveCmd.Flags().Int("port", 8484, "port to run the web server on")
	serveCmd.Flags().Int("workers", 2, "number of background operation workers")
	serveCmd.Flags().Bool("watch", false, "watch the inbox directory for new PDFs")
	serveCmd.Flags().Duration("read-timeout", 15*time.Second, "read timeout (e.g. 15s, 1m)")
	serveCmd.Flags().Duration("write-timeout", 15*time.Minute, "write timeout (e.g. 15m)")
	serveCmd.Flags().Duration("idle-timeout", 60*time.Second, "idle timeout (e.g. 60s, 2m)")

	_ = viper.BindPFlag("host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("workers", serveCmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("watch_inbox", serveCmd.Flags().Lookup("watch"))
}
