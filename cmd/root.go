// file: cmd/root.go
// version: 2.0.0
// guid: 6a7b8c9d-0e1f-2a3b-4c5d-6e7f8a9b0c1d

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jdfalk/manga-organizer/internal/ai"
	"github.com/jdfalk/manga-organizer/internal/config"
	"github.com/jdfalk/manga-organizer/internal/database"
	"github.com/jdfalk/manga-organizer/internal/importer"
	"github.com/jdfalk/manga-organizer/internal/logging"
	"github.com/jdfalk/manga-organizer/internal/matcher"
	"github.com/jdfalk/manga-organizer/internal/organizer"
	"github.com/jdfalk/manga-organizer/internal/realtime"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "manga-organizer",
	Short: "Sort manga PDFs into a series library",
	Long: `Manga Organizer matches incoming PDF filenames against a catalog of
known series, creates new series when nothing matches, and files every
chapter under a stable series code with a canonical filename.

Ambiguous matches can be confirmed by an OpenAI-compatible model.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.manga-organizer.yaml)")
	flags.String("db", "manga.db", "path to the database")
	flags.String("db-type", "pebble", "database type: pebble (default) or sqlite")
	flags.String("library", "library", "library directory that receives organized files")
	flags.String("inbox", "", "inbox directory watched by serve")
	flags.String("strategy", "auto", "placement strategy: auto, copy, hardlink, reflink or move")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "console", "log format: console or json")

	_ = viper.BindPFlag("database_path", flags.Lookup("db"))
	_ = viper.BindPFlag("database_type", flags.Lookup("db-type"))
	_ = viper.BindPFlag("library_dir", flags.Lookup("library"))
	_ = viper.BindPFlag("inbox_dir", flags.Lookup("inbox"))
	_ = viper.BindPFlag("organization_strategy", flags.Lookup("strategy"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log_format", flags.Lookup("log-format"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".manga-organizer")
	}

	viper.SetEnvPrefix("MANGA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	readErr := viper.ReadInConfig()

	config.InitConfig()
	logging.Setup(config.AppConfig.LogLevel, config.AppConfig.LogFormat, os.Stderr)

	if readErr == nil {
		log.Debug().Str("path", viper.ConfigFileUsed()).Msg("using config file")
	}

	// Ensure database directory exists
	if dbDir := filepath.Dir(config.AppConfig.DatabasePath); dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			log.Error().Err(err).Str("dir", dbDir).Msg("failed to create database directory")
		}
	}

	if err := config.LoadConfigFromFile(); err != nil {
		log.Warn().Err(err).Msg("could not load saved settings")
	}
}

// openStore initializes the global store and returns its closer.
func openStore() (func(), error) {
	if err := database.InitializeStore(config.AppConfig.DatabaseType, config.AppConfig.DatabasePath); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	log.Debug().Str("path", config.AppConfig.DatabasePath).Str("type", config.AppConfig.DatabaseType).Msg("database opened")
	return func() {
		if err := database.CloseStore(); err != nil {
			log.Warn().Err(err).Msg("failed to close database")
		}
	}, nil
}

// newOracle returns the configured oracle, or nil when it is off. A broken
// oracle configuration is logged and treated as off.
func newOracle() matcher.Oracle {
	cfg := config.AppConfig
	if !cfg.OracleEnabled {
		return nil
	}
	client, err := ai.NewOracleClient(ai.OracleConfig{
		Enabled:     true,
		APIKeys:     cfg.OracleAPIKeys,
		Model:       cfg.OracleModel,
		BaseURL:     cfg.OracleBaseURL,
		MinInterval: cfg.OracleMinInterval,
		KeyCooldown: cfg.OracleKeyCooldown,
	})
	if err != nil {
		log.Warn().Err(err).Msg("oracle unavailable; ambiguous matches will be low confidence")
		return nil
	}
	return client
}

// newImporter builds the import pipeline over store from the configuration.
func newImporter(store database.Store, hub *realtime.EventHub, oracle matcher.Oracle) *importer.Importer {
	return importer.New(importer.Options{
		Store:      store,
		Organizer:  organizer.NewOrganizer(afero.NewOsFs(), config.AppConfig.LibraryDir, config.AppConfig.OrganizationStrategy),
		Policy:     config.AppConfig.MatcherPolicy(),
		Oracle:     oracle,
		Hub:        hub,
		CatalogTTL: config.AppConfig.CatalogCacheTTL,
	})
}

// seedPolicyFile imports the configured policy file, if any.
func seedPolicyFile(store database.Store) error {
	path := config.AppConfig.PolicyFile
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open policy file: %w", err)
	}
	defer f.Close()
	_, err = database.ImportPolicies(store, f)
	return err
}
