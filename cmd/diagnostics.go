// file: cmd/diagnostics.go
// version: 2.0.0
// guid: c8f6a0d4-2a8b-48cf-9d08-02cc9915d9fc

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/pebble/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jdfalk/manga-organizer/internal/config"
	"github.com/jdfalk/manga-organizer/internal/database"
)

var (
	diagnosticsCmd = &cobra.Command{
		Use:   "diagnostics",
		Short: "Debugging and cleanup helpers",
		Long:  "Diagnostic utilities for inspecting and repairing the manga database.",
	}

	orphansCmd = &cobra.Command{
		Use:   "orphans",
		Short: "Remove volume records whose file no longer exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("yes")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			return runOrphanCleanup(cmd.InOrStdin(), cmd.OutOrStdout(), afero.NewOsFs(), force, dryRun)
		},
	}

	queryCmd = &cobra.Command{
		Use:   "query",
		Short: "Inspect stored series and volumes",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			prefix, _ := cmd.Flags().GetString("prefix")
			raw, _ := cmd.Flags().GetBool("raw")
			return runDiagnosticsQuery(cmd.OutOrStdout(), limit, prefix, raw)
		},
	}
)

func init() {
	orphansCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
	orphansCmd.Flags().Bool("dry-run", false, "List orphaned records without deleting")

	queryCmd.Flags().Int("limit", 5, "Number of records to display")
	queryCmd.Flags().String("prefix", "series:", "Key prefix to inspect when --raw is set")
	queryCmd.Flags().Bool("raw", false, "Show raw Pebble key/value data (Pebble only)")

	diagnosticsCmd.AddCommand(orphansCmd, queryCmd)
	rootCmd.AddCommand(diagnosticsCmd)
}

// findOrphans returns the volumes whose file is missing on fs.
func findOrphans(store database.Store, fs afero.Fs) ([]database.Volume, error) {
	series, err := store.ListSeries()
	if err != nil {
		return nil, fmt.Errorf("failed to list series: %w", err)
	}
	var orphans []database.Volume
	for _, s := range series {
		volumes, err := store.ListVolumesBySeries(s.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list volumes of %s: %w", s.SeriesCode, err)
		}
		for _, v := range volumes {
			if ok, _ := afero.Exists(fs, v.FilePath); !ok {
				orphans = append(orphans, v)
			}
		}
	}
	return orphans, nil
}

func runOrphanCleanup(in io.Reader, out io.Writer, fs afero.Fs, force, dryRun bool) error {
	closer, err := openStore()
	if err != nil {
		return err
	}
	defer closer()

	fmt.Fprintf(out, "Inspecting volumes in %s (%s)\n", config.AppConfig.DatabasePath, config.AppConfig.DatabaseType)

	orphans, err := findOrphans(database.GlobalStore, fs)
	if err != nil {
		return err
	}
	if len(orphans) == 0 {
		fmt.Fprintln(out, "No orphaned volume records detected.")
		return nil
	}

	fmt.Fprintf(out, "Found %d orphaned records:\n", len(orphans))
	for i, v := range orphans {
		fmt.Fprintf(out, "%2d. ID: %s\n", i+1, v.ID)
		fmt.Fprintf(out, "    Title: %s\n", v.Title)
		fmt.Fprintf(out, "    Path:  %s\n", v.FilePath)
	}

	if dryRun {
		fmt.Fprintln(out, "Dry run enabled; no deletions were performed.")
		return nil
	}

	if !force {
		confirmed, err := promptYesNo(in, out, fmt.Sprintf("Delete %d records", len(orphans)))
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(out, "Aborted. No records deleted.")
			return nil
		}
	}

	deleted := 0
	for _, v := range orphans {
		if err := database.GlobalStore.DeleteVolume(v.ID); err != nil {
			fmt.Fprintf(out, "Failed to delete %s: %v\n", v.ID, err)
			continue
		}
		deleted++
	}

	fmt.Fprintf(out, "Deleted %d orphaned records.\n", deleted)
	return nil
}

func runDiagnosticsQuery(out io.Writer, limit int, prefix string, raw bool) error {
	if limit <= 0 {
		return errors.New("limit must be positive")
	}

	if raw {
		if config.AppConfig.DatabaseType != "pebble" {
			return fmt.Errorf("raw inspection is only available for Pebble databases")
		}
		return runRawPebbleQuery(out, limit, prefix)
	}

	closer, err := openStore()
	if err != nil {
		return err
	}
	defer closer()

	series, err := database.GlobalStore.ListSeries()
	if err != nil {
		return fmt.Errorf("failed to fetch series: %w", err)
	}
	if len(series) == 0 {
		fmt.Fprintln(out, "No series found.")
		return nil
	}
	if len(series) > limit {
		series = series[:limit]
	}

	for i, s := range series {
		fmt.Fprintf(out, "%2d. ID: %s\n", i+1, s.ID)
		fmt.Fprintf(out, "    Code: %s\n", s.SeriesCode)
		fmt.Fprintf(out, "    Title: %s\n", s.Title)
		volumes, err := database.GlobalStore.ListVolumesBySeries(s.ID)
		if err != nil {
			return fmt.Errorf("failed to fetch volumes: %w", err)
		}
		for _, v := range volumes {
			fmt.Fprintf(out, "    - %s (%d/%d pages) %s\n", v.FilePath, v.CurrentPage, v.TotalPages, truncateString(v.FileHash, 12))
		}
		fmt.Fprintln(out, "---")
	}

	return nil
}

func runRawPebbleQuery(out io.Writer, limit int, prefix string) error {
	db, err := pebble.Open(config.AppConfig.DatabasePath, &pebble.Options{
		FormatMajorVersion: pebble.FormatNewest,
	})
	if err != nil {
		return fmt.Errorf("failed to open Pebble database: %w", err)
	}
	defer db.Close()

	iterOpts := &pebble.IterOptions{}
	if prefix != "" {
		iterOpts.LowerBound = []byte(prefix)
		iterOpts.UpperBound = append([]byte(prefix), 0xFF)
	}

	iter, err := db.NewIter(iterOpts)
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	count := 0
	for ok := iter.First(); ok && iter.Valid(); ok = iter.Next() {
		fmt.Fprintf(out, "Key: %s\n", string(iter.Key()))
		val := iter.Value()
		fmt.Fprintf(out, "Value length: %d bytes\n", len(val))
		fmt.Fprintf(out, "Value preview: %s\n", truncateString(string(val), 500))
		fmt.Fprintln(out, "---")

		count++
		if count >= limit {
			break
		}
	}

	if err := iter.Error(); err != nil {
		return fmt.Errorf("iterator error: %w", err)
	}

	if count == 0 {
		fmt.Fprintln(out, "No keys matched the requested prefix.")
	}

	return nil
}

func promptYesNo(in io.Reader, out io.Writer, action string) (bool, error) {
	fmt.Fprintf(out, "%s? Type 'yes' to confirm: ", action)
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "yes", nil
}

func truncateString(in string, max int) string {
	if len(in) <= max {
		return in
	}
	return in[:max] + "..."
}
