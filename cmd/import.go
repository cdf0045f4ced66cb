// file: cmd/import.go
// version: 1.0.0
// guid: 91df052d-9d9e-4eac-b7fd-c2a1495ca2c0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jdfalk/manga-organizer/internal/database"
	"github.com/jdfalk/manga-organizer/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import <file-or-directory>...",
	Short: "Import PDFs into the library",
	Long: `Import PDF files into the library. Directories are searched
recursively. Files are copied or linked according to --strategy; with
--remove-source they are deleted from their original location afterwards.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		removeSource, _ := cmd.Flags().GetBool("remove-source")
		quiet, _ := cmd.Flags().GetBool("quiet")

		files, err := collectPDFs(afero.NewOsFs(), args)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No PDF files found.")
			return nil
		}

		closer, err := openStore()
		if err != nil {
			return err
		}
		defer closer()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		imp := newImporter(database.GlobalStore, nil, newOracle())
		var progress io.Writer = cmd.ErrOrStderr()
		if quiet {
			progress = io.Discard
		}
		summary := runImport(ctx, imp, files, removeSource, progress)

		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d, duplicates %d, failed %d (of %d files)\n",
			summary.imported, summary.duplicates, summary.failed, len(files))
		if summary.failed > 0 && summary.failed == len(files) {
			return fmt.Errorf("all %d files failed to import", len(files))
		}
		return ctx.Err()
	},
}

type importSummary struct {
	imported, duplicates, failed int
}

// collectPDFs expands directories into the PDFs below them.
func collectPDFs(fs afero.Fs, args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := fs.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		found, err := importer.FindPDFs(fs, arg)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", arg, err)
		}
		files = append(files, found...)
	}
	return files, nil
}

// runImport imports files one by one behind a progress bar.
func runImport(ctx context.Context, imp *importer.Importer, files []string, removeSource bool, progress io.Writer) importSummary {
	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("importing"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var summary importSummary
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		bar.Describe(filepath.Base(path))
		result, err := imp.Import(ctx, importer.ImportSource{Path: path, RemoveSource: removeSource})
		switch {
		case err != nil:
			summary.failed++
			log.Warn().Err(err).Str("file", path).Msg("import failed")
		case result.Duplicate:
			summary.duplicates++
		default:
			summary.imported++
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	return summary
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().Bool("remove-source", false, "delete source files after a successful import")
	importCmd.Flags().BoolP("quiet", "q", false, "hide the progress bar")
}
