// file: internal/operations/imports.go
// version: 1.0.0
// guid: 3e5c7a9b-1d2f-4e6a-8b0c-2d4f6a8c0e1b

package operations

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/jdfalk/manga-organizer/internal/importer"
)

// FileImporter imports one file. *importer.Importer satisfies it.
type FileImporter interface {
	Import(ctx context.Context, src importer.ImportSource) (*importer.ImportResult, error)
}

// summaryReporter is implemented by the queue's reporter; bulk imports use
// it to tag per-file events and record their counts.
type summaryReporter interface {
	OperationID() string
	SetSummary(Summary)
}

// ImportFilesFunc returns an operation importing sources one by one. A
// failing file is logged and counted; the operation fails only when every
// file failed.
func ImportFilesFunc(imp FileImporter, sources []importer.ImportSource) OperationFunc {
	return func(ctx context.Context, progress ProgressReporter) error {
		summary, err := importSources(ctx, imp, sources, progress)
		if sr, ok := progress.(summaryReporter); ok {
			sr.SetSummary(summary)
		}
		return err
	}
}

// ImportDirectoryFunc returns an operation importing every PDF under dir.
func ImportDirectoryFunc(imp FileImporter, fs afero.Fs, dir string, removeSource bool) OperationFunc {
	return func(ctx context.Context, progress ProgressReporter) error {
		files, err := importer.FindPDFs(fs, dir)
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", dir, err)
		}
		_ = progress.Log("info", fmt.Sprintf("found %d PDF files in %s", len(files), dir), nil)

		sources := make([]importer.ImportSource, len(files))
		for i, f := range files {
			sources[i] = importer.ImportSource{Path: f, RemoveSource: removeSource}
		}
		return ImportFilesFunc(imp, sources)(ctx, progress)
	}
}

func importSources(ctx context.Context, imp FileImporter, sources []importer.ImportSource, progress ProgressReporter) (Summary, error) {
	var summary Summary
	total := len(sources)
	operationID := ""
	if sr, ok := progress.(summaryReporter); ok {
		operationID = sr.OperationID()
	}

	var lastErr error
	for i, src := range sources {
		if progress.IsCanceled() || ctx.Err() != nil {
			return summary, context.Canceled
		}
		if src.OperationID == "" {
			src.OperationID = operationID
		}

		name := filepath.Base(src.Path)
		if src.Name != "" {
			name = src.Name
		}
		_ = progress.UpdateProgress(i, total, "importing "+name)

		res, err := imp.Import(ctx, src)
		switch {
		case errors.Is(err, context.Canceled):
			return summary, err
		case err != nil:
			summary.Failed++
			lastErr = err
			details := err.Error()
			_ = progress.Log("error", "failed to import "+name, &details)
		case res.Duplicate:
			summary.Duplicates++
		default:
			summary.Imported++
		}
	}
	_ = progress.UpdateProgress(total, total, fmt.Sprintf("imported %d, duplicates %d, failed %d",
		summary.Imported, summary.Duplicates, summary.Failed))

	if total > 0 && summary.Failed == total {
		return summary, fmt.Errorf("all %d imports failed, last error: %w", total, lastErr)
	}
	return summary, nil
}
