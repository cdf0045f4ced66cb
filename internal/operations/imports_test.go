// file: internal/operations/imports_test.go
// version: 1.0.0
// guid: 5f7a9c1e-3b4d-4f6a-9c8e-0a2b4c6d8e0f

package operations

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdfalk/manga-organizer/internal/importer"
)

// fakeImporter fails files whose name contains "bad" and reports files
// containing "dup" as duplicates.
type fakeImporter struct {
	mu      sync.Mutex
	sources []importer.ImportSource
}

func (f *fakeImporter) Import(_ context.Context, src importer.ImportSource) (*importer.ImportResult, error) {
	f.mu.Lock()
	f.sources = append(f.sources, src)
	f.mu.Unlock()
	switch {
	case strings.Contains(src.Path, "bad"):
		return nil, errors.New("broken file")
	case strings.Contains(src.Path, "dup"):
		return &importer.ImportResult{Duplicate: true}, nil
	default:
		return &importer.ImportResult{}, nil
	}
}

func TestImportDirectoryFunc(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, p := range []string{"/inbox/a.pdf", "/inbox/bad.pdf", "/inbox/dup.pdf", "/inbox/readme.txt"} {
		require.NoError(t, afero.WriteFile(fs, p, []byte("x"), 0o644))
	}

	imp := &fakeImporter{}
	q := NewOperationQueue(nil, 1)
	defer q.Shutdown(time.Second)

	id, err := q.Enqueue("", TypeImportDirectory, PriorityNormal, ImportDirectoryFunc(imp, fs, "/inbox", true))
	require.NoError(t, err)

	op := waitFinished(t, q, id)
	assert.Equal(t, StatusCompleted, op.Status)
	require.NotNil(t, op.Summary)
	assert.Equal(t, Summary{Imported: 1, Duplicates: 1, Failed: 1}, *op.Summary)
	assert.Equal(t, 3, op.Total)

	require.Len(t, imp.sources, 3)
	for _, src := range imp.sources {
		assert.Equal(t, id, src.OperationID)
		assert.True(t, src.RemoveSource)
	}
}

func TestImportFilesFunc_AllFailed(t *testing.T) {
	q := NewOperationQueue(nil, 1)
	defer q.Shutdown(time.Second)

	sources := []importer.ImportSource{{Path: "/x/bad1.pdf"}, {Path: "/x/bad2.pdf", Name: "named.pdf"}}
	id, err := q.Enqueue("", TypeImportFiles, PriorityHigh, ImportFilesFunc(&fakeImporter{}, sources))
	require.NoError(t, err)

	op := waitFinished(t, q, id)
	assert.Equal(t, StatusFailed, op.Status)
	assert.Contains(t, op.Error, "all 2 imports failed")
	require.NotNil(t, op.Summary)
	assert.Equal(t, 2, op.Summary.Failed)
}

func TestImportDirectoryFunc_MissingDir(t *testing.T) {
	q := NewOperationQueue(nil, 1)
	defer q.Shutdown(time.Second)

	id, err := q.Enqueue("", TypeImportDirectory, PriorityNormal, ImportDirectoryFunc(&fakeImporter{}, afero.NewMemMapFs(), "/nope", false))
	require.NoError(t, err)
	op := waitFinished(t, q, id)
	assert.Equal(t, StatusFailed, op.Status)
	assert.Contains(t, op.Error, "failed to scan")
}

func TestImportFilesFunc_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reporter := &operationProgressReporter{operationID: "op", ctx: ctx, queue: &OperationQueue{listeners: map[string][]ProgressListener{}, states: newStateStore()}}

	imp := &fakeImporter{}
	err := ImportFilesFunc(imp, []importer.ImportSource{{Path: "/a.pdf"}})(ctx, reporter)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, imp.sources)
}
