// file: internal/testutil/integration.go
// version: 2.0.0
// guid: a1b2c3d4-e5f6-7890-abcd-ef1234567891

// Package testutil wires a real store, importer, queue and hub on temporary
// directories for integration tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/jdfalk/manga-organizer/internal/config"
	"github.com/jdfalk/manga-organizer/internal/database"
	"github.com/jdfalk/manga-organizer/internal/importer"
	"github.com/jdfalk/manga-organizer/internal/matcher"
	"github.com/jdfalk/manga-organizer/internal/operations"
	"github.com/jdfalk/manga-organizer/internal/organizer"
	"github.com/jdfalk/manga-organizer/internal/realtime"
)

// IntegrationEnv holds all resources for an integration test.
type IntegrationEnv struct {
	Store      database.Store
	Importer   *importer.Importer
	Queue      *operations.OperationQueue
	Hub        *realtime.EventHub
	LibraryDir string
	InboxDir   string
	UploadDir  string
	TempDir    string
	T          *testing.T
}

// SetupIntegration creates a real SQLite database, temp directories and
// the import services, and points the globals at them. oracle may be nil.
func SetupIntegration(t *testing.T, oracle matcher.Oracle) (*IntegrationEnv, func()) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	tmpBase := t.TempDir()
	dbPath := filepath.Join(tmpBase, "test.db")
	libraryDir := filepath.Join(tmpBase, "library")
	inboxDir := filepath.Join(tmpBase, "inbox")
	uploadDir := filepath.Join(tmpBase, "uploads")
	for _, dir := range []string{libraryDir, inboxDir, uploadDir} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}

	store, err := database.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(store))

	hub := realtime.NewEventHub()
	queue := operations.NewOperationQueue(hub, 2)

	config.AppConfig = config.Config{
		DatabaseType:         "sqlite",
		DatabasePath:         dbPath,
		LibraryDir:           libraryDir,
		InboxDir:             inboxDir,
		UploadTempDir:        uploadDir,
		OrganizationStrategy: organizer.StrategyCopy,
		Workers:              2,
		UploadRateLimit:      600,
		MaxUploadBytes:       32 << 20,
	}

	imp := importer.New(importer.Options{
		Store:      store,
		Organizer:  organizer.NewOrganizer(afero.NewOsFs(), libraryDir, organizer.StrategyCopy),
		Policy:     matcher.DefaultPolicy(),
		Oracle:     oracle,
		Hub:        hub,
		CatalogTTL: time.Minute,
	})

	database.GlobalStore = store
	realtime.GlobalHub = hub
	operations.GlobalQueue = queue

	env := &IntegrationEnv{
		Store:      store,
		Importer:   imp,
		Queue:      queue,
		Hub:        hub,
		LibraryDir: libraryDir,
		InboxDir:   inboxDir,
		UploadDir:  uploadDir,
		TempDir:    tmpBase,
		T:          t,
	}

	cleanup := func() {
		_ = queue.Shutdown(2 * time.Second)
		_ = store.Close()
		database.GlobalStore = nil
		realtime.GlobalHub = nil
		operations.GlobalQueue = nil
	}

	return env, cleanup
}

// FakePDF builds a minimal document with the given number of page objects.
// salt makes otherwise identical documents hash differently.
func FakePDF(pages int, salt string) []byte {
	var b strings.Builder
	b.WriteString("%PDF-1.4\n1 0 obj\n<< /Type /Pages /Count ")
	fmt.Fprintf(&b, "%d >>\nendobj\n", pages)
	for i := 0; i < pages; i++ {
		fmt.Fprintf(&b, "%d 0 obj\n<< /Type /Page /Parent 1 0 R >>\nendobj\n", i+2)
	}
	b.WriteString("% " + salt + "\n%%EOF\n")
	return []byte(b.String())
}

// CreatePDF writes a fake PDF named filename into dir and returns its path.
// The filename doubles as the salt, so every name hashes differently.
func (env *IntegrationEnv) CreatePDF(dir, filename string, pages int) string {
	env.T.Helper()
	path := filepath.Join(dir, filename)
	require.NoError(env.T, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(env.T, os.WriteFile(path, FakePDF(pages, filename), 0o644))
	return path
}

// WaitForOp polls until an operation finishes or times out.
func WaitForOp(t *testing.T, queue *operations.OperationQueue, opID string, timeout time.Duration) *operations.Operation {
	t.Helper()
	var op *operations.Operation
	require.Eventually(t, func() bool {
		got, err := queue.GetStatus(opID)
		if err != nil || !got.Finished() {
			return false
		}
		op = got
		return true
	}, timeout, 20*time.Millisecond)
	return op
}
