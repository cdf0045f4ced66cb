// file: internal/database/store.go
// version: 3.0.0
// guid: 8a9b0c1d-2e3f-4a5b-6c7d-8e9f0a1b2c3d

package database

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	ulid "github.com/oklog/ulid/v2"

	"github.com/jdfalk/manga-organizer/internal/normalize"
)

var (
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateCode is returned when a series code is already taken.
	ErrDuplicateCode = errors.New("series code already exists")
)

// Store defines the interface for our database operations
// This abstraction allows us to support both PebbleDB (default) and SQLite3
type Store interface {
	// Lifecycle
	Close() error

	// Series
	CreateSeries(series *Series) (*Series, error) // Generates ULID if empty
	GetSeriesByID(id string) (*Series, error)
	GetSeriesByCode(code string) (*Series, error)
	ListSeries() ([]Series, error)
	SearchSeries(query string, limit int) ([]Series, error)
	UpdateSeries(series *Series) error
	DeleteSeries(id string) error // Also removes its policy and volumes

	// Series policies
	UpsertPolicy(policy *SeriesPolicy) error
	GetPolicy(seriesID string) (*SeriesPolicy, error)
	ListPolicies() ([]SeriesPolicy, error)

	// Volumes
	CreateVolume(volume *Volume) (*Volume, error)
	GetVolumeByID(id string) (*Volume, error)
	GetVolumeByHash(hash string) (*Volume, error)
	ListVolumesBySeries(seriesID string) ([]Volume, error)
	ReassignVolumes(fromSeriesID, toSeriesID string) (int, error)
	UpdateVolumeProgress(id string, currentPage int) (*Volume, error)
	GetRecentlyRead(limit int) ([]Volume, error)
	DeleteVolume(id string) error

	// Matching logs, newest first
	CreateMatchingLog(entry *MatchingLog) error
	ListMatchingLogs(limit int) ([]MatchingLog, error)
}

var (
	ulidMu      sync.Mutex
	ulidEntropy = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a new ULID string. IDs created in the same millisecond stay
// ordered.
func NewID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
}

// prepareSeries fills the derived fields of a series before it is stored.
func prepareSeries(s *Series, now time.Time) error {
	s.Title = strings.TrimSpace(s.Title)
	if s.Title == "" {
		return fmt.Errorf("series title is required")
	}
	if s.SeriesCode == "" {
		s.SeriesCode = normalize.GenerateCode(s.Title)
	}
	s.SeriesCode = strings.ToUpper(s.SeriesCode)
	s.NormalizedTitle = normalize.Normalize(s.Title).Comparable
	if s.ReadingStatus == "" {
		s.ReadingStatus = StatusUnread
	}
	if s.ID == "" {
		s.ID = NewID()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	return nil
}

// prepareVolume fills the derived fields of a volume before it is stored.
func prepareVolume(v *Volume, now time.Time) error {
	if v.SeriesID == "" {
		return fmt.Errorf("volume series id is required")
	}
	if v.ID == "" {
		v.ID = NewID()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	if v.Status == "" {
		v.Status = ProgressStatus(v.CurrentPage, v.TotalPages)
	}
	return nil
}

// rankSeries returns the series whose code equals query or whose comparable
// title fuzzily contains it, best first.
func rankSeries(all []Series, query string, limit int) []Series {
	q := normalize.Normalize(query).Comparable
	if q == "" {
		return nil
	}
	code := strings.ToUpper(strings.TrimSpace(query))

	var out []Series
	seen := make(map[string]bool)
	for _, s := range all {
		if s.SeriesCode == code {
			out = append(out, s)
			seen[s.ID] = true
		}
	}

	targets := make([]string, len(all))
	for i, s := range all {
		targets[i] = s.NormalizedTitle
	}
	ranks := fuzzy.RankFindNormalizedFold(q, targets)
	sort.Stable(ranks)
	for _, r := range ranks {
		s := all[r.OriginalIndex]
		if !seen[s.ID] {
			out = append(out, s)
			seen[s.ID] = true
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Global store instance
var GlobalStore Store

// InitializeStore initializes the database store based on configuration
func InitializeStore(dbType, path string) error {
	var err error

	switch dbType {
	case "sqlite", "sqlite3":
		GlobalStore, err = NewSQLiteStore(path)
		if err != nil {
			return fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
	case "pebble", "":
		GlobalStore, err = NewPebbleStore(path)
		if err != nil {
			return fmt.Errorf("failed to initialize PebbleDB store: %w", err)
		}
	default:
		return fmt.Errorf("unsupported database type: %s (supported: pebble, sqlite)", dbType)
	}

	if err := RunMigrations(GlobalStore); err != nil {
		_ = GlobalStore.Close()
		GlobalStore = nil
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// CloseStore closes the global store
func CloseStore() error {
	if GlobalStore == nil {
		return nil
	}
	err := GlobalStore.Close()
	GlobalStore = nil
	return err
}
