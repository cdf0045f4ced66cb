// file: internal/importer/importer.go
// version: 1.1.0
// guid: 2c7e9a41-5b3d-4f60-8e1a-9d4c3b2a1f07

// Package importer turns an incoming PDF into a library volume: it resolves
// the filename against the catalog, creates the series when needed, places
// the file and records the decision.
package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/jdfalk/manga-organizer/internal/cache"
	"github.com/jdfalk/manga-organizer/internal/database"
	"github.com/jdfalk/manga-organizer/internal/fileops"
	"github.com/jdfalk/manga-organizer/internal/matcher"
	"github.com/jdfalk/manga-organizer/internal/metrics"
	"github.com/jdfalk/manga-organizer/internal/organizer"
	"github.com/jdfalk/manga-organizer/internal/realtime"
)

// ErrNotPDF is returned for files that are not PDF documents.
var ErrNotPDF = errors.New("not a PDF file")

// ImportSource describes one file to import.
type ImportSource struct {
	// Path is where the file currently is.
	Path string
	// Name is the filename used for resolution. Uploads are stored under a
	// temporary name, so the client filename travels here. Defaults to the
	// base name of Path.
	Name string
	// RemoveSource deletes Path after a successful import or a duplicate.
	RemoveSource bool
	// OperationID ties the import to a bulk operation for progress events.
	OperationID string
}

func (s ImportSource) name() string {
	if s.Name != "" {
		return filepath.Base(s.Name)
	}
	return filepath.Base(s.Path)
}

// ImportResult is the outcome of a successful import.
type ImportResult struct {
	Volume        *database.Volume   `json:"volume"`
	Series        *database.Series   `json:"series"`
	Resolution    matcher.Resolution `json:"resolution"`
	Duplicate     bool               `json:"duplicate"`
	CreatedSeries bool               `json:"created_series"`
}

// Options configures an Importer.
type Options struct {
	Store     database.Store
	Organizer *organizer.Organizer
	Policy    matcher.Policy
	// Oracle may be nil; ambiguous matches then degrade to low confidence.
	Oracle     matcher.Oracle
	Hub        *realtime.EventHub
	CatalogTTL time.Duration
	Clock      clockwork.Clock
}

// Importer runs the import pipeline. It is safe for concurrent use; series
// creation and volume registration are serialized by a writer mutex.
type Importer struct {
	store     database.Store
	organizer *organizer.Organizer
	matcher   *matcher.Matcher
	oracle    matcher.Oracle
	hub       *realtime.EventHub
	catalog   *cache.CatalogCache
	clock     clockwork.Clock

	writeMu sync.Mutex
}

// New creates an Importer.
func New(opts Options) *Importer {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Organizer == nil {
		opts.Organizer = organizer.NewOrganizer(nil, "library", organizer.StrategyAuto)
	}
	imp := &Importer{
		store:     opts.Store,
		organizer: opts.Organizer,
		matcher:   matcher.New(opts.Policy),
		oracle:    opts.Oracle,
		hub:       opts.Hub,
		clock:     opts.Clock,
	}
	imp.catalog = cache.NewCatalogCacheWithClock(func() ([]matcher.Candidate, error) {
		return database.Catalog(imp.store)
	}, opts.CatalogTTL, opts.Clock)
	return imp
}

// Catalog returns the cached matcher catalog.
func (imp *Importer) Catalog() ([]matcher.Candidate, error) {
	return imp.catalog.Get()
}

// InvalidateCatalog drops the cached catalog. Call it after editing series
// or policies outside the importer.
func (imp *Importer) InvalidateCatalog() {
	imp.catalog.Invalidate()
}

// Resolve is a dry run of the matching stage against the stored catalog.
func (imp *Importer) Resolve(ctx context.Context, filename string) (matcher.Resolution, error) {
	catalog, err := imp.catalog.Get()
	if err != nil {
		return matcher.Resolution{}, fmt.Errorf("failed to load catalog: %w", err)
	}
	return imp.matcher.Resolve(ctx, filepath.Base(filename), catalog, imp.oracle), nil
}

func (imp *Importer) fs() afero.Fs {
	return imp.organizer.Fs()
}

// Import runs the full pipeline for src.
func (imp *Importer) Import(ctx context.Context, src ImportSource) (*ImportResult, error) {
	start := imp.clock.Now()
	name := src.name()
	logger := log.With().Str("filename", name).Logger()

	result, err := imp.importFile(ctx, src, name)
	elapsed := imp.clock.Since(start)
	metrics.ObserveImportDuration(elapsed)

	switch {
	case err != nil:
		metrics.IncImport("failed")
		logger.Error().Err(err).Msg("import failed")
		imp.publish(realtime.EventImportFailed, src.OperationID, map[string]interface{}{
			"filename": name,
			"error":    err.Error(),
		})
		return nil, err
	case result.Duplicate:
		metrics.IncImport("duplicate")
		logger.Info().Str("volume", result.Volume.ID).Msg("duplicate file, already imported")
		imp.publish(realtime.EventImportDuplicate, src.OperationID, map[string]interface{}{
			"filename":  name,
			"volume_id": result.Volume.ID,
		})
	default:
		metrics.IncImport("imported")
		logger.Info().
			Str("series", result.Series.SeriesCode).
			Str("path", result.Volume.FilePath).
			Str("decision", string(result.Resolution.Result.Decision)).
			Dur("elapsed", elapsed).
			Msg("imported volume")
		imp.publish(realtime.EventImportCompleted, src.OperationID, map[string]interface{}{
			"filename":       name,
			"volume_id":      result.Volume.ID,
			"series_id":      result.Series.ID,
			"series_code":    result.Series.SeriesCode,
			"series_title":   result.Series.Title,
			"created_series": result.CreatedSeries,
			"decision":       string(result.Resolution.Result.Decision),
			"path":           result.Volume.FilePath,
		})
	}

	if src.RemoveSource {
		if rmErr := imp.fs().Remove(src.Path); rmErr != nil && !isNotExist(rmErr) {
			logger.Warn().Err(rmErr).Str("path", src.Path).Msg("failed to remove source file")
		}
	}
	return result, nil
}

func (imp *Importer) importFile(ctx context.Context, src ImportSource, name string) (*ImportResult, error) {
	if imp.store == nil {
		return nil, fmt.Errorf("store is not initialized")
	}
	if !fileops.HasPDFExtension(name) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotPDF)
	}
	ok, err := fileops.IsPDF(imp.fs(), src.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", src.Path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotPDF)
	}

	hash, err := fileops.ComputeFileHash(imp.fs(), src.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", src.Path, err)
	}
	if dup, err := imp.duplicate(hash); err != nil || dup != nil {
		return dup, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	catalog, err := imp.catalog.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	started := imp.clock.Now()
	res := imp.matcher.Resolve(ctx, name, catalog, imp.oracle)
	metrics.IncMatchDecision(string(res.Result.Decision), res.Result.Method)

	imp.writeMu.Lock()
	defer imp.writeMu.Unlock()

	// Another worker may have registered the same content meanwhile.
	if dup, err := imp.duplicate(hash); err != nil || dup != nil {
		return dup, err
	}

	series, created, err := imp.ensureSeries(res)
	if err != nil {
		imp.recordMatch(name, res, "", started, err)
		return nil, err
	}

	placed, err := imp.organizer.Place(src.Path, series.SeriesCode, res.Filename)
	if err != nil {
		err = fmt.Errorf("failed to place %s: %w", name, err)
		imp.recordMatch(name, res, series.ID, started, err)
		return nil, err
	}

	size, err := fileops.GetFileSize(imp.fs(), placed)
	if err != nil {
		log.Warn().Err(err).Str("path", placed).Msg("failed to stat placed file")
	}
	pages, err := fileops.CountPDFPages(imp.fs(), placed)
	if err != nil {
		log.Warn().Err(err).Str("path", placed).Msg("failed to count pages")
	}

	info := res.Parsed.Info
	volume, err := imp.store.CreateVolume(&database.Volume{
		SeriesID:      series.ID,
		Title:         strings.TrimSuffix(filepath.Base(placed), filepath.Ext(placed)),
		VolumeNumber:  info.Volume,
		ChapterNumber: info.Chapter,
		ChapterStart:  info.ChapterStart,
		ChapterEnd:    info.ChapterEnd,
		FilePath:      placed,
		FileSize:      size,
		FileHash:      hash,
		TotalPages:    pages,
	})
	if err != nil {
		// Without a record nothing points at the placed copy.
		if rmErr := imp.fs().Remove(placed); rmErr != nil && !isNotExist(rmErr) {
			log.Warn().Err(rmErr).Str("path", placed).Msg("failed to remove orphaned library file")
		}
		err = fmt.Errorf("failed to create volume: %w", err)
		imp.recordMatch(name, res, series.ID, started, err)
		return nil, err
	}

	imp.recordMatch(name, res, series.ID, started, nil)
	return &ImportResult{
		Volume:        volume,
		Series:        series,
		Resolution:    res,
		CreatedSeries: created,
	}, nil
}

// duplicate returns a duplicate result when a volume with hash exists.
func (imp *Importer) duplicate(hash string) (*ImportResult, error) {
	existing, err := imp.store.GetVolumeByHash(hash)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicates: %w", err)
	}
	result := &ImportResult{Volume: existing, Duplicate: true}
	if s, err := imp.store.GetSeriesByID(existing.SeriesID); err == nil {
		result.Series = s
	}
	return result, nil
}

// ensureSeries returns the series res points at, creating it with a default
// policy when it does not exist yet. Callers hold writeMu.
func (imp *Importer) ensureSeries(res matcher.Resolution) (*database.Series, bool, error) {
	if res.Result.Matched() {
		s, err := imp.store.GetSeriesByID(res.Result.Candidate.ID)
		if err == nil {
			return s, false, nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return nil, false, fmt.Errorf("failed to load matched series: %w", err)
		}
		log.Warn().Str("series_id", res.Result.Candidate.ID).Msg("matched series vanished, falling back to code lookup")
	}

	if s, err := imp.store.GetSeriesByCode(res.Code); err == nil {
		return s, false, nil
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to look up series %s: %w", res.Code, err)
	}

	s, err := imp.store.CreateSeries(&database.Series{
		SeriesCode: res.Code,
		Title:      res.Title,
	})
	if errors.Is(err, database.ErrDuplicateCode) {
		// Created by another process between lookup and insert.
		s, err = imp.store.GetSeriesByCode(res.Code)
		if err != nil {
			return nil, false, fmt.Errorf("failed to reload series %s: %w", res.Code, err)
		}
		return s, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to create series %q: %w", res.Title, err)
	}

	policy := &database.SeriesPolicy{
		SeriesID:       s.ID,
		TitleCanonical: s.Title,
		TitleLocked:    false,
	}
	if related := res.Result.Related; related != nil {
		policy.Notes = fmt.Sprintf("%s of %s (%s)", res.Result.Classification, related.TitleCanonical, related.Code)
	}
	if err := imp.store.UpsertPolicy(policy); err != nil {
		log.Warn().Err(err).Str("series", s.SeriesCode).Msg("failed to create default policy")
	}
	imp.catalog.Invalidate()

	log.Info().
		Str("series", s.SeriesCode).
		Str("title", s.Title).
		Str("reason", res.Result.Reason).
		Msg("created series")
	return s, true, nil
}

// recordMatch writes the matching log row for one resolution.
func (imp *Importer) recordMatch(name string, res matcher.Resolution, seriesID string, started time.Time, importErr error) {
	r := res.Result
	entry := &database.MatchingLog{
		Filename:               name,
		SeriesID:               seriesID,
		Matched:                r.Matched(),
		Score:                  r.Score,
		Method:                 r.Method,
		SubtitleDetected:       res.Parsed.Info.SubtitleText(),
		SubtitleClassification: string(r.Classification),
		Reason:                 r.Reason,
		Error:                  r.OracleError,
		ProcessingTimeMs:       imp.clock.Since(started).Milliseconds(),
		LowConfidence:          r.LowConfidence,
	}
	if r.Via != nil && r.Candidate != nil && *r.Via != r.Candidate.TitleCanonical {
		entry.AliasUsed = *r.Via
	}
	if r.Oracle != nil {
		entry.LLMResponse = r.Oracle.Raw
	}
	if importErr != nil {
		entry.Error = importErr.Error()
	}
	if err := imp.store.CreateMatchingLog(entry); err != nil {
		log.Warn().Err(err).Str("filename", name).Msg("failed to write matching log")
	}
}

func (imp *Importer) publish(eventType realtime.EventType, operationID string, data map[string]interface{}) {
	if imp.hub == nil {
		return
	}
	imp.hub.SendImportEvent(eventType, operationID, data)
}
