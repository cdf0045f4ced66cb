// file: internal/database/sqlite_store.go
// version: 2.0.0
// guid: 8b9c0d1e-2f3a-4b5c-6d7e-8f9a0b1c2d3e

package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

type rowScanner interface {
	Scan(dest ...any) error
}

const seriesSelectColumns = `
	id, series_code, title, normalized_title, author, genre, year,
	description, publisher, tags, reading_status, created_at, updated_at
`

const policySelectColumns = `
	series_id, title_canonical, title_locked, do_not_translate, aliases,
	treat_as_arc, treat_as_spinoff, romanizations, notes, updated_at
`

const volumeSelectColumns = `
	id, series_id, title, volume_number, chapter_number, chapter_start,
	chapter_end, file_path, file_size, file_hash, total_pages, current_page,
	status, last_read_at, created_at
`

const matchingLogSelectColumns = `
	id, filename, series_id, matched, score, method, alias_used,
	subtitle_detected, subtitle_classification, reason, llm_response, error,
	processing_time_ms, low_confidence, created_at
`

func scanSeries(scanner rowScanner, s *Series) error {
	var tags string
	if err := scanner.Scan(
		&s.ID, &s.SeriesCode, &s.Title, &s.NormalizedTitle, &s.Author,
		&s.Genre, &s.Year, &s.Description, &s.Publisher, &tags,
		&s.ReadingStatus, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return err
	}
	s.Tags = decodeList(tags)
	return nil
}

func scanPolicy(scanner rowScanner, p *SeriesPolicy) error {
	var aliases, arcs, spinoffs, romanizations string
	if err := scanner.Scan(
		&p.SeriesID, &p.TitleCanonical, &p.TitleLocked, &p.DoNotTranslate,
		&aliases, &arcs, &spinoffs, &romanizations, &p.Notes, &p.UpdatedAt,
	); err != nil {
		return err
	}
	p.Aliases = decodeList(aliases)
	p.TreatAsArc = decodeList(arcs)
	p.TreatAsSpinoff = decodeList(spinoffs)
	p.Romanizations = decodeList(romanizations)
	return nil
}

func scanVolume(scanner rowScanner, v *Volume) error {
	return scanner.Scan(
		&v.ID, &v.SeriesID, &v.Title, &v.VolumeNumber, &v.ChapterNumber,
		&v.ChapterStart, &v.ChapterEnd, &v.FilePath, &v.FileSize, &v.FileHash,
		&v.TotalPages, &v.CurrentPage, &v.Status, &v.LastReadAt, &v.CreatedAt,
	)
}

func scanMatchingLog(scanner rowScanner, l *MatchingLog) error {
	var seriesID sql.NullString
	if err := scanner.Scan(
		&l.ID, &l.Filename, &seriesID, &l.Matched, &l.Score, &l.Method,
		&l.AliasUsed, &l.SubtitleDetected, &l.SubtitleClassification,
		&l.Reason, &l.LLMResponse, &l.Error, &l.ProcessingTimeMs,
		&l.LowConfidence, &l.CreatedAt,
	); err != nil {
		return err
	}
	l.SeriesID = seriesID.String
	return nil
}

func encodeList(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeList(raw string) []string {
	var values []string
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	if len(values) == 0 {
		return nil
	}
	return values
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// SQLiteStore implements the Store interface using SQLite3
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens the database at path. Call RunMigrations before use.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	// A single connection serialises writers and keeps in-memory databases alive.
	db.SetMaxOpenConns(1)

	return newSQLiteStoreFromDB(db), nil
}

func newSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Series operations

func (s *SQLiteStore) CreateSeries(series *Series) (*Series, error) {
	created := *series
	if err := prepareSeries(&created, s.now()); err != nil {
		return nil, err
	}

	_, err := s.db.Exec(`INSERT INTO series (
		id, series_code, title, normalized_title, author, genre, year,
		description, publisher, tags, reading_status, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.SeriesCode, created.Title, created.NormalizedTitle,
		created.Author, created.Genre, created.Year, created.Description,
		created.Publisher, encodeList(created.Tags), created.ReadingStatus,
		created.CreatedAt, created.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, created.SeriesCode)
		}
		return nil, fmt.Errorf("failed to insert series: %w", err)
	}
	return &created, nil
}

func (s *SQLiteStore) getSeries(where string, arg any) (*Series, error) {
	var series Series
	row := s.db.QueryRow("SELECT "+seriesSelectColumns+" FROM series WHERE "+where, arg)
	if err := scanSeries(row, &series); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &series, nil
}

func (s *SQLiteStore) GetSeriesByID(id string) (*Series, error) {
	return s.getSeries("id = ?", id)
}

func (s *SQLiteStore) GetSeriesByCode(code string) (*Series, error) {
	return s.getSeries("series_code = ?", strings.ToUpper(code))
}

func (s *SQLiteStore) ListSeries() ([]Series, error) {
	rows, err := s.db.Query("SELECT " + seriesSelectColumns + " FROM series ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Series
	for rows.Next() {
		var series Series
		if err := scanSeries(rows, &series); err != nil {
			return nil, err
		}
		list = append(list, series)
	}
	return list, rows.Err()
}

func (s *SQLiteStore) SearchSeries(query string, limit int) ([]Series, error) {
	all, err := s.ListSeries()
	if err != nil {
		return nil, err
	}
	return rankSeries(all, query, limit), nil
}

func (s *SQLiteStore) UpdateSeries(series *Series) error {
	if series.ID == "" {
		return ErrNotFound
	}
	updated := *series
	if err := prepareSeries(&updated, s.now()); err != nil {
		return err
	}

	result, err := s.db.Exec(`UPDATE series SET
		series_code = ?, title = ?, normalized_title = ?, author = ?, genre = ?,
		year = ?, description = ?, publisher = ?, tags = ?, reading_status = ?,
		updated_at = ?
	WHERE id = ?`,
		updated.SeriesCode, updated.Title, updated.NormalizedTitle,
		updated.Author, updated.Genre, updated.Year, updated.Description,
		updated.Publisher, encodeList(updated.Tags), updated.ReadingStatus,
		updated.UpdatedAt, updated.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateCode, updated.SeriesCode)
		}
		return fmt.Errorf("failed to update series: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	*series = updated
	return nil
}

func (s *SQLiteStore) DeleteSeries(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM volumes WHERE series_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete volumes: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM series_policies WHERE series_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete policy: %w", err)
	}
	result, err := tx.Exec("DELETE FROM series WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete series: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// Policy operations

func (s *SQLiteStore) UpsertPolicy(policy *SeriesPolicy) error {
	if policy.SeriesID == "" {
		return fmt.Errorf("policy series id is required")
	}
	policy.UpdatedAt = s.now()
	_, err := s.db.Exec(`INSERT INTO series_policies (
		series_id, title_canonical, title_locked, do_not_translate, aliases,
		treat_as_arc, treat_as_spinoff, romanizations, notes, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(series_id) DO UPDATE SET
		title_canonical = excluded.title_canonical,
		title_locked = excluded.title_locked,
		do_not_translate = excluded.do_not_translate,
		aliases = excluded.aliases,
		treat_as_arc = excluded.treat_as_arc,
		treat_as_spinoff = excluded.treat_as_spinoff,
		romanizations = excluded.romanizations,
		notes = excluded.notes,
		updated_at = excluded.updated_at`,
		policy.SeriesID, policy.TitleCanonical, policy.TitleLocked,
		policy.DoNotTranslate, encodeList(policy.Aliases),
		encodeList(policy.TreatAsArc), encodeList(policy.TreatAsSpinoff),
		encodeList(policy.Romanizations), policy.Notes, policy.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert policy: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetPolicy(seriesID string) (*SeriesPolicy, error) {
	var policy SeriesPolicy
	row := s.db.QueryRow("SELECT "+policySelectColumns+" FROM series_policies WHERE series_id = ?", seriesID)
	if err := scanPolicy(row, &policy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &policy, nil
}

func (s *SQLiteStore) ListPolicies() ([]SeriesPolicy, error) {
	rows, err := s.db.Query("SELECT " + policySelectColumns + " FROM series_policies ORDER BY series_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []SeriesPolicy
	for rows.Next() {
		var policy SeriesPolicy
		if err := scanPolicy(rows, &policy); err != nil {
			return nil, err
		}
		list = append(list, policy)
	}
	return list, rows.Err()
}

// Volume operations

func (s *SQLiteStore) CreateVolume(volume *Volume) (*Volume, error) {
	created := *volume
	if err := prepareVolume(&created, s.now()); err != nil {
		return nil, err
	}

	_, err := s.db.Exec(`INSERT INTO volumes (
		id, series_id, title, volume_number, chapter_number, chapter_start,
		chapter_end, file_path, file_size, file_hash, total_pages, current_page,
		status, last_read_at, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.SeriesID, created.Title, created.VolumeNumber,
		created.ChapterNumber, created.ChapterStart, created.ChapterEnd,
		created.FilePath, created.FileSize, created.FileHash, created.TotalPages,
		created.CurrentPage, created.Status, created.LastReadAt, created.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert volume: %w", err)
	}
	return &created, nil
}

func (s *SQLiteStore) getVolume(where string, arg any) (*Volume, error) {
	var volume Volume
	row := s.db.QueryRow("SELECT "+volumeSelectColumns+" FROM volumes WHERE "+where+" ORDER BY created_at LIMIT 1", arg)
	if err := scanVolume(row, &volume); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &volume, nil
}

func (s *SQLiteStore) GetVolumeByID(id string) (*Volume, error) {
	return s.getVolume("id = ?", id)
}

func (s *SQLiteStore) GetVolumeByHash(hash string) (*Volume, error) {
	if hash == "" {
		return nil, ErrNotFound
	}
	return s.getVolume("file_hash = ?", hash)
}

func (s *SQLiteStore) queryVolumes(query string, args ...any) ([]Volume, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Volume
	for rows.Next() {
		var volume Volume
		if err := scanVolume(rows, &volume); err != nil {
			return nil, err
		}
		list = append(list, volume)
	}
	return list, rows.Err()
}

func (s *SQLiteStore) ListVolumesBySeries(seriesID string) ([]Volume, error) {
	return s.queryVolumes("SELECT "+volumeSelectColumns+` FROM volumes WHERE series_id = ?
		ORDER BY COALESCE(volume_number, 0), COALESCE(chapter_number, chapter_start, 0), created_at`, seriesID)
}

func (s *SQLiteStore) ReassignVolumes(fromSeriesID, toSeriesID string) (int, error) {
	result, err := s.db.Exec("UPDATE volumes SET series_id = ? WHERE series_id = ?", toSeriesID, fromSeriesID)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign volumes: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *SQLiteStore) UpdateVolumeProgress(id string, currentPage int) (*Volume, error) {
	volume, err := s.GetVolumeByID(id)
	if err != nil {
		return nil, err
	}
	applyProgress(volume, currentPage, s.now())

	_, err = s.db.Exec("UPDATE volumes SET current_page = ?, status = ?, last_read_at = ? WHERE id = ?",
		volume.CurrentPage, volume.Status, volume.LastReadAt, volume.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update progress: %w", err)
	}
	return volume, nil
}

func (s *SQLiteStore) GetRecentlyRead(limit int) ([]Volume, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryVolumes("SELECT "+volumeSelectColumns+` FROM volumes WHERE last_read_at IS NOT NULL
		ORDER BY last_read_at DESC LIMIT ?`, limit)
}

func (s *SQLiteStore) DeleteVolume(id string) error {
	result, err := s.db.Exec("DELETE FROM volumes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete volume: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Matching log operations

func (s *SQLiteStore) CreateMatchingLog(entry *MatchingLog) error {
	if entry.ID == "" {
		entry.ID = NewID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	_, err := s.db.Exec(`INSERT INTO matching_logs (
		id, filename, series_id, matched, score, method, alias_used,
		subtitle_detected, subtitle_classification, reason, llm_response, error,
		processing_time_ms, low_confidence, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Filename, nullIfEmpty(entry.SeriesID), entry.Matched,
		entry.Score, entry.Method, entry.AliasUsed, entry.SubtitleDetected,
		entry.SubtitleClassification, entry.Reason, entry.LLMResponse,
		entry.Error, entry.ProcessingTimeMs, entry.LowConfidence, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert matching log: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListMatchingLogs(limit int) ([]MatchingLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query("SELECT "+matchingLogSelectColumns+" FROM matching_logs ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []MatchingLog
	for rows.Next() {
		var entry MatchingLog
		if err := scanMatchingLog(rows, &entry); err != nil {
			return nil, err
		}
		list = append(list, entry)
	}
	return list, rows.Err()
}
