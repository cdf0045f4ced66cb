// file: internal/database/pebble_store.go
// version: 2.0.0
// guid: 0c1d2e3f-4a5b-6c7d-8e9f-0a1b2c3d4e5f

package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/pebble/v2"
	"github.com/rs/zerolog/log"
)

// PebbleStore implements the Store interface using PebbleDB (LSM key-value store)
//
// Key Schema:
// - series:<id>                          -> Series JSON
// - policy:<series_id>                   -> SeriesPolicy JSON
// - volume:<id>                          -> Volume JSON
// - matchlog:<id>                        -> MatchingLog JSON (ULID order is time order)
// - idx:series:code:<code>               -> series_id
// - idx:volume:series:<series_id>:<id>   -> volume_id
// - idx:volume:hash:<hash>:<id>          -> volume_id
// - meta:schema_version                  -> applied key schema version
type PebbleStore struct {
	db *pebble.DB
	// mu serialises read-modify-write sequences such as code uniqueness.
	mu  sync.Mutex
	now func() time.Time
}

const (
	prefixSeries       = "series:"
	prefixPolicy       = "policy:"
	prefixVolume       = "volume:"
	prefixMatchLog     = "matchlog:"
	prefixSeriesCode   = "idx:series:code:"
	prefixVolumeSeries = "idx:volume:series:"
	prefixVolumeHash   = "idx:volume:hash:"
	keySchemaVersion   = "meta:schema_version"

	pebbleSchemaVersion = 1
)

// NewPebbleStore creates a new PebbleDB store
func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{
		FormatMajorVersion: pebble.FormatNewest,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open PebbleDB: %w", err)
	}
	log.Debug().Str("path", path).Msg("pebble store opened")
	return &PebbleStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the database
func (p *PebbleStore) Close() error {
	return p.db.Close()
}

// migrate records the key schema version. There is only one version so far.
func (p *PebbleStore) migrate() error {
	current := 0
	if raw, err := p.getRaw(keySchemaVersion); err == nil {
		current, _ = strconv.Atoi(string(raw))
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if current >= pebbleSchemaVersion {
		return nil
	}
	log.Info().Int("from", current).Int("to", pebbleSchemaVersion).Msg("migrating pebble key schema")
	return p.db.Set([]byte(keySchemaVersion), []byte(strconv.Itoa(pebbleSchemaVersion)), pebble.Sync)
}

// Helper functions

func (p *PebbleStore) getRaw(key string) ([]byte, error) {
	value, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), value...), nil
}

func (p *PebbleStore) getJSON(key string, dst any) error {
	raw, err := p.getRaw(key)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func setJSON(batch *pebble.Batch, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return batch.Set([]byte(key), data, nil)
}

func prefixUpperBound(prefix string) []byte {
	end := []byte(prefix)
	end[len(end)-1]++
	return end
}

// scanPrefix calls fn for every key under prefix, in key order or reversed.
func (p *PebbleStore) scanPrefix(prefix string, reverse bool, fn func(key, value []byte) (bool, error)) error {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	first, next := iter.First, iter.Next
	if reverse {
		first, next = iter.Last, iter.Prev
	}
	for ok := first(); ok && iter.Valid(); ok = next() {
		more, err := fn(iter.Key(), iter.Value())
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return iter.Error()
}

func (p *PebbleStore) commit(fn func(batch *pebble.Batch) error) error {
	batch := p.db.NewBatch()
	if err := fn(batch); err != nil {
		batch.Close()
		return err
	}
	return batch.Commit(pebble.Sync)
}

// Series operations

func (p *PebbleStore) CreateSeries(series *Series) (*Series, error) {
	created := *series
	if err := prepareSeries(&created, p.now()); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.getRaw(prefixSeriesCode + created.SeriesCode); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, created.SeriesCode)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	err := p.commit(func(batch *pebble.Batch) error {
		if err := setJSON(batch, prefixSeries+created.ID, &created); err != nil {
			return err
		}
		return batch.Set([]byte(prefixSeriesCode+created.SeriesCode), []byte(created.ID), nil)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store series: %w", err)
	}
	return &created, nil
}

func (p *PebbleStore) GetSeriesByID(id string) (*Series, error) {
	var series Series
	if err := p.getJSON(prefixSeries+id, &series); err != nil {
		return nil, err
	}
	return &series, nil
}

func (p *PebbleStore) GetSeriesByCode(code string) (*Series, error) {
	id, err := p.getRaw(prefixSeriesCode + strings.ToUpper(code))
	if err != nil {
		return nil, err
	}
	return p.GetSeriesByID(string(id))
}

func (p *PebbleStore) ListSeries() ([]Series, error) {
	var list []Series
	err := p.scanPrefix(prefixSeries, false, func(_, value []byte) (bool, error) {
		var series Series
		if err := json.Unmarshal(value, &series); err != nil {
			return false, err
		}
		list = append(list, series)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	// ULID keys already sort by creation; the stable sort keeps imported
	// records with explicit timestamps in order too.
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (p *PebbleStore) SearchSeries(query string, limit int) ([]Series, error) {
	all, err := p.ListSeries()
	if err != nil {
		return nil, err
	}
	return rankSeries(all, query, limit), nil
}

func (p *PebbleStore) UpdateSeries(series *Series) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	existing, err := p.GetSeriesByID(series.ID)
	if err != nil {
		return err
	}
	updated := *series
	updated.CreatedAt = existing.CreatedAt
	if err := prepareSeries(&updated, p.now()); err != nil {
		return err
	}

	if updated.SeriesCode != existing.SeriesCode {
		if _, err := p.getRaw(prefixSeriesCode + updated.SeriesCode); err == nil {
			return fmt.Errorf("%w: %s", ErrDuplicateCode, updated.SeriesCode)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
	}

	err = p.commit(func(batch *pebble.Batch) error {
		if updated.SeriesCode != existing.SeriesCode {
			if err := batch.Delete([]byte(prefixSeriesCode+existing.SeriesCode), nil); err != nil {
				return err
			}
			if err := batch.Set([]byte(prefixSeriesCode+updated.SeriesCode), []byte(updated.ID), nil); err != nil {
				return err
			}
		}
		return setJSON(batch, prefixSeries+updated.ID, &updated)
	})
	if err != nil {
		return fmt.Errorf("failed to update series: %w", err)
	}
	*series = updated
	return nil
}

func (p *PebbleStore) DeleteSeries(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	existing, err := p.GetSeriesByID(id)
	if err != nil {
		return err
	}
	volumes, err := p.ListVolumesBySeries(id)
	if err != nil {
		return err
	}

	return p.commit(func(batch *pebble.Batch) error {
		for _, v := range volumes {
			if err := deleteVolumeKeys(batch, &v); err != nil {
				return err
			}
		}
		if err := batch.Delete([]byte(prefixPolicy+id), nil); err != nil {
			return err
		}
		if err := batch.Delete([]byte(prefixSeriesCode+existing.SeriesCode), nil); err != nil {
			return err
		}
		return batch.Delete([]byte(prefixSeries+id), nil)
	})
}

// Policy operations

func (p *PebbleStore) UpsertPolicy(policy *SeriesPolicy) error {
	if policy.SeriesID == "" {
		return fmt.Errorf("policy series id is required")
	}
	policy.UpdatedAt = p.now()
	return p.commit(func(batch *pebble.Batch) error {
		return setJSON(batch, prefixPolicy+policy.SeriesID, policy)
	})
}

func (p *PebbleStore) GetPolicy(seriesID string) (*SeriesPolicy, error) {
	var policy SeriesPolicy
	if err := p.getJSON(prefixPolicy+seriesID, &policy); err != nil {
		return nil, err
	}
	return &policy, nil
}

func (p *PebbleStore) ListPolicies() ([]SeriesPolicy, error) {
	var list []SeriesPolicy
	err := p.scanPrefix(prefixPolicy, false, func(_, value []byte) (bool, error) {
		var policy SeriesPolicy
		if err := json.Unmarshal(value, &policy); err != nil {
			return false, err
		}
		list = append(list, policy)
		return true, nil
	})
	return list, err
}

// Volume operations

func volumeSeriesKey(v *Volume) []byte {
	return []byte(prefixVolumeSeries + v.SeriesID + ":" + v.ID)
}

func volumeHashKey(v *Volume) []byte {
	return []byte(prefixVolumeHash + v.FileHash + ":" + v.ID)
}

func putVolumeKeys(batch *pebble.Batch, v *Volume) error {
	if err := setJSON(batch, prefixVolume+v.ID, v); err != nil {
		return err
	}
	if err := batch.Set(volumeSeriesKey(v), []byte(v.ID), nil); err != nil {
		return err
	}
	if v.FileHash != "" {
		return batch.Set(volumeHashKey(v), []byte(v.ID), nil)
	}
	return nil
}

func deleteVolumeKeys(batch *pebble.Batch, v *Volume) error {
	if err := batch.Delete([]byte(prefixVolume+v.ID), nil); err != nil {
		return err
	}
	if err := batch.Delete(volumeSeriesKey(v), nil); err != nil {
		return err
	}
	if v.FileHash != "" {
		return batch.Delete(volumeHashKey(v), nil)
	}
	return nil
}

func (p *PebbleStore) CreateVolume(volume *Volume) (*Volume, error) {
	created := *volume
	if err := prepareVolume(&created, p.now()); err != nil {
		return nil, err
	}
	if err := p.commit(func(batch *pebble.Batch) error { return putVolumeKeys(batch, &created) }); err != nil {
		return nil, fmt.Errorf("failed to store volume: %w", err)
	}
	return &created, nil
}

func (p *PebbleStore) GetVolumeByID(id string) (*Volume, error) {
	var volume Volume
	if err := p.getJSON(prefixVolume+id, &volume); err != nil {
		return nil, err
	}
	return &volume, nil
}

func (p *PebbleStore) GetVolumeByHash(hash string) (*Volume, error) {
	if hash == "" {
		return nil, ErrNotFound
	}
	var id string
	err := p.scanPrefix(prefixVolumeHash+hash+":", false, func(_, value []byte) (bool, error) {
		id = string(value)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrNotFound
	}
	return p.GetVolumeByID(id)
}

func (p *PebbleStore) ListVolumesBySeries(seriesID string) ([]Volume, error) {
	var ids []string
	err := p.scanPrefix(prefixVolumeSeries+seriesID+":", false, func(_, value []byte) (bool, error) {
		ids = append(ids, string(value))
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	list := make([]Volume, 0, len(ids))
	for _, id := range ids {
		volume, err := p.GetVolumeByID(id)
		if err != nil {
			return nil, err
		}
		list = append(list, *volume)
	}
	sortVolumes(list)
	return list, nil
}

// sortVolumes orders by volume number, then chapter, then creation.
func sortVolumes(list []Volume) {
	key := func(n *int) int {
		if n == nil {
			return 0
		}
		return *n
	}
	chapter := func(v *Volume) int {
		if v.ChapterNumber != nil {
			return *v.ChapterNumber
		}
		return key(v.ChapterStart)
	}
	sort.SliceStable(list, func(i, j int) bool {
		a, b := &list[i], &list[j]
		if key(a.VolumeNumber) != key(b.VolumeNumber) {
			return key(a.VolumeNumber) < key(b.VolumeNumber)
		}
		if chapter(a) != chapter(b) {
			return chapter(a) < chapter(b)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

func (p *PebbleStore) ReassignVolumes(fromSeriesID, toSeriesID string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	volumes, err := p.ListVolumesBySeries(fromSeriesID)
	if err != nil {
		return 0, err
	}
	if len(volumes) == 0 {
		return 0, nil
	}

	err = p.commit(func(batch *pebble.Batch) error {
		for i := range volumes {
			v := volumes[i]
			if err := batch.Delete(volumeSeriesKey(&v), nil); err != nil {
				return err
			}
			v.SeriesID = toSeriesID
			if err := putVolumeKeys(batch, &v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to reassign volumes: %w", err)
	}
	return len(volumes), nil
}

func (p *PebbleStore) UpdateVolumeProgress(id string, currentPage int) (*Volume, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	volume, err := p.GetVolumeByID(id)
	if err != nil {
		return nil, err
	}
	applyProgress(volume, currentPage, p.now())
	if err := p.commit(func(batch *pebble.Batch) error {
		return setJSON(batch, prefixVolume+volume.ID, volume)
	}); err != nil {
		return nil, fmt.Errorf("failed to update progress: %w", err)
	}
	return volume, nil
}

func (p *PebbleStore) GetRecentlyRead(limit int) ([]Volume, error) {
	if limit <= 0 {
		limit = 20
	}
	var list []Volume
	err := p.scanPrefix(prefixVolume, false, func(_, value []byte) (bool, error) {
		var volume Volume
		if err := json.Unmarshal(value, &volume); err != nil {
			return false, err
		}
		if volume.LastReadAt != nil {
			list = append(list, volume)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].LastReadAt.After(*list[j].LastReadAt) })
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (p *PebbleStore) DeleteVolume(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	volume, err := p.GetVolumeByID(id)
	if err != nil {
		return err
	}
	return p.commit(func(batch *pebble.Batch) error { return deleteVolumeKeys(batch, volume) })
}

// Matching log operations

func (p *PebbleStore) CreateMatchingLog(entry *MatchingLog) error {
	if entry.ID == "" {
		entry.ID = NewID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = p.now()
	}
	return p.commit(func(batch *pebble.Batch) error {
		return setJSON(batch, prefixMatchLog+entry.ID, entry)
	})
}

func (p *PebbleStore) ListMatchingLogs(limit int) ([]MatchingLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var list []MatchingLog
	err := p.scanPrefix(prefixMatchLog, true, func(_, value []byte) (bool, error) {
		var entry MatchingLog
		if err := json.Unmarshal(value, &entry); err != nil {
			return false, err
		}
		list = append(list, entry)
		return len(list) < limit, nil
	})
	return list, err
}
