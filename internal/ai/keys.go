// file: internal/ai/keys.go
// version: 1.0.0
// guid: 0b7e2d4f-3a1c-4e9b-8d6f-5c4b3a2e1d07

package ai

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNoKeys is returned when no usable API key is configured.
	ErrNoKeys = errors.New("no oracle API keys configured")
	// ErrAllKeysCoolingDown is returned when every key is rate limited.
	ErrAllKeysCoolingDown = errors.New("all oracle API keys are cooling down")
)

// KeyRotator hands out API keys round-robin and parks keys that hit a rate
// limit for a cooldown period. Keys rejected as invalid are never reused.
type KeyRotator struct {
	mu           sync.Mutex
	keys         []string
	current      int
	cooldown     time.Duration
	coolingSince map[int]time.Time
	invalid      map[int]bool
	clock        clockwork.Clock
}

// NewKeyRotator creates a rotator. A nil clock means the real clock.
func NewKeyRotator(keys []string, cooldown time.Duration, clock clockwork.Clock) *KeyRotator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	filtered := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			filtered = append(filtered, k)
		}
	}
	return &KeyRotator{
		keys:         filtered,
		cooldown:     cooldown,
		coolingSince: make(map[int]time.Time),
		invalid:      make(map[int]bool),
		clock:        clock,
	}
}

// Len returns the number of configured keys.
func (r *KeyRotator) Len() int {
	return len(r.keys)
}

// Current returns the first usable key starting at the current position.
// Expired cooldowns are cleared on the way.
func (r *KeyRotator) Current() (int, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.keys) == 0 || len(r.invalid) == len(r.keys) {
		return -1, "", ErrNoKeys
	}

	now := r.clock.Now()
	for i := range len(r.keys) {
		idx := (r.current + i) % len(r.keys)
		if r.invalid[idx] {
			continue
		}
		if since, ok := r.coolingSince[idx]; ok {
			if now.Sub(since) < r.cooldown {
				continue
			}
			delete(r.coolingSince, idx)
		}
		r.current = idx
		return idx, r.keys[idx], nil
	}
	return -1, "", fmt.Errorf("%w: next key available in %s", ErrAllKeysCoolingDown, r.nextAvailableLocked(now))
}

// MarkRateLimited parks key idx for the cooldown and moves to the next key.
func (r *KeyRotator) MarkRateLimited(idx int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx < 0 || idx >= len(r.keys) {
		return
	}
	r.coolingSince[idx] = r.clock.Now()
	r.current = (idx + 1) % len(r.keys)
	log.Warn().Int("key", idx+1).Dur("cooldown", r.cooldown).Msg("oracle key rate limited, rotating")
}

// MarkInvalid removes key idx from rotation.
func (r *KeyRotator) MarkInvalid(idx int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx < 0 || idx >= len(r.keys) {
		return
	}
	r.invalid[idx] = true
	r.current = (idx + 1) % len(r.keys)
	log.Error().Int("key", idx+1).Msg("oracle key rejected, removed from rotation")
}

// NextAvailableIn reports how long until some key leaves its cooldown.
// Zero means a key is usable now.
func (r *KeyRotator) NextAvailableIn() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nextAvailableLocked(r.clock.Now())
}

func (r *KeyRotator) nextAvailableLocked(now time.Time) time.Duration {
	var best time.Duration = -1
	for idx := range r.keys {
		if r.invalid[idx] {
			continue
		}
		since, ok := r.coolingSince[idx]
		if !ok {
			return 0
		}
		remaining := r.cooldown - now.Sub(since)
		if remaining < 0 {
			remaining = 0
		}
		if best < 0 || remaining < best {
			best = remaining
		}
	}
	if best < 0 {
		return 0
	}
	return best
}
