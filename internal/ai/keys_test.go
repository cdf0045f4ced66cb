// file: internal/ai/keys_test.go
// version: 1.0.0
// guid: 8d5c3b2a-1f0e-4d9c-b8a7-6e5f4d3c2b1a

package ai

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyRotator_Empty(t *testing.T) {
	r := NewKeyRotator([]string{"", ""}, time.Minute, clockwork.NewFakeClock())
	assert.Equal(t, 0, r.Len())
	_, _, err := r.Current()
	assert.ErrorIs(t, err, ErrNoKeys)
}

func TestKeyRotator_CooldownAndRecovery(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewKeyRotator([]string{"k1", "k2"}, 90*time.Second, clock)

	idx, key, err := r.Current()
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, "k1", key)

	r.MarkRateLimited(0)
	idx, key, err = r.Current()
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "k2", key)

	clock.Advance(30 * time.Second)
	r.MarkRateLimited(1)
	_, _, err = r.Current()
	assert.ErrorIs(t, err, ErrAllKeysCoolingDown)
	assert.Equal(t, 60*time.Second, r.NextAvailableIn())

	clock.Advance(60 * time.Second)
	idx, key, err = r.Current()
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, "k1", key)
	assert.Equal(t, time.Duration(0), r.NextAvailableIn())
}

func TestKeyRotator_InvalidKeysAreSkipped(t *testing.T) {
	r := NewKeyRotator([]string{"k1", "k2"}, time.Minute, clockwork.NewFakeClock())

	r.MarkInvalid(0)
	_, key, err := r.Current()
	require.NoError(t, err)
	assert.Equal(t, "k2", key)

	r.MarkInvalid(1)
	_, _, err = r.Current()
	assert.ErrorIs(t, err, ErrNoKeys)

	// Out of range indexes are ignored.
	r.MarkInvalid(7)
	r.MarkRateLimited(-1)
}
