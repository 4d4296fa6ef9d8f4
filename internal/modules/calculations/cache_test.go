package calculations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tst "github.com/BenPfeffer-bot/AssetManagementTracker/internal/testing"
)

type payload struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	db := tst.NewTestDB(t, "calculations")
	return NewCache(db.Conn(), tst.SilentLogger())
}

func TestSetGetRoundtrip(t *testing.T) {
	cache := newTestCache(t)

	in := payload{Name: "frontier", Value: 0.42}
	require.NoError(t, cache.Set("frontier", "abc123", in, time.Hour))

	var out payload
	found, err := cache.Get("frontier", "abc123", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)
}

func TestGetMissingKey(t *testing.T) {
	cache := newTestCache(t)

	var out payload
	found, err := cache.Get("frontier", "nope", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestExpiredEntryIsAbsent(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.Set("frontier", "stale", payload{Name: "old"}, -time.Minute))

	var out payload
	found, err := cache.Get("frontier", "stale", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSetOverwrites(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.Set("frontier", "k", payload{Value: 1}, time.Hour))
	require.NoError(t, cache.Set("frontier", "k", payload{Value: 2}, time.Hour))

	var out payload
	found, err := cache.Get("frontier", "k", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2.0, out.Value)
}

func TestDelete(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.Set("frontier", "k", payload{}, time.Hour))
	require.NoError(t, cache.Delete("frontier", "k"))

	var out payload
	found, err := cache.Get("frontier", "k", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidateCategory(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.Set("frontier", "a", payload{}, time.Hour))
	require.NoError(t, cache.Set("frontier", "b", payload{}, time.Hour))
	require.NoError(t, cache.Set("risk", "a", payload{Value: 7}, time.Hour))

	require.NoError(t, cache.InvalidateCategory("frontier"))

	var out payload
	found, err := cache.Get("frontier", "a", &out)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = cache.Get("risk", "a", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 7.0, out.Value)
}

func TestPurgeExpired(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.Set("frontier", "live", payload{}, time.Hour))
	require.NoError(t, cache.Set("frontier", "dead1", payload{}, -time.Minute))
	require.NoError(t, cache.Set("frontier", "dead2", payload{}, -time.Hour))

	n, err := cache.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var out payload
	found, err := cache.Get("frontier", "live", &out)
	require.NoError(t, err)
	assert.True(t, found)
}
