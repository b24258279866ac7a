package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xandpulse/models"
)

func TestCacheService_InMemory(t *testing.T) {
	cache := memoryCache()
	defer cache.Stop()

	assert.Equal(t, CacheModeInMemory, cache.GetCacheMode())

	_, ok := cache.GetLatestSnapshot("devnet")
	assert.False(t, ok)

	snap := &models.NetworkSnapshot{Network: "devnet", OnlineNodes: 3, VersionDistribution: map[string]int{"0.8.0": 3}}
	require.NoError(t, cache.SetLatestSnapshot(snap))
	require.NoError(t, cache.SetNetworkNodes("devnet", []models.ProbeResult{{Address: "a", CPU: f64(1.5)}}))

	got, ok := cache.GetLatestSnapshot("devnet")
	require.True(t, ok)
	assert.Equal(t, 3, got.OnlineNodes)
	assert.Equal(t, 3, got.VersionDistribution["0.8.0"])

	nodes, ok := cache.GetNetworkNodes("devnet")
	require.True(t, ok)
	require.Len(t, nodes, 1)
	assert.Equal(t, 1.5, *nodes[0].CPU)

	assert.Equal(t, 2, cache.GetCacheStats()["in_memory_keys"])

	require.NoError(t, cache.ClearCache())
	_, ok = cache.GetLatestSnapshot("devnet")
	assert.False(t, ok)
}

func TestCacheService_Expiry(t *testing.T) {
	cache := memoryCache()
	defer cache.Stop()

	require.NoError(t, cache.Set("k", "v", 10*time.Millisecond))

	var v string
	assert.True(t, cache.Get("k", &v))
	assert.Equal(t, "v", v)

	time.Sleep(20 * time.Millisecond)
	assert.False(t, cache.Get("k", &v))
}
