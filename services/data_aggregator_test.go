package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"xandpulse/models"
)

func TestAggregateNetwork(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	registry := &models.PodsResponse{
		Pods: []models.Pod{
			{Address: "a", Version: "0.8.0"},
			{Address: "b", Version: "0.8.0"},
			{Address: "c", Version: ""},
		},
		TotalCount: 2,
	}
	results := []models.ProbeResult{
		{Address: "a", Status: models.StatusOnline, CPU: f64(10), RAM: f64(50), Storage: i64(100), BytesTotal: i64(7), Uptime: i64(60), ActiveStreams: i64(2)},
		{Address: "b", Status: models.StatusOnline, CPU: f64(30), Storage: i64(300), ActiveStreams: i64(1)},
		{Address: "c", Status: models.StatusOffline},
	}

	snap := AggregateNetwork("devnet", results, registry, ts)

	assert.Equal(t, "devnet", snap.Network)
	assert.Equal(t, ts, snap.Timestamp)
	assert.Equal(t, 3, snap.TotalPods, "list longer than reported total")
	assert.Equal(t, 3, snap.SampledCount)
	assert.Equal(t, 2, snap.OnlineNodes)
	assert.Equal(t, 1, snap.OfflineNodes)
	assert.Equal(t, 67, snap.OnlineRatio)
	assert.Equal(t, int64(400), snap.TotalStorage)
	assert.Equal(t, int64(3), snap.TotalStreams)
	assert.Equal(t, int64(7), snap.TotalBytesTransferred)
	assert.InDelta(t, 20.0, snap.AvgCPU, 1e-9)
	assert.InDelta(t, 50.0, snap.AvgRAM, 1e-9, "nil samples are skipped")
	assert.InDelta(t, 60.0, snap.AvgUptime, 1e-9)
	assert.Equal(t, map[string]int{"0.8.0": 2}, snap.VersionDistribution)
}

func TestAggregateNetwork_BlankVersions(t *testing.T) {
	registry := &models.PodsResponse{Pods: []models.Pod{
		{Address: "a", Version: "  "},
		{Address: "b", Version: "\t"},
		{Address: "c", Version: " 0.8.1 "},
		{Address: "d", Version: "0.8.1"},
	}}

	snap := AggregateNetwork("devnet", nil, registry, time.Now())

	assert.Equal(t, map[string]int{"0.8.1": 2}, snap.VersionDistribution)
}

func TestAggregateNetwork_Empty(t *testing.T) {
	snap := AggregateNetwork("devnet", nil, &models.PodsResponse{TotalCount: 12}, time.Now())

	assert.Equal(t, 12, snap.TotalPods)
	assert.Zero(t, snap.SampledCount)
	assert.Zero(t, snap.OnlineRatio)
	assert.Zero(t, snap.AvgCPU)
	assert.NotNil(t, snap.VersionDistribution)
	assert.Empty(t, snap.VersionDistribution)
}

func TestAggregateNetwork_AllOffline(t *testing.T) {
	results := []models.ProbeResult{
		{Address: "a", Status: models.StatusOffline},
		{Address: "b", Status: models.StatusOffline},
	}
	snap := AggregateNetwork("devnet", results, &models.PodsResponse{}, time.Now())

	assert.Zero(t, snap.OnlineNodes)
	assert.Equal(t, 2, snap.OfflineNodes)
	assert.Zero(t, snap.OnlineRatio)
	assert.Zero(t, snap.AvgCPU)
	assert.Zero(t, snap.AvgRAM)
	assert.Zero(t, snap.TotalStorage)
}

func TestOnlineRatio(t *testing.T) {
	assert.Equal(t, 0, onlineRatio(0, 0))
	assert.Equal(t, 100, onlineRatio(5, 5))
	assert.Equal(t, 33, onlineRatio(1, 3))
	assert.Equal(t, 50, onlineRatio(1, 2))
}
