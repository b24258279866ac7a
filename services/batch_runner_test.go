package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xandpulse/models"
)

func podsFor(n int) ([]models.Pod, map[string]fakeNode) {
	pods := make([]models.Pod, n)
	nodes := make(map[string]fakeNode, n)
	for i := range pods {
		addr := fmt.Sprintf("10.0.0.%d:9001", i)
		pods[i] = models.Pod{Address: addr, Pubkey: fmt.Sprintf("pk%d", i)}
		if i%2 == 0 {
			nodes[addr] = fakeNode{version: &models.VersionResponse{Version: "0.8.0"}}
		}
	}
	return pods, nodes
}

func TestBatchRunner_GroupsAndOrder(t *testing.T) {
	pods, nodes := podsFor(23)
	rpc := &fakeRPC{nodes: nodes}
	runner := NewBatchRunner(NewProber(rpc, time.Second, nil), 5)

	var progress []models.BatchProgress
	results := runner.Run(context.Background(), "devnet", pods, func(p models.BatchProgress) {
		progress = append(progress, p)
	})

	require.Len(t, results, 23)
	for i, r := range results {
		assert.Equal(t, pods[i].Address, r.Address, "results keep input order")
		assert.Equal(t, i%2 == 0, r.Online())
	}

	require.Len(t, progress, 5, "ceil(23/5) groups")
	last := progress[len(progress)-1]
	assert.Equal(t, 5, last.Batch)
	assert.Equal(t, 23, last.Processed)
	assert.Equal(t, 23, last.Total)
	assert.Equal(t, 12, last.Online)

	// three calls per probe, at most batchSize probes at a time
	assert.LessOrEqual(t, int(rpc.maxInFlight.Load()), 5*3)
	assert.Equal(t, int32(23*3), rpc.calls.Load())
}

func TestBatchRunner_Empty(t *testing.T) {
	runner := NewBatchRunner(NewProber(&fakeRPC{}, time.Second, nil), 10)

	called := false
	results := runner.Run(context.Background(), "devnet", nil, func(models.BatchProgress) { called = true })

	assert.Empty(t, results)
	assert.False(t, called)
}

func TestBatchRunner_HangingNodesBounded(t *testing.T) {
	pods := make([]models.Pod, 6)
	nodes := map[string]fakeNode{}
	for i := range pods {
		pods[i] = models.Pod{Address: fmt.Sprintf("h%d", i)}
		nodes[pods[i].Address] = fakeNode{hang: true}
	}
	timeout := 50 * time.Millisecond
	runner := NewBatchRunner(NewProber(&fakeRPC{nodes: nodes}, timeout, nil), 3)

	start := time.Now()
	results := runner.Run(context.Background(), "devnet", pods, nil)
	elapsed := time.Since(start)

	require.Len(t, results, 6)
	for _, r := range results {
		assert.False(t, r.Online())
	}
	// two groups, each bounded by one probe timeout
	assert.Less(t, elapsed, 2*timeout+400*time.Millisecond)
}

func TestBatchRunner_CancelledStopsNewGroups(t *testing.T) {
	pods, nodes := podsFor(10)
	runner := NewBatchRunner(NewProber(&fakeRPC{nodes: nodes}, time.Second, nil), 2)

	ctx, cancel := context.WithCancel(context.Background())
	results := runner.Run(ctx, "devnet", pods, func(p models.BatchProgress) {
		if p.Batch == 2 {
			cancel()
		}
	})

	assert.Len(t, results, 4)
}
