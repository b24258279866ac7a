package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"xandpulse/config"
	"xandpulse/models"
)

var errUnreachable = errors.New("unreachable")

func i64(v int64) *int64 { return &v }

func f64(v float64) *float64 { return &v }

// fakeNode scripts one node's answers. A nil response means the call fails;
// hang blocks every call until the context ends.
type fakeNode struct {
	version *models.VersionResponse
	stats   *models.StatsResponse
	pods    *models.PodsResponse
	hang    bool
}

type fakeRPC struct {
	nodes map[string]fakeNode

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
}

func (f *fakeRPC) enter(ctx context.Context, address string) (fakeNode, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	node, ok := f.nodes[address]
	if !ok {
		return fakeNode{}, errUnreachable
	}
	if node.hang {
		<-ctx.Done()
		return fakeNode{}, ctx.Err()
	}
	// Small pause so concurrent calls overlap.
	time.Sleep(5 * time.Millisecond)
	return node, nil
}

func (f *fakeRPC) GetVersion(ctx context.Context, address string) (*models.VersionResponse, error) {
	node, err := f.enter(ctx, address)
	if err != nil || node.version == nil {
		return nil, errUnreachable
	}
	return node.version, nil
}

func (f *fakeRPC) GetStats(ctx context.Context, address string) (*models.StatsResponse, error) {
	node, err := f.enter(ctx, address)
	if err != nil || node.stats == nil {
		return nil, errUnreachable
	}
	return node.stats, nil
}

func (f *fakeRPC) GetPods(ctx context.Context, address string) (*models.PodsResponse, error) {
	node, err := f.enter(ctx, address)
	if err != nil || node.pods == nil {
		return nil, errUnreachable
	}
	return node.pods, nil
}

type fakeRegistry struct {
	members map[string]*models.PodsResponse
}

func (f *fakeRegistry) FetchMembers(_ context.Context, network config.NetworkConfig) (*models.PodsResponse, error) {
	pods, ok := f.members[network.Name]
	if !ok {
		return nil, ErrRegistryUnavailable
	}
	return pods, nil
}

type fakeStore struct {
	mu        sync.Mutex
	connected bool
	failReads bool

	snapshots []models.NetworkSnapshot
	history   []models.NodeHistoryRecord
	dumps     []models.RegistryDump

	lastStart time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{connected: true}
}

func (f *fakeStore) Connected() bool { return f.connected }

func (f *fakeStore) SaveNetworkSnapshot(_ context.Context, s *models.NetworkSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, *s)
	return nil
}

func (f *fakeStore) SaveNodeHistory(_ context.Context, records []models.NodeHistoryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, records...)
	return nil
}

func (f *fakeStore) SaveRegistryDump(_ context.Context, dump *models.RegistryDump) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dumps = append(f.dumps, *dump)
	return nil
}

func (f *fakeStore) NetworkSnapshotsSince(_ context.Context, network string, start time.Time) ([]models.NetworkSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastStart = start
	if f.failReads {
		return nil, errUnreachable
	}
	out := []models.NetworkSnapshot{}
	for _, s := range f.snapshots {
		if s.Network == network && !s.Timestamp.Before(start) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) NodeHistorySince(_ context.Context, address string, start time.Time) ([]models.NodeHistoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastStart = start
	if f.failReads {
		return nil, errUnreachable
	}
	out := []models.NodeHistoryRecord{}
	for _, r := range f.history {
		if r.Address == address && !r.Timestamp.Before(start) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) LatestNetworkSnapshot(_ context.Context, network string) (*models.NetworkSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads {
		return nil, errUnreachable
	}
	var latest *models.NetworkSnapshot
	for i := range f.snapshots {
		s := f.snapshots[i]
		if s.Network == network && (latest == nil || s.Timestamp.After(latest.Timestamp)) {
			latest = &s
		}
	}
	return latest, nil
}

func (f *fakeStore) AggregateSnapshotStats(_ context.Context, start time.Time) (*models.AggregatedStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastStart = start
	if f.failReads {
		return nil, errUnreachable
	}
	stats := &models.AggregatedStats{}
	for _, s := range f.snapshots {
		if s.Timestamp.Before(start) {
			continue
		}
		if stats.SnapshotCount == 0 || s.OnlineNodes < stats.MinOnline {
			stats.MinOnline = s.OnlineNodes
		}
		if s.OnlineNodes > stats.MaxOnline {
			stats.MaxOnline = s.OnlineNodes
		}
		stats.AvgOnline += float64(s.OnlineNodes)
		stats.SnapshotCount++
	}
	if stats.SnapshotCount > 0 {
		stats.AvgOnline /= float64(stats.SnapshotCount)
	}
	return stats, nil
}

type sentNotification struct {
	channel string
	event   models.TransitionEvent
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []sentNotification
	fail  map[string]bool
	label string
}

func (f *fakeNotifier) Name() string {
	if f.label == "" {
		return "fake"
	}
	return f.label
}

func (f *fakeNotifier) Notify(_ context.Context, channel string, ev models.TransitionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotification{channel: channel, event: ev})
	if f.fail[channel] {
		return errUnreachable
	}
	return nil
}

func (f *fakeNotifier) channels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, s := range f.sent {
		out = append(out, s.channel)
	}
	return out
}

func memoryCache() *CacheService {
	cfg := config.Default()
	cfg.Redis.Enabled = false
	return NewCacheService(cfg)
}
