package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"xandpulse/models"
)

var (
	ErrInvalidPeriod   = errors.New("invalid period")
	ErrInvalidInterval = errors.New("invalid interval")
)

var supportedPeriods = map[string]time.Duration{
	"1h":  time.Hour,
	"6h":  6 * time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

var supportedIntervals = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"1h":  time.Hour,
	"6h":  6 * time.Hour,
}

func ParsePeriod(s string) (time.Duration, error) {
	d, ok := supportedPeriods[s]
	if !ok {
		return 0, fmt.Errorf("%w %q: want one of 1h, 6h, 24h, 7d, 30d", ErrInvalidPeriod, s)
	}
	return d, nil
}

func ParseInterval(s string) (time.Duration, error) {
	d, ok := supportedIntervals[s]
	if !ok {
		return 0, fmt.Errorf("%w %q: want one of 1m, 5m, 15m, 1h, 6h", ErrInvalidInterval, s)
	}
	return d, nil
}

// HistoryService answers time-series queries over stored snapshots and node
// history. Storage errors are logged and surface as empty results.
type HistoryService struct {
	store    TelemetryStore
	cache    *CacheService
	networks []string
	now      func() time.Time
}

func NewHistoryService(store TelemetryStore, cache *CacheService, networks []string) *HistoryService {
	return &HistoryService{
		store:    store,
		cache:    cache,
		networks: networks,
		now:      time.Now,
	}
}

// GetNetworkHistory returns bucket averages for one network, oldest bucket first.
// The interval is not checked against the period.
func (hs *HistoryService) GetNetworkHistory(ctx context.Context, network, period, interval string) ([]models.NetworkHistoryPoint, error) {
	window, err := ParsePeriod(period)
	if err != nil {
		return nil, err
	}
	bucket, err := ParseInterval(interval)
	if err != nil {
		return nil, err
	}

	snapshots, err := hs.store.NetworkSnapshotsSince(ctx, network, hs.now().Add(-window))
	if err != nil {
		log.Printf("⚠️  Network history query for %s failed: %v", network, err)
		return []models.NetworkHistoryPoint{}, nil
	}

	return BucketSnapshots(snapshots, bucket), nil
}

// GetNodeHistory returns the raw rows for one node address, oldest first.
func (hs *HistoryService) GetNodeHistory(ctx context.Context, address, period string) ([]models.NodeHistoryRecord, error) {
	window, err := ParsePeriod(period)
	if err != nil {
		return nil, err
	}

	records, err := hs.store.NodeHistorySince(ctx, address, hs.now().Add(-window))
	if err != nil {
		log.Printf("⚠️  Node history query for %s failed: %v", address, err)
		return []models.NodeHistoryRecord{}, nil
	}
	if records == nil {
		records = []models.NodeHistoryRecord{}
	}
	return records, nil
}

// GetLatestSnapshots returns the newest snapshot of every configured network
// that has one, preferring the cache over storage.
func (hs *HistoryService) GetLatestSnapshots(ctx context.Context) []models.NetworkSnapshot {
	latest := make([]models.NetworkSnapshot, 0, len(hs.networks))
	for _, network := range hs.networks {
		if hs.cache != nil {
			if snap, ok := hs.cache.GetLatestSnapshot(network); ok {
				latest = append(latest, *snap)
				continue
			}
		}

		snap, err := hs.store.LatestNetworkSnapshot(ctx, network)
		if err != nil {
			log.Printf("⚠️  Latest snapshot query for %s failed: %v", network, err)
			continue
		}
		if snap != nil {
			latest = append(latest, *snap)
		}
	}
	return latest
}

// GetAggregatedStats summarizes all networks' snapshots over period.
func (hs *HistoryService) GetAggregatedStats(ctx context.Context, period string) (*models.AggregatedStats, error) {
	window, err := ParsePeriod(period)
	if err != nil {
		return nil, err
	}

	stats, err := hs.store.AggregateSnapshotStats(ctx, hs.now().Add(-window))
	if err != nil {
		log.Printf("⚠️  Aggregated stats query failed: %v", err)
		stats = &models.AggregatedStats{}
	}
	if stats == nil {
		stats = &models.AggregatedStats{}
	}
	stats.Period = period
	return stats, nil
}

// BucketSnapshots groups snapshots into epoch-aligned buckets of width interval
// and averages every numeric field. The output is sorted by bucket start and
// depends only on the snapshots' timestamps and values.
func BucketSnapshots(snapshots []models.NetworkSnapshot, interval time.Duration) []models.NetworkHistoryPoint {
	points := []models.NetworkHistoryPoint{}
	if len(snapshots) == 0 || interval <= 0 {
		return points
	}

	width := interval.Milliseconds()
	buckets := make(map[int64]*models.NetworkHistoryPoint)

	for _, s := range snapshots {
		ts := s.Timestamp.UnixMilli()
		start := ts - ts%width
		if ts < 0 && ts%width != 0 {
			start -= width
		}

		p, ok := buckets[start]
		if !ok {
			p = &models.NetworkHistoryPoint{BucketStart: time.UnixMilli(start).UTC()}
			buckets[start] = p
		}
		p.Samples++
		p.TotalPods += float64(s.TotalPods)
		p.SampledCount += float64(s.SampledCount)
		p.OnlineNodes += float64(s.OnlineNodes)
		p.OfflineNodes += float64(s.OfflineNodes)
		p.OnlineRatio += float64(s.OnlineRatio)
		p.TotalStorage += float64(s.TotalStorage)
		p.AvgCPU += s.AvgCPU
		p.AvgRAM += s.AvgRAM
		p.AvgUptime += s.AvgUptime
		p.TotalStreams += float64(s.TotalStreams)
		p.TotalBytesTransferred += float64(s.TotalBytesTransferred)
	}

	for _, p := range buckets {
		n := float64(p.Samples)
		p.TotalPods /= n
		p.SampledCount /= n
		p.OnlineNodes /= n
		p.OfflineNodes /= n
		p.OnlineRatio /= n
		p.TotalStorage /= n
		p.AvgCPU /= n
		p.AvgRAM /= n
		p.AvgUptime /= n
		p.TotalStreams /= n
		p.TotalBytesTransferred /= n
		points = append(points, *p)
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].BucketStart.Before(points[j].BucketStart)
	})
	return points
}
