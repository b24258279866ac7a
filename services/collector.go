package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"xandpulse/config"
	"xandpulse/models"
	"xandpulse/utils"
)

// Collector runs one collection cycle over every configured network.
type Collector struct {
	networks []config.NetworkConfig
	registry RegistrySource
	runner   *BatchRunner
	store    TelemetryStore
	cache    *CacheService
	alerts   *AlertService
	now      func() time.Time
}

func NewCollector(networks []config.NetworkConfig, registry RegistrySource, runner *BatchRunner, store TelemetryStore, cache *CacheService, alerts *AlertService) *Collector {
	return &Collector{
		networks: networks,
		registry: registry,
		runner:   runner,
		store:    store,
		cache:    cache,
		alerts:   alerts,
		now:      time.Now,
	}
}

// RunCycle visits networks one at a time. A failing network is reported in its
// NetworkResult and never stops the cycle.
func (c *Collector) RunCycle(ctx context.Context) models.CycleReport {
	report := models.CycleReport{
		StartedAt: c.now(),
		Networks:  make([]models.NetworkResult, 0, len(c.networks)),
	}
	log.Printf("🔄 Collection cycle started for %d network(s)", len(c.networks))

	for _, network := range c.networks {
		start := time.Now()
		snap, err := c.collectNetwork(ctx, network)

		result := models.NetworkResult{
			Network:    network.Name,
			Snapshot:   snap,
			DurationMs: time.Since(start).Milliseconds(),
		}
		if err != nil {
			result.Error = err.Error()
			log.Printf("❌ %s: %v", network.Name, err)
		}
		report.Networks = append(report.Networks, result)
	}

	report.FinishedAt = c.now()
	report.DurationMs = report.FinishedAt.Sub(report.StartedAt).Milliseconds()
	log.Printf("✓ Collection cycle finished in %v", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	return report
}

func (c *Collector) collectNetwork(ctx context.Context, network config.NetworkConfig) (snap *models.NetworkSnapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			snap = nil
			err = fmt.Errorf("panic while collecting: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cycle cancelled: %w", err)
	}

	registry, err := c.registry.FetchMembers(ctx, network)
	if err != nil {
		return nil, err
	}

	results := c.runner.Run(ctx, network.Name, registry.Pods, func(p models.BatchProgress) {
		log.Printf("   %s: group %d/%d, %d/%d probed, %d online", p.Network, p.Batch, p.Batches, p.Processed, p.Total, p.Online)
	})
	// Nodes cut short by cancellation look offline, so nothing from this
	// network is kept.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cycle cancelled mid-batch: %w", err)
	}
	annotateVersionStatus(results)

	ts := c.now()
	s := AggregateNetwork(network.Name, results, registry, ts)
	snap = &s

	log.Printf("📊 %s: %d/%d online (%d%%), %d registered, avg cpu %.1f%%, avg ram %.1f%%",
		network.Name, s.OnlineNodes, s.SampledCount, s.OnlineRatio, s.TotalPods, s.AvgCPU, s.AvgRAM)

	if c.alerts != nil {
		c.alerts.Observe(ctx, results)
	}

	if err := c.persist(ctx, snap, results, registry); err != nil {
		return snap, err
	}

	if c.cache != nil {
		if err := c.cache.SetLatestSnapshot(snap); err != nil {
			log.Printf("⚠️  %s: caching snapshot failed: %v", network.Name, err)
		}
		if err := c.cache.SetNetworkNodes(network.Name, results); err != nil {
			log.Printf("⚠️  %s: caching node list failed: %v", network.Name, err)
		}
	}

	return snap, nil
}

// persist writes the snapshot, then the history batch, then the registry dump.
// The writes are independent; a failure in one does not undo the others.
func (c *Collector) persist(ctx context.Context, snap *models.NetworkSnapshot, results []models.ProbeResult, registry *models.PodsResponse) error {
	if !c.store.Connected() {
		return nil
	}

	var firstErr error
	note := func(what string, err error) {
		if err == nil {
			return
		}
		log.Printf("⚠️  %s: saving %s failed: %v", snap.Network, what, err)
		if firstErr == nil {
			firstErr = fmt.Errorf("save %s: %w", what, err)
		}
	}

	note("snapshot", c.store.SaveNetworkSnapshot(ctx, snap))

	records := make([]models.NodeHistoryRecord, 0, snap.OnlineNodes)
	for _, r := range results {
		if r.Online() {
			records = append(records, r.HistoryRecord(snap.Timestamp))
		}
	}
	note("node history", c.store.SaveNodeHistory(ctx, records))

	note("registry dump", c.store.SaveRegistryDump(ctx, &models.RegistryDump{
		Network:    snap.Network,
		Timestamp:  snap.Timestamp,
		TotalCount: registry.TotalCount,
		Pods:       registry.Pods,
	}))

	return firstErr
}

// annotateVersionStatus marks each online node against the newest version
// reported on its network.
func annotateVersionStatus(results []models.ProbeResult) {
	versions := make([]string, 0, len(results))
	for _, r := range results {
		if r.Version != "" {
			versions = append(versions, r.Version)
		}
	}
	latest := utils.LatestVersion(versions)

	for i := range results {
		if results[i].Online() {
			results[i].VersionStatus = utils.CheckVersionStatus(results[i].Version, latest)
		}
	}
}
