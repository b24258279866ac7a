package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"xandpulse/models"
	"xandpulse/utils"
)

// Prober classifies one registry member from three independent pRPC calls.
type Prober struct {
	rpc     NodeRPC
	timeout time.Duration
	geo     *utils.GeoResolver
}

func NewProber(rpc NodeRPC, timeout time.Duration, geo *utils.GeoResolver) *Prober {
	return &Prober{
		rpc:     rpc,
		timeout: timeout,
		geo:     geo,
	}
}

// Probe never returns an error: a failed call only leaves its fields nil.
// The node is online iff get-version or get-stats answered; get-pods does not
// count towards liveness.
func (p *Prober) Probe(ctx context.Context, network string, pod models.Pod) models.ProbeResult {
	var (
		ver   *models.VersionResponse
		stats *models.StatsResponse
		peers *models.PodsResponse

		mu      sync.Mutex
		fastest time.Duration
	)

	start := time.Now()
	record := func() {
		mu.Lock()
		if d := time.Since(start); fastest == 0 || d < fastest {
			fastest = d
		}
		mu.Unlock()
	}

	// Plain Group: one call failing must not cancel its siblings.
	var g errgroup.Group
	g.Go(func() error {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		if v, err := p.rpc.GetVersion(callCtx, pod.Address); err == nil {
			ver = v
			record()
		}
		return nil
	})
	g.Go(func() error {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		if s, err := p.rpc.GetStats(callCtx, pod.Address); err == nil {
			stats = s
			record()
		}
		return nil
	})
	g.Go(func() error {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		if pr, err := p.rpc.GetPods(callCtx, pod.Address); err == nil {
			peers = pr
		}
		return nil
	})
	_ = g.Wait()

	result := models.ProbeResult{
		Address:           pod.Address,
		Pubkey:            pod.Pubkey,
		Network:           network,
		RegistryVersion:   pod.Version,
		LastSeenTimestamp: pod.LastSeenTimestamp,
		Status:            models.StatusOffline,
	}

	if ver == nil && stats == nil {
		return result
	}

	result.Status = models.StatusOnline
	result.LatencyMs = fastest.Milliseconds()

	if ver != nil {
		result.Version = ver.Version
	}
	if stats != nil {
		applyStats(&result, stats)
	}
	if peers != nil {
		count := peers.Count()
		result.PeersCount = &count
	}

	if loc, ok := p.geo.Lookup(pod.Address); ok {
		result.Country = loc.Country
		result.City = loc.City
		result.Lat = loc.Lat
		result.Lon = loc.Lon
	}

	return result
}

func applyStats(r *models.ProbeResult, s *models.StatsResponse) {
	r.CPU = s.CPUPercent
	r.RAMUsed = s.RAMUsed
	r.RAMTotal = s.RAMTotal
	r.RAM = ramPercent(s.RAMUsed, s.RAMTotal)
	r.Storage = s.FileSize
	r.BytesTotal = s.TotalBytes
	r.Uptime = s.Uptime
	r.ActiveStreams = s.ActiveStreams
	r.PacketsReceived = s.PacketsReceived
	r.PacketsSent = s.PacketsSent
}

// ramPercent is nil unless both values are present and total is positive.
func ramPercent(used, total *int64) *float64 {
	if used == nil || total == nil || *total <= 0 {
		return nil
	}
	pct := float64(*used) / float64(*total) * 100
	return &pct
}
