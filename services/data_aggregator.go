package services

import (
	"math"
	"strings"
	"time"

	"xandpulse/models"
)

// AggregateNetwork reduces one cycle's probe results for a network into a snapshot.
// Resource aggregates cover online nodes that reported the field; the version
// distribution covers every registry entry that declared a version.
func AggregateNetwork(network string, results []models.ProbeResult, registry *models.PodsResponse, ts time.Time) models.NetworkSnapshot {
	snap := models.NetworkSnapshot{
		Network:             network,
		Timestamp:           ts,
		TotalPods:           registry.Count(),
		SampledCount:        len(results),
		VersionDistribution: make(map[string]int),
	}

	if registry != nil {
		for _, pod := range registry.Pods {
			if v := strings.TrimSpace(pod.Version); v != "" {
				snap.VersionDistribution[v]++
			}
		}
	}

	var cpu, ram, uptime mean
	for _, r := range results {
		if !r.Online() {
			snap.OfflineNodes++
			continue
		}
		snap.OnlineNodes++

		snap.TotalStorage += deref(r.Storage)
		snap.TotalStreams += deref(r.ActiveStreams)
		snap.TotalBytesTransferred += deref(r.BytesTotal)

		cpu.addFloat(r.CPU)
		ram.addFloat(r.RAM)
		uptime.addInt(r.Uptime)
	}

	snap.OnlineRatio = onlineRatio(snap.OnlineNodes, snap.SampledCount)
	snap.AvgCPU = cpu.value()
	snap.AvgRAM = ram.value()
	snap.AvgUptime = uptime.value()

	return snap
}

func onlineRatio(online, sampled int) int {
	if sampled == 0 {
		return 0
	}
	return int(math.Round(float64(online) / float64(sampled) * 100))
}

// mean skips nil samples and is 0 when empty.
type mean struct {
	sum   float64
	count int
}

func (m *mean) addFloat(v *float64) {
	if v == nil || math.IsNaN(*v) {
		return
	}
	m.sum += *v
	m.count++
}

func (m *mean) addInt(v *int64) {
	if v == nil {
		return
	}
	m.sum += float64(*v)
	m.count++
}

func (m *mean) value() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
