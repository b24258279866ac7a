package models

import "time"

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// ProbeResult is the in-cycle view of one registry member after probing it.
// Resource fields stay nil when the node did not report them.
type ProbeResult struct {
	Address           string `json:"address"`
	Pubkey            string `json:"pubkey,omitempty"`
	Network           string `json:"network"`
	RegistryVersion   string `json:"registryVersion,omitempty"`
	LastSeenTimestamp int64  `json:"lastSeenTimestamp,omitempty"`
	Status            string `json:"status"`

	Version       string `json:"version,omitempty"`
	VersionStatus string `json:"versionStatus,omitempty"`
	LatencyMs     int64  `json:"latencyMs,omitempty"`

	CPU             *float64 `json:"cpu,omitempty"`
	RAM             *float64 `json:"ram,omitempty"`
	RAMUsed         *int64   `json:"ramUsed,omitempty"`
	RAMTotal        *int64   `json:"ramTotal,omitempty"`
	Storage         *int64   `json:"storage,omitempty"`
	BytesTotal      *int64   `json:"bytesTotal,omitempty"`
	Uptime          *int64   `json:"uptime,omitempty"`
	ActiveStreams   *int64   `json:"activeStreams,omitempty"`
	PacketsReceived *int64   `json:"packetsReceived,omitempty"`
	PacketsSent     *int64   `json:"packetsSent,omitempty"`
	PeersCount      *int     `json:"peersCount,omitempty"`

	Country string  `json:"country,omitempty"`
	City    string  `json:"city,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty"`
}

func (r ProbeResult) Online() bool {
	return r.Status == StatusOnline
}

// HistoryRecord converts an online result into its persisted form.
func (r ProbeResult) HistoryRecord(ts time.Time) NodeHistoryRecord {
	return NodeHistoryRecord{
		Address:         r.Address,
		Pubkey:          r.Pubkey,
		Network:         r.Network,
		RegistryVersion: r.RegistryVersion,
		Version:         r.Version,
		Timestamp:       ts,
		Status:          r.Status,
		CPU:             r.CPU,
		RAM:             r.RAM,
		RAMUsed:         r.RAMUsed,
		RAMTotal:        r.RAMTotal,
		Storage:         r.Storage,
		Uptime:          r.Uptime,
		ActiveStreams:   r.ActiveStreams,
		PacketsReceived: r.PacketsReceived,
		PacketsSent:     r.PacketsSent,
		PeersCount:      r.PeersCount,
		Country:         r.Country,
		City:            r.City,
	}
}
