package models

import "time"

// NetworkSnapshot is the aggregated state of one network for one collection cycle.
type NetworkSnapshot struct {
	Network               string         `json:"network" bson:"network"`
	Timestamp             time.Time      `json:"timestamp" bson:"timestamp"`
	TotalPods             int            `json:"totalPods" bson:"totalPods"`
	SampledCount          int            `json:"sampledCount" bson:"sampledCount"`
	OnlineNodes           int            `json:"onlineNodes" bson:"onlineNodes"`
	OfflineNodes          int            `json:"offlineNodes" bson:"offlineNodes"`
	OnlineRatio           int            `json:"onlineRatio" bson:"onlineRatio"`
	TotalStorage          int64          `json:"totalStorage" bson:"totalStorage"`
	AvgCPU                float64        `json:"avgCpu" bson:"avgCpu"`
	AvgRAM                float64        `json:"avgRam" bson:"avgRam"`
	AvgUptime             float64        `json:"avgUptime" bson:"avgUptime"`
	TotalStreams          int64          `json:"totalStreams" bson:"totalStreams"`
	TotalBytesTransferred int64          `json:"totalBytesTransferred" bson:"totalBytesTransferred"`
	VersionDistribution   map[string]int `json:"versionDistribution" bson:"versionDistribution"`
}

// NodeHistoryRecord is one online node's measurement for one cycle.
type NodeHistoryRecord struct {
	Address         string    `json:"address" bson:"address"`
	Pubkey          string    `json:"pubkey" bson:"pubkey"`
	Network         string    `json:"network" bson:"network"`
	RegistryVersion string    `json:"registryVersion" bson:"registryVersion"`
	Version         string    `json:"version" bson:"version"`
	Timestamp       time.Time `json:"timestamp" bson:"timestamp"`
	Status          string    `json:"status" bson:"status"`

	CPU             *float64 `json:"cpu" bson:"cpu"`
	RAM             *float64 `json:"ram" bson:"ram"`
	RAMUsed         *int64   `json:"ramUsed" bson:"ramUsed"`
	RAMTotal        *int64   `json:"ramTotal" bson:"ramTotal"`
	Storage         *int64   `json:"storage" bson:"storage"`
	Uptime          *int64   `json:"uptime" bson:"uptime"`
	ActiveStreams   *int64   `json:"activeStreams" bson:"activeStreams"`
	PacketsReceived *int64   `json:"packetsReceived" bson:"packetsReceived"`
	PacketsSent     *int64   `json:"packetsSent" bson:"packetsSent"`
	PeersCount      *int     `json:"peersCount" bson:"peersCount"`

	Country string `json:"country,omitempty" bson:"country,omitempty"`
	City    string `json:"city,omitempty" bson:"city,omitempty"`
}

// RegistryDump is the directory member list as seen at one cycle.
type RegistryDump struct {
	Network    string    `json:"network" bson:"network"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
	TotalCount int       `json:"totalCount" bson:"totalCount"`
	Pods       []Pod     `json:"pods" bson:"pods"`
}

// NetworkHistoryPoint is the average of every snapshot that fell into one bucket.
type NetworkHistoryPoint struct {
	BucketStart           time.Time `json:"bucketStart"`
	Samples               int       `json:"samples"`
	TotalPods             float64   `json:"totalPods"`
	SampledCount          float64   `json:"sampledCount"`
	OnlineNodes           float64   `json:"onlineNodes"`
	OfflineNodes          float64   `json:"offlineNodes"`
	OnlineRatio           float64   `json:"onlineRatio"`
	TotalStorage          float64   `json:"totalStorage"`
	AvgCPU                float64   `json:"avgCpu"`
	AvgRAM                float64   `json:"avgRam"`
	AvgUptime             float64   `json:"avgUptime"`
	TotalStreams          float64   `json:"totalStreams"`
	TotalBytesTransferred float64   `json:"totalBytesTransferred"`
}

// AggregatedStats summarizes snapshots of every network over a period.
type AggregatedStats struct {
	Period        string  `json:"period" bson:"-"`
	AvgOnline     float64 `json:"avgOnline" bson:"avgOnline"`
	MinOnline     int     `json:"minOnline" bson:"minOnline"`
	MaxOnline     int     `json:"maxOnline" bson:"maxOnline"`
	AvgCPU        float64 `json:"avgCpu" bson:"avgCpu"`
	AvgRAM        float64 `json:"avgRam" bson:"avgRam"`
	SnapshotCount int     `json:"snapshotCount" bson:"snapshotCount"`
}
