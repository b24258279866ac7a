package models

import "encoding/json"

// JSON-RPC 2.0 Request
type RPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      int         `json:"id"`
}

// JSON-RPC 2.0 Response
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      int             `json:"id"`
}

// JSON-RPC 2.0 Error
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ============================================
// get-version response
// ============================================
type VersionResponse struct {
	Version string `json:"version"`
}

// ============================================
// get-stats response
// ============================================
// Every counter is a pointer: a field the node leaves out stays unknown instead of
// turning into a zero reading.
type StatsResponse struct {
	// Storage metadata
	TotalBytes   *int64 `json:"total_bytes"`
	TotalPages   *int64 `json:"total_pages"`
	LastUpdated  *int64 `json:"last_updated"`
	FileSize     *int64 `json:"file_size"`
	CurrentIndex *int64 `json:"current_index"`

	// System stats
	CPUPercent      *float64 `json:"cpu_percent"`
	RAMUsed         *int64   `json:"ram_used"`
	RAMTotal        *int64   `json:"ram_total"`
	Uptime          *int64   `json:"uptime"`
	PacketsReceived *int64   `json:"packets_received"`
	PacketsSent     *int64   `json:"packets_sent"`
	ActiveStreams   *int64   `json:"active_streams"`
}

// ============================================
// get-pods response (directory member list and per-node peer list)
// ============================================
type PodsResponse struct {
	Pods       []Pod `json:"pods"`
	TotalCount int   `json:"total_count"`
}

type Pod struct {
	Address           string `json:"address" bson:"address"`
	Pubkey            string `json:"pubkey" bson:"pubkey"`
	Version           string `json:"version" bson:"version"`
	LastSeenTimestamp int64  `json:"last_seen_timestamp" bson:"last_seen_timestamp"`
}

// Count is the larger of the reported total and the list length; directories
// may truncate the list.
func (p *PodsResponse) Count() int {
	if p == nil {
		return 0
	}
	if p.TotalCount > len(p.Pods) {
		return p.TotalCount
	}
	return len(p.Pods)
}
