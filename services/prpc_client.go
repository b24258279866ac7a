package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"xandpulse/config"
	"xandpulse/models"
)

// maxRPCResponseBytes caps how much of one response body is read.
const maxRPCResponseBytes = 4 << 20

// NodeRPC is the per-node pRPC surface the prober needs.
type NodeRPC interface {
	GetVersion(ctx context.Context, address string) (*models.VersionResponse, error)
	GetStats(ctx context.Context, address string) (*models.StatsResponse, error)
	GetPods(ctx context.Context, address string) (*models.PodsResponse, error)
}

type PRPCClient struct {
	port       int
	httpClient *http.Client
}

func NewPRPCClient(cfg *config.Config) *PRPCClient {
	// Deadlines come from the caller's context; the client itself has none.
	return &PRPCClient{
		port: cfg.PRPC.DefaultPort,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
		},
	}
}

// NodeURL maps a registry address (ip:gossipPort) to the node's pRPC endpoint.
func (c *PRPCClient) NodeURL(address string) string {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(c.port)) + "/rpc"
}

// Call posts one JSON-RPC request to url. A non-2xx status, an undecodable body
// and an RPC-level error are all returned as errors.
func (c *PRPCClient) Call(ctx context.Context, url, method string, params interface{}) (*models.RPCResponse, error) {
	reqBody := models.RPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("http error %d from %s %s", resp.StatusCode, method, url)
	}

	var rpcResp models.RPCResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRPCResponseBytes)).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if rpcResp.Error != nil {
		return &rpcResp, fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
		return &rpcResp, fmt.Errorf("empty result from %s %s", method, url)
	}

	return &rpcResp, nil
}

func (c *PRPCClient) GetVersion(ctx context.Context, address string) (*models.VersionResponse, error) {
	resp, err := c.Call(ctx, c.NodeURL(address), "get-version", nil)
	if err != nil {
		return nil, err
	}

	var verResp models.VersionResponse
	if err := json.Unmarshal(resp.Result, &verResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal version result: %w", err)
	}
	return &verResp, nil
}

func (c *PRPCClient) GetStats(ctx context.Context, address string) (*models.StatsResponse, error) {
	resp, err := c.Call(ctx, c.NodeURL(address), "get-stats", nil)
	if err != nil {
		return nil, fmt.Errorf("get-stats failed for %s: %w", address, err)
	}

	var statsResp models.StatsResponse
	if err := json.Unmarshal(resp.Result, &statsResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stats from %s: %w", address, err)
	}
	return &statsResp, nil
}

func (c *PRPCClient) GetPods(ctx context.Context, address string) (*models.PodsResponse, error) {
	return c.ListPods(ctx, c.NodeURL(address))
}

// ListPods calls get-pods on an arbitrary endpoint: a node or a network directory.
func (c *PRPCClient) ListPods(ctx context.Context, url string) (*models.PodsResponse, error) {
	resp, err := c.Call(ctx, url, "get-pods", nil)
	if err != nil {
		return nil, err
	}

	var podsResp models.PodsResponse
	if err := json.Unmarshal(resp.Result, &podsResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pods result: %w", err)
	}
	return &podsResp, nil
}
