package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"xandpulse/config"
	"xandpulse/models"
)

// ErrRegistryUnavailable means the directory gave no usable member list this cycle.
var ErrRegistryUnavailable = errors.New("registry unavailable")

// RegistrySource returns the current member list of one network.
type RegistrySource interface {
	FetchMembers(ctx context.Context, network config.NetworkConfig) (*models.PodsResponse, error)
}

type RegistryFetcher struct {
	client  *PRPCClient
	timeout time.Duration
}

func NewRegistryFetcher(client *PRPCClient, timeout time.Duration) *RegistryFetcher {
	return &RegistryFetcher{
		client:  client,
		timeout: timeout,
	}
}

func (f *RegistryFetcher) FetchMembers(ctx context.Context, network config.NetworkConfig) (*models.PodsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	pods, err := f.client.ListPods(ctx, network.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRegistryUnavailable, network.Name, err)
	}

	log.Printf("📋 Registry %s: %d members listed (reported total %d) in %v",
		network.Name, len(pods.Pods), pods.TotalCount, time.Since(start).Round(time.Millisecond))
	return pods, nil
}
