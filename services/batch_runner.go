package services

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"xandpulse/models"
)

// ProgressFunc is called after every completed probe group.
type ProgressFunc func(models.BatchProgress)

// BatchRunner probes a member list in fixed-size groups: members within a group
// run concurrently, groups run one after another.
type BatchRunner struct {
	prober    *Prober
	batchSize int
}

func NewBatchRunner(prober *Prober, batchSize int) *BatchRunner {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &BatchRunner{
		prober:    prober,
		batchSize: batchSize,
	}
}

// Run returns one result per pod, in input order. If ctx is cancelled the
// remaining groups are not started and their pods are absent from the result.
func (b *BatchRunner) Run(ctx context.Context, network string, pods []models.Pod, progress ProgressFunc) []models.ProbeResult {
	results := make([]models.ProbeResult, len(pods))
	batches := (len(pods) + b.batchSize - 1) / b.batchSize
	online := 0

	for batch := 0; batch < batches; batch++ {
		if ctx.Err() != nil {
			log.Printf("⚠️  %s: probing stopped after %d/%d groups: %v", network, batch, batches, ctx.Err())
			return results[:batch*b.batchSize]
		}

		lo := batch * b.batchSize
		hi := min(lo+b.batchSize, len(pods))

		var g errgroup.Group
		for i := lo; i < hi; i++ {
			g.Go(func() error {
				results[i] = b.prober.Probe(ctx, network, pods[i])
				return nil
			})
		}
		_ = g.Wait()

		for _, r := range results[lo:hi] {
			if r.Online() {
				online++
			}
		}

		if progress != nil {
			progress(models.BatchProgress{
				Network:   network,
				Batch:     batch + 1,
				Batches:   batches,
				Processed: hi,
				Total:     len(pods),
				Online:    online,
			})
		}
	}

	return results
}
