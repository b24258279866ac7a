package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"xandpulse/models"
)

var ErrCycleRunning = errors.New("collection cycle already running")

const (
	SchedulerIdle    = "idle"
	SchedulerRunning = "running-cycle"
)

// CycleRunner is one full collection pass.
type CycleRunner interface {
	RunCycle(ctx context.Context) models.CycleReport
}

// Scheduler fires one cycle shortly after Start and then on a fixed interval.
// A fire that lands while a cycle is running is dropped, not queued.
type Scheduler struct {
	runner       CycleRunner
	interval     time.Duration
	initialDelay time.Duration

	running atomic.Bool
	skipped atomic.Int64

	mu         sync.RWMutex
	lastReport *models.CycleReport

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewScheduler(runner CycleRunner, interval, initialDelay time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		runner:       runner,
		interval:     interval,
		initialDelay: initialDelay,
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (s *Scheduler) Start() {
	log.Printf("Starting collector: first cycle in %v, then every %v", s.initialDelay, s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		initial := time.NewTimer(s.initialDelay)
		defer initial.Stop()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-initial.C:
				s.fire()
			case <-ticker.C:
				s.fire()
			case <-s.ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the timers, cancels an in-flight cycle and waits for it to return.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.cancel()
		s.mu.Unlock()
		s.wg.Wait()
	})
}

func (s *Scheduler) fire() {
	if err := s.TriggerNow(); errors.Is(err, ErrCycleRunning) {
		n := s.skipped.Add(1)
		log.Printf("⏭️  Previous cycle still running, skipping this one (%d skipped so far)", n)
	}
}

// TriggerNow starts a cycle in the background, or returns ErrCycleRunning.
func (s *Scheduler) TriggerNow() error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrCycleRunning
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ctx.Err(); err != nil {
		s.running.Store(false)
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)

		report := s.runner.RunCycle(s.ctx)

		s.mu.Lock()
		s.lastReport = &report
		s.mu.Unlock()
	}()
	return nil
}

func (s *Scheduler) State() string {
	if s.running.Load() {
		return SchedulerRunning
	}
	return SchedulerIdle
}

// Skipped is the number of fires dropped because a cycle was in flight.
func (s *Scheduler) Skipped() int64 {
	return s.skipped.Load()
}

func (s *Scheduler) LastReport() (models.CycleReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastReport == nil {
		return models.CycleReport{}, false
	}
	return *s.lastReport, true
}
