package services

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"xandpulse/models"
)

var ErrInvalidSubscription = errors.New("channel and pubkey are required")

const defaultAlertHistoryLimit = 1000

// AlertService tracks each node's last status and notifies subscribers when it
// changes. All state lives in memory for the life of the process.
type AlertService struct {
	notifier Notifier

	mu            sync.Mutex
	lastStatus    map[string]string              // pubkey -> status
	subscriptions map[string]map[string]struct{} // channel -> pubkeys
	watchers      map[string]map[string]struct{} // pubkey -> channels

	historyMutex sync.RWMutex
	history      []models.TransitionEvent
	historyLimit int
}

func NewAlertService(notifier Notifier, historyLimit int) *AlertService {
	if historyLimit <= 0 {
		historyLimit = defaultAlertHistoryLimit
	}
	return &AlertService{
		notifier:      notifier,
		lastStatus:    make(map[string]string),
		subscriptions: make(map[string]map[string]struct{}),
		watchers:      make(map[string]map[string]struct{}),
		history:       make([]models.TransitionEvent, 0),
		historyLimit:  historyLimit,
	}
}

// Observe records this cycle's statuses and notifies subscribers of every
// transition. A node seen for the first time never fires, and nodes without a
// pubkey are ignored.
func (as *AlertService) Observe(ctx context.Context, results []models.ProbeResult) []models.TransitionEvent {
	now := time.Now()

	type delivery struct {
		event    models.TransitionEvent
		channels []string
	}
	var pending []delivery

	as.mu.Lock()
	for _, r := range results {
		if r.Pubkey == "" {
			continue
		}
		prev, seen := as.lastStatus[r.Pubkey]
		as.lastStatus[r.Pubkey] = r.Status
		if !seen || prev == r.Status {
			continue
		}

		pending = append(pending, delivery{
			event: models.TransitionEvent{
				Pubkey:    r.Pubkey,
				Address:   r.Address,
				Network:   r.Network,
				Previous:  prev,
				Current:   r.Status,
				Timestamp: now,
			},
			channels: sortedKeys(as.watchers[r.Pubkey]),
		})
	}
	as.mu.Unlock()

	events := make([]models.TransitionEvent, 0, len(pending))
	for _, p := range pending {
		events = append(events, p.event)
		as.record(p.event)
		log.Printf("🔔 %s node %s (%s): %s → %s, %d subscriber(s)",
			p.event.Network, p.event.Pubkey, p.event.Address, p.event.Previous, p.event.Current, len(p.channels))
		for _, channel := range p.channels {
			as.deliver(ctx, channel, p.event)
		}
	}
	return events
}

// deliver sends one notification; a failure is logged, never returned.
func (as *AlertService) deliver(ctx context.Context, channel string, ev models.TransitionEvent) {
	if as.notifier == nil {
		return
	}
	if err := as.notifier.Notify(ctx, channel, ev); err != nil {
		log.Printf("❌ Alert delivery to %s via %s failed: %v", channel, as.notifier.Name(), err)
	}
}

func (as *AlertService) record(ev models.TransitionEvent) {
	as.historyMutex.Lock()
	defer as.historyMutex.Unlock()

	as.history = append(as.history, ev)
	if len(as.history) > as.historyLimit {
		as.history = as.history[len(as.history)-as.historyLimit:]
	}
}

// LastStatus returns the stored status for pubkey, if any.
func (as *AlertService) LastStatus(pubkey string) (string, bool) {
	as.mu.Lock()
	defer as.mu.Unlock()
	s, ok := as.lastStatus[pubkey]
	return s, ok
}

func (as *AlertService) Subscribe(channel, pubkey string) error {
	channel, pubkey = strings.TrimSpace(channel), strings.TrimSpace(pubkey)
	if channel == "" || pubkey == "" {
		return ErrInvalidSubscription
	}

	as.mu.Lock()
	defer as.mu.Unlock()

	if as.subscriptions[channel] == nil {
		as.subscriptions[channel] = make(map[string]struct{})
	}
	as.subscriptions[channel][pubkey] = struct{}{}

	if as.watchers[pubkey] == nil {
		as.watchers[pubkey] = make(map[string]struct{})
	}
	as.watchers[pubkey][channel] = struct{}{}
	return nil
}

// Unsubscribe reports whether the subscription existed.
func (as *AlertService) Unsubscribe(channel, pubkey string) (bool, error) {
	channel, pubkey = strings.TrimSpace(channel), strings.TrimSpace(pubkey)
	if channel == "" || pubkey == "" {
		return false, ErrInvalidSubscription
	}

	as.mu.Lock()
	defer as.mu.Unlock()

	if _, ok := as.subscriptions[channel][pubkey]; !ok {
		return false, nil
	}

	delete(as.subscriptions[channel], pubkey)
	if len(as.subscriptions[channel]) == 0 {
		delete(as.subscriptions, channel)
	}
	delete(as.watchers[pubkey], channel)
	if len(as.watchers[pubkey]) == 0 {
		delete(as.watchers, pubkey)
	}
	return true, nil
}

// Subscriptions lists the pubkeys a channel watches, sorted.
func (as *AlertService) Subscriptions(channel string) []string {
	as.mu.Lock()
	defer as.mu.Unlock()
	return sortedKeys(as.subscriptions[strings.TrimSpace(channel)])
}

// GetHistory returns the most recent transition events, newest first.
func (as *AlertService) GetHistory(limit int) []models.TransitionEvent {
	as.historyMutex.RLock()
	defer as.historyMutex.RUnlock()

	if limit <= 0 || limit > len(as.history) {
		limit = len(as.history)
	}

	out := make([]models.TransitionEvent, 0, limit)
	for i := len(as.history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, as.history[i])
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
