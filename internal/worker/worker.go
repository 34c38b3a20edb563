// Package worker provides async alert handling off the event bus.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/clearclaim/heron/internal/domain"
)

// AlertWindow is the rolling window for alert counters.
const AlertWindow = 24 * time.Hour

// AlertMonitor consumes high-risk alert events and maintains a rolling
// alert counter. It sits off to the side of the pipeline: a monitor failure
// never affects analysis results.
type AlertMonitor struct {
	bus   domain.EventBus
	cache domain.Cache

	subscriptions []domain.Subscription
	mu            sync.Mutex
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewAlertMonitor creates a monitor over the given bus and cache.
func NewAlertMonitor(bus domain.EventBus, cache domain.Cache) *AlertMonitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &AlertMonitor{
		bus:    bus,
		cache:  cache,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to the alert topic.
func (m *AlertMonitor) Start() error {
	sub, err := m.bus.Subscribe(m.ctx, domain.TopicClaimAlert, m.handleAlert)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.subscriptions = append(m.subscriptions, sub)
	m.mu.Unlock()

	slog.Info("alert monitor started", "topic", domain.TopicClaimAlert)
	return nil
}

// handleAlert records an alert event.
func (m *AlertMonitor) handleAlert(ctx context.Context, msg *domain.Message) error {
	var result domain.AnalysisResult
	if err := json.Unmarshal(msg.Payload, &result); err != nil {
		slog.Error("failed to parse alert message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	count, err := m.cache.IncrementCounter(ctx, "alerts:24h", AlertWindow)
	if err != nil {
		slog.Warn("failed to increment alert counter",
			"claim_id", result.ClaimID,
			"error", err,
		)
		count = 0
	}

	slog.Info("high-risk claim alert",
		"claim_id", result.ClaimID,
		"risk_level", result.RiskLevel,
		"fraud_score", result.FraudScore,
		"action", result.Action,
		"alerts_in_window", count,
	)

	return nil
}

// Stop unsubscribes and shuts down.
func (m *AlertMonitor) Stop() error {
	m.cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	m.subscriptions = nil

	slog.Info("alert monitor stopped")
	return nil
}

// Stats returns monitor statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current monitor statistics.
func (m *AlertMonitor) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	topics := make([]string, len(m.subscriptions))
	for i, sub := range m.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(m.subscriptions),
		Topics:            topics,
	}
}
