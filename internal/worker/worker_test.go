package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/clearclaim/heron/internal/bus"
	"github.com/clearclaim/heron/internal/cache"
	"github.com/clearclaim/heron/internal/domain"
)

func TestAlertMonitor(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	alertCache := cache.NewLRUCache(100)
	defer alertCache.Close()

	monitor := NewAlertMonitor(eventBus, alertCache)

	t.Run("StartAndStop", func(t *testing.T) {
		if err := monitor.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		stats := monitor.GetStats()
		if stats.SubscriptionCount != 1 {
			t.Errorf("expected 1 subscription, got %d", stats.SubscriptionCount)
		}
		if stats.Topics[0] != domain.TopicClaimAlert {
			t.Errorf("expected topic %s, got %s", domain.TopicClaimAlert, stats.Topics[0])
		}

		if err := monitor.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}

		stats = monitor.GetStats()
		if stats.SubscriptionCount != 0 {
			t.Errorf("expected 0 subscriptions after stop, got %d", stats.SubscriptionCount)
		}
	})

	t.Run("CountsAlerts", func(t *testing.T) {
		m := NewAlertMonitor(eventBus, alertCache)
		if err := m.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer m.Stop()

		// Allow subscription to be active
		time.Sleep(20 * time.Millisecond)

		result := &domain.AnalysisResult{
			ClaimID:    "CLAIM_AB12CD34",
			FraudScore: 85,
			RiskLevel:  domain.RiskVeryHigh,
			Action:     domain.ActionEscalate,
		}
		payload, _ := json.Marshal(result)

		for i := 0; i < 3; i++ {
			if err := eventBus.Publish(context.Background(), domain.TopicClaimAlert, payload); err != nil {
				t.Fatalf("Publish failed: %v", err)
			}
		}

		// Wait for processing
		time.Sleep(100 * time.Millisecond)

		count, err := alertCache.IncrementCounter(context.Background(), "alerts:24h", AlertWindow)
		if err != nil {
			t.Fatalf("IncrementCounter failed: %v", err)
		}
		if count != 4 {
			t.Errorf("expected counter at 4 after 3 alerts plus probe, got %d", count)
		}
	})

	t.Run("IgnoresMalformedPayload", func(t *testing.T) {
		m := NewAlertMonitor(eventBus, alertCache)
		if err := m.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer m.Stop()

		time.Sleep(20 * time.Millisecond)

		// Malformed payload must not panic or stop the monitor
		if err := eventBus.Publish(context.Background(), domain.TopicClaimAlert, []byte("not json")); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}

		time.Sleep(50 * time.Millisecond)

		if m.GetStats().SubscriptionCount != 1 {
			t.Error("monitor should remain subscribed after malformed payload")
		}
	})
}
