package service

import (
	"log"
	"time"

	"hostbook/internal/db"
	"hostbook/internal/entities"
)

// AnalyticsStore is the persistence surface for funnel events.
type AnalyticsStore interface {
	Insert(ev *db.AnalyticsEvent) error
	EventCounts(hostID int, since time.Time) (map[string]int, error)
	ProfileViewsByPeriod(hostID int) (morning, evening int, err error)
	TopReferrer(hostID int) (string, error)
}

// ConfirmedCounter supplies the real confirmed-booking count, used as the
// source of truth for the funnel's success stage.
type ConfirmedCounter interface {
	CountConfirmedByHost(hostID int) (int, error)
}

type AnalyticsService struct {
	store    AnalyticsStore
	bookings ConfirmedCounter
}

func NewAnalyticsService(store AnalyticsStore, bookings ConfirmedCounter) *AnalyticsService {
	return &AnalyticsService{store: store, bookings: bookings}
}

// Record persists a funnel event. It never fails the caller: analytics
// problems are logged and swallowed.
func (s *AnalyticsService) Record(hostID int, event, sessionID string, metadata map[string]interface{}) {
	ev := &db.AnalyticsEvent{
		HostID:    hostID,
		Event:     event,
		SessionID: sessionID,
		Metadata:  metadata,
	}
	if err := s.store.Insert(ev); err != nil {
		log.Printf("Analytics error: %v", err)
	}
}

// Funnel aggregates the host's funnel counts and stage conversion rates.
// The success stage uses the larger of recorded payment_success events and
// actual confirmed bookings.
func (s *AnalyticsService) Funnel(hostID int) (*entities.FunnelStats, error) {
	counts, err := s.store.EventCounts(hostID, time.Time{})
	if err != nil {
		return nil, err
	}
	confirmed, err := s.bookings.CountConfirmedByHost(hostID)
	if err != nil {
		return nil, err
	}

	success := counts[EventPaymentSuccess]
	if confirmed > success {
		success = confirmed
	}

	stats := &entities.FunnelStats{
		Views:    counts[EventProfileView],
		Checkout: counts[EventCheckoutView],
		Payment:  counts[EventPaymentStart],
		Success:  success,
	}
	stats.CheckoutRate = rate(stats.Checkout, stats.Views)
	stats.PaymentRate = rate(stats.Payment, stats.Checkout)
	stats.SuccessRate = rate(stats.Success, stats.Payment)
	stats.OverallConversion = rate(stats.Success, stats.Views)
	return stats, nil
}

func rate(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
