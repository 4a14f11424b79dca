package service

import (
	"fmt"
	"time"

	"hostbook/internal/entities"
)

// RuleCounter reports how many availability rules a host has published.
type RuleCounter interface {
	CountByHost(hostID int) (int, error)
}

// InsightsService turns funnel data into plain-language observations and
// recommendations for the host dashboard.
type InsightsService struct {
	store AnalyticsStore
	rules RuleCounter
	now   func() time.Time
}

func NewInsightsService(store AnalyticsStore, rules RuleCounter) *InsightsService {
	return &InsightsService{store: store, rules: rules, now: time.Now}
}

func (s *InsightsService) Generate(hostID int) (*entities.Insights, error) {
	since := s.now().AddDate(0, 0, -30)
	counts, err := s.store.EventCounts(hostID, since)
	if err != nil {
		return nil, fmt.Errorf("loading event counts: %w", err)
	}
	morning, evening, err := s.store.ProfileViewsByPeriod(hostID)
	if err != nil {
		return nil, fmt.Errorf("loading view periods: %w", err)
	}
	topSource, err := s.store.TopReferrer(hostID)
	if err != nil {
		return nil, fmt.Errorf("loading top referrer: %w", err)
	}
	ruleCount, err := s.rules.CountByHost(hostID)
	if err != nil {
		return nil, fmt.Errorf("counting rules: %w", err)
	}

	var observations, recommendations []string

	if float64(evening) > float64(morning)*1.5 {
		observations = append(observations, "Your profile gets significantly more traffic in the evenings.")
		recommendations = append(recommendations, "Strategy: open more slots between 6 PM and 9 PM to capture high evening traffic.")
	}

	checkoutRate := 0.0
	if counts[EventProfileView] > 0 {
		checkoutRate = float64(counts[EventCheckoutView]) / float64(counts[EventProfileView])
	}
	if counts[EventProfileView] > 0 && checkoutRate < 0.2 {
		observations = append(observations, "High drop-off detected on your profile page.")
		recommendations = append(recommendations, "Tip: your profile has high views but low clicks. Try adding a profile picture or a punchier bio to build trust.")
	}

	if ruleCount < 3 {
		observations = append(observations, "You have very limited slots open.")
		recommendations = append(recommendations, "Sales driver: you are missing out on impulse bookings. Try opening at least 5 different time slots per week.")
	}

	if topSource != "" && topSource != "Direct" {
		observations = append(observations, fmt.Sprintf("Most of your clients are finding you through %s.", topSource))
	}

	insights := &entities.Insights{
		Title:           "Growth Strategy",
		Recommendations: recommendations,
	}
	if len(observations) > 0 {
		insights.PersonalizedNote = "Observation: " + joinSentences(observations)
	} else {
		insights.PersonalizedNote = "We are tracking your traffic. Share your link on social media to see real-time source attribution."
	}
	if len(recommendations) > 0 {
		insights.TopAction = recommendations[0]
	} else {
		insights.TopAction = "Continue monitoring your funnel to identify drop-off points."
	}

	if evening > morning {
		insights.Stats.PeakPeriod = "Evening"
	} else {
		insights.Stats.PeakPeriod = "Morning/Afternoon"
	}
	if topSource == "" {
		topSource = "Direct/Search"
	}
	insights.Stats.TopSource = topSource
	switch {
	case checkoutRate > 0.4:
		insights.Stats.ConversionHealth = "Excellent"
	case checkoutRate > 0.1:
		insights.Stats.ConversionHealth = "Healthy"
	default:
		insights.Stats.ConversionHealth = "Needs Attention"
	}
	return insights, nil
}

func joinSentences(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += " " + p
	}
	return out
}
