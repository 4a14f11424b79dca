package service

import (
	"fmt"
	"time"

	"hostbook/internal/db"
)

// MatchKind tags the outcome of governing-rule resolution. Specific-date
// rules take precedence over recurring ones.
type MatchKind int

const (
	NoMatch MatchKind = iota
	SpecificMatch
	RecurringMatch
)

// RuleMatch is the resolved governing rule for an instant, or NoMatch when
// the host has no rule covering it.
type RuleMatch struct {
	Kind MatchKind
	Rule *db.AvailabilityRule
}

// PriceQuote is the amount a booking will be charged, resolved from the
// governing rule at reservation time. Client-submitted amounts are never
// honored.
type PriceQuote struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	IsFree   bool    `json:"is_free"`
}

// PriceRuleStore is the rule lookup slice the price resolver needs.
type PriceRuleStore interface {
	FindSpecificAt(hostID int, date time.Time, clock string) (*db.AvailabilityRule, error)
	FindRecurringAt(hostID, dayOfWeek int, clock string) (*db.AvailabilityRule, error)
}

type PriceService struct {
	rules PriceRuleStore
}

func NewPriceService(rules PriceRuleStore) *PriceService {
	return &PriceService{rules: rules}
}

// FindGoverningRule resolves the one rule whose window contains the instant:
// date-pinned rules for the instant's calendar date first, then recurring
// rules for its weekday.
func (s *PriceService) FindGoverningRule(hostID int, instant time.Time) (RuleMatch, error) {
	clock := instant.Format("15:04")

	rule, err := s.rules.FindSpecificAt(hostID, instant, clock)
	if err != nil {
		return RuleMatch{}, fmt.Errorf("looking up specific-date rule: %w", err)
	}
	if rule != nil {
		return RuleMatch{Kind: SpecificMatch, Rule: rule}, nil
	}

	rule, err = s.rules.FindRecurringAt(hostID, int(instant.Weekday()), clock)
	if err != nil {
		return RuleMatch{}, fmt.Errorf("looking up recurring rule: %w", err)
	}
	if rule != nil {
		return RuleMatch{Kind: RecurringMatch, Rule: rule}, nil
	}
	return RuleMatch{Kind: NoMatch}, nil
}

// QuoteFor prices a booking against its governing rule. Free rules always
// quote zero regardless of their price fields; "USD" selects the parallel
// USD price, anything else the default currency price.
func (s *PriceService) QuoteFor(rule *db.AvailabilityRule, currency string) PriceQuote {
	if currency != "USD" {
		currency = "INR"
	}
	if rule.IsFree {
		return PriceQuote{Amount: 0, Currency: currency, IsFree: true}
	}
	amount := rule.Price
	if currency == "USD" {
		amount = rule.PriceUSD
	}
	return PriceQuote{Amount: amount, Currency: currency}
}
