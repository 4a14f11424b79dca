package service

import (
	"fmt"
	"sort"
	"time"

	"hostbook/internal/db"
	"hostbook/internal/entities"
	apperrors "hostbook/internal/errors"
	"hostbook/internal/schedule"
)

// RuleStore is the availability-rule persistence the resolver depends on.
type RuleStore interface {
	Create(rule *db.AvailabilityRule) error
	FindOverlapping(rule db.AvailabilityRule) (*db.AvailabilityRule, error)
	ListByHost(hostID int) ([]db.AvailabilityRule, error)
	Delete(id, hostID int) error
}

// ReservationLister is the slice of the booking ledger the resolver needs to
// drop already-reserved slots.
type ReservationLister interface {
	ListActiveBetween(hostID int, from, to, expiryThreshold time.Time) ([]db.Booking, error)
}

type AvailabilityService struct {
	rules    RuleStore
	bookings ReservationLister
	ttl      time.Duration
	now      func() time.Time
}

func NewAvailabilityService(rules RuleStore, bookings ReservationLister, ttl time.Duration) *AvailabilityService {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &AvailabilityService{rules: rules, bookings: bookings, ttl: ttl, now: time.Now}
}

// CreateRule validates and persists a new availability rule. Rules whose
// applicability intersects an existing rule of the same host are rejected;
// this is the invariant that lets specific-date and recurring slots coexist
// on the same day without double counting.
func (s *AvailabilityService) CreateRule(rule *db.AvailabilityRule) error {
	if _, _, err := schedule.ParseClock(rule.StartTime); err != nil {
		return apperrors.ErrValidation(err.Error())
	}
	if _, _, err := schedule.ParseClock(rule.EndTime); err != nil {
		return apperrors.ErrValidation(err.Error())
	}
	if rule.StartTime >= rule.EndTime {
		return apperrors.ErrValidation("start_time must be before end_time")
	}
	if rule.SlotDuration == 0 {
		rule.SlotDuration = 60
	}
	if rule.SlotDuration < 0 {
		return apperrors.ErrValidation("slot_duration must be positive")
	}
	if rule.BufferMinutes < 0 {
		return apperrors.ErrValidation("buffer_minutes cannot be negative")
	}
	if rule.Price < 0 || rule.PriceUSD < 0 {
		return apperrors.ErrValidation("prices cannot be negative")
	}

	if rule.SpecificDate != nil {
		d := rule.SpecificDate.Truncate(24 * time.Hour)
		rule.SpecificDate = &d
		rule.DayOfWeek = int(d.Weekday())
	} else if rule.DayOfWeek < 0 || rule.DayOfWeek > 6 {
		return apperrors.ErrValidation("day_of_week must be between 0 (Sunday) and 6 (Saturday)")
	}
	if rule.IsFree {
		rule.Price = 0
		rule.PriceUSD = 0
	}

	existing, err := s.rules.FindOverlapping(*rule)
	if err != nil {
		return fmt.Errorf("checking for overlapping rules: %w", err)
	}
	if existing != nil {
		kind := "recurring"
		if existing.SpecificDate != nil {
			kind = "specific date"
		}
		return apperrors.ErrValidation(
			fmt.Sprintf("this time window overlaps an existing %s availability rule on the same day", kind))
	}

	return s.rules.Create(rule)
}

func (s *AvailabilityService) DeleteRule(id, hostID int) error {
	return s.rules.Delete(id, hostID)
}

func (s *AvailabilityService) Rules(hostID int) ([]db.AvailabilityRule, error) {
	return s.rules.ListByHost(hostID)
}

// AvailableSlots derives the bookable slots of a host on a calendar date:
// recurring rules matching the date's weekday plus rules pinned to exactly
// that date are expanded, past slots are dropped, and slots covered by an
// active reservation (confirmed, or locked within the TTL) are filtered out.
func (s *AvailabilityService) AvailableSlots(hostID int, date time.Time) ([]schedule.Slot, error) {
	rules, err := s.rules.ListByHost(hostID)
	if err != nil {
		return nil, fmt.Errorf("loading availability rules: %w", err)
	}
	return s.resolveSlots(hostID, rules, date)
}

func (s *AvailabilityService) resolveSlots(hostID int, rules []db.AvailabilityRule, date time.Time) ([]schedule.Slot, error) {
	weekday := int(date.Weekday())
	dateStr := date.Format("2006-01-02")

	var candidates []schedule.Slot
	for _, rule := range rules {
		if rule.SpecificDate == nil {
			if rule.DayOfWeek != weekday {
				continue
			}
		} else if rule.SpecificDate.Format("2006-01-02") != dateStr {
			continue
		}
		slots, err := schedule.GenerateSlots(rule, date)
		if err != nil {
			return nil, fmt.Errorf("expanding rule %d: %w", rule.ID, err)
		}
		candidates = append(candidates, slots...)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Start.Before(candidates[j].Start) })
	if len(candidates) == 0 {
		return nil, nil
	}

	now := s.now()
	reserved, err := s.bookings.ListActiveBetween(hostID,
		candidates[0].Start, candidates[len(candidates)-1].End, now.Add(-s.ttl))
	if err != nil {
		return nil, fmt.Errorf("loading reservations: %w", err)
	}

	var available []schedule.Slot
	for _, slot := range candidates {
		if !slot.Start.After(now) {
			continue
		}
		busy := false
		for _, b := range reserved {
			if schedule.Overlaps(slot.Start, slot.End, b.StartTime, b.EndTime) {
				busy = true
				break
			}
		}
		if !busy {
			available = append(available, slot)
		}
	}
	return available, nil
}

// MonthAvailability runs the day resolver over every day of the month and
// reports only slot counts, keyed by "YYYY-MM-DD".
func (s *AvailabilityService) MonthAvailability(hostID, year int, month time.Month) (map[string]entities.DaySummary, error) {
	rules, err := s.rules.ListByHost(hostID)
	if err != nil {
		return nil, fmt.Errorf("loading availability rules: %w", err)
	}

	summary := make(map[string]entities.DaySummary)
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		slots, err := s.resolveSlots(hostID, rules, d)
		if err != nil {
			return nil, err
		}
		summary[d.Format("2006-01-02")] = entities.DaySummary{
			Count:       len(slots),
			IsAvailable: len(slots) > 0,
		}
	}
	return summary, nil
}

// Schedule summarizes which weekdays recur and which specific dates are
// pinned, for calendar rendering.
func (s *AvailabilityService) Schedule(hostID int) (*entities.HostSchedule, error) {
	rules, err := s.rules.ListByHost(hostID)
	if err != nil {
		return nil, fmt.Errorf("loading availability rules: %w", err)
	}

	seen := make(map[int]bool)
	out := &entities.HostSchedule{RecurringDays: []int{}, SpecificDates: []string{}}
	for _, rule := range rules {
		if rule.SpecificDate != nil {
			out.SpecificDates = append(out.SpecificDates, rule.SpecificDate.Format("2006-01-02"))
			continue
		}
		if !seen[rule.DayOfWeek] {
			seen[rule.DayOfWeek] = true
			out.RecurringDays = append(out.RecurringDays, rule.DayOfWeek)
		}
	}
	sort.Ints(out.RecurringDays)
	sort.Strings(out.SpecificDates)
	return out, nil
}
