package schedule

import (
	"fmt"
	"time"

	"hostbook/internal/db"
)

// Slot is a concrete bookable window derived from an availability rule for
// one calendar date.
type Slot struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	IsFree   bool      `json:"is_free"`
	Price    float64   `json:"price"`
	PriceUSD float64   `json:"price_usd"`
}

// ParseClock parses an "HH:mm" wall-clock string into hour and minute.
func ParseClock(clock string) (hour, min int, err error) {
	if _, err := time.Parse("15:04", clock); err != nil {
		return 0, 0, fmt.Errorf("invalid time %q: expected HH:mm", clock)
	}
	fmt.Sscanf(clock, "%d:%d", &hour, &min)
	return hour, min, nil
}

// ClockOn anchors an "HH:mm" string on the given calendar date, in the
// date's location.
func ClockOn(date time.Time, clock string) (time.Time, error) {
	hour, min, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, min, 0, 0, date.Location()), nil
}

// GenerateSlots expands one rule into the candidate slots it yields on the
// given date, walking from the rule's start time in steps of
// slotDuration+bufferMinutes. A slot is emitted only when its end does not
// exceed the rule's window; a trailing remainder shorter than the slot
// duration is dropped. The rule's slot duration must be positive; callers
// validate that before rules are persisted.
func GenerateSlots(rule db.AvailabilityRule, date time.Time) ([]Slot, error) {
	if rule.SlotDuration <= 0 {
		return nil, fmt.Errorf("slot duration must be positive, got %d", rule.SlotDuration)
	}
	cur, err := ClockOn(date, rule.StartTime)
	if err != nil {
		return nil, err
	}
	windowEnd, err := ClockOn(date, rule.EndTime)
	if err != nil {
		return nil, err
	}

	duration := time.Duration(rule.SlotDuration) * time.Minute
	buffer := time.Duration(rule.BufferMinutes) * time.Minute

	var slots []Slot
	for cur.Before(windowEnd) {
		end := cur.Add(duration)
		if end.After(windowEnd) {
			break
		}
		slots = append(slots, Slot{
			Start:    cur,
			End:      end,
			IsFree:   rule.IsFree,
			Price:    rule.Price,
			PriceUSD: rule.PriceUSD,
		})
		cur = end.Add(buffer)
	}
	return slots, nil
}
