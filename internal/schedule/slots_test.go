package schedule

import (
	"testing"
	"time"

	"hostbook/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A Monday.
var monday = time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)

func TestGenerateSlots_SplitsWindowByDuration(t *testing.T) {
	rule := db.AvailabilityRule{
		DayOfWeek:    1,
		StartTime:    "09:00",
		EndTime:      "10:00",
		SlotDuration: 30,
		Price:        500,
		PriceUSD:     6,
	}

	slots, err := GenerateSlots(rule, monday)
	require.NoError(t, err)
	require.Len(t, slots, 2)

	assert.Equal(t, on(monday, 9, 0), slots[0].Start)
	assert.Equal(t, on(monday, 9, 30), slots[0].End)
	assert.Equal(t, on(monday, 9, 30), slots[1].Start)
	assert.Equal(t, on(monday, 10, 0), slots[1].End)
	assert.Equal(t, 500.0, slots[0].Price)
	assert.Equal(t, 6.0, slots[0].PriceUSD)
	assert.False(t, slots[0].IsFree)
}

func TestGenerateSlots_BufferSeparatesSlots(t *testing.T) {
	rule := db.AvailabilityRule{
		StartTime:     "09:00",
		EndTime:       "12:00",
		SlotDuration:  45,
		BufferMinutes: 15,
	}

	slots, err := GenerateSlots(rule, monday)
	require.NoError(t, err)
	require.NotEmpty(t, slots)

	buffer := time.Duration(rule.BufferMinutes) * time.Minute
	windowEnd := on(monday, 12, 0)
	for i, s := range slots {
		assert.Equal(t, 45*time.Minute, s.End.Sub(s.Start))
		assert.False(t, s.End.After(windowEnd), "slot %d spills past the window", i)
		if i > 0 {
			assert.Equal(t, slots[i-1].End.Add(buffer), s.Start)
		}
	}
}

func TestGenerateSlots_DropsTrailingRemainder(t *testing.T) {
	rule := db.AvailabilityRule{
		StartTime:    "09:00",
		EndTime:      "10:10",
		SlotDuration: 30,
	}

	slots, err := GenerateSlots(rule, monday)
	require.NoError(t, err)
	// 09:00-09:30 and 09:30-10:00 fit; the 10-minute remainder is not emitted.
	require.Len(t, slots, 2)
	assert.Equal(t, on(monday, 10, 0), slots[1].End)
}

func TestGenerateSlots_EmptyWindow(t *testing.T) {
	rule := db.AvailabilityRule{
		StartTime:    "09:00",
		EndTime:      "09:00",
		SlotDuration: 30,
	}
	slots, err := GenerateSlots(rule, monday)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGenerateSlots_RejectsNonPositiveDuration(t *testing.T) {
	rule := db.AvailabilityRule{StartTime: "09:00", EndTime: "10:00"}
	_, err := GenerateSlots(rule, monday)
	assert.Error(t, err)

	rule.SlotDuration = -15
	_, err = GenerateSlots(rule, monday)
	assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("18:45")
	require.NoError(t, err)
	assert.Equal(t, 18, h)
	assert.Equal(t, 45, m)

	for _, bad := range []string{"25:00", "9am", "12:60", ""} {
		_, _, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func on(date time.Time, h, m int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), h, m, 0, 0, date.Location())
}
