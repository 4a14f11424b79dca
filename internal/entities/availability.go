package entities

import "hostbook/internal/schedule"

type DayAvailability struct {
	Date    string          `json:"date"`
	HostID  int             `json:"host_id"`
	Slots   []schedule.Slot `json:"slots"`
	Message string          `json:"message,omitempty"`
}

// DaySummary is the month-view aggregate for one calendar day.
type DaySummary struct {
	Count       int  `json:"count"`
	IsAvailable bool `json:"is_available"`
}

type HostSchedule struct {
	RecurringDays []int    `json:"recurring_days"`
	SpecificDates []string `json:"specific_dates"`
}
