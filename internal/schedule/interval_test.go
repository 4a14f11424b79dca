package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(h, m int) time.Time {
	return time.Date(2024, 3, 15, h, m, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	testCases := []struct {
		name                           string
		aStart, aEnd, bStart, bEnd     time.Time
		want                           bool
	}{
		{"identical intervals", at(9, 0), at(10, 0), at(9, 0), at(10, 0), true},
		{"b starts inside a", at(9, 0), at(10, 0), at(9, 30), at(10, 30), true},
		{"b ends inside a", at(9, 0), at(10, 0), at(8, 30), at(9, 30), true},
		{"b contains a", at(9, 0), at(10, 0), at(8, 0), at(11, 0), true},
		{"a contains b", at(8, 0), at(11, 0), at(9, 0), at(10, 0), true},
		{"adjacent, a before b", at(9, 0), at(10, 0), at(10, 0), at(11, 0), false},
		{"adjacent, b before a", at(10, 0), at(11, 0), at(9, 0), at(10, 0), false},
		{"disjoint", at(9, 0), at(10, 0), at(14, 0), at(15, 0), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd))
			assert.Equal(t, tc.want, Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd), "overlap must be symmetric")
		})
	}
}
