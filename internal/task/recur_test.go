package task

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextDue(t *testing.T) {
	tests := []struct {
		name     string
		due      time.Time
		repeat   RepeatType
		interval int
		want     time.Time
	}{
		{"daily", day(2026, time.June, 15), RepeatDaily, 1, day(2026, time.June, 16)},
		{"every 3 days", day(2026, time.June, 15), RepeatDaily, 3, day(2026, time.June, 18)},
		{"weekly", day(2026, time.June, 15), RepeatWeekly, 1, day(2026, time.June, 22)},
		{"biweekly", day(2026, time.June, 15), RepeatWeekly, 2, day(2026, time.June, 29)},
		{"monthly", day(2026, time.June, 15), RepeatMonthly, 1, day(2026, time.July, 15)},
		{"monthly across year end", day(2026, time.December, 10), RepeatMonthly, 2, day(2027, time.February, 10)},
		{"monthly normalization", day(2026, time.January, 31), RepeatMonthly, 1, day(2026, time.March, 3)},
		{"yearly", day(2026, time.June, 15), RepeatYearly, 1, day(2027, time.June, 15)},
		{"none stays put", day(2026, time.June, 15), RepeatNone, 1, day(2026, time.June, 15)},
		{"zero interval treated as one", day(2026, time.June, 15), RepeatDaily, 0, day(2026, time.June, 16)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDue(tt.due, tt.repeat, tt.interval)
			if !got.Equal(tt.want) {
				t.Errorf("NextDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidRepeatType(t *testing.T) {
	for _, r := range []RepeatType{RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatYearly} {
		if !ValidRepeatType(r) {
			t.Errorf("%q should be valid", r)
		}
	}
	for _, r := range []RepeatType{"", "hourly", "DAILY"} {
		if ValidRepeatType(r) {
			t.Errorf("%q should be invalid", r)
		}
	}
}
