package task

import "time"

// NextDue rolls a due date forward by one recurrence step. Monthly and
// yearly steps use calendar arithmetic, so Jan 31 + 1 month lands on
// Mar 2/3 the way time.AddDate normalizes it.
func NextDue(due time.Time, repeat RepeatType, interval int) time.Time {
	if interval < 1 {
		interval = 1
	}
	switch repeat {
	case RepeatDaily:
		return due.AddDate(0, 0, interval)
	case RepeatWeekly:
		return due.AddDate(0, 0, 7*interval)
	case RepeatMonthly:
		return due.AddDate(0, interval, 0)
	case RepeatYearly:
		return due.AddDate(interval, 0, 0)
	}
	return due
}
