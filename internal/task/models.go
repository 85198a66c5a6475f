package task

import "time"

// RepeatType says how a task recurs, if at all.
type RepeatType string

const (
	RepeatNone    RepeatType = "none"
	RepeatDaily   RepeatType = "daily"
	RepeatWeekly  RepeatType = "weekly"
	RepeatMonthly RepeatType = "monthly"
	RepeatYearly  RepeatType = "yearly"
)

// ValidRepeatType reports whether r is one of the known repeat types.
func ValidRepeatType(r RepeatType) bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatYearly:
		return true
	}
	return false
}

// Task is a to-do attached to a job site. A recurring task never closes on
// completion; its due date rolls forward instead.
type Task struct {
	ID             string     `json:"id"`
	ObjectID       string     `json:"objectId"`
	Title          string     `json:"title"`
	RepeatType     RepeatType `json:"repeatType"`
	RepeatInterval int        `json:"repeatInterval"`
	NextDueDate    *time.Time `json:"nextDueDate,omitempty"`
	IsDone         bool       `json:"isDone"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// CreateInput carries the fields accepted when adding a task.
type CreateInput struct {
	Title          string     `json:"title"`
	RepeatType     RepeatType `json:"repeatType"`
	RepeatInterval int        `json:"repeatInterval"`
	NextDueDate    *time.Time `json:"nextDueDate"`
}
