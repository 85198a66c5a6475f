package assignment

import "time"

// Assignment links a contact to a job site they work (or worked) on. One
// row per (contact, object) pair.
type Assignment struct {
	ID        string     `json:"id"`
	ContactID string     `json:"contactId"`
	ObjectID  string     `json:"objectId"`
	IsPaid    bool       `json:"isPaid"`
	From      *time.Time `json:"from,omitempty"`
	To        *time.Time `json:"to,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`

	// Projections filled by the list queries.
	ContactName string  `json:"contactName,omitempty"`
	ObjectName  string  `json:"objectName,omitempty"`
	Review      *Review `json:"review,omitempty"`
}

// AssignInput carries the mutable assignment fields; used for both the
// initial assignment and later edits.
type AssignInput struct {
	IsPaid bool       `json:"isPaid"`
	From   *time.Time `json:"from"`
	To     *time.Time `json:"to"`
}

// Review is the single rating a contact can receive for one assignment.
type Review struct {
	ID           string    `json:"id"`
	AssignmentID string    `json:"assignmentId"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
