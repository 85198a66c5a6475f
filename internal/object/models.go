package object

import "time"

// Object is a job site: a building, an apartment, a warehouse under work.
// Exactly one of OwnerUserID and TeamID is set.
type Object struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Location    string     `json:"location,omitempty"`
	Description string     `json:"description,omitempty"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
	Inactive    bool       `json:"inactive"`
	OwnerUserID *string    `json:"ownerUserId,omitempty"`
	TeamID      *string    `json:"teamId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CreateInput carries the fields accepted when creating a job site.
type CreateInput struct {
	Name        string     `json:"name"`
	Location    string     `json:"location"`
	Description string     `json:"description"`
	Start       *time.Time `json:"start"`
	End         *time.Time `json:"end"`
}

// UpdateInput carries a partial update; nil fields stay untouched.
type UpdateInput struct {
	Name        *string    `json:"name"`
	Location    *string    `json:"location"`
	Description *string    `json:"description"`
	Start       *time.Time `json:"start"`
	End         *time.Time `json:"end"`
	ClearStart  bool       `json:"clearStart"`
	ClearEnd    bool       `json:"clearEnd"`
}
