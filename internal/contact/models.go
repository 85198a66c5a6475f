package contact

import "time"

// Contact is a person or company on the books: a worker, a supplier, a
// client. Exactly one of OwnerUserID and TeamID is set; that is the row's
// visibility scope.
type Contact struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Roles         []string   `json:"roles"`
	Objects       []string   `json:"objects"`
	Email         string     `json:"email,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	Birthday      *time.Time `json:"birthday,omitempty"`
	Cost          *float64   `json:"cost,omitempty"`
	WorkingFrom   *time.Time `json:"workingFrom,omitempty"`
	WorkingTo     *time.Time `json:"workingTo,omitempty"`
	IsFavorite    bool       `json:"isFavorite"`
	IsBlacklisted bool       `json:"isBlacklisted"`
	OwnerUserID   *string    `json:"ownerUserId,omitempty"`
	TeamID        *string    `json:"teamId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// CreateInput carries the fields accepted when creating a contact. Scope is
// decided by the handler, not the client payload.
type CreateInput struct {
	Name        string     `json:"name"`
	Roles       []string   `json:"roles"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	Birthday    *time.Time `json:"birthday"`
	Cost        *float64   `json:"cost"`
	WorkingFrom *time.Time `json:"workingFrom"`
	WorkingTo   *time.Time `json:"workingTo"`
}

// UpdateInput carries a partial update; nil fields stay untouched. Clearing
// a nullable date or the cost goes through the dedicated Clear flags since
// JSON null and absent both decode to nil.
type UpdateInput struct {
	Name             *string    `json:"name"`
	Roles            *[]string  `json:"roles"`
	Email            *string    `json:"email"`
	Phone            *string    `json:"phone"`
	Birthday         *time.Time `json:"birthday"`
	Cost             *float64   `json:"cost"`
	WorkingFrom      *time.Time `json:"workingFrom"`
	WorkingTo        *time.Time `json:"workingTo"`
	ClearBirthday    bool       `json:"clearBirthday"`
	ClearCost        bool       `json:"clearCost"`
	ClearWorkingFrom bool       `json:"clearWorkingFrom"`
	ClearWorkingTo   bool       `json:"clearWorkingTo"`
}
