package team

import "time"

// Role is a member's capability level inside a team. Roles are stored and
// compared uppercase; the boundary rejects anything else.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleEditor Role = "EDITOR"
	RoleViewer Role = "VIEWER"
)

// ValidRole reports whether r is one of the three known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// Status is the lifecycle state of a membership row.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Team is a shared workspace. Contacts and job sites scoped to a team are
// visible to its approved members. CreatedBy is nil once the creator's
// account is gone; the team itself belongs to its members, not the creator.
type Team struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	InviteCode string    `json:"inviteCode"`
	CreatedBy  *string   `json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Member is one (team, user) membership row. UserName and UserEmail are
// projections joined in for member listings.
type Member struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"teamId"`
	UserID    string    `json:"userId"`
	Role      Role      `json:"role"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UserName  string    `json:"userName,omitempty"`
	UserEmail string    `json:"userEmail,omitempty"`
}

// Membership pairs a team with the caller's own row in it, for listing the
// teams a user belongs to.
type Membership struct {
	Team   *Team  `json:"team"`
	Role   Role   `json:"role"`
	Status Status `json:"status"`
}
