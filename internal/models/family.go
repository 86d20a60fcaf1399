package models

import "time"

// Role is the privilege level of a family member. Roles are totally ordered:
// owner > admin > member >= viewer.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

var roleRank = map[Role]int{
	RoleOwner:  3,
	RoleAdmin:  2,
	RoleMember: 1,
	RoleViewer: 0,
}

// ParseRole validates a role string and returns the corresponding Role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := roleRank[r]
	return r, ok
}

// Valid reports whether the role is one of the four known roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r carries at least the privilege of other.
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other]
}

// CanManageMembers reports whether the role may invite, remove members or
// change member roles.
func (r Role) CanManageMembers() bool {
	return r == RoleOwner || r == RoleAdmin
}

// FamilySettings controls how members interact with shared data.
type FamilySettings struct {
	AllowViewAll         bool `json:"allow_view_all"`
	AllowAddTransactions bool `json:"allow_add_transactions"`
	RequireApproval      bool `json:"require_approval"`
}

// DefaultFamilySettings returns the settings applied to a new family.
func DefaultFamilySettings() FamilySettings {
	return FamilySettings{
		AllowViewAll:         true,
		AllowAddTransactions: true,
		RequireApproval:      false,
	}
}

// Family represents a shared financial grouping of users.
type Family struct {
	ID          string         `json:"id"`
	Name        string         `json:"nome"`
	Description string         `json:"description,omitempty"`
	CreatedBy   string         `json:"created_by"`
	Settings    FamilySettings `json:"settings"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// FamilyMember represents the relationship between a user and a family.
// Every family has exactly one member with RoleOwner while it exists.
type FamilyMember struct {
	ID       string    `json:"id"`
	FamilyID string    `json:"family_id"`
	UserID   string    `json:"user_id"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// MemberWithUser combines a membership row with the user's profile details,
// as returned by the joined member-listing query.
type MemberWithUser struct {
	FamilyMember
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}
