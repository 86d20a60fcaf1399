package models

import "time"

// InviteStatus is the stored state of a family invite. Transitions are
// one-way out of pending: pending -> accepted, pending -> declined. Expiry is
// not stored; it is derived at read time via EffectiveStatus.
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusDeclined InviteStatus = "declined"

	// InviteStatusExpired is the computed fourth variant: a pending invite
	// whose ExpiresAt has passed. Never written to the store.
	InviteStatusExpired InviteStatus = "expired"
)

// InviteTTL is how long a new invite remains acceptable.
const InviteTTL = 7 * 24 * time.Hour

// FamilyInvite is a time-bounded offer for an email address to join a family
// at a given role.
type FamilyInvite struct {
	ID        string       `json:"id"`
	FamilyID  string       `json:"family_id"`
	Email     string       `json:"email"`
	Role      Role         `json:"role"`
	Status    InviteStatus `json:"status"`
	InvitedBy string       `json:"invited_by"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt time.Time    `json:"expires_at"`

	// Populated via JOINs on list queries.
	FamilyName  string `json:"family_name,omitempty"`
	InviterName string `json:"inviter_name,omitempty"`
}

// EffectiveStatus resolves the invite's state at the given instant, folding
// expiry into the status enum. This is the single place the expiry policy
// lives; callers must not compare ExpiresAt themselves.
func (i *FamilyInvite) EffectiveStatus(now time.Time) InviteStatus {
	if i.Status == InviteStatusPending && now.After(i.ExpiresAt) {
		return InviteStatusExpired
	}
	return i.Status
}

// IsOpen reports whether the invite can still be accepted or declined at now.
func (i *FamilyInvite) IsOpen(now time.Time) bool {
	return i.EffectiveStatus(now) == InviteStatusPending
}
