package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"famledger/internal/models"
	"famledger/internal/validation"
)

var (
	ErrInviteNotFound  = errors.New("invite not found")
	ErrDuplicateInvite = errors.New("a pending invite already exists for this email")
	ErrInviteExpired   = errors.New("invite has expired")
	ErrInviteClosed    = errors.New("invite has already been resolved")
	ErrInviteWrongUser = errors.New("invite is addressed to a different email")
)

// InviteStore is the persistence surface the invite service needs,
// implemented by repository.InviteRepository.
type InviteStore interface {
	CreateInvite(familyID, email string, role models.Role, invitedBy string, expiresAt time.Time) (*models.FamilyInvite, error)
	GetInviteByID(id string) (*models.FamilyInvite, error)
	HasPendingInvite(familyID, email string, now time.Time) (bool, error)
	ListPendingByEmail(email string, now time.Time) ([]models.FamilyInvite, error)
	ListByFamily(familyID string) ([]models.FamilyInvite, error)
	AcceptInvite(inviteID, userID string) error
	MarkAccepted(inviteID string) error
	DeclineInvite(inviteID string) error
	DeleteInvite(inviteID string) error
}

// InviteMailer sends invitation emails. Delivery is best-effort: the invite
// exists whether or not the email goes out.
type InviteMailer interface {
	SendInviteEmail(ctx context.Context, toEmail, familyName, inviterName string, role models.Role, expiresAt time.Time) error
}

// InviteService governs the invitation lifecycle: issue, accept, decline,
// cancel and listing. Acceptance follows a single canonical contract: lookup
// by invite id, then verify the caller's account email against the invite's
// address case-insensitively.
type InviteService struct {
	invites  InviteStore
	families *FamilyService
	mailer   InviteMailer
	now      func() time.Time
}

// NewInviteService creates a new invite service. mailer may be nil when email
// is disabled.
func NewInviteService(invites InviteStore, families *FamilyService, mailer InviteMailer) *InviteService {
	return &InviteService{
		invites:  invites,
		families: families,
		mailer:   mailer,
		now:      time.Now,
	}
}

// IssueInvite creates a pending invite for an email to join a family. The
// caller must be owner or admin, the role must be member or viewer, and there
// must be no pending unexpired invite for the same pair.
func (s *InviteService) IssueInvite(ctx context.Context, familyID, callerID, email string, role models.Role) (*models.FamilyInvite, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if role != models.RoleMember && role != models.RoleViewer {
		return nil, validation.ValidationError{Field: "role", Message: "invites may only grant member or viewer"}
	}

	caller, err := s.families.VerifyMembership(familyID, callerID)
	if err != nil {
		return nil, err
	}
	if !caller.Role.CanManageMembers() {
		return nil, ErrNotAuthorized
	}

	now := s.now()
	exists, err := s.invites.HasPendingInvite(familyID, email, now)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending invites: %w", err)
	}
	if exists {
		return nil, ErrDuplicateInvite
	}

	invite, err := s.invites.CreateInvite(familyID, email, role, callerID, now.Add(models.InviteTTL))
	if err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	if s.mailer != nil {
		full, lookupErr := s.invites.GetInviteByID(invite.ID)
		if lookupErr == nil && full != nil {
			invite = full
		}
		if err := s.mailer.SendInviteEmail(ctx, invite.Email, invite.FamilyName, invite.InviterName, invite.Role, invite.ExpiresAt); err != nil {
			slog.Warn("Failed to send invite email", "invite_id", invite.ID, "error", err)
		}
	}

	return invite, nil
}

// AcceptInvite accepts an invite on behalf of the calling user. Accepting an
// already-accepted invite is an idempotent no-op success; expired and
// declined invites fail without creating membership.
func (s *InviteService) AcceptInvite(inviteID string, caller *models.User) (*models.FamilyInvite, error) {
	invite, err := s.getInvite(inviteID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(invite.Email, caller.Email) {
		return nil, ErrInviteWrongUser
	}

	switch invite.EffectiveStatus(s.now()) {
	case models.InviteStatusAccepted:
		// Idempotent: already accepted, membership already exists.
		return invite, nil
	case models.InviteStatusDeclined:
		return nil, ErrInviteClosed
	case models.InviteStatusExpired:
		return nil, ErrInviteExpired
	}

	existing, err := s.families.families.GetMember(invite.FamilyID, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if existing != nil {
		// Already a member through another path: resolve the invite without
		// creating a duplicate membership row.
		if err := s.invites.MarkAccepted(invite.ID); err != nil {
			return nil, fmt.Errorf("failed to mark invite accepted: %w", err)
		}
	} else {
		if err := s.invites.AcceptInvite(invite.ID, caller.ID); err != nil {
			return nil, fmt.Errorf("failed to accept invite: %w", err)
		}
	}

	return s.getInvite(inviteID)
}

// DeclineInvite declines a pending invite. Only the invited email's account
// may decline; membership is unaffected.
func (s *InviteService) DeclineInvite(inviteID string, caller *models.User) error {
	invite, err := s.getInvite(inviteID)
	if err != nil {
		return err
	}
	if !strings.EqualFold(invite.Email, caller.Email) {
		return ErrInviteWrongUser
	}

	switch invite.EffectiveStatus(s.now()) {
	case models.InviteStatusAccepted, models.InviteStatusDeclined:
		return ErrInviteClosed
	case models.InviteStatusExpired:
		return ErrInviteExpired
	}

	if err := s.invites.DeclineInvite(invite.ID); err != nil {
		return fmt.Errorf("failed to decline invite: %w", err)
	}
	return nil
}

// CancelInvite deletes a pending invite. Inviter-side: requires owner or
// admin role in the invite's family.
func (s *InviteService) CancelInvite(inviteID, callerID string) error {
	invite, err := s.getInvite(inviteID)
	if err != nil {
		return err
	}

	caller, err := s.families.VerifyMembership(invite.FamilyID, callerID)
	if err != nil {
		return err
	}
	if !caller.Role.CanManageMembers() {
		return ErrNotAuthorized
	}
	if invite.EffectiveStatus(s.now()) != models.InviteStatusPending {
		return ErrInviteClosed
	}

	if err := s.invites.DeleteInvite(invite.ID); err != nil {
		return fmt.Errorf("failed to cancel invite: %w", err)
	}
	return nil
}

// ListPendingForUser returns all pending, unexpired invites addressed to the
// caller's email.
func (s *InviteService) ListPendingForUser(caller *models.User) ([]models.FamilyInvite, error) {
	invites, err := s.invites.ListPendingByEmail(caller.Email, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	return invites, nil
}

// ListFamilyInvites returns all invites for a family, with expiry folded
// into the reported status. Requires owner or admin.
func (s *InviteService) ListFamilyInvites(familyID, callerID string) ([]models.FamilyInvite, error) {
	caller, err := s.families.VerifyMembership(familyID, callerID)
	if err != nil {
		return nil, err
	}
	if !caller.Role.CanManageMembers() {
		return nil, ErrNotAuthorized
	}

	invites, err := s.invites.ListByFamily(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	now := s.now()
	for i := range invites {
		invites[i].Status = invites[i].EffectiveStatus(now)
	}
	return invites, nil
}

func (s *InviteService) getInvite(inviteID string) (*models.FamilyInvite, error) {
	invite, err := s.invites.GetInviteByID(inviteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	if invite == nil {
		return nil, ErrInviteNotFound
	}
	return invite, nil
}
