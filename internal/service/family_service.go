package service

import (
	"errors"
	"fmt"

	"famledger/internal/models"
	"famledger/internal/validation"
)

var (
	ErrFamilyNotFound    = errors.New("family not found")
	ErrNotFamilyMember   = errors.New("user is not a member of this family")
	ErrNotAuthorized     = errors.New("insufficient role for this operation")
	ErrMemberNotFound    = errors.New("member not found in this family")
	ErrCannotRemoveOwner = errors.New("the owner cannot be removed; transfer ownership first")
	ErrCannotAssignOwner = errors.New("ownership changes must go through transfer")
	ErrOwnerCannotLeave  = errors.New("the owner cannot leave while other members remain")
)

// FamilyStore is the persistence surface the family service needs. It is
// implemented by repository.FamilyRepository; atomic multi-row operations
// (creation, transfer, deletion) live behind single methods so the service
// never observes partial state.
type FamilyStore interface {
	CreateFamily(name, description string, settings models.FamilySettings, creatorUserID string) (*models.Family, error)
	GetFamilyByID(familyID string) (*models.Family, error)
	GetUserFamilies(userID string) ([]models.Family, error)
	UpdateFamily(familyID, name, description string, settings models.FamilySettings) error
	DeleteFamily(familyID string) error
	GetMember(familyID, userID string) (*models.FamilyMember, error)
	ListMembers(familyID string) ([]models.MemberWithUser, error)
	CountMembers(familyID string) (int, error)
	AddMember(familyID, userID string, role models.Role) error
	RemoveMember(familyID, userID string) error
	UpdateMemberRole(familyID, userID string, role models.Role) error
	TransferOwnership(familyID, currentOwnerID, newOwnerID string) error
}

// FamilyService governs family creation, membership, roles, ownership
// transfer and deletion.
type FamilyService struct {
	families FamilyStore
}

// NewFamilyService creates a new family service
func NewFamilyService(families FamilyStore) *FamilyService {
	return &FamilyService{families: families}
}

// CreateFamily creates a new family with the creator as its owner. The store
// performs both inserts atomically, so no family can exist without an owner.
func (s *FamilyService) CreateFamily(name, description string, settings *models.FamilySettings, creatorUserID string) (*models.Family, error) {
	if err := validation.ValidateName("nome", name); err != nil {
		return nil, err
	}

	applied := models.DefaultFamilySettings()
	if settings != nil {
		applied = *settings
	}

	family, err := s.families.CreateFamily(name, description, applied, creatorUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}
	return family, nil
}

// GetFamily retrieves a family visible to the caller
func (s *FamilyService) GetFamily(familyID, callerID string) (*models.Family, error) {
	if _, err := s.requireMember(familyID, callerID); err != nil {
		return nil, err
	}
	return s.getFamily(familyID)
}

// GetUserFamilies retrieves all families the user belongs to
func (s *FamilyService) GetUserFamilies(userID string) ([]models.Family, error) {
	families, err := s.families.GetUserFamilies(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user families: %w", err)
	}
	return families, nil
}

// UpdateFamily updates a family's name, description and settings. Requires
// owner or admin role.
func (s *FamilyService) UpdateFamily(familyID, callerID, name, description string, settings *models.FamilySettings) (*models.Family, error) {
	member, err := s.requireMember(familyID, callerID)
	if err != nil {
		return nil, err
	}
	if !member.Role.CanManageMembers() {
		return nil, ErrNotAuthorized
	}

	family, err := s.getFamily(familyID)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = family.Name
	}
	if err := validation.ValidateName("nome", name); err != nil {
		return nil, err
	}
	applied := family.Settings
	if settings != nil {
		applied = *settings
	}

	if err := s.families.UpdateFamily(familyID, name, description, applied); err != nil {
		return nil, fmt.Errorf("failed to update family: %w", err)
	}
	return s.getFamily(familyID)
}

// ListMembers retrieves all members of a family with their user details
func (s *FamilyService) ListMembers(familyID, callerID string) ([]models.MemberWithUser, error) {
	if _, err := s.requireMember(familyID, callerID); err != nil {
		return nil, err
	}
	members, err := s.families.ListMembers(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// RemoveMember removes a member from the family. Requires owner or admin;
// the owner can never be removed, and admins cannot remove other admins.
func (s *FamilyService) RemoveMember(familyID, callerID, targetUserID string) error {
	caller, err := s.requireMember(familyID, callerID)
	if err != nil {
		return err
	}
	if !caller.Role.CanManageMembers() {
		return ErrNotAuthorized
	}

	target, err := s.families.GetMember(familyID, targetUserID)
	if err != nil {
		return fmt.Errorf("failed to get target member: %w", err)
	}
	if target == nil {
		return ErrMemberNotFound
	}
	if target.Role == models.RoleOwner {
		return ErrCannotRemoveOwner
	}
	if target.Role == models.RoleAdmin && caller.Role != models.RoleOwner {
		return ErrNotAuthorized
	}

	if err := s.families.RemoveMember(familyID, targetUserID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

// UpdateMemberRole changes a member's role. Ownership cannot be granted here
// (see TransferOwnership) and the owner's own role cannot be modified.
func (s *FamilyService) UpdateMemberRole(familyID, callerID, targetUserID string, newRole models.Role) error {
	if !newRole.Valid() {
		return validation.ValidationError{Field: "role", Message: "unknown role"}
	}
	if newRole == models.RoleOwner {
		return ErrCannotAssignOwner
	}

	caller, err := s.requireMember(familyID, callerID)
	if err != nil {
		return err
	}
	if !caller.Role.CanManageMembers() {
		return ErrNotAuthorized
	}

	target, err := s.families.GetMember(familyID, targetUserID)
	if err != nil {
		return fmt.Errorf("failed to get target member: %w", err)
	}
	if target == nil {
		return ErrMemberNotFound
	}
	if target.Role == models.RoleOwner {
		return ErrCannotAssignOwner
	}
	if target.Role == models.RoleAdmin && caller.Role != models.RoleOwner {
		return ErrNotAuthorized
	}

	if err := s.families.UpdateMemberRole(familyID, targetUserID, newRole); err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}
	return nil
}

// LeaveFamily removes the caller's own membership. An owner with other
// members must transfer ownership first; an owner who is the sole member
// disbands the family entirely.
func (s *FamilyService) LeaveFamily(familyID, callerID string) error {
	member, err := s.requireMember(familyID, callerID)
	if err != nil {
		return err
	}

	if member.Role == models.RoleOwner {
		count, err := s.families.CountMembers(familyID)
		if err != nil {
			return fmt.Errorf("failed to count members: %w", err)
		}
		if count > 1 {
			return ErrOwnerCannotLeave
		}
		// Sole member: leaving disbands the family.
		if err := s.families.DeleteFamily(familyID); err != nil {
			return fmt.Errorf("failed to delete family: %w", err)
		}
		return nil
	}

	if err := s.families.RemoveMember(familyID, callerID); err != nil {
		return fmt.Errorf("failed to leave family: %w", err)
	}
	return nil
}

// TransferOwnership atomically promotes an existing member to owner and
// demotes the current owner to admin.
func (s *FamilyService) TransferOwnership(familyID, callerID, newOwnerID string) error {
	caller, err := s.requireMember(familyID, callerID)
	if err != nil {
		return err
	}
	if caller.Role != models.RoleOwner {
		return ErrNotAuthorized
	}
	if newOwnerID == callerID {
		return validation.ValidationError{Field: "new_owner_id", Message: "new owner must be a different member"}
	}

	target, err := s.families.GetMember(familyID, newOwnerID)
	if err != nil {
		return fmt.Errorf("failed to get target member: %w", err)
	}
	if target == nil {
		return ErrMemberNotFound
	}

	if err := s.families.TransferOwnership(familyID, callerID, newOwnerID); err != nil {
		return fmt.Errorf("failed to transfer ownership: %w", err)
	}
	return nil
}

// DeleteFamily deletes a family and all its invites and memberships.
// Owner only; irreversible.
func (s *FamilyService) DeleteFamily(familyID, callerID string) error {
	member, err := s.requireMember(familyID, callerID)
	if err != nil {
		return err
	}
	if member.Role != models.RoleOwner {
		return ErrNotAuthorized
	}

	if err := s.families.DeleteFamily(familyID); err != nil {
		return fmt.Errorf("failed to delete family: %w", err)
	}
	return nil
}

// VerifyMembership checks that a user belongs to a family and returns their
// membership. Used by other services for access checks.
func (s *FamilyService) VerifyMembership(familyID, userID string) (*models.FamilyMember, error) {
	return s.requireMember(familyID, userID)
}

func (s *FamilyService) requireMember(familyID, userID string) (*models.FamilyMember, error) {
	family, err := s.getFamily(familyID)
	if err != nil {
		return nil, err
	}
	member, err := s.families.GetMember(family.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	if member == nil {
		return nil, ErrNotFamilyMember
	}
	return member, nil
}

func (s *FamilyService) getFamily(familyID string) (*models.Family, error) {
	family, err := s.families.GetFamilyByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	return family, nil
}
