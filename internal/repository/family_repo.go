package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"famledger/internal/database"
	"famledger/internal/models"
)

// FamilyRepository handles database operations for families and memberships
type FamilyRepository struct {
	db *database.DB
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db *database.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// CreateFamily creates a new family and its owner membership in one
// transaction, so a family can never exist without an owner.
func (r *FamilyRepository) CreateFamily(name, description string, settings models.FamilySettings, creatorUserID string) (*models.Family, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	family := &models.Family{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		CreatedBy:   creatorUserID,
		Settings:    settings,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := `INSERT INTO families (id, name, description, created_by, allow_view_all, allow_add_transactions, require_approval, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.Exec(query, family.ID, family.Name, family.Description, family.CreatedBy,
		settings.AllowViewAll, settings.AllowAddTransactions, settings.RequireApproval, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	query = `INSERT INTO family_members (id, family_id, user_id, role, joined_at) VALUES (?, ?, ?, ?, ?)`
	_, err = tx.Exec(query, uuid.New().String(), family.ID, creatorUserID, string(models.RoleOwner), now)
	if err != nil {
		return nil, fmt.Errorf("failed to add owner member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return family, nil
}

// GetFamilyByID retrieves a family by ID. Returns nil if not found.
func (r *FamilyRepository) GetFamilyByID(familyID string) (*models.Family, error) {
	query := `SELECT id, name, description, created_by, allow_view_all, allow_add_transactions, require_approval, created_at, updated_at
		FROM families WHERE id = ?`
	family := &models.Family{}
	err := r.db.QueryRow(query, familyID).Scan(
		&family.ID, &family.Name, &family.Description, &family.CreatedBy,
		&family.Settings.AllowViewAll, &family.Settings.AllowAddTransactions, &family.Settings.RequireApproval,
		&family.CreatedAt, &family.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return family, nil
}

// GetUserFamilies retrieves all families a user belongs to
func (r *FamilyRepository) GetUserFamilies(userID string) ([]models.Family, error) {
	query := `
		SELECT f.id, f.name, f.description, f.created_by, f.allow_view_all, f.allow_add_transactions, f.require_approval, f.created_at, f.updated_at
		FROM families f
		INNER JOIN family_members fm ON f.id = fm.family_id
		WHERE fm.user_id = ?
		ORDER BY f.created_at DESC
	`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	var families []models.Family
	for rows.Next() {
		var f models.Family
		if err := rows.Scan(&f.ID, &f.Name, &f.Description, &f.CreatedBy,
			&f.Settings.AllowViewAll, &f.Settings.AllowAddTransactions, &f.Settings.RequireApproval,
			&f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, f)
	}
	return families, rows.Err()
}

// UpdateFamily updates a family's name, description and settings
func (r *FamilyRepository) UpdateFamily(familyID, name, description string, settings models.FamilySettings) error {
	query := `UPDATE families SET name = ?, description = ?, allow_view_all = ?, allow_add_transactions = ?, require_approval = ?, updated_at = ?
		WHERE id = ?`
	_, err := r.db.Exec(query, name, description,
		settings.AllowViewAll, settings.AllowAddTransactions, settings.RequireApproval, time.Now(), familyID)
	if err != nil {
		return fmt.Errorf("failed to update family: %w", err)
	}
	return nil
}

// DeleteFamily removes a family and all its dependent rows, children first
// (invites, then members, then the family) in a single transaction.
func (r *FamilyRepository) DeleteFamily(familyID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM family_invites WHERE family_id = ?", familyID); err != nil {
		return fmt.Errorf("failed to delete family invites: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM family_members WHERE family_id = ?", familyID); err != nil {
		return fmt.Errorf("failed to delete family members: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM families WHERE id = ?", familyID); err != nil {
		return fmt.Errorf("failed to delete family: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetMember retrieves a user's membership in a family. Returns nil if the
// user is not a member.
func (r *FamilyRepository) GetMember(familyID, userID string) (*models.FamilyMember, error) {
	query := `SELECT id, family_id, user_id, role, joined_at FROM family_members WHERE family_id = ? AND user_id = ?`
	m := &models.FamilyMember{}
	var role string
	err := r.db.QueryRow(query, familyID, userID).Scan(&m.ID, &m.FamilyID, &m.UserID, &role, &m.JoinedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family member: %w", err)
	}
	m.Role = models.Role(role)
	return m, nil
}

// ListMembers retrieves all members of a family with their user details
func (r *FamilyRepository) ListMembers(familyID string) ([]models.MemberWithUser, error) {
	query := `
		SELECT fm.id, fm.family_id, fm.user_id, fm.role, fm.joined_at, u.name, u.email
		FROM family_members fm
		INNER JOIN users u ON fm.user_id = u.id
		WHERE fm.family_id = ?
		ORDER BY fm.joined_at ASC
	`
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query family members: %w", err)
	}
	defer rows.Close()

	var members []models.MemberWithUser
	for rows.Next() {
		var m models.MemberWithUser
		var role string
		if err := rows.Scan(&m.ID, &m.FamilyID, &m.UserID, &role, &m.JoinedAt, &m.UserName, &m.UserEmail); err != nil {
			return nil, fmt.Errorf("failed to scan family member: %w", err)
		}
		m.Role = models.Role(role)
		members = append(members, m)
	}
	return members, rows.Err()
}

// CountMembers returns the number of members in a family
func (r *FamilyRepository) CountMembers(familyID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM family_members WHERE family_id = ?", familyID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count family members: %w", err)
	}
	return count, nil
}

// AddMember adds a user to a family at the given role
func (r *FamilyRepository) AddMember(familyID, userID string, role models.Role) error {
	query := `INSERT INTO family_members (id, family_id, user_id, role, joined_at) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query, uuid.New().String(), familyID, userID, string(role), time.Now())
	if err != nil {
		return fmt.Errorf("failed to add family member: %w", err)
	}
	return nil
}

// RemoveMember deletes a membership row
func (r *FamilyRepository) RemoveMember(familyID, userID string) error {
	query := `DELETE FROM family_members WHERE family_id = ? AND user_id = ?`
	_, err := r.db.Exec(query, familyID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove family member: %w", err)
	}
	return nil
}

// UpdateMemberRole sets a member's role
func (r *FamilyRepository) UpdateMemberRole(familyID, userID string, role models.Role) error {
	query := `UPDATE family_members SET role = ? WHERE family_id = ? AND user_id = ?`
	_, err := r.db.Exec(query, string(role), familyID, userID)
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}
	return nil
}

// TransferOwnership promotes newOwnerID to owner and demotes currentOwnerID
// to admin in a single transaction, preserving the one-owner invariant even
// under partial failure.
func (r *FamilyRepository) TransferOwnership(familyID, currentOwnerID, newOwnerID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE family_members SET role = ? WHERE family_id = ? AND user_id = ? AND role != ?`,
		string(models.RoleOwner), familyID, newOwnerID, string(models.RoleOwner))
	if err != nil {
		return fmt.Errorf("failed to promote new owner: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("new owner is not a member of the family")
	}

	res, err = tx.Exec(`UPDATE family_members SET role = ? WHERE family_id = ? AND user_id = ? AND role = ?`,
		string(models.RoleAdmin), familyID, currentOwnerID, string(models.RoleOwner))
	if err != nil {
		return fmt.Errorf("failed to demote previous owner: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("current owner membership not found")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
