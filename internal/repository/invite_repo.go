package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"famledger/internal/database"
	"famledger/internal/models"
)

// InviteRepository handles database operations for family invites
type InviteRepository struct {
	db *database.DB
}

// NewInviteRepository creates a new invite repository
func NewInviteRepository(db *database.DB) *InviteRepository {
	return &InviteRepository{db: db}
}

// CreateInvite inserts a new pending invite. The schema carries a partial
// unique index on pending (family_id, email) rows, so a concurrent duplicate
// surfaces as a constraint error here rather than a silent second invite.
// An invite that expired untouched still holds status 'pending' in the store;
// it is cleared first so the index slot is free for the new invite.
func (r *InviteRepository) CreateInvite(familyID, email string, role models.Role, invitedBy string, expiresAt time.Time) (*models.FamilyInvite, error) {
	invite := &models.FamilyInvite{
		ID:        uuid.New().String(),
		FamilyID:  familyID,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Role:      role,
		Status:    models.InviteStatusPending,
		InvitedBy: invitedBy,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`DELETE FROM family_invites WHERE family_id = ? AND email = ? AND status = ? AND expires_at <= ?`,
		invite.FamilyID, invite.Email, string(models.InviteStatusPending), time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to clear expired invites: %w", err)
	}

	_, err = tx.Exec(`INSERT INTO family_invites (id, family_id, email, role, status, invited_by, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		invite.ID, invite.FamilyID, invite.Email, string(invite.Role),
		string(invite.Status), invite.InvitedBy, invite.CreatedAt, invite.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return invite, nil
}

// GetInviteByID retrieves an invite by ID. Returns nil if not found.
func (r *InviteRepository) GetInviteByID(id string) (*models.FamilyInvite, error) {
	query := `
		SELECT i.id, i.family_id, i.email, i.role, i.status, i.invited_by, i.created_at, i.expires_at, f.name, u.name
		FROM family_invites i
		INNER JOIN families f ON i.family_id = f.id
		LEFT JOIN users u ON i.invited_by = u.id
		WHERE i.id = ?
	`
	invite, err := r.scanInvite(r.db.QueryRow(query, id))
	if err != nil {
		return nil, err
	}
	return invite, nil
}

// HasPendingInvite reports whether a pending, unexpired invite already exists
// for the (familyID, email) pair at the given instant.
func (r *InviteRepository) HasPendingInvite(familyID, email string, now time.Time) (bool, error) {
	query := `SELECT COUNT(*) FROM family_invites WHERE family_id = ? AND email = ? AND status = ? AND expires_at > ?`
	var count int
	err := r.db.QueryRow(query, familyID, strings.ToLower(strings.TrimSpace(email)),
		string(models.InviteStatusPending), now).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check pending invite: %w", err)
	}
	return count > 0, nil
}

// ListPendingByEmail retrieves all pending, unexpired invites addressed to an
// email, with family and inviter names joined.
func (r *InviteRepository) ListPendingByEmail(email string, now time.Time) ([]models.FamilyInvite, error) {
	query := `
		SELECT i.id, i.family_id, i.email, i.role, i.status, i.invited_by, i.created_at, i.expires_at, f.name, u.name
		FROM family_invites i
		INNER JOIN families f ON i.family_id = f.id
		LEFT JOIN users u ON i.invited_by = u.id
		WHERE i.email = ? AND i.status = ? AND i.expires_at > ?
		ORDER BY i.created_at DESC
	`
	rows, err := r.db.Query(query, strings.ToLower(strings.TrimSpace(email)),
		string(models.InviteStatusPending), now)
	if err != nil {
		return nil, fmt.Errorf("failed to query invites: %w", err)
	}
	defer rows.Close()

	var invites []models.FamilyInvite
	for rows.Next() {
		invite, err := r.scanInviteRows(rows)
		if err != nil {
			return nil, err
		}
		invites = append(invites, *invite)
	}
	return invites, rows.Err()
}

// AcceptInvite marks a pending invite accepted and creates the membership row
// in one transaction. The status guard in the UPDATE makes concurrent accepts
// lose cleanly instead of double-inserting members.
func (r *InviteRepository) AcceptInvite(inviteID, userID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE family_invites SET status = ? WHERE id = ? AND status = ?`,
		string(models.InviteStatusAccepted), inviteID, string(models.InviteStatusPending))
	if err != nil {
		return fmt.Errorf("failed to update invite status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("invite is no longer pending")
	}

	var familyID, role string
	err = tx.QueryRow(`SELECT family_id, role FROM family_invites WHERE id = ?`, inviteID).Scan(&familyID, &role)
	if err != nil {
		return fmt.Errorf("failed to read invite: %w", err)
	}

	_, err = tx.Exec(`INSERT INTO family_members (id, family_id, user_id, role, joined_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), familyID, userID, role, time.Now())
	if err != nil {
		return fmt.Errorf("failed to add family member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// MarkAccepted resolves a pending invite as accepted without touching
// membership. Used when the accepting user already belongs to the family.
func (r *InviteRepository) MarkAccepted(inviteID string) error {
	res, err := r.db.Exec(`UPDATE family_invites SET status = ? WHERE id = ? AND status = ?`,
		string(models.InviteStatusAccepted), inviteID, string(models.InviteStatusPending))
	if err != nil {
		return fmt.Errorf("failed to mark invite accepted: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("invite is no longer pending")
	}
	return nil
}

// DeclineInvite marks a pending invite declined
func (r *InviteRepository) DeclineInvite(inviteID string) error {
	res, err := r.db.Exec(`UPDATE family_invites SET status = ? WHERE id = ? AND status = ?`,
		string(models.InviteStatusDeclined), inviteID, string(models.InviteStatusPending))
	if err != nil {
		return fmt.Errorf("failed to decline invite: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("invite is no longer pending")
	}
	return nil
}

// DeleteInvite removes an invite row entirely (inviter-side cancellation)
func (r *InviteRepository) DeleteInvite(inviteID string) error {
	_, err := r.db.Exec(`DELETE FROM family_invites WHERE id = ?`, inviteID)
	if err != nil {
		return fmt.Errorf("failed to delete invite: %w", err)
	}
	return nil
}

func (r *InviteRepository) scanInvite(row *sql.Row) (*models.FamilyInvite, error) {
	invite := &models.FamilyInvite{}
	var role, status string
	var inviterName sql.NullString
	err := row.Scan(&invite.ID, &invite.FamilyID, &invite.Email, &role, &status,
		&invite.InvitedBy, &invite.CreatedAt, &invite.ExpiresAt, &invite.FamilyName, &inviterName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan invite: %w", err)
	}
	invite.Role = models.Role(role)
	invite.Status = models.InviteStatus(status)
	invite.InviterName = inviterName.String
	return invite, nil
}

func (r *InviteRepository) scanInviteRows(rows *sql.Rows) (*models.FamilyInvite, error) {
	invite := &models.FamilyInvite{}
	var role, status string
	var inviterName sql.NullString
	err := rows.Scan(&invite.ID, &invite.FamilyID, &invite.Email, &role, &status,
		&invite.InvitedBy, &invite.CreatedAt, &invite.ExpiresAt, &invite.FamilyName, &inviterName)
	if err != nil {
		return nil, fmt.Errorf("failed to scan invite: %w", err)
	}
	invite.Role = models.Role(role)
	invite.Status = models.InviteStatus(status)
	invite.InviterName = inviterName.String
	return invite, nil
}

// ListByFamily retrieves all invites for a family, most recent first
func (r *InviteRepository) ListByFamily(familyID string) ([]models.FamilyInvite, error) {
	query := `
		SELECT i.id, i.family_id, i.email, i.role, i.status, i.invited_by, i.created_at, i.expires_at, f.name, u.name
		FROM family_invites i
		INNER JOIN families f ON i.family_id = f.id
		LEFT JOIN users u ON i.invited_by = u.id
		WHERE i.family_id = ?
		ORDER BY i.created_at DESC
	`
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invites: %w", err)
	}
	defer rows.Close()

	var invites []models.FamilyInvite
	for rows.Next() {
		invite, err := r.scanInviteRows(rows)
		if err != nil {
			return nil, err
		}
		invites = append(invites, *invite)
	}
	return invites, rows.Err()
}
