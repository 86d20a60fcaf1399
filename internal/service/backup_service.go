package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"famledger/internal/database"
)

// BackupData is the complete JSON export of the ledger. Refresh tokens are
// deliberately excluded; they are session state, not data.
type BackupData struct {
	Version      string              `json:"version"`
	ExportedAt   time.Time           `json:"exported_at"`
	Users        []UserBackup        `json:"users"`
	Families     []FamilyBackup      `json:"families"`
	Invites      []InviteBackup      `json:"invites"`
	Categories   []CategoryBackup    `json:"categories"`
	Transactions []TransactionBackup `json:"transactions"`
	Goals        []GoalBackup        `json:"goals"`
	Settings     []SettingBackup     `json:"settings"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"password_hash"`
	Name          string    `json:"name"`
	OAuthProvider string    `json:"oauth_provider"`
	OAuthSubject  string    `json:"oauth_subject"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FamilyBackup represents a family record with its memberships
type FamilyBackup struct {
	ID                   string               `json:"id"`
	Name                 string               `json:"name"`
	Description          string               `json:"description"`
	CreatedBy            string               `json:"created_by"`
	AllowViewAll         bool                 `json:"allow_view_all"`
	AllowAddTransactions bool                 `json:"allow_add_transactions"`
	RequireApproval      bool                 `json:"require_approval"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
	Members              []FamilyMemberBackup `json:"members"`
}

// FamilyMemberBackup represents a family member record
type FamilyMemberBackup struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// InviteBackup represents a family invitation record
type InviteBackup struct {
	ID        string    `json:"id"`
	FamilyID  string    `json:"family_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	InvitedBy string    `json:"invited_by"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CategoryBackup represents a category record
type CategoryBackup struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	UserID *string `json:"user_id"`
}

// TransactionBackup represents a transaction record
type TransactionBackup struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Amount      string    `json:"amount"`
	Type        string    `json:"type"`
	CategoryID  string    `json:"category_id"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	AccountID   string    `json:"account_id"`
	FamilyID    *string   `json:"family_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// GoalBackup represents a savings goal record
type GoalBackup struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	TargetAmount  string     `json:"target_amount"`
	CurrentAmount string     `json:"current_amount"`
	Deadline      *time.Time `json:"deadline"`
	UserID        string     `json:"user_id"`
	FamilyID      *string    `json:"family_id"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// SettingBackup represents one settings key/value pair
type SettingBackup struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	return s.ExportToWriter(file)
}

// ExportToWriter exports the database as indented JSON to a writer.
func (s *BackupService) ExportToWriter(w io.Writer) error {
	slog.Info("starting database export")

	backup := &BackupData{
		Version:    "1.0",
		ExportedAt: time.Now(),
	}

	if err := s.exportUsers(backup); err != nil {
		return fmt.Errorf("failed to export users: %w", err)
	}
	if err := s.exportFamilies(backup); err != nil {
		return fmt.Errorf("failed to export families: %w", err)
	}
	if err := s.exportInvites(backup); err != nil {
		return fmt.Errorf("failed to export invites: %w", err)
	}
	if err := s.exportCategories(backup); err != nil {
		return fmt.Errorf("failed to export categories: %w", err)
	}
	if err := s.exportTransactions(backup); err != nil {
		return fmt.Errorf("failed to export transactions: %w", err)
	}
	if err := s.exportGoals(backup); err != nil {
		return fmt.Errorf("failed to export goals: %w", err)
	}
	if err := s.exportSettings(backup); err != nil {
		return fmt.Errorf("failed to export settings: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	slog.Info("database exported",
		"users", len(backup.Users),
		"families", len(backup.Families),
		"invites", len(backup.Invites),
		"transactions", len(backup.Transactions),
		"goals", len(backup.Goals))
	return nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader restores a database from a backup reader. Rows are
// inserted in dependency order so foreign keys hold throughout.
func (s *BackupService) ImportFromReader(reader io.Reader) error {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}

	slog.Info("starting database import", "version", backup.Version, "exported_at", backup.ExportedAt)

	if err := s.importUsers(backup.Users); err != nil {
		return fmt.Errorf("failed to import users: %w", err)
	}
	if err := s.importFamilies(backup.Families); err != nil {
		return fmt.Errorf("failed to import families: %w", err)
	}
	if err := s.importInvites(backup.Invites); err != nil {
		return fmt.Errorf("failed to import invites: %w", err)
	}
	if err := s.importCategories(backup.Categories); err != nil {
		return fmt.Errorf("failed to import categories: %w", err)
	}
	if err := s.importTransactions(backup.Transactions); err != nil {
		return fmt.Errorf("failed to import transactions: %w", err)
	}
	if err := s.importGoals(backup.Goals); err != nil {
		return fmt.Errorf("failed to import goals: %w", err)
	}
	if err := s.importSettings(backup.Settings); err != nil {
		return fmt.Errorf("failed to import settings: %w", err)
	}

	slog.Info("database import completed")
	return nil
}

func (s *BackupService) exportUsers(backup *BackupData) error {
	query := `SELECT id, email, password_hash, name, COALESCE(oauth_provider, ''), COALESCE(oauth_subject, ''), created_at, updated_at FROM users ORDER BY created_at`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u UserBackup
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.OAuthProvider, &u.OAuthSubject, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return err
		}
		backup.Users = append(backup.Users, u)
	}
	return rows.Err()
}

func (s *BackupService) exportFamilies(backup *BackupData) error {
	query := `SELECT id, name, description, created_by, allow_view_all, allow_add_transactions, require_approval, created_at, updated_at FROM families ORDER BY created_at`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var f FamilyBackup
		if err := rows.Scan(&f.ID, &f.Name, &f.Description, &f.CreatedBy, &f.AllowViewAll, &f.AllowAddTransactions, &f.RequireApproval, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return err
		}
		backup.Families = append(backup.Families, f)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range backup.Families {
		memberRows, err := s.db.Query(`SELECT id, user_id, role, joined_at FROM family_members WHERE family_id = ? ORDER BY joined_at`, backup.Families[i].ID)
		if err != nil {
			return err
		}
		for memberRows.Next() {
			var m FamilyMemberBackup
			if err := memberRows.Scan(&m.ID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
				memberRows.Close()
				return err
			}
			backup.Families[i].Members = append(backup.Families[i].Members, m)
		}
		if err := memberRows.Err(); err != nil {
			memberRows.Close()
			return err
		}
		memberRows.Close()
	}
	return nil
}

func (s *BackupService) exportInvites(backup *BackupData) error {
	query := `SELECT id, family_id, email, role, status, invited_by, created_at, expires_at FROM family_invites ORDER BY created_at`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var i InviteBackup
		if err := rows.Scan(&i.ID, &i.FamilyID, &i.Email, &i.Role, &i.Status, &i.InvitedBy, &i.CreatedAt, &i.ExpiresAt); err != nil {
			return err
		}
		backup.Invites = append(backup.Invites, i)
	}
	return rows.Err()
}

func (s *BackupService) exportCategories(backup *BackupData) error {
	rows, err := s.db.Query(`SELECT id, name, type, user_id FROM categories ORDER BY name`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c CategoryBackup
		var userID sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &userID); err != nil {
			return err
		}
		if userID.Valid {
			c.UserID = &userID.String
		}
		backup.Categories = append(backup.Categories, c)
	}
	return rows.Err()
}

func (s *BackupService) exportTransactions(backup *BackupData) error {
	query := `SELECT id, user_id, amount, type, category_id, date, description, account_id, family_id, created_at FROM transactions ORDER BY created_at`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var t TransactionBackup
		var familyID sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.CategoryID, &t.Date, &t.Description, &t.AccountID, &familyID, &t.CreatedAt); err != nil {
			return err
		}
		if familyID.Valid {
			t.FamilyID = &familyID.String
		}
		backup.Transactions = append(backup.Transactions, t)
	}
	return rows.Err()
}

func (s *BackupService) exportGoals(backup *BackupData) error {
	query := `SELECT id, name, target_amount, current_amount, deadline, user_id, family_id, created_at, updated_at FROM goals ORDER BY created_at`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var g GoalBackup
		var deadline sql.NullTime
		var familyID sql.NullString
		if err := rows.Scan(&g.ID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &deadline, &g.UserID, &familyID, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return err
		}
		if deadline.Valid {
			g.Deadline = &deadline.Time
		}
		if familyID.Valid {
			g.FamilyID = &familyID.String
		}
		backup.Goals = append(backup.Goals, g)
	}
	return rows.Err()
}

func (s *BackupService) exportSettings(backup *BackupData) error {
	rows, err := s.db.Query(`SELECT setting_key, setting_value FROM settings ORDER BY setting_key`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var kv SettingBackup
		if err := rows.Scan(&kv.Key, &kv.Value); err != nil {
			return err
		}
		backup.Settings = append(backup.Settings, kv)
	}
	return rows.Err()
}

func (s *BackupService) importUsers(users []UserBackup) error {
	slog.Info("importing users", "count", len(users))
	for _, u := range users {
		query := `INSERT INTO users (id, email, password_hash, name, oauth_provider, oauth_subject, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := s.db.Exec(query, u.ID, u.Email, u.PasswordHash, u.Name, nullIfEmpty(u.OAuthProvider), nullIfEmpty(u.OAuthSubject), u.CreatedAt, u.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import user %s: %w", u.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importFamilies(families []FamilyBackup) error {
	slog.Info("importing families", "count", len(families))
	for _, f := range families {
		query := `INSERT INTO families (id, name, description, created_by, allow_view_all, allow_add_transactions, require_approval, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := s.db.Exec(query, f.ID, f.Name, f.Description, f.CreatedBy, f.AllowViewAll, f.AllowAddTransactions, f.RequireApproval, f.CreatedAt, f.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import family %s: %w", f.ID, err)
		}

		for _, m := range f.Members {
			memberQuery := `INSERT INTO family_members (id, family_id, user_id, role, joined_at) VALUES (?, ?, ?, ?, ?)`
			_, err := s.db.Exec(memberQuery, m.ID, f.ID, m.UserID, m.Role, m.JoinedAt)
			if err != nil {
				return fmt.Errorf("failed to import member %s of family %s: %w", m.UserID, f.ID, err)
			}
		}
	}
	return nil
}

func (s *BackupService) importInvites(invites []InviteBackup) error {
	slog.Info("importing invites", "count", len(invites))
	for _, i := range invites {
		query := `INSERT INTO family_invites (id, family_id, email, role, status, invited_by, created_at, expires_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := s.db.Exec(query, i.ID, i.FamilyID, i.Email, i.Role, i.Status, i.InvitedBy, i.CreatedAt, i.ExpiresAt)
		if err != nil {
			return fmt.Errorf("failed to import invite %s: %w", i.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importCategories(categories []CategoryBackup) error {
	slog.Info("importing categories", "count", len(categories))
	for _, c := range categories {
		var userID interface{}
		if c.UserID != nil {
			userID = *c.UserID
		}
		_, err := s.db.Exec(`INSERT INTO categories (id, name, type, user_id) VALUES (?, ?, ?, ?)`, c.ID, c.Name, c.Type, userID)
		if err != nil {
			return fmt.Errorf("failed to import category %s: %w", c.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importTransactions(transactions []TransactionBackup) error {
	slog.Info("importing transactions", "count", len(transactions))
	for _, t := range transactions {
		var familyID interface{}
		if t.FamilyID != nil {
			familyID = *t.FamilyID
		}
		query := `INSERT INTO transactions (id, user_id, amount, type, category_id, date, description, account_id, family_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := s.db.Exec(query, t.ID, t.UserID, t.Amount, t.Type, t.CategoryID, t.Date, t.Description, t.AccountID, familyID, t.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to import transaction %s: %w", t.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importGoals(goals []GoalBackup) error {
	slog.Info("importing goals", "count", len(goals))
	for _, g := range goals {
		var deadline interface{}
		if g.Deadline != nil {
			deadline = *g.Deadline
		}
		var familyID interface{}
		if g.FamilyID != nil {
			familyID = *g.FamilyID
		}
		query := `INSERT INTO goals (id, name, target_amount, current_amount, deadline, user_id, family_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := s.db.Exec(query, g.ID, g.Name, g.TargetAmount, g.CurrentAmount, deadline, g.UserID, familyID, g.CreatedAt, g.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import goal %s: %w", g.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importSettings(settings []SettingBackup) error {
	slog.Info("importing settings", "count", len(settings))
	for _, kv := range settings {
		if _, err := s.db.Exec(s.db.Dialect.UpsertSettings(), kv.Key, kv.Value); err != nil {
			return fmt.Errorf("failed to import setting %s: %w", kv.Key, err)
		}
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
