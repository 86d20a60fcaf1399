package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"famledger/internal/database"
	"famledger/internal/models"
)

// TransactionRepository handles database operations for transactions
type TransactionRepository struct {
	db *database.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// TransactionFilter narrows list queries. Zero values mean no filter.
type TransactionFilter struct {
	From      time.Time
	To        time.Time
	AccountID string
	FamilyID  string
}

// CreateTransaction inserts a new transaction, generating its ID
func (r *TransactionRepository) CreateTransaction(t *models.Transaction) (*models.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	query := `INSERT INTO transactions (id, user_id, amount, type, category_id, date, description, account_id, family_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query, t.ID, t.UserID, t.Amount.String(), string(t.Type), t.CategoryID,
		t.Date, t.Description, t.AccountID, nullable(t.FamilyID), t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return t, nil
}

// ReplaceTransaction deletes the original transaction and inserts its split
// parts in one transaction, so the total never double-counts mid-split.
func (r *TransactionRepository) ReplaceTransaction(originalID string, parts []models.Transaction) error {
	dbtx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	if _, err := dbtx.Exec(`DELETE FROM transactions WHERE id = ?`, originalID); err != nil {
		return fmt.Errorf("failed to delete original transaction: %w", err)
	}

	query := `INSERT INTO transactions (id, user_id, amount, type, category_id, date, description, account_id, family_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for i := range parts {
		t := &parts[i]
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now()
		}
		_, err := dbtx.Exec(query, t.ID, t.UserID, t.Amount.String(), string(t.Type), t.CategoryID,
			t.Date, t.Description, t.AccountID, nullable(t.FamilyID), t.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert split part: %w", err)
		}
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetTransactionByID retrieves a transaction. Returns nil if not found.
func (r *TransactionRepository) GetTransactionByID(id string) (*models.Transaction, error) {
	query := `SELECT id, user_id, amount, type, category_id, date, description, account_id, family_id, created_at
		FROM transactions WHERE id = ?`
	return scanTransaction(r.db.QueryRow(query, id))
}

// ListByUser retrieves a user's transactions, newest first, applying the filter
func (r *TransactionRepository) ListByUser(userID string, filter TransactionFilter) ([]models.Transaction, error) {
	query := `SELECT id, user_id, amount, type, category_id, date, description, account_id, family_id, created_at
		FROM transactions WHERE user_id = ?`
	args := []interface{}{userID}
	query, args = applyFilter(query, args, filter)
	query += " ORDER BY date DESC, created_at DESC"

	return r.queryTransactions(query, args)
}

// ListByFamily retrieves all transactions tagged with a family
func (r *TransactionRepository) ListByFamily(familyID string, filter TransactionFilter) ([]models.Transaction, error) {
	query := `SELECT id, user_id, amount, type, category_id, date, description, account_id, family_id, created_at
		FROM transactions WHERE family_id = ?`
	args := []interface{}{familyID}
	filter.FamilyID = ""
	query, args = applyFilter(query, args, filter)
	query += " ORDER BY date DESC, created_at DESC"

	return r.queryTransactions(query, args)
}

// UpdateTransaction updates the mutable fields: amount, category, description
func (r *TransactionRepository) UpdateTransaction(id string, amount decimal.Decimal, categoryID, description string) error {
	query := `UPDATE transactions SET amount = ?, category_id = ?, description = ? WHERE id = ?`
	_, err := r.db.Exec(query, amount.String(), categoryID, description, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return nil
}

// DeleteTransaction removes a transaction row
func (r *TransactionRepository) DeleteTransaction(id string) error {
	_, err := r.db.Exec(`DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}

// FindByDescription looks up a user's transaction with an exact description
// on an account. Used as the duplicate guard for auto-save companions.
// Returns nil if no such transaction exists.
func (r *TransactionRepository) FindByDescription(userID, accountID, description string) (*models.Transaction, error) {
	query := `SELECT id, user_id, amount, type, category_id, date, description, account_id, family_id, created_at
		FROM transactions WHERE user_id = ? AND account_id = ? AND description = ?`
	return scanTransaction(r.db.QueryRow(query, userID, accountID, description))
}

func (r *TransactionRepository) queryTransactions(query string, args []interface{}) ([]models.Transaction, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		t, err := scanTransactionRows(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

func applyFilter(query string, args []interface{}, filter TransactionFilter) (string, []interface{}) {
	if !filter.From.IsZero() {
		query += " AND date >= ?"
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		query += " AND date <= ?"
		args = append(args, filter.To)
	}
	if filter.AccountID != "" {
		query += " AND account_id = ?"
		args = append(args, filter.AccountID)
	}
	if filter.FamilyID != "" {
		query += " AND family_id = ?"
		args = append(args, filter.FamilyID)
	}
	return query, args
}

func scanTransaction(row *sql.Row) (*models.Transaction, error) {
	t := &models.Transaction{}
	var amount, txType string
	var familyID sql.NullString
	err := row.Scan(&t.ID, &t.UserID, &amount, &txType, &t.CategoryID, &t.Date,
		&t.Description, &t.AccountID, &familyID, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return finishTransaction(t, amount, txType, familyID)
}

func scanTransactionRows(rows *sql.Rows) (*models.Transaction, error) {
	t := &models.Transaction{}
	var amount, txType string
	var familyID sql.NullString
	err := rows.Scan(&t.ID, &t.UserID, &amount, &txType, &t.CategoryID, &t.Date,
		&t.Description, &t.AccountID, &familyID, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return finishTransaction(t, amount, txType, familyID)
}

func finishTransaction(t *models.Transaction, amount, txType string, familyID sql.NullString) (*models.Transaction, error) {
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount in store: %w", err)
	}
	t.Amount = value
	t.Type = models.TransactionType(txType)
	t.FamilyID = familyID.String
	return t, nil
}

// nullable maps an empty string to NULL for optional foreign keys
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
