package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"famledger/internal/models"
	"famledger/internal/repository"
	"famledger/internal/stats"
	"famledger/internal/validation"
)

var (
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrFamilyPostingsClosed = errors.New("family settings do not allow adding transactions")
)

// TransactionStore is the persistence surface the transaction service needs.
// Implemented by repository.TransactionRepository.
type TransactionStore interface {
	CreateTransaction(t *models.Transaction) (*models.Transaction, error)
	ReplaceTransaction(originalID string, parts []models.Transaction) error
	GetTransactionByID(id string) (*models.Transaction, error)
	ListByUser(userID string, filter repository.TransactionFilter) ([]models.Transaction, error)
	ListByFamily(familyID string, filter repository.TransactionFilter) ([]models.Transaction, error)
	UpdateTransaction(id string, amount decimal.Decimal, categoryID, description string) error
	DeleteTransaction(id string) error
	FindByDescription(userID, accountID, description string) (*models.Transaction, error)
}

// CategoryStore resolves category references.
type CategoryStore interface {
	GetCategoryByID(id string) (*models.Category, error)
}

// AutoSaveConfig supplies the configured auto-save percentage.
// Implemented by repository.SettingsRepository.
type AutoSaveConfig interface {
	AutoSavePercent() int
}

// TransactionService governs transaction creation, listing, updates, splits
// and the auto-save companion entries.
type TransactionService struct {
	transactions TransactionStore
	categories   CategoryStore
	families     *FamilyService
	settings     AutoSaveConfig
}

// NewTransactionService creates a new transaction service
func NewTransactionService(transactions TransactionStore, categories CategoryStore, families *FamilyService, settings AutoSaveConfig) *TransactionService {
	return &TransactionService{
		transactions: transactions,
		categories:   categories,
		families:     families,
		settings:     settings,
	}
}

// CreateTransaction validates and records a new transaction. When a family
// is given the caller must be a member and the family's settings must allow
// adding transactions.
func (s *TransactionService) CreateTransaction(callerID string, t *models.Transaction) (*models.Transaction, error) {
	if err := validation.ValidatePositiveAmount("valor", t.Amount); err != nil {
		return nil, err
	}
	if _, ok := models.ParseTransactionType(string(t.Type)); !ok {
		return nil, validation.ValidationError{Field: "tipo", Message: "must be receita or despesa"}
	}
	if t.CategoryID == "" {
		return nil, validation.ValidationError{Field: "categoria_id", Message: "category is required"}
	}
	category, err := s.categories.GetCategoryByID(t.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	if t.Date.IsZero() {
		t.Date = time.Now()
	}

	if t.FamilyID != "" {
		member, err := s.families.VerifyMembership(t.FamilyID, callerID)
		if err != nil {
			return nil, err
		}
		family, err := s.families.getFamily(t.FamilyID)
		if err != nil {
			return nil, err
		}
		if !family.Settings.AllowAddTransactions && !member.Role.CanManageMembers() {
			return nil, ErrFamilyPostingsClosed
		}
	}

	t.UserID = callerID
	t.Amount = t.Amount.Round(2)

	created, err := s.transactions.CreateTransaction(t)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return created, nil
}

// GetTransaction retrieves a transaction visible to the caller: its owner,
// or any member of its family when the family shares visibility.
func (s *TransactionService) GetTransaction(id, callerID string) (*models.Transaction, error) {
	t, err := s.getTransaction(id)
	if err != nil {
		return nil, err
	}
	if err := s.requireVisible(t, callerID); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTransactions returns the caller's own transactions, optionally
// filtered by date window and account.
func (s *TransactionService) ListTransactions(callerID string, filter repository.TransactionFilter) ([]models.Transaction, error) {
	txns, err := s.transactions.ListByUser(callerID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}

// ListFamilyTransactions returns a family's transactions. Any member may
// read when the family shares visibility; otherwise only owner and admins.
func (s *TransactionService) ListFamilyTransactions(familyID, callerID string, filter repository.TransactionFilter) ([]models.Transaction, error) {
	member, err := s.families.VerifyMembership(familyID, callerID)
	if err != nil {
		return nil, err
	}
	family, err := s.families.getFamily(familyID)
	if err != nil {
		return nil, err
	}
	if !family.Settings.AllowViewAll && !member.Role.CanManageMembers() {
		return nil, ErrNotAuthorized
	}
	txns, err := s.transactions.ListByFamily(familyID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list family transactions: %w", err)
	}
	return txns, nil
}

// UpdateTransaction changes a transaction's mutable fields: amount, category
// and description. Only the transaction's owner may update it.
func (s *TransactionService) UpdateTransaction(id, callerID string, amount decimal.Decimal, categoryID, description string) (*models.Transaction, error) {
	t, err := s.getTransaction(id)
	if err != nil {
		return nil, err
	}
	if t.UserID != callerID {
		return nil, ErrNotAuthorized
	}

	if err := validation.ValidatePositiveAmount("valor", amount); err != nil {
		return nil, err
	}
	if categoryID == "" {
		categoryID = t.CategoryID
	} else {
		category, err := s.categories.GetCategoryByID(categoryID)
		if err != nil {
			return nil, fmt.Errorf("failed to get category: %w", err)
		}
		if category == nil {
			return nil, ErrCategoryNotFound
		}
	}

	if err := s.transactions.UpdateTransaction(id, amount.Round(2), categoryID, description); err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	return s.getTransaction(id)
}

// DeleteTransaction removes a transaction. Owner only.
func (s *TransactionService) DeleteTransaction(id, callerID string) error {
	t, err := s.getTransaction(id)
	if err != nil {
		return err
	}
	if t.UserID != callerID {
		return ErrNotAuthorized
	}
	if err := s.transactions.DeleteTransaction(id); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}

// SplitTransaction replaces a transaction with per-user parts that sum
// exactly to the original amount. Each part inherits the original's type,
// category, date and family; the delete and inserts happen in one store
// transaction. Owner only.
func (s *TransactionService) SplitTransaction(id, callerID string, rules []models.SplitRule) ([]models.Transaction, error) {
	original, err := s.getTransaction(id)
	if err != nil {
		return nil, err
	}
	if original.UserID != callerID {
		return nil, ErrNotAuthorized
	}

	shares, err := stats.ApplySplit(original.Amount, rules)
	if err != nil {
		return nil, validation.ValidationError{Field: "splits", Message: err.Error()}
	}

	// Every target of a family split must belong to the family.
	if original.FamilyID != "" {
		for _, share := range shares {
			if share.UserID == callerID {
				continue
			}
			if _, err := s.families.VerifyMembership(original.FamilyID, share.UserID); err != nil {
				return nil, err
			}
		}
	}

	parts := make([]models.Transaction, len(shares))
	for i, share := range shares {
		desc := original.Description
		if desc == "" {
			desc = "Divisão"
		} else {
			desc = fmt.Sprintf("%s (divisão)", desc)
		}
		parts[i] = models.Transaction{
			UserID:      share.UserID,
			Amount:      share.Amount,
			Type:        original.Type,
			CategoryID:  original.CategoryID,
			Date:        original.Date,
			Description: desc,
			AccountID:   original.AccountID,
			FamilyID:    original.FamilyID,
		}
	}

	if err := s.transactions.ReplaceTransaction(id, parts); err != nil {
		return nil, fmt.Errorf("failed to split transaction: %w", err)
	}
	return parts, nil
}

// AutoSaveOnIncome records a savings companion for an income transaction:
// percent% of the amount, posted as an expense against the savings account.
// A deterministic description keyed by the source transaction's ID serves as
// the duplicate guard, so calling this twice for the same income is a no-op.
// A percent of zero (or an expense source) records nothing.
func (s *TransactionService) AutoSaveOnIncome(sourceID, callerID, savingsAccountID, categoryID string, percent int) (*models.Transaction, error) {
	source, err := s.getTransaction(sourceID)
	if err != nil {
		return nil, err
	}
	if source.UserID != callerID {
		return nil, ErrNotAuthorized
	}
	if source.Type != models.TypeIncome {
		return nil, validation.ValidationError{Field: "tipo", Message: "auto-save applies to income only"}
	}

	if percent <= 0 {
		percent = s.settings.AutoSavePercent()
	}
	if percent <= 0 || percent > 100 {
		return nil, nil
	}

	marker := stats.CompanionDescription(source.ID)
	existing, err := s.transactions.FindByDescription(callerID, savingsAccountID, marker)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing companion: %w", err)
	}
	if existing != nil {
		slog.Debug("auto-save companion already exists", "source_id", source.ID)
		return existing, nil
	}

	companion := &models.Transaction{
		UserID:      callerID,
		Amount:      stats.AutoSaveAmount(source.Amount, percent),
		Type:        models.TypeExpense,
		CategoryID:  categoryID,
		Date:        source.Date,
		Description: marker,
		AccountID:   savingsAccountID,
	}
	created, err := s.transactions.CreateTransaction(companion)
	if err != nil {
		return nil, fmt.Errorf("failed to create auto-save companion: %w", err)
	}
	return created, nil
}

func (s *TransactionService) getTransaction(id string) (*models.Transaction, error) {
	t, err := s.transactions.GetTransactionByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	if t == nil {
		return nil, ErrTransactionNotFound
	}
	return t, nil
}

// requireVisible enforces read access: the owner always sees their own
// transactions; family members see family transactions when the family
// shares visibility, managers always do.
func (s *TransactionService) requireVisible(t *models.Transaction, callerID string) error {
	if t.UserID == callerID {
		return nil
	}
	if t.FamilyID == "" {
		return ErrNotAuthorized
	}
	member, err := s.families.VerifyMembership(t.FamilyID, callerID)
	if err != nil {
		return err
	}
	family, err := s.families.getFamily(t.FamilyID)
	if err != nil {
		return err
	}
	if !family.Settings.AllowViewAll && !member.Role.CanManageMembers() {
		return ErrNotAuthorized
	}
	return nil
}
