package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"famledger/internal/models"
	"famledger/internal/repository"
	"famledger/internal/stats"
)

// fakeTransactionStore is an in-memory TransactionStore.
type fakeTransactionStore struct {
	txns   map[string]*models.Transaction
	nextID int
}

func newFakeTransactionStore() *fakeTransactionStore {
	return &fakeTransactionStore{txns: make(map[string]*models.Transaction)}
}

func (f *fakeTransactionStore) CreateTransaction(t *models.Transaction) (*models.Transaction, error) {
	f.nextID++
	cp := *t
	cp.ID = fmt.Sprintf("txn-%d", f.nextID)
	cp.CreatedAt = time.Now()
	f.txns[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeTransactionStore) ReplaceTransaction(originalID string, parts []models.Transaction) error {
	if _, ok := f.txns[originalID]; !ok {
		return errors.New("no such transaction")
	}
	delete(f.txns, originalID)
	for i := range parts {
		if _, err := f.CreateTransaction(&parts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeTransactionStore) GetTransactionByID(id string) (*models.Transaction, error) {
	t, ok := f.txns[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTransactionStore) ListByUser(userID string, filter repository.TransactionFilter) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, t := range f.txns {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTransactionStore) ListByFamily(familyID string, filter repository.TransactionFilter) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, t := range f.txns {
		if t.FamilyID == familyID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTransactionStore) UpdateTransaction(id string, amount decimal.Decimal, categoryID, description string) error {
	t, ok := f.txns[id]
	if !ok {
		return errors.New("no such transaction")
	}
	t.Amount = amount
	t.CategoryID = categoryID
	t.Description = description
	return nil
}

func (f *fakeTransactionStore) DeleteTransaction(id string) error {
	delete(f.txns, id)
	return nil
}

func (f *fakeTransactionStore) FindByDescription(userID, accountID, description string) (*models.Transaction, error) {
	for _, t := range f.txns {
		if t.UserID == userID && t.AccountID == accountID && t.Description == description {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

// fakeCategoryStore knows a fixed set of category IDs.
type fakeCategoryStore struct {
	ids map[string]bool
}

func (f *fakeCategoryStore) GetCategoryByID(id string) (*models.Category, error) {
	if !f.ids[id] {
		return nil, nil
	}
	return &models.Category{ID: id, Name: id, Type: models.TypeExpense}, nil
}

type fixedPercent int

func (p fixedPercent) AutoSavePercent() int { return int(p) }

func newTestTransactions(t *testing.T) (*TransactionService, *fakeTransactionStore, *models.Family, *FamilyService) {
	t.Helper()
	familySvc, _, fam := newTestFamily(t)
	store := newFakeTransactionStore()
	categories := &fakeCategoryStore{ids: map[string]bool{"cat-food": true, "cat-salary": true, "cat-savings": true}}
	svc := NewTransactionService(store, categories, familySvc, fixedPercent(10))
	return svc, store, fam, familySvc
}

func expenseTxn(amount string) *models.Transaction {
	return &models.Transaction{
		Amount:     decimal.RequireFromString(amount),
		Type:       models.TypeExpense,
		CategoryID: "cat-food",
		AccountID:  "acc-1",
	}
}

func TestCreateTransaction(t *testing.T) {
	svc, _, fam, _ := newTestTransactions(t)

	created, err := svc.CreateTransaction("member", expenseTxn("12.345"))
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if created.UserID != "member" {
		t.Errorf("UserID = %q, want the caller", created.UserID)
	}
	if !created.Amount.Equal(decimal.RequireFromString("12.35")) {
		t.Errorf("amount = %s, want rounded to cents", created.Amount)
	}
	if created.Date.IsZero() {
		t.Error("zero date should default to now")
	}

	t.Run("rejects zero amount", func(t *testing.T) {
		if _, err := svc.CreateTransaction("member", expenseTxn("0")); err == nil {
			t.Error("zero amount should be rejected")
		}
	})
	t.Run("rejects unknown type", func(t *testing.T) {
		txn := expenseTxn("10")
		txn.Type = "transfer"
		if _, err := svc.CreateTransaction("member", txn); err == nil {
			t.Error("unknown type should be rejected")
		}
	})
	t.Run("rejects unknown category", func(t *testing.T) {
		txn := expenseTxn("10")
		txn.CategoryID = "cat-missing"
		if _, err := svc.CreateTransaction("member", txn); !errors.Is(err, ErrCategoryNotFound) {
			t.Errorf("error = %v, want ErrCategoryNotFound", err)
		}
	})
	t.Run("rejects non-member family posting", func(t *testing.T) {
		txn := expenseTxn("10")
		txn.FamilyID = fam.ID
		if _, err := svc.CreateTransaction("stranger", txn); !errors.Is(err, ErrNotFamilyMember) {
			t.Errorf("error = %v, want ErrNotFamilyMember", err)
		}
	})
}

func TestCreateTransactionFamilySettings(t *testing.T) {
	svc, _, fam, familySvc := newTestTransactions(t)

	closed := models.DefaultFamilySettings()
	closed.AllowAddTransactions = false
	if _, err := familySvc.UpdateFamily(fam.ID, "owner", "", "", &closed); err != nil {
		t.Fatalf("UpdateFamily: %v", err)
	}

	txn := expenseTxn("10")
	txn.FamilyID = fam.ID
	if _, err := svc.CreateTransaction("member", txn); !errors.Is(err, ErrFamilyPostingsClosed) {
		t.Errorf("member posting error = %v, want ErrFamilyPostingsClosed", err)
	}

	// Owners and admins post regardless of the setting.
	txn = expenseTxn("10")
	txn.FamilyID = fam.ID
	if _, err := svc.CreateTransaction("admin", txn); err != nil {
		t.Errorf("admin posting: %v", err)
	}
}

func TestGetTransactionVisibility(t *testing.T) {
	svc, _, fam, familySvc := newTestTransactions(t)

	personal, err := svc.CreateTransaction("member", expenseTxn("10"))
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	famTxn := expenseTxn("20")
	famTxn.FamilyID = fam.ID
	shared, err := svc.CreateTransaction("member", famTxn)
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	if _, err := svc.GetTransaction(personal.ID, "member"); err != nil {
		t.Errorf("owner read: %v", err)
	}
	if _, err := svc.GetTransaction(personal.ID, "viewer"); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("personal read by other error = %v, want ErrNotAuthorized", err)
	}
	if _, err := svc.GetTransaction(shared.ID, "viewer"); err != nil {
		t.Errorf("family read with AllowViewAll: %v", err)
	}

	private := models.DefaultFamilySettings()
	private.AllowViewAll = false
	if _, err := familySvc.UpdateFamily(fam.ID, "owner", "", "", &private); err != nil {
		t.Fatalf("UpdateFamily: %v", err)
	}
	if _, err := svc.GetTransaction(shared.ID, "viewer"); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("family read without AllowViewAll error = %v, want ErrNotAuthorized", err)
	}
	if _, err := svc.GetTransaction(shared.ID, "admin"); err != nil {
		t.Errorf("manager read without AllowViewAll: %v", err)
	}
}

func TestUpdateAndDeleteOwnerOnly(t *testing.T) {
	svc, store, _, _ := newTestTransactions(t)

	txn, err := svc.CreateTransaction("member", expenseTxn("10"))
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	if _, err := svc.UpdateTransaction(txn.ID, "admin", decimal.NewFromInt(5), "", ""); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("non-owner update error = %v, want ErrNotAuthorized", err)
	}
	updated, err := svc.UpdateTransaction(txn.ID, "member", decimal.NewFromInt(5), "", "groceries")
	if err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if updated.CategoryID != "cat-food" {
		t.Errorf("empty category should keep the original, got %q", updated.CategoryID)
	}
	if updated.Description != "groceries" {
		t.Errorf("description = %q, want %q", updated.Description, "groceries")
	}

	if err := svc.DeleteTransaction(txn.ID, "admin"); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("non-owner delete error = %v, want ErrNotAuthorized", err)
	}
	if err := svc.DeleteTransaction(txn.ID, "member"); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if got, _ := store.GetTransactionByID(txn.ID); got != nil {
		t.Error("transaction should be gone")
	}
}

func TestSplitTransaction(t *testing.T) {
	svc, store, fam, _ := newTestTransactions(t)

	famTxn := expenseTxn("90")
	famTxn.FamilyID = fam.ID
	famTxn.Description = "Jantar"
	txn, err := svc.CreateTransaction("member", famTxn)
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	third := decimal.RequireFromString("33.34")
	rest := decimal.RequireFromString("33.33")
	rules := []models.SplitRule{
		{UserID: "member", Percent: &third},
		{UserID: "admin", Percent: &rest},
		{UserID: "viewer", Percent: &rest},
	}

	if _, err := svc.SplitTransaction(txn.ID, "admin", rules); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("non-owner split error = %v, want ErrNotAuthorized", err)
	}

	parts, err := svc.SplitTransaction(txn.ID, "member", rules)
	if err != nil {
		t.Fatalf("SplitTransaction: %v", err)
	}
	if len(parts) != 3 {
		t.Fatalf("got %d parts, want 3", len(parts))
	}

	sum := decimal.Zero
	for _, p := range parts {
		sum = sum.Add(p.Amount)
		if p.FamilyID != fam.ID || p.CategoryID != txn.CategoryID || p.Type != txn.Type {
			t.Errorf("part %+v should inherit family, category and type", p)
		}
		if p.Description != "Jantar (divisão)" {
			t.Errorf("part description = %q", p.Description)
		}
	}
	if !sum.Equal(txn.Amount) {
		t.Errorf("parts sum to %s, want %s", sum, txn.Amount)
	}
	if got, _ := store.GetTransactionByID(txn.ID); got != nil {
		t.Error("original should be replaced")
	}
}

func TestSplitRejectsOutsiderTarget(t *testing.T) {
	svc, _, fam, _ := newTestTransactions(t)

	famTxn := expenseTxn("50")
	famTxn.FamilyID = fam.ID
	txn, err := svc.CreateTransaction("member", famTxn)
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	half := decimal.RequireFromString("50")
	rules := []models.SplitRule{
		{UserID: "member", Percent: &half},
		{UserID: "stranger", Percent: &half},
	}
	if _, err := svc.SplitTransaction(txn.ID, "member", rules); !errors.Is(err, ErrNotFamilyMember) {
		t.Errorf("error = %v, want ErrNotFamilyMember", err)
	}
}

func TestAutoSaveOnIncome(t *testing.T) {
	svc, _, _, _ := newTestTransactions(t)

	income := &models.Transaction{
		Amount:     decimal.RequireFromString("1000"),
		Type:       models.TypeIncome,
		CategoryID: "cat-salary",
		AccountID:  "acc-1",
	}
	src, err := svc.CreateTransaction("member", income)
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	companion, err := svc.AutoSaveOnIncome(src.ID, "member", "acc-savings", "cat-savings", 0)
	if err != nil {
		t.Fatalf("AutoSaveOnIncome: %v", err)
	}
	if companion == nil {
		t.Fatal("expected a companion transaction")
	}
	// Percent falls back to the configured 10.
	if !companion.Amount.Equal(decimal.RequireFromString("100")) {
		t.Errorf("companion amount = %s, want 100", companion.Amount)
	}
	if companion.Type != models.TypeExpense {
		t.Errorf("companion type = %q, want despesa", companion.Type)
	}
	if companion.AccountID != "acc-savings" {
		t.Errorf("companion account = %q", companion.AccountID)
	}
	if companion.Description != stats.CompanionDescription(src.ID) {
		t.Errorf("companion description = %q", companion.Description)
	}

	// Second call finds the existing companion instead of double-saving.
	again, err := svc.AutoSaveOnIncome(src.ID, "member", "acc-savings", "cat-savings", 0)
	if err != nil {
		t.Fatalf("second AutoSaveOnIncome: %v", err)
	}
	if again.ID != companion.ID {
		t.Errorf("second call created %q, want existing %q", again.ID, companion.ID)
	}
	all, _ := svc.ListTransactions("member", repository.TransactionFilter{})
	if len(all) != 2 {
		t.Errorf("got %d transactions, want income plus one companion", len(all))
	}
}

func TestAutoSaveSkipsExpenseAndDisabled(t *testing.T) {
	svc, store, _, _ := newTestTransactions(t)

	expense, err := svc.CreateTransaction("member", expenseTxn("100"))
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if _, err := svc.AutoSaveOnIncome(expense.ID, "member", "acc-savings", "cat-savings", 10); err == nil {
		t.Error("auto-save on an expense should be rejected")
	}

	income := &models.Transaction{
		Amount:     decimal.RequireFromString("100"),
		Type:       models.TypeIncome,
		CategoryID: "cat-salary",
		AccountID:  "acc-1",
	}
	src, err := svc.CreateTransaction("member", income)
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	// Configured percent of zero disables auto-save entirely.
	disabled := NewTransactionService(store, &fakeCategoryStore{ids: map[string]bool{"cat-savings": true}}, nil, fixedPercent(0))
	companion, err := disabled.AutoSaveOnIncome(src.ID, "member", "acc-savings", "cat-savings", 0)
	if err != nil {
		t.Fatalf("AutoSaveOnIncome: %v", err)
	}
	if companion != nil {
		t.Errorf("expected no companion, got %+v", companion)
	}
}
