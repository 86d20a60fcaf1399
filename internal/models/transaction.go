package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes income from expense entries.
type TransactionType string

const (
	TypeIncome  TransactionType = "receita"
	TypeExpense TransactionType = "despesa"
)

// ParseTransactionType validates a transaction type string.
func ParseTransactionType(s string) (TransactionType, bool) {
	t := TransactionType(s)
	return t, t == TypeIncome || t == TypeExpense
}

// Transaction is a single income or expense entry. A nil-empty FamilyID means
// a personal transaction; a set FamilyID counts it against family aggregates.
//
// ID, UserID, Type, Date, AccountID and FamilyID are fixed at creation;
// only Amount, CategoryID and Description may be updated afterwards.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"valor"`
	Type        TransactionType `json:"tipo"`
	CategoryID  string          `json:"categoria_id"`
	Date        time.Time       `json:"data"`
	Description string          `json:"descricao,omitempty"`
	AccountID   string          `json:"account_id"`
	FamilyID    string          `json:"family_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SplitRule directs a portion of a transaction to one user. Exactly one of
// Percent or Amount must be set.
type SplitRule struct {
	UserID  string           `json:"user_id"`
	Percent *decimal.Decimal `json:"percent,omitempty"`
	Amount  *decimal.Decimal `json:"amount,omitempty"`
}

// Category classifies transactions. A category with an empty UserID is a
// built-in shared category.
type Category struct {
	ID     string          `json:"id"`
	Name   string          `json:"nome"`
	Type   TransactionType `json:"tipo"`
	UserID string          `json:"user_id,omitempty"`
}
