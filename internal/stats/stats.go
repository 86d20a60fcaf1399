// Package stats computes dashboard statistics from raw transaction and goal
// lists. Everything here is pure: no store access and no wall clock, since
// time only enters through the caller-supplied window.
package stats

import (
	"time"

	"github.com/shopspring/decimal"

	"famledger/internal/models"
)

// Window is the date range statistics are computed over. The zero Window
// means "all": no date filtering.
type Window struct {
	From time.Time
	To   time.Time
}

// All returns the unbounded window.
func All() Window {
	return Window{}
}

// Contains reports whether a date falls inside the window, inclusive on both
// ends. Unset bounds do not constrain.
func (w Window) Contains(d time.Time) bool {
	if !w.From.IsZero() && d.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && d.After(w.To) {
		return false
	}
	return true
}

// Stats is the aggregate view shown on the dashboard.
type Stats struct {
	Income           decimal.Decimal `json:"income"`
	Expenses         decimal.Decimal `json:"expenses"`
	Balance          decimal.Decimal `json:"balance"`
	SavingsRate      decimal.Decimal `json:"savings_rate"`
	ActiveGoals      int             `json:"active_goals"`
	CompletedGoals   int             `json:"completed_goals"`
	TransactionCount int             `json:"transaction_count"`
}

// Compute folds transactions and goals into dashboard statistics for the
// given window. With zero income the savings rate is 0, never NaN.
func Compute(transactions []models.Transaction, goals []models.Goal, window Window) Stats {
	s := Stats{
		Income:      decimal.Zero,
		Expenses:    decimal.Zero,
		Balance:     decimal.Zero,
		SavingsRate: decimal.Zero,
	}

	for _, t := range transactions {
		if !window.Contains(t.Date) {
			continue
		}
		s.TransactionCount++
		switch t.Type {
		case models.TypeIncome:
			s.Income = s.Income.Add(t.Amount)
		case models.TypeExpense:
			s.Expenses = s.Expenses.Add(t.Amount)
		}
	}

	s.Balance = s.Income.Sub(s.Expenses)
	if s.Income.IsPositive() {
		s.SavingsRate = s.Balance.Div(s.Income).Mul(decimal.NewFromInt(100)).Round(2)
	}

	for _, g := range goals {
		if g.IsComplete() {
			s.CompletedGoals++
		} else {
			s.ActiveGoals++
		}
	}

	return s
}

// FilterByAccount keeps only transactions on the given account.
func FilterByAccount(transactions []models.Transaction, accountID string) []models.Transaction {
	var out []models.Transaction
	for _, t := range transactions {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out
}

// FilterByFamily keeps only transactions tagged with the given family.
func FilterByFamily(transactions []models.Transaction, familyID string) []models.Transaction {
	var out []models.Transaction
	for _, t := range transactions {
		if t.FamilyID == familyID {
			out = append(out, t)
		}
	}
	return out
}
