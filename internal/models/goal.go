package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Goal is a savings target. Completion is always derived from the current
// amounts; there is no stored completion flag to drift out of sync.
type Goal struct {
	ID            string          `json:"id"`
	Name          string          `json:"nome"`
	TargetAmount  decimal.Decimal `json:"valor_objetivo"`
	CurrentAmount decimal.Decimal `json:"valor_atual"`
	Deadline      *time.Time      `json:"prazo,omitempty"`
	UserID        string          `json:"user_id"`
	FamilyID      string          `json:"family_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsComplete reports whether the goal has been reached.
func (g *Goal) IsComplete() bool {
	return g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
}

// Progress returns completion as a percentage, capped at 100.
func (g *Goal) Progress() decimal.Decimal {
	if g.TargetAmount.IsZero() {
		return decimal.Zero
	}
	pct := g.CurrentAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100))
	hundred := decimal.NewFromInt(100)
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}
