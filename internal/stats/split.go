package stats

import (
	"fmt"

	"github.com/shopspring/decimal"

	"famledger/internal/models"
)

// Share is one user's portion of a split transaction.
type Share struct {
	UserID string
	Amount decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// ApplySplit partitions a transaction amount across the given rules. Each
// rule carries either a percentage of the total or a fixed amount. Shares are
// rounded to the cent; the first share absorbs any rounding drift so that the
// shares always sum exactly to the input amount.
func ApplySplit(total decimal.Decimal, rules []models.SplitRule) ([]Share, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("at least one split rule is required")
	}
	if !total.IsPositive() {
		return nil, fmt.Errorf("split amount must be positive")
	}

	shares := make([]Share, len(rules))
	percentSum := decimal.Zero
	for i, rule := range rules {
		if (rule.Percent == nil) == (rule.Amount == nil) {
			return nil, fmt.Errorf("rule %d: exactly one of percent or amount must be set", i)
		}
		var amount decimal.Decimal
		if rule.Percent != nil {
			if !rule.Percent.IsPositive() || rule.Percent.GreaterThan(hundred) {
				return nil, fmt.Errorf("rule %d: percent must be in (0, 100]", i)
			}
			percentSum = percentSum.Add(*rule.Percent)
			amount = total.Mul(*rule.Percent).Div(hundred).Round(2)
		} else {
			if !rule.Amount.IsPositive() {
				return nil, fmt.Errorf("rule %d: amount must be positive", i)
			}
			amount = rule.Amount.Round(2)
		}
		shares[i] = Share{UserID: rule.UserID, Amount: amount}
	}
	if percentSum.GreaterThan(hundred) {
		return nil, fmt.Errorf("split percentages exceed 100")
	}

	// Force the partition to be exact: the first share takes whatever the
	// rounded tail leaves of the total.
	rest := decimal.Zero
	for _, s := range shares[1:] {
		rest = rest.Add(s.Amount)
	}
	first := total.Sub(rest)
	if !first.IsPositive() {
		return nil, fmt.Errorf("split rules exceed the transaction amount")
	}
	shares[0].Amount = first

	return shares, nil
}

// AutoSaveAmount returns percent% of an income amount, rounded to the cent.
func AutoSaveAmount(amount decimal.Decimal, percent int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(percent))).Div(hundred).Round(2)
}

// CompanionDescription builds the deterministic description that marks an
// auto-save companion transaction, keyed by the source transaction's ID. The
// duplicate guard looks this exact string up before inserting.
func CompanionDescription(sourceTransactionID string) string {
	return fmt.Sprintf("Poupança automática [ref:%s]", sourceTransactionID)
}
