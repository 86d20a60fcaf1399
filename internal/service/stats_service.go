package service

import (
	"fmt"

	"famledger/internal/repository"
	"famledger/internal/stats"
)

// StatsService assembles dashboard aggregates. All arithmetic lives in the
// stats package; this service only fetches the inputs and applies access
// checks.
type StatsService struct {
	transactions TransactionStore
	goals        GoalStore
	families     *FamilyService
}

// NewStatsService creates a new stats service
func NewStatsService(transactions TransactionStore, goals GoalStore, families *FamilyService) *StatsService {
	return &StatsService{
		transactions: transactions,
		goals:        goals,
		families:     families,
	}
}

// UserStats computes the caller's dashboard numbers over a window,
// optionally narrowed to one account.
func (s *StatsService) UserStats(callerID string, window stats.Window, accountID string) (*stats.Stats, error) {
	filter := repository.TransactionFilter{From: window.From, To: window.To, AccountID: accountID}
	txns, err := s.transactions.ListByUser(callerID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	goals, err := s.goals.ListByUser(callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}

	result := stats.Compute(txns, goals, window)
	return &result, nil
}

// FamilyStats computes a family's dashboard numbers. Subject to the same
// visibility rule as listing family transactions.
func (s *StatsService) FamilyStats(familyID, callerID string, window stats.Window) (*stats.Stats, error) {
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

	filter := repository.TransactionFilter{From: window.From, To: window.To}
	txns, err := s.transactions.ListByFamily(familyID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list family transactions: %w", err)
	}

	// Family goals only; personal goals stay personal.
	familyGoals, err := s.goals.ListByFamily(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list family goals: %w", err)
	}

	result := stats.Compute(txns, familyGoals, window)
	return &result, nil
}
