package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"famledger/internal/models"
	"famledger/internal/validation"
)

var ErrGoalNotFound = errors.New("goal not found")

// GoalStore is the persistence surface the goal service needs.
// Implemented by repository.GoalRepository.
type GoalStore interface {
	CreateGoal(g *models.Goal) (*models.Goal, error)
	GetGoalByID(id string) (*models.Goal, error)
	ListByUser(userID string) ([]models.Goal, error)
	ListByFamily(familyID string) ([]models.Goal, error)
	UpdateProgress(id string, currentAmount decimal.Decimal) error
	UpdateGoal(id, name string, targetAmount decimal.Decimal, deadline *time.Time) error
	DeleteGoal(id string) error
}

// GoalService governs savings goals and their progress.
type GoalService struct {
	goals    GoalStore
	families *FamilyService
}

// NewGoalService creates a new goal service
func NewGoalService(goals GoalStore, families *FamilyService) *GoalService {
	return &GoalService{goals: goals, families: families}
}

// CreateGoal validates and records a new savings goal. A goal may be shared
// with a family the caller belongs to.
func (s *GoalService) CreateGoal(callerID string, g *models.Goal) (*models.Goal, error) {
	if err := validation.ValidateName("nome", g.Name); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositiveAmount("valor_objetivo", g.TargetAmount); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegativeAmount("valor_atual", g.CurrentAmount); err != nil {
		return nil, err
	}
	if g.FamilyID != "" {
		if _, err := s.families.VerifyMembership(g.FamilyID, callerID); err != nil {
			return nil, err
		}
	}

	g.UserID = callerID
	g.TargetAmount = g.TargetAmount.Round(2)
	g.CurrentAmount = g.CurrentAmount.Round(2)

	created, err := s.goals.CreateGoal(g)
	if err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}
	return created, nil
}

// GetGoal retrieves a goal owned by the caller
func (s *GoalService) GetGoal(id, callerID string) (*models.Goal, error) {
	return s.requireOwned(id, callerID)
}

// ListGoals retrieves all of the caller's goals
func (s *GoalService) ListGoals(callerID string) ([]models.Goal, error) {
	goals, err := s.goals.ListByUser(callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	return goals, nil
}

// AddProgress adjusts a goal's saved amount by a delta, which may be
// negative for withdrawals. The stored amount never drops below zero.
func (s *GoalService) AddProgress(id, callerID string, delta decimal.Decimal) (*models.Goal, error) {
	goal, err := s.requireOwned(id, callerID)
	if err != nil {
		return nil, err
	}

	next := goal.CurrentAmount.Add(delta).Round(2)
	if next.IsNegative() {
		next = decimal.Zero
	}
	if err := s.goals.UpdateProgress(id, next); err != nil {
		return nil, fmt.Errorf("failed to update goal progress: %w", err)
	}

	goal.CurrentAmount = next
	return goal, nil
}

// UpdateGoal changes a goal's name, target and deadline.
func (s *GoalService) UpdateGoal(id, callerID, name string, targetAmount decimal.Decimal, deadline *time.Time) (*models.Goal, error) {
	goal, err := s.requireOwned(id, callerID)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = goal.Name
	}
	if err := validation.ValidateName("nome", name); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositiveAmount("valor_objetivo", targetAmount); err != nil {
		return nil, err
	}

	if err := s.goals.UpdateGoal(id, name, targetAmount.Round(2), deadline); err != nil {
		return nil, fmt.Errorf("failed to update goal: %w", err)
	}
	return s.requireOwned(id, callerID)
}

// DeleteGoal removes a goal. Owner only.
func (s *GoalService) DeleteGoal(id, callerID string) error {
	if _, err := s.requireOwned(id, callerID); err != nil {
		return err
	}
	if err := s.goals.DeleteGoal(id); err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	return nil
}

func (s *GoalService) requireOwned(id, callerID string) (*models.Goal, error) {
	goal, err := s.goals.GetGoalByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	if goal == nil {
		return nil, ErrGoalNotFound
	}
	if goal.UserID != callerID {
		return nil, ErrNotAuthorized
	}
	return goal, nil
}
