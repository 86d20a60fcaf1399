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

// GoalRepository handles database operations for savings goals
type GoalRepository struct {
	db *database.DB
}

// NewGoalRepository creates a new goal repository
func NewGoalRepository(db *database.DB) *GoalRepository {
	return &GoalRepository{db: db}
}

// CreateGoal inserts a new goal, generating its ID
func (r *GoalRepository) CreateGoal(g *models.Goal) (*models.Goal, error) {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	now := time.Now()
	g.CreatedAt = now
	g.UpdatedAt = now

	query := `INSERT INTO goals (id, name, target_amount, current_amount, deadline, user_id, family_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query, g.ID, g.Name, g.TargetAmount.String(), g.CurrentAmount.String(),
		g.Deadline, g.UserID, nullable(g.FamilyID), g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}
	return g, nil
}

// GetGoalByID retrieves a goal. Returns nil if not found.
func (r *GoalRepository) GetGoalByID(id string) (*models.Goal, error) {
	query := `SELECT id, name, target_amount, current_amount, deadline, user_id, family_id, created_at, updated_at
		FROM goals WHERE id = ?`
	g := &models.Goal{}
	var target, current string
	var familyID sql.NullString
	var deadline sql.NullTime
	err := r.db.QueryRow(query, id).Scan(&g.ID, &g.Name, &target, &current, &deadline,
		&g.UserID, &familyID, &g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	return finishGoal(g, target, current, deadline, familyID)
}

// ListByUser retrieves a user's goals, newest first
func (r *GoalRepository) ListByUser(userID string) ([]models.Goal, error) {
	query := `SELECT id, name, target_amount, current_amount, deadline, user_id, family_id, created_at, updated_at
		FROM goals WHERE user_id = ? ORDER BY created_at DESC`
	return r.queryGoals(query, userID)
}

// ListByFamily retrieves a family's shared goals, newest first
func (r *GoalRepository) ListByFamily(familyID string) ([]models.Goal, error) {
	query := `SELECT id, name, target_amount, current_amount, deadline, user_id, family_id, created_at, updated_at
		FROM goals WHERE family_id = ? ORDER BY created_at DESC`
	return r.queryGoals(query, familyID)
}

func (r *GoalRepository) queryGoals(query string, arg interface{}) ([]models.Goal, error) {
	rows, err := r.db.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	var goals []models.Goal
	for rows.Next() {
		g := &models.Goal{}
		var target, current string
		var familyID sql.NullString
		var deadline sql.NullTime
		if err := rows.Scan(&g.ID, &g.Name, &target, &current, &deadline,
			&g.UserID, &familyID, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goal, err := finishGoal(g, target, current, deadline, familyID)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *goal)
	}
	return goals, rows.Err()
}

// UpdateProgress sets a goal's current amount
func (r *GoalRepository) UpdateProgress(id string, currentAmount decimal.Decimal) error {
	query := `UPDATE goals SET current_amount = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.Exec(query, currentAmount.String(), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update goal progress: %w", err)
	}
	return nil
}

// UpdateGoal updates a goal's name, target and deadline
func (r *GoalRepository) UpdateGoal(id, name string, targetAmount decimal.Decimal, deadline *time.Time) error {
	query := `UPDATE goals SET name = ?, target_amount = ?, deadline = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.Exec(query, name, targetAmount.String(), deadline, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}
	return nil
}

// DeleteGoal removes a goal row
func (r *GoalRepository) DeleteGoal(id string) error {
	_, err := r.db.Exec(`DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	return nil
}

func finishGoal(g *models.Goal, target, current string, deadline sql.NullTime, familyID sql.NullString) (*models.Goal, error) {
	t, err := decimal.NewFromString(target)
	if err != nil {
		return nil, fmt.Errorf("invalid target amount in store: %w", err)
	}
	c, err := decimal.NewFromString(current)
	if err != nil {
		return nil, fmt.Errorf("invalid current amount in store: %w", err)
	}
	g.TargetAmount = t
	g.CurrentAmount = c
	g.FamilyID = familyID.String
	if deadline.Valid {
		d := deadline.Time
		g.Deadline = &d
	}
	return g, nil
}
