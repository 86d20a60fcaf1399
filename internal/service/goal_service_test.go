package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"famledger/internal/models"
)

type fakeGoalStore struct {
	goals  map[string]*models.Goal
	nextID int
}

func newFakeGoalStore() *fakeGoalStore {
	return &fakeGoalStore{goals: make(map[string]*models.Goal)}
}

func (f *fakeGoalStore) CreateGoal(g *models.Goal) (*models.Goal, error) {
	f.nextID++
	cp := *g
	cp.ID = fmt.Sprintf("goal-%d", f.nextID)
	f.goals[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeGoalStore) GetGoalByID(id string) (*models.Goal, error) {
	g, ok := f.goals[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (f *fakeGoalStore) ListByUser(userID string) ([]models.Goal, error) {
	var out []models.Goal
	for _, g := range f.goals {
		if g.UserID == userID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (f *fakeGoalStore) ListByFamily(familyID string) ([]models.Goal, error) {
	var out []models.Goal
	for _, g := range f.goals {
		if g.FamilyID == familyID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (f *fakeGoalStore) UpdateProgress(id string, currentAmount decimal.Decimal) error {
	g, ok := f.goals[id]
	if !ok {
		return errors.New("no such goal")
	}
	g.CurrentAmount = currentAmount
	return nil
}

func (f *fakeGoalStore) UpdateGoal(id, name string, targetAmount decimal.Decimal, deadline *time.Time) error {
	g, ok := f.goals[id]
	if !ok {
		return errors.New("no such goal")
	}
	g.Name = name
	g.TargetAmount = targetAmount
	g.Deadline = deadline
	return nil
}

func (f *fakeGoalStore) DeleteGoal(id string) error {
	delete(f.goals, id)
	return nil
}

// newTestGoals builds a goal service over fake stores, with the standard
// four-member family available for family-scoped goals.
func newTestGoals(t *testing.T) (*GoalService, *models.Family) {
	t.Helper()
	families, _, fam := newTestFamily(t)
	return NewGoalService(newFakeGoalStore(), families), fam
}

func newGoal(target, current string) *models.Goal {
	return &models.Goal{
		Name:          "Férias",
		TargetAmount:  decimal.RequireFromString(target),
		CurrentAmount: decimal.RequireFromString(current),
	}
}

func TestCreateGoal(t *testing.T) {
	svc, _ := newTestGoals(t)

	goal, err := svc.CreateGoal("user-1", newGoal("1000.005", "0"))
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if goal.UserID != "user-1" {
		t.Errorf("UserID = %q, want the caller", goal.UserID)
	}
	if !goal.TargetAmount.Equal(decimal.RequireFromString("1000.01")) {
		t.Errorf("target = %s, want rounded to cents", goal.TargetAmount)
	}

	if _, err := svc.CreateGoal("user-1", newGoal("0", "0")); err == nil {
		t.Error("zero target should be rejected")
	}
	if _, err := svc.CreateGoal("user-1", newGoal("100", "-5")); err == nil {
		t.Error("negative current amount should be rejected")
	}
	if _, err := svc.CreateGoal("user-1", &models.Goal{TargetAmount: decimal.NewFromInt(100)}); err == nil {
		t.Error("missing name should be rejected")
	}
}

func TestGoalOwnership(t *testing.T) {
	svc, _ := newTestGoals(t)
	goal, err := svc.CreateGoal("user-1", newGoal("1000", "0"))
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	if _, err := svc.GetGoal(goal.ID, "user-2"); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("other user's read error = %v, want ErrNotAuthorized", err)
	}
	if _, err := svc.GetGoal("missing", "user-1"); !errors.Is(err, ErrGoalNotFound) {
		t.Errorf("missing goal error = %v, want ErrGoalNotFound", err)
	}
	if err := svc.DeleteGoal(goal.ID, "user-2"); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("other user's delete error = %v, want ErrNotAuthorized", err)
	}
}

func TestAddProgress(t *testing.T) {
	svc, _ := newTestGoals(t)
	goal, err := svc.CreateGoal("user-1", newGoal("1000", "100"))
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	updated, err := svc.AddProgress(goal.ID, "user-1", decimal.RequireFromString("250.50"))
	if err != nil {
		t.Fatalf("AddProgress: %v", err)
	}
	if !updated.CurrentAmount.Equal(decimal.RequireFromString("350.50")) {
		t.Errorf("current = %s, want 350.50", updated.CurrentAmount)
	}

	// Withdrawals floor at zero rather than going negative.
	updated, err = svc.AddProgress(goal.ID, "user-1", decimal.RequireFromString("-500"))
	if err != nil {
		t.Fatalf("AddProgress: %v", err)
	}
	if !updated.CurrentAmount.IsZero() {
		t.Errorf("current = %s, want 0", updated.CurrentAmount)
	}
}

func TestUpdateGoal(t *testing.T) {
	svc, _ := newTestGoals(t)
	goal, err := svc.CreateGoal("user-1", newGoal("1000", "0"))
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	deadline := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	updated, err := svc.UpdateGoal(goal.ID, "user-1", "", decimal.NewFromInt(2000), &deadline)
	if err != nil {
		t.Fatalf("UpdateGoal: %v", err)
	}
	if updated.Name != "Férias" {
		t.Errorf("empty name should keep the original, got %q", updated.Name)
	}
	if !updated.TargetAmount.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("target = %s, want 2000", updated.TargetAmount)
	}
	if updated.Deadline == nil || !updated.Deadline.Equal(deadline) {
		t.Errorf("deadline = %v, want %v", updated.Deadline, deadline)
	}

	if _, err := svc.UpdateGoal(goal.ID, "user-1", "", decimal.Zero, nil); err == nil {
		t.Error("zero target should be rejected")
	}
}

func TestCreateFamilyGoal(t *testing.T) {
	svc, fam := newTestGoals(t)

	goal := newGoal("5000", "0")
	goal.FamilyID = fam.ID
	created, err := svc.CreateGoal("member", goal)
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if created.FamilyID != fam.ID {
		t.Errorf("FamilyID = %q, want %q", created.FamilyID, fam.ID)
	}
	if created.UserID != "member" {
		t.Errorf("UserID = %q, want the caller", created.UserID)
	}

	outsider := newGoal("5000", "0")
	outsider.FamilyID = fam.ID
	if _, err := svc.CreateGoal("stranger", outsider); !errors.Is(err, ErrNotFamilyMember) {
		t.Errorf("err = %v, want ErrNotFamilyMember", err)
	}

	unknown := newGoal("5000", "0")
	unknown.FamilyID = "missing"
	if _, err := svc.CreateGoal("member", unknown); !errors.Is(err, ErrFamilyNotFound) {
		t.Errorf("err = %v, want ErrFamilyNotFound", err)
	}
}
