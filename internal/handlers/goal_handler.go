package handlers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"famledger/internal/models"
	"famledger/internal/service"
)

// GoalHandler serves the savings goal endpoints.
type GoalHandler struct {
	goalService *service.GoalService
}

// NewGoalHandler creates a new goal handler
func NewGoalHandler(goalService *service.GoalService) *GoalHandler {
	return &GoalHandler{goalService: goalService}
}

type goalRequest struct {
	Name          string          `json:"nome"`
	TargetAmount  decimal.Decimal `json:"valor_objetivo"`
	CurrentAmount decimal.Decimal `json:"valor_atual"`
	Deadline      *time.Time      `json:"prazo"`
	FamilyID      string          `json:"family_id"`
}

// goalResponse augments a goal with its derived progress figures.
type goalResponse struct {
	models.Goal
	Progress decimal.Decimal `json:"progress"`
	Complete bool            `json:"complete"`
}

func toGoalResponse(g *models.Goal) goalResponse {
	return goalResponse{Goal: *g, Progress: g.Progress(), Complete: g.IsComplete()}
}

// Create handles POST /goals
func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req goalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	goal := &models.Goal{
		Name:          req.Name,
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		Deadline:      req.Deadline,
		FamilyID:      req.FamilyID,
	}
	created, err := h.goalService.CreateGoal(user.ID, goal)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toGoalResponse(created))
}

// List handles GET /goals
func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	goals, err := h.goalService.ListGoals(user.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	out := make([]goalResponse, len(goals))
	for i := range goals {
		out[i] = toGoalResponse(&goals[i])
	}
	respondJSON(w, http.StatusOK, out)
}

// Get handles GET /goals/{id}
func (h *GoalHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	goal, err := h.goalService.GetGoal(r.PathValue("id"), user.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toGoalResponse(goal))
}

// Update handles PUT /goals/{id}
func (h *GoalHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req goalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	goal, err := h.goalService.UpdateGoal(r.PathValue("id"), user.ID, req.Name, req.TargetAmount, req.Deadline)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toGoalResponse(goal))
}

// AddProgress handles PUT /goals/{id}/progress
func (h *GoalHandler) AddProgress(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req struct {
		Amount decimal.Decimal `json:"valor"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	goal, err := h.goalService.AddProgress(r.PathValue("id"), user.ID, req.Amount)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toGoalResponse(goal))
}

// Delete handles DELETE /goals/{id}
func (h *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	if err := h.goalService.DeleteGoal(r.PathValue("id"), user.ID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
