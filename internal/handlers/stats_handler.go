package handlers

import (
	"net/http"

	"famledger/internal/service"
	"famledger/internal/stats"
)

// StatsHandler serves the dashboard aggregation endpoint.
type StatsHandler struct {
	statsService *service.StatsService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// Get handles GET /stats. Query parameters: from, to (date window),
// account_id, family_id. With family_id set the family's aggregates are
// returned instead of the caller's own.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	q := r.URL.Query()

	var window stats.Window
	if v := q.Get("from"); v != "" {
		from, err := parseDate(v)
		if err != nil {
			respondServiceError(w, r, err)
			return
		}
		window.From = from
	}
	if v := q.Get("to"); v != "" {
		to, err := parseDate(v)
		if err != nil {
			respondServiceError(w, r, err)
			return
		}
		window.To = to
	}

	if familyID := q.Get("family_id"); familyID != "" {
		result, err := h.statsService.FamilyStats(familyID, user.ID, window)
		if err != nil {
			respondServiceError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
		return
	}

	result, err := h.statsService.UserStats(user.ID, window, q.Get("account_id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
