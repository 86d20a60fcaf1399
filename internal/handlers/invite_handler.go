package handlers

import (
	"net/http"

	"famledger/internal/models"
	"famledger/internal/service"
	"famledger/internal/validation"
)

// InviteHandler serves the invitation lifecycle endpoints.
type InviteHandler struct {
	inviteService *service.InviteService
}

// NewInviteHandler creates a new invite handler
func NewInviteHandler(inviteService *service.InviteService) *InviteHandler {
	return &InviteHandler{inviteService: inviteService}
}

// Issue handles POST /family/{familyId}/invites
func (h *InviteHandler) Issue(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Role == "" {
		req.Role = string(models.RoleMember)
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		respondServiceError(w, r, validation.ValidationError{Field: "role", Message: "unknown role"})
		return
	}

	invite, err := h.inviteService.IssueInvite(r.Context(), r.PathValue("familyId"), user.ID, req.Email, role)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, invite)
}

// ListForFamily handles GET /family/{familyId}/invites
func (h *InviteHandler) ListForFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	invites, err := h.inviteService.ListFamilyInvites(r.PathValue("familyId"), user.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, invites)
}

// ListMine handles GET /invites and returns the caller's open invitations.
func (h *InviteHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	invites, err := h.inviteService.ListPendingForUser(user)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, invites)
}

// Accept handles POST /invites/{id}/accept
func (h *InviteHandler) Accept(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	invite, err := h.inviteService.AcceptInvite(r.PathValue("id"), user)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, invite)
}

// Decline handles POST /invites/{id}/decline
func (h *InviteHandler) Decline(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	if err := h.inviteService.DeclineInvite(r.PathValue("id"), user); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "declined"})
}

// Cancel handles DELETE /invites/{id}
func (h *InviteHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	if err := h.inviteService.CancelInvite(r.PathValue("id"), user.ID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
