package handlers

import (
	"net/http"

	"famledger/internal/models"
	"famledger/internal/service"
	"famledger/internal/validation"
)

// FamilyHandler serves the family and membership endpoints.
type FamilyHandler struct {
	familyService *service.FamilyService
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(familyService *service.FamilyService) *FamilyHandler {
	return &FamilyHandler{familyService: familyService}
}

type familyRequest struct {
	Name        string                 `json:"nome"`
	Description string                 `json:"description"`
	Settings    *models.FamilySettings `json:"settings"`
}

// Create handles POST /family
func (h *FamilyHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req familyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	family, err := h.familyService.CreateFamily(req.Name, req.Description, req.Settings, user.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, family)
}

// List handles GET /family and returns the caller's families.
func (h *FamilyHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	families, err := h.familyService.GetUserFamilies(user.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, families)
}

// Get handles GET /family/{id}
func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	family, err := h.familyService.GetFamily(r.PathValue("id"), user.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, family)
}

// Update handles PUT /family/{id}
func (h *FamilyHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req familyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	family, err := h.familyService.UpdateFamily(r.PathValue("id"), user.ID, req.Name, req.Description, req.Settings)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, family)
}

// Delete handles DELETE /family/{id}
func (h *FamilyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	if err := h.familyService.DeleteFamily(r.PathValue("id"), user.ID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListMembers handles GET /family/{id}/members
func (h *FamilyHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	members, err := h.familyService.ListMembers(r.PathValue("id"), user.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, members)
}

// RemoveMember handles DELETE /family/{familyId}/member/{userId}
func (h *FamilyHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	err := h.familyService.RemoveMember(r.PathValue("familyId"), user.ID, r.PathValue("userId"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// UpdateMemberRole handles PUT /family/{familyId}/member/{userId}/role
func (h *FamilyHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req struct {
		Role string `json:"role"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		respondServiceError(w, r, validation.ValidationError{Field: "role", Message: "unknown role"})
		return
	}

	err := h.familyService.UpdateMemberRole(r.PathValue("familyId"), user.ID, r.PathValue("userId"), role)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// Leave handles POST /family/{id}/leave
func (h *FamilyHandler) Leave(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	if err := h.familyService.LeaveFamily(r.PathValue("id"), user.ID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

// TransferOwnership handles POST /family/{id}/transfer-ownership
func (h *FamilyHandler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req struct {
		NewOwnerID string `json:"new_owner_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.familyService.TransferOwnership(r.PathValue("id"), user.ID, req.NewOwnerID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "transferred"})
}
