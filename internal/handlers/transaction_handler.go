package handlers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"famledger/internal/models"
	"famledger/internal/repository"
	"famledger/internal/service"
	"famledger/internal/validation"
)

// TransactionHandler serves the transaction endpoints, including split and
// the auto-save companion.
type TransactionHandler struct {
	transactionService *service.TransactionService
	categories         *repository.CategoryRepository
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(transactionService *service.TransactionService, categories *repository.CategoryRepository) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		categories:         categories,
	}
}

type transactionRequest struct {
	Amount      decimal.Decimal `json:"valor"`
	Type        string          `json:"tipo"`
	CategoryID  string          `json:"categoria_id"`
	Date        string          `json:"data"`
	Description string          `json:"descricao"`
	AccountID   string          `json:"account_id"`
	FamilyID    string          `json:"family_id"`
}

// Create handles POST /transactions
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	t := &models.Transaction{
		Amount:      req.Amount,
		Type:        models.TransactionType(req.Type),
		CategoryID:  req.CategoryID,
		Date:        date,
		Description: req.Description,
		AccountID:   req.AccountID,
		FamilyID:    req.FamilyID,
	}
	created, err := h.transactionService.CreateTransaction(user.ID, t)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// List handles GET /transactions
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	filter, err := filterFromQuery(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	txns, err := h.transactionService.ListTransactions(user.ID, filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, txns)
}

// ListForFamily handles GET /family/{familyId}/transactions
func (h *TransactionHandler) ListForFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	filter, err := filterFromQuery(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	txns, err := h.transactionService.ListFamilyTransactions(r.PathValue("familyId"), user.ID, filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, txns)
}

// Get handles GET /transactions/{id}
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	t, err := h.transactionService.GetTransaction(r.PathValue("id"), user.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// Update handles PUT /transactions/{id}
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.transactionService.UpdateTransaction(r.PathValue("id"), user.ID, req.Amount, req.CategoryID, req.Description)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// Delete handles DELETE /transactions/{id}
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	if err := h.transactionService.DeleteTransaction(r.PathValue("id"), user.ID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Split handles POST /transactions/{id}/split
func (h *TransactionHandler) Split(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req struct {
		Splits []models.SplitRule `json:"splits"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	parts, err := h.transactionService.SplitTransaction(r.PathValue("id"), user.ID, req.Splits)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, parts)
}

// AutoSave handles POST /transactions/{id}/autosave
func (h *TransactionHandler) AutoSave(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req struct {
		SavingsAccountID string `json:"savings_account_id"`
		CategoryID       string `json:"categoria_id"`
		Percent          int    `json:"percent"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	companion, err := h.transactionService.AutoSaveOnIncome(r.PathValue("id"), user.ID, req.SavingsAccountID, req.CategoryID, req.Percent)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if companion == nil {
		respondJSON(w, http.StatusOK, map[string]string{"status": "auto-save disabled"})
		return
	}
	respondJSON(w, http.StatusCreated, companion)
}

// ListCategories handles GET /categories
func (h *TransactionHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	categories, err := h.categories.ListForUser(user.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

// filterFromQuery parses the from/to/account_id query parameters shared by
// the list endpoints.
func filterFromQuery(r *http.Request) (repository.TransactionFilter, error) {
	var filter repository.TransactionFilter
	q := r.URL.Query()

	if v := q.Get("from"); v != "" {
		from, err := parseDate(v)
		if err != nil {
			return filter, err
		}
		filter.From = from
	}
	if v := q.Get("to"); v != "" {
		to, err := parseDate(v)
		if err != nil {
			return filter, err
		}
		filter.To = to
	}
	filter.AccountID = q.Get("account_id")
	return filter, nil
}

// parseDate accepts a plain date or a full RFC 3339 timestamp. An empty
// string parses to the zero time.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, validation.ValidationError{Field: "data", Message: "expected YYYY-MM-DD or RFC 3339"}
	}
	return t, nil
}
