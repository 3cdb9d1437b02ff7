package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/planora/planora/internal/store"
)

// expensesHandler groups expense-related HTTP handlers.
type expensesHandler struct {
	store  *store.Store
	events *eventsHandler
}

func newExpensesHandler(st *store.Store, events *eventsHandler) *expensesHandler {
	return &expensesHandler{store: st, events: events}
}

func (h *expensesHandler) loadExpense(w http.ResponseWriter, r *http.Request, userID string) *store.Expense {
	id := chi.URLParam(r, "id")
	e, err := h.store.GetExpense(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to get expense")
		return nil
	}
	if e == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "expense not found")
		return nil
	}
	if !h.events.requireEventAccess(w, r, userID, e.EventID) {
		return nil
	}
	return e
}

// CreateExpense handles POST /api/v1/events/{id}/expenses. The parent event's
// running total is recomputed in the same transaction as the insert.
func (h *expensesHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	eventID := chi.URLParam(r, "id")
	if !h.events.requireEventAccess(w, r, u.ID, eventID) {
		return
	}

	var in store.CreateExpenseInput
	if err := readJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "failed to parse request body")
		return
	}
	in.EventID = eventID

	if in.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, codeValidation, "name is required")
		return
	}
	if in.Amount < 0 {
		writeError(w, http.StatusUnprocessableEntity, codeValidation, "amount must not be negative")
		return
	}

	e, err := h.store.CreateExpense(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to create expense")
		return
	}

	_ = h.store.RecordActivity(r.Context(), eventID, u.ID, "create_expense", e.Name)

	writeJSON(w, http.StatusCreated, e)
}

// ListExpenses handles GET /api/v1/events/{id}/expenses.
func (h *expensesHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	eventID := chi.URLParam(r, "id")
	if !h.events.requireEventAccess(w, r, u.ID, eventID) {
		return
	}

	expenses, err := h.store.GetExpensesByEvent(r.Context(), eventID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to list expenses")
		return
	}
	if expenses == nil {
		expenses = []*store.Expense{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"expenses": expenses})
}

// GetExpense handles GET /api/v1/expenses/{id}.
func (h *expensesHandler) GetExpense(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	e := h.loadExpense(w, r, u.ID)
	if e == nil {
		return
	}

	writeJSON(w, http.StatusOK, e)
}

// UpdateExpense handles PUT /api/v1/expenses/{id}.
func (h *expensesHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	e := h.loadExpense(w, r, u.ID)
	if e == nil {
		return
	}

	var in store.UpdateExpenseInput
	if err := readJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "failed to parse request body")
		return
	}
	if in.Amount != nil && *in.Amount < 0 {
		writeError(w, http.StatusUnprocessableEntity, codeValidation, "amount must not be negative")
		return
	}

	updated, err := h.store.UpdateExpense(r.Context(), e.ID, in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to update expense")
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "expense not found")
		return
	}

	_ = h.store.RecordActivity(r.Context(), e.EventID, u.ID, "update_expense", updated.Name)

	writeJSON(w, http.StatusOK, updated)
}

// DeleteExpense handles DELETE /api/v1/expenses/{id}.
func (h *expensesHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	e := h.loadExpense(w, r, u.ID)
	if e == nil {
		return
	}

	if err := h.store.DeleteExpense(r.Context(), e.ID); err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to delete expense")
		return
	}

	_ = h.store.RecordActivity(r.Context(), e.EventID, u.ID, "delete_expense", e.Name)

	w.WriteHeader(http.StatusNoContent)
}
