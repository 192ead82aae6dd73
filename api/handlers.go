/*
handlers.go - HTTP API handlers for the household ledger

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP request/response and
  JSON serialization, and delegates every rule to the expense package.

ENDPOINTS:
  Bills:
    GET    /api/bills                        List, filtered by query params
    POST   /api/bills                        Record a bill (moves balance)
    DELETE /api/bills/{id}                   Remove a bill (reverses balance)

  Payment methods:
    GET    /api/payment-methods              List all
    POST   /api/payment-methods/credit       Create credit method
    POST   /api/payment-methods/savings      Create savings method
    PATCH  /api/payment-methods/{id}/credit  Partial update of a credit method
    PATCH  /api/payment-methods/{id}/savings Partial update of a savings method
    DELETE /api/payment-methods/{id}         Delete (409 while bills use it)

  Categories / owners (same shape):
    GET    /api/categories                   List
    POST   /api/categories                   Create
    GET    /api/categories/name-check        ?name=..&exclude=..
    PUT    /api/categories/{id}              Rename
    DELETE /api/categories/{id}              Delete

  Statistics:
    GET    /api/statistics                   ?from=..&to=..

BILL FILTER QUERY:
  category, owner, method  repeatable or comma separated ids
  from, to                 RFC3339 timestamp or YYYY-MM-DD; a bare "to" date
                           covers that whole day

ERROR HANDLING:
  Errors are returned as JSON {"error", "code", "details"}:
  - 400: Validation errors, invalid input
  - 404: Entity not found
  - 409: In use, duplicate name, credit limit exceeded
  - 500: Persistence and internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loading
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/household-ledger/expense"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds the domain services every endpoint delegates to.
type Handler struct {
	Engine    *expense.Engine
	Methods   *expense.Methods
	Directory *expense.Directory
	Stats     *expense.StatisticsService
	Logger    *slog.Logger

	current currentScenario
}

// NewHandler builds every service on the engine's store.
func NewHandler(engine *expense.Engine) *Handler {
	return &Handler{
		Engine:    engine,
		Methods:   expense.NewMethods(engine.Store),
		Directory: expense.NewDirectory(engine.Store),
		Stats:     expense.NewStatisticsService(engine.Store),
		Logger:    slog.Default(),
	}
}

// =============================================================================
// BILL ENDPOINTS
// =============================================================================

func (h *Handler) ListBills(w http.ResponseWriter, r *http.Request) {
	filter, err := parseBillFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	bills, err := expense.QueryBills(r.Context(), h.Engine.Store, filter)
	if err != nil {
		h.fail(w, r, "Failed to list bills", err)
		return
	}
	writeJSON(w, http.StatusOK, bills)
}

func (h *Handler) CreateBill(w http.ResponseWriter, r *http.Request) {
	var req CreateBillRequest
	if !decode(w, r, &req) {
		return
	}

	rc, err := h.Engine.CreateBill(r.Context(), req.toNewBill())
	if err != nil {
		h.fail(w, r, "Failed to create bill", err)
		return
	}
	writeJSON(w, http.StatusCreated, toReceiptResponse(rc))
}

func (h *Handler) DeleteBill(w http.ResponseWriter, r *http.Request) {
	id := expense.BillID(chi.URLParam(r, "id"))

	rc, err := h.Engine.DeleteBillByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to delete bill", err)
		return
	}
	writeJSON(w, http.StatusOK, toReceiptResponse(rc))
}

// =============================================================================
// PAYMENT METHOD ENDPOINTS
// =============================================================================

func (h *Handler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	pms, err := h.Methods.List(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list payment methods", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentMethodDTOs(pms))
}

func (h *Handler) CreateCreditMethod(w http.ResponseWriter, r *http.Request) {
	var req CreateCreditRequest
	if !decode(w, r, &req) {
		return
	}

	pm, err := h.Methods.CreateCredit(r.Context(), expense.CreditInput{
		Name:            req.Name,
		TransactionType: expense.TransactionType(req.TransactionType),
		Limit:           req.CreditLimit,
		Outstanding:     req.OutstandingBalance,
		BillingDay:      req.BillingDay,
	})
	if err != nil {
		h.fail(w, r, "Failed to create payment method", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentMethodDTO(pm))
}

func (h *Handler) CreateSavingsMethod(w http.ResponseWriter, r *http.Request) {
	var req CreateSavingsRequest
	if !decode(w, r, &req) {
		return
	}

	pm, err := h.Methods.CreateSavings(r.Context(), expense.SavingsInput{
		Name:            req.Name,
		TransactionType: expense.TransactionType(req.TransactionType),
		Balance:         req.Balance,
	})
	if err != nil {
		h.fail(w, r, "Failed to create payment method", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentMethodDTO(pm))
}

func (h *Handler) UpdateCreditMethod(w http.ResponseWriter, r *http.Request) {
	var req UpdateCreditRequest
	if !decode(w, r, &req) {
		return
	}

	id := expense.PaymentMethodID(chi.URLParam(r, "id"))
	pm, err := h.Methods.UpdateCredit(r.Context(), id, req.toPatch())
	if err != nil {
		h.fail(w, r, "Failed to update payment method", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentMethodDTO(pm))
}

func (h *Handler) UpdateSavingsMethod(w http.ResponseWriter, r *http.Request) {
	var req UpdateSavingsRequest
	if !decode(w, r, &req) {
		return
	}

	id := expense.PaymentMethodID(chi.URLParam(r, "id"))
	pm, err := h.Methods.UpdateSavings(r.Context(), id, req.toPatch())
	if err != nil {
		h.fail(w, r, "Failed to update payment method", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentMethodDTO(pm))
}

func (h *Handler) DeletePaymentMethod(w http.ResponseWriter, r *http.Request) {
	id := expense.PaymentMethodID(chi.URLParam(r, "id"))
	if err := h.Methods.Delete(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to delete payment method", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CATEGORY ENDPOINTS
// =============================================================================

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Directory.ListCategories(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !decode(w, r, &req) {
		return
	}

	c, err := h.Directory.CreateCategory(r.Context(), req.Name)
	if err != nil {
		h.fail(w, r, "Failed to create category", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) RenameCategory(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !decode(w, r, &req) {
		return
	}

	id := expense.CategoryID(chi.URLParam(r, "id"))
	c, err := h.Directory.RenameCategory(r.Context(), id, req.Name)
	if err != nil {
		h.fail(w, r, "Failed to rename category", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := expense.CategoryID(chi.URLParam(r, "id"))
	if err := h.Directory.DeleteCategory(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to delete category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CheckCategoryName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	exclude := expense.CategoryID(r.URL.Query().Get("exclude"))

	unique, err := h.Directory.IsCategoryNameUnique(r.Context(), name, exclude)
	if err != nil {
		h.fail(w, r, "Failed to check category name", err)
		return
	}
	writeJSON(w, http.StatusOK, NameCheckResponse{Name: name, Unique: unique})
}

// =============================================================================
// OWNER ENDPOINTS
// =============================================================================

func (h *Handler) ListOwners(w http.ResponseWriter, r *http.Request) {
	owners, err := h.Directory.ListOwners(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list owners", err)
		return
	}
	writeJSON(w, http.StatusOK, owners)
}

func (h *Handler) CreateOwner(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !decode(w, r, &req) {
		return
	}

	o, err := h.Directory.CreateOwner(r.Context(), req.Name)
	if err != nil {
		h.fail(w, r, "Failed to create owner", err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) RenameOwner(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !decode(w, r, &req) {
		return
	}

	id := expense.OwnerID(chi.URLParam(r, "id"))
	o, err := h.Directory.RenameOwner(r.Context(), id, req.Name)
	if err != nil {
		h.fail(w, r, "Failed to rename owner", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) DeleteOwner(w http.ResponseWriter, r *http.Request) {
	id := expense.OwnerID(chi.URLParam(r, "id"))
	if err := h.Directory.DeleteOwner(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to delete owner", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CheckOwnerName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	exclude := expense.OwnerID(r.URL.Query().Get("exclude"))

	unique, err := h.Directory.IsOwnerNameUnique(r.Context(), name, exclude)
	if err != nil {
		h.fail(w, r, "Failed to check owner name", err)
		return
	}
	writeJSON(w, http.StatusOK, NameCheckResponse{Name: name, Unique: unique})
}

// =============================================================================
// STATISTICS
// =============================================================================

func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseTimeParam(q.Get("from"), false)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date", err)
		return
	}
	to, err := parseTimeParam(q.Get("to"), true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date", err)
		return
	}

	stats, err := h.Stats.Calculate(r.Context(), from, to)
	if err != nil {
		h.fail(w, r, "Failed to calculate statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Code = expense.Code(err)
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// fail maps a domain error to its HTTP status and logs server-side failures.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.ErrorContext(r.Context(), message, "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeError(w, status, message, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, expense.ErrPersistence):
		return http.StatusInternalServerError
	case expense.IsClientError(err):
		return http.StatusBadRequest
	case expense.IsConflict(err):
		return http.StatusConflict
	case expense.IsNotFound(err):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return false
	}
	return true
}

func parseBillFilter(r *http.Request) (expense.BillFilter, error) {
	q := r.URL.Query()

	var f expense.BillFilter
	for _, id := range splitParam(q["category"]) {
		f.CategoryIDs = append(f.CategoryIDs, expense.CategoryID(id))
	}
	for _, id := range splitParam(q["owner"]) {
		f.OwnerIDs = append(f.OwnerIDs, expense.OwnerID(id))
	}
	for _, id := range splitParam(q["method"]) {
		f.PaymentMethodIDs = append(f.PaymentMethodIDs, expense.PaymentMethodID(id))
	}

	var err error
	if f.From, err = parseTimeParam(q.Get("from"), false); err != nil {
		return f, err
	}
	if f.To, err = parseTimeParam(q.Get("to"), true); err != nil {
		return f, err
	}
	return f, nil
}

// splitParam flattens repeated and comma separated values, dropping blanks.
func splitParam(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// parseTimeParam accepts RFC3339 or a bare date. A bare date used as an
// upper bound is moved to the last instant of that day.
func parseTimeParam(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
