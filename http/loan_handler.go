package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"loan-engine/domain"
	"loan-engine/repository"
	"loan-engine/service"
)

const maxBodyBytes = 1 << 20

type LoanHandler struct {
	service *service.LoanService
	logger  *zap.Logger
}

func NewLoanHandler(service *service.LoanService, logger *zap.Logger) *LoanHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoanHandler{service: service, logger: logger}
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeServiceError maps domain and repository failures to HTTP statuses.
func (h *LoanHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := statusForKind(kind)

	switch {
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrVersionConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, status, "internal error")
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: string(kind)})
}

func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidAmount, domain.KindInvalidIncome, domain.KindInvalidTerm,
		domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindIllegalTransition, domain.KindTermsFrozen:
		return http.StatusConflict
	case domain.KindExceedsQualificationCap, domain.KindPreconditionNotMet,
		domain.KindFinancialsNotComputed, domain.KindNegativeDisbursement:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, false
		}
	}
	return t, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// --- handlers ---

func (h *LoanHandler) CalculateLoan(w http.ResponseWriter, r *http.Request) {
	var input domain.LoanInput
	if !decode(w, r, &input) {
		return
	}

	result, err := h.service.CalculateLoan(r.Context(), input)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *LoanHandler) SubmitLoan(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitRequest
	if !decode(w, r, &req) {
		return
	}

	app, err := h.service.Submit(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.LoanFilter{
		ApplicantID: q.Get("applicant_id"),
		Page:        parseIntDefault(q.Get("page"), 1),
		Limit:       parseIntDefault(q.Get("limit"), 50),
	}
	if s := q.Get("status"); s != "" {
		status, err := domain.ParseLoanStatus(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Status = status
	}

	loans, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"loans": loans,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	app, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

type updateTermsRequest struct {
	Terms    domain.LoanTerms `json:"terms"`
	LegalFee *decimal.Decimal `json:"legal_fee,omitempty"`
}

func (h *LoanHandler) UpdateTerms(w http.ResponseWriter, r *http.Request) {
	var req updateTermsRequest
	if !decode(w, r, &req) {
		return
	}

	app, err := h.service.UpdateTerms(r.Context(), chi.URLParam(r, "id"), req.Terms, req.LegalFee)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *LoanHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var req service.TransitionRequest
	if !decode(w, r, &req) {
		return
	}
	to, err := domain.ParseLoanStatus(string(req.To))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.To = to

	app, err := h.service.Transition(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *LoanHandler) RecordRepayment(w http.ResponseWriter, r *http.Request) {
	var req service.RepaymentRequest
	if !decode(w, r, &req) {
		return
	}

	rep, err := h.service.RecordRepayment(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

func (h *LoanHandler) Statement(w http.ResponseWriter, r *http.Request) {
	asOf, ok := parseTime(r.URL.Query().Get("as_of"))
	if !ok {
		writeError(w, http.StatusBadRequest, "as_of must be RFC3339 or YYYY-MM-DD")
		return
	}

	stmt, err := h.service.Statement(r.Context(), chi.URLParam(r, "id"), asOf)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stmt)
}

func (h *LoanHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Schedule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedule": rows})
}

func (h *LoanHandler) AddGuarantor(w http.ResponseWriter, r *http.Request) {
	var req service.GuarantorRequest
	if !decode(w, r, &req) {
		return
	}

	g, err := h.service.AddGuarantor(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (h *LoanHandler) ListGuarantors(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Guarantors(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"guarantors": list})
}

func (h *LoanHandler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
