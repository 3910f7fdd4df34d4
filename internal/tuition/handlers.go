package tuition

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/univbase/backend-univ/internal/common"
	"github.com/univbase/backend-univ/internal/finance"
)

// Handler exposes REST endpoints for managing tuition breakdowns.
type Handler struct {
	Service      *Service
	DefaultLimit int
	MaxLimit     int
}

type breakdownRequest struct {
	ProgramID        *uuid.UUID       `json:"program_id"`
	AcademicYear     string           `json:"academic_year"`
	YearNumber       int              `json:"year_number"`
	Currency         string           `json:"currency"`
	Items            finance.RawItems `json:"items"`
	EffectiveDate    time.Time        `json:"effective_date"`
	ExpiryDate       *time.Time       `json:"expiry_date"`
	IsActive         *bool            `json:"is_active"`
	InstallmentCount int              `json:"installment_count"`
	FirstDueDate     time.Time        `json:"first_due_date"`
}

func (r breakdownRequest) toInput() Input {
	return Input{
		ProgramID:        r.ProgramID,
		AcademicYear:     r.AcademicYear,
		YearNumber:       r.YearNumber,
		Currency:         r.Currency,
		RawItems:         r.Items,
		EffectiveDate:    r.EffectiveDate,
		ExpiryDate:       r.ExpiryDate,
		IsActive:         r.IsActive,
		InstallmentCount: r.InstallmentCount,
		FirstDueDate:     r.FirstDueDate,
	}
}

type breakdownPatchRequest struct {
	ProgramID        *uuid.UUID       `json:"program_id"`
	AcademicYear     *string          `json:"academic_year"`
	YearNumber       *int             `json:"year_number"`
	Currency         *string          `json:"currency"`
	Items            finance.RawItems `json:"items"`
	EffectiveDate    *time.Time       `json:"effective_date"`
	ExpiryDate       *time.Time       `json:"expiry_date"`
	IsActive         *bool            `json:"is_active"`
	InstallmentCount *int             `json:"installment_count"`
	FirstDueDate     *time.Time       `json:"first_due_date"`
}

func (r breakdownPatchRequest) toPatch() Patch {
	return Patch{
		ProgramID:        r.ProgramID,
		AcademicYear:     r.AcademicYear,
		YearNumber:       r.YearNumber,
		Currency:         r.Currency,
		RawItems:         r.Items,
		EffectiveDate:    r.EffectiveDate,
		ExpiryDate:       r.ExpiryDate,
		IsActive:         r.IsActive,
		InstallmentCount: r.InstallmentCount,
		FirstDueDate:     r.FirstDueDate,
	}
}

// Routes mounts the tuition endpoints under a university route.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/preview", h.Preview)
	r.Route("/{breakdownID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Get("/schedule", h.Schedule)
		r.Patch("/", h.Update)
		r.Delete("/", h.Delete)
	})
}

// List handles GET /api/v1/universities/{universityID}/tuition.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	params := common.ParsePageParams(r, h.DefaultLimit, h.MaxLimit)
	filter := ListFilter{
		AcademicYear: strings.TrimSpace(r.URL.Query().Get("academic_year")),
	}
	if raw := r.URL.Query().Get("year_number"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.YearNumber = n
		}
	}
	if raw := r.URL.Query().Get("is_active"); raw != "" {
		active := raw == "true"
		filter.IsActive = &active
	}
	page, err := h.Service.List(r.Context(), universityID, filter, params)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONPage(w, http.StatusOK, page.Data, params.Meta(page.Total, page.TotalPages))
}

// Create handles POST /api/v1/universities/{universityID}/tuition.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	var req breakdownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid request payload", nil)
		return
	}
	b, err := h.Service.Create(r.Context(), universityID, req.toInput())
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, b)
}

// Preview handles POST /api/v1/universities/{universityID}/tuition/preview.
// It derives totals and a schedule without persisting anything.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if _, ok := pathID(w, r, "universityID"); !ok {
		return
	}
	var req breakdownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid request payload", nil)
		return
	}
	preview, err := h.Service.ComputePreview(req.toInput())
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, preview)
}

// Get handles GET of a single breakdown.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "breakdownID")
	if !ok {
		return
	}
	b, err := h.Service.Get(r.Context(), universityID, id)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, b)
}

// Update handles PATCH of a single breakdown.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "breakdownID")
	if !ok {
		return
	}
	var req breakdownPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid request payload", nil)
		return
	}
	b, err := h.Service.Update(r.Context(), universityID, id, req.toPatch())
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, b)
}

// Schedule handles GET of a breakdown's payment schedule.
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "breakdownID")
	if !ok {
		return
	}
	b, err := h.Service.Get(r.Context(), universityID, id)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, b.Schedule)
}

// Delete handles DELETE of a single breakdown.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "breakdownID")
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), universityID, id); err != nil {
		common.JSONAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, param)))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, param+" must be a valid uuid", nil)
		return uuid.Nil, false
	}
	return id, true
}
