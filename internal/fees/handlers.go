package fees

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/univbase/backend-univ/internal/common"
	"github.com/univbase/backend-univ/internal/finance"
)

// Handler exposes REST endpoints for managing fee structures.
type Handler struct {
	Service      *Service
	DefaultLimit int
	MaxLimit     int
}

type structureRequest struct {
	ProgramID     *uuid.UUID       `json:"program_id"`
	AcademicYear  string           `json:"academic_year"`
	Currency      string           `json:"currency"`
	Items         finance.RawItems `json:"items"`
	EffectiveDate time.Time        `json:"effective_date"`
	ExpiryDate    *time.Time       `json:"expiry_date"`
	IsActive      *bool            `json:"is_active"`
}

func (r structureRequest) toInput() Input {
	return Input{
		ProgramID:     r.ProgramID,
		AcademicYear:  r.AcademicYear,
		Currency:      r.Currency,
		RawItems:      r.Items,
		EffectiveDate: r.EffectiveDate,
		ExpiryDate:    r.ExpiryDate,
		IsActive:      r.IsActive,
	}
}

type structurePatchRequest struct {
	ProgramID     *uuid.UUID       `json:"program_id"`
	AcademicYear  *string          `json:"academic_year"`
	Currency      *string          `json:"currency"`
	Items         finance.RawItems `json:"items"`
	EffectiveDate *time.Time       `json:"effective_date"`
	ExpiryDate    *time.Time       `json:"expiry_date"`
	IsActive      *bool            `json:"is_active"`
}

func (r structurePatchRequest) toPatch() Patch {
	return Patch{
		ProgramID:     r.ProgramID,
		AcademicYear:  r.AcademicYear,
		Currency:      r.Currency,
		RawItems:      r.Items,
		EffectiveDate: r.EffectiveDate,
		ExpiryDate:    r.ExpiryDate,
		IsActive:      r.IsActive,
	}
}

// Routes mounts the fee structure endpoints under a university route.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/preview", h.Preview)
	r.Route("/{structureID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/", h.Update)
		r.Delete("/", h.Delete)
	})
}

// List handles GET /api/v1/universities/{universityID}/fees.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	params := common.ParsePageParams(r, h.DefaultLimit, h.MaxLimit)
	filter := ListFilter{AcademicYear: strings.TrimSpace(r.URL.Query().Get("academic_year"))}
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

// Create handles POST /api/v1/universities/{universityID}/fees.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	var req structureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid request payload", nil)
		return
	}
	st, err := h.Service.Create(r.Context(), universityID, req.toInput())
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, st)
}

// Preview handles POST /api/v1/universities/{universityID}/fees/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if _, ok := pathID(w, r, "universityID"); !ok {
		return
	}
	var req structureRequest
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

// Get handles GET of a single fee structure.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "structureID")
	if !ok {
		return
	}
	st, err := h.Service.Get(r.Context(), universityID, id)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, st)
}

// Update handles PATCH of a single fee structure.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "structureID")
	if !ok {
		return
	}
	var req structurePatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid request payload", nil)
		return
	}
	st, err := h.Service.Update(r.Context(), universityID, id, req.toPatch())
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, st)
}

// Delete handles DELETE of a single fee structure.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "structureID")
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
