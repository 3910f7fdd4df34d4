package admission

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/univbase/backend-univ/internal/common"
)

// Handler exposes REST endpoints for managing admission cycles.
type Handler struct {
	Service      *Service
	DefaultLimit int
	MaxLimit     int
}

type admissionRequest struct {
	ProgramID            *uuid.UUID `json:"program_id"`
	AcademicYear         string     `json:"academic_year"`
	Intake               string     `json:"intake"`
	Capacity             int        `json:"capacity"`
	ApplicationsReceived int        `json:"applications_received"`
	OffersMade           int        `json:"offers_made"`
	ApplicationDeadline  time.Time  `json:"application_deadline"`
	DecisionDate         *time.Time `json:"decision_date"`
	IsActive             *bool      `json:"is_active"`
}

func (r admissionRequest) toInput() Input {
	return Input{
		ProgramID:            r.ProgramID,
		AcademicYear:         r.AcademicYear,
		Intake:               r.Intake,
		Capacity:             r.Capacity,
		ApplicationsReceived: r.ApplicationsReceived,
		OffersMade:           r.OffersMade,
		ApplicationDeadline:  r.ApplicationDeadline,
		DecisionDate:         r.DecisionDate,
		IsActive:             r.IsActive,
	}
}

type admissionPatchRequest struct {
	ProgramID            *uuid.UUID `json:"program_id"`
	AcademicYear         *string    `json:"academic_year"`
	Intake               *string    `json:"intake"`
	Capacity             *int       `json:"capacity"`
	ApplicationsReceived *int       `json:"applications_received"`
	OffersMade           *int       `json:"offers_made"`
	ApplicationDeadline  *time.Time `json:"application_deadline"`
	DecisionDate         *time.Time `json:"decision_date"`
	IsActive             *bool      `json:"is_active"`
}

func (r admissionPatchRequest) toPatch() Patch {
	return Patch{
		ProgramID:            r.ProgramID,
		AcademicYear:         r.AcademicYear,
		Intake:               r.Intake,
		Capacity:             r.Capacity,
		ApplicationsReceived: r.ApplicationsReceived,
		OffersMade:           r.OffersMade,
		ApplicationDeadline:  r.ApplicationDeadline,
		DecisionDate:         r.DecisionDate,
		IsActive:             r.IsActive,
	}
}

// Routes mounts the admission endpoints under a university route.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{admissionID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/", h.Update)
		r.Delete("/", h.Delete)
	})
}

// List handles GET /api/v1/universities/{universityID}/admissions.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	params := common.ParsePageParams(r, h.DefaultLimit, h.MaxLimit)
	filter := ListFilter{
		AcademicYear: strings.TrimSpace(r.URL.Query().Get("academic_year")),
		Intake:       strings.TrimSpace(r.URL.Query().Get("intake")),
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

// Create handles POST /api/v1/universities/{universityID}/admissions.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	var req admissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid request payload", nil)
		return
	}
	a, err := h.Service.Create(r.Context(), universityID, req.toInput())
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, a)
}

// Get handles GET of a single admission cycle.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "admissionID")
	if !ok {
		return
	}
	a, err := h.Service.Get(r.Context(), universityID, id)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, a)
}

// Update handles PATCH of a single admission cycle.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "admissionID")
	if !ok {
		return
	}
	var req admissionPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid request payload", nil)
		return
	}
	a, err := h.Service.Update(r.Context(), universityID, id, req.toPatch())
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, a)
}

// Delete handles DELETE of a single admission cycle.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "admissionID")
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
