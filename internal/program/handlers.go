package program

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/univbase/backend-univ/internal/common"
)

// Handler exposes REST endpoints for managing programs.
type Handler struct {
	Service      *Service
	DefaultLimit int
	MaxLimit     int
}

type programRequest struct {
	Name          string `json:"name"`
	Department    string `json:"department"`
	Level         string `json:"level"`
	DurationYears int    `json:"duration_years"`
	Language      string `json:"language"`
	IsActive      *bool  `json:"is_active"`
}

func (r programRequest) toInput() Input {
	return Input{
		Name:          r.Name,
		Department:    r.Department,
		Level:         r.Level,
		DurationYears: r.DurationYears,
		Language:      r.Language,
		IsActive:      r.IsActive,
	}
}

type programPatchRequest struct {
	Name          *string `json:"name"`
	Department    *string `json:"department"`
	Level         *string `json:"level"`
	DurationYears *int    `json:"duration_years"`
	Language      *string `json:"language"`
	IsActive      *bool   `json:"is_active"`
}

func (r programPatchRequest) toPatch() Patch {
	return Patch{
		Name:          r.Name,
		Department:    r.Department,
		Level:         r.Level,
		DurationYears: r.DurationYears,
		Language:      r.Language,
		IsActive:      r.IsActive,
	}
}

// Routes mounts the program endpoints under a university route.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{programID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/", h.Update)
		r.Delete("/", h.Delete)
	})
}

// List handles GET /api/v1/universities/{universityID}/programs.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	params := common.ParsePageParams(r, h.DefaultLimit, h.MaxLimit)
	filter := ListFilter{
		Level:      strings.TrimSpace(r.URL.Query().Get("level")),
		Department: strings.TrimSpace(r.URL.Query().Get("department")),
		Search:     strings.TrimSpace(r.URL.Query().Get("q")),
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

// Create handles POST /api/v1/universities/{universityID}/programs.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	var req programRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid request payload", nil)
		return
	}
	p, err := h.Service.Create(r.Context(), universityID, req.toInput())
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, p)
}

// Get handles GET of a single program.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "programID")
	if !ok {
		return
	}
	p, err := h.Service.Get(r.Context(), universityID, id)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, p)
}

// Update handles PATCH of a single program.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "programID")
	if !ok {
		return
	}
	var req programPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid request payload", nil)
		return
	}
	p, err := h.Service.Update(r.Context(), universityID, id, req.toPatch())
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, p)
}

// Delete handles DELETE of a single program.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "programID")
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
