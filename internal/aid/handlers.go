package aid

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

// Handler exposes REST endpoints for scholarships and financial aid.
type Handler struct {
	Service      *Service
	DefaultLimit int
	MaxLimit     int
}

type scholarshipRequest struct {
	Name                string         `json:"name"`
	Description         string         `json:"description"`
	Amount              *finance.Money `json:"amount"`
	Percent             *float64       `json:"percent"`
	MaxAmount           *finance.Money `json:"max_amount"`
	Eligibility         string         `json:"eligibility"`
	ApplicationDeadline *time.Time     `json:"application_deadline"`
	IsActive            *bool          `json:"is_active"`
}

func (r scholarshipRequest) toInput() ScholarshipInput {
	return ScholarshipInput{
		Name:                r.Name,
		Description:         r.Description,
		Amount:              r.Amount,
		Percent:             r.Percent,
		MaxAmount:           r.MaxAmount,
		Eligibility:         r.Eligibility,
		ApplicationDeadline: r.ApplicationDeadline,
		IsActive:            r.IsActive,
	}
}

type aidRequest struct {
	Kind        string         `json:"kind"`
	Name        string         `json:"name"`
	Amount      *finance.Money `json:"amount"`
	Percent     *float64       `json:"percent"`
	MaxAmount   *finance.Money `json:"max_amount"`
	InterestBps *int32         `json:"interest_bps"`
	IsActive    *bool          `json:"is_active"`
}

func (r aidRequest) toInput() AidInput {
	return AidInput{
		Kind:        r.Kind,
		Name:        r.Name,
		Amount:      r.Amount,
		Percent:     r.Percent,
		MaxAmount:   r.MaxAmount,
		InterestBps: r.InterestBps,
		IsActive:    r.IsActive,
	}
}

type scholarshipPatchRequest struct {
	Name                *string        `json:"name"`
	Description         *string        `json:"description"`
	Amount              *finance.Money `json:"amount"`
	Percent             *float64       `json:"percent"`
	MaxAmount           *finance.Money `json:"max_amount"`
	Eligibility         *string        `json:"eligibility"`
	ApplicationDeadline *time.Time     `json:"application_deadline"`
	IsActive            *bool          `json:"is_active"`
}

func (r scholarshipPatchRequest) toPatch() ScholarshipPatch {
	return ScholarshipPatch{
		Name:                r.Name,
		Description:         r.Description,
		Amount:              r.Amount,
		Percent:             r.Percent,
		MaxAmount:           r.MaxAmount,
		Eligibility:         r.Eligibility,
		ApplicationDeadline: r.ApplicationDeadline,
		IsActive:            r.IsActive,
	}
}

type aidPatchRequest struct {
	Kind        *string        `json:"kind"`
	Name        *string        `json:"name"`
	Amount      *finance.Money `json:"amount"`
	Percent     *float64       `json:"percent"`
	MaxAmount   *finance.Money `json:"max_amount"`
	InterestBps *int32         `json:"interest_bps"`
	IsActive    *bool          `json:"is_active"`
}

func (r aidPatchRequest) toPatch() AidPatch {
	return AidPatch{
		Kind:        r.Kind,
		Name:        r.Name,
		Amount:      r.Amount,
		Percent:     r.Percent,
		MaxAmount:   r.MaxAmount,
		InterestBps: r.InterestBps,
		IsActive:    r.IsActive,
	}
}

type estimateRequest struct {
	BaseCost finance.Money `json:"base_cost"`
}

// ScholarshipRoutes mounts scholarship endpoints under a university route.
func (h *Handler) ScholarshipRoutes(r chi.Router) {
	r.Get("/", h.ListScholarships)
	r.Post("/", h.CreateScholarship)
	r.Route("/{scholarshipID}", func(r chi.Router) {
		r.Get("/", h.GetScholarship)
		r.Patch("/", h.UpdateScholarship)
		r.Delete("/", h.DeleteScholarship)
		r.Post("/estimate", h.EstimateScholarship)
	})
}

// AidRoutes mounts financial aid endpoints under a university route.
func (h *Handler) AidRoutes(r chi.Router) {
	r.Get("/", h.ListAid)
	r.Post("/", h.CreateAid)
	r.Route("/{aidID}", func(r chi.Router) {
		r.Get("/", h.GetAid)
		r.Patch("/", h.UpdateAid)
		r.Delete("/", h.DeleteAid)
		r.Post("/estimate", h.EstimateAid)
	})
}

func (h *Handler) listFilter(r *http.Request) ListFilter {
	filter := ListFilter{
		Kind:   strings.TrimSpace(r.URL.Query().Get("kind")),
		Search: strings.TrimSpace(r.URL.Query().Get("q")),
	}
	if raw := r.URL.Query().Get("is_active"); raw != "" {
		active := raw == "true"
		filter.IsActive = &active
	}
	return filter
}

// ListScholarships handles GET /api/v1/universities/{universityID}/scholarships.
func (h *Handler) ListScholarships(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	params := common.ParsePageParams(r, h.DefaultLimit, h.MaxLimit)
	page, err := h.Service.ListScholarships(r.Context(), universityID, h.listFilter(r), params)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONPage(w, http.StatusOK, page.Data, params.Meta(page.Total, page.TotalPages))
}

// CreateScholarship handles POST /api/v1/universities/{universityID}/scholarships.
func (h *Handler) CreateScholarship(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	var req scholarshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid request payload", nil)
		return
	}
	sch, err := h.Service.CreateScholarship(r.Context(), universityID, req.toInput())
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, sch)
}

// GetScholarship handles GET of a single scholarship.
func (h *Handler) GetScholarship(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "scholarshipID")
	if !ok {
		return
	}
	sch, err := h.Service.GetScholarship(r.Context(), universityID, id)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, sch)
}

// UpdateScholarship handles PATCH of a single scholarship.
func (h *Handler) UpdateScholarship(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "scholarshipID")
	if !ok {
		return
	}
	var req scholarshipPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid request payload", nil)
		return
	}
	sch, err := h.Service.UpdateScholarship(r.Context(), universityID, id, req.toPatch())
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, sch)
}

// DeleteScholarship handles DELETE of a single scholarship.
func (h *Handler) DeleteScholarship(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "scholarshipID")
	if !ok {
		return
	}
	if err := h.Service.DeleteScholarship(r.Context(), universityID, id); err != nil {
		common.JSONAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EstimateScholarship handles POST .../scholarships/{scholarshipID}/estimate.
func (h *Handler) EstimateScholarship(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "scholarshipID")
	if !ok {
		return
	}
	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid request payload", nil)
		return
	}
	estimate, err := h.Service.EstimateScholarship(r.Context(), universityID, id, req.BaseCost)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, estimate)
}

// ListAid handles GET /api/v1/universities/{universityID}/financial-aid.
func (h *Handler) ListAid(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	params := common.ParsePageParams(r, h.DefaultLimit, h.MaxLimit)
	page, err := h.Service.ListAid(r.Context(), universityID, h.listFilter(r), params)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONPage(w, http.StatusOK, page.Data, params.Meta(page.Total, page.TotalPages))
}

// CreateAid handles POST /api/v1/universities/{universityID}/financial-aid.
func (h *Handler) CreateAid(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	var req aidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid request payload", nil)
		return
	}
	fa, err := h.Service.CreateAid(r.Context(), universityID, req.toInput())
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, fa)
}

// GetAid handles GET of a single financial aid offering.
func (h *Handler) GetAid(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "aidID")
	if !ok {
		return
	}
	fa, err := h.Service.GetAid(r.Context(), universityID, id)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, fa)
}

// UpdateAid handles PATCH of a single financial aid offering.
func (h *Handler) UpdateAid(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "aidID")
	if !ok {
		return
	}
	var req aidPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid request payload", nil)
		return
	}
	fa, err := h.Service.UpdateAid(r.Context(), universityID, id, req.toPatch())
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, fa)
}

// DeleteAid handles DELETE of a single financial aid offering.
func (h *Handler) DeleteAid(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "aidID")
	if !ok {
		return
	}
	if err := h.Service.DeleteAid(r.Context(), universityID, id); err != nil {
		common.JSONAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EstimateAid handles POST .../financial-aid/{aidID}/estimate.
func (h *Handler) EstimateAid(w http.ResponseWriter, r *http.Request) {
	universityID, ok := pathID(w, r, "universityID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "aidID")
	if !ok {
		return
	}
	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid request payload", nil)
		return
	}
	estimate, err := h.Service.EstimateAid(r.Context(), universityID, id, req.BaseCost)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, estimate)
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, param)))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, param+" must be a valid uuid", nil)
		return uuid.Nil, false
	}
	return id, true
}
