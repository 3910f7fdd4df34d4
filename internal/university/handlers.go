package university

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/univbase/backend-univ/internal/common"
	"github.com/univbase/backend-univ/internal/media"
)

// Handler exposes REST endpoints for managing universities.
// UploadLimiter, when set, wraps the image upload route with a stricter quota.
type Handler struct {
	Service       *Service
	DefaultLimit  int
	MaxLimit      int
	UploadLimiter func(http.Handler) http.Handler
}

type universityRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Country     string `json:"country"`
	City        string `json:"city"`
	Website     string `json:"website"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

func (r universityRequest) toInput() Input {
	return Input{
		Name:        r.Name,
		Slug:        r.Slug,
		Country:     r.Country,
		City:        r.City,
		Website:     r.Website,
		Description: r.Description,
		IsActive:    r.IsActive,
	}
}

type universityPatchRequest struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Country     *string `json:"country"`
	City        *string `json:"city"`
	Website     *string `json:"website"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

func (r universityPatchRequest) toPatch() Patch {
	return Patch{
		Name:        r.Name,
		Slug:        r.Slug,
		Country:     r.Country,
		City:        r.City,
		Website:     r.Website,
		Description: r.Description,
		IsActive:    r.IsActive,
	}
}

// Routes mounts the university endpoints on a chi router. Child resource
// routers passed in are mounted under /{universityID}.
func (h *Handler) Routes(r chi.Router, children ...func(chi.Router)) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{universityID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/", h.Update)
		r.Delete("/", h.Delete)
		if h.UploadLimiter != nil {
			r.With(h.UploadLimiter).Post("/images", h.UploadImage)
		} else {
			r.Post("/images", h.UploadImage)
		}
		r.Delete("/images/{imageID}", h.DeleteImage)
		r.Put("/images/{imageID}/primary", h.SetPrimaryImage)
		for _, child := range children {
			child(r)
		}
	})
}

// List handles GET /api/v1/universities.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := common.ParsePageParams(r, h.DefaultLimit, h.MaxLimit)
	filter := ListFilter{
		Country: strings.TrimSpace(r.URL.Query().Get("country")),
		City:    strings.TrimSpace(r.URL.Query().Get("city")),
		Search:  strings.TrimSpace(r.URL.Query().Get("q")),
	}
	if raw := r.URL.Query().Get("is_active"); raw != "" {
		active := raw == "true"
		filter.IsActive = &active
	}
	page, err := h.Service.List(r.Context(), filter, params)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONPage(w, http.StatusOK, page.Data, params.Meta(page.Total, page.TotalPages))
}

// Create handles POST /api/v1/universities.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req universityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid request payload", nil)
		return
	}
	u, err := h.Service.Create(r.Context(), req.toInput())
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, u)
}

// Get handles GET /api/v1/universities/{universityID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "universityID")
	if !ok {
		return
	}
	u, err := h.Service.Get(r.Context(), id)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, u)
}

// Update handles PATCH /api/v1/universities/{universityID}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "universityID")
	if !ok {
		return
	}
	var req universityPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid request payload", nil)
		return
	}
	u, err := h.Service.Update(r.Context(), id, req.toPatch())
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, u)
}

// Delete handles DELETE /api/v1/universities/{universityID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "universityID")
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		common.JSONAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage handles POST /api/v1/universities/{universityID}/images.
// The payload is multipart form data with a "file" part and optional "alt_text".
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "universityID")
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(media.MaxUploadBytes); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid multipart payload", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "file part is required", nil)
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, media.MaxUploadBytes+1))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "unable to read file", nil)
		return
	}
	img, err := h.Service.UploadImage(r.Context(), id, media.UploadInput{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, r.FormValue("alt_text"))
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, img)
}

// DeleteImage handles DELETE /api/v1/universities/{universityID}/images/{imageID}.
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "universityID")
	if !ok {
		return
	}
	imageID, ok := parseID(w, r, "imageID")
	if !ok {
		return
	}
	if err := h.Service.DeleteImage(r.Context(), id, imageID); err != nil {
		common.JSONAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetPrimaryImage handles PUT /api/v1/universities/{universityID}/images/{imageID}/primary.
func (h *Handler) SetPrimaryImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "universityID")
	if !ok {
		return
	}
	imageID, ok := parseID(w, r, "imageID")
	if !ok {
		return
	}
	if err := h.Service.SetPrimaryImage(r.Context(), id, imageID); err != nil {
		common.JSONAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, param+" must be a valid uuid", nil)
		return uuid.Nil, false
	}
	return id, true
}
