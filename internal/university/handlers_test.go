package university

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*chi.Mux, *memStore) {
	t.Helper()
	store := newMemStore()
	svc, _ := newTestService(t, store)
	handler := &Handler{Service: svc, DefaultLimit: 10, MaxLimit: 100}
	r := chi.NewRouter()
	r.Route("/api/v1/universities", func(r chi.Router) { handler.Routes(r) })
	return r, store
}

func createUniversity(t *testing.T, router http.Handler, body string) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/universities", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var payload struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Data
}

func TestCreateAndGetUniversity(t *testing.T) {
	router, _ := newTestRouter(t)
	created := createUniversity(t, router, `{"name":"MIT","slug":"mit","country":"US","city":"Cambridge"}`)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/universities/"+id, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"slug":"mit"`)
}

func TestCreateUniversityValidation(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/universities", strings.NewReader(`{"slug":"mit"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestGetUniversityBadID(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/universities/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListUniversitiesPagination(t *testing.T) {
	router, _ := newTestRouter(t)
	createUniversity(t, router, `{"name":"MIT","slug":"mit","country":"US"}`)
	createUniversity(t, router, `{"name":"Oxford","slug":"oxford","country":"UK"}`)
	createUniversity(t, router, `{"name":"ETH","slug":"eth","country":"CH"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/universities?page=2&limit=2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Data       []map[string]any `json:"data"`
		Pagination struct {
			Page       int `json:"page"`
			TotalItems int `json:"total_items"`
			TotalPages int `json:"total_pages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Data, 1)
	require.Equal(t, 2, payload.Pagination.Page)
	require.Equal(t, 3, payload.Pagination.TotalItems)
	require.Equal(t, 2, payload.Pagination.TotalPages)
}

func TestPatchUniversityMergesFields(t *testing.T) {
	router, _ := newTestRouter(t)
	created := createUniversity(t, router, `{"name":"MIT","slug":"mit","country":"US","city":"Cambridge"}`)
	id, _ := created["id"].(string)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/universities/"+id, strings.NewReader(`{"city":"Boston"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"city":"Boston"`)
	require.Contains(t, rec.Body.String(), `"name":"MIT"`)
}

func TestDeleteUniversity(t *testing.T) {
	router, _ := newTestRouter(t)
	created := createUniversity(t, router, `{"name":"MIT","slug":"mit","country":"US"}`)
	id, _ := created["id"].(string)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/universities/"+id, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/universities/"+id, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadImageEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	created := createUniversity(t, router, `{"name":"MIT","slug":"mit","country":"US"}`)
	id, _ := created["id"].(string)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="campus.png"`)
	header.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("alt_text", "main campus"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/universities/"+id+"/images", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"is_primary":true`)
}
