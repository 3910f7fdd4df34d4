package media_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/univbase/backend-univ/internal/media"
)

func TestValidateUpload(t *testing.T) {
	valid := media.UploadInput{FileName: "campus.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8}}
	require.NoError(t, media.ValidateUpload(valid))

	pdf := valid
	pdf.ContentType = "application/pdf"
	require.ErrorIs(t, media.ValidateUpload(pdf), media.ErrUnsupportedType)

	big := valid
	big.Data = bytes.Repeat([]byte{0x01}, media.MaxUploadBytes+1)
	require.ErrorIs(t, media.ValidateUpload(big), media.ErrTooLarge)

	empty := valid
	empty.Data = nil
	require.Error(t, media.ValidateUpload(empty))
}

func TestHTTPProviderUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/images", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(media.MaxUploadBytes))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		require.Equal(t, "campus.png", header.Filename)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"url":    "https://img.example.test/abc.png",
			"width":  800,
			"height": 600,
			"size":   4,
		})
	}))
	defer srv.Close()

	provider := media.NewHTTPProvider(srv.URL, "test-key", 2*time.Second)
	asset, err := provider.Upload(context.Background(), media.UploadInput{
		FileName:    "campus.png",
		ContentType: "image/png",
		Data:        []byte{0x89, 0x50, 0x4e, 0x47},
	})
	require.NoError(t, err)
	require.Equal(t, "https://img.example.test/abc.png", asset.URL)
	require.Equal(t, 800, asset.Width)
}

func TestHTTPProviderDeleteTreatsNotFoundAsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	provider := media.NewHTTPProvider(srv.URL, "test-key", 2*time.Second)
	require.NoError(t, provider.Delete(context.Background(), "https://img.example.test/gone.png"))
}

func TestPurgeHandler(t *testing.T) {
	mock := &media.Mock{}
	handler := media.PurgeHandler{Provider: mock, Logger: zerolog.Nop()}

	task, err := media.NewPurgeTask("https://img.example.test/old.png")
	require.NoError(t, err)
	require.NoError(t, handler.ProcessTask(context.Background(), task))
	require.Equal(t, []string{"https://img.example.test/old.png"}, mock.Deleted())
}

func TestPurgeHandlerSkipsRetryOnBadPayload(t *testing.T) {
	handler := media.PurgeHandler{Provider: &media.Mock{}, Logger: zerolog.Nop()}
	task := asynq.NewTask(media.TypePurge, []byte("not-json"))
	err := handler.ProcessTask(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}
