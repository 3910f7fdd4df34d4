package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/univbase/backend-univ/internal/resilience"
)

// HTTPProvider talks to an image hosting service over its REST API.
type HTTPProvider struct {
	BaseURL string
	APIKey  string
	HTTP    *resilience.HTTPClient
}

// NewHTTPProvider wires an image host client with retry and circuit-breaker
// protection around the outbound calls.
func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP: &resilience.HTTPClient{
			Client:      &http.Client{Timeout: timeout},
			Breaker:     resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("media-host"),
			BaseBackoff: 200 * time.Millisecond,
			MaxAttempts: 3,
			Jitter:      0.2,
			Timeout:     timeout,
		},
	}
}

type uploadResponse struct {
	URL      string `json:"url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	ByteSize int64  `json:"size"`
}

// Upload sends the image as multipart form data and returns the hosted asset.
func (p *HTTPProvider) Upload(ctx context.Context, in UploadInput) (Asset, error) {
	if err := ValidateUpload(in); err != nil {
		return Asset{}, err
	}
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, in.FileName))
	header.Set("Content-Type", in.ContentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return Asset{}, fmt.Errorf("media: build multipart: %w", err)
	}
	if _, err := part.Write(in.Data); err != nil {
		return Asset{}, fmt.Errorf("media: write multipart: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Asset{}, fmt.Errorf("media: close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v1/images", bytes.NewReader(body.Bytes()))
	if err != nil {
		return Asset{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.HTTP.Do(ctx, req)
	if err != nil {
		return Asset{}, fmt.Errorf("media: upload: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Asset{}, fmt.Errorf("media: upload failed: %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	var decoded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Asset{}, fmt.Errorf("media: decode upload response: %w", err)
	}
	if decoded.URL == "" {
		return Asset{}, errors.New("media: upload response missing url")
	}
	return Asset{
		URL:      decoded.URL,
		Width:    decoded.Width,
		Height:   decoded.Height,
		ByteSize: decoded.ByteSize,
	}, nil
}

// Delete removes a hosted asset by its public URL.
func (p *HTTPProvider) Delete(ctx context.Context, assetURL string) error {
	if strings.TrimSpace(assetURL) == "" {
		return errors.New("media: url is required")
	}
	endpoint := p.BaseURL + "/v1/images?url=" + url.QueryEscape(assetURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.HTTP.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("media: delete: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	// A host that already purged the asset is fine.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("media: delete failed: %s", resp.Status)
	}
	return nil
}
