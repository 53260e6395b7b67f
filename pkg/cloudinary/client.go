// Package cloudinary uploads remote images by URL using unsigned upload
// presets.
package cloudinary

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pittman021/golf-directory-sub000/internal/resilience"
)

const defaultBaseURL = "https://api.cloudinary.com"

// Client uploads images to a Cloudinary cloud.
type Client interface {
	UploadURL(ctx context.Context, imageURL, folder string) (*Upload, error)
}

// Upload is the hosted result of an upload.
type Upload struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Format    string `json:"format"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the API base URL, used in tests.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	cloudName    string
	uploadPreset string
	baseURL      string
	http         *http.Client
}

// NewClient creates a client for the given cloud and unsigned upload preset.
func NewClient(cloudName, uploadPreset string, opts ...Option) Client {
	c := &httpClient{
		cloudName:    cloudName,
		uploadPreset: uploadPreset,
		baseURL:      defaultBaseURL,
		http:         &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// UploadURL asks Cloudinary to fetch and host the image at imageURL.
func (c *httpClient) UploadURL(ctx context.Context, imageURL, folder string) (*Upload, error) {
	form := url.Values{}
	form.Set("file", imageURL)
	form.Set("upload_preset", c.uploadPreset)
	if folder != "" {
		form.Set("folder", folder)
	}

	endpoint := c.baseURL + "/v1_1/" + c.cloudName + "/image/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "cloudinary: build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "cloudinary: upload"), 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "cloudinary: read response")
	}

	if resp.StatusCode != http.StatusOK {
		var env errorEnvelope
		_ = json.Unmarshal(body, &env)
		wrapped := eris.Errorf("cloudinary: upload failed: %d %s", resp.StatusCode, env.Error.Message)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(wrapped, resp.StatusCode)
		}
		return nil, wrapped
	}

	var upload Upload
	if err := json.Unmarshal(body, &upload); err != nil {
		return nil, eris.Wrap(err, "cloudinary: decode response")
	}
	return &upload, nil
}
