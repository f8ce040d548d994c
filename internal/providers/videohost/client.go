// Package videohost talks to the external video host that stores lesson
// media and mints playback credentials.
package videohost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/coursemart/internal/config"
)

var (
	ErrNotConfigured     = errors.New("videohost_not_configured")
	ErrMalformedResponse = errors.New("videohost_malformed_response")
)

// StatusError is a non-2xx answer from the video host.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("videohost returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("videohost returned status %d: %s", e.StatusCode, e.Message)
}

type ViewerRef struct {
	AccountID string `json:"account_id"`
	SessionID string `json:"session_id,omitempty"`
}

type PlaybackRequest struct {
	MediaID          string     `json:"media_id"`
	Viewer           *ViewerRef `json:"viewer,omitempty"`
	IsPreviewRequest bool       `json:"is_preview_request"`
}

type PlaybackCredential struct {
	Credential       string `json:"credential"`
	MediaID          string `json:"media_id"`
	HostDomain       string `json:"host_domain"`
	ExpiresInSeconds int64  `json:"expires_in_seconds"`
}

type UploadSession struct {
	MediaID   string `json:"media_id"`
	UploadURL string `json:"upload_url"`
	Protocol  string `json:"protocol"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type Client struct {
	baseURL   string
	apiSecret string
	client    *http.Client
}

func NewClient(cfg config.Config) *Client {
	timeout := time.Duration(cfg.VideoHost.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(cfg.VideoHost.BaseURL), "/"),
		apiSecret: strings.TrimSpace(cfg.VideoHost.APISecret),
		client:    &http.Client{Timeout: timeout},
	}
}

// IssuePlaybackToken makes exactly one request; callers decide on retries.
func (c *Client) IssuePlaybackToken(ctx context.Context, req PlaybackRequest) (PlaybackCredential, error) {
	var cred PlaybackCredential
	if err := c.do(ctx, http.MethodPost, "/v1/playback/tokens", req, &cred); err != nil {
		return PlaybackCredential{}, err
	}
	if cred.Credential == "" || cred.ExpiresInSeconds <= 0 {
		return PlaybackCredential{}, ErrMalformedResponse
	}
	if cred.MediaID == "" {
		cred.MediaID = req.MediaID
	}
	return cred, nil
}

// ReleaseMedia deletes media at the host. Media the host no longer knows
// about counts as released.
func (c *Client) ReleaseMedia(ctx context.Context, mediaID string) error {
	mediaID = strings.TrimSpace(mediaID)
	if mediaID == "" {
		return nil
	}
	err := c.do(ctx, http.MethodDelete, "/v1/media/"+url.PathEscape(mediaID), nil, nil)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return nil
	}
	return err
}

func (c *Client) CreateUpload(ctx context.Context, title string) (UploadSession, error) {
	var upload UploadSession
	body := map[string]string{"title": title}
	if err := c.do(ctx, http.MethodPost, "/v1/uploads", body, &upload); err != nil {
		return UploadSession{}, err
	}
	if upload.MediaID == "" || upload.UploadURL == "" {
		return UploadSession{}, ErrMalformedResponse
	}
	return upload, nil
}

func (c *Client) do(ctx context.Context, method string, path string, body any, out any) error {
	if c == nil || c.baseURL == "" || c.apiSecret == "" {
		return ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Apisecret "+c.apiSecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var hostErr errorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&hostErr)
		return &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(hostErr.Error.Message)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
