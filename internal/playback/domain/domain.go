package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/coursemart/internal/providers/videohost"
)

// ErrMediaUnavailable is returned for lessons that have no media attached.
var ErrMediaUnavailable = errors.New("media_unavailable")

// Token is a short-lived playback credential. It is never stored.
type Token struct {
	Credential       string    `json:"credential"`
	MediaID          string    `json:"media_id"`
	HostDomain       string    `json:"host_domain"`
	ExpiresInSeconds int64     `json:"expires_in_seconds"`
	ExpiresAt        time.Time `json:"expires_at"`
	IsPreview        bool      `json:"is_preview"`
}

// TokenFetchError wraps any failure talking to the video host. Clients may
// retry it explicitly.
type TokenFetchError struct {
	MediaID    string
	StatusCode int
	Cause      error
}

func (e *TokenFetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch playback token for %s: status %d: %v", e.MediaID, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("fetch playback token for %s: %v", e.MediaID, e.Cause)
}

func (e *TokenFetchError) Unwrap() error { return e.Cause }

type TokenIssuer interface {
	IssuePlaybackToken(ctx context.Context, req videohost.PlaybackRequest) (videohost.PlaybackCredential, error)
}

type Limiter interface {
	AllowPlayback(ctx context.Context, viewerID string, clientIP string) error
}

type Service interface {
	RequestToken(ctx context.Context, lessonID string) (Token, error)
}
