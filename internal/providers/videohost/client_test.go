package videohost

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smallbiznis/coursemart/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.Config{VideoHost: config.VideoHostConfig{BaseURL: srv.URL + "/", APISecret: "secret"}})
}

func TestIssuePlaybackToken(t *testing.T) {
	var got PlaybackRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/playback/tokens", r.URL.Path)
		assert.Equal(t, "Apisecret secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"credential":         "otp-123",
			"media_id":           "m-1",
			"host_domain":        "player.example.com",
			"expires_in_seconds": 300,
		})
	})

	cred, err := client.IssuePlaybackToken(context.Background(), PlaybackRequest{MediaID: "m-1", IsPreviewRequest: true})
	require.NoError(t, err)
	assert.Equal(t, "otp-123", cred.Credential)
	assert.Equal(t, int64(300), cred.ExpiresInSeconds)
	assert.True(t, got.IsPreviewRequest)
	assert.Nil(t, got.Viewer)
}

func TestIssuePlaybackTokenFailures(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"busy"}}`))
	})

	_, err := client.IssuePlaybackToken(context.Background(), PlaybackRequest{MediaID: "m-1"})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, "busy", statusErr.Message)
	assert.Equal(t, 1, calls)

	malformed := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"credential":""}`))
	})
	_, err = malformed.IssuePlaybackToken(context.Background(), PlaybackRequest{MediaID: "m-1"})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestReleaseMediaTreatsNotFoundAsReleased(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		switch r.URL.Path {
		case "/v1/media/gone":
			w.WriteHeader(http.StatusNotFound)
		case "/v1/media/ok":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	assert.NoError(t, client.ReleaseMedia(context.Background(), "ok"))
	assert.NoError(t, client.ReleaseMedia(context.Background(), "gone"))
	assert.Error(t, client.ReleaseMedia(context.Background(), "broken"))
	assert.NoError(t, client.ReleaseMedia(context.Background(), ""))
}

func TestCreateUpload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/uploads", r.URL.Path)
		_ = json.NewEncoder(w).Encode(UploadSession{MediaID: "m-9", UploadURL: "https://upload.example.com/m-9", Protocol: "tus"})
	})

	upload, err := client.CreateUpload(context.Background(), "Intro")
	require.NoError(t, err)
	assert.Equal(t, "m-9", upload.MediaID)
	assert.Equal(t, "tus", upload.Protocol)
}

func TestUnconfiguredClient(t *testing.T) {
	client := NewClient(config.Config{})
	_, err := client.IssuePlaybackToken(context.Background(), PlaybackRequest{MediaID: "m"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
