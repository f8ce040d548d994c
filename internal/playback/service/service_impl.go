package service

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/coursemart/internal/clock"
	entitlementdomain "github.com/smallbiznis/coursemart/internal/entitlement/domain"
	obsmetrics "github.com/smallbiznis/coursemart/internal/observability/metrics"
	"github.com/smallbiznis/coursemart/internal/playback/domain"
	"github.com/smallbiznis/coursemart/internal/providers/videohost"
	"github.com/smallbiznis/coursemart/internal/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	Entitlement entitlementdomain.Service
	Issuer      domain.TokenIssuer
	Limiter     domain.Limiter      `optional:"true"`
	Clock       clock.Clock         `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log         *zap.Logger
	entitlement entitlementdomain.Service
	issuer      domain.TokenIssuer
	limiter     domain.Limiter
	clock       clock.Clock
	metrics     *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		log:         p.Log.Named("playback.service"),
		entitlement: p.Entitlement,
		issuer:      p.Issuer,
		limiter:     p.Limiter,
		clock:       clk,
		metrics:     p.ObsMetrics,
	}
}

// RequestToken asks the video host for a fresh credential after the viewer
// has been found entitled. It makes exactly one upstream call.
func (s *Service) RequestToken(ctx context.Context, lessonID string) (domain.Token, error) {
	viewer, hasViewer := session.ViewerFromContext(ctx)

	if s.limiter != nil {
		viewerID := ""
		if hasViewer {
			viewerID = viewer.AccountID.String()
		}
		if err := s.limiter.AllowPlayback(ctx, viewerID, session.ClientIPFromContext(ctx)); err != nil {
			s.metrics.RecordRateLimitDenied(ctx, "playback_token", "bucket")
			s.metrics.RecordTokenRequest(ctx, "rate_limited")
			return domain.Token{}, err
		}
	}

	decision, err := s.entitlement.Resolve(ctx, lessonID)
	if err != nil {
		return domain.Token{}, err
	}
	if err := entitlementdomain.Authorize(decision); err != nil {
		s.metrics.RecordTokenRequest(ctx, "denied")
		return domain.Token{}, err
	}
	if !decision.MediaAvailable {
		s.metrics.RecordTokenRequest(ctx, "unavailable")
		return domain.Token{}, domain.ErrMediaUnavailable
	}

	req := videohost.PlaybackRequest{
		MediaID:          decision.MediaID,
		IsPreviewRequest: decision.IsPreview,
	}
	// Preview playback is anonymous even for signed-in viewers.
	if !decision.IsPreview && hasViewer {
		req.Viewer = &videohost.ViewerRef{
			AccountID: viewer.AccountID.String(),
			SessionID: viewer.SessionID,
		}
	}

	cred, err := s.issuer.IssuePlaybackToken(ctx, req)
	if err != nil {
		fetchErr := &domain.TokenFetchError{MediaID: decision.MediaID, Cause: err}
		var statusErr *videohost.StatusError
		if errors.As(err, &statusErr) {
			fetchErr.StatusCode = statusErr.StatusCode
		}
		s.log.Warn("playback token fetch failed",
			zap.String("lesson_id", decision.LessonID.String()),
			zap.String("media_id", decision.MediaID),
			zap.Int("status_code", fetchErr.StatusCode),
			zap.Error(err),
		)
		s.metrics.RecordTokenRequest(ctx, "fetch_failed")
		return domain.Token{}, fetchErr
	}

	s.metrics.RecordTokenRequest(ctx, "issued")
	return domain.Token{
		Credential:       cred.Credential,
		MediaID:          cred.MediaID,
		HostDomain:       cred.HostDomain,
		ExpiresInSeconds: cred.ExpiresInSeconds,
		ExpiresAt:        s.clock.Now().Add(time.Duration(cred.ExpiresInSeconds) * time.Second),
		IsPreview:        decision.IsPreview,
	}, nil
}
