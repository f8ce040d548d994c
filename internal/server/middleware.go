package server

import (
	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/coursemart/internal/observability/context"
	"github.com/smallbiznis/coursemart/internal/session"
	"go.uber.org/zap"
)

// ViewerContext attaches the client IP and, when a valid identity token is
// presented, the viewer to the request context. An invalid token leaves the
// request anonymous.
func (s *Server) ViewerContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := session.WithClientIP(c.Request.Context(), c.ClientIP())

		if raw, ok := s.verifier.ReadToken(c.Request); ok {
			viewer, err := s.verifier.Verify(raw)
			if err != nil {
				s.log.Debug("ignoring invalid identity token", zap.Error(err))
			} else {
				ctx = session.WithViewer(ctx, viewer)
				ctx = obscontext.WithViewerID(ctx, viewer.AccountID.String())
			}
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ViewerRequired rejects anonymous requests. It must run after ViewerContext.
func (s *Server) ViewerRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := session.FromGin(c); !ok {
			AbortWithError(c, session.ErrAuthRequired)
			return
		}
		c.Next()
	}
}
