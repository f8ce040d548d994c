package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetLessonAccess(c *gin.Context) {
	decision, err := s.entitlementSvc.Resolve(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": decision})
}

func (s *Server) GetCourseAccess(c *gin.Context) {
	decision, err := s.entitlementSvc.ResolveCourse(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": decision})
}

// RequestPlaybackToken never retries; a failed fetch is surfaced so the
// client can decide.
func (s *Server) RequestPlaybackToken(c *gin.Context) {
	token, err := s.playbackSvc.RequestToken(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{"data": token})
}

func (s *Server) CompleteLesson(c *gin.Context) {
	record, err := s.progressSvc.MarkComplete(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": record})
}

func (s *Server) GetCourseProgress(c *gin.Context) {
	progress, err := s.progressSvc.CourseProgress(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": progress})
}
