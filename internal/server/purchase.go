package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	purchasedomain "github.com/smallbiznis/coursemart/internal/purchase/domain"
)

type checkoutOutcomeRequest struct {
	Outcome string `json:"outcome"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type verifyCheckoutRequest struct {
	CourseID string `json:"course_id"`
}

func (s *Server) ToggleCart(c *gin.Context) {
	resp, err := s.purchaseSvc.ToggleCart(c.Request.Context(), strings.TrimSpace(c.Param("courseId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCart(c *gin.Context) {
	resp, err := s.purchaseSvc.ListCart(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// FreeEnroll answers 200 for a repeated enrollment and flags it, so a
// double click is not an error for the client. A conflict with no surviving
// purchase (refunded in between) stays a 409.
func (s *Server) FreeEnroll(c *gin.Context) {
	resp, err := s.purchaseSvc.FreeEnroll(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		var conflict *purchasedomain.ConflictError
		if errors.As(err, &conflict) && conflict.Existing != nil {
			c.JSON(http.StatusOK, gin.H{"data": conflict.Existing, "already_enrolled": true})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp, "already_enrolled": false})
}

func (s *Server) InitiateCheckout(c *gin.Context) {
	resp, err := s.purchaseSvc.InitiateCheckout(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ReportCheckoutOutcome(c *gin.Context) {
	var req checkoutOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Outcome) == "" {
		AbortWithError(c, newValidationError("outcome", "required", "outcome is required"))
		return
	}

	resp, err := s.purchaseSvc.ReportGatewayOutcome(
		c.Request.Context(),
		strings.TrimSpace(c.Param("orderReference")),
		strings.TrimSpace(req.Outcome),
		strings.TrimSpace(req.Code),
		strings.TrimSpace(req.Message),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) VerifyCheckout(c *gin.Context) {
	var req verifyCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.CourseID) == "" {
		AbortWithError(c, newValidationError("course_id", "required", "course_id is required"))
		return
	}

	resp, err := s.purchaseSvc.VerifyPaidPurchase(
		c.Request.Context(),
		strings.TrimSpace(c.Param("orderReference")),
		strings.TrimSpace(req.CourseID),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPurchases(c *gin.Context) {
	resp, err := s.purchaseSvc.ListPurchases(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
