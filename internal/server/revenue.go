package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	revenuedomain "github.com/smallbiznis/coursemart/internal/revenue/domain"
)

type revenueQuery struct {
	CreatorID   string `form:"creator_id"`
	CourseID    string `form:"course_id"`
	From        string `form:"from"`
	To          string `form:"to"`
	Granularity string `form:"granularity"`
}

func bindRevenueQuery(c *gin.Context) (revenueQuery, revenuedomain.Query, bool) {
	var raw revenueQuery
	if err := c.ShouldBindQuery(&raw); err != nil {
		AbortWithError(c, invalidRequestError())
		return raw, revenuedomain.Query{}, false
	}

	from, err := parseOptionalTime(raw.From, false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "invalid from"))
		return raw, revenuedomain.Query{}, false
	}
	to, err := parseOptionalTime(raw.To, true)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "invalid to"))
		return raw, revenuedomain.Query{}, false
	}

	return raw, revenuedomain.Query{
		CreatorID: strings.TrimSpace(raw.CreatorID),
		CourseID:  strings.TrimSpace(raw.CourseID),
		From:      from,
		To:        to,
	}, true
}

func (s *Server) RevenueByPurchase(c *gin.Context) {
	_, query, ok := bindRevenueQuery(c)
	if !ok {
		return
	}

	resp, err := s.revenueSvc.ByPurchase(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RevenueByCourse(c *gin.Context) {
	_, query, ok := bindRevenueQuery(c)
	if !ok {
		return
	}

	resp, err := s.revenueSvc.ByCourse(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RevenueByCreator(c *gin.Context) {
	_, query, ok := bindRevenueQuery(c)
	if !ok {
		return
	}

	resp, err := s.revenueSvc.ByCreator(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RevenueByPeriod(c *gin.Context) {
	raw, query, ok := bindRevenueQuery(c)
	if !ok {
		return
	}

	granularity := revenuedomain.Granularity(strings.ToLower(strings.TrimSpace(raw.Granularity)))
	if granularity == "" {
		granularity = revenuedomain.GranularityDay
	}

	resp, err := s.revenueSvc.ByPeriod(c.Request.Context(), query, granularity)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RevenueStatement(c *gin.Context) {
	month := strings.TrimSpace(c.Param("month"))
	creatorID := strings.TrimSpace(c.Query("creator_id"))

	out, err := s.revenueSvc.Statement(c.Request.Context(), creatorID, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="statement-%s.pdf"`, month))
	c.Data(http.StatusOK, "application/pdf", out)
}

func (s *Server) PlatformRevenue(c *gin.Context) {
	_, query, ok := bindRevenueQuery(c)
	if !ok {
		return
	}

	resp, err := s.revenueSvc.PlatformTotal(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
