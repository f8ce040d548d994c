package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/coursemart/internal/catalog/domain"
)

type createCourseRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Currency    string `json:"currency"`
}

type courseEditsRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Price       *int64    `json:"price"`
	Tags        *[]string `json:"tags"`
}

func (r courseEditsRequest) toDomain() catalogdomain.CourseEdits {
	return catalogdomain.CourseEdits{
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		Tags:        r.Tags,
	}
}

type unpublishRequest struct {
	Confirmed bool `json:"confirmed"`
}

type addChapterRequest struct {
	Title string `json:"title"`
}

type addLessonRequest struct {
	ChapterID string `json:"chapter_id"`
	Title     string `json:"title"`
	IsPreview bool   `json:"is_preview"`
	MediaID   string `json:"media_id"`
}

type attachMediaRequest struct {
	MediaID string `json:"media_id"`
}

type createTagRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (s *Server) ListTags(c *gin.Context) {
	resp, err := s.catalogSvc.ListTags(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateTag(c *gin.Context) {
	var req createTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.CreateTag(c.Request.Context(), catalogdomain.CreateTagRequest{
		Code: strings.TrimSpace(req.Code),
		Name: strings.TrimSpace(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListStudioCourses(c *gin.Context) {
	resp, err := s.catalogSvc.ListCreatorCourses(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateCourse(c *gin.Context) {
	var req createCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.CreateCourse(c.Request.Context(), catalogdomain.CreateCourseRequest{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Currency:    strings.TrimSpace(req.Currency),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetStudioCourse(c *gin.Context) {
	resp, err := s.catalogSvc.GetCourse(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SaveDraft(c *gin.Context) {
	var req courseEditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.SaveDraft(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CheckReadiness(c *gin.Context) {
	resp, err := s.catalogSvc.CheckReadiness(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// PublishCourse accepts the editor's latest fields in the body. An empty
// body publishes the stored draft as is.
func (s *Server) PublishCourse(c *gin.Context) {
	var req courseEditsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.catalogSvc.Publish(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UnpublishCourse(c *gin.Context) {
	var req unpublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.Unpublish(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.Confirmed)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteCourse(c *gin.Context) {
	if err := s.catalogSvc.DeleteCourse(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) AddChapter(c *gin.Context) {
	var req addChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.AddChapter(c.Request.Context(), strings.TrimSpace(c.Param("id")), catalogdomain.AddChapterRequest{
		Title: strings.TrimSpace(req.Title),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) AddLesson(c *gin.Context) {
	var req addLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.AddLesson(c.Request.Context(), strings.TrimSpace(c.Param("id")), catalogdomain.AddLessonRequest{
		ChapterID: strings.TrimSpace(req.ChapterID),
		Title:     strings.TrimSpace(req.Title),
		IsPreview: req.IsPreview,
		MediaID:   strings.TrimSpace(req.MediaID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) AttachMedia(c *gin.Context) {
	var req attachMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.AttachMedia(c.Request.Context(), strings.TrimSpace(c.Param("id")), strings.TrimSpace(req.MediaID))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateUploadSession(c *gin.Context) {
	resp, err := s.catalogSvc.CreateUploadSession(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) DeleteLesson(c *gin.Context) {
	if err := s.catalogSvc.DeleteLesson(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
