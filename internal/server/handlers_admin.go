package server

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	defaultFeedbackPerPage = 20
	maxFeedbackPerPage     = 100
)

type submitFeedbackRequest struct {
	GuessID uint   `json:"guessId"`
	Text    string `json:"text"`
}

type resolveFeedbackRequest struct {
	ImageID uint `json:"imageId"`
}

func parsePagination(c *gin.Context, defaultPerPage, maxPerPage int) (int, int) {
	page := 1
	perPage := defaultPerPage
	if raw := strings.TrimSpace(c.Query("page")); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			page = value
		}
	}
	if raw := strings.TrimSpace(c.Query("per_page")); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			perPage = value
		}
	}
	if maxPerPage > 0 && perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

func parseResolvedParam(c *gin.Context) *bool {
	raw := strings.TrimSpace(c.Query("resolved"))
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &value
}

// handleAdminFeedback serves the dashboard listing. Internal failures are
// downgraded to an empty page with ok=false so the dashboard keeps rendering;
// the error itself only goes to the log.
func (s *Server) handleAdminFeedback(c *gin.Context) {
	imageType := strings.TrimSpace(c.Query("type"))
	resolved := parseResolvedParam(c)
	sortBy := strings.TrimSpace(c.Query("sort_by"))
	sortOrder := strings.TrimSpace(c.Query("sort_order"))
	page, perPage := parsePagination(c, defaultFeedbackPerPage, maxFeedbackPerPage)
	offset := (page - 1) * perPage

	rows, err := s.feedbackWithFilters(imageType, resolved, sortBy, sortOrder, perPage, offset)
	if err != nil {
		log.Printf("error fetching feedback err=%v", err)
		c.JSON(http.StatusOK, gin.H{"feedback": []feedbackRow{}, "ok": false})
		return
	}
	if rows == nil {
		rows = []feedbackRow{}
	}
	c.JSON(http.StatusOK, gin.H{
		"feedback": rows,
		"page":     page,
		"per_page": perPage,
		"ok":       true,
	})
}

func (s *Server) handleAdminFeedbackCount(c *gin.Context) {
	imageType := strings.TrimSpace(c.Query("type"))
	resolved := parseResolvedParam(c)

	count, err := s.feedbackCount(imageType, resolved)
	if err != nil {
		log.Printf("error fetching feedback count err=%v", err)
		c.JSON(http.StatusOK, gin.H{"count": 0, "ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count, "ok": true})
}

func (s *Server) handleAdminResolveFeedback(c *gin.Context) {
	var req resolveFeedbackRequest
	if !bindJSON(c, &req, nil, "invalid request") {
		return
	}
	if req.ImageID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "imageId is required", "status": "error"})
		return
	}

	resolvedCount, err := s.resolveAllFeedbackByImage(req.ImageID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "All feedback for the image has been marked as resolved",
		"resolved": resolvedCount,
	})
}

func (s *Server) handleSubmitFeedback(c *gin.Context) {
	var req submitFeedbackRequest
	if !bindJSON(c, &req, nil, "invalid request") {
		return
	}
	feedbackID, err := s.submitFeedback(currentUserID(c), req.GuessID, req.Text)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feedbackId": feedbackID, "status": "success"})
}
