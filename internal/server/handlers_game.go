package server

import (
	"log"
	"net/http"
	"strings"

	"medgen-server/internal/db"

	"github.com/gin-gonic/gin"
)

type createSessionRequest struct {
	IDToken string `json:"idToken"`
}

type initializeClassicRequest struct {
	ImageCount int `json:"imageCount" binding:"omitempty,gte=0"`
}

type initializeWithCodeRequest struct {
	GameCode   string `json:"gameCode"`
	ImageCount int    `json:"imageCount" binding:"omitempty,gte=0"`
}

type finishGameRequest struct {
	GameID      string       `json:"gameId"`
	UserGuesses []guessEntry `json:"userGuesses"`
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if !bindJSON(c, &req, nil, "invalid request") {
		return
	}
	if strings.TrimSpace(req.IDToken) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No ID token provided"})
		return
	}
	userID, err := s.verifier.VerifyIDToken(req.IDToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	// First authenticated access creates the user row.
	user := db.User{ExternalID: userID}
	if err := s.db.Where(db.User{ExternalID: userID}).FirstOrCreate(&user).Error; err != nil {
		respondServiceError(c, err)
		return
	}

	cookie, _, err := s.verifier.CreateSessionCookie(req.IDToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionCookie": cookie})
}

func (s *Server) handleInitializeClassicGame(c *gin.Context) {
	var req initializeClassicRequest
	if !bindJSON(c, &req, nil, "invalid request") {
		return
	}
	imageCount := req.ImageCount
	if imageCount == 0 {
		imageCount = s.cfg.DefaultImageCount
	}

	userID := currentUserID(c)
	log.Printf("initializing classic game user_id=%s image_count=%d", userID, imageCount)

	session, err := s.initializeClassicGame(userID, imageCount)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"gameId":   session.GameID,
		"images":   session.Images,
		"status":   "success",
		"gameCode": session.GameCode,
	})
}

func (s *Server) handleInitializeGameWithCode(c *gin.Context) {
	var req initializeWithCodeRequest
	if !bindJSON(c, &req, nil, "invalid request") {
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.GameCode))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Game code is required", "status": "error"})
		return
	}
	imageCount := req.ImageCount
	if imageCount == 0 {
		imageCount = s.cfg.DefaultImageCount
	}

	userID := currentUserID(c)
	log.Printf("initializing game with code user_id=%s game_code=%s image_count=%d", userID, code, imageCount)

	session, err := s.initializeGameWithCode(userID, code, imageCount)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"gameId":   session.GameID,
		"images":   session.Images,
		"status":   "success",
		"gameCode": session.GameCode,
	})
}

func (s *Server) handleFinishClassicGame(c *gin.Context) {
	var req finishGameRequest
	if !bindJSON(c, &req, nil, "invalid request") {
		return
	}
	if req.GameID == "" || len(req.UserGuesses) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields", "status": "error"})
		return
	}

	results, err := s.finishClassicGame(currentUserID(c), req.GameID, req.UserGuesses)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"gameId":       results.GameID,
		"score":        results.Score,
		"correctCount": results.CorrectCount,
		"total":        results.Total,
		"status":       "success",
	})
}

func (s *Server) handleGetGame(c *gin.Context) {
	gameID := c.Param("gameID")
	view, err := s.getGame(currentUserID(c), gameID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleCompetitionSingleGame(c *gin.Context) {
	session, err := s.randomCompetitionGame(currentUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"gameId": session.GameID,
		"images": session.Images,
		"status": "success",
	})
}
