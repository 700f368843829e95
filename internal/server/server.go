package server

import (
	"time"

	"medgen-server/internal/config"
	"medgen-server/internal/identity"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Server struct {
	db        *gorm.DB
	cfg       config.Config
	verifier  *identity.Verifier
	cache     *feedbackCache
	generator *generateClient
	metrics   *serverMetrics
}

func New(conn *gorm.DB, verifier *identity.Verifier, cfg config.Config) *Server {
	srv := &Server{
		db:       conn,
		cfg:      cfg,
		verifier: verifier,
		metrics:  newServerMetrics(),
	}
	if cfg.RedisAddr != "" {
		srv.cache = newFeedbackCache(cfg.RedisAddr, cfg.RedisPassword, time.Duration(cfg.FeedbackCacheTTLSeconds)*time.Second)
	}
	if cfg.GenerateServiceURL != "" {
		srv.generator = newGenerateClient(cfg.GenerateServiceURL)
	}
	return srv
}

func (s *Server) Engine() *gin.Engine {
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", s.handleHealthz)
	r.GET("/metrics", s.metrics.handler())

	r.POST("/auth/session", s.handleCreateSession)

	authed := r.Group("/", s.requireAuth())
	authed.POST("/initialize-classic-game", s.handleInitializeClassicGame)
	authed.POST("/initialize-single-game-with-code", s.handleInitializeGameWithCode)
	authed.POST("/finish-classic-game", s.handleFinishClassicGame)
	authed.GET("/get-game/:gameID", s.handleGetGame)
	authed.GET("/competition-single-game", s.handleCompetitionSingleGame)
	authed.POST("/feedback", s.handleSubmitFeedback)

	admin := r.Group("/admin")
	admin.GET("/feedback", s.handleAdminFeedback)
	admin.GET("/feedback/count", s.handleAdminFeedbackCount)
	admin.POST("/feedback/resolve", s.handleAdminResolveFeedback)
	admin.GET("/generateImage", s.handleGenerateImage)

	return r
}

func (s *Server) handleHealthz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.Ping() != nil {
		c.JSON(503, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(200, gin.H{"status": "ok"})
}
