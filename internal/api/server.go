// Package api exposes the extraction service over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/meetinsight/service/internal/extract"
	"github.com/meetinsight/service/internal/llm"
	"github.com/meetinsight/service/internal/models"
	"github.com/meetinsight/service/internal/session"
)

// Server wires HTTP handlers to the extraction service.
type Server struct {
	service  *extract.Service
	sessions *session.Store
	log      *logrus.Logger
}

func NewServer(service *extract.Service, sessions *session.Store, log *logrus.Logger) *Server {
	return &Server{service: service, sessions: sessions, log: log}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router(mode string) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", s.handleHealth)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/extract", s.handleExtract)
		v1.GET("/models", s.handleListModels)
		v1.POST("/models/switch", s.handleSwitchModel)
		v1.GET("/sessions/:id/history", s.handleSessionHistory)
	}

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"active_model": s.service.ActiveModel(),
		"time":         time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleExtract(c *gin.Context) {
	var req models.ExtractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	result, err := s.service.Extract(c.Request.Context(), &req)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": s.service.ListModels()})
}

type switchRequest struct {
	ModelType models.ModelType `json:"model_type" binding:"required"`
}

func (s *Server) handleSwitchModel(c *gin.Context) {
	var req switchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "model_type is required"})
		return
	}

	if err := s.service.SwitchModel(req.ModelType); err != nil {
		s.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active_model": req.ModelType})
}

func (s *Server) handleSessionHistory(c *gin.Context) {
	if s.sessions == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session history is not enabled"})
		return
	}

	id := c.Param("id")
	history := s.sessions.History(id)
	c.JSON(http.StatusOK, gin.H{
		"session_id": id,
		"turns":      history,
	})
}

// writeServiceError maps service-level errors onto HTTP statuses: caller
// misuse is 4xx, an unusable backend is 503.
func (s *Server) writeServiceError(c *gin.Context, err error) {
	switch {
	case llm.IsUnsupportedModel(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case llm.IsConfiguration(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		s.log.WithError(err).Error("extraction request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
