package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/zmuhls/cloze-reader/backend/internal/board"
	"github.com/zmuhls/cloze-reader/backend/internal/leaderboard"
	"go.uber.org/zap"
)

const requestIDContextKey = "cloze_request_id"

var errMissingLeaderboardService = errors.New("leaderboard service dependency required")

// LeaderboardService is the surface the router needs from the sync service.
type LeaderboardService interface {
	Read(ctx context.Context) []board.Record
	Add(ctx context.Context, record board.Record) leaderboard.Outcome
	Replace(ctx context.Context, records []board.Record) leaderboard.Outcome
	Clear(ctx context.Context) leaderboard.Outcome
}

// Dependencies bundles everything required to build the HTTP handler.
type Dependencies struct {
	Leaderboard LeaderboardService
	Logger      *zap.Logger
	StaticDir   string
}

// NewHTTPHandler wires the REST endpoints and optional static asset serving.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Leaderboard == nil {
		return nil, errMissingLeaderboardService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIdentifier())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		leaderboard: deps.Leaderboard,
		logger:      logger,
	}

	api := router.Group("/api")
	api.GET("/leaderboard", handler.handleReadLeaderboard)
	api.POST("/leaderboard", handler.handleAddEntry)
	api.PUT("/leaderboard", handler.handleReplaceLeaderboard)
	api.DELETE("/leaderboard", handler.handleClearLeaderboard)

	if deps.StaticDir != "" {
		router.NoRoute(gin.WrapH(http.FileServer(http.Dir(deps.StaticDir))))
	}

	return router, nil
}

type httpHandler struct {
	leaderboard LeaderboardService
	logger      *zap.Logger
}

type leaderboardPayload struct {
	Leaderboard []board.Record `json:"leaderboard"`
}

func (h *httpHandler) handleReadLeaderboard(c *gin.Context) {
	records := h.leaderboard.Read(c.Request.Context())
	c.JSON(http.StatusOK, leaderboardPayload{Leaderboard: records})
}

func (h *httpHandler) handleAddEntry(c *gin.Context) {
	var record board.Record
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	h.writeOutcome(c, h.leaderboard.Add(c.Request.Context(), record))
}

func (h *httpHandler) handleReplaceLeaderboard(c *gin.Context) {
	var request leaderboardPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	h.writeOutcome(c, h.leaderboard.Replace(c.Request.Context(), request.Leaderboard))
}

func (h *httpHandler) handleClearLeaderboard(c *gin.Context) {
	h.writeOutcome(c, h.leaderboard.Clear(c.Request.Context()))
}

// writeOutcome maps the ternary write result onto HTTP statuses. A missing
// credential is a configuration state, not an outage, so it gets its own
// status and error token.
func (h *httpHandler) writeOutcome(c *gin.Context, outcome leaderboard.Outcome) {
	switch outcome.Status {
	case leaderboard.StatusOK:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case leaderboard.StatusRejected:
		c.JSON(http.StatusForbidden, gin.H{"error": "read_only_mode"})
	default:
		h.logger.Error("leaderboard write failed",
			zap.String("request_id", c.GetString(requestIDContextKey)),
			zap.Error(outcome.Err))
		response := gin.H{"error": "sync_failed"}
		var serviceErr *leaderboard.ServiceError
		if errors.As(outcome.Err, &serviceErr) {
			response["code"] = serviceErr.Code()
		}
		c.JSON(http.StatusBadGateway, response)
	}
}

func requestIdentifier() gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := c.GetHeader("X-Request-ID")
		if identifier == "" {
			identifier = uuid.NewString()
		}
		c.Set(requestIDContextKey, identifier)
		c.Writer.Header().Set("X-Request-ID", identifier)
		c.Next()
	}
}
