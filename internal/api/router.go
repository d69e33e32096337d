package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"loanScope/internal/metrics"
	"loanScope/internal/model"
	"loanScope/internal/query"
)

// Querier is the read API served over HTTP.
type Querier interface {
	ListEvents(filter query.EventFilter) []model.Event
	GetLoan(id string) (model.LoanRecord, bool)
	ListLoans() []model.LoanRecord
	ListUserLoans(address string) []model.LoanRecord
	GetStatistics(user string) model.Statistics
}

// Refresher reloads the snapshot behind the Querier.
type Refresher interface {
	Refresh(ctx context.Context) error
	LoadedAt() time.Time
	Len() int
}

// NewRouter builds the gin engine for the query service.
func NewRouter(q Querier, store Refresher, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{query: q, store: store, logger: logger}

	engine := gin.New()
	engine.Use(recovery(logger), requestLogger(logger), requestMetrics())

	engine.GET("/health", h.health)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.POST("/refresh", h.refresh)

	events := engine.Group("/events")
	{
		events.GET("", h.listEvents)
		events.GET("/type/:type", h.eventsByType)
		events.GET("/loan/:loan_id", h.eventsByLoan)
	}

	loans := engine.Group("/loans")
	{
		loans.GET("", h.listLoans)
		loans.GET("/:loan_id", h.getLoan)
	}

	users := engine.Group("/users/:address")
	{
		users.GET("/events", h.userEvents)
		users.GET("/loans", h.userLoans)
		users.GET("/stats", h.userStats)
	}

	engine.GET("/stats", h.stats)
	return engine
}

func recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err interface{}) {
		logger.Error("panic recovered",
			zap.Any("error", err),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	})
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.Duration("latency", time.Since(start)),
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("request", fields...)
		case status >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Debug("request", fields...)
		}
	}
}

func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		// route template keeps label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
