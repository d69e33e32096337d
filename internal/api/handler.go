package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"loanScope/internal/model"
	"loanScope/internal/query"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 1000
)

type handler struct {
	query  Querier
	store  Refresher
	logger *zap.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

type eventsResponse struct {
	Events []model.Event `json:"events"`
	Total  int           `json:"total"`
	Page   int           `json:"page"`
	Limit  int           `json:"limit"`
}

type healthResponse struct {
	Status   string    `json:"status"`
	Events   int       `json:"events"`
	LoadedAt time.Time `json:"loaded_at"`
}

// GET /health
func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:   "ok",
		Events:   h.store.Len(),
		LoadedAt: h.store.LoadedAt(),
	})
}

// POST /refresh
func (h *handler) refresh(c *gin.Context) {
	if err := h.store.Refresh(c.Request.Context()); err != nil {
		h.logger.Error("manual refresh failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	h.health(c)
}

// GET /events?type=&loan_id=&address=&page=&limit=
func (h *handler) listEvents(c *gin.Context) {
	h.events(c, query.EventFilter{
		Type:    c.Query("type"),
		LoanID:  c.Query("loan_id"),
		Address: c.Query("address"),
	})
}

// GET /events/type/:type
func (h *handler) eventsByType(c *gin.Context) {
	h.events(c, query.EventFilter{Type: c.Param("type")})
}

// GET /events/loan/:loan_id
func (h *handler) eventsByLoan(c *gin.Context) {
	h.events(c, query.EventFilter{LoanID: c.Param("loan_id")})
}

// GET /users/:address/events
func (h *handler) userEvents(c *gin.Context) {
	h.events(c, query.EventFilter{Address: c.Param("address")})
}

func (h *handler) events(c *gin.Context, filter query.EventFilter) {
	page, limit, err := pagination(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	events := h.query.ListEvents(filter)
	c.JSON(http.StatusOK, eventsResponse{
		Events: paginate(events, page, limit),
		Total:  len(events),
		Page:   page,
		Limit:  limit,
	})
}

// GET /loans
func (h *handler) listLoans(c *gin.Context) {
	c.JSON(http.StatusOK, h.query.ListLoans())
}

// GET /loans/:loan_id
func (h *handler) getLoan(c *gin.Context) {
	id := c.Param("loan_id")
	rec, ok := h.query.GetLoan(id)
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "loan " + id + " not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GET /users/:address/loans
func (h *handler) userLoans(c *gin.Context) {
	c.JSON(http.StatusOK, h.query.ListUserLoans(c.Param("address")))
}

// GET /users/:address/stats
func (h *handler) userStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.query.GetStatistics(c.Param("address")))
}

// GET /stats
func (h *handler) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.query.GetStatistics(""))
}

type paginationError string

func (e paginationError) Error() string { return string(e) }

func pagination(c *gin.Context) (page, limit int, err error) {
	page, limit = 1, defaultPageLimit
	if raw := c.Query("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, paginationError("page must be a positive integer")
		}
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, paginationError("limit must be a positive integer")
		}
		if limit > maxPageLimit {
			limit = maxPageLimit
		}
	}
	return page, limit, nil
}

func paginate(events []model.Event, page, limit int) []model.Event {
	if page-1 > len(events)/limit {
		return []model.Event{}
	}
	start := (page - 1) * limit
	if start >= len(events) {
		return []model.Event{}
	}
	end := start + limit
	if end > len(events) {
		end = len(events)
	}
	return events[start:end]
}
