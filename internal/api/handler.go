package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/rentledger/internal/metrics"
	"github.com/rongwang/rentledger/internal/models"
	"github.com/rongwang/rentledger/internal/service"
	"github.com/rongwang/rentledger/internal/utils"
)

// Handler serves the HTTP API
type Handler struct {
	svc     service.Service
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewHandler creates a new Handler. metrics and log may be nil.
func NewHandler(svc service.Service, m *metrics.Metrics, log *slog.Logger) *Handler {
	if log == nil {
		log = utils.DiscardLogger()
	}
	return &Handler{
		svc:     svc,
		metrics: m,
		log:     log.With(slog.String("component", "api")),
	}
}

// SetupRoutes registers every route on router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(MetricsMiddleware(h.metrics))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	api := router.Group("/api")
	api.POST("/auth/login", h.Login)

	authed := api.Group("")
	authed.Use(AuthMiddleware())
	admin := authed.Group("")
	admin.Use(RequireRole(service.RoleAdmin))

	admin.POST("/users", h.SignUp)

	authed.GET("/ledger/totals", h.GetTotals)
	authed.GET("/ledger/totals-by-field", h.GetTotalsByField)
	authed.POST("/ledger/entries", h.CreateLedgerEntry)
	authed.DELETE("/ledger/entries/:id", h.DeleteLedgerEntry)

	authed.GET("/buildings", h.ListBuildings)
	admin.POST("/buildings", h.CreateBuilding)
	authed.GET("/buildings/:id/summary", h.GetBuildingSummary)
	admin.PUT("/buildings/:id/settings", h.UpdateSettings)

	authed.GET("/portfolio/summary", h.GetPortfolioSummary)
	authed.GET("/portfolio/summary/export", h.ExportPortfolioSummary)
	authed.GET("/portfolio/settings", h.GetPortfolioSettings)
	admin.PUT("/portfolio/settings", h.UpdatePortfolioSettings)

	authed.GET("/categories", h.ListCategories)
	admin.POST("/categories", h.CreateCategory)
	authed.GET("/employees", h.ListEmployees)
	admin.POST("/employees", h.CreateEmployee)
	admin.POST("/social-security", h.RecordSocialSecurity)
}

// writeError maps a service error onto the HTTP error envelope
func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		badRequest(c, verr.Error())
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Status: "error", Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Status: "error", Code: "UNAUTHORIZED", Message: err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, models.ErrorResponse{Status: "error", Code: "FORBIDDEN", Message: err.Error()})
	default:
		h.log.Error("Request failed",
			slog.String("path", c.Request.URL.Path),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Status:  "error",
			Code:    "INTERNAL_ERROR",
			Message: "Internal server error",
		})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status:  "error",
		Code:    "VALIDATION_ERROR",
		Message: message,
	})
}

// requiredInt reads a mandatory integer query parameter
func requiredInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		badRequest(c, name+" is required")
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, name+" must be an integer")
		return 0, false
	}
	return v, true
}

// period reads the month and year query parameters
func period(c *gin.Context) (month, year int, ok bool) {
	if month, ok = requiredInt(c, "month"); !ok {
		return 0, 0, false
	}
	if year, ok = requiredInt(c, "year"); !ok {
		return 0, 0, false
	}
	return month, year, true
}

// optionalID reads an optional int64 query parameter
func optionalID(c *gin.Context, name string) (*int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		badRequest(c, name+" must be an integer")
		return nil, false
	}
	return &v, true
}

// pathID reads the :id path parameter as an int64
func pathID(c *gin.Context) (int64, bool) {
	v, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "id must be an integer")
		return 0, false
	}
	return v, true
}
