package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"order-portal/internal/models"
	"order-portal/internal/remote"
	"order-portal/internal/service"
	"order-portal/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ReadinessCheck reports whether one dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// BuildInfo is reported by the health endpoint
type BuildInfo struct {
	Env     string
	Version string
}

// Handler contains HTTP handlers
type Handler struct {
	orders   *service.OrderService
	cancels  *service.CancellationService
	sessions *SessionRegistry
	info     BuildInfo
	checks   map[string]ReadinessCheck
	started  time.Time
	draining atomic.Bool
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(orders *service.OrderService, cancels *service.CancellationService, sessions *SessionRegistry, info BuildInfo) *Handler {
	return &Handler{
		orders:   orders,
		cancels:  cancels,
		sessions: sessions,
		info:     info,
		checks:   make(map[string]ReadinessCheck),
		started:  time.Now(),
		logger:   util.GetLogger(),
	}
}

// AddReadinessCheck registers a dependency probed by /ready.
func (h *Handler) AddReadinessCheck(name string, check ReadinessCheck) {
	h.checks[name] = check
}

// Drain makes /health and /ready report unavailable while the server stops.
func (h *Handler) Drain() {
	h.draining.Store(true)
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	portal := router.Group("/api/portal")
	{
		portal.GET("/orders", h.dashboard)
		portal.POST("/orders", h.createOrder)
		portal.GET("/orders/:id", h.getOrder)
		portal.PUT("/orders/:id/visibility", h.setVisibility)
		portal.GET("/orders/:id/cancel", h.getCancellation)
		portal.POST("/orders/:id/cancel", h.cancelOrder)
		portal.POST("/orders/:id/cancel/retry", h.retryCancel)
		portal.DELETE("/orders/:id/cancel/notification", h.dismissNotification)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	if h.draining.Load() {
		status, code = "unhealthy", http.StatusInternalServerError
	}

	c.JSON(code, gin.H{
		"status":      status,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"uptime":      time.Since(h.started).Seconds(),
		"environment": h.info.Env,
		"version":     h.info.Version,
	})
}

// readinessCheck probes every registered dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	if h.draining.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "draining",
			"time":   time.Now().Unix(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"checks": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// dashboard lists orders filtered by search text and status, one page at a time
func (h *Handler) dashboard(c *gin.Context) {
	var q service.DashboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query",
			"details": err.Error(),
		})
		return
	}

	page, err := h.orders.Dashboard(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, "Failed to load orders", err)
		return
	}

	c.JSON(http.StatusOK, page)
}

type createOrderBody struct {
	models.CreateOrderRequest
	Items []models.LineItem `json:"items,omitempty"`
}

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var body createOrderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	var (
		confirmation *models.OrderConfirmation
		err          error
	)
	if len(body.Items) > 0 {
		confirmation, err = h.orders.CreateOrderFromItems(c.Request.Context(), &body.CreateOrderRequest, body.Items)
	} else {
		confirmation, err = h.orders.CreateOrder(c.Request.Context(), &body.CreateOrderRequest)
	}
	if err != nil {
		h.writeError(c, "Failed to create order", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order":     confirmation.Order,
		"displayId": confirmation.DisplayID(),
		"sagaId":    confirmation.SagaID,
	})
}

// getOrder returns the reconciled view of one order
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	view, err := h.sessions.View(c.Request.Context(), orderID)
	if err != nil {
		h.writeError(c, "Failed to load order", err)
		return
	}

	c.JSON(http.StatusOK, view)
}

type visibilityBody struct {
	Visible *bool `json:"visible" binding:"required"`
}

// setVisibility pauses polling while the order page is hidden
func (h *Handler) setVisibility(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var body visibilityBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if !h.sessions.SetActive(orderID, *body.Visible) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No open session for order",
		})
		return
	}
	c.Status(http.StatusNoContent)
}

type cancelBody struct {
	Reason string `json:"reason"`
}

// cancelOrder submits a cancellation and returns the resulting notification
func (h *Handler) cancelOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var body cancelBody
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request body",
				"details": err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, h.cancels.Submit(c.Request.Context(), orderID, body.Reason))
}

// retryCancel resubmits the last failed cancellation
func (h *Handler) retryCancel(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	snapshot, err := h.cancels.Retry(c.Request.Context(), orderID)
	if errors.Is(err, service.ErrRetryNotAllowed) {
		c.JSON(http.StatusConflict, gin.H{
			"error":        err.Error(),
			"cancellation": snapshot,
		})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func (h *Handler) getCancellation(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.cancels.Snapshot(orderID))
}

func (h *Handler) dismissNotification(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.cancels.Dismiss(orderID))
}

// orderIDParam reads the :id segment. Order ids are numeric on the backend.
func orderIDParam(c *gin.Context) (string, bool) {
	idStr := c.Param("id")
	if _, err := strconv.ParseInt(idStr, 10, 64); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid order ID",
		})
		return "", false
	}
	return idStr, true
}

// writeError maps backend failures onto HTTP answers.
func (h *Handler) writeError(c *gin.Context, message string, err error) {
	var (
		validationErr *remote.ValidationError
		clientErr     *remote.ClientError
		serverErr     *remote.ServerError
		schemaErr     *remote.SchemaError
		netErr        *remote.NetworkError
	)

	code := http.StatusInternalServerError
	resp := gin.H{
		"error":   message,
		"details": err.Error(),
	}

	switch {
	case errors.As(err, &validationErr):
		code = http.StatusBadRequest
		resp["fields"] = validationErr.Fields
	case errors.As(err, &clientErr) && clientErr.NotFound():
		code = http.StatusNotFound
		resp["error"] = service.MsgOrderNotFound
	case errors.As(err, &clientErr):
		code = http.StatusBadRequest
	case errors.As(err, &serverErr), errors.As(err, &schemaErr):
		code = http.StatusBadGateway
	case errors.As(err, &netErr):
		code = http.StatusServiceUnavailable
	case errors.Is(err, ErrRegistryClosed):
		code = http.StatusServiceUnavailable
	}

	if code >= http.StatusInternalServerError {
		h.logger.Error(message, zap.Error(err), zap.String("path", c.FullPath()))
	}
	c.JSON(code, resp)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(c.Request.Method, route, status).
			Observe(time.Since(start).Seconds())
		util.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
	}
}
