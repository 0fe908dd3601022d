package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"promptbot/internal/config"
	"promptbot/internal/entities"
	"promptbot/internal/interfaces"
	"promptbot/internal/repository"
	"promptbot/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

// UsageHistory reads per-day message counters.
type UsageHistory interface {
	GetUsageHistory(ctx context.Context, userID int, days int) ([]repository.DailyUsage, error)
}

// DeviceStatus exposes the pairing state of a linked WhatsApp device.
type DeviceStatus interface {
	QR() string
	IsLoggedIn() bool
	PhoneNumber() string
}

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Dependencies are the collaborators the HTTP surface is built from. Usage, Device,
// Health, Outbound and Gatherer are optional.
type Dependencies struct {
	Pipeline *usecases.MessagePipeline
	Verifier *usecases.WebhookVerifier
	Webhook  config.WebhookConfig
	Outbound interfaces.DeliveryClient
	Usage    UsageHistory
	Device   DeviceStatus
	Health   HealthChecker
	Gatherer prometheus.Gatherer
}

type Handler struct {
	deps Dependencies
}

func NewHandler(deps Dependencies) *Handler {
	return &Handler{deps: deps}
}

func SetupRoutes(r *gin.Engine, deps Dependencies, middleware *Middleware) {
	h := NewHandler(deps)

	r.Use(middleware.RequestLogger())
	r.Use(RequestSizeLimiter(1 << 20)) // 1MB max request size

	r.GET("/healthz", h.Health)
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	webhook := r.Group("/webhook")
	webhook.Use(h.webhookEnabled())
	{
		webhook.GET("", h.VerifyWebhook)
		webhook.POST("", h.ReceiveWebhook)
		webhook.POST("/send", middleware.AuthRequired(), h.SendMessage)
	}

	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerUser(5, 10))
	{
		api.POST("/chat", h.Chat)
		api.GET("/usage", h.GetUsage)
		api.GET("/whatsapp/qr", h.GetWhatsAppQR)
		api.GET("/whatsapp/status", h.GetWhatsAppStatus)
	}
}

// writeRunError maps a pipeline error to a status code and a reply body.
func writeRunError(c *gin.Context, err error, result usecases.PipelineResult) {
	c.JSON(runErrorReply(err, result))
}

// runErrorReply maps a pipeline error to its HTTP status and body.
func runErrorReply(err error, result usecases.PipelineResult) (int, entities.Reply) {
	switch {
	case errors.Is(err, usecases.ErrUnauthorized):
		return http.StatusUnauthorized, entities.Reply{Error: "unauthorized"}
	case errors.Is(err, usecases.ErrConfigNotFound):
		return http.StatusNotFound, entities.Reply{Error: err.Error()}
	case errors.Is(err, usecases.ErrValidation):
		return http.StatusBadRequest, entities.Reply{Error: err.Error()}
	case errors.Is(err, usecases.ErrPersistFailed):
		// the reply was produced; only the transcript write failed
		return http.StatusInternalServerError, result.Reply
	default:
		log.Error().Err(err).Msg("pipeline run failed")
		return http.StatusInternalServerError, entities.Reply{Error: "internal error"}
	}
}

func (h *Handler) Health(c *gin.Context) {
	if h.deps.Health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.deps.Health.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetUsage returns the caller's daily message counters.
func (h *Handler) GetUsage(c *gin.Context) {
	if h.deps.Usage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "usage tracking not configured"})
		return
	}

	days := 30
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 365 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 365"})
			return
		}
		days = n
	}

	userID := c.GetInt(ctxUserID)
	usage, err := h.deps.Usage.GetUsageHistory(c.Request.Context(), userID, days)
	if err != nil {
		log.Error().Err(err).Int("user_id", userID).Msg("failed to load usage")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load usage"})
		return
	}
	if usage == nil {
		usage = []repository.DailyUsage{}
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "days": days, "usage": usage})
}

// GetWhatsAppQR returns the pairing QR code of the linked device as a PNG.
func (h *Handler) GetWhatsAppQR(c *gin.Context) {
	if h.deps.Device == nil {
		c.String(http.StatusServiceUnavailable, "WhatsApp device not configured")
		return
	}

	code := h.deps.Device.QR()
	if code == "" {
		if h.deps.Device.IsLoggedIn() {
			c.String(http.StatusOK, "Already logged in")
			return
		}
		c.String(http.StatusAccepted, "QR code not yet available. Please wait...")
		return
	}

	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to generate QR code")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) GetWhatsAppStatus(c *gin.Context) {
	if h.deps.Device == nil {
		c.JSON(http.StatusOK, gin.H{"connected": false, "error": "WhatsApp device not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"connected": h.deps.Device.IsLoggedIn(),
		"phone":     h.deps.Device.PhoneNumber(),
		"hasQR":     h.deps.Device.QR() != "",
	})
}
