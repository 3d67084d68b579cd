package handler

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/linkmint/linkmint/internal/app/repository"
	"github.com/linkmint/linkmint/internal/app/service"
	"go.uber.org/zap"
)

// RedirectDeps groups dependencies required by the public redirect handler.
type RedirectDeps struct {
	Logger           *zap.Logger
	LinkService      service.LinkService
	ResolvePublisher *service.ResolvePublisher
	// Ping reports backing-store health for /health; optional.
	Ping func(c *fiber.Ctx) error
}

// RedirectHandler serves the anonymous resolution path. It must stay
// reachable without any caller identity.
type RedirectHandler struct {
	logger           *zap.Logger
	linkService      service.LinkService
	resolvePublisher *service.ResolvePublisher
	ping             func(c *fiber.Ctx) error
}

// NewRedirectHandler creates a redirect handler with the provided dependencies.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedirectHandler{
		logger:           logger,
		linkService:      deps.LinkService,
		resolvePublisher: deps.ResolvePublisher,
		ping:             deps.Ping,
	}
}

// Register wires redirect routes onto the provided router. Must run after
// more specific routes so /:code does not shadow them.
func (h *RedirectHandler) Register(router fiber.Router) {
	router.Get("/", h.Health)
	router.Get("/health", h.Health)
	router.Get("/:code", h.Resolve)
}

// Health reports service liveness plus backing-store reachability.
func (h *RedirectHandler) Health(c *fiber.Ctx) error {
	if h.ping != nil {
		if err := h.ping(c); err != nil {
			h.logger.Error("health check failed", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"service": "linkmint",
				"status":  "degraded",
				"error":   err.Error(),
			})
		}
	}
	return c.JSON(fiber.Map{
		"service": "linkmint",
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Resolve handles GET /:code with a permanent redirect to the stored target.
func (h *RedirectHandler) Resolve(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "short code is required",
		})
	}

	link, err := h.linkService.ResolveLink(userContext(c), code)
	if err != nil {
		// Absent, expired and reaped codes all surface identically.
		if errors.Is(err, repository.ErrLinkNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": fmt.Sprintf("short code '%s' not found", code),
			})
		}
		h.logger.Error("failed to resolve link", zap.Error(err), zap.String("code", code))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "database error",
		})
	}

	if h.resolvePublisher != nil {
		go h.publishResolveEvent(code, c.IP(), c.Get("User-Agent"))
	}

	h.logger.Debug("redirecting short link", zap.String("code", code), zap.String("target", link.URL))
	return c.Redirect(link.URL, fiber.StatusMovedPermanently)
}

func (h *RedirectHandler) publishResolveEvent(code, ip, userAgent string) {
	if err := h.resolvePublisher.Publish(code, ip, userAgent); err != nil {
		h.logger.Error("failed to publish resolve event", zap.Error(err), zap.String("code", code))
	}
}
