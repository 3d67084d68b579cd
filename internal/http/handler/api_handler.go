package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/linkmint/linkmint/internal/app/repository"
	"github.com/linkmint/linkmint/internal/app/service"
	"github.com/linkmint/linkmint/internal/http/middleware"
	"go.uber.org/zap"
)

// APIDeps groups dependencies required by API handlers.
type APIDeps struct {
	Logger      *zap.Logger
	LinkService service.LinkService
	// BaseURL is the public prefix short links are returned under.
	BaseURL string
	// AuthGate guards the creation endpoints. Resolution never goes through
	// the gate.
	AuthGate fiber.Handler
}

// APIHandler implements the authenticated management API.
type APIHandler struct {
	logger      *zap.Logger
	linkService service.LinkService
	baseURL     string
	authGate    fiber.Handler
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:      logger,
		linkService: deps.LinkService,
		baseURL:     strings.TrimRight(deps.BaseURL, "/"),
		authGate:    deps.AuthGate,
	}
}

// Register wires API routes onto the provided router.
func (h *APIHandler) Register(router fiber.Router) {
	api := router.Group("/api")
	if h.authGate != nil {
		api.Use(h.authGate)
	}
	{
		links := api.Group("/links")
		{
			links.Post("/", h.CreateLink)
			links.Get("/", h.ListLinks)
			links.Get("/:code", h.GetLink)
		}
	}
}

// CreateLinkRequest represents the request body for minting a short link.
type CreateLinkRequest struct {
	LongURL string `json:"long_url"`
}

// CreateLinkResponse represents the response for a freshly minted link.
type CreateLinkResponse struct {
	ShortURL  string `json:"short_url"`
	ShortCode string `json:"short_code"`
	LongURL   string `json:"long_url"`
	ExpiresIn string `json:"expires_in"`
}

// LinkResponse represents stored link metadata.
type LinkResponse struct {
	ShortCode string    `json:"short_code"`
	LongURL   string    `json:"long_url"`
	Owner     string    `json:"owner,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateLink handles POST /api/links
func (h *APIHandler) CreateLink(c *fiber.Ctx) error {
	var req CreateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "request body must be valid JSON",
		})
	}

	link, err := h.linkService.CreateLink(userContext(c), service.CreateLinkInput{
		URL:   req.LongURL,
		Owner: middleware.Caller(c),
	})
	if err != nil {
		if service.IsValidationError(err) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if errors.Is(err, service.ErrExhausted) {
			h.logger.Error("short code allocation exhausted", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "could not generate a unique short code, try again",
			})
		}
		h.logger.Error("failed to create link", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "database error",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(CreateLinkResponse{
		ShortURL:  h.baseURL + "/" + link.Code,
		ShortCode: link.Code,
		LongURL:   link.URL,
		ExpiresIn: "90 days",
	})
}

// GetLink handles GET /api/links/:code
func (h *APIHandler) GetLink(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "code is required",
		})
	}

	link, err := h.linkService.GetLink(userContext(c), code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "link not found",
			})
		}
		h.logger.Error("failed to get link", zap.Error(err), zap.String("code", code))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "database error",
		})
	}

	return c.JSON(LinkResponse{
		ShortCode: link.Code,
		LongURL:   link.URL,
		Owner:     link.Owner,
		CreatedAt: link.CreatedAt,
		ExpiresAt: link.ExpiresAt,
	})
}

// ListLinks handles GET /api/links
func (h *APIHandler) ListLinks(c *fiber.Ctx) error {
	limit := 20
	offset := 0

	if parsed := c.QueryInt("limit"); parsed > 0 && parsed <= 100 {
		limit = parsed
	}
	if parsed := c.QueryInt("offset"); parsed > 0 {
		offset = parsed
	}

	links, err := h.linkService.ListLinks(userContext(c), limit, offset)
	if err != nil {
		h.logger.Error("failed to list links", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "database error",
		})
	}

	response := make([]LinkResponse, len(links))
	for i, link := range links {
		response[i] = LinkResponse{
			ShortCode: link.Code,
			LongURL:   link.URL,
			Owner:     link.Owner,
			CreatedAt: link.CreatedAt,
			ExpiresAt: link.ExpiresAt,
		}
	}

	return c.JSON(fiber.Map{
		"links":  response,
		"limit":  limit,
		"offset": offset,
		"count":  len(response),
	})
}

func userContext(c *fiber.Ctx) context.Context {
	if ctx := c.UserContext(); ctx != nil {
		return ctx
	}
	return context.Background()
}
