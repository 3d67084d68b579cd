package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/linkmint/linkmint/internal/app/model"
	"github.com/linkmint/linkmint/internal/app/repository"
)

func newRedirectApp(svc *mockLinkService) *fiber.App {
	app := fiber.New()
	NewRedirectHandler(RedirectDeps{LinkService: svc}).Register(app)
	return app
}

func TestRedirectHandler_Resolve(t *testing.T) {
	svc := &mockLinkService{
		resolveFn: func(ctx context.Context, code string) (*model.Link, error) {
			if code != "k9xZ2aB1" {
				return nil, repository.ErrLinkNotFound
			}
			return &model.Link{
				Code:      code,
				URL:       "https://example.com/a",
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}
	app := newRedirectApp(svc)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/k9xZ2aB1", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusMovedPermanently {
		t.Fatalf("expected 301, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "https://example.com/a" {
		t.Fatalf("expected Location to point at the stored URL, got %q", loc)
	}
}

func TestRedirectHandler_NotFound(t *testing.T) {
	svc := &mockLinkService{
		resolveFn: func(ctx context.Context, code string) (*model.Link, error) {
			return nil, repository.ErrLinkNotFound
		},
	}
	app := newRedirectApp(svc)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/doesNotExist", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// The diagnostic payload names the missing code.
	if !strings.Contains(body["error"], "doesNotExist") {
		t.Fatalf("expected the missing code in the error, got %q", body["error"])
	}
}

func TestRedirectHandler_StoreFailure(t *testing.T) {
	svc := &mockLinkService{
		resolveFn: func(ctx context.Context, code string) (*model.Link, error) {
			return nil, errors.New("connection refused")
		},
	}
	app := newRedirectApp(svc)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/AAAAbbbb", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("store failures must not look like not-found, got %d", resp.StatusCode)
	}
}

func TestRedirectHandler_Health(t *testing.T) {
	app := newRedirectApp(&mockLinkService{})

	for _, path := range []string{"/", "/health"} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected 200 on %s, got %d", path, resp.StatusCode)
		}
	}
}

func TestRedirectHandler_DegradedHealth(t *testing.T) {
	app := fiber.New()
	NewRedirectHandler(RedirectDeps{
		LinkService: &mockLinkService{},
		Ping: func(c *fiber.Ctx) error {
			return errors.New("postgres: connection refused")
		},
	}).Register(app)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}
