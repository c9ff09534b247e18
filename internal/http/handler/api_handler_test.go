package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/velichkin/shorty/internal/app/model"
	"github.com/velichkin/shorty/internal/app/repository"
	"github.com/velichkin/shorty/internal/app/service"
	"github.com/velichkin/shorty/internal/http/middleware"
)

type mockLinkService struct {
	shortenFn func(ctx context.Context, ownerID, longURL string) (*model.Link, error)
	listFn    func(ctx context.Context, ownerID string) ([]service.LinkWithStats, error)
	deleteFn  func(ctx context.Context, ownerID, linkID string) error
}

func (m *mockLinkService) Shorten(ctx context.Context, ownerID, longURL string) (*model.Link, error) {
	if m.shortenFn != nil {
		return m.shortenFn(ctx, ownerID, longURL)
	}
	return &model.Link{ID: "l1", OriginalURL: longURL, ShortURL: "https://sho.rt/abc123"}, nil
}

func (m *mockLinkService) ListWithStats(ctx context.Context, ownerID string) ([]service.LinkWithStats, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ownerID)
	}
	return nil, nil
}

func (m *mockLinkService) Delete(ctx context.Context, ownerID, linkID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ownerID, linkID)
	}
	return nil
}

// stubGuard stands in for RequireAuth in handler tests.
func stubGuard(userID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(middleware.UserIDKey, userID)
		return c.Next()
	}
}

func apiHandlerApp(links service.LinkService) *fiber.App {
	app := fiber.New()
	NewAPIHandler(APIDeps{LinkService: links}).Register(app, stubGuard("user-1"))
	return app
}

func TestAPIHandler_Shorten(t *testing.T) {
	app := apiHandlerApp(&mockLinkService{
		shortenFn: func(ctx context.Context, ownerID, longURL string) (*model.Link, error) {
			if ownerID != "user-1" {
				t.Fatalf("expected owner user-1, got %q", ownerID)
			}
			if longURL != "https://example.com" {
				t.Fatalf("unexpected long URL %q", longURL)
			}
			return &model.Link{ID: "l1", ShortURL: "https://sho.rt/abc123"}, nil
		},
	})

	req := httptest.NewRequest("POST", "/api/shorten",
		strings.NewReader(`{"longUrl":"https://example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["shortUrl"] != "https://sho.rt/abc123" {
		t.Fatalf("unexpected shortUrl %q", body["shortUrl"])
	}
}

func TestAPIHandler_Shorten_InvalidURL(t *testing.T) {
	app := apiHandlerApp(&mockLinkService{
		shortenFn: func(ctx context.Context, ownerID, longURL string) (*model.Link, error) {
			t.Fatal("service must not be called for an invalid URL")
			return nil, nil
		},
	})

	req := httptest.NewRequest("POST", "/api/shorten",
		strings.NewReader(`{"longUrl":"not a url"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAPIHandler_ListLinks(t *testing.T) {
	app := apiHandlerApp(&mockLinkService{
		listFn: func(ctx context.Context, ownerID string) ([]service.LinkWithStats, error) {
			return []service.LinkWithStats{
				{
					Link:            model.Link{ID: "l2", OriginalURL: "https://b.example", ShortURL: "https://sho.rt/b"},
					TotalClicks:     5,
					ClicksAvailable: true,
				},
				{
					// Degraded entry: stats fetch failed upstream.
					Link: model.Link{ID: "l1", OriginalURL: "https://a.example", ShortURL: "https://sho.rt/a"},
				},
			}, nil
		},
	})

	req := httptest.NewRequest("GET", "/api/links/", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body []LinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(body))
	}
	if body[0].ID != "l2" || body[0].TotalClicks != 5 || !body[0].ClicksAvailable {
		t.Fatalf("unexpected first entry %+v", body[0])
	}
	if body[1].ID != "l1" || body[1].TotalClicks != 0 || body[1].ClicksAvailable {
		t.Fatalf("unexpected degraded entry %+v", body[1])
	}
}

func TestAPIHandler_DeleteLink_NotFound(t *testing.T) {
	app := apiHandlerApp(&mockLinkService{
		deleteFn: func(ctx context.Context, ownerID, linkID string) error {
			return repository.ErrLinkNotFound
		},
	})

	req := httptest.NewRequest("DELETE", "/api/links/l9", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAPIHandler_DeleteLink(t *testing.T) {
	deleted := ""
	app := apiHandlerApp(&mockLinkService{
		deleteFn: func(ctx context.Context, ownerID, linkID string) error {
			deleted = linkID
			return nil
		},
	})

	req := httptest.NewRequest("DELETE", "/api/links/l9", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if deleted != "l9" {
		t.Fatalf("expected delete of l9, got %q", deleted)
	}
}
