package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/velichkin/shorty/config"
	"github.com/velichkin/shorty/internal/app/model"
	"github.com/velichkin/shorty/internal/app/repository"
	"github.com/velichkin/shorty/internal/app/service"
	"github.com/velichkin/shorty/internal/http/util"
	"go.uber.org/zap"
)

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func (r *memoryUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Email]; ok {
		return repository.ErrEmailTaken
	}
	r.users[user.Email] = user
	return nil
}

func (r *memoryUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[email]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (r *memoryUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *memoryUserRepo) ListEmails(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	emails := make([]string, 0, len(r.users))
	for email := range r.users {
		emails = append(emails, email)
	}
	return emails, nil
}

type memoryLinkRepo struct {
	mu    sync.Mutex
	links []model.Link
}

func (r *memoryLinkRepo) Create(ctx context.Context, link *model.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}
	r.links = append(r.links, *link)
	return nil
}

func (r *memoryLinkRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []model.Link
	for _, link := range r.links {
		if link.OwnerID == ownerID {
			result = append(result, link)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *memoryLinkRepo) GetByIDForOwner(ctx context.Context, id, ownerID string) (*model.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, link := range r.links {
		if link.ID == id && link.OwnerID == ownerID {
			found := link
			return &found, nil
		}
	}
	return nil, repository.ErrLinkNotFound
}

func (r *memoryLinkRepo) DeleteByIDForOwner(ctx context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, link := range r.links {
		if link.ID == id && link.OwnerID == ownerID {
			r.links = append(r.links[:i], r.links[i+1:]...)
			return nil
		}
	}
	return repository.ErrLinkNotFound
}

func (r *memoryLinkRepo) ListRecent(ctx context.Context, limit int) ([]model.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Link(nil), r.links...), nil
}

type fakeProvider struct{}

func (fakeProvider) CreateLink(ctx context.Context, originalURL string) (string, error) {
	return "https://sho.rt/abc123", nil
}

func (fakeProvider) ExpandPath(ctx context.Context, path string) (string, error) {
	return "lnk_1", nil
}

func (fakeProvider) LinkStats(ctx context.Context, linkID string) (int64, error) {
	return 3, nil
}

func (fakeProvider) DeleteLink(ctx context.Context, linkID string) error {
	return nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := zap.NewNop()
	tokens := util.NewTokenSigner([]byte("test-secret-test-secret-test"), time.Hour)

	userRepo := &memoryUserRepo{users: make(map[string]*model.User)}
	linkRepo := &memoryLinkRepo{}

	authService := service.NewAuthService(userRepo, tokens)
	linkService := service.NewLinkService(service.LinkServiceDeps{
		Links:    linkRepo,
		Provider: fakeProvider{},
		Logger:   logger,
	})

	return New(Dependencies{
		Logger:      logger,
		Config:      &config.Config{},
		Tokens:      tokens,
		AuthService: authService,
		LinkService: linkService,
	})
}

func TestServer_SignupLoginShortenList(t *testing.T) {
	srv := newTestServer(t)

	// Signup
	req := httptest.NewRequest("POST", "/api/auth/signup",
		strings.NewReader(`{"email":"a@x.com","password":"pw1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.app.Test(req)
	if err != nil {
		t.Fatalf("signup request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201 on signup, got %d", resp.StatusCode)
	}

	// Duplicate signup conflicts
	req = httptest.NewRequest("POST", "/api/auth/signup",
		strings.NewReader(`{"email":"a@x.com","password":"pw1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = srv.app.Test(req)
	if err != nil {
		t.Fatalf("duplicate signup request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 on duplicate signup, got %d", resp.StatusCode)
	}

	// Login
	req = httptest.NewRequest("POST", "/api/auth/login",
		strings.NewReader(`{"email":"a@x.com","password":"pw1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = srv.app.Test(req)
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 on login, got %d", resp.StatusCode)
	}
	var loginBody map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&loginBody); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	token := loginBody["token"]
	if token == "" {
		t.Fatal("expected a token")
	}

	// Shorten
	req = httptest.NewRequest("POST", "/api/shorten",
		strings.NewReader(`{"longUrl":"https://example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = srv.app.Test(req)
	if err != nil {
		t.Fatalf("shorten request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 on shorten, got %d", resp.StatusCode)
	}
	var shortenBody map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&shortenBody); err != nil {
		t.Fatalf("decode shorten response: %v", err)
	}
	if shortenBody["shortUrl"] != "https://sho.rt/abc123" {
		t.Fatalf("unexpected shortUrl %q", shortenBody["shortUrl"])
	}

	// List
	req = httptest.NewRequest("GET", "/api/links", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = srv.app.Test(req)
	if err != nil {
		t.Fatalf("list request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 on list, got %d", resp.StatusCode)
	}
	var links []struct {
		OriginalURL string `json:"originalUrl"`
		ShortURL    string `json:"shortUrl"`
		TotalClicks int64  `json:"totalClicks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&links); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(links))
	}
	if links[0].OriginalURL != "https://example.com" || links[0].TotalClicks < 0 {
		t.Fatalf("unexpected link entry %+v", links[0])
	}
}

func TestServer_ProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/links", nil)
	resp, err := srv.app.Test(req)
	if err != nil {
		t.Fatalf("list request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("POST", "/api/shorten",
		strings.NewReader(`{"longUrl":"https://example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = srv.app.Test(req)
	if err != nil {
		t.Fatalf("shorten request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestServer_RootHealth(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/", nil)
	resp, err := srv.app.Test(req)
	if err != nil {
		t.Fatalf("root request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 on root, got %d", resp.StatusCode)
	}
}
