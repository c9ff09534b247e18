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
)

type mockAuthService struct {
	signUpFn func(ctx context.Context, email, password string) (*model.User, error)
	logInFn  func(ctx context.Context, email, password string) (string, error)
}

func (m *mockAuthService) SignUp(ctx context.Context, email, password string) (*model.User, error) {
	if m.signUpFn != nil {
		return m.signUpFn(ctx, email, password)
	}
	return &model.User{ID: "u1", Email: email}, nil
}

func (m *mockAuthService) LogIn(ctx context.Context, email, password string) (string, error) {
	if m.logInFn != nil {
		return m.logInFn(ctx, email, password)
	}
	return "token", nil
}

func (m *mockAuthService) SeedEmailFilter(ctx context.Context) error {
	return nil
}

func authHandlerApp(auth service.AuthService) *fiber.App {
	app := fiber.New()
	NewAuthHandler(AuthDeps{Auth: auth}).Register(app)
	return app
}

func TestAuthHandler_SignUp(t *testing.T) {
	app := authHandlerApp(&mockAuthService{
		signUpFn: func(ctx context.Context, email, password string) (*model.User, error) {
			return &model.User{ID: "u1", Email: "a@x.com"}, nil
		},
	})

	req := httptest.NewRequest("POST", "/api/auth/signup",
		strings.NewReader(`{"email":"a@x.com","password":"pw1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var body SignUpResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.ID != "u1" || body.Email != "a@x.com" {
		t.Fatalf("unexpected response %+v", body)
	}
}

func TestAuthHandler_SignUp_Conflict(t *testing.T) {
	app := authHandlerApp(&mockAuthService{
		signUpFn: func(ctx context.Context, email, password string) (*model.User, error) {
			return nil, repository.ErrEmailTaken
		},
	})

	req := httptest.NewRequest("POST", "/api/auth/signup",
		strings.NewReader(`{"email":"a@x.com","password":"pw1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate email, got %d", resp.StatusCode)
	}
}

func TestAuthHandler_LogIn(t *testing.T) {
	app := authHandlerApp(&mockAuthService{
		logInFn: func(ctx context.Context, email, password string) (string, error) {
			return "jwt-token", nil
		},
	})

	req := httptest.NewRequest("POST", "/api/auth/login",
		strings.NewReader(`{"email":"a@x.com","password":"pw1"}`))
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
	if body["token"] != "jwt-token" {
		t.Fatalf("unexpected token %q", body["token"])
	}
}

func TestAuthHandler_LogIn_InvalidCredentials(t *testing.T) {
	app := authHandlerApp(&mockAuthService{
		logInFn: func(ctx context.Context, email, password string) (string, error) {
			return "", service.ErrInvalidCredentials
		},
	})

	req := httptest.NewRequest("POST", "/api/auth/login",
		strings.NewReader(`{"email":"a@x.com","password":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for bad credentials, got %d", resp.StatusCode)
	}
}
