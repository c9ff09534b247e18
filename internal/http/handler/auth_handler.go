package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/velichkin/shorty/internal/app/repository"
	"github.com/velichkin/shorty/internal/app/service"
	"go.uber.org/zap"
)

// AuthDeps groups dependencies required by the auth handlers.
type AuthDeps struct {
	Logger *zap.Logger
	Auth   service.AuthService
}

// AuthHandler implements the signup and login endpoints.
type AuthHandler struct {
	logger *zap.Logger
	auth   service.AuthService
}

// NewAuthHandler creates an auth handler with the provided dependencies.
func NewAuthHandler(deps AuthDeps) *AuthHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		logger: logger,
		auth:   deps.Auth,
	}
}

// Register wires auth routes onto the provided router.
func (h *AuthHandler) Register(router fiber.Router) {
	auth := router.Group("/api/auth")
	{
		auth.Post("/signup", h.SignUp)
		auth.Post("/login", h.LogIn)
	}
}

// CredentialsRequest is the request body for both signup and login.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpResponse is returned on successful account creation.
type SignUpResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SignUp handles POST /api/auth/signup
func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	user, err := h.auth.SignUp(requestContext(c), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "email and password are required",
			})
		case errors.Is(err, repository.ErrEmailTaken):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "user with this email already exists",
			})
		default:
			h.logger.Error("signup failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "something went wrong during sign up",
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(SignUpResponse{
		ID:    user.ID,
		Email: user.Email,
	})
}

// LogIn handles POST /api/auth/login
func (h *AuthHandler) LogIn(c *fiber.Ctx) error {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	token, err := h.auth.LogIn(requestContext(c), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid credentials",
			})
		}
		h.logger.Error("login failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "something went wrong during login",
		})
	}

	return c.JSON(fiber.Map{
		"token": token,
	})
}

func requestContext(c *fiber.Ctx) context.Context {
	if ctx := c.UserContext(); ctx != nil {
		return ctx
	}
	return context.Background()
}
