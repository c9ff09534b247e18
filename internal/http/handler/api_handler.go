package handler

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/velichkin/shorty/internal/app/repository"
	"github.com/velichkin/shorty/internal/app/service"
	"github.com/velichkin/shorty/internal/http/middleware"
	"go.uber.org/zap"
)

// APIDeps groups dependencies required by the link API handlers.
type APIDeps struct {
	Logger      *zap.Logger
	LinkService service.LinkService
}

// APIHandler implements the authenticated link endpoints.
type APIHandler struct {
	logger      *zap.Logger
	linkService service.LinkService
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
	}
}

// Register wires link routes onto the provided router behind the auth guard.
func (h *APIHandler) Register(router fiber.Router, authGuard fiber.Handler) {
	api := router.Group("/api")
	{
		api.Post("/shorten", authGuard, h.Shorten)

		links := api.Group("/links", authGuard)
		{
			links.Get("/", h.ListLinks)
			links.Delete("/:id", h.DeleteLink)
		}
	}
}

// ShortenRequest represents the request body for creating a short link.
type ShortenRequest struct {
	LongURL string `json:"longUrl"`
}

// LinkResponse is one entry of the dashboard listing.
type LinkResponse struct {
	ID              string `json:"id"`
	OriginalURL     string `json:"originalUrl"`
	ShortURL        string `json:"shortUrl"`
	TotalClicks     int64  `json:"totalClicks"`
	ClicksAvailable bool   `json:"clicksAvailable"`
}

// Shorten handles POST /api/shorten
func (h *APIHandler) Shorten(c *fiber.Ctx) error {
	var req ShortenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if !validLongURL(req.LongURL) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "longUrl must be an absolute http(s) URL",
		})
	}

	ownerID := middleware.AuthenticatedUserID(c)
	link, err := h.linkService.Shorten(requestContext(c), ownerID, req.LongURL)
	if err != nil {
		h.logger.Error("failed to create short link", zap.Error(err), zap.String("owner_id", ownerID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "error creating short link",
		})
	}

	return c.JSON(fiber.Map{
		"shortUrl": link.ShortURL,
	})
}

// ListLinks handles GET /api/links
func (h *APIHandler) ListLinks(c *fiber.Ctx) error {
	ownerID := middleware.AuthenticatedUserID(c)

	links, err := h.linkService.ListWithStats(requestContext(c), ownerID)
	if err != nil {
		h.logger.Error("failed to list links", zap.Error(err), zap.String("owner_id", ownerID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "something went wrong while fetching links",
		})
	}

	response := make([]LinkResponse, len(links))
	for i, entry := range links {
		response[i] = LinkResponse{
			ID:              entry.Link.ID,
			OriginalURL:     entry.Link.OriginalURL,
			ShortURL:        entry.Link.ShortURL,
			TotalClicks:     entry.TotalClicks,
			ClicksAvailable: entry.ClicksAvailable,
		}
	}

	return c.JSON(response)
}

// DeleteLink handles DELETE /api/links/:id
func (h *APIHandler) DeleteLink(c *fiber.Ctx) error {
	linkID := c.Params("id")
	if linkID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "link id is required",
		})
	}

	ownerID := middleware.AuthenticatedUserID(c)
	if err := h.linkService.Delete(requestContext(c), ownerID, linkID); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "link not found",
			})
		}
		h.logger.Error("failed to delete link", zap.Error(err),
			zap.String("owner_id", ownerID), zap.String("link_id", linkID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "error deleting link",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func validLongURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
