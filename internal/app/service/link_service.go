package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/velichkin/shorty/internal/app/model"
	"github.com/velichkin/shorty/internal/app/repository"
	"github.com/velichkin/shorty/internal/shortio"
	"go.uber.org/zap"
)

// statsFanOut caps concurrent statistics calls per listing so a user
// with many links cannot exhaust upstream connections.
const statsFanOut = 8

// ProviderClient is the subset of the short.io client the services use.
type ProviderClient interface {
	CreateLink(ctx context.Context, originalURL string) (string, error)
	ExpandPath(ctx context.Context, path string) (string, error)
	LinkStats(ctx context.Context, linkID string) (int64, error)
	DeleteLink(ctx context.Context, linkID string) error
}

// EventPublisher announces freshly provisioned links.
type EventPublisher interface {
	PublishProvisioned(link *model.Link) error
}

// LinkWithStats pairs a stored link with its click count. ClicksAvailable
// distinguishes "zero clicks" from "stats fetch failed".
type LinkWithStats struct {
	Link            model.Link
	TotalClicks     int64
	ClicksAvailable bool
}

// LinkService defines behaviour-level operations on a user's links.
type LinkService interface {
	Shorten(ctx context.Context, ownerID, longURL string) (*model.Link, error)
	ListWithStats(ctx context.Context, ownerID string) ([]LinkWithStats, error)
	Delete(ctx context.Context, ownerID, linkID string) error
}

// LinkServiceDeps groups the collaborators of the link service. Cache and
// Events may be nil; both are best-effort.
type LinkServiceDeps struct {
	Links    repository.LinkRepository
	Provider ProviderClient
	Cache    StatsCache
	Events   EventPublisher
	Logger   *zap.Logger
}

type linkService struct {
	links    repository.LinkRepository
	provider ProviderClient
	cache    StatsCache
	events   EventPublisher
	logger   *zap.Logger
}

// NewLinkService returns a LinkService wired to the given dependencies.
func NewLinkService(deps LinkServiceDeps) LinkService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &linkService{
		links:    deps.Links,
		provider: deps.Provider,
		cache:    deps.Cache,
		events:   deps.Events,
		logger:   logger,
	}
}

// Shorten provisions a short link at the provider and persists the record.
// Any upstream failure aborts the operation with nothing persisted.
func (s *linkService) Shorten(ctx context.Context, ownerID, longURL string) (*model.Link, error) {
	shortURL, err := s.provider.CreateLink(ctx, longURL)
	if err != nil {
		return nil, fmt.Errorf("create short link: %w", err)
	}

	path, err := shortio.PathFromShortURL(shortURL)
	if err != nil {
		return nil, fmt.Errorf("derive link path: %w", err)
	}

	// The create call does not return the provider's link id, so resolve
	// it with a second round trip before persisting.
	providerLinkID, err := s.provider.ExpandPath(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("resolve provider link id: %w", err)
	}

	link := &model.Link{
		ID:             uuid.New().String(),
		OriginalURL:    longURL,
		ShortURL:       shortURL,
		ProviderLinkID: providerLinkID,
		OwnerID:        ownerID,
	}
	if err := s.links.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("persist link: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishProvisioned(link); err != nil {
			s.logger.Warn("failed to publish link provisioned event",
				zap.Error(err), zap.String("link_id", link.ID))
		}
	}

	return link, nil
}

// ListWithStats returns the owner's links newest first, each annotated
// with its click count. Per-link statistics failures degrade to
// {0, unavailable} instead of failing the listing.
func (s *linkService) ListWithStats(ctx context.Context, ownerID string) ([]LinkWithStats, error) {
	links, err := s.links.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	result := make([]LinkWithStats, len(links))
	sem := make(chan struct{}, statsFanOut)
	var wg sync.WaitGroup

	for i := range links {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			result[i] = s.fetchStats(ctx, links[i])
		}(i)
	}
	wg.Wait()

	return result, nil
}

// Delete removes the owner's link locally and, best-effort, at the provider.
func (s *linkService) Delete(ctx context.Context, ownerID, linkID string) error {
	link, err := s.links.GetByIDForOwner(ctx, linkID, ownerID)
	if err != nil {
		return err
	}

	if err := s.links.DeleteByIDForOwner(ctx, linkID, ownerID); err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, link.ProviderLinkID)
	}

	// The local record is gone either way; the provider-side delete must
	// not block or fail the request.
	go func(providerLinkID string) {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.provider.DeleteLink(cleanupCtx, providerLinkID); err != nil {
			s.logger.Warn("failed to delete link at provider",
				zap.Error(err), zap.String("provider_link_id", providerLinkID))
		}
	}(link.ProviderLinkID)

	return nil
}

func (s *linkService) fetchStats(ctx context.Context, link model.Link) LinkWithStats {
	if s.cache != nil {
		if clicks, ok := s.cache.Get(ctx, link.ProviderLinkID); ok {
			return LinkWithStats{Link: link, TotalClicks: clicks, ClicksAvailable: true}
		}
	}

	clicks, err := s.provider.LinkStats(ctx, link.ProviderLinkID)
	if err != nil {
		s.logger.Warn("failed to fetch link statistics",
			zap.Error(err),
			zap.String("link_id", link.ID),
			zap.String("provider_link_id", link.ProviderLinkID),
		)
		return LinkWithStats{Link: link}
	}

	if s.cache != nil {
		s.cache.Set(ctx, link.ProviderLinkID, clicks)
	}

	return LinkWithStats{Link: link, TotalClicks: clicks, ClicksAvailable: true}
}
