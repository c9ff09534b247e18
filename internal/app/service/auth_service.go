package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/google/uuid"
	"github.com/velichkin/shorty/internal/app/model"
	"github.com/velichkin/shorty/internal/app/repository"
	"github.com/velichkin/shorty/internal/http/util"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// deliberately indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidInput signals a missing or malformed email/password.
	ErrInvalidInput = errors.New("email and password are required")
)

const (
	emailFilterCapacity = 100_000
	emailFilterFPRate   = 0.01
)

// AuthService handles account creation and credential verification.
type AuthService interface {
	SignUp(ctx context.Context, email, password string) (*model.User, error)
	LogIn(ctx context.Context, email, password string) (string, error)
	SeedEmailFilter(ctx context.Context) error
}

type authService struct {
	users  repository.UserRepository
	tokens *util.TokenSigner

	// emails is a fast negative check in front of the duplicate-email
	// lookup: a definite miss skips the SELECT entirely. False positives
	// just fall through to the database.
	mu     sync.RWMutex
	emails *bloom.BloomFilter
}

// NewAuthService returns an AuthService backed by the given repository and
// token signer. Call SeedEmailFilter once at startup to prime the filter.
func NewAuthService(users repository.UserRepository, tokens *util.TokenSigner) AuthService {
	return &authService{
		users:  users,
		tokens: tokens,
		emails: bloom.NewWithEstimates(emailFilterCapacity, emailFilterFPRate),
	}
}

// SeedEmailFilter loads all registered emails into the bloom filter.
func (s *authService) SeedEmailFilter(ctx context.Context) error {
	emails, err := s.users.ListEmails(ctx)
	if err != nil {
		return fmt.Errorf("seed email filter: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, email := range emails {
		s.emails.AddString(email)
	}
	return nil
}

func (s *authService) SignUp(ctx context.Context, email, password string) (*model.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidInput
	}

	if s.emailMayExist(email) {
		if _, err := s.users.GetByEmail(ctx, email); err == nil {
			return nil, repository.ErrEmailTaken
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("check existing email: %w", err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		// The unique index stays authoritative; the filter and pre-check
		// only narrow the race window.
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, repository.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.rememberEmail(email)
	return user, nil
}

func (s *authService) LogIn(ctx context.Context, email, password string) (string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

func (s *authService) emailMayExist(email string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.emails.TestString(email)
}

func (s *authService) rememberEmail(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails.AddString(email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
