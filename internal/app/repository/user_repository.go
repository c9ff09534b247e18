package repository

import (
	"context"
	"errors"

	"github.com/velichkin/shorty/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrEmailTaken signals that a user with the given email already exists.
	ErrEmailTaken = errors.New("email already registered")

	// ErrUserNotFound signals that no user matches the lookup key.
	ErrUserNotFound = errors.New("user not found")
)

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	ListEmails(ctx context.Context) ([]string, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a GORM-backed UserRepository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		// Relies on TranslateError being enabled so the unique index on
		// email surfaces as a single conflict error across drivers.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ListEmails(ctx context.Context) ([]string, error) {
	var emails []string
	if err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Pluck("email", &emails).Error; err != nil {
		return nil, err
	}
	return emails, nil
}
