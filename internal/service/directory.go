package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"louage/internal/domain"
	"louage/internal/redis"
	"louage/internal/repository"
)

// Directory resolves user ids to display names.
type Directory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// UserDirectory is the passenger/driver directory backed by a UserRepository
// and optionally fronted by a name cache.
type UserDirectory struct {
	users repository.UserRepository
	cache redis.NameCacheInterface
}

// NewUserDirectory creates a new UserDirectory. cache may be nil.
func NewUserDirectory(users repository.UserRepository, cache redis.NameCacheInterface) *UserDirectory {
	return &UserDirectory{users: users, cache: cache}
}

// RegisterUserRequest contains the parameters for registering a user.
type RegisterUserRequest struct {
	Name  string
	Phone string
	Role  domain.UserRole
}

// Register creates a new passenger or driver.
func (d *UserDirectory) Register(ctx context.Context, req RegisterUserRequest) (*domain.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidUser
	}
	if req.Role != domain.UserRolePassenger && req.Role != domain.UserRoleDriver {
		return nil, ErrInvalidUser
	}

	user := &domain.User{
		ID:        uuid.New().String(),
		Name:      name,
		Phone:     strings.TrimSpace(req.Phone),
		Role:      req.Role,
		CreatedAt: time.Now(),
	}

	if err := d.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser retrieves a user by ID.
func (d *UserDirectory) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	return d.users.GetByID(ctx, userID)
}

// ListUsers retrieves all users.
func (d *UserDirectory) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return d.users.GetAll(ctx)
}

// DisplayName returns the name of a user. Cache errors fall through to the repository.
func (d *UserDirectory) DisplayName(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", ErrInvalidUserID
	}

	if d.cache != nil {
		name, ok, err := d.cache.GetName(ctx, userID)
		if err != nil {
			log.Printf("name cache read failed: user=%s err=%v", userID, err)
		} else if ok {
			return name, nil
		}
	}

	user, err := d.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	if d.cache != nil {
		if err := d.cache.SetName(ctx, userID, user.Name); err != nil {
			log.Printf("name cache write failed: user=%s err=%v", userID, err)
		}
	}

	return user.Name, nil
}

// Ensure UserDirectory implements Directory.
var _ Directory = (*UserDirectory)(nil)
