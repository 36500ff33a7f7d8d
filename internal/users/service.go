package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hongminglow/user-manager/internal/models"
	"github.com/hongminglow/user-manager/internal/storage"
)

var (
	// ErrValidation marks input the service refuses before touching the store.
	ErrValidation = errors.New("validation failed")
	// ErrIDMismatch is a validation failure: the path id and body id differ.
	ErrIDMismatch = fmt.Errorf("%w: user id mismatch", ErrValidation)
	// ErrNotFound indicates the referenced user does not exist.
	ErrNotFound = errors.New("user not found")
)

// Service applies validation and existence checks on top of a UserStore.
type Service struct {
	store    storage.UserStore
	validate *validator.Validate
}

// NewService builds a Service.
func NewService(store storage.UserStore) *Service {
	return &Service{store: store, validate: validator.New()}
}

// ListUsers returns page number page (1-based) of at most pageSize users.
func (s *Service) ListUsers(ctx context.Context, page, pageSize int64) ([]models.User, error) {
	if page < 1 || pageSize < 1 {
		return nil, fmt.Errorf("%w: page and pageSize must be positive", ErrValidation)
	}
	offset, ok := pageOffset(page, pageSize)
	if !ok {
		return []models.User{}, nil
	}
	users, err := s.store.ListUsers(ctx, offset, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// GetUser looks a user up by id.
func (s *Service) GetUser(ctx context.Context, id int64) (models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return models.User{}, translate(err, "get user")
	}
	return user, nil
}

// CreateUser persists candidate under a store-assigned id. Any id on the
// candidate is ignored.
func (s *Service) CreateUser(ctx context.Context, candidate models.User) (models.User, error) {
	if err := s.check(candidate); err != nil {
		return models.User{}, err
	}
	candidate.ID = 0
	created, err := s.store.CreateUser(ctx, candidate)
	if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

// UpdateUser replaces the whole record at id. Updating a missing user is
// ErrNotFound, never an implicit insert.
func (s *Service) UpdateUser(ctx context.Context, id int64, candidate models.User) (models.User, error) {
	if candidate.ID != id {
		return models.User{}, ErrIDMismatch
	}
	if err := s.check(candidate); err != nil {
		return models.User{}, err
	}
	updated, err := s.store.UpdateUser(ctx, candidate)
	if err != nil {
		return models.User{}, translate(err, "update user")
	}
	return updated, nil
}

// DeleteUser removes the user and reports whether it existed.
func (s *Service) DeleteUser(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.store.DeleteUser(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	return deleted, nil
}

// SeedDefaults inserts the demo users when the store is empty.
func (s *Service) SeedDefaults(ctx context.Context) (int, error) {
	existing, err := s.store.ListUsers(ctx, 0, 1)
	if err != nil {
		return 0, fmt.Errorf("check existing users: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}
	seeds := []models.User{
		{Name: "Jan Kowalski", Email: "jan@example.com"},
		{Name: "Anna Nowak", Email: "anna@example.com"},
	}
	for i, u := range seeds {
		if _, err := s.CreateUser(ctx, u); err != nil {
			return i, fmt.Errorf("seed %s: %w", u.Email, err)
		}
	}
	return len(seeds), nil
}

func (s *Service) check(u models.User) error {
	err := s.validate.Struct(u)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return fmt.Errorf("%w: %s required", ErrValidation, strings.Join(fields, " and "))
}

func translate(err error, op string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// pageOffset reports false when (page-1)*pageSize does not fit in int64;
// such a page is necessarily past the end.
func pageOffset(page, pageSize int64) (int64, bool) {
	skipped := page - 1
	if skipped != 0 && pageSize > (1<<63-1)/skipped {
		return 0, false
	}
	return skipped * pageSize, true
}
