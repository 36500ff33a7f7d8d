package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/hongminglow/user-manager/internal/models"
	"github.com/hongminglow/user-manager/internal/storage"
)

// Ensure Store satisfies the storage.UserStore interface at compile time.
var _ storage.UserStore = (*Store)(nil)

// Store keeps users in process memory. Records are held sorted by id, and ids
// are never reused, so slice order is insertion order.
type Store struct {
	mu     sync.RWMutex
	nextID int64
	users  []models.User
}

// NewUserStore returns an empty store whose first assigned id is 1.
func NewUserStore() *Store {
	return &Store{nextID: 1}
}

// CreateUser stores a copy of user under a freshly assigned id.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	user.ID = s.nextID
	s.nextID++
	s.users = append(s.users, user)
	return user, nil
}

// GetUser returns the user with the given id.
func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.find(id)
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return s.users[i], nil
}

// ListUsers returns at most limit users starting at offset.
func (s *Store) ListUsers(ctx context.Context, offset, limit int64) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := int64(len(s.users))
	if offset >= total || limit <= 0 {
		return []models.User{}, nil
	}
	end := total
	if limit < total-offset {
		end = offset + limit
	}
	out := make([]models.User, end-offset)
	copy(out, s.users[offset:end])
	return out, nil
}

// UpdateUser replaces the record with user.ID.
func (s *Store) UpdateUser(ctx context.Context, user models.User) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.find(user.ID)
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	s.users[i] = user
	return user, nil
}

// DeleteUser removes the record and reports whether it existed.
func (s *Store) DeleteUser(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.find(id)
	if !ok {
		return false, nil
	}
	s.users = slices.Delete(s.users, i, i+1)
	return true, nil
}

// find must be called with mu held.
func (s *Store) find(id int64) (int, bool) {
	return slices.BinarySearchFunc(s.users, id, func(u models.User, target int64) int {
		return cmp.Compare(u.ID, target)
	})
}
