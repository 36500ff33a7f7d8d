package observability

import (
	"context"
	"errors"
	"time"

	"github.com/hongminglow/user-manager/internal/models"
	"github.com/hongminglow/user-manager/internal/storage"
)

const (
	resultOK       = "ok"
	resultNotFound = "not_found"
	resultError    = "error"
)

// InstrumentedStore decorates a UserStore with operation metrics.
type InstrumentedStore struct {
	next    storage.UserStore
	metrics *Metrics
}

var _ storage.UserStore = (*InstrumentedStore)(nil)

// InstrumentStore wraps store. A nil Metrics returns store unchanged.
func InstrumentStore(store storage.UserStore, m *Metrics) storage.UserStore {
	if m == nil {
		return store
	}
	return &InstrumentedStore{next: store, metrics: m}
}

func (s *InstrumentedStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	start := time.Now()
	created, err := s.next.CreateUser(ctx, user)
	s.metrics.observeStore("create", result(err), start)
	return created, err
}

func (s *InstrumentedStore) GetUser(ctx context.Context, id int64) (models.User, error) {
	start := time.Now()
	user, err := s.next.GetUser(ctx, id)
	s.metrics.observeStore("get", result(err), start)
	return user, err
}

func (s *InstrumentedStore) ListUsers(ctx context.Context, offset, limit int64) ([]models.User, error) {
	start := time.Now()
	list, err := s.next.ListUsers(ctx, offset, limit)
	s.metrics.observeStore("list", result(err), start)
	return list, err
}

func (s *InstrumentedStore) UpdateUser(ctx context.Context, user models.User) (models.User, error) {
	start := time.Now()
	updated, err := s.next.UpdateUser(ctx, user)
	s.metrics.observeStore("update", result(err), start)
	return updated, err
}

func (s *InstrumentedStore) DeleteUser(ctx context.Context, id int64) (bool, error) {
	start := time.Now()
	deleted, err := s.next.DeleteUser(ctx, id)
	res := result(err)
	if err == nil && !deleted {
		res = resultNotFound
	}
	s.metrics.observeStore("delete", res, start)
	return deleted, err
}

func result(err error) string {
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, storage.ErrNotFound):
		return resultNotFound
	default:
		return resultError
	}
}
