package storage

import (
	"context"
	"errors"

	"github.com/hongminglow/user-manager/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// UserStore captures persistence operations needed by the user service.
// Implementations must make every call atomic and return records from List
// in ascending id order.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUser(ctx context.Context, id int64) (models.User, error)
	ListUsers(ctx context.Context, offset, limit int64) ([]models.User, error)
	UpdateUser(ctx context.Context, user models.User) (models.User, error)
	DeleteUser(ctx context.Context, id int64) (bool, error)
}
