package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/user-manager/internal/http/respond"
	"github.com/hongminglow/user-manager/internal/models"
	"github.com/hongminglow/user-manager/internal/users"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxBodyBytes    = 1 << 20
)

// UserService is the subset of *users.Service the handler depends on.
type UserService interface {
	ListUsers(ctx context.Context, page, pageSize int64) ([]models.User, error)
	GetUser(ctx context.Context, id int64) (models.User, error)
	CreateUser(ctx context.Context, candidate models.User) (models.User, error)
	UpdateUser(ctx context.Context, id int64, candidate models.User) (models.User, error)
	DeleteUser(ctx context.Context, id int64) (bool, error)
}

// UsersHandler exposes the user collection. Routes are expected to sit behind
// middleware.Authenticate.
type UsersHandler struct {
	service UserService
	logger  *slog.Logger
}

// NewUsersHandler constructs the handler.
func NewUsersHandler(service UserService, logger *slog.Logger) *UsersHandler {
	return &UsersHandler{service: service, logger: logger}
}

// Register attaches the user routes.
func (h *UsersHandler) Register(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
}

func (h *UsersHandler) handleList(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", defaultPage)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	pageSize, err := queryInt(r, "pageSize", defaultPageSize)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	log := h.logger.With(slog.Int64("page", page), slog.Int64("page_size", pageSize))
	log.InfoContext(r.Context(), "listing users")

	list, err := h.service.ListUsers(r.Context(), page, pageSize)
	if err != nil {
		h.fail(w, r, log, "list users", err)
		return
	}
	log.InfoContext(r.Context(), "listed users", slog.Int("count", len(list)))
	respond.JSON(w, http.StatusOK, list)
}

func (h *UsersHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	log := h.logger.With(slog.Int64("user_id", id))
	log.InfoContext(r.Context(), "getting user")

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		h.fail(w, r, log, "get user", err)
		return
	}
	log.InfoContext(r.Context(), "retrieved user")
	respond.JSON(w, http.StatusOK, user)
}

func (h *UsersHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var candidate models.User
	if err := decodeJSON(w, r, &candidate); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	log := h.logger.With(slog.String("name", candidate.Name))
	log.InfoContext(r.Context(), "creating user")

	created, err := h.service.CreateUser(r.Context(), candidate)
	if err != nil {
		h.fail(w, r, log, "create user", err)
		return
	}
	log.InfoContext(r.Context(), "created user", slog.Int64("user_id", created.ID))
	w.Header().Set("Location", fmt.Sprintf("%s/%d", strings.TrimSuffix(r.URL.Path, "/"), created.ID))
	respond.JSON(w, http.StatusCreated, created)
}

func (h *UsersHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var candidate models.User
	if err := decodeJSON(w, r, &candidate); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	log := h.logger.With(slog.Int64("user_id", id))
	log.InfoContext(r.Context(), "updating user")

	updated, err := h.service.UpdateUser(r.Context(), id, candidate)
	if err != nil {
		if errors.Is(err, users.ErrIDMismatch) {
			log.WarnContext(r.Context(), "user id mismatch", slog.Int64("body_id", candidate.ID))
		}
		h.fail(w, r, log, "update user", err)
		return
	}
	log.InfoContext(r.Context(), "updated user")
	respond.JSON(w, http.StatusOK, updated)
}

func (h *UsersHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	log := h.logger.With(slog.Int64("user_id", id))
	log.InfoContext(r.Context(), "deleting user")

	deleted, err := h.service.DeleteUser(r.Context(), id)
	if err != nil {
		h.fail(w, r, log, "delete user", err)
		return
	}
	if !deleted {
		log.WarnContext(r.Context(), "user not found for deletion")
		respond.Error(w, http.StatusNotFound, "user not found")
		return
	}
	log.InfoContext(r.Context(), "deleted user")
	w.WriteHeader(http.StatusNoContent)
}

// fail maps service outcomes to responses. Unexpected errors are logged in
// full and reported to the client without detail.
func (h *UsersHandler) fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, users.ErrValidation):
		log.WarnContext(r.Context(), op+" rejected", slog.Any("error", err))
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, users.ErrNotFound):
		log.WarnContext(r.Context(), op+": user not found")
		respond.Error(w, http.StatusNotFound, "user not found")
	default:
		log.ErrorContext(r.Context(), op+" failed", slog.Any("error", err))
		respond.Error(w, http.StatusInternalServerError, "internal server error")
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, def int64) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return v, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}
