package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/user-manager/internal/http/respond"
	"github.com/hongminglow/user-manager/internal/models/dto"
)

// TokenIssuer is satisfied by *auth.TokenManager.
type TokenIssuer interface {
	Generate() (string, error)
}

// AuthHandler owns the development token endpoint.
type AuthHandler struct {
	tokens TokenIssuer
	logger *slog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(tokens TokenIssuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{tokens: tokens, logger: logger}
}

// Register attaches auth routes to the router.
func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/mock-login", h.handleMockLogin)
}

// handleMockLogin issues a token for the fixed development identity. No
// credentials are checked.
func (h *AuthHandler) handleMockLogin(w http.ResponseWriter, r *http.Request) {
	token, err := h.tokens.Generate()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "generate token failed", slog.Any("error", err))
		respond.Error(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	h.logger.InfoContext(r.Context(), "issued mock token")
	respond.JSON(w, http.StatusOK, dto.TokenResponse{AccessToken: token})
}
