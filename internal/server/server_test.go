package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/user-manager/internal/auth"
	"github.com/hongminglow/user-manager/internal/config"
	"github.com/hongminglow/user-manager/internal/logging"
	"github.com/hongminglow/user-manager/internal/models"
	"github.com/hongminglow/user-manager/internal/models/dto"
	"github.com/hongminglow/user-manager/internal/observability"
	"github.com/hongminglow/user-manager/internal/storage/memory"
)

func testConfig() config.Config {
	return config.Config{
		Port:                   "0",
		StoreDriver:            config.DriverMemory,
		CORSOrigins:            []string{"*"},
		JWTSecret:              "server-test-secret-0123456789abcdef",
		JWTIssuer:              "user-manager",
		JWTAudience:            "user-manager",
		JWTTTLMinutes:          30,
		MockLoginRatePerMinute: 100,
	}
}

func newTestServer(t *testing.T, cfg config.Config) (*httptest.Server, *memory.Store) {
	t.Helper()
	store := memory.NewUserStore()
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL())
	handler := NewRouter(cfg, Deps{
		Store:   store,
		Tokens:  tokens,
		Logger:  logging.Discard(),
		Metrics: observability.NewMetrics(),
	})
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts, store
}

func requestToken(t *testing.T, baseURL string) string {
	t.Helper()
	resp, err := http.Post(baseURL+"/auth/mock-login", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out dto.TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.AccessToken)
	return out.AccessToken
}

func do(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestUsersRequireToken(t *testing.T) {
	ts, store := newTestServer(t, testConfig())

	resp := do(t, http.MethodGet, ts.URL+"/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/users", "", models.User{Name: "a", Email: "b"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	list, err := store.ListUsers(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUserLifecycle(t *testing.T) {
	for _, prefix := range []string{"", "/api"} {
		t.Run("prefix="+prefix, func(t *testing.T) {
			ts, _ := newTestServer(t, testConfig())
			base := ts.URL + prefix
			token := requestToken(t, base)

			resp := do(t, http.MethodPost, base+"/users", token, models.User{Name: "Jan Kowalski", Email: "jan@example.com"})
			require.Equal(t, http.StatusCreated, resp.StatusCode)
			var created models.User
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
			assert.Equal(t, int64(1), created.ID)
			assert.Equal(t, prefix+"/users/1", resp.Header.Get("Location"))

			resp = do(t, http.MethodGet, ts.URL+resp.Header.Get("Location"), token, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			var fetched models.User
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&fetched))
			assert.Equal(t, created, fetched)

			resp = do(t, http.MethodPost, base+"/users", token, models.User{Name: "Anna Nowak", Email: "anna@example.com"})
			require.Equal(t, http.StatusCreated, resp.StatusCode)

			resp = do(t, http.MethodGet, base+"/users?page=1&pageSize=10", token, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			var list []models.User
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
			require.Len(t, list, 2)
			assert.Equal(t, "Jan Kowalski", list[0].Name)
			assert.Equal(t, "Anna Nowak", list[1].Name)

			resp = do(t, http.MethodPut, base+"/users/1", token, models.User{ID: 2, Name: "x", Email: "y"})
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			resp = do(t, http.MethodPut, base+"/users/1", token, models.User{ID: 1, Name: "Jan K.", Email: "jan@example.com"})
			require.Equal(t, http.StatusOK, resp.StatusCode)

			resp = do(t, http.MethodPut, base+"/users/99", token, models.User{ID: 99, Name: "x", Email: "y"})
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)

			resp = do(t, http.MethodDelete, base+"/users/1", token, nil)
			assert.Equal(t, http.StatusNoContent, resp.StatusCode)

			resp = do(t, http.MethodDelete, base+"/users/1", token, nil)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)

			resp = do(t, http.MethodGet, base+"/users/1", token, nil)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)

			resp = do(t, http.MethodPost, base+"/users", token, models.User{Name: "", Email: "x@y.com"})
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	cfg := testConfig()
	ts, _ := newTestServer(t, cfg)

	stale := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL(),
		auth.WithClock(func() time.Time { return time.Now().Add(-time.Hour) }))
	token, err := stale.Generate()
	require.NoError(t, err)

	resp := do(t, http.MethodGet, ts.URL+"/users", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMockLoginRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.MockLoginRatePerMinute = 2
	ts, _ := newTestServer(t, cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp := do(t, http.MethodPost, fmt.Sprintf("%s/auth/mock-login", ts.URL), "", nil)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestHealthMetricsAndHeaders(t *testing.T) {
	ts, _ := newTestServer(t, testConfig())

	resp := do(t, http.MethodGet, ts.URL+"/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))

	resp = do(t, http.MethodGet, ts.URL+"/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(buf.String(), "usermanager_http_requests_total"))

	resp = do(t, http.MethodGet, ts.URL+"/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
