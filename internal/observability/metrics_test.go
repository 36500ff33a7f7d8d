package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/user-manager/internal/models"
	"github.com/hongminglow/user-manager/internal/storage/memory"
)

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	m := NewMetrics()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/users/42", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("/users/{id}", http.MethodGet, "404"))
	assert.Equal(t, float64(1), got)
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.requestsTotal.WithLabelValues("/health", http.MethodGet, "200").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "usermanager_http_requests_total"))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	store := memory.NewUserStore()
	assert.Same(t, store, InstrumentStore(store, nil))
}

func TestInstrumentedStore_CountsResults(t *testing.T) {
	m := NewMetrics()
	store := InstrumentStore(memory.NewUserStore(), m)
	ctx := context.Background()

	created, err := store.CreateUser(ctx, models.User{Name: "a", Email: "a@x"})
	require.NoError(t, err)
	_, err = store.GetUser(ctx, 404)
	require.Error(t, err)
	ok, err := store.DeleteUser(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = store.DeleteUser(ctx, created.ID)
	require.NoError(t, err)
	require.False(t, ok)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.storeOps.WithLabelValues("create", resultOK)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.storeOps.WithLabelValues("get", resultNotFound)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.storeOps.WithLabelValues("delete", resultOK)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.storeOps.WithLabelValues("delete", resultNotFound)))
}
