package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/sumo1993/medconsult-liberia-sub003/internal/authz"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
	pkgerrors "github.com/sumo1993/medconsult-liberia-sub003/pkg/errors"
)

type memoryKeys struct {
	data map[string]string
	ttl  map[string]time.Duration
}

func newMemoryKeys() *memoryKeys {
	return &memoryKeys{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (m *memoryKeys) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryKeys) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	return true, m.Set(ctx, key, value, ttl)
}

func (m *memoryKeys) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.data[key], _ = value.(string)
	m.ttl[key] = ttl
	return nil
}

func (m *memoryKeys) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryKeys) IdempotencyKey(scope, id string) string { return scope + "#" + id }

func keyedPost(path, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error.Code
}

func TestRouteTTL(t *testing.T) {
	cases := []struct {
		method, path string
		want         time.Duration
		ok           bool
	}{
		{http.MethodPost, "/api/v1/assignments", defaultIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/accounting/payments", criticalIdempotencyTTL, true},
		{http.MethodGet, "/api/v1/assignments", 0, false},
		{http.MethodPost, "/api/v1/assignments/12/actions/accept", 0, false},
	}
	for _, tc := range cases {
		got, ok := routeTTL(tc.method, tc.path)
		require.Equal(t, tc.ok, ok, "%s %s", tc.method, tc.path)
		require.Equal(t, tc.want, got, "%s %s", tc.method, tc.path)
	}
	require.Equal(t, "/api/v1/assignments", normalizePath("/api/v1/assignments//"))
	require.Equal(t, "/", normalizePath("/"))
}

func TestIdempotencyPassesThroughUnguardedRoutes(t *testing.T) {
	store := newMemoryKeys()
	h := Idempotency(store, 0, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := serve(h, keyedPost("/api/v1/notifications/read-all", "", ""))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, store.data)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	h := Idempotency(newMemoryKeys(), 0, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run without a key")
	}))

	rec := serve(h, keyedPost("/api/v1/assignments", "", `{"title":"x"}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, string(pkgerrors.CodeValidation), errorCode(t, rec))
}

func TestIdempotencyReplaysCompletedResponse(t *testing.T) {
	store := newMemoryKeys()
	calls := 0
	h := Idempotency(store, 0, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":41}`))
	}))

	first := serve(h, keyedPost("/api/v1/assignments", "abc", `{"title":"x"}`))
	require.Equal(t, http.StatusCreated, first.Code)
	require.Empty(t, first.Header().Get("Idempotent-Replay"))

	again := serve(h, keyedPost("/api/v1/assignments", "abc", `{"title":"x"}`))
	require.Equal(t, http.StatusCreated, again.Code)
	require.Equal(t, "application/json", again.Header().Get("Content-Type"))
	require.Equal(t, "true", again.Header().Get("Idempotent-Replay"))
	require.JSONEq(t, `{"id":41}`, again.Body.String())
	require.Equal(t, 1, calls)
}

func TestIdempotencyRejectsChangedBody(t *testing.T) {
	store := newMemoryKeys()
	h := Idempotency(store, 0, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve(h, keyedPost("/api/v1/assignments", "xyz", `{"title":"a"}`))
	rec := serve(h, keyedPost("/api/v1/assignments", "xyz", `{"title":"b"}`))

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, rec))
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := newMemoryKeys()
	calls := 0
	h := Idempotency(store, 0, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	first := serve(h, keyedPost("/api/v1/accounting/payments", "pay-1", `{"amount":"10"}`))
	require.Equal(t, http.StatusServiceUnavailable, first.Code)
	require.Empty(t, store.data)

	second := serve(h, keyedPost("/api/v1/accounting/payments", "pay-1", `{"amount":"10"}`))
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, 2, calls)
	require.Len(t, store.data, 1)
	for k := range store.data {
		require.Equal(t, criticalIdempotencyTTL, store.ttl[k])
	}
}

func TestIdempotencyBaseTTLOverridesDefault(t *testing.T) {
	store := newMemoryKeys()
	h := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	serve(h, keyedPost("/api/v1/assignments", "k", `{}`))
	for k := range store.data {
		require.Equal(t, time.Hour, store.ttl[k])
	}
}

func TestIdempotencyScopeIsPerUser(t *testing.T) {
	store := newMemoryKeys()
	calls := 0
	h := Idempotency(store, 0, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for _, userID := range []uint64{7, 8} {
		req := keyedPost("/api/v1/assignments", "same", `{"title":"x"}`)
		req = req.WithContext(WithActor(req.Context(), authz.Actor{UserID: userID, Role: enums.UserRoleClient}))
		require.Equal(t, http.StatusCreated, serve(h, req).Code)
	}
	require.Equal(t, 2, calls)
}

func TestIdempotencyRejectsDuplicateWhileInFlight(t *testing.T) {
	store := newMemoryKeys()
	mw := Idempotency(store, 0, nil)

	var duplicate *httptest.ResponseRecorder
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if duplicate == nil {
			duplicate = serve(mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("duplicate must not reach the handler")
			})), keyedPost("/api/v1/assignments/", "race", `{"title":"x"}`))
		}
		w.WriteHeader(http.StatusCreated)
	}))

	require.Equal(t, http.StatusCreated, serve(h, keyedPost("/api/v1/assignments", "race", `{"title":"x"}`)).Code)
	require.NotNil(t, duplicate)
	require.Equal(t, http.StatusConflict, duplicate.Code)
	require.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, duplicate))

	replay := serve(h, keyedPost("/api/v1/assignments", "race", `{"title":"x"}`))
	require.Equal(t, http.StatusCreated, replay.Code)
	require.Equal(t, "true", replay.Header().Get("Idempotent-Replay"))
}
