package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/looplj/visgate/internal/item"
	"github.com/looplj/visgate/internal/log"
	"github.com/looplj/visgate/internal/pkg/xcache"
	"github.com/looplj/visgate/internal/pkg/xredis"
	"github.com/looplj/visgate/internal/policy"
	"github.com/looplj/visgate/internal/server/middleware"
	"github.com/looplj/visgate/internal/visibility"
)

type testConfig struct {
	fx.Out

	Server     Config
	Log        log.Config
	Redis      xredis.Config
	Cache      xcache.Config
	Policy     policy.Config
	Visibility visibility.Config
	Items      item.Config
}

func newTestConfig() testConfig {
	return testConfig{
		Server: Config{
			Name:           "visgate-test",
			Debug:          true,
			RequestTimeout: 5 * time.Second,
		},
		Log: log.Config{Level: "error", Encoding: log.EncodingJSON},
		Items: item.Config{
			Source: item.SourceFixtures,
			Fixtures: []item.Item{
				{ID: "a", Owner: "alice", Visibility: item.VisibilityPublic},
				{ID: "b", Owner: "alice", Visibility: item.VisibilityRestricted, Tags: []string{"finance"}},
				{ID: "c", Owner: "carol", Visibility: item.VisibilityPrivate, Deleted: true},
			},
		},
	}
}

func startServer(t *testing.T, cfg testConfig) *Server {
	t.Helper()

	gin.SetMode(gin.TestMode)

	var srv *Server

	app := fxtest.New(t,
		fx.NopLogger,
		fx.Provide(func() testConfig { return cfg }),
		Modules(),
		fx.Populate(&srv),
	)
	app.RequireStart()
	t.Cleanup(app.RequireStop)

	return srv
}

func get(srv *Server, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	return w
}

func TestServer_StaticGrants(t *testing.T) {
	cfg := newTestConfig()
	cfg.Policy = policy.Config{
		Static: []policy.StaticGrant{{Subject: "bob", Grants: []string{"tag:finance"}}},
	}

	srv := startServer(t, cfg)

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"anonymous", nil, http.StatusOK},
		{"granted user", map[string]string{"VG-Principal": "user:bob"}, http.StatusOK},
		{"user without grants", map[string]string{"VG-Principal": "user:dave"}, http.StatusOK},
		{"system is not accepted from headers", map[string]string{"VG-Principal": "system"}, http.StatusBadRequest},
		{"test is not accepted from headers", map[string]string{"VG-Principal": "test"}, http.StatusBadRequest},
		{"malformed principal", map[string]string{"VG-Principal": "robot:x"}, http.StatusBadRequest},
		{"user without subject", map[string]string{"VG-Principal": "user:"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(srv, "/items/42", tt.headers)
			assert.Equal(t, tt.want, w.Code)
			assert.NotEmpty(t, w.Header().Get("VG-Trace-Id"))
		})
	}
}

func TestServer_AllowPrivileged(t *testing.T) {
	cfg := newTestConfig()
	cfg.Server.Principal = middleware.PrincipalConfig{AllowPrivileged: true}

	srv := startServer(t, cfg)

	w := get(srv, "/items/42", map[string]string{"VG-Principal": "system"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_Health(t *testing.T) {
	srv := startServer(t, newTestConfig())

	w := get(srv, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestServer_UnknownRoute(t *testing.T) {
	srv := startServer(t, newTestConfig())

	w := get(srv, "/items", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_DenyAll(t *testing.T) {
	cfg := newTestConfig()
	cfg.Visibility = visibility.Config{Checker: visibility.CheckerDeny}

	srv := startServer(t, cfg)

	w := get(srv, "/items/1", map[string]string{"VG-Principal": "user:alice"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestServer_RedisGrantsFailure(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := newTestConfig()
	cfg.Redis = xredis.Config{Addr: mr.Addr()}
	cfg.Policy = policy.Config{Backend: policy.BackendRedis}

	srv := startServer(t, cfg)

	_, err := mr.SAdd("visgate:grants:bob", "tag:finance")
	require.NoError(t, err)

	headers := map[string]string{"VG-Principal": "user:bob"}

	w := get(srv, "/items/42", headers)
	require.Equal(t, http.StatusOK, w.Code)

	// Grant lookups are not cached in this configuration, so the next request sees the outage.
	mr.SetError("ERR grants unavailable")
	defer mr.SetError("")

	w = get(srv, "/items/42", headers)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestServer_RedisRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := newTestConfig()
	cfg.Policy = policy.Config{Backend: policy.BackendRedis}

	app := fx.New(
		fx.NopLogger,
		fx.Provide(func() testConfig { return cfg }),
		Modules(),
	)

	err := app.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), policy.ErrRedisRequired.Error())
}
