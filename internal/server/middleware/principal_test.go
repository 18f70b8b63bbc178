package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplj/visgate/internal/authz"
)

func TestWithPrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		headers    map[string]string
		config     PrincipalConfig
		wantStatus int
		want       authz.Principal
	}{
		{
			name:       "no header is anonymous",
			wantStatus: http.StatusOK,
			want:       authz.Anonymous,
		},
		{
			name:       "user with roles",
			headers:    map[string]string{"VG-Principal": "user:alice", "VG-Roles": "auditor, reader"},
			wantStatus: http.StatusOK,
			want:       authz.Principal{Type: authz.PrincipalTypeUser, Subject: "alice", Roles: []string{"auditor", "reader"}},
		},
		{
			name:       "system is rejected by default",
			headers:    map[string]string{"VG-Principal": "system:"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "test is rejected by default",
			headers:    map[string]string{"VG-Principal": "test:"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "system when privileged allowed",
			headers:    map[string]string{"VG-Principal": "system:"},
			config:     PrincipalConfig{AllowPrivileged: true},
			wantStatus: http.StatusOK,
			want:       authz.Principal{Type: authz.PrincipalTypeSystem},
		},
		{
			name:       "test when privileged allowed",
			headers:    map[string]string{"VG-Principal": "test:"},
			config:     PrincipalConfig{AllowPrivileged: true},
			wantStatus: http.StatusOK,
			want:       authz.MustGetPrincipal(authz.NewTestContext(context.Background())),
		},
		{
			name:       "custom header",
			headers:    map[string]string{"X-Caller": "service:indexer"},
			config:     PrincipalConfig{Header: "X-Caller"},
			wantStatus: http.StatusOK,
			want:       authz.Principal{Type: authz.PrincipalTypeService, Subject: "indexer"},
		},
		{
			name:       "unknown type",
			headers:    map[string]string{"VG-Principal": "robot:r2"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "user without subject",
			headers:    map[string]string{"VG-Principal": "user:"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				got    authz.Principal
				called bool
			)

			engine := gin.New()
			engine.Use(WithPrincipal(tt.config))
			engine.GET("/", func(c *gin.Context) {
				called = true

				var ok bool

				got, ok = authz.GetPrincipal(c.Request.Context())
				require.True(t, ok)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)

			if tt.wantStatus != http.StatusOK {
				assert.False(t, called)
				assert.Contains(t, w.Body.String(), `"type":"Bad Request"`)

				return
			}

			assert.Equal(t, tt.want, got)
		})
	}
}
