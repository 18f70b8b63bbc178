package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/looplj/visgate/internal/authz"
)

const (
	DefaultPrincipalHeader = "VG-Principal"
	DefaultRolesHeader     = "VG-Roles"
)

var ErrPrivilegedPrincipal = errors.New("privileged principals are not accepted from headers")

// PrincipalConfig names the headers an upstream gateway sets after authenticating the caller.
type PrincipalConfig struct {
	Header      string `conf:"header" yaml:"header" json:"header"`
	RolesHeader string `conf:"roles_header" yaml:"roles_header" json:"roles_header"`
	// AllowPrivileged accepts system and test principals from the header.
	AllowPrivileged bool `conf:"allow_privileged" yaml:"allow_privileged" json:"allow_privileged"`
}

// WithPrincipal attaches the principal declared by the request headers. The headers are
// trusted; a request without them is anonymous. A malformed header, or a system or test
// principal while AllowPrivileged is off, is rejected with 400 before any handler runs.
func WithPrincipal(config PrincipalConfig) gin.HandlerFunc {
	header := config.Header
	if header == "" {
		header = DefaultPrincipalHeader
	}

	rolesHeader := config.RolesHeader
	if rolesHeader == "" {
		rolesHeader = DefaultRolesHeader
	}

	return func(c *gin.Context) {
		principal, err := authz.ParsePrincipal(c.GetHeader(header), c.GetHeader(rolesHeader))
		if err != nil {
			AbortWithError(c, http.StatusBadRequest, fmt.Errorf("invalid %s header: %w", header, err))
			return
		}

		if principal.IsPrivileged() && !config.AllowPrivileged {
			AbortWithError(c, http.StatusBadRequest, fmt.Errorf("invalid %s header: %w", header, ErrPrivilegedPrincipal))
			return
		}

		ctx, err := authz.WithPrincipal(c.Request.Context(), principal)
		if err != nil {
			AbortWithError(c, http.StatusBadRequest, err)
			return
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
