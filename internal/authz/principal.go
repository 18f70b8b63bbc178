package authz

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// PrincipalType defines authorization principal types.
type PrincipalType int

const (
	// PrincipalTypeAnonymous caller without a declared identity.
	PrincipalTypeAnonymous PrincipalType = iota
	// PrincipalTypeUser end user principal.
	PrincipalTypeUser
	// PrincipalTypeService another service acting on its own behalf.
	PrincipalTypeService
	// PrincipalTypeSystem system principal (background tasks, internal operations).
	PrincipalTypeSystem
	// PrincipalTypeTest test principal (only for test environment).
	PrincipalTypeTest
)

// String returns string representation of PrincipalType.
func (p PrincipalType) String() string {
	switch p {
	case PrincipalTypeAnonymous:
		return "anonymous"
	case PrincipalTypeUser:
		return "user"
	case PrincipalTypeService:
		return "service"
	case PrincipalTypeSystem:
		return "system"
	case PrincipalTypeTest:
		return "test"
	default:
		return "unknown"
	}
}

// ParsePrincipalType is the inverse of PrincipalType.String.
func ParsePrincipalType(s string) (PrincipalType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "anonymous":
		return PrincipalTypeAnonymous, nil
	case "user":
		return PrincipalTypeUser, nil
	case "service":
		return PrincipalTypeService, nil
	case "system":
		return PrincipalTypeSystem, nil
	case "test":
		return PrincipalTypeTest, nil
	default:
		return PrincipalTypeAnonymous, fmt.Errorf("authz: unknown principal type %q", s)
	}
}

// Principal represents authorization principal.
// Each request can only have one Principal, guaranteed by WithPrincipal's set-once semantics.
type Principal struct {
	Type    PrincipalType
	Subject string
	Roles   []string
}

// Anonymous is the principal used when the request declares none.
var Anonymous = Principal{Type: PrincipalTypeAnonymous}

// IsSystem checks if it is a system principal.
func (p Principal) IsSystem() bool {
	return p.Type == PrincipalTypeSystem
}

// IsPrivileged reports whether p bypasses visibility checks: system and test principals.
func (p Principal) IsPrivileged() bool {
	return p.IsSystem() || p.IsTest()
}

// IsAnonymous checks if it is the anonymous principal.
func (p Principal) IsAnonymous() bool {
	return p.Type == PrincipalTypeAnonymous
}

// IsTest checks if it is a test principal.
func (p Principal) IsTest() bool {
	return p.Type == PrincipalTypeTest
}

// HasRole reports whether the principal carries role.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// String returns string representation of Principal (for audit logs).
func (p Principal) String() string {
	switch p.Type {
	case PrincipalTypeUser, PrincipalTypeService:
		return p.Type.String() + ":" + lo.Ternary(p.Subject != "", p.Subject, "unknown")
	default:
		return p.Type.String()
	}
}

// ParsePrincipal parses the "<type>:<subject>" header form and a comma separated role list.
// An empty header yields Anonymous.
func ParsePrincipal(header, roles string) (Principal, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Anonymous, nil
	}

	typ, subject, _ := strings.Cut(header, ":")

	pt, err := ParsePrincipalType(typ)
	if err != nil {
		return Anonymous, err
	}

	subject = strings.TrimSpace(subject)
	if (pt == PrincipalTypeUser || pt == PrincipalTypeService) && subject == "" {
		return Anonymous, fmt.Errorf("authz: principal %q requires a subject", pt)
	}

	return Principal{
		Type:    pt,
		Subject: subject,
		Roles:   parseRoles(roles),
	}, nil
}

func parseRoles(s string) []string {
	roles := lo.Map(strings.Split(s, ","), func(r string, _ int) string {
		return strings.TrimSpace(r)
	})

	roles = lo.Uniq(lo.Compact(roles))
	if len(roles) == 0 {
		return nil
	}

	return roles
}

// principalKey is an unexported key type to prevent external forgery.
type principalKey struct{}

// WithPrincipal sets Principal, returns error if already exists.
// Ensures each context can only set Principal once, preventing principal mixing.
func WithPrincipal(ctx context.Context, p Principal) (context.Context, error) {
	if existing, ok := GetPrincipal(ctx); ok {
		if !principalEqual(existing, p) {
			return ctx, fmt.Errorf("authz: principal conflict: existing=%s, new=%s", existing.String(), p.String())
		}

		return ctx, nil // Same principal, idempotent
	}

	return context.WithValue(ctx, principalKey{}, p), nil
}

// principalEqual compares if two Principals are equal.
func principalEqual(a, b Principal) bool {
	return a.Type == b.Type && a.Subject == b.Subject && slices.Equal(a.Roles, b.Roles)
}

// GetPrincipal reads Principal.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// PrincipalOrAnonymous reads Principal, defaulting to Anonymous.
func PrincipalOrAnonymous(ctx context.Context) Principal {
	if p, ok := GetPrincipal(ctx); ok {
		return p
	}

	return Anonymous
}

// MustGetPrincipal reads Principal, panics if not exists (used in chains where principal is confirmed).
func MustGetPrincipal(ctx context.Context) Principal {
	p, ok := GetPrincipal(ctx)
	if !ok {
		panic("authz: no principal in context")
	}

	return p
}

// NewUserContext creates context with User principal.
func NewUserContext(ctx context.Context, subject string, roles ...string) context.Context {
	return context.WithValue(ctx, principalKey{}, Principal{
		Type:    PrincipalTypeUser,
		Subject: subject,
		Roles:   roles,
	})
}

// NewServiceContext creates context with Service principal.
func NewServiceContext(ctx context.Context, subject string, roles ...string) context.Context {
	return context.WithValue(ctx, principalKey{}, Principal{
		Type:    PrincipalTypeService,
		Subject: subject,
		Roles:   roles,
	})
}

// RequirePrincipal checks if a principal exists, otherwise returns error.
func RequirePrincipal(ctx context.Context) error {
	_, ok := GetPrincipal(ctx)
	if !ok {
		return fmt.Errorf("authz: no principal in context")
	}

	return nil
}
