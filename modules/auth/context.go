package auth

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/Deepreo/mathengine/errors"
)

type contextKey string

const (
	AuthTokenKey contextKey = "auth_token"
	PrincipalKey contextKey = "auth_principal"
)

var (
	ErrMissingToken     = errors.New("missing bearer token")
	ErrInvalidToken     = errors.New("invalid token")
	ErrPermissionDenied = errors.New("permission denied")
)

// Principal is the caller a validated token speaks for.
type Principal struct {
	Subject   string
	Scopes    []string
	ExpiresAt time.Time
}

func (p *Principal) HasScope(scope string) bool {
	return slices.Contains(p.Scopes, scope)
}

// WithToken stores the raw Authorization header value on ctx.
func WithToken(ctx context.Context, header string) context.Context {
	return context.WithValue(ctx, AuthTokenKey, header)
}

// GetTokenFromContext returns the bearer token stored by WithToken, or "".
func GetTokenFromContext(ctx context.Context) string {
	if header, ok := ctx.Value(AuthTokenKey).(string); ok {
		return ExtractTokenFromBearer(header)
	}
	return ""
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(*Principal)
	return p, ok
}

func ExtractTokenFromBearer(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
