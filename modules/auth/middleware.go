package auth

import (
	"context"
	"fmt"

	"github.com/Deepreo/mathengine/core"
	"github.com/Deepreo/mathengine/errors"
	"go.elastic.co/apm/v2"
)

const (
	SpanAuthTokenValidation = "auth.token.validation"
	SpanAuthScopeCheck      = "auth.scope.check"
)

// Protected is implemented by requests that need a scope.
type Protected interface {
	RequiredScope() string
}

// Guard returns a server middleware that validates the bearer token of every
// Protected request. Other requests pass through untouched.
func Guard(provider *JWTTokenProvider) core.Middleware {
	return func(next core.HandlerFunc) core.HandlerFunc {
		return func(ctx context.Context, req any) (any, error) {
			protected, ok := req.(Protected)
			if !ok {
				return next(ctx, req)
			}

			token := GetTokenFromContext(ctx)
			if token == "" {
				return nil, errors.AuthError(fmt.Errorf("%w", ErrMissingToken))
			}

			span, spanCtx := apm.StartSpan(ctx, SpanAuthTokenValidation, "auth")
			principal, err := provider.Validate(token)
			span.End()
			if err != nil {
				return nil, err
			}

			scopeSpan, _ := apm.StartSpan(spanCtx, SpanAuthScopeCheck, "auth")
			allowed := principal.HasScope(protected.RequiredScope())
			scopeSpan.End()
			if !allowed {
				return nil, errors.PermissionError(fmt.Errorf("%w: scope %s required", ErrPermissionDenied, protected.RequiredScope()))
			}

			return next(WithPrincipal(ctx, principal), req)
		}
	}
}
