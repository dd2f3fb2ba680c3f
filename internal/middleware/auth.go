package middleware

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"connectrpc.com/connect"
	"github.com/mmynk/groupbuy/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// CallerKey is the context key for storing the authenticated caller ID.
	CallerKey contextKey = "caller"
	// RoleKey is the context key for storing the authenticated caller's role.
	RoleKey contextKey = "role"
)

// Policy maps a procedure to the roles allowed to call it. Procedures
// missing from the policy are open to any authenticated caller.
type Policy map[string][]auth.Role

// GetCaller extracts the caller ID from the context.
// Returns empty string if not found.
func GetCaller(ctx context.Context) string {
	caller, _ := ctx.Value(CallerKey).(string)
	return caller
}

// GetRole extracts the caller's role from the context.
func GetRole(ctx context.Context) auth.Role {
	role, _ := ctx.Value(RoleKey).(auth.Role)
	return role
}

// RequireAuth returns a middleware that validates JWT tokens and enforces
// policy. It extracts the token from the Authorization header, validates it,
// and adds the caller ID and role to the request context.
func RequireAuth(jwtManager *auth.JWTManager, policy Policy) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			authHeader := req.Header().Get("Authorization")
			if authHeader == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
			}

			claims, err := jwtManager.Validate(parts[1])
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			procedure := req.Spec().Procedure
			if allowed, ok := policy[procedure]; ok && !slices.Contains(allowed, claims.Role) {
				return nil, connect.NewError(connect.CodePermissionDenied,
					fmt.Errorf("role %q may not call %s", claims.Role, procedure))
			}

			ctx = context.WithValue(ctx, CallerKey, claims.CallerID)
			ctx = context.WithValue(ctx, RoleKey, claims.Role)

			return next(ctx, req)
		}
	}
}

// BearerToken returns a client interceptor that attaches token to every call.
func BearerToken(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if req.Spec().IsClient {
				req.Header().Set("Authorization", "Bearer "+token)
			}
			return next(ctx, req)
		}
	}
}
