package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/staffdesk/employee-api/config"
	"github.com/staffdesk/employee-api/internal/api"
)

// Define typed context keys
type contextKey string

const sessionKey contextKey = "session"

// Authenticate is middleware to validate JWT access tokens. On success it
// stores an api.Session built from the validated claims in the request
// context. The role in that session is a client-held hint only; mutating
// paths re-validate against the stored record (see RequireStoredAdmin).
func Authenticate(logger *slog.Logger, jwtCfg config.JWTConfig) func(next http.Handler) http.Handler {
	secretKey := []byte(jwtCfg.SecretKey)
	if len(secretKey) == 0 {
		logger.Error("FATAL: JWT Secret Key is not configured!")
		panic("JWT Secret Key cannot be empty")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				l.WarnContext(ctx, "Missing Authorization header")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authorization header required")
				return
			}

			headerParts := strings.Split(authHeader, " ")
			if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
				l.WarnContext(ctx, "Invalid Authorization header format")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
				return
			}
			tokenString := headerParts[1]

			claims := &api.Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return secretKey, nil
			})

			if err != nil {
				l.WarnContext(ctx, "Token parsing/validation failed", slog.Any("error", err))
				errMsg := "Invalid or expired token"
				if errors.Is(err, jwt.ErrTokenExpired) {
					errMsg = "Token has expired"
				} else if errors.Is(err, jwt.ErrTokenMalformed) {
					errMsg = "Malformed token"
				} else if errors.Is(err, jwt.ErrSignatureInvalid) {
					errMsg = "Invalid token signature"
				}
				api.ErrorResponse(w, r, http.StatusUnauthorized, errMsg)
				return
			}

			if !token.Valid {
				l.WarnContext(ctx, "Token marked as invalid or claims are nil")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid token")
				return
			}

			if claims.Issuer != jwtCfg.Issuer {
				l.WarnContext(ctx, "Token issuer mismatch", slog.String("expected", jwtCfg.Issuer), slog.String("actual", claims.Issuer))
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid token issuer")
				return
			}

			if jwtCfg.Audience != "" && !api.VerifyAudience(claims.Audience, jwtCfg.Audience) {
				l.WarnContext(ctx, "Token audience mismatch", slog.String("expected", jwtCfg.Audience), slog.Any("actual", claims.Audience))
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid token audience")
				return
			}

			sess := api.Session{
				EmployeeID: claims.EmployeeID,
				Username:   claims.Username,
				Role:       claims.Role,
			}
			ctx = context.WithValue(ctx, sessionKey, sess)
			l.DebugContext(ctx, "Authentication successful", slog.Int("employeeID", sess.EmployeeID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSessionFromContext returns the session stored by Authenticate.
func GetSessionFromContext(ctx context.Context) (api.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(api.Session)
	return sess, ok
}

// ContextWithSession is a test helper to run handlers behind the middleware
// without constructing tokens.
func ContextWithSession(ctx context.Context, sess api.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// RequireStoredAdmin refuses the request unless the role *stored* for the
// session's employee is Admin. The client-declared role carried in the token
// is never trusted for this check. Runs AFTER Authenticate.
func RequireStoredAdmin(logger *slog.Logger, roles *RoleCache) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sess, ok := GetSessionFromContext(ctx)
			if !ok {
				logger.ErrorContext(ctx, "Session missing from context; Authenticate must run first")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}

			storedRole, err := roles.RoleByID(ctx, sess.EmployeeID)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to resolve stored role",
					slog.Int("employeeID", sess.EmployeeID), slog.Any("error", err))
				api.ErrorResponse(w, r, http.StatusForbidden, "Role verification failed")
				return
			}
			if storedRole != api.RoleAdmin {
				logger.WarnContext(ctx, "Admin route refused",
					slog.Int("employeeID", sess.EmployeeID), slog.String("stored_role", storedRole))
				api.ErrorResponse(w, r, http.StatusForbidden, "Admin role required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
