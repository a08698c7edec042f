package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"finarth/internal/log"
)

type ctxKey string

const userIDKey ctxKey = "auth_user_id"

var (
	errUnauthorized = errors.New("authentication required")
	errForbidden    = errors.New("access to another user's data")
)

// authenticate resolves a bearer token to a user id. Requests without a
// token pass through; a malformed or expired token is rejected with 401.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || s.deps.Tokens == nil {
			next.ServeHTTP(w, r)
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			ErrorResponse(http.StatusUnauthorized, "malformed authorization header").Write(w)
			return
		}
		userID, err := s.deps.Tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			log.FromContext(r.Context()).DebugContext(r.Context(), "Token rejected", log.FieldError, err)
			ErrorResponse(http.StatusUnauthorized, "invalid or expired token").Write(w)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = log.WithLogger(ctx, log.FromContext(ctx).With(log.FieldUserID, userID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func authenticatedUser(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// authorize checks that the caller may act for userID. It only enforces
// anything when the server runs with AuthRequired.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, userID int64) bool {
	if !s.opts.AuthRequired {
		return true
	}
	caller, ok := authenticatedUser(r.Context())
	if !ok {
		ErrorResponse(http.StatusUnauthorized, errUnauthorized.Error()).Write(w)
		return false
	}
	if caller != userID {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Cross-user access denied",
			log.FieldComponent, log.ComponentSecurity,
			"target_user_id", userID)
		ErrorResponse(http.StatusForbidden, errForbidden.Error()).Write(w)
		return false
	}
	return true
}
