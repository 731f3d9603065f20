package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/server"
	"github.com/desertthunder/musive/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the cookie name checked when no Authorization header is sent.
const SessionCookie = "session"

const tokenIssuer = "musive"

type sessionKey struct{}

// UserLookup resolves a session subject to a live user.
type UserLookup interface {
	Get(id string) (*models.User, error)
}

// IssueToken signs a session token for userID valid for ttl.
func IssueToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("%w: session secret", shared.ErrMissingArgument)
	}
	if userID == "" {
		return "", fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iss": tokenIssuer,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// ParseToken verifies tokenString and returns its subject.
func ParseToken(secret []byte, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: session expired", shared.ErrNotAuthenticated)
		}
		return "", fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%w: invalid claims", shared.ErrNotAuthenticated)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: missing subject", shared.ErrNotAuthenticated)
	}
	return sub, nil
}

// bearerToken extracts the session token from the Authorization header or the session cookie.
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}

	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// SessionMiddleware resolves the caller from a session token and stores the user on the request context.
//
// Requests without a valid token continue anonymously; handlers that need a caller use [CurrentUser].
// A store failure during lookup is answered with 500.
func (a *App) SessionMiddleware() server.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := ParseToken(a.secret, raw)
			if err != nil {
				a.logger.Debug("rejected session token", "path", r.URL.Path, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			user, err := a.users.Get(userID)
			switch {
			case errors.Is(err, shared.ErrNotFound):
				a.logger.Debug("session for unknown user", "user", userID)
				next.ServeHTTP(w, r)
			case err != nil:
				a.writeError(w, r, err)
			default:
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, user)))
			}
		})
	}
}

// CurrentUser returns the session user stored by [App.SessionMiddleware], if any.
func CurrentUser(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(sessionKey{}).(*models.User)
	return user, ok && user != nil
}

// requireUser answers 401 unless the request carries a session.
func (a *App) requireUser(fn func(w http.ResponseWriter, r *http.Request, user *models.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := CurrentUser(r.Context())
		if !ok {
			a.writeError(w, r, shared.ErrNotAuthenticated)
			return
		}
		fn(w, r, user)
	}
}
