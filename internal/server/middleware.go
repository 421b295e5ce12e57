package server

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"goserveph/internal/metrics"

	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/sirupsen/logrus"
)

// Context key types to avoid collisions
type contextKey string

const (
	contextKeyUserID contextKey = "user_id"
	contextKeyEmail  contextKey = "email"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		elapsed := time.Since(started)
		metrics.ObserveRequest(r.Method, rw.statusCode, elapsed)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": elapsed.Milliseconds(),
		}).Info("http request")
	})
}

// RequireStaff verifies the Cognito access token and checks the staff group.
// The token comes from a bearer header or the encrypted login cookie.
func (s *Service) RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.jwksCache == nil {
			next.ServeHTTP(w, r)
			return
		}

		accessToken, ok := s.accessToken(r)
		if !ok {
			s.writeError(w, http.StatusUnauthorized, "Please sign in.")
			return
		}

		set, err := s.jwksCache.Lookup(r.Context(), s.jwksURL)
		if err != nil {
			s.logger.WithError(err).Error("failed to fetch JWKS")
			s.writeError(w, http.StatusServiceUnavailable, "Sign-in is temporarily unavailable.")
			return
		}

		token, err := jwt.Parse(
			[]byte(accessToken),
			jwt.WithKeySet(set),
			jwt.WithValidate(true),
		)
		if err != nil {
			s.logger.WithError(err).Warn("failed to parse JWT")
			s.writeError(w, http.StatusUnauthorized, "Please sign in.")
			return
		}

		userID, ok := token.Subject()
		if !ok || userID == "" {
			s.logger.Error("no user ID in JWT subject claim")
			s.writeError(w, http.StatusUnauthorized, "Please sign in.")
			return
		}

		if !slices.Contains(tokenGroups(token), s.config.StaffGroup) {
			s.logger.WithField("user_id", userID).Warn("user is not in the staff group")
			s.writeError(w, http.StatusForbidden, "Staff access only.")
			return
		}

		// Cognito access tokens carry username rather than email
		var email string
		if err := token.Get("email", &email); err != nil {
			_ = token.Get("username", &email)
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, contextKeyUserID, userID)
		if email != "" {
			ctx = context.WithValue(ctx, contextKeyEmail, email)
		}

		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"email":   email,
		}).Debug("authenticated staff")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) accessToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		return token, token != ""
	}

	cookie, err := r.Cookie(cookieAccessTokenName)
	if err != nil {
		return "", false
	}

	var accessToken string
	err = s.cookie.Decode(cookieAccessTokenName, cookie.Value, &accessToken)
	if err != nil {
		s.logger.WithError(err).Warn("failed to decrypt access token")
		return "", false
	}

	return accessToken, accessToken != ""
}

func tokenGroups(token jwt.Token) []string {
	var raw any
	if err := token.Get("cognito:groups", &raw); err != nil {
		return nil
	}

	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		groups := make([]string, 0, len(v))
		for _, g := range v {
			if s, ok := g.(string); ok {
				groups = append(groups, s)
			}
		}
		return groups
	case string:
		return []string{v}
	}
	return nil
}

func (s *Service) StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Only strip if path is not root and has trailing slash
		if path != "/" && strings.HasSuffix(path, "/") {
			newURL := *r.URL
			newURL.Path = strings.TrimSuffix(path, "/")

			// 308 keeps the method and body of form posts
			http.Redirect(w, r, newURL.String(), http.StatusPermanentRedirect)
			return
		}

		next.ServeHTTP(w, r)
	})
}
