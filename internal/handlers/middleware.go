package handlers

import (
	"context"
	"log"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"grammardrill/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const QuizClaimsContextKey ContextKey = "quiz_claims"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	limiter *security.RateLimiter
	tokens  *security.TokenManager
}

// NewMiddleware creates a new middleware instance. limiter guards the
// endpoints that call the AI API.
func NewMiddleware(limiter *security.RateLimiter, tokens *security.TokenManager) *Middleware {
	return &Middleware{
		limiter: limiter,
		tokens:  tokens,
	}
}

// RateLimit rejects clients that exceed the limiter's budget
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := security.GetClientIP(r)
		if !m.limiter.Allow(ip) {
			log.Printf("Rate limit exceeded for %s on %s", ip, r.URL.Path)
			respondWithError(w, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
			return
		}
		next(w, r)
	}
}

// RequireQuizToken checks the bearer quiz token and that it was issued for
// the drill in the path. The verified claims are added to the context.
func (m *Middleware) RequireQuizToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}

		claims, err := m.tokens.Verify(token)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "Rejected quiz token", err)
			return
		}

		drillID, err := strconv.ParseInt(r.PathValue("drillId"), 10, 64)
		if err != nil || drillID != claims.DrillID {
			respondWithError(w, http.StatusForbidden, "Quiz token was issued for another drill", "", nil)
			return
		}

		ctx := context.WithValue(r.Context(), QuizClaimsContextKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// GetQuizClaims retrieves the verified quiz token claims from the request context
func GetQuizClaims(ctx context.Context) *security.QuizClaims {
	claims, ok := ctx.Value(QuizClaimsContextKey).(*security.QuizClaims)
	if !ok {
		return nil
	}
	return claims
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		// Call next handler
		next.ServeHTTP(rec, r)

		// Log request
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// Recover turns a panic in a handler into a 500 response
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				log.Printf("Panic serving %s %s: %v\n%s", r.Method, r.URL.Path, p, debug.Stack())
				respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
