package auth

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Identity headers set by the fronting gateway after token validation.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserName  = "X-User-Name"
	HeaderUserEmail = "X-User-Email"
)

// Middleware populates the request context with the caller identity
// forwarded by the gateway. Requests without identity headers proceed
// unauthenticated; attribution then falls back to "system".
func Middleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawID := r.Header.Get(HeaderUserID)
			if rawID == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := uuid.Parse(rawID)
			if err != nil {
				logger.Warn("ignoring malformed user id header",
					zap.String("value", rawID))
				next.ServeHTTP(w, r)
				return
			}

			user := &UserContext{
				UserID:      userID,
				DisplayName: r.Header.Get(HeaderUserName),
				Email:       r.Header.Get(HeaderUserEmail),
			}
			next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), user)))
		})
	}
}
