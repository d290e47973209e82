// Package middleware implements the admin HTTP auth boundary of spec.md
// §6: a constant-time bearer API key check, then a session-cookie check
// against the admin_sessions/admin_users tables.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/driftloop/mailcore/internal/domain"
	"github.com/driftloop/mailcore/pkg/crypto"
)

type contextKey string

const adminUserContextKey contextKey = "admin_user_id"

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": message})
}

// AdminAuth holds the two credentials the admin boundary accepts.
type AdminAuth struct {
	apiKey string
	admin  domain.AdminRepository
}

func NewAdminAuth(apiKey string, admin domain.AdminRepository) *AdminAuth {
	return &AdminAuth{apiKey: apiKey, admin: admin}
}

// RequireAdmin accepts either a constant-time-compared bearer API key or a
// valid, non-expired "session" cookie whose user has role owner/admin
// (spec.md §6).
func (a *AdminAuth) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if header := r.Header.Get("Authorization"); header != "" {
				parts := strings.SplitN(header, " ", 2)
				if len(parts) == 2 && parts[0] == "Bearer" && crypto.ConstantTimeEqual(parts[1], a.apiKey) {
					next.ServeHTTP(w, r)
					return
				}
			}

			cookie, err := r.Cookie("session")
			if err != nil {
				writeJSONError(w, "authentication required", http.StatusUnauthorized)
				return
			}

			session, err := a.admin.GetSessionByToken(r.Context(), cookie.Value)
			if err != nil {
				writeJSONError(w, "authentication required", http.StatusUnauthorized)
				return
			}
			if session == nil || session.Expired(time.Now().UTC()) {
				writeJSONError(w, "session expired", http.StatusUnauthorized)
				return
			}
			if !session.Role.Valid() {
				writeJSONError(w, "insufficient role", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), adminUserContextKey, session.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminUserID extracts the authenticated admin's id from context, set only
// when auth succeeded via the session-cookie path.
func AdminUserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(adminUserContextKey).(string)
	return v, ok
}
