package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/juanlo017/cerves-app/internal/auth"
	"github.com/juanlo017/cerves-app/internal/model"
)

// AdminTokenHeader carries the operator token on administrative requests.
const AdminTokenHeader = "X-Admin-Token"

// PlayerLookup resolves the player a token was issued to.
type PlayerLookup interface {
	GetByID(id string) (*model.Player, error)
}

// RequireAuth validates the bearer token and populates AuthContext.
// A token whose player has been deleted is rejected, which makes the client
// restart onboarding.
func RequireAuth(tokens *auth.TokenManager, players PlayerLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := tokens.Validate(BearerToken(r))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			p, err := players.GetByID(claims.PlayerID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if p == nil {
				writeError(w, http.StatusUnauthorized, "player not found")
				return
			}

			ac := auth.AuthContext{PlayerID: p.ID, UserID: p.UserID}
			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin checks the operator token. An empty configured token disables
// every admin route.
func RequireAdmin(adminToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			given := r.Header.Get(AdminTokenHeader)
			if adminToken == "" || subtle.ConstantTimeCompare([]byte(given), []byte(adminToken)) != 1 {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken returns the token of an "Authorization: Bearer" header. Browsers
// cannot set headers on websocket upgrades, so a "token" query parameter is
// accepted as well.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return r.URL.Query().Get("token")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
