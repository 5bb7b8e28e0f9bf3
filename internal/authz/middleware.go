package authz

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/portalkota/portalkota/internal/shared"
)

// DecisionObserver receives the outcome of every guard evaluation.
type DecisionObserver interface {
	ObserveDecision(page string, allowed bool)
}

// Middleware wires access-decision guards for HTTP handlers. The guards are
// the coarse first line only; services re-evaluate the same predicates on
// every operation.
type Middleware struct {
	Logger   *slog.Logger
	Observer DecisionObserver
}

// RequirePage ensures the current session may access the given page. Requests
// without a signed-in session get 401, denied sessions get 403.
func (m Middleware) RequirePage(page Page) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromSession(shared.SessionFromContext(r.Context()))
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			allowed := HasPageAccess(id, page)
			if m.Observer != nil {
				m.Observer.ObserveDecision(string(page), allowed)
			}
			if !allowed {
				if m.Logger != nil {
					m.Logger.Warn("page access denied",
						slog.Int64("user_id", id.UserID),
						slog.String("role", string(id.Role)),
						slog.String("page", string(page)))
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromSession rebuilds the decision engine's Identity from the stored
// session. A missing session, a blank user id or an unknown role all report
// false: the caller must treat that as unauthenticated.
func IdentityFromSession(sess *shared.Session) (Identity, bool) {
	if sess == nil {
		return Identity{}, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return Identity{}, false
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, false
	}
	role, ok := ParseRole(sess.Role())
	if !ok {
		return Identity{}, false
	}
	return Identity{UserID: userID, Role: role, Pages: ParsePageSet(sess.Pages())}, true
}
