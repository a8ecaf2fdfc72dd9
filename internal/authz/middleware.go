package authz

import (
	"log/slog"
	"net/http"
)

// DecisionRecorder observes gate outcomes, typically for metrics.
type DecisionRecorder interface {
	RecordDecision(resource, action string, allowed bool)
}

// Middleware wires authorization gates for HTTP handlers. It expects the
// staff resolution middleware to have placed the current staff member in the
// request context; a request with no resolved staff is always forbidden.
type Middleware struct {
	Authorizer *Authorizer
	Logger     *slog.Logger
	Decisions  DecisionRecorder
}

// Require ensures the current staff member may perform action on resource.
func (m Middleware) Require(resource, action string) func(http.Handler) http.Handler {
	return m.RequireAny(Capability{Resource: resource, Action: action})
}

// RequireAny ensures the current staff member holds at least one of the
// capabilities. An empty capability list passes every request through.
func (m Middleware) RequireAny(caps ...Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(caps) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			staff, ok := StaffFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			for _, c := range caps {
				allowed, err := m.Authorizer.IsAllowed(staff, c.Resource, c.Action)
				if err != nil {
					if m.Logger != nil {
						m.Logger.Error("authz gate", slog.String("capability", c.String()), slog.Any("error", err))
					}
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				if m.Decisions != nil {
					m.Decisions.RecordDecision(c.Resource, c.Action, allowed)
				}
				if allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}
