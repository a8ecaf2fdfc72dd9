package staff

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/lumahq/luma/internal/authz"
)

// StaffIDHeader names the header carrying the authenticated staff
// identifier. Whatever authentication fronts the service sets it; session
// mechanics are outside this service.
const StaffIDHeader = "X-Staff-ID"

// StaffSource loads staff records for request resolution.
type StaffSource interface {
	Get(ctx context.Context, id uuid.UUID) (Profile, error)
}

// Resolver turns the staff id header into a loaded staff member in the
// request context. Requests without the header pass through unresolved; the
// authorization gates then reject them. Concurrent requests for the same
// staff id share one load via singleflight.
type Resolver struct {
	Source StaffSource
	Logger *slog.Logger

	group singleflight.Group
}

// Middleware resolves the current staff member for downstream handlers.
func (res *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(StaffIDHeader))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		profile, err := res.load(r.Context(), id)
		if err != nil {
			if res.Logger != nil && !errors.Is(err, ErrNotFound) {
				res.Logger.Error("resolve staff", slog.String("staff_id", raw), slog.Any("error", err))
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		if !profile.Active {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		ctx := authz.ContextWithStaff(r.Context(), profile.Member())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (res *Resolver) load(ctx context.Context, id uuid.UUID) (Profile, error) {
	resultChan := res.group.DoChan(id.String(), func() (interface{}, error) {
		return res.Source.Get(context.WithoutCancel(ctx), id)
	})
	select {
	case <-ctx.Done():
		return Profile{}, ctx.Err()
	case result := <-resultChan:
		if result.Err != nil {
			return Profile{}, result.Err
		}
		return result.Val.(Profile), nil
	}
}
