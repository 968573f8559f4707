package staff

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/schoolhub/schoolhub-api/internal/domain/user"
	"github.com/schoolhub/schoolhub-api/internal/middleware"
	"github.com/schoolhub/schoolhub-api/internal/pkg/response"
)

// SchoolResolver resolves an explicit school hint (UUID or subdomain) from a
// request into a school id.
type SchoolResolver interface {
	ResolveSchool(ctx context.Context, hint string) (uuid.UUID, error)
}

type guardContextKey string

const (
	profileContextKey guardContextKey = "staff_profile"
	schoolContextKey  guardContextKey = "staff_school_id"
)

// ProfileFromContext returns the admin profile resolved by the guard
func ProfileFromContext(ctx context.Context) (*AdminProfile, bool) {
	p, ok := ctx.Value(profileContextKey).(*AdminProfile)
	return p, ok
}

// SchoolIDFromContext returns the school scope resolved by the guard
func SchoolIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(schoolContextKey).(uuid.UUID)
	return id, ok
}

// Guard gates routes with a statically declared required permission
type Guard struct {
	authorizer *Authorizer
	resolver   SchoolResolver
}

// NewGuard creates the route guard
func NewGuard(authorizer *Authorizer, resolver SchoolResolver) *Guard {
	return &Guard{authorizer: authorizer, resolver: resolver}
}

// ActorFromRequest builds the acting identity from the authenticated request,
// including any explicit school override (X-School-ID header or ?school=).
func (g *Guard) ActorFromRequest(r *http.Request) (Actor, error) {
	actor := Actor{
		UserID: middleware.GetUserID(r.Context()),
		Role:   user.Role(middleware.GetRole(r.Context())),
	}
	if schoolID, ok := middleware.GetSchoolID(r.Context()); ok {
		actor.SchoolID = &schoolID
	}

	hint := r.Header.Get("X-School-ID")
	if hint == "" {
		hint = r.URL.Query().Get("school")
	}
	if hint != "" {
		if id, err := uuid.Parse(hint); err == nil {
			actor.SchoolOverride = &id
		} else if g.resolver != nil {
			id, err := g.resolver.ResolveSchool(r.Context(), hint)
			if err != nil {
				return actor, err
			}
			actor.SchoolOverride = &id
		}
	}
	return actor, nil
}

// SchoolScope returns the school a request operates on: the explicit
// override when present, the session context otherwise.
func SchoolScope(actor Actor) (uuid.UUID, bool) {
	if actor.SchoolOverride != nil {
		return *actor.SchoolOverride, true
	}
	if actor.SchoolID != nil {
		return *actor.SchoolID, true
	}
	return uuid.Nil, false
}

// Require declares the permission an endpoint needs. Denials never reveal
// which internal check failed; the precise reason is only logged.
func (g *Guard) Require(resource Resource, access AccessType) func(http.Handler) http.Handler {
	required := &RequiredPermission{Resource: resource, AccessType: access}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := g.ActorFromRequest(r)
			if err != nil {
				response.BadRequest(w, "Unknown school")
				return
			}

			decision, err := g.authorizer.Authorize(r.Context(), required, actor)
			if err != nil {
				log.Error().Err(err).
					Str("resource", string(resource)).
					Str("access_type", string(access)).
					Msg("Authorization check failed")
				response.ServiceUnavailable(w)
				return
			}

			if !decision.Allowed {
				if decision.Reason == DenyMissingSchoolContext {
					response.BadRequest(w, "School context is required")
					return
				}
				log.Debug().
					Str("user_id", actor.UserID.String()).
					Str("reason", string(decision.Reason)).
					Str("resource", string(resource)).
					Str("access_type", string(access)).
					Msg("Request denied")
				response.Forbidden(w, "Insufficient permissions")
				return
			}

			ctx := r.Context()
			if decision.Profile != nil {
				ctx = context.WithValue(ctx, profileContextKey, decision.Profile)
			}
			if schoolID, ok := SchoolScope(actor); ok {
				ctx = context.WithValue(ctx, schoolContextKey, schoolID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
