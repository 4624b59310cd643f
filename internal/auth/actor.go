package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const actorKey = "actor"

// Headers and query parameters carrying the asserted identity. These are
// trusted as-is; there is no token or session behind them.
const (
	HeaderRole   = "X-ROLE"
	HeaderUser   = "X-USER"
	HeaderAPIKey = "X-API-KEY"

	queryRole = "role"
	queryUser = "user"
)

// ResolveActor extracts the role+identity pair from request metadata.
// Headers win over query parameters.
func ResolveActor(c *fiber.Ctx) (domain.Actor, error) {
	role := c.Get(HeaderRole)
	if role == "" {
		role = c.Query(queryRole)
	}
	role = strings.ToLower(strings.TrimSpace(role))

	user := c.Get(HeaderUser)
	if user == "" {
		user = c.Query(queryUser)
	}
	user = strings.TrimSpace(user)

	if role != string(domain.RoleCustomer) && role != string(domain.RoleAdmin) {
		return domain.Actor{}, apperrors.NewInvalidActor(map[string]any{
			"role": "missing/invalid role. Use X-ROLE: customer|admin (or ?role=...)",
		})
	}
	if user == "" {
		return domain.Actor{}, apperrors.NewInvalidActor(map[string]any{
			"user": "missing user. Use X-USER: email (or ?user=...)",
		})
	}

	return domain.Actor{Role: domain.Role(role), User: user}, nil
}

// ActorFromContext retrieves the actor stored by RequireRole.
func ActorFromContext(c *fiber.Ctx) (domain.Actor, bool) {
	val := c.Locals(actorKey)
	if val == nil {
		return domain.Actor{}, false
	}
	actor, ok := val.(domain.Actor)
	return actor, ok
}
