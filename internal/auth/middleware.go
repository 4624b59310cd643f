package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// RequireRole resolves the actor and rejects callers whose role does not
// match. The actor is stored in Locals for downstream handlers.
func RequireRole(required domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := ResolveActor(c)
		if err != nil {
			return err
		}
		if actor.Role != required {
			return apperrors.NewForbidden("requires role=" + string(required))
		}
		c.Locals(actorKey, actor)
		return c.Next()
	}
}

// RequireAPIKey guards the external ingest endpoint with a shared secret.
func RequireAPIKey(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := strings.TrimSpace(c.Get(HeaderAPIKey))
		if secret == "" || key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(secret)) != 1 {
			return apperrors.NewUnauthorized("invalid or missing X-API-KEY")
		}
		return c.Next()
	}
}
