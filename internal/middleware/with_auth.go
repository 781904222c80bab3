package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/awards-portal-api/internal/utils"
)

// AuthOptions configures the WithAuth helper. Any role other than
// AuthRoleAny implies RequireUser.
type AuthOptions struct {
	Role        string
	RequireUser bool
}

// WithAuth guards a handler with an identity check and a role check.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := normalizeRole(opts.Role)
	if role == "" {
		role = AuthRoleAny
	}
	requireUser := opts.RequireUser || role != AuthRoleAny

	return func(c *fiber.Ctx) error {
		if UserID(c) == 0 {
			if requireUser {
				return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
			}
			return handler(c)
		}

		if role != AuthRoleAny && !satisfies(UserRole(c), role) {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}
		return handler(c)
	}
}
