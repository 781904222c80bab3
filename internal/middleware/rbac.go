package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/awards-portal-api/internal/utils"
)

// Roles understood by the portal.
const (
	AuthRoleAny      = "any"
	AuthRoleAdmin    = "admin"
	AuthRoleReviewer = "reviewer"
	AuthRoleStudent  = "student"
)

// implied lists the roles a role stands in for.
var implied = map[string][]string{
	AuthRoleAdmin: {AuthRoleReviewer},
}

// satisfies reports whether a caller holding current may act as required.
func satisfies(current, required string) bool {
	current, required = normalizeRole(current), normalizeRole(required)
	if current == "" {
		return false
	}
	if required == AuthRoleAny || current == required {
		return true
	}
	for _, role := range implied[current] {
		if role == required {
			return true
		}
	}
	return false
}

// RequireRole lets the request through when the caller satisfies any of roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		current := UserRole(c)
		for _, role := range roles {
			if satisfies(current, role) {
				return c.Next()
			}
		}
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}
}
