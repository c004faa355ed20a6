package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

// Auth roles understood by WithAuth.
const (
	AuthRoleAny     = "any"
	AuthRoleStudent = models.RoleStudent
	AuthRoleTeacher = models.RoleTeacher
	AuthRoleAdmin   = models.RoleAdmin
)

// AuthOptions configures the WithAuth helper.
type AuthOptions struct {
	Role        string
	RequireUser bool
}

// WithAuth wraps a handler with authentication and role checks. Admins pass every role check.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := strings.ToLower(strings.TrimSpace(opts.Role))
	if role == "" {
		role = AuthRoleAny
	}
	requireUser := opts.RequireUser || role != AuthRoleAny

	return func(c *fiber.Ctx) error {
		_, currentRole, authenticated := CurrentUser(c)
		if requireUser && !authenticated {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}

		if role == AuthRoleAny || currentRole == AuthRoleAdmin || currentRole == role {
			return handler(c)
		}

		return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
	}
}
