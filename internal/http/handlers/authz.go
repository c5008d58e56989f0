package handlers

import (
	"strings"

	"pickhub/internal/domain"

	"github.com/gofiber/fiber/v2"

	applog "pickhub/internal/log"
)

const sessionCookie = "sid"

// token pulls the session token from the Authorization header or, failing
// that, the session cookie (browser clients).
func token(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Cookies(sessionCookie)
}

// RequireUser authenticates the request and stashes the user in locals.
func (d Deps) RequireUser(c *fiber.Ctx) error {
	u, err := d.Auth.Authenticate(token(c))
	if err != nil {
		applog.Security(c, "authz.reject", nil)
		return fail(c, err)
	}
	c.Locals("user", u)
	return c.Next()
}

// RequireAdmin runs after RequireUser on admin-only routes.
func (d Deps) RequireAdmin(c *fiber.Ctx) error {
	u := currentUser(c)
	if u == nil || !u.IsAdmin() {
		applog.Security(c, "authz.admin.reject", fiber.Map{"path": c.Path()})
		return fail(c, domain.ErrForbidden("admin role required"))
	}
	return c.Next()
}

func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("user").(*domain.User)
	return u
}
