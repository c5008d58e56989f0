package handlers

import (
	"pickhub/internal/domain"

	"github.com/gofiber/fiber/v2"

	applog "pickhub/internal/log"
)

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (d Deps) Login(c *fiber.Ctx) error {
	var body loginBody
	if err := c.BodyParser(&body); err != nil {
		return fail(c, domain.ErrInvalidInput("malformed JSON body"))
	}
	tok, u, err := d.Auth.Login(body.Username, body.Password)
	if err != nil {
		applog.Security(c, "auth.login.fail", fiber.Map{"username": body.Username})
		return fail(c, err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    tok,
		HTTPOnly: true,
		SameSite: "Lax",
	})
	applog.Audit(c, "auth.login", fiber.Map{"username": u.Username, "role": u.Role})
	return c.JSON(fiber.Map{"token": tok, "user": u})
}

func (d Deps) Logout(c *fiber.Ctx) error {
	if err := d.Auth.Logout(token(c)); err != nil {
		return fail(c, err)
	}
	c.ClearCookie(sessionCookie)
	applog.Audit(c, "auth.logout", nil)
	return c.JSON(fiber.Map{"ok": true})
}

// Me returns the authenticated principal; clients use it to restore state.
func (d Deps) Me(c *fiber.Ctx) error {
	return c.JSON(currentUser(c))
}
