package handlers

import (
	"pickhub/internal/domain"

	"github.com/gofiber/fiber/v2"

	applog "pickhub/internal/log"
)

func (d Deps) ListUsers(c *fiber.Ctx) error {
	users, err := d.Auth.Users.List()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"users": users, "count": len(users)})
}

type createUserBody struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (d Deps) CreateUser(c *fiber.Ctx) error {
	var body createUserBody
	if err := c.BodyParser(&body); err != nil {
		return fail(c, domain.ErrInvalidInput("malformed JSON body"))
	}
	u, err := d.Auth.CreateUser(body.Username, body.Name, body.Password, body.Role)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "admin.user.create", fiber.Map{"username": u.Username, "role": u.Role})
	return c.Status(fiber.StatusCreated).JSON(u)
}

// Sessions lists live scanner/requester/picker connections.
func (d Deps) Sessions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"sessions": d.Registry.Snapshot(), "count": d.Registry.Count()})
}

// RunCleanup triggers one janitor sweep on demand.
func (d Deps) RunCleanup(c *fiber.Ctx) error {
	d.Cleanup.RunOnce()
	applog.Audit(c, "admin.cleanup.run", nil)
	return c.JSON(fiber.Map{"ok": true})
}
