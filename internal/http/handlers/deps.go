package handlers

import (
	"pickhub/internal/catalog"
	"pickhub/internal/domain"
	"pickhub/internal/scan"
	"pickhub/internal/services"

	"github.com/gofiber/fiber/v2"

	applog "pickhub/internal/log"
)

// Deps carries the services handlers call. One value is built in main and
// shared by every route.
type Deps struct {
	Auth      *services.AuthService
	Lifecycle *services.LifecycleService
	Registry  *services.Registry
	Cleanup   *services.CleanupService
	Catalog   *catalog.Store
	Matcher   *scan.Matcher
}

// statusFor maps application error codes to HTTP statuses.
func statusFor(code string) int {
	switch code {
	case domain.CodeAuthRequired:
		return fiber.StatusUnauthorized
	case domain.CodeForbidden:
		return fiber.StatusForbidden
	case domain.CodeNotFound:
		return fiber.StatusNotFound
	case domain.CodeInvalidInput:
		return fiber.StatusBadRequest
	case domain.CodeDuplicateName, domain.CodeLocked, domain.CodeInvalidTransition:
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// fail renders an application error as {"error": {...}}. Internal errors are
// logged with detail but reported opaquely.
func fail(c *fiber.Ctx, err error) error {
	code := domain.CodeOf(err)
	msg := err.Error()
	if code == domain.CodeInternal {
		applog.Error(c, "http.internal", err, nil)
		msg = "internal error"
	}
	return c.Status(statusFor(code)).JSON(fiber.Map{
		"error": fiber.Map{"code": code, "message": msg},
	})
}
