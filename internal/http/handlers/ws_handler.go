package handlers

import (
	"strings"

	"pickhub/internal/domain"
	"pickhub/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	applog "pickhub/internal/log"
)

// wsToken accepts the token as a query parameter (browser WebSocket clients
// cannot set headers) with the header and cookie as fallbacks.
func wsToken(c *fiber.Ctx) string {
	if t := c.Query("token"); t != "" {
		return t
	}
	if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Cookies(sessionCookie)
}

// WSUpgrade gates the /ws tree: real upgrade requests only, authenticated
// before the protocol switch so a bad token never costs a socket.
func (d Deps) WSUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	u, err := d.Auth.Authenticate(wsToken(c))
	if err != nil {
		applog.Security(c, "ws.authz.reject", nil)
		return fail(c, err)
	}
	c.Locals("user", u)
	return c.Next()
}

func (d Deps) wsDeps() ws.Deps {
	return ws.Deps{
		Auth:      d.Auth,
		Lifecycle: d.Lifecycle,
		Registry:  d.Registry,
		Matcher:   d.Matcher,
	}
}

// ScanSocket is the free-standing identification session, open to any role.
func (d Deps) ScanSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		u := conn.Locals("user").(*domain.User)
		ws.NewScannerSession(d.wsDeps(), conn, u).Run()
	})
}

// CreateRequestSocket is the requester cart-building session.
func (d Deps) CreateRequestSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		u := conn.Locals("user").(*domain.User)
		if !u.CanRequest() {
			ws.WriteError(conn, domain.ErrForbidden("requester role required"))
			_ = conn.Close()
			return
		}
		ws.NewRequesterSession(d.wsDeps(), conn, u).Run()
	})
}

// PickSocket binds a picker to /ws/pick/:name. The request must already be
// started and locked by this user; a refused bind answers with one error
// frame and closes.
func (d Deps) PickSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		u := conn.Locals("user").(*domain.User)
		sess, err := ws.NewPickerSession(d.wsDeps(), conn, u, conn.Params("name"))
		if err != nil {
			ws.WriteError(conn, err)
			_ = conn.Close()
			return
		}
		sess.Run()
	})
}
