package ws

import (
	"sync"

	"pickhub/internal/domain"
	"pickhub/internal/scan"
	"pickhub/internal/services"

	"github.com/gofiber/fiber/v2"

	applog "pickhub/internal/log"
)

// Conn is the subset of the websocket connection the sessions use. Tests
// substitute an in-memory implementation.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// Deps bundles what every session kind needs.
type Deps struct {
	Auth      *services.AuthService
	Lifecycle *services.LifecycleService
	Registry  *services.Registry
	Matcher   *scan.Matcher
}

// session is the shared connection state. Writes serialize on mu because
// status broadcasts arrive from other goroutines than the read loop.
type session struct {
	deps Deps
	conn Conn
	user *domain.User
	live *services.LiveSession

	mu sync.Mutex
}

func (s *session) send(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteJSON(v); err != nil {
		applog.Error(nil, "ws.write.fail", err, nil)
	}
}

// sendErr reports an application error to the client without dropping the
// connection.
func (s *session) sendErr(err error) {
	reply := errorReply{Type: ReplyError, Code: domain.CodeOf(err), Message: err.Error()}
	if domain.IsLockLost(err) {
		reply.LockLost = true
	}
	s.send(reply)
}

func (s *session) touch() {
	if s.live != nil {
		s.deps.Registry.Touch(s.live.ID)
	}
}

func (s *session) close() {
	if s.live != nil {
		s.deps.Registry.Unregister(s.live.ID)
	}
	_ = s.conn.Close()
}

// WriteError sends one error reply on a bare connection; used when a session
// is refused before it starts.
func WriteError(conn Conn, err error) {
	reply := errorReply{Type: ReplyError, Code: domain.CodeOf(err), Message: err.Error()}
	if domain.IsLockLost(err) {
		reply.LockLost = true
	}
	_ = conn.WriteJSON(reply)
}

func logSession(action, kind, username, request string) {
	applog.Info(nil, action, fiber.Map{"kind": kind, "user": username, "request": request})
}
