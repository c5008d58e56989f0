package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session kinds, one per live connection flavor.
const (
	KindRequester = "requester"
	KindPicker    = "picker"
	KindScanner   = "scanner"
)

// LiveSession is one connected client as the registry tracks it. Closer is
// set by the transport layer; the janitor calls it to drop idle connections.
type LiveSession struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	Username string    `json:"username"`
	Request  string    `json:"request,omitempty"`
	Started  time.Time `json:"started"`

	lastSeen time.Time
	Closer   func() `json:"-"`
}

// Registry tracks every live session so dashboards can see who is connected
// and the janitor can evict idle ones.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*LiveSession
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*LiveSession)}
}

func (r *Registry) Register(kind, username, request string, closer func()) *LiveSession {
	s := &LiveSession{
		ID:       uuid.NewString(),
		Kind:     kind,
		Username: username,
		Request:  request,
		Started:  time.Now(),
		lastSeen: time.Now(),
		Closer:   closer,
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Touch marks activity on a session; untouched sessions age toward eviction.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	if s, ok := r.sessions[id]; ok {
		s.lastSeen = time.Now()
	}
	r.mu.Unlock()
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Snapshot returns a copy of the live sessions for the admin view.
func (r *Registry) Snapshot() []LiveSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LiveSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s)
	}
	return out
}

// PickersOn reports how many picker sessions are bound to a request name.
func (r *Registry) PickersOn(request string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sessions {
		if s.Kind == KindPicker && s.Request == request {
			n++
		}
	}
	return n
}

// CloseIdle closes and removes sessions idle longer than maxIdle. Closers run
// outside the lock; a closer that blocks must not stall the registry.
func (r *Registry) CloseIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	var victims []*LiveSession
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			victims = append(victims, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()
	for _, s := range victims {
		if s.Closer != nil {
			s.Closer()
		}
	}
	return len(victims)
}
