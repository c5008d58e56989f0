package ws

import (
	"sync/atomic"
	"time"

	"pickhub/internal/domain"
	"pickhub/internal/scan"
	"pickhub/internal/services"
)

// scanCooldown suppresses duplicate counts when the camera decodes the same
// barcode on consecutive frames.
const scanCooldown = time.Second

type progressReply struct {
	Type    string                `json:"type"` // "update"
	Outcome *services.ScanOutcome `json:"outcome"`
}

type manualScanReply struct {
	Type      string                `json:"type"` // "manual_scan"
	Detection Detection             `json:"detection"`
	Outcome   *services.ScanOutcome `json:"outcome,omitempty"`
}

// PickerSession fulfils one bound request. It only opens while the caller
// holds the pick lock; once the lock is lost the session turns read-only and
// every write is answered with a lock-lost error.
type PickerSession struct {
	session
	name    string
	upcSet  map[string]struct{}
	lastHit map[string]time.Time

	// lockLost is atomic: the status-change goroutine sets it while the
	// read loop checks it.
	lockLost atomic.Bool
	unsub    func()
	changes  <-chan domain.StatusChange
}

// NewPickerSession binds to a request. The request must be in_progress and
// locked by the caller.
func NewPickerSession(deps Deps, conn Conn, user *domain.User, name string) (*PickerSession, error) {
	req, err := deps.Lifecycle.Get(name)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.StatusInProgress {
		return nil, domain.ErrInvalidTransition(req.Status, domain.StatusInProgress)
	}
	if !req.LockedBy(user.ID) {
		return nil, domain.ErrLockHeld(req.PickedBy)
	}

	s := &PickerSession{
		session: session{deps: deps, conn: conn, user: user},
		name:    req.Name,
		upcSet:  req.UPCSet(),
		lastHit: make(map[string]time.Time),
	}
	s.live = deps.Registry.Register(services.KindPicker, user.Username, req.Name, func() { _ = conn.Close() })
	s.changes, s.unsub = deps.Lifecycle.Subscribe()
	return s, nil
}

// Run drives the session. A separate goroutine forwards status changes for
// the bound request so the picker learns immediately when an admin or the
// janitor pulls the lock.
func (s *PickerSession) Run() {
	defer s.close()
	defer s.unsub()
	logSession("ws.picker.open", services.KindPicker, s.user.Username, s.name)
	defer logSession("ws.picker.close", services.KindPicker, s.user.Username, s.name)

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case change := <-s.changes:
				s.onChange(change)
			case <-done:
				return
			}
		}
	}()

	s.sendStatus()
	for {
		var msg Inbound
		if err := s.conn.ReadJSON(&msg); err != nil {
			return
		}
		s.touch()
		if !s.Handle(msg) {
			return
		}
	}
}

func (s *PickerSession) onChange(change domain.StatusChange) {
	if change.Name != s.name {
		return
	}
	switch {
	case change.New == domain.StatusPending:
		// The lock was released out from under us.
		s.lockLost.Store(true)
		s.sendErr(domain.ErrLockLost())
	case change.New.Terminal():
		// Finished or cancelled elsewhere; the lock is gone either way.
		s.lockLost.Store(true)
	}
	s.send(statusChanged{Type: ReplyStatusChanged, Name: change.Name, Status: change.New})
}

// Handle processes one message; false ends the session.
func (s *PickerSession) Handle(msg Inbound) bool {
	switch msg.Type {
	case MsgFrame:
		s.frame(msg.Frame)
	case MsgManualScan:
		s.manualScan(msg.UPC)
	case MsgManualUpdate:
		s.manualUpdate(msg.UPC, msg.Quantity)
	case MsgGetStatus:
		s.sendStatus()
	case MsgStop:
		return false
	default:
		s.sendErr(domain.ErrInvalidInput("unknown message type: " + msg.Type))
	}
	return true
}

func (s *PickerSession) scope() scan.Scope {
	return scan.Scope{Picker: true, RequestUPCs: s.upcSet}
}

// allowHit rate-limits counting per UPC; identification is never limited.
func (s *PickerSession) allowHit(upc string) bool {
	now := time.Now()
	if last, ok := s.lastHit[upc]; ok && now.Sub(last) < scanCooldown {
		return false
	}
	s.lastHit[upc] = now
	return true
}

// frame resolves every decoded code and counts each one that lands on a
// request line, exact and wildcard reads alike. The client always gets the
// full detection list for drawing overlays, whether or not a count was
// applied.
func (s *PickerSession) frame(codes []string) {
	detections := make([]Detection, 0, len(codes))
	var outcomes []*services.ScanOutcome
	for _, code := range codes {
		res, err := s.deps.Matcher.Resolve(code, s.scope())
		if err != nil {
			continue
		}
		detections = append(detections, detectionOf(code, res))
		if !res.Found || !res.InRequest || s.lockLost.Load() || !s.allowHit(res.Product.UPC) {
			continue
		}
		out, err := s.deps.Lifecycle.ApplyScan(s.user, s.name, res.Product.UPC)
		if err != nil {
			if domain.IsLockLost(err) {
				s.lockLost.Store(true)
			}
			s.sendErr(err)
			continue
		}
		outcomes = append(outcomes, out)
	}
	s.send(frameReply{Type: ReplyDetection, Detections: detections})
	for _, out := range outcomes {
		s.send(progressReply{Type: ReplyUpdate, Outcome: out})
	}
}

// manualScan is keyboard entry of a single code. The reply carries the
// detection always and the applied outcome only when the scan counted.
func (s *PickerSession) manualScan(code string) {
	if s.lockLost.Load() {
		s.sendErr(domain.ErrLockLost())
		return
	}
	res, err := s.deps.Matcher.Resolve(code, s.scope())
	if err != nil {
		s.sendErr(err)
		return
	}
	reply := manualScanReply{Type: ReplyManualScan, Detection: detectionOf(code, res)}
	if !res.Found || !res.InRequest || !s.allowHit(res.Product.UPC) {
		s.send(reply)
		return
	}
	out, err := s.deps.Lifecycle.ApplyScan(s.user, s.name, res.Product.UPC)
	if err != nil {
		if domain.IsLockLost(err) {
			s.lockLost.Store(true)
		}
		s.send(reply)
		s.sendErr(err)
		return
	}
	reply.Outcome = out
	s.send(reply)
}

// manualUpdate sets a line's picked quantity directly (bulk entry or fixing
// a miscount).
func (s *PickerSession) manualUpdate(upc string, qty int) {
	if s.lockLost.Load() {
		s.sendErr(domain.ErrLockLost())
		return
	}
	out, err := s.deps.Lifecycle.SetItemQty(s.user, s.name, upc, qty)
	if err != nil {
		if domain.IsLockLost(err) {
			s.lockLost.Store(true)
		}
		s.sendErr(err)
		return
	}
	s.send(progressReply{Type: ReplyUpdate, Outcome: out})
}

func (s *PickerSession) sendStatus() {
	req, err := s.deps.Lifecycle.Get(s.name)
	if err != nil {
		s.sendErr(err)
		return
	}
	s.send(statusSnapshot{Type: ReplyStatus, Request: req})
}
