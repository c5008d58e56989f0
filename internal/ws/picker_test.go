package ws

import (
	"testing"

	"pickhub/internal/domain"
	"pickhub/internal/scan"
	"pickhub/internal/services"
)

func startedRequest(t *testing.T, e *env, name string) {
	t.Helper()
	if _, err := e.deps.Lifecycle.Create(e.requester, name, []services.ItemSpec{
		{UPC: "012345678905", Qty: 3},
	}, "normal", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.deps.Lifecycle.Start(e.picker, name); err != nil {
		t.Fatalf("start: %v", err)
	}
}

func TestPickerBindRules(t *testing.T) {
	e := newEnv(t)
	conn := &fakeConn{}

	if _, err := NewPickerSession(e.deps, conn, e.picker, "missing"); domain.CodeOf(err) != domain.CodeNotFound {
		t.Fatalf("bind to missing request: %v", err)
	}

	if _, err := e.deps.Lifecycle.Create(e.requester, "unstarted", []services.ItemSpec{
		{UPC: "012345678905", Qty: 1},
	}, "", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := NewPickerSession(e.deps, conn, e.picker, "unstarted"); domain.CodeOf(err) != domain.CodeInvalidTransition {
		t.Fatalf("bind to pending request: %v", err)
	}

	startedRequest(t, e, "taken")
	if _, err := NewPickerSession(e.deps, conn, e.admin, "taken"); domain.CodeOf(err) != domain.CodeLocked {
		t.Fatalf("bind without the lock: %v", err)
	}

	s, err := NewPickerSession(e.deps, conn, e.picker, "taken")
	if err != nil {
		t.Fatalf("holder bind: %v", err)
	}
	defer s.unsub()
	if e.deps.Registry.PickersOn("taken") != 1 {
		t.Fatal("picker session not registered")
	}
}

func TestPickerManualScanAppliesWithCooldown(t *testing.T) {
	e := newEnv(t)
	startedRequest(t, e, "counting")
	conn := &fakeConn{}
	s, err := NewPickerSession(e.deps, conn, e.picker, "counting")
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer s.unsub()

	s.Handle(Inbound{Type: MsgManualScan, UPC: "012345678905"})
	reply, ok := conn.last(t).(manualScanReply)
	if !ok || reply.Outcome == nil || reply.Outcome.PickedQty != 1 || reply.Outcome.Mode != services.ScanModeCount {
		t.Fatalf("first scan: %+v", conn.last(t))
	}

	// Same code inside the cooldown window identifies but does not count.
	conn.reset()
	s.Handle(Inbound{Type: MsgManualScan, UPC: "012345678905"})
	reply = conn.last(t).(manualScanReply)
	if reply.Outcome != nil {
		t.Fatal("cooldown should suppress the second count")
	}
	if reply.Detection.Color != scan.ColorGreen {
		t.Fatalf("identification should still answer: %+v", reply)
	}

	req, _ := e.deps.Lifecycle.Get("counting")
	if req.Items[0].PickedQty != 1 {
		t.Fatalf("picked qty after cooldown: %d", req.Items[0].PickedQty)
	}
}

func TestPickerScanOutsideRequestIsRedAndUncounted(t *testing.T) {
	e := newEnv(t)
	startedRequest(t, e, "strict")
	conn := &fakeConn{}
	s, err := NewPickerSession(e.deps, conn, e.picker, "strict")
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer s.unsub()

	s.Handle(Inbound{Type: MsgManualScan, UPC: "036000291452"})
	reply := conn.last(t).(manualScanReply)
	if reply.Detection.Color != scan.ColorRed || reply.Detection.InRequest || reply.Outcome != nil {
		t.Fatalf("out-of-request scan: %+v", reply)
	}
	req, _ := e.deps.Lifecycle.Get("strict")
	if req.TotalPicked() != 0 {
		t.Fatal("red scan must not count")
	}
}

func TestPickerFrameCountsInRequestOnly(t *testing.T) {
	e := newEnv(t)
	startedRequest(t, e, "frames")
	conn := &fakeConn{}
	s, err := NewPickerSession(e.deps, conn, e.picker, "frames")
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer s.unsub()
	conn.reset()

	s.Handle(Inbound{Type: MsgFrame, Frame: []string{"012345678905", "036000291452", "999999999999"}})

	var frame *frameReply
	progress := 0
	for _, msg := range conn.out {
		switch m := msg.(type) {
		case frameReply:
			frame = &m
		case progressReply:
			progress++
		}
	}
	if frame == nil || len(frame.Detections) != 3 {
		t.Fatalf("frame reply: %+v", conn.out)
	}
	if frame.Detections[0].Color != scan.ColorGreen ||
		frame.Detections[1].Color != scan.ColorRed ||
		frame.Detections[2].Color != scan.ColorRed {
		t.Fatalf("detection colors: %+v", frame.Detections)
	}
	if progress != 1 {
		t.Fatalf("want one count applied, got %d", progress)
	}
}

func TestPickerManualUpdateAndLockLoss(t *testing.T) {
	e := newEnv(t)
	startedRequest(t, e, "updates")
	conn := &fakeConn{}
	s, err := NewPickerSession(e.deps, conn, e.picker, "updates")
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer s.unsub()

	s.Handle(Inbound{Type: MsgManualUpdate, UPC: "012345678905", Quantity: 99})
	prog := conn.last(t).(progressReply)
	if prog.Outcome.PickedQty != 3 { // clamps to requested
		t.Fatalf("clamped update: %+v", prog.Outcome)
	}

	// Admin pulls the lock; the session turns read-only.
	if _, err := e.deps.Lifecycle.ReleaseLock(e.admin, "updates"); err != nil {
		t.Fatalf("release: %v", err)
	}
	conn.reset()
	s.Handle(Inbound{Type: MsgManualUpdate, UPC: "012345678905", Quantity: 1})
	reply := conn.last(t).(errorReply)
	if reply.Code != domain.CodeLocked || !reply.LockLost {
		t.Fatalf("write after lock loss: %+v", reply)
	}
	if !s.lockLost.Load() {
		t.Fatal("session should mark the lock as lost")
	}

	conn.reset()
	s.Handle(Inbound{Type: MsgManualScan, UPC: "012345678905"})
	if reply := conn.last(t).(errorReply); !reply.LockLost {
		t.Fatalf("manual scan after lock loss: %+v", reply)
	}
}

func TestPickerWildcardFrameScanCounts(t *testing.T) {
	e := newEnv(t)
	startedRequest(t, e, "wildcard")
	conn := &fakeConn{}
	s, err := NewPickerSession(e.deps, conn, e.picker, "wildcard")
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer s.unsub()
	conn.reset()

	// Packaging noise around the printed UPC still resolves to the line.
	s.Handle(Inbound{Type: MsgFrame, Frame: []string{"X012345678905Y"}})

	var frame *frameReply
	var prog *progressReply
	for _, msg := range conn.out {
		switch m := msg.(type) {
		case frameReply:
			frame = &m
		case progressReply:
			prog = &m
		}
	}
	if frame == nil || frame.Detections[0].Color != scan.ColorOrange || !frame.Detections[0].InRequest {
		t.Fatalf("wildcard detection: %+v", conn.out)
	}
	if prog == nil || prog.Outcome.PickedQty != 1 {
		t.Fatalf("wildcard scan did not count: %+v", conn.out)
	}
	req, _ := e.deps.Lifecycle.Get("wildcard")
	if req.Items[0].PickedQty != 1 {
		t.Fatalf("picked qty after wildcard scan: %d", req.Items[0].PickedQty)
	}
}

func TestPickerManualWildcardScanCounts(t *testing.T) {
	e := newEnv(t)
	startedRequest(t, e, "wildentry")
	conn := &fakeConn{}
	s, err := NewPickerSession(e.deps, conn, e.picker, "wildentry")
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer s.unsub()

	s.Handle(Inbound{Type: MsgManualScan, UPC: "X012345678905Y"})
	reply := conn.last(t).(manualScanReply)
	if reply.Detection.Color != scan.ColorOrange || reply.Outcome == nil || reply.Outcome.PickedQty != 1 {
		t.Fatalf("manual wildcard scan: %+v", reply)
	}
}

func TestPickerTerminalBroadcastMarksLockLost(t *testing.T) {
	e := newEnv(t)
	startedRequest(t, e, "doomed")
	conn := &fakeConn{}
	s, err := NewPickerSession(e.deps, conn, e.picker, "doomed")
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer s.unsub()
	conn.reset()

	if _, err := e.deps.Lifecycle.Cancel(e.admin, "doomed"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	s.onChange(domain.StatusChange{Name: "doomed", Old: domain.StatusInProgress, New: domain.StatusCancelled})
	if !s.lockLost.Load() {
		t.Fatal("cancelled request should leave the session read-only")
	}
	change := conn.last(t).(statusChanged)
	if change.Status != domain.StatusCancelled {
		t.Fatalf("status broadcast: %+v", change)
	}

	conn.reset()
	s.Handle(Inbound{Type: MsgManualScan, UPC: "012345678905"})
	if reply := conn.last(t).(errorReply); !reply.LockLost {
		t.Fatalf("scan after cancel: %+v", reply)
	}
}

func TestPickerBroadcastConcurrentWithScans(t *testing.T) {
	e := newEnv(t)
	startedRequest(t, e, "busy")
	conn := &fakeConn{}
	s, err := NewPickerSession(e.deps, conn, e.picker, "busy")
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer s.unsub()

	// Mirrors Run's shape: the forwarding goroutine flips the lock flag while
	// the read loop keeps handling scans.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			s.onChange(domain.StatusChange{Name: "busy", Old: domain.StatusInProgress, New: domain.StatusPending})
		}
	}()
	for i := 0; i < 50; i++ {
		s.Handle(Inbound{Type: MsgManualScan, UPC: "012345678905"})
	}
	<-done

	if !s.lockLost.Load() {
		t.Fatal("lock loss broadcast was not observed")
	}
}
