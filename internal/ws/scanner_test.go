package ws

import (
	"testing"

	"pickhub/internal/catalog"
	"pickhub/internal/scan"
)

func newScannerUnderTest(t *testing.T) (*ScannerSession, *fakeConn) {
	t.Helper()
	e := newEnv(t)
	conn := &fakeConn{}
	return NewScannerSession(e.deps, conn, e.picker), conn
}

func TestScannerUnfilteredFramesAreGreen(t *testing.T) {
	s, conn := newScannerUnderTest(t)

	s.Handle(Inbound{Type: MsgInit})
	if matched := conn.last(t).(initReply); len(matched.Products) != 0 {
		t.Fatalf("unfiltered init matches nothing explicitly: %+v", matched)
	}

	s.Handle(Inbound{Type: MsgFrame, Frame: []string{"012345678905", "999999999999"}})
	frame := conn.last(t).(frameReply)
	if frame.Detections[0].Color != scan.ColorGreen {
		t.Fatalf("catalog hit should be green: %+v", frame.Detections[0])
	}
	if frame.Detections[1].Found || frame.Detections[1].Color != scan.ColorGray {
		t.Fatalf("miss should be gray: %+v", frame.Detections[1])
	}
}

func TestScannerQueryModeTargets(t *testing.T) {
	s, conn := newScannerUnderTest(t)

	s.Handle(Inbound{Type: MsgInit, Mode: ScannerModeQuery, Queries: []string{"ginger"}})
	matched := conn.last(t).(initReply)
	if len(matched.Products) != 1 || matched.Products[0].Name != "Ginger Snaps" {
		t.Fatalf("query init: %+v", matched.Products)
	}

	s.Handle(Inbound{Type: MsgFrame, Frame: []string{"036000291452", "012345678905"}})
	frame := conn.last(t).(frameReply)
	if frame.Detections[0].Color != scan.ColorGreen {
		t.Fatalf("target hit should be green: %+v", frame.Detections[0])
	}
	// Known product outside the target set identifies but stays gray.
	if frame.Detections[1].Color != scan.ColorGray || !frame.Detections[1].Found {
		t.Fatalf("non-target hit: %+v", frame.Detections[1])
	}
}

func TestScannerQueryExactNameSelectsOneProduct(t *testing.T) {
	s, conn := newScannerUnderTest(t)

	// An exact product name picks that product alone, no substring spill.
	s.Handle(Inbound{Type: MsgInit, Mode: ScannerModeQuery, Queries: []string{"Oat Digestives"}})
	matched := conn.last(t).(initReply)
	if len(matched.Products) != 1 || matched.Products[0].UPC != "012345678905" {
		t.Fatalf("exact name init: %+v", matched.Products)
	}
}

func TestScannerFuzzyStaysOrange(t *testing.T) {
	s, conn := newScannerUnderTest(t)
	s.Handle(Inbound{Type: MsgInit, Queries: []string{"012345678905"}})

	s.Handle(Inbound{Type: MsgFrame, Frame: []string{"X012345678905Y"}})
	frame := conn.last(t).(frameReply)
	if frame.Detections[0].Color != scan.ColorOrange || frame.Detections[0].MatchType != scan.MatchFuzzy {
		t.Fatalf("fuzzy detection: %+v", frame.Detections[0])
	}
}

func TestScannerYellowOnEmptyCatalog(t *testing.T) {
	e := newEnv(t)
	e.deps.Matcher = scan.New(catalog.NewStoreOf(catalog.New(nil)))
	conn := &fakeConn{}
	s := NewScannerSession(e.deps, conn, e.picker)

	s.Handle(Inbound{Type: MsgLookupUPC, UPC: "012345678905"})
	reply := conn.last(t).(lookupReply)
	if reply.Detection.Color != scan.ColorYellow {
		t.Fatalf("UPC against empty catalog: %+v", reply.Detection)
	}
}
