package ws

import (
	"testing"

	"pickhub/internal/domain"
	"pickhub/internal/scan"
)

func newRequesterUnderTest(t *testing.T) (*RequesterSession, *fakeConn) {
	t.Helper()
	e := newEnv(t)
	conn := &fakeConn{}
	return NewRequesterSession(e.deps, conn, e.requester), conn
}

func TestRequesterLookupAddsToCart(t *testing.T) {
	s, conn := newRequesterUnderTest(t)

	s.Handle(Inbound{Type: MsgLookupUPC, UPC: "012345678905"})
	reply, ok := conn.out[0].(lookupReply)
	if !ok || reply.Detection.Color != scan.ColorBlue || reply.Detection.Product.Name != "Oat Digestives" {
		t.Fatalf("lookup reply: %+v", conn.out[0])
	}
	// A resolved lookup lands in the cart with quantity 1.
	cart, ok := conn.last(t).(cartReply)
	if !ok || len(cart.Items) != 1 || cart.Items[0].Quantity != 1 {
		t.Fatalf("cart after lookup: %+v", conn.last(t))
	}

	conn.reset()
	s.Handle(Inbound{Type: MsgLookupUPC, UPC: "999999999999"})
	reply = conn.last(t).(lookupReply)
	if reply.Detection.Found || reply.Detection.Color != scan.ColorGray {
		t.Fatalf("miss should be gray and stay out of the cart: %+v", reply)
	}
}

func TestRequesterInit(t *testing.T) {
	s, conn := newRequesterUnderTest(t)

	s.Handle(Inbound{Type: MsgInit})
	reply, ok := conn.last(t).(initReply)
	if !ok || len(reply.Categories) == 0 {
		t.Fatalf("init reply: %+v", conn.last(t))
	}
	if subs := reply.Categories["ambient"]; len(subs) != 1 || subs[0] != "Biscuits" {
		t.Fatalf("categories: %+v", reply.Categories)
	}
}

func TestRequesterFrameSkipsMalformedCodes(t *testing.T) {
	s, conn := newRequesterUnderTest(t)

	s.Handle(Inbound{Type: MsgFrame, Frame: []string{"012345678905", "bad code!", "X036000291452X"}})
	reply := conn.last(t).(frameReply)
	if len(reply.Detections) != 2 {
		t.Fatalf("want 2 detections, got %+v", reply.Detections)
	}
	if reply.Detections[0].Color != scan.ColorBlue || reply.Detections[1].Color != scan.ColorOrange {
		t.Fatalf("colors wrong: %+v", reply.Detections)
	}
}

func TestRequesterCartFlow(t *testing.T) {
	s, conn := newRequesterUnderTest(t)

	s.Handle(Inbound{Type: MsgAddItem, UPC: "012345678905", Quantity: 2})
	s.Handle(Inbound{Type: MsgAddItem, UPC: "012345678905", Quantity: 1}) // merges
	s.Handle(Inbound{Type: MsgAddItem, UPC: "036000291452", Quantity: 5})
	cart := conn.last(t).(cartReply)
	if len(cart.Items) != 2 || cart.Items[0].Quantity != 3 || cart.Total != 8 {
		t.Fatalf("cart after adds: %+v", cart)
	}

	s.Handle(Inbound{Type: MsgUpdateQty, UPC: "036000291452", Quantity: 1})
	s.Handle(Inbound{Type: MsgRemoveItem, UPC: "012345678905"})
	cart = conn.last(t).(cartReply)
	if len(cart.Items) != 1 || cart.Items[0].UPC != "036000291452" || cart.Total != 1 {
		t.Fatalf("cart after edits: %+v", cart)
	}

	conn.reset()
	s.Handle(Inbound{Type: MsgAddItem, UPC: "000000000000", Quantity: 1})
	if e := conn.last(t).(errorReply); e.Code != domain.CodeNotFound {
		t.Fatalf("unknown product: %+v", e)
	}

	s.Handle(Inbound{Type: MsgClearCart})
	if cart := conn.last(t).(cartReply); len(cart.Items) != 0 {
		t.Fatalf("clear failed: %+v", cart)
	}
}

func TestRequesterSubmit(t *testing.T) {
	s, conn := newRequesterUnderTest(t)

	s.Handle(Inbound{Type: MsgSubmit, Name: "emptycart"})
	if e := conn.last(t).(errorReply); e.Code != domain.CodeInvalidInput {
		t.Fatalf("empty cart submit: %+v", e)
	}

	s.Handle(Inbound{Type: MsgAddItem, UPC: "012345678905", Quantity: 2})
	conn.reset()
	s.Handle(Inbound{Type: MsgSubmit, Name: "BadName!", Priority: "high"})
	if e := conn.last(t).(errorReply); e.Code != domain.CodeInvalidInput {
		t.Fatalf("bad name submit: %+v", e)
	}
	// The cart survives a failed submit so the client can rename and retry.
	if s.cart.Empty() {
		t.Fatal("cart should survive failed submit")
	}

	conn.reset()
	s.Handle(Inbound{Type: MsgSubmit, Name: "Restock-7", Priority: "high", Notes: "dock 3"})
	reply := conn.last(t).(submittedReply)
	if reply.RequestName != "restock-7" || reply.Request.Status != domain.StatusPending {
		t.Fatalf("submit reply: %+v", reply.Request)
	}
	if !s.cart.Empty() {
		t.Fatal("cart should clear after successful submit")
	}

	if _, err := s.deps.Lifecycle.Get("restock-7"); err != nil {
		t.Fatalf("request not persisted: %v", err)
	}
}
