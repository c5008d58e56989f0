package ws

import (
	"pickhub/internal/domain"
	"pickhub/internal/scan"
	"pickhub/internal/services"
)

// RequesterSession serves the create-request flow: the client scans or looks
// up products, builds a cart, and submits it as a new pick request.
type RequesterSession struct {
	session
	cart Cart
}

func NewRequesterSession(deps Deps, conn Conn, user *domain.User) *RequesterSession {
	s := &RequesterSession{session: session{deps: deps, conn: conn, user: user}}
	s.live = deps.Registry.Register(services.KindRequester, user.Username, "", func() { _ = conn.Close() })
	return s
}

// Run drives the session until the client stops or the connection drops.
func (s *RequesterSession) Run() {
	defer s.close()
	logSession("ws.requester.open", services.KindRequester, s.user.Username, "")
	defer logSession("ws.requester.close", services.KindRequester, s.user.Username, "")

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

// Handle processes one message; false means the session should end. Split
// from Run so tests can feed messages directly.
func (s *RequesterSession) Handle(msg Inbound) bool {
	switch msg.Type {
	case MsgInit:
		s.send(initReply{
			Type:       ReplyInit,
			Categories: s.deps.Lifecycle.Catalog.Current().Categories(),
			Cart:       s.cart.Items(),
		})
	case MsgLookupUPC:
		s.lookup(msg.UPC)
	case MsgFrame:
		s.frame(msg.Frame)
	case MsgAddItem:
		s.addItem(msg.UPC, msg.Quantity)
	case MsgRemoveItem:
		if err := s.cart.Remove(msg.UPC); err != nil {
			s.sendErr(err)
		} else {
			s.sendCart()
		}
	case MsgUpdateQty:
		if err := s.cart.SetQuantity(msg.UPC, msg.Quantity); err != nil {
			s.sendErr(err)
		} else {
			s.sendCart()
		}
	case MsgGetCart:
		s.sendCart()
	case MsgClearCart:
		s.cart.Clear()
		s.sendCart()
	case MsgSubmit:
		s.submit(msg)
	case MsgStop:
		return false
	default:
		s.sendErr(domain.ErrInvalidInput("unknown message type: " + msg.Type))
	}
	return true
}

func (s *RequesterSession) scope() scan.Scope { return scan.Scope{} }

// lookup is manual code entry: a resolved product goes straight into the
// cart with quantity 1, so scanning down a shelf needs no extra clicks.
func (s *RequesterSession) lookup(code string) {
	res, err := s.deps.Matcher.Resolve(code, s.scope())
	if err != nil {
		s.sendErr(err)
		return
	}
	s.send(lookupReply{Type: ReplyLookupResult, InputCode: code, Detection: detectionOf(code, res)})
	if !res.Found {
		return
	}
	if err := s.cart.Add(res.Product, 1); err != nil {
		s.sendErr(err)
		return
	}
	s.sendCart()
}

func (s *RequesterSession) frame(codes []string) {
	detections := make([]Detection, 0, len(codes))
	for _, code := range codes {
		res, err := s.deps.Matcher.Resolve(code, s.scope())
		if err != nil {
			continue // skip malformed codes inside a frame
		}
		detections = append(detections, detectionOf(code, res))
	}
	s.send(frameReply{Type: ReplyDetection, Detections: detections})
}

func (s *RequesterSession) addItem(upc string, qty int) {
	p, found := s.deps.Lifecycle.Catalog.Current().LookupExact(upc)
	if !found {
		s.sendErr(domain.ErrNotFound("product " + upc))
		return
	}
	if err := s.cart.Add(p, qty); err != nil {
		s.sendErr(err)
		return
	}
	s.sendCart()
}

func (s *RequesterSession) sendCart() {
	s.send(cartReply{Type: ReplyCartUpdated, Items: s.cart.Items(), Total: s.cart.TotalQuantity()})
}

func (s *RequesterSession) submit(msg Inbound) {
	if s.cart.Empty() {
		s.sendErr(domain.ErrInvalidInput("cart is empty"))
		return
	}
	specs := make([]services.ItemSpec, 0, len(s.cart.Items()))
	for _, it := range s.cart.Items() {
		specs = append(specs, services.ItemSpec{UPC: it.UPC, Qty: it.Quantity})
	}
	req, err := s.deps.Lifecycle.Create(s.user, msg.Name, specs, msg.Priority, msg.Notes)
	if err != nil {
		s.sendErr(err) // cart survives so the client can rename and retry
		return
	}
	s.cart.Clear()
	s.send(submittedReply{Type: ReplySubmitted, RequestName: req.Name, Request: req})
}
