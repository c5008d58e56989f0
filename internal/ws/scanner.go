package ws

import (
	"strings"

	"pickhub/internal/catalog"
	"pickhub/internal/domain"
	"pickhub/internal/scan"
	"pickhub/internal/services"
)

// Scanner session modes set by the init message. In upc-only mode frames are
// matched as raw UPCs with no name queries; query mode filters to the
// products the init message asked for.
const (
	ScannerModeUPC   = "upc"
	ScannerModeQuery = "query"
)

// ScannerSession is the free-standing identification tool: no request, no
// cart, just "what is this barcode" against an optional target set.
type ScannerSession struct {
	session
	mode    string
	targets map[string]struct{} // UPCs the init queries selected; empty = all
}

func NewScannerSession(deps Deps, conn Conn, user *domain.User) *ScannerSession {
	s := &ScannerSession{
		session: session{deps: deps, conn: conn, user: user},
		mode:    ScannerModeUPC,
	}
	s.live = deps.Registry.Register(services.KindScanner, user.Username, "", func() { _ = conn.Close() })
	return s
}

func (s *ScannerSession) Run() {
	defer s.close()
	logSession("ws.scanner.open", services.KindScanner, s.user.Username, "")
	defer logSession("ws.scanner.close", services.KindScanner, s.user.Username, "")

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

func (s *ScannerSession) Handle(msg Inbound) bool {
	switch msg.Type {
	case MsgInit:
		s.init(msg)
	case MsgFrame:
		s.frame(msg.Frame)
	case MsgLookupUPC:
		s.lookup(msg.UPC)
	case MsgStop:
		return false
	default:
		s.sendErr(domain.ErrInvalidInput("unknown message type: " + msg.Type))
	}
	return true
}

// init resolves the session's target set: name queries and category filters
// select the products whose UPCs subsequent frames are matched against.
func (s *ScannerSession) init(msg Inbound) {
	if msg.Mode == ScannerModeQuery {
		s.mode = ScannerModeQuery
	} else {
		s.mode = ScannerModeUPC
	}

	ix := s.deps.Matcher.Catalog.Current()
	var matched []domain.Product
	if len(msg.Queries) == 0 && msg.MainCategory == "" && msg.Subcategory == "" {
		s.targets = nil // no filter: every catalog product is a target
	} else {
		seen := make(map[string]struct{})
		for _, q := range msg.Queries {
			q = strings.TrimSpace(q)
			if q == "" {
				continue
			}
			if p, ok := ix.LookupExact(q); ok {
				if _, dup := seen[p.UPC]; !dup {
					seen[p.UPC] = struct{}{}
					matched = append(matched, p)
				}
				continue
			}
			if p, ok := ix.LookupName(q); ok {
				if _, dup := seen[p.UPC]; !dup {
					seen[p.UPC] = struct{}{}
					matched = append(matched, p)
				}
				continue
			}
			for _, p := range ix.Find(catalogFilter(msg, q)) {
				if _, dup := seen[p.UPC]; !dup {
					seen[p.UPC] = struct{}{}
					matched = append(matched, p)
				}
			}
		}
		if len(msg.Queries) == 0 {
			for _, p := range ix.Find(catalogFilter(msg, "")) {
				if _, dup := seen[p.UPC]; !dup {
					seen[p.UPC] = struct{}{}
					matched = append(matched, p)
				}
			}
		}
		s.targets = seen
	}
	s.send(initReply{Type: ReplyInit, Products: matched})
}

func (s *ScannerSession) lookup(code string) {
	res, err := s.deps.Matcher.Resolve(code, scan.Scope{})
	if err != nil {
		s.sendErr(err)
		return
	}
	s.send(lookupReply{Type: ReplyLookupResult, InputCode: code, Detection: s.recolor(code, res)})
}

func (s *ScannerSession) frame(codes []string) {
	detections := make([]Detection, 0, len(codes))
	for _, code := range codes {
		res, err := s.deps.Matcher.Resolve(code, scan.Scope{})
		if err != nil {
			continue
		}
		detections = append(detections, s.recolor(code, res))
	}
	s.send(frameReply{Type: ReplyDetection, Detections: detections})
}

// recolor applies the scanner palette: green for an exact hit inside the
// target set, orange for fuzzy, gray otherwise.
func (s *ScannerSession) recolor(code string, res scan.Result) Detection {
	d := detectionOf(code, res)
	if !res.Found {
		return d
	}
	inTargets := s.targets == nil
	if !inTargets {
		_, inTargets = s.targets[res.Product.UPC]
	}
	switch {
	case res.MatchType == scan.MatchFuzzy:
		d.Color = scan.ColorOrange
	case inTargets:
		d.Color = scan.ColorGreen
	default:
		d.Color = scan.ColorGray
	}
	return d
}

func catalogFilter(msg Inbound, query string) catalog.Filter {
	return catalog.Filter{
		MainCategory: msg.MainCategory,
		Subcategory:  msg.Subcategory,
		Query:        query,
	}
}
