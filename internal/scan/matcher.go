// Package scan resolves raw scanned barcodes against the product catalog and
// assigns the visual feedback color shown to the scanning client.
package scan

import (
	"pickhub/internal/catalog"
	"pickhub/internal/domain"
	"pickhub/internal/validate"
)

// Feedback colors drawn around a detected barcode.
const (
	ColorGreen  = "green"  // picker: resolved UPC is in the bound request
	ColorRed    = "red"    // picker: unknown code or UPC not in the request
	ColorBlue   = "blue"   // requester: exact catalog match
	ColorGray   = "gray"   // requester: no catalog match
	ColorOrange = "orange" // wildcard/substring match only
	ColorYellow = "yellow" // looks like a UPC but no catalog is loaded
)

const (
	MatchExact = "exact"
	MatchFuzzy = "fuzzy"
)

// Scope carries the session context that colors a resolution. For picker
// sessions RequestUPCs is the bound request's UPC set; membership is checked
// against the canonical (resolved) UPC only.
type Scope struct {
	Picker      bool
	RequestUPCs map[string]struct{}
}

type Result struct {
	Found      bool
	Product    domain.Product
	MatchType  string
	InRequest  bool
	Color      string
	Candidates []domain.Product
}

// Matcher is constructed with an explicit catalog handle; there is no
// process-wide catalog, so tests build isolated ones.
type Matcher struct {
	Catalog *catalog.Store
}

func New(store *catalog.Store) *Matcher { return &Matcher{Catalog: store} }

// Resolve maps a raw scanned string to at most one product. Malformed input
// is rejected before any lookup so it can never mutate session state.
func (m *Matcher) Resolve(raw string, scope Scope) (Result, error) {
	code, ok := validate.ScannedCode(raw)
	if !ok {
		return Result{}, domain.ErrInvalidInput("invalid scan: code must be non-empty and alphanumeric")
	}

	ix := m.Catalog.Current()
	if ix.Empty() {
		if validate.UPCPattern(code) {
			return Result{Color: ColorYellow}, nil
		}
		return Result{Color: missColor(scope)}, nil
	}

	if p, exact := ix.LookupExact(code); exact {
		res := Result{Found: true, Product: p, MatchType: MatchExact, Candidates: []domain.Product{p}}
		res.InRequest = inRequest(scope, p.UPC)
		res.Color = hitColor(scope, res.InRequest, MatchExact)
		return res, nil
	}

	best, found, candidates := ix.LookupFuzzy(code)
	if !found {
		return Result{Color: missColor(scope)}, nil
	}
	res := Result{Found: true, Product: best, MatchType: MatchFuzzy, Candidates: candidates}
	res.InRequest = inRequest(scope, best.UPC)
	res.Color = ColorOrange
	return res, nil
}

func inRequest(scope Scope, upc string) bool {
	if !scope.Picker {
		return false
	}
	_, ok := scope.RequestUPCs[upc]
	return ok
}

func missColor(scope Scope) string {
	if scope.Picker {
		return ColorRed
	}
	return ColorGray
}

func hitColor(scope Scope, inReq bool, matchType string) string {
	if matchType == MatchFuzzy {
		return ColorOrange
	}
	if scope.Picker {
		if inReq {
			return ColorGreen
		}
		return ColorRed
	}
	return ColorBlue
}
