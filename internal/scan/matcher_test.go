package scan

import (
	"testing"

	"pickhub/internal/catalog"
	"pickhub/internal/domain"
)

func testMatcher() *Matcher {
	ix := catalog.New([]domain.Product{
		{UPC: "012345678905", Name: "Oat Digestives"},
		{UPC: "036000291452", Name: "Ginger Snaps"},
	})
	return New(catalog.NewStoreOf(ix))
}

func pickerScope(upcs ...string) Scope {
	set := make(map[string]struct{}, len(upcs))
	for _, u := range upcs {
		set[u] = struct{}{}
	}
	return Scope{Picker: true, RequestUPCs: set}
}

func TestResolvePickerColors(t *testing.T) {
	m := testMatcher()
	scope := pickerScope("012345678905")

	res, err := m.Resolve("012345678905", scope)
	if err != nil || res.Color != ColorGreen || !res.InRequest {
		t.Fatalf("in-request exact: want green, got %+v err=%v", res, err)
	}

	res, _ = m.Resolve("036000291452", scope)
	if res.Color != ColorRed || res.InRequest {
		t.Fatalf("out-of-request exact: want red, got %+v", res)
	}

	res, _ = m.Resolve("999999999999", scope)
	if res.Found || res.Color != ColorRed {
		t.Fatalf("picker miss: want red, got %+v", res)
	}
}

func TestResolveRequesterColors(t *testing.T) {
	m := testMatcher()

	res, _ := m.Resolve("012345678905", Scope{})
	if res.Color != ColorBlue || res.MatchType != MatchExact {
		t.Fatalf("requester exact: want blue, got %+v", res)
	}

	res, _ = m.Resolve("999999999999", Scope{})
	if res.Found || res.Color != ColorGray {
		t.Fatalf("requester miss: want gray, got %+v", res)
	}
}

func TestResolveFuzzyIsOrangeForEveryone(t *testing.T) {
	m := testMatcher()

	res, _ := m.Resolve("X012345678905Y", pickerScope("012345678905"))
	if res.Color != ColorOrange || res.MatchType != MatchFuzzy || !res.InRequest {
		t.Fatalf("picker fuzzy: want orange in-request, got %+v", res)
	}

	res, _ = m.Resolve("X012345678905Y", Scope{})
	if res.Color != ColorOrange {
		t.Fatalf("requester fuzzy: want orange, got %+v", res)
	}
}

func TestResolveEmptyCatalog(t *testing.T) {
	m := New(catalog.NewStoreOf(catalog.New(nil)))

	// UPC-shaped code against an empty catalog is flagged yellow so the
	// operator knows the catalog, not the scan, is the problem.
	res, err := m.Resolve("012345678905", Scope{})
	if err != nil || res.Color != ColorYellow {
		t.Fatalf("want yellow, got %+v err=%v", res, err)
	}

	res, _ = m.Resolve("not-a-upc", pickerScope())
	if res.Color != ColorRed {
		t.Fatalf("non-UPC miss on picker: want red, got %+v", res)
	}
}

func TestResolveRejectsMalformedInput(t *testing.T) {
	m := testMatcher()
	for _, bad := range []string{"", "   ", "code with space"} {
		if _, err := m.Resolve(bad, Scope{}); domain.CodeOf(err) != domain.CodeInvalidInput {
			t.Errorf("Resolve(%q): want INVALID_INPUT, got %v", bad, err)
		}
	}
}
