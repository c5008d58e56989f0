// Package catalog holds the in-memory product index: exact UPC lookup,
// wildcard (substring) UPC matching, and category-scoped filtering.
//
// The index is immutable once built; Reload builds a fresh index and swaps
// the pointer, so concurrent readers never observe a half-built structure.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"pickhub/internal/domain"
)

// Index is a read-only view over the product set.
type Index struct {
	products   []domain.Product
	byUPC      map[string]domain.Product
	byName     map[string]domain.Product
	categories map[string][]string // main category -> sorted subcategories
}

// New builds an index from a product slice. Later duplicates of a UPC are
// ignored so every UPC appears exactly once.
func New(products []domain.Product) *Index {
	ix := &Index{
		byUPC:      make(map[string]domain.Product, len(products)),
		byName:     make(map[string]domain.Product, len(products)),
		categories: make(map[string][]string),
	}
	subcats := make(map[string]map[string]struct{})
	for _, p := range products {
		if p.UPC == "" {
			continue
		}
		if _, dup := ix.byUPC[p.UPC]; dup {
			continue
		}
		ix.byUPC[p.UPC] = p
		ix.byName[strings.ToLower(p.Name)] = p
		ix.products = append(ix.products, p)
		if p.MainCategory != "" {
			if subcats[p.MainCategory] == nil {
				subcats[p.MainCategory] = make(map[string]struct{})
			}
			subcats[p.MainCategory][p.Subcategory] = struct{}{}
		}
	}
	for main, subs := range subcats {
		for sub := range subs {
			ix.categories[main] = append(ix.categories[main], sub)
		}
		sort.Strings(ix.categories[main])
	}
	return ix
}

// Load reads the nested products file:
//
//	{"ambient": {"Biscuits": [{"name": "...", "upc": "..."}, ...]}, ...}
func Load(path string) (*Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tree map[string]map[string][]struct {
		Name string          `json:"name"`
		UPC  json.RawMessage `json:"upc"`
	}
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("products file %s: %w", path, err)
	}
	var products []domain.Product
	for main, subs := range tree {
		for sub, entries := range subs {
			for _, e := range entries {
				upc := strings.Trim(string(e.UPC), `"`)
				if e.Name == "" || upc == "" {
					continue
				}
				products = append(products, domain.Product{
					UPC:          upc,
					Name:         e.Name,
					MainCategory: main,
					Subcategory:  sub,
				})
			}
		}
	}
	return New(products), nil
}

func (ix *Index) Size() int   { return len(ix.products) }
func (ix *Index) Empty() bool { return len(ix.products) == 0 }

func (ix *Index) LookupExact(code string) (domain.Product, bool) {
	p, ok := ix.byUPC[code]
	return p, ok
}

func (ix *Index) LookupName(name string) (domain.Product, bool) {
	p, ok := ix.byName[strings.ToLower(name)]
	return p, ok
}

// LookupFuzzy resolves a scanned code: exact match first, then wildcard
// matching where either the stored UPC is a substring of the code (scanner
// prepended check digits or packaging noise) or the code is a substring of
// the stored UPC (truncated read). The longest stored UPC wins; ties break
// to the lexicographically lowest UPC for determinism.
func (ix *Index) LookupFuzzy(code string) (best domain.Product, found bool, candidates []domain.Product) {
	if p, ok := ix.byUPC[code]; ok {
		return p, true, []domain.Product{p}
	}
	for upc, p := range ix.byUPC {
		if strings.Contains(code, upc) || strings.Contains(upc, code) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return domain.Product{}, false, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if len(candidates[i].UPC) != len(candidates[j].UPC) {
			return len(candidates[i].UPC) > len(candidates[j].UPC)
		}
		return candidates[i].UPC < candidates[j].UPC
	})
	return candidates[0], true, candidates
}

type Filter struct {
	MainCategory string
	Subcategory  string
	Query        string // case-insensitive match on name or UPC substring
}

func (ix *Index) Find(f Filter) []domain.Product {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	var out []domain.Product
	for _, p := range ix.products {
		if f.MainCategory != "" && p.MainCategory != f.MainCategory {
			continue
		}
		if f.Subcategory != "" && p.Subcategory != f.Subcategory {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(p.UPC, q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Categories maps each main category to its subcategories (for UI filters).
func (ix *Index) Categories() map[string][]string {
	out := make(map[string][]string, len(ix.categories))
	for main, subs := range ix.categories {
		out[main] = append([]string(nil), subs...)
	}
	return out
}

func (ix *Index) Products() []domain.Product {
	return append([]domain.Product(nil), ix.products...)
}

// Store is the shared handle sessions and handlers read through. Reload
// replaces the whole index atomically.
type Store struct {
	path string
	ix   atomic.Pointer[Index]
}

func NewStore(path string) (*Store, error) {
	ix, err := Load(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path}
	s.ix.Store(ix)
	return s, nil
}

// NewStoreOf wraps a pre-built index; used by tests to construct isolated
// catalogs without a file.
func NewStoreOf(ix *Index) *Store {
	s := &Store{}
	s.ix.Store(ix)
	return s
}

func (s *Store) Current() *Index { return s.ix.Load() }

func (s *Store) Reload() (int, error) {
	if s.path == "" {
		return s.Current().Size(), nil
	}
	ix, err := Load(s.path)
	if err != nil {
		return 0, err
	}
	s.ix.Store(ix)
	return ix.Size(), nil
}
