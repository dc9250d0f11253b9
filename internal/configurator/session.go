package configurator

import (
	"context"
	"sync"
	"sync/atomic"

	"gastronomia-be/internal/catalog"
	"gastronomia-be/internal/selection"
)

type ContextType string

const (
	ContextCategory ContextType = "category"
	ContextOption   ContextType = "option"
)

// NavContext is where the editor currently is. A nil OptionPath means the
// root groups of the item's product.
type NavContext struct {
	Type       ContextType    `json:"type"`
	ItemIndex  int            `json:"itemIndex"`
	OptionPath selection.Path `json:"optionPath,omitempty"`
}

// ItemContext is one copy of the product being configured.
type ItemContext struct {
	Product    *catalog.Product           `json:"product"`
	Selections []selection.SelectedOption `json:"selections"`
}

// Price is the product's base price plus every selected option's increase
// times its quantity, at every depth.
func (it ItemContext) Price() float64 {
	total := 0.0
	if it.Product != nil {
		total = it.Product.Price
	}
	selection.Walk(it.Selections, func(_ selection.Path, node selection.SelectedOption) bool {
		total += node.ProductOption.PriceIncrease * float64(node.Quantity)
		return true
	})
	return total
}

type nodeKey struct {
	item int
	path string
}

// Session is the in-memory editing buffer for N copies of one product. It
// must not be driven from more than one goroutine at a time; only the
// catalog hydration callback runs concurrently and it touches nothing but
// atomic and sync fields.
type Session struct {
	catalog Catalog

	items       []ItemContext
	current     NavContext
	activeGroup int
	editMode    bool
	closed      bool

	expanded     map[nodeKey]struct{}
	autoExpanded map[nodeKey]struct{}

	// product ids referenced by selections whose groups must be hydrated
	// once the product itself arrives
	watched sync.Map
	// watched product ids whose last fetch failed
	failed sync.Map

	revision    atomic.Uint64
	unsubscribe func()
}

func newSession(cat Catalog) *Session {
	s := &Session{
		catalog:      cat,
		expanded:     make(map[nodeKey]struct{}),
		autoExpanded: make(map[nodeKey]struct{}),
	}
	s.unsubscribe = cat.Subscribe(s.onHydrated)
	return s
}

// Begin opens a session configuring quantity copies of product. When
// initialSelectionsPerCopy holds at least one non-empty tree the session is
// in edit mode. The trees are taken as given; callers holding
// untrusted trees run them through ResolveSelections first.
func Begin(
	ctx context.Context,
	cat Catalog,
	product *catalog.Product,
	quantity int,
	initialSelectionsPerCopy [][]selection.SelectedOption,
) (*Session, error) {
	if product == nil {
		return nil, ErrProductRequired
	}
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	s := newSession(cat)
	s.items = make([]ItemContext, quantity)
	for i := range s.items {
		sels := []selection.SelectedOption{}
		if i < len(initialSelectionsPerCopy) && len(initialSelectionsPerCopy[i]) > 0 {
			sels = selection.Clone(initialSelectionsPerCopy[i])
			s.editMode = true
		}
		s.items[i] = ItemContext{Product: product, Selections: sels}
	}
	s.current = NavContext{Type: ContextOption, ItemIndex: 0}

	cat.HydrateGroups(product.GroupIDs()...)
	s.hydrateTrees()

	return s, nil
}

// BeginBrowsing opens an empty session positioned on the catalog, where
// base products are added with AddItem.
func BeginBrowsing(cat Catalog) *Session {
	s := newSession(cat)
	s.items = []ItemContext{}
	s.current = NavContext{Type: ContextCategory}
	return s
}

// hydrateTrees requests every product referenced by the current selections
// and the groups of those already cached.
func (s *Session) hydrateTrees() {
	for _, item := range s.items {
		selection.Walk(item.Selections, func(_ selection.Path, node selection.SelectedOption) bool {
			s.hydrateOptionProduct(node.ProductOption.ProductID)
			return true
		})
	}
}

func (s *Session) hydrateOptionProduct(productID int64) {
	if p, ok := s.catalog.CachedProduct(productID); ok {
		if p.IsConfigurable() {
			s.catalog.HydrateGroups(p.GroupIDs()...)
		}
		return
	}
	s.watched.Store(productID, struct{}{})
	s.catalog.HydrateProducts(productID)
}

// onHydrated runs on the cache's goroutines.
func (s *Session) onHydrated(ev catalog.Event) {
	s.revision.Add(1)
	if ev.Err != nil {
		if _, ok := s.watched.Load(ev.ID); ok && ev.Kind == catalog.KindProduct {
			s.failed.Store(ev.ID, struct{}{})
		}
		return
	}

	switch ev.Kind {
	case catalog.KindProduct:
		s.failed.Delete(ev.ID)
		if _, ok := s.watched.LoadAndDelete(ev.ID); !ok {
			return
		}
		if p, ok := s.catalog.CachedProduct(ev.ID); ok && p.IsConfigurable() {
			s.catalog.HydrateGroups(p.GroupIDs()...)
		}
	case catalog.KindGroup:
		// Option products decide whether selecting them descends.
		if g, ok := s.catalog.CachedGroup(ev.ID); ok {
			ids := make([]int64, 0, len(g.Options))
			for _, o := range g.Options {
				ids = append(ids, o.ProductID)
			}
			s.catalog.HydrateProducts(ids...)
		}
	}
}

// hydrationFailed reports whether productID is still missing after a failed
// fetch. Such a node cannot be proven complete.
func (s *Session) hydrationFailed(productID int64) bool {
	if _, failed := s.failed.Load(productID); !failed {
		return false
	}
	_, cached := s.catalog.CachedProduct(productID)
	return !cached
}

// Revision increases whenever catalog data the session may depend on
// arrives. Hosts compare it to decide when to re-render.
func (s *Session) Revision() uint64 {
	return s.revision.Load()
}

func (s *Session) EditMode() bool {
	return s.editMode
}

func (s *Session) Closed() bool {
	return s.closed
}

func (s *Session) Context() NavContext {
	c := s.current
	if c.OptionPath != nil {
		c.OptionPath = append(selection.Path{}, c.OptionPath...)
	}
	return c
}

func (s *Session) ActiveGroup() int {
	return s.activeGroup
}

// Items returns a deep copy of the items being configured.
func (s *Session) Items() []ItemContext {
	out := make([]ItemContext, len(s.items))
	for i, it := range s.items {
		out[i] = ItemContext{Product: it.Product, Selections: selection.Clone(it.Selections)}
	}
	return out
}

func (s *Session) Len() int {
	return len(s.items)
}

// Price returns the price of item itemIndex, 0 when out of range.
func (s *Session) Price(itemIndex int) float64 {
	if !s.validItem(itemIndex) {
		return 0
	}
	return s.items[itemIndex].Price()
}

func (s *Session) Total() float64 {
	total := 0.0
	for _, it := range s.items {
		total += it.Price()
	}
	return total
}

// Confirm ends the session and returns one selection tree per copy. It
// fails with a *ValidationError while any group is unsatisfied.
func (s *Session) Confirm() ([][]selection.SelectedOption, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if violations := s.Violations(); len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	out := make([][]selection.SelectedOption, len(s.items))
	for i, it := range s.items {
		out[i] = selection.Clone(it.Selections)
	}
	s.close()
	return out, nil
}

// Cancel ends the session discarding every selection.
func (s *Session) Cancel() error {
	if s.closed {
		return ErrSessionClosed
	}
	s.close()
	return nil
}

func (s *Session) close() {
	s.closed = true
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *Session) validItem(i int) bool {
	return i >= 0 && i < len(s.items)
}
