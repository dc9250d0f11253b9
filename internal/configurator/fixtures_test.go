package configurator

import (
	"context"
	"sync"
	"testing"

	"gastronomia-be/internal/catalog"
	"gastronomia-be/internal/selection"
)

// fakeCatalog is a preloaded, synchronous stand-in for *catalog.Cache.
// Hydration requests are only recorded; tests deliver them explicitly.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[int64]*catalog.Product
	groups   map[int64]*catalog.ProductGroup
	// fetchable but not cached yet
	remote map[int64]*catalog.Product

	productRequests []int64
	groupRequests   []int64

	listeners map[int]func(catalog.Event)
	nextSub   int
}

func newFakeCatalog() *fakeCatalog {
	f := &fakeCatalog{
		products:  make(map[int64]*catalog.Product),
		groups:    make(map[int64]*catalog.ProductGroup),
		remote:    make(map[int64]*catalog.Product),
		listeners: make(map[int]func(catalog.Event)),
	}
	for _, p := range []*catalog.Product{
		simpleBurger(), comboBurger(), pizza(), platter(),
		simple(50, "Regular"), simple(51, "Large"), doublePatty(), simple(52, "Bacon"),
		simple(60, "Ketchup"), simple(61, "Mayo"),
		simple(70, "Olives"), simple(71, "Ham"), simple(72, "Corn"),
	} {
		f.products[p.ID] = p
	}
	for _, g := range []catalog.ProductGroup{sizeGroup(), extrasGroup(), sauceGroup(), toppingsGroup(), pairGroup()} {
		f.groups[g.ID] = &g
	}
	return f
}

func (f *fakeCatalog) CachedProduct(id int64) (*catalog.Product, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	return p, ok
}

func (f *fakeCatalog) CachedGroup(id int64) (*catalog.ProductGroup, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[id]
	return g, ok
}

func (f *fakeCatalog) GetProduct(_ context.Context, id int64) (*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.products[id]; ok {
		return p, nil
	}
	if p, ok := f.remote[id]; ok {
		f.products[id] = p
		return p, nil
	}
	return nil, &catalog.HydrationError{Kind: catalog.KindProduct, ID: id, Err: catalog.ErrProductNotFound}
}

func (f *fakeCatalog) GetGroup(_ context.Context, id int64) (*catalog.ProductGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.groups[id]; ok {
		return g, nil
	}
	return nil, &catalog.HydrationError{Kind: catalog.KindGroup, ID: id, Err: catalog.ErrGroupNotFound}
}

func (f *fakeCatalog) HydrateProducts(ids ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if _, ok := f.products[id]; !ok {
			f.productRequests = append(f.productRequests, id)
		}
	}
}

func (f *fakeCatalog) HydrateGroups(ids ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if _, ok := f.groups[id]; !ok {
			f.groupRequests = append(f.groupRequests, id)
		}
	}
}

func (f *fakeCatalog) Subscribe(fn func(catalog.Event)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextSub
	f.nextSub++
	f.listeners[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
	}
}

func (f *fakeCatalog) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func (f *fakeCatalog) publish(ev catalog.Event) {
	f.mu.Lock()
	fns := make([]func(catalog.Event), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// deliverProduct caches p and notifies subscribers as a finished fetch would.
func (f *fakeCatalog) deliverProduct(p *catalog.Product) {
	f.mu.Lock()
	f.products[p.ID] = p
	delete(f.remote, p.ID)
	f.mu.Unlock()
	f.publish(catalog.Event{Kind: catalog.KindProduct, ID: p.ID})
}

func (f *fakeCatalog) deliverGroup(g catalog.ProductGroup) {
	f.mu.Lock()
	f.groups[g.ID] = &g
	f.mu.Unlock()
	f.publish(catalog.Event{Kind: catalog.KindGroup, ID: g.ID})
}

func (f *fakeCatalog) forgetGroup(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.groups, id)
}

// -- Fixtures --

func shallow(g catalog.ProductGroup) catalog.ProductGroup {
	g.Options = nil
	return g
}

func simple(id int64, name string) *catalog.Product {
	return &catalog.Product{ID: id, Name: name, CompositionType: catalog.CompositionSimple}
}

func option(id, productID int64, name string, increase float64, maxQty int) catalog.ProductOption {
	return catalog.ProductOption{
		ID:            id,
		ProductID:     productID,
		ProductName:   name,
		MaxQuantity:   maxQty,
		PriceIncrease: increase,
	}
}

var (
	optRegular = option(100, 50, "Regular", 0, 1)
	optLarge   = option(101, 51, "Large", 10, 1)
	optDouble  = option(102, 53, "Double patty", 15, 1)
	optBacon   = option(110, 52, "Bacon", 3, 1)
	optKetchup = option(200, 60, "Ketchup", 5, 2)
	optMayo    = option(201, 61, "Mayo", 4, 2)
	optOlives  = option(300, 70, "Olives", 1, 2)
	optHam     = option(301, 71, "Ham", 2, 2)
	optCorn    = option(302, 72, "Corn", 1, 2)
	optPairA   = option(400, 60, "Ketchup", 0, 3)
)

// Size: exactly one.
func sizeGroup() catalog.ProductGroup {
	return catalog.ProductGroup{
		ID: 10, Name: "Size", MinQuantity: 1, MaxQuantity: 1,
		Options: []catalog.ProductOption{optRegular, optLarge, optDouble},
	}
}

func extrasGroup() catalog.ProductGroup {
	return catalog.ProductGroup{
		ID: 11, Name: "Extras", MinQuantity: 0, MaxQuantity: 1,
		Options: []catalog.ProductOption{optBacon},
	}
}

func sauceGroup() catalog.ProductGroup {
	return catalog.ProductGroup{
		ID: 20, Name: "Sauce", MinQuantity: 1, MaxQuantity: 2,
		Options: []catalog.ProductOption{optKetchup, optMayo},
	}
}

func toppingsGroup() catalog.ProductGroup {
	return catalog.ProductGroup{
		ID: 30, Name: "Toppings", MinQuantity: 0, MaxQuantity: 3,
		Options: []catalog.ProductOption{optOlives, optHam, optCorn},
	}
}

func pairGroup() catalog.ProductGroup {
	return catalog.ProductGroup{
		ID: 31, Name: "Dips", MinQuantity: 2, MaxQuantity: 3,
		Options: []catalog.ProductOption{optPairA},
	}
}

func simpleBurger() *catalog.Product {
	return &catalog.Product{
		ID: 1, Name: "Burger", Price: 100, CompositionType: catalog.CompositionSelectable,
		ProductGroups: []catalog.ProductGroup{shallow(sizeGroup())},
	}
}

func comboBurger() *catalog.Product {
	return &catalog.Product{
		ID: 2, Name: "Combo burger", Price: 120, CompositionType: catalog.CompositionSelectable,
		ProductGroups: []catalog.ProductGroup{shallow(sizeGroup()), shallow(extrasGroup())},
	}
}

func pizza() *catalog.Product {
	return &catalog.Product{
		ID: 3, Name: "Pizza", Price: 80, CompositionType: catalog.CompositionSelectable,
		ProductGroups: []catalog.ProductGroup{shallow(toppingsGroup())},
	}
}

func platter() *catalog.Product {
	return &catalog.Product{
		ID: 4, Name: "Nacho platter", Price: 60, CompositionType: catalog.CompositionFixedSelectable,
		ProductGroups: []catalog.ProductGroup{shallow(pairGroup())},
	}
}

// doublePatty needs a sauce before it is complete.
func doublePatty() *catalog.Product {
	return &catalog.Product{
		ID: 53, Name: "Double patty", CompositionType: catalog.CompositionSelectable,
		ProductGroups: []catalog.ProductGroup{shallow(sauceGroup())},
	}
}

func node(opt catalog.ProductOption, qty int, children ...selection.SelectedOption) selection.SelectedOption {
	if children == nil {
		children = []selection.SelectedOption{}
	}
	return selection.SelectedOption{ProductOption: opt, Quantity: qty, SelectedOptions: children}
}

func mustBegin(t *testing.T, cat Catalog, p *catalog.Product, qty int, initial ...[]selection.SelectedOption) *Session {
	t.Helper()
	s, err := Begin(context.Background(), cat, p, qty, initial)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return s
}
