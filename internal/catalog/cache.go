package catalog

import (
	"context"
	"strconv"
	"sync"
	"time"

	"gastronomia-be/internal/logger"
	"gastronomia-be/internal/metrics"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const defaultFetchTimeout = 10 * time.Second

// Event is published to subscribers after every background hydration,
// successful or not.
type Event struct {
	Kind Kind
	ID   int64
	Err  error
}

type Options struct {
	// TTL expires entries after the given duration. Zero keeps entries for
	// the lifetime of the cache.
	TTL time.Duration
	// FetchTimeout bounds a single repository fetch.
	FetchTimeout time.Duration
}

type Stats struct {
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`
	Fetches  uint64 `json:"fetches"`
	Failures uint64 `json:"failures"`
	Products int    `json:"products"`
	Groups   int    `json:"groups"`
}

// Cache memoizes products and hydrated groups by id. Concurrent lookups of
// the same missing id share a single repository fetch.
type Cache struct {
	repo     Repository
	products *gocache.Cache
	groups   *gocache.Cache
	flight   singleflight.Group
	timeout  time.Duration

	mu        sync.RWMutex
	listeners map[int]func(Event)
	nextSub   int

	pending sync.WaitGroup

	hits     metrics.Counter
	misses   metrics.Counter
	fetches  metrics.Counter
	failures metrics.Counter
}

func NewCache(repo Repository, opts Options) *Cache {
	ttl, cleanup := gocache.NoExpiration, time.Duration(0)
	if opts.TTL > 0 {
		ttl, cleanup = opts.TTL, opts.TTL*2
	}

	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	return &Cache{
		repo:      repo,
		products:  gocache.New(ttl, cleanup),
		groups:    gocache.New(ttl, cleanup),
		timeout:   timeout,
		listeners: make(map[int]func(Event)),
	}
}

func cacheKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (c *Cache) CachedProduct(id int64) (*Product, bool) {
	if v, ok := c.products.Get(cacheKey(id)); ok {
		return v.(*Product), true
	}
	return nil, false
}

// CachedGroup returns the hydrated group when it has been fetched.
func (c *Cache) CachedGroup(id int64) (*ProductGroup, bool) {
	if v, ok := c.groups.Get(cacheKey(id)); ok {
		return v.(*ProductGroup), true
	}
	return nil, false
}

func (c *Cache) PutProduct(p *Product) {
	c.products.Set(cacheKey(p.ID), p, gocache.DefaultExpiration)
}

func (c *Cache) PutGroup(g *ProductGroup) {
	c.groups.Set(cacheKey(g.ID), g, gocache.DefaultExpiration)
}

func (c *Cache) GetProduct(ctx context.Context, id int64) (*Product, error) {
	if p, ok := c.CachedProduct(id); ok {
		c.hits.Inc()
		return p, nil
	}
	c.misses.Inc()

	v, err := c.load(ctx, KindProduct, id, func(fetchCtx context.Context) (any, error) {
		if p, ok := c.CachedProduct(id); ok {
			return p, nil
		}
		c.fetches.Inc()
		p, err := c.repo.FetchProduct(fetchCtx, id)
		if err != nil {
			return nil, err
		}
		c.PutProduct(p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Product), nil
}

func (c *Cache) GetGroup(ctx context.Context, id int64) (*ProductGroup, error) {
	if g, ok := c.CachedGroup(id); ok {
		c.hits.Inc()
		return g, nil
	}
	c.misses.Inc()

	v, err := c.load(ctx, KindGroup, id, func(fetchCtx context.Context) (any, error) {
		if g, ok := c.CachedGroup(id); ok {
			return g, nil
		}
		c.fetches.Inc()
		g, err := c.repo.FetchGroupWithOptions(fetchCtx, id)
		if err != nil {
			return nil, err
		}
		c.PutGroup(g)
		return g, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ProductGroup), nil
}

// load runs fetch once per key among concurrent callers. The fetch is
// detached from the caller's cancellation so one caller giving up does not
// fail the others; the caller still stops waiting when ctx is done.
func (c *Cache) load(ctx context.Context, kind Kind, id int64, fetch func(context.Context) (any, error)) (any, error) {
	key := string(kind) + ":" + cacheKey(id)

	ch := c.flight.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		v, err := fetch(fetchCtx)
		if err != nil {
			c.failures.Inc()
			return nil, &HydrationError{Kind: kind, ID: id, Err: err}
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// HydrateProducts fetches missing products in the background.
func (c *Cache) HydrateProducts(ids ...int64) {
	for _, id := range ids {
		if _, ok := c.CachedProduct(id); ok {
			continue
		}
		c.spawn(KindProduct, id, func(ctx context.Context) error {
			_, err := c.GetProduct(ctx, id)
			return err
		})
	}
}

// HydrateGroups fetches the options of missing groups in the background.
func (c *Cache) HydrateGroups(ids ...int64) {
	for _, id := range ids {
		if _, ok := c.CachedGroup(id); ok {
			continue
		}
		c.spawn(KindGroup, id, func(ctx context.Context) error {
			_, err := c.GetGroup(ctx, id)
			return err
		})
	}
}

func (c *Cache) spawn(kind Kind, id int64, fn func(context.Context) error) {
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()

		err := fn(context.Background())
		if err != nil {
			logger.L().Warn("catalog hydration failed",
				zap.String("kind", string(kind)),
				zap.Int64("id", id),
				zap.Error(err),
			)
		}
		c.publish(Event{Kind: kind, ID: id, Err: err})
	}()
}

// Wait blocks until every background hydration started so far has finished.
func (c *Cache) Wait() {
	c.pending.Wait()
}

// Subscribe registers fn for hydration events and returns its unsubscribe func.
func (c *Cache) Subscribe(fn func(Event)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Cache) publish(ev Event) {
	c.mu.RLock()
	fns := make([]func(Event), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Fetches:  c.fetches.Load(),
		Failures: c.failures.Load(),
		Products: c.products.ItemCount(),
		Groups:   c.groups.ItemCount(),
	}
}
