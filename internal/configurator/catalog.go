package configurator

import (
	"context"

	"gastronomia-be/internal/catalog"
)

// Catalog is the part of *catalog.Cache the engine depends on.
type Catalog interface {
	CachedProduct(id int64) (*catalog.Product, bool)
	CachedGroup(id int64) (*catalog.ProductGroup, bool)
	GetProduct(ctx context.Context, id int64) (*catalog.Product, error)
	GetGroup(ctx context.Context, id int64) (*catalog.ProductGroup, error)
	HydrateProducts(ids ...int64)
	HydrateGroups(ids ...int64)
	Subscribe(fn func(catalog.Event)) func()
}

var _ Catalog = (*catalog.Cache)(nil)
