package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gastronomia-be/internal/logger"

	"go.uber.org/zap"
)

// Repository is the remote catalog backing the Cache.
type Repository interface {
	// FetchProduct returns the product with shallow groups (no options).
	FetchProduct(ctx context.Context, id int64) (*Product, error)
	// FetchGroupWithOptions returns the group with its options loaded.
	FetchGroupWithOptions(ctx context.Context, id int64) (*ProductGroup, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const (
	queryProduct = `
		SELECT id, name, price, composition_type
		FROM products
		WHERE id = $1 AND deleted_at IS NULL
	`

	queryProductGroups = `
		SELECT g.id, g.name, g.min_quantity, g.max_quantity
		FROM product_group_assignments pga
		JOIN product_groups g ON g.id = pga.product_group_id
		WHERE pga.product_id = $1
		ORDER BY pga.position, g.id
	`

	queryGroup = `
		SELECT id, name, min_quantity, max_quantity
		FROM product_groups
		WHERE id = $1
	`

	queryGroupOptions = `
		SELECT o.id, o.product_id, p.name, o.max_quantity, o.price_increase
		FROM product_options o
		JOIN products p ON p.id = o.product_id
		WHERE o.product_group_id = $1 AND p.deleted_at IS NULL
		ORDER BY o.position, o.id
	`
)

func (r *repository) FetchProduct(ctx context.Context, id int64) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "FetchProduct"),
		zap.Int64("product_id", id),
	)
	start := time.Now()

	p := &Product{}
	var composition string
	err := r.db.QueryRowContext(ctx, queryProduct, id).Scan(
		&p.ID,
		&p.Name,
		&p.Price,
		&composition,
	)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("product not found")
		return nil, ErrProductNotFound
	}
	if err != nil {
		log.Error("failed to query product", zap.Error(err))
		return nil, fmt.Errorf("query product: %w", err)
	}
	p.CompositionType = CompositionType(composition)

	rows, err := r.db.QueryContext(ctx, queryProductGroups, id)
	if err != nil {
		log.Error("failed to query product groups", zap.Error(err))
		return nil, fmt.Errorf("query product groups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var g ProductGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.MinQuantity, &g.MaxQuantity); err != nil {
			return nil, fmt.Errorf("scan product group: %w", err)
		}
		p.ProductGroups = append(p.ProductGroups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product groups: %w", err)
	}

	log.Debug("product fetched",
		zap.Int("groups", len(p.ProductGroups)),
		zap.Duration("duration", time.Since(start)),
	)
	return p, nil
}

func (r *repository) FetchGroupWithOptions(ctx context.Context, id int64) (*ProductGroup, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "FetchGroupWithOptions"),
		zap.Int64("group_id", id),
	)

	g := &ProductGroup{}
	err := r.db.QueryRowContext(ctx, queryGroup, id).Scan(
		&g.ID,
		&g.Name,
		&g.MinQuantity,
		&g.MaxQuantity,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		log.Error("failed to query group", zap.Error(err))
		return nil, fmt.Errorf("query group: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, queryGroupOptions, id)
	if err != nil {
		log.Error("failed to query group options", zap.Error(err))
		return nil, fmt.Errorf("query group options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o ProductOption
		if err := rows.Scan(&o.ID, &o.ProductID, &o.ProductName, &o.MaxQuantity, &o.PriceIncrease); err != nil {
			return nil, fmt.Errorf("scan group option: %w", err)
		}
		g.Options = append(g.Options, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group options: %w", err)
	}

	log.Debug("group fetched", zap.Int("options", len(g.Options)))
	return g, nil
}
