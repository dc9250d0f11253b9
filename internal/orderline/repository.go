package orderline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gastronomia-be/internal/logger"
	"gastronomia-be/internal/selection"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	CreateOrderItem(ctx context.Context, orderID int64, req Request) (int64, error)
	ReplaceSelections(ctx context.Context, orderItemID int64, req Request) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const (
	insertOrderItem = `
		INSERT INTO order_items (order_id, product_id, quantity, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	updateOrderItem = `
		UPDATE order_items
		SET comment = $2, updated_at = NOW()
		WHERE id = $1`

	deleteSelections = `DELETE FROM order_item_selections WHERE order_item_id = $1`

	insertSelection = `
		INSERT INTO order_item_selections (order_item_id, parent_id, product_option_id, quantity)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
)

// CreateOrderItem stores one line and its whole selection tree in a single
// transaction.
func (r *repository) CreateOrderItem(ctx context.Context, orderID int64, req Request) (int64, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrderItem"),
		zap.Int64("order_id", orderID),
		zap.Int64("product_id", req.ProductID),
	)

	var itemID int64
	err := r.inTx(ctx, log, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, insertOrderItem,
			orderID, req.ProductID, req.Quantity, req.Comment,
		).Scan(&itemID)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
		return insertLines(ctx, tx, itemID, sql.NullInt64{}, req.Selections)
	})
	if err != nil {
		return 0, translate(err)
	}

	log.Info("order item created", zap.Int64("order_item_id", itemID))
	return itemID, nil
}

// ReplaceSelections swaps the stored tree of an existing line.
func (r *repository) ReplaceSelections(ctx context.Context, orderItemID int64, req Request) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ReplaceSelections"),
		zap.Int64("order_item_id", orderItemID),
	)

	err := r.inTx(ctx, log, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, updateOrderItem, orderItemID, req.Comment)
		if err != nil {
			return fmt.Errorf("update order item: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrOrderItemNotFound
		}
		if _, err := tx.ExecContext(ctx, deleteSelections, orderItemID); err != nil {
			return fmt.Errorf("delete selections: %w", err)
		}
		return insertLines(ctx, tx, orderItemID, sql.NullInt64{}, req.Selections)
	})
	if err != nil {
		return translate(err)
	}

	log.Info("order item selections replaced")
	return nil
}

func (r *repository) inTx(ctx context.Context, log *zap.Logger, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	if err := fn(tx); err != nil {
		log.Error("transaction failed", zap.Error(err))
		return err
	}
	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction", zap.Error(err))
		return err
	}
	committed = true
	return nil
}

// insertLines writes lines depth first so every child row can reference its
// parent's id.
func insertLines(ctx context.Context, tx *sql.Tx, itemID int64, parent sql.NullInt64, lines []selection.Line) error {
	for _, line := range lines {
		var id int64
		err := tx.QueryRowContext(ctx, insertSelection,
			itemID, parent, line.ProductOptionID, line.Quantity,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert selection %d: %w", line.ProductOptionID, err)
		}
		if err := insertLines(ctx, tx, itemID, sql.NullInt64{Int64: id, Valid: true}, line.SelectedOptions); err != nil {
			return err
		}
	}
	return nil
}

func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
		return fmt.Errorf("%w: %s", ErrProductNotFound, pqErr.Constraint)
	}
	return err
}
