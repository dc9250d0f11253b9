package orderline

import (
	"context"

	"gastronomia-be/internal/logger"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Service interface {
	SubmitAll(ctx context.Context, in SubmitInput) (*Result, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// SubmitAll persists every copy independently. Copies that fail are listed
// in Result.Failed and their errors are combined; the others stay stored.
func (s *service) SubmitAll(ctx context.Context, in SubmitInput) (*Result, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "SubmitAll"),
		zap.Int64("order_id", in.OrderID),
		zap.Int("copies", len(in.Copies)),
	)

	if err := in.Validate(); err != nil {
		return nil, err
	}
	editing := len(in.OrderItemIDs) > 0

	res := &Result{OrderItemIDs: make([]int64, 0, len(in.Copies))}
	var errs error
	for i, req := range NewRequests(in.Copies, in.Comment) {
		if editing {
			if err := s.repo.ReplaceSelections(ctx, in.OrderItemIDs[i], req); err != nil {
				errs = multierr.Append(errs, err)
				res.Failed = append(res.Failed, i)
				continue
			}
			res.OrderItemIDs = append(res.OrderItemIDs, in.OrderItemIDs[i])
			continue
		}

		id, err := s.repo.CreateOrderItem(ctx, in.OrderID, req)
		if err != nil {
			errs = multierr.Append(errs, err)
			res.Failed = append(res.Failed, i)
			continue
		}
		res.OrderItemIDs = append(res.OrderItemIDs, id)
	}

	if errs != nil {
		log.Warn("some copies failed to submit",
			zap.Ints("failed", res.Failed),
			zap.Error(errs),
		)
		return res, errs
	}

	log.Info("all copies submitted", zap.Int64s("order_item_ids", res.OrderItemIDs))
	return res, nil
}
