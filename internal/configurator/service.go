package configurator

import (
	"context"
	"errors"
	"fmt"

	"gastronomia-be/internal/logger"
	"gastronomia-be/internal/metrics"
	"gastronomia-be/internal/orderline"
	"gastronomia-be/internal/selection"
	"gastronomia-be/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BeginInput struct {
	ProductID         int64                        `json:"productId"`
	Quantity          int                          `json:"quantity"`
	InitialSelections [][]selection.SelectedOption `json:"initialSelections,omitempty"`
}

type ConfirmInput struct {
	SessionID    string  `json:"-"`
	OrderID      int64   `json:"orderId"`
	OrderItemIDs []int64 `json:"orderItemIds,omitempty"`
	Comment      string  `json:"comment,omitempty"`
}

type Service interface {
	Begin(ctx context.Context, in BeginInput) (*SessionView, error)
	BeginBrowsing(ctx context.Context) (*SessionView, error)
	Get(ctx context.Context, id string) (*SessionView, error)
	AddItem(ctx context.Context, id string, productID int64) (*SessionView, error)
	RemoveItem(ctx context.Context, id string, index int) (*SessionView, error)
	SelectOption(ctx context.Context, id string, optionID int64) (*SessionView, error)
	SelectTab(ctx context.Context, id string, index int) (*SessionView, error)
	ClickNode(ctx context.Context, id string, itemIndex int, path selection.Path) (*SessionView, error)
	BrowseCatalog(ctx context.Context, id string) (*SessionView, error)
	RemoveOption(ctx context.Context, id string, itemIndex int, path selection.Path) (*SessionView, error)
	ToggleExpanded(ctx context.Context, id string, itemIndex int, path selection.Path) (*SessionView, error)
	Confirm(ctx context.Context, in ConfirmInput) (*orderline.Result, error)
	Cancel(ctx context.Context, id string) error
	Stats() Stats
}

type Stats struct {
	Live      int    `json:"live"`
	Started   uint64 `json:"started"`
	Confirmed uint64 `json:"confirmed"`
	Rejected  uint64 `json:"rejected"`
}

type service struct {
	catalog Catalog
	store   *Store
	orders  orderline.Service

	started   metrics.Counter
	confirmed metrics.Counter
	rejected  metrics.Counter
}

func NewService(cat Catalog, store *Store, orders orderline.Service) Service {
	return &service{
		catalog: cat,
		store:   store,
		orders:  orders,
	}
}

func (s *service) Begin(ctx context.Context, in BeginInput) (*SessionView, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Begin"),
		zap.Int64("product_id", in.ProductID),
		zap.Int("quantity", in.Quantity),
	)

	if in.Quantity < 1 {
		log.Warn("invalid quantity")
		return nil, ErrInvalidQuantity
	}
	product, err := s.catalog.GetProduct(ctx, in.ProductID)
	if err != nil {
		log.Warn("failed to load product", zap.Error(err))
		return nil, err
	}

	if len(in.InitialSelections) > in.Quantity {
		log.Warn("more selection trees than copies", zap.Int("trees", len(in.InitialSelections)))
		return nil, fmt.Errorf("%w: %d trees for %d copies", ErrInvalidSelection, len(in.InitialSelections), in.Quantity)
	}
	initial := make([][]selection.SelectedOption, len(in.InitialSelections))
	for i, tree := range in.InitialSelections {
		if initial[i], err = ResolveSelections(ctx, s.catalog, product, tree); err != nil {
			log.Warn("rejected initial selections", zap.Int("copy", i), zap.Error(err))
			return nil, err
		}
	}

	sess, err := Begin(ctx, s.catalog, product, in.Quantity, initial)
	if err != nil {
		return nil, err
	}
	id := s.register(ctx, sess)

	log.Info("session started",
		zap.String("session_id", id),
		zap.Bool("edit_mode", sess.EditMode()),
	)
	return viewOf(id, sess), nil
}

func (s *service) BeginBrowsing(ctx context.Context) (*SessionView, error) {
	sess := BeginBrowsing(s.catalog)
	id := s.register(ctx, sess)

	logger.FromCtx(ctx).Info("browsing session started",
		zap.String("layer", "service"),
		zap.String("session_id", id),
	)
	return viewOf(id, sess), nil
}

func (s *service) register(ctx context.Context, sess *Session) string {
	id := uuid.NewString()
	owner, _ := utils.GetUserIDFromContext(ctx)
	s.store.Put(id, sess, owner)
	s.started.Inc()
	return id
}

// mutate runs fn on session id and returns the resulting view.
func (s *service) mutate(ctx context.Context, id string, fn func(*Session) error) (*SessionView, error) {
	owner, _ := utils.GetUserIDFromContext(ctx)
	var view *SessionView
	err := s.store.With(id, owner, func(sess *Session) error {
		if err := fn(sess); err != nil {
			return err
		}
		view = viewOf(id, sess)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) Get(ctx context.Context, id string) (*SessionView, error) {
	return s.mutate(ctx, id, func(*Session) error { return nil })
}

func (s *service) AddItem(ctx context.Context, id string, productID int64) (*SessionView, error) {
	ctx = logger.WithSessionID(ctx, id)
	return s.mutate(ctx, id, func(sess *Session) error {
		added, err := sess.AddItem(ctx, productID)
		if err != nil {
			logger.FromCtx(ctx).Warn("failed to add item",
				zap.String("layer", "service"),
				zap.Int64("product_id", productID),
				zap.Error(err),
			)
			return err
		}
		if !added {
			return ErrEditModeRestricted
		}
		return nil
	})
}

func (s *service) RemoveItem(ctx context.Context, id string, index int) (*SessionView, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		if sess.Closed() {
			return ErrSessionClosed
		}
		if sess.EditMode() {
			return ErrEditModeRestricted
		}
		if !sess.RemoveItem(index) {
			return ErrNodeNotFound
		}
		return nil
	})
}

func (s *service) SelectOption(ctx context.Context, id string, optionID int64) (*SessionView, error) {
	ctx = logger.WithSessionID(ctx, id)
	return s.mutate(ctx, id, func(sess *Session) error {
		if sess.Closed() {
			return ErrSessionClosed
		}
		opt, ok := sess.FindOption(optionID)
		if !ok {
			return ErrOptionNotAvailable
		}
		applied, err := sess.SelectOption(ctx, opt)
		if err != nil {
			return err
		}
		if !applied {
			logger.FromCtx(ctx).Debug("selection ignored at capacity",
				zap.String("layer", "service"),
				zap.Int64("option_id", optionID),
			)
		}
		return nil
	})
}

func (s *service) SelectTab(ctx context.Context, id string, index int) (*SessionView, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		if sess.Closed() {
			return ErrSessionClosed
		}
		if !sess.SelectTab(index) {
			return ErrOptionNotAvailable
		}
		return nil
	})
}

func (s *service) ClickNode(ctx context.Context, id string, itemIndex int, path selection.Path) (*SessionView, error) {
	ctx = logger.WithSessionID(ctx, id)
	return s.mutate(ctx, id, func(sess *Session) error {
		return sess.ClickNode(ctx, itemIndex, path)
	})
}

func (s *service) BrowseCatalog(ctx context.Context, id string) (*SessionView, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		if sess.Closed() {
			return ErrSessionClosed
		}
		if !sess.BrowseCatalog() {
			return ErrEditModeRestricted
		}
		return nil
	})
}

func (s *service) RemoveOption(ctx context.Context, id string, itemIndex int, path selection.Path) (*SessionView, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		if sess.Closed() {
			return ErrSessionClosed
		}
		if !sess.RemoveOption(itemIndex, path) {
			return ErrNodeNotFound
		}
		return nil
	})
}

func (s *service) ToggleExpanded(ctx context.Context, id string, itemIndex int, path selection.Path) (*SessionView, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		if !sess.ToggleExpanded(itemIndex, path) {
			return ErrNodeNotFound
		}
		return nil
	})
}

// Confirm closes the session and submits one order line per copy. The
// session stays open when it is incomplete or the order input is rejected,
// so the user can fix either and retry.
func (s *service) Confirm(ctx context.Context, in ConfirmInput) (*orderline.Result, error) {
	ctx = logger.WithSessionID(ctx, in.SessionID)
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Confirm"),
	)
	timer := metrics.StartTimer()
	owner, _ := utils.GetUserIDFromContext(ctx)

	submit := orderline.SubmitInput{
		OrderID:      in.OrderID,
		Comment:      in.Comment,
		OrderItemIDs: in.OrderItemIDs,
	}
	err := s.store.With(in.SessionID, owner, func(sess *Session) error {
		if sess.Closed() {
			return ErrSessionClosed
		}
		if violations := sess.Violations(); len(violations) > 0 {
			return &ValidationError{Violations: violations}
		}

		items := sess.Items()
		submit.Copies = make([]orderline.Copy, len(items))
		for i, it := range items {
			submit.Copies[i] = orderline.Copy{ProductID: it.Product.ID, Selections: it.Selections}
		}
		// Bad order input must not end the session.
		if err := submit.Validate(); err != nil {
			return err
		}

		_, err := sess.Confirm()
		return err
	})
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			s.rejected.Inc()
			log.Info("confirm rejected", zap.Int("violations", len(verr.Violations)))
		}
		return nil, err
	}

	res, err := s.orders.SubmitAll(ctx, submit)
	if err != nil {
		log.Error("failed to submit order lines", zap.Error(err))
		return res, err
	}

	s.confirmed.Inc()
	log.Info("session confirmed",
		zap.Int("copies", len(submit.Copies)),
		zap.Duration("duration", timer.Duration()),
	)
	return res, nil
}

func (s *service) Cancel(ctx context.Context, id string) error {
	owner, _ := utils.GetUserIDFromContext(ctx)
	return s.store.With(id, owner, func(sess *Session) error {
		return sess.Cancel()
	})
}

func (s *service) Stats() Stats {
	return Stats{
		Live:      s.store.Len(),
		Started:   s.started.Load(),
		Confirmed: s.confirmed.Load(),
		Rejected:  s.rejected.Load(),
	}
}

func viewOf(id string, sess *Session) *SessionView {
	v := sess.View()
	v.ID = id
	return &v
}
