package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
	"github.com/angelmondragon/shopora-backend/pkg/logger"
	"github.com/angelmondragon/shopora-backend/pkg/metrics"
	"github.com/angelmondragon/shopora-backend/pkg/pricing"
	"github.com/angelmondragon/shopora-backend/pkg/types"
)

// Service exposes the authenticated cart plus guest pricing and reconciliation.
//
// Each mutation is one read of the user's cart followed by one write. Two concurrent
// requests against the same cart are not serialized here, so the later write wins.
// Stock is checked at read time without reservation, which means parallel adds can
// together exceed stock; order placement re-checks and decrements stock atomically.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartDTO, error)
	UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	Merge(ctx context.Context, userID uuid.UUID, guest []types.GuestLine) (*MergeResult, error)
	Quote(ctx context.Context, guest []types.GuestLine) (*MergeResult, error)
}

type service struct {
	repo    CartRepository
	catalog ProductCatalog
	engine  *Engine
	policy  pricing.Policy
	metrics *metrics.CartMetrics
	logg    *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, catalog ProductCatalog, policy pricing.Policy, cartMetrics *metrics.CartMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	engine, err := NewEngine(catalog)
	if err != nil {
		return nil, err
	}
	return &service{
		repo:    repo,
		catalog: catalog,
		engine:  engine,
		policy:  policy,
		metrics: cartMetrics,
		logg:    logg,
	}, nil
}

type mutation func(ctx context.Context, lines types.CartLines) (types.CartLines, error)

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	lines, err := s.repo.LoadCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, lines)
}

func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartDTO, error) {
	return s.mutate(ctx, "add_item", userID, func(ctx context.Context, lines types.CartLines) (types.CartLines, error) {
		return s.engine.AddItem(ctx, lines, productID, quantity)
	})
}

func (s *service) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartDTO, error) {
	return s.mutate(ctx, "update_item", userID, func(ctx context.Context, lines types.CartLines) (types.CartLines, error) {
		return s.engine.UpdateItem(ctx, lines, productID, quantity)
	})
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error) {
	return s.mutate(ctx, "remove_item", userID, func(ctx context.Context, lines types.CartLines) (types.CartLines, error) {
		return s.engine.RemoveItem(ctx, lines, productID)
	})
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	return s.mutate(ctx, "clear", userID, s.engine.Clear)
}

// mutate loads the cart, applies op and saves the result. Nothing is written when op fails.
func (s *service) mutate(ctx context.Context, operation string, userID uuid.UUID, op mutation) (*CartDTO, error) {
	lines, err := s.repo.LoadCart(ctx, userID)
	if err != nil {
		s.metrics.ObserveOperation(operation, outcomeOf(err))
		return nil, err
	}
	next, err := op(ctx, lines)
	if err != nil {
		s.metrics.ObserveOperation(operation, outcomeOf(err))
		return nil, err
	}
	if err := s.repo.SaveCart(ctx, userID, next); err != nil {
		s.metrics.ObserveOperation(operation, outcomeOf(err))
		return nil, err
	}
	s.metrics.ObserveOperation(operation, metrics.OutcomeSuccess)
	return s.populate(ctx, next)
}

// populate joins the lines with current catalog data and prices them.
func (s *service) populate(ctx context.Context, lines types.CartLines) (*CartDTO, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart products")
	}

	dto := &CartDTO{Items: make([]CartItemDTO, 0, len(lines))}
	priced := make([]pricing.Line, 0, len(lines))
	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			dto.Unavailable = append(dto.Unavailable, line.ProductID)
			continue
		}
		priceLine := pricing.Line{UnitPrice: product.Price, Quantity: line.Quantity}
		priced = append(priced, priceLine)
		dto.Items = append(dto.Items, CartItemDTO{
			ProductID:    product.ID,
			Name:         product.Name,
			Image:        product.Image,
			Price:        product.Price,
			CountInStock: product.CountInStock,
			Quantity:     line.Quantity,
			LineTotal:    priceLine.Total(),
		})
		dto.ItemCount += line.Quantity
	}

	totals := s.policy.Calculate(priced)
	dto.Totals = totals.Rounded
	dto.Working = totals.Working
	return dto, nil
}

func outcomeOf(err error) string {
	if code, ok := pkgerrors.CodeOf(err); ok {
		return string(code)
	}
	return metrics.OutcomeFailure
}
