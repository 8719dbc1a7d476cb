package order

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/menu-engine/internal/domain/pricing"
	"github.com/xenking/menu-engine/internal/domain/product"
	"github.com/xenking/menu-engine/internal/domain/selection"
	"github.com/xenking/menu-engine/internal/domain/snapshot"
)

const instrumentationName = "github.com/xenking/menu-engine/internal/domain/order"

// LineRequest is one product with its submitted selection.
type LineRequest struct {
	ProductID    string
	Quantity     int
	Selections   selection.Selection
	Instructions string
}

// ComputedPrice is the priced and snapshotted result of one line.
type ComputedPrice struct {
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
	Snapshot   snapshot.OrderLine
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	MerchantID string
	Lines      []LineRequest
}

// ProductRange is the display price range of one product.
type ProductRange struct {
	ProductID string
	Range     pricing.Range
}

// Limits bounds order input. A zero field disables that check.
type Limits struct {
	MaxLines             int
	MaxQuantity          int
	MaxInstructionLength int
}

// Options configures optional Service dependencies.
type Options struct {
	Limits         Limits
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Now            func() time.Time
}

func (o *Options) setDefaults() {
	if o.TracerProvider == nil {
		o.TracerProvider = tracenoop.NewTracerProvider()
	}
	if o.MeterProvider == nil {
		o.MeterProvider = metricnoop.NewMeterProvider()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Service runs the customization pipeline: catalog read, selection
// validation, pricing and snapshotting. It holds no mutable state.
type Service struct {
	products product.Repository
	orders   Repository
	limits   Limits
	now      func() time.Time

	tracer     trace.Tracer
	lines      metric.Int64Counter
	violations metric.Int64Counter
}

// NewService creates an order Service with the required domain dependencies.
func NewService(products product.Repository, orders Repository, opts Options) (*Service, error) {
	opts.setDefaults()

	meter := opts.MeterProvider.Meter(instrumentationName)
	lines, err := meter.Int64Counter("menu.order.lines",
		metric.WithDescription("Order lines priced and snapshotted"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "lines counter")
	}
	violations, err := meter.Int64Counter("menu.order.violations",
		metric.WithDescription("Selection violations reported to callers"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "violations counter")
	}

	return &Service{
		products:   products,
		orders:     orders,
		limits:     opts.Limits,
		now:        opts.Now,
		tracer:     opts.TracerProvider.Tracer(instrumentationName),
		lines:      lines,
		violations: violations,
	}, nil
}

// Quote prices a single line against one catalog read without persisting
// anything.
func (s *Service) Quote(ctx context.Context, req LineRequest) (_ *ComputedPrice, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Quote",
		trace.WithAttributes(attribute.String("product.id", req.ProductID)),
	)
	defer func() { endSpan(span, rerr) }()

	if err := s.checkInput(req); err != nil {
		return nil, err
	}

	p, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, &ProductNotFoundError{ProductID: req.ProductID}
		}
		return nil, errors.Wrap(err, "get product")
	}

	result, err := Price(p, req)
	if err != nil {
		var vs selection.Violations
		if errors.As(err, &vs) {
			s.violations.Add(ctx, int64(len(vs)))
		}
		return nil, err
	}
	return result, nil
}

// PlaceOrder reads every product of the request once, prices every line,
// and persists the order. Fatal input errors stop at the first offending
// line; selection violations are collected across all lines.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(
			attribute.String("merchant.id", req.MerchantID),
			attribute.Int("order.lines", len(req.Lines)),
		),
	)
	defer func() { endSpan(span, rerr) }()

	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}
	if s.limits.MaxLines > 0 && len(req.Lines) > s.limits.MaxLines {
		return nil, ErrTooManyLines
	}

	ids := make([]string, 0, len(req.Lines))
	for i, line := range req.Lines {
		if err := s.checkInput(line); err != nil {
			return nil, &LineError{Index: i, Err: err}
		}
		ids = append(ids, line.ProductID)
	}

	// Single catalog read for the whole request.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]*product.Product, len(fetched))
	for i := range fetched {
		byID[fetched[i].ID] = &fetched[i]
	}

	for i, line := range req.Lines {
		p, ok := byID[line.ProductID]
		if !ok {
			return nil, &LineError{Index: i, Err: &ProductNotFoundError{ProductID: line.ProductID}}
		}
		if !p.Available {
			return nil, &LineError{Index: i, Err: &ProductUnavailableError{ProductID: p.ID}}
		}
		if req.MerchantID != "" && p.MerchantID != req.MerchantID {
			return nil, &LineError{Index: i, Err: &MerchantMismatchError{ProductID: p.ID, MerchantID: req.MerchantID}}
		}
	}

	var (
		lines    = make([]Line, 0, len(req.Lines))
		invalid  []LineViolations
		total    = decimal.Zero
		nInvalid int
	)
	for i, line := range req.Lines {
		result, err := Price(byID[line.ProductID], line)
		if err != nil {
			var vs selection.Violations
			if errors.As(err, &vs) {
				invalid = append(invalid, LineViolations{Index: i, Violations: vs})
				nInvalid += len(vs)
				continue
			}
			return nil, &LineError{Index: i, Err: err}
		}
		lines = append(lines, Line{ID: uuid.New().String(), Line: result.Snapshot})
		total = total.Add(result.TotalPrice)
	}
	if len(invalid) > 0 {
		s.violations.Add(ctx, int64(nInvalid))
		return nil, &ViolationsError{Lines: invalid}
	}

	o := &Order{
		ID:         uuid.New().String(),
		MerchantID: req.MerchantID,
		Lines:      lines,
		Total:      total.Round(2),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	s.lines.Add(ctx, int64(len(lines)), metric.WithAttributes(attribute.String("merchant.id", req.MerchantID)))
	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", o.ID),
		zap.Int("lines", len(lines)),
		zap.String("total", o.Total.StringFixed(2)),
	)

	return o, nil
}

// GetOrder returns a stored order.
func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

// PriceRange returns the display price range of one product.
func (s *Service) PriceRange(ctx context.Context, productID string) (pricing.Range, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return pricing.Range{}, &ProductNotFoundError{ProductID: productID}
		}
		return pricing.Range{}, errors.Wrap(err, "get product")
	}
	return pricing.PriceRange(p), nil
}

// PriceRanges returns the display price ranges of the requested products in
// request order, skipping ids that do not exist.
func (s *Service) PriceRanges(ctx context.Context, productIDs []string) ([]ProductRange, error) {
	fetched, err := s.products.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]*product.Product, len(fetched))
	for i := range fetched {
		byID[fetched[i].ID] = &fetched[i]
	}

	out := make([]ProductRange, 0, len(productIDs))
	for _, id := range productIDs {
		if p, ok := byID[id]; ok {
			out = append(out, ProductRange{ProductID: id, Range: pricing.PriceRange(p)})
		}
	}
	return out, nil
}

// Price runs validation, pricing and snapshotting of one line against an
// already-read product. An unavailable product or a non-positive quantity
// fails before validation; an invalid selection returns
// selection.Violations and nothing is priced.
func Price(p *product.Product, req LineRequest) (*ComputedPrice, error) {
	if req.Quantity <= 0 {
		return nil, &InvalidQuantityError{ProductID: p.ID, Quantity: req.Quantity}
	}
	if !p.Available {
		return nil, &ProductUnavailableError{ProductID: p.ID}
	}

	validated, err := selection.Validate(p.VisibleGroups(), req.Selections)
	if err != nil {
		return nil, err
	}

	unit := pricing.UnitPrice(p, validated)
	total, err := pricing.TotalPrice(unit, req.Quantity)
	if err != nil {
		return nil, &InvalidQuantityError{ProductID: p.ID, Quantity: req.Quantity}
	}

	line := snapshot.Build(p, validated, snapshot.Line{
		Quantity:       req.Quantity,
		EffectivePrice: pricing.EffectivePrice(p),
		UnitPrice:      unit,
		TotalPrice:     total,
		Instructions:   req.Instructions,
	})
	return &ComputedPrice{
		UnitPrice:  unit,
		TotalPrice: total,
		Snapshot:   line,
	}, nil
}

// checkInput rejects fatal input problems before any catalog read.
func (s *Service) checkInput(req LineRequest) error {
	if req.Quantity <= 0 || (s.limits.MaxQuantity > 0 && req.Quantity > s.limits.MaxQuantity) {
		return &InvalidQuantityError{ProductID: req.ProductID, Quantity: req.Quantity}
	}
	if n := s.limits.MaxInstructionLength; n > 0 && utf8.RuneCountInString(req.Instructions) > n {
		return fmt.Errorf("product %s: %w", req.ProductID, ErrInstructionsTooLong)
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
