package tariff

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BillingRequest is one query for a bill. It is built per inbound message and
// never persisted.
type BillingRequest struct {
	Units decimal.Decimal
	// RequestedClass bypasses classification when it names a catalog class.
	RequestedClass string
	Hint           Hint
	// BillingDate defaults to the engine clock when zero.
	BillingDate     time.Time
	SubsidyEligible bool
	// PeakUnits is only read for time-of-use classes.
	PeakUnits *decimal.Decimal
}

// Engine wires catalog lookup, classification and calculation together.
type Engine struct {
	catalog    *Catalog
	classifier *Classifier
	calculator *Calculator
	now        func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock replaces time.Now for defaulting billing dates.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(catalog *Catalog, opts ...EngineOption) *Engine {
	e := &Engine{
		catalog:    catalog,
		classifier: NewClassifier(catalog),
		calculator: NewCalculator(catalog.Settings()),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog exposes the catalog backing the engine.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Bill resolves the rate class for req and computes the breakdown.
func (e *Engine) Bill(req BillingRequest) (BillBreakdown, error) {
	if req.Units.IsNegative() {
		return BillBreakdown{}, fmt.Errorf("%w: %s is negative", ErrInvalidUnits, req.Units)
	}
	date := req.BillingDate
	if date.IsZero() {
		date = e.now()
	}

	var (
		class RateClass
		err   error
	)
	if req.RequestedClass != "" {
		class, err = e.catalog.Lookup(req.RequestedClass, date)
	} else {
		class, err = e.classifier.Classify(req.Units, req.Hint, date)
	}
	if err != nil {
		return BillBreakdown{}, err
	}

	var opts []ComputeOption
	if req.PeakUnits != nil {
		opts = append(opts, WithPeakUnits(*req.PeakUnits))
	}
	return e.calculator.Compute(class, req.Units, req.SubsidyEligible, opts...)
}
