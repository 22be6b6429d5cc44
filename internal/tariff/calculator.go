package tariff

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// internalPlaces is the precision kept for subtotals, Ft and VAT.
	internalPlaces = 4
	// presentedPlaces is the precision of the amount shown to the user.
	presentedPlaces = 2

	LabelPeak    = "peak"
	LabelOffPeak = "off-peak"
)

// TierCharge is the charge for the units that fell in one tier. For
// time-of-use classes Tier is nil and Label is "peak" or "off-peak".
type TierCharge struct {
	Label    string          `json:"label"`
	Tier     *Tier           `json:"tier,omitempty"`
	Rate     decimal.Decimal `json:"rate"`
	Units    decimal.Decimal `json:"units_in_tier"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// BillBreakdown is the itemised result of one computation.
type BillBreakdown struct {
	RateClassID   string          `json:"rate_class_id"`
	RateClassName string          `json:"rate_class_name"`
	Currency      string          `json:"currency"`
	Units         decimal.Decimal `json:"units_consumed"`
	Charges       []TierCharge    `json:"tier_charges"`
	BaseCharge    decimal.Decimal `json:"base_charge"`
	ServiceFee    decimal.Decimal `json:"monthly_service_fee"`
	FtRate        decimal.Decimal `json:"ft_rate_per_unit"`
	FtCharge      decimal.Decimal `json:"ft_charge"`
	PreTaxTotal   decimal.Decimal `json:"pre_tax_total"`
	VATRate       decimal.Decimal `json:"vat_rate"`
	VATAmount     decimal.Decimal `json:"vat_amount"`
	// ComputedTotal is pre_tax_total + vat before any subsidy override.
	ComputedTotal decimal.Decimal `json:"computed_total"`
	NetTotal      decimal.Decimal `json:"net_total"`

	SubsidyApplied   bool `json:"subsidy_applied"`
	PeakSplitAssumed bool `json:"peak_split_assumed,omitempty"`
}

// NetTotalRounded is the amount presented to the user: 2 places, half-up.
func (b BillBreakdown) NetTotalRounded() decimal.Decimal {
	return b.NetTotal.Round(presentedPlaces)
}

// Calculator applies a rate class to a unit count. It has no state beyond
// the catalog-wide constants and may be shared freely.
type Calculator struct {
	currency string
	ftRate   decimal.Decimal
	vatRate  decimal.Decimal
}

func NewCalculator(settings Settings) *Calculator {
	return &Calculator{
		currency: settings.Currency,
		ftRate:   settings.FtRatePerUnit,
		vatRate:  settings.VATRate,
	}
}

// ComputeOption tunes a single computation.
type ComputeOption func(*computeOptions)

type computeOptions struct {
	peakUnits *decimal.Decimal
}

// WithPeakUnits sets the peak share of units for time-of-use classes.
func WithPeakUnits(peak decimal.Decimal) ComputeOption {
	return func(o *computeOptions) {
		o.peakUnits = &peak
	}
}

// subsidyLimit is the inclusive consumption ceiling for the state-welfare override.
var subsidyLimit = decimal.NewFromInt(50)

// Compute produces the itemised bill. VAT is charged on base + service fee +
// Ft together. Subtotals, Ft and VAT keep 4 places; only NetTotalRounded
// rounds to 2.
func (c *Calculator) Compute(class RateClass, units decimal.Decimal, subsidyEligible bool, opts ...ComputeOption) (BillBreakdown, error) {
	if units.IsNegative() {
		return BillBreakdown{}, fmt.Errorf("%w: %s is negative", ErrInvalidUnits, units)
	}
	if limit, ok := class.MaxUnits(); ok && units.GreaterThan(limit) {
		return BillBreakdown{}, fmt.Errorf("%w: %s exceeds the %s maximum of class %s", ErrInvalidUnits, units, limit, class.ID)
	}

	var o computeOptions
	for _, opt := range opts {
		opt(&o)
	}

	b := BillBreakdown{
		RateClassID:   class.ID,
		RateClassName: class.Name,
		Currency:      c.currency,
		Units:         units,
		ServiceFee:    class.ServiceFee,
		FtRate:        c.ftRate,
		VATRate:       c.vatRate,
	}

	var err error
	if class.IsTimeOfUse() {
		b.Charges, b.PeakSplitAssumed, err = timeOfUseCharges(*class.TimeOfUse, units, o.peakUnits)
		if err != nil {
			return BillBreakdown{}, err
		}
	} else {
		b.Charges = tierCharges(class.Tiers, units)
	}

	b.BaseCharge = decimal.Zero
	for _, ch := range b.Charges {
		b.BaseCharge = b.BaseCharge.Add(ch.Subtotal)
	}
	b.FtCharge = units.Mul(c.ftRate).Round(internalPlaces)
	b.PreTaxTotal = b.BaseCharge.Add(b.ServiceFee).Add(b.FtCharge)
	b.VATAmount = b.PreTaxTotal.Mul(c.vatRate).Round(internalPlaces)
	b.ComputedTotal = b.PreTaxTotal.Add(b.VATAmount)
	b.NetTotal = b.ComputedTotal

	if subsidyEligible && class.ID == ClassResidentialSmall && units.LessThanOrEqual(subsidyLimit) {
		b.NetTotal = decimal.Zero
		b.SubsidyApplied = true
	}
	return b, nil
}

func tierCharges(tiers []Tier, units decimal.Decimal) []TierCharge {
	charges := make([]TierCharge, 0, len(tiers))
	for i := range tiers {
		in := tiers[i].UnitsIn(units)
		if in.IsZero() {
			continue
		}
		charges = append(charges, TierCharge{
			Label:    tiers[i].String(),
			Tier:     &tiers[i],
			Rate:     tiers[i].Rate,
			Units:    in,
			Subtotal: in.Mul(tiers[i].Rate).Round(internalPlaces),
		})
	}
	return charges
}

func timeOfUseCharges(tou TimeOfUse, units decimal.Decimal, peak *decimal.Decimal) ([]TierCharge, bool, error) {
	assumed := peak == nil
	peakUnits := decimal.Zero
	if peak != nil {
		peakUnits = *peak
	}
	if peakUnits.IsNegative() || peakUnits.GreaterThan(units) {
		return nil, false, fmt.Errorf("%w: peak units %s must be within 0..%s", ErrInvalidUnits, peakUnits, units)
	}
	offPeak := units.Sub(peakUnits)
	return []TierCharge{
		{Label: LabelPeak, Rate: tou.PeakRate, Units: peakUnits, Subtotal: peakUnits.Mul(tou.PeakRate).Round(internalPlaces)},
		{Label: LabelOffPeak, Rate: tou.OffPeakRate, Units: offPeak, Subtotal: offPeak.Mul(tou.OffPeakRate).Round(internalPlaces)},
	}, assumed, nil
}
