// Package tariff implements the progressive electricity tariff: an immutable
// catalog of rate classes, the rule that picks a class for a request, and the
// calculator that turns a class and a unit count into an itemised bill.
package tariff

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Rate class identifiers shipped in the default catalog.
const (
	ClassResidentialSmall   = "1.1.1"
	ClassResidentialGeneral = "1.1.2"
	ClassAgriculturalPump   = "7"
	ClassTimeOfUse          = "TOU-1.2.2"
)

// Tier is one step of a progressive rate ladder. Bounds are inclusive unit
// numbers; a nil Upper means the tier is unbounded.
type Tier struct {
	Lower decimal.Decimal  `json:"lower"`
	Upper *decimal.Decimal `json:"upper,omitempty"`
	Rate  decimal.Decimal  `json:"rate"`
}

// Bounded reports whether the tier has an upper bound.
func (t Tier) Bounded() bool {
	return t.Upper != nil
}

// Width is the number of units the tier can hold. Unbounded tiers return false.
func (t Tier) Width() (decimal.Decimal, bool) {
	if !t.Bounded() {
		return decimal.Zero, false
	}
	return t.Upper.Sub(t.Lower).Add(decimal.NewFromInt(1)), true
}

// UnitsIn returns how many of units fall inside the tier:
// min(units, upper) - lower + 1, clamped to [0, width].
func (t Tier) UnitsIn(units decimal.Decimal) decimal.Decimal {
	top := units
	if t.Bounded() && t.Upper.LessThan(units) {
		top = *t.Upper
	}
	in := top.Sub(t.Lower).Add(decimal.NewFromInt(1))
	if in.IsNegative() {
		return decimal.Zero
	}
	if width, ok := t.Width(); ok && in.GreaterThan(width) {
		return width
	}
	return in
}

// String renders the range as "1-15" or "401+".
func (t Tier) String() string {
	if !t.Bounded() {
		return t.Lower.String() + "+"
	}
	return fmt.Sprintf("%s-%s", t.Lower.String(), t.Upper.String())
}

// TimeOfUse replaces the tier ladder for time-of-use classes.
type TimeOfUse struct {
	PeakRate    decimal.Decimal `json:"peak_rate"`
	OffPeakRate decimal.Decimal `json:"off_peak_rate"`
}

// RateClass is one entry of the catalog, valid for an inclusive date range.
type RateClass struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Tiers         []Tier          `json:"tiers,omitempty"`
	TimeOfUse     *TimeOfUse      `json:"time_of_use,omitempty"`
	ServiceFee    decimal.Decimal `json:"monthly_service_fee"`
	EffectiveFrom time.Time       `json:"effective_from"`
	// EffectiveTo is zero for open-ended schedules.
	EffectiveTo time.Time `json:"effective_to"`
}

// IsTimeOfUse reports whether the class bills on a peak/off-peak schedule.
func (c RateClass) IsTimeOfUse() bool {
	return c.TimeOfUse != nil
}

// ActiveOn reports whether the class's effective range covers the calendar day
// of date in loc.
func (c RateClass) ActiveOn(date time.Time, loc *time.Location) bool {
	day := truncateDay(date, loc)
	if day.Before(c.EffectiveFrom) {
		return false
	}
	return c.EffectiveTo.IsZero() || !day.After(c.EffectiveTo)
}

// MaxUnits is the highest unit count the class can bill. Classes ending in an
// unbounded tier (and TOU classes) return false.
func (c RateClass) MaxUnits() (decimal.Decimal, bool) {
	if c.IsTimeOfUse() || len(c.Tiers) == 0 {
		return decimal.Zero, false
	}
	last := c.Tiers[len(c.Tiers)-1]
	if !last.Bounded() {
		return decimal.Zero, false
	}
	return *last.Upper, true
}

func (c RateClass) validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: rate class without id", ErrInvalidCatalog)
	}
	if c.ServiceFee.IsNegative() {
		return fmt.Errorf("%w: class %s: negative service fee", ErrInvalidCatalog, c.ID)
	}
	if c.EffectiveFrom.IsZero() {
		return fmt.Errorf("%w: class %s: missing effective_from", ErrInvalidCatalog, c.ID)
	}
	if !c.EffectiveTo.IsZero() && c.EffectiveTo.Before(c.EffectiveFrom) {
		return fmt.Errorf("%w: class %s: effective_to before effective_from", ErrInvalidCatalog, c.ID)
	}

	if c.IsTimeOfUse() {
		if len(c.Tiers) > 0 {
			return fmt.Errorf("%w: class %s: both tiers and time-of-use rates", ErrInvalidCatalog, c.ID)
		}
		if c.TimeOfUse.PeakRate.IsNegative() || c.TimeOfUse.OffPeakRate.IsNegative() {
			return fmt.Errorf("%w: class %s: negative time-of-use rate", ErrInvalidCatalog, c.ID)
		}
		return nil
	}

	if len(c.Tiers) == 0 {
		return fmt.Errorf("%w: class %s: no tiers", ErrInvalidCatalog, c.ID)
	}
	one := decimal.NewFromInt(1)
	if !c.Tiers[0].Lower.Equal(one) {
		return fmt.Errorf("%w: class %s: first tier must start at 1", ErrInvalidCatalog, c.ID)
	}
	for i, t := range c.Tiers {
		if t.Rate.IsNegative() {
			return fmt.Errorf("%w: class %s tier %s: negative rate", ErrInvalidCatalog, c.ID, t)
		}
		if !t.Bounded() {
			if i != len(c.Tiers)-1 {
				return fmt.Errorf("%w: class %s tier %s: only the last tier may be unbounded", ErrInvalidCatalog, c.ID, t)
			}
			continue
		}
		if t.Upper.LessThan(t.Lower) {
			return fmt.Errorf("%w: class %s tier %s: upper below lower", ErrInvalidCatalog, c.ID, t)
		}
		if i+1 < len(c.Tiers) && !c.Tiers[i+1].Lower.Equal(t.Upper.Add(one)) {
			return fmt.Errorf("%w: class %s: gap or overlap after tier %s", ErrInvalidCatalog, c.ID, t)
		}
	}
	return nil
}

func (c RateClass) overlaps(o RateClass) bool {
	startsBeforeOtherEnds := o.EffectiveTo.IsZero() || !c.EffectiveFrom.After(o.EffectiveTo)
	otherStartsBeforeEnd := c.EffectiveTo.IsZero() || !o.EffectiveFrom.After(c.EffectiveTo)
	return startsBeforeOtherEnds && otherStartsBeforeEnd
}

func truncateDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
