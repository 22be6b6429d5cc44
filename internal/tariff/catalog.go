package tariff

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Settings holds the catalog-wide constants.
type Settings struct {
	Currency      string
	FtRatePerUnit decimal.Decimal
	VATRate       decimal.Decimal
	// Location decides which calendar day a billing timestamp falls on.
	Location *time.Location
}

// Catalog is the immutable set of rate classes loaded at startup. It is safe
// for concurrent reads without locking.
type Catalog struct {
	settings Settings
	classes  map[string][]RateClass // sorted by EffectiveFrom
	ids      []string               // declaration order
}

// NewCatalog validates classes and builds a catalog. Several versions of the
// same identifier are allowed as long as their effective ranges do not overlap.
func NewCatalog(settings Settings, classes ...RateClass) (*Catalog, error) {
	if settings.FtRatePerUnit.IsNegative() || settings.VATRate.IsNegative() {
		return nil, fmt.Errorf("%w: negative Ft or VAT rate", ErrInvalidCatalog)
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}

	c := &Catalog{
		settings: settings,
		classes:  make(map[string][]RateClass, len(classes)),
	}
	for _, rc := range classes {
		if err := rc.validate(); err != nil {
			return nil, err
		}
		rc.EffectiveFrom = truncateDay(rc.EffectiveFrom, settings.Location)
		if !rc.EffectiveTo.IsZero() {
			rc.EffectiveTo = truncateDay(rc.EffectiveTo, settings.Location)
		}
		for _, existing := range c.classes[rc.ID] {
			if existing.overlaps(rc) {
				return nil, fmt.Errorf("%w: class %s has overlapping effective ranges", ErrInvalidCatalog, rc.ID)
			}
		}
		if _, seen := c.classes[rc.ID]; !seen {
			c.ids = append(c.ids, rc.ID)
		}
		c.classes[rc.ID] = append(c.classes[rc.ID], rc)
	}
	for id := range c.classes {
		versions := c.classes[id]
		sort.Slice(versions, func(i, j int) bool {
			return versions[i].EffectiveFrom.Before(versions[j].EffectiveFrom)
		})
	}
	return c, nil
}

// Lookup returns the version of classID effective on billingDate.
// ErrUnknownRateClass means the identifier is not in the catalog at all;
// ErrTariffPeriodExpired means it exists but no version covers the date.
func (c *Catalog) Lookup(classID string, billingDate time.Time) (RateClass, error) {
	versions, ok := c.classes[classID]
	if !ok {
		return RateClass{}, fmt.Errorf("%w: %q", ErrUnknownRateClass, classID)
	}
	for _, rc := range versions {
		if rc.ActiveOn(billingDate, c.settings.Location) {
			return rc, nil
		}
	}
	return RateClass{}, fmt.Errorf("%w: class %s has no schedule covering %s",
		ErrTariffPeriodExpired, classID, truncateDay(billingDate, c.settings.Location).Format(time.DateOnly))
}

// Has reports whether classID exists in any version.
func (c *Catalog) Has(classID string) bool {
	_, ok := c.classes[classID]
	return ok
}

// Active lists the classes effective on date, in declaration order.
func (c *Catalog) Active(date time.Time) []RateClass {
	out := make([]RateClass, 0, len(c.ids))
	for _, id := range c.ids {
		if rc, err := c.Lookup(id, date); err == nil {
			out = append(out, rc)
		}
	}
	return out
}

// Latest lists the most recent version of every class, in declaration order.
func (c *Catalog) Latest() []RateClass {
	out := make([]RateClass, 0, len(c.ids))
	for _, id := range c.ids {
		versions := c.classes[id]
		out = append(out, versions[len(versions)-1])
	}
	return out
}

// Settings returns the catalog-wide constants.
func (c *Catalog) Settings() Settings {
	return c.settings
}
