package tariff

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Hint is the classification intent extracted from the user's text.
type Hint string

const (
	HintNone         Hint = ""
	HintAgricultural Hint = "agricultural"
	HintTimeOfUse    Hint = "time_of_use"
)

// smallResidentialLimit is the inclusive upper bound of class 1.1.1.
var smallResidentialLimit = decimal.NewFromInt(150)

// ParseHint accepts the hint names used by the CLI and the NLU model.
func ParseHint(s string) (Hint, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return HintNone, nil
	case "agricultural", "agricultural_pump", "pump", "7":
		return HintAgricultural, nil
	case "tou", "time_of_use", "1.2.2", "tou-1.2.2":
		return HintTimeOfUse, nil
	default:
		return HintNone, fmt.Errorf("unknown classification hint %q", s)
	}
}

// ClassID applies the classification rule, in priority order:
// an agricultural/pump intent selects class 7 regardless of units, a TOU
// intent selects TOU-1.2.2, otherwise units <= 150 selects 1.1.1 and anything
// above selects 1.1.2. It never asks for clarification.
func ClassID(units decimal.Decimal, hint Hint) (string, error) {
	if units.IsNegative() {
		return "", fmt.Errorf("%w: %s is negative", ErrInvalidUnits, units)
	}
	switch hint {
	case HintAgricultural:
		return ClassAgriculturalPump, nil
	case HintTimeOfUse:
		return ClassTimeOfUse, nil
	}
	if units.LessThanOrEqual(smallResidentialLimit) {
		return ClassResidentialSmall, nil
	}
	return ClassResidentialGeneral, nil
}

// Classifier resolves the class chosen by ClassID against a catalog.
type Classifier struct {
	catalog *Catalog
}

func NewClassifier(catalog *Catalog) *Classifier {
	return &Classifier{catalog: catalog}
}

// Classify returns the rate class effective on billingDate for units and hint.
func (c *Classifier) Classify(units decimal.Decimal, hint Hint, billingDate time.Time) (RateClass, error) {
	id, err := ClassID(units, hint)
	if err != nil {
		return RateClass{}, err
	}
	return c.catalog.Lookup(id, billingDate)
}
