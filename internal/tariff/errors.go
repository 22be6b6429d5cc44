package tariff

import "errors"

// Billing-domain failures. All are deterministic and produced without I/O.
var (
	ErrInvalidUnits        = errors.New("invalid units")
	ErrUnknownRateClass    = errors.New("unknown rate class")
	ErrTariffPeriodExpired = errors.New("tariff schedule period expired")
	ErrInvalidCatalog      = errors.New("invalid tariff catalog")
)
