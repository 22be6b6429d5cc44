package tariff

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed catalog/pea_2569_jan_apr.yaml
var defaultCatalogYAML []byte

type catalogFile struct {
	Currency            string      `yaml:"currency"`
	TimezoneOffsetHours int         `yaml:"timezone_offset_hours"`
	FtRatePerUnit       string      `yaml:"ft_rate_per_unit"`
	VATRate             string      `yaml:"vat_rate"`
	Classes             []classFile `yaml:"classes"`
}

type classFile struct {
	ID            string     `yaml:"id"`
	Name          string     `yaml:"name"`
	ServiceFee    string     `yaml:"service_fee"`
	EffectiveFrom string     `yaml:"effective_from"`
	EffectiveTo   string     `yaml:"effective_to"`
	Tiers         []tierFile `yaml:"tiers"`
	TimeOfUse     *touFile   `yaml:"time_of_use"`
}

type tierFile struct {
	From int64  `yaml:"from"`
	To   *int64 `yaml:"to"`
	Rate string `yaml:"rate"`
}

type touFile struct {
	Peak    string `yaml:"peak"`
	OffPeak string `yaml:"off_peak"`
}

// DefaultCatalog returns the embedded PEA schedule for January - April 2569 B.E.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(bytes.NewReader(defaultCatalogYAML))
}

// LoadCatalogFile reads a YAML catalog from disk.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tariff catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// LoadCatalog decodes a YAML catalog. Amounts are quoted strings so that no
// binary floating point is involved between the file and the calculator.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var doc catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode yaml: %v", ErrInvalidCatalog, err)
	}

	loc := time.FixedZone(fmt.Sprintf("UTC%+d", doc.TimezoneOffsetHours), doc.TimezoneOffsetHours*3600)
	ft, err := parseAmount("ft_rate_per_unit", doc.FtRatePerUnit)
	if err != nil {
		return nil, err
	}
	vat, err := parseAmount("vat_rate", doc.VATRate)
	if err != nil {
		return nil, err
	}

	classes := make([]RateClass, 0, len(doc.Classes))
	for _, cf := range doc.Classes {
		rc, err := cf.toRateClass(loc)
		if err != nil {
			return nil, err
		}
		classes = append(classes, rc)
	}

	return NewCatalog(Settings{
		Currency:      doc.Currency,
		FtRatePerUnit: ft,
		VATRate:       vat,
		Location:      loc,
	}, classes...)
}

func (cf classFile) toRateClass(loc *time.Location) (RateClass, error) {
	rc := RateClass{ID: cf.ID, Name: cf.Name}

	fee, err := parseAmount("class "+cf.ID+" service_fee", cf.ServiceFee)
	if err != nil {
		return RateClass{}, err
	}
	rc.ServiceFee = fee

	if rc.EffectiveFrom, err = parseDate(cf.EffectiveFrom, loc); err != nil {
		return RateClass{}, fmt.Errorf("%w: class %s effective_from: %v", ErrInvalidCatalog, cf.ID, err)
	}
	if cf.EffectiveTo != "" {
		if rc.EffectiveTo, err = parseDate(cf.EffectiveTo, loc); err != nil {
			return RateClass{}, fmt.Errorf("%w: class %s effective_to: %v", ErrInvalidCatalog, cf.ID, err)
		}
	}

	if cf.TimeOfUse != nil {
		peak, err := parseAmount("class "+cf.ID+" peak", cf.TimeOfUse.Peak)
		if err != nil {
			return RateClass{}, err
		}
		offPeak, err := parseAmount("class "+cf.ID+" off_peak", cf.TimeOfUse.OffPeak)
		if err != nil {
			return RateClass{}, err
		}
		rc.TimeOfUse = &TimeOfUse{PeakRate: peak, OffPeakRate: offPeak}
	}

	for _, tf := range cf.Tiers {
		rate, err := parseAmount("class "+cf.ID+" tier rate", tf.Rate)
		if err != nil {
			return RateClass{}, err
		}
		t := Tier{Lower: decimal.NewFromInt(tf.From), Rate: rate}
		if tf.To != nil {
			upper := decimal.NewFromInt(*tf.To)
			t.Upper = &upper
		}
		rc.Tiers = append(rc.Tiers, t)
	}
	return rc, nil
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: %s is missing", ErrInvalidCatalog, field)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrInvalidCatalog, field, err)
	}
	return d, nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, s, loc)
}
