// Package nlu extracts unit counts and rate-class hints from user messages.
package nlu

import (
	"context"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Natthapon12-yod/smartatsai/internal/agent/model"
	"github.com/Natthapon12-yod/smartatsai/internal/tariff"
)

const number = `(-?\d{1,3}(?:,\d{3})+(?:\.\d+)?|-?\d+(?:\.\d+)?)`

var (
	offPeakRe  = regexp.MustCompile(`(?i)off[-\s]?peak\s*[:=]?\s*` + number)
	peakRe     = regexp.MustCompile(`(?i)(?:on[-\s]?)?peak\s*[:=]?\s*` + number)
	unitWordRe = regexp.MustCompile(`(?i)` + number + `\s*(?:หน่วย|ยูนิต|units?\b|kwh\b|kw-h\b)`)
	usedRe     = regexp.MustCompile(`(?i)(?:ใช้ไฟ(?:ฟ้า)?|ใช้|used?|consumed?)\s*(?:ไป|เดือนนี้|ทั้งหมด|this month)?\s*` + number)
	bareRe     = regexp.MustCompile(`^\s*` + number + `\s*$`)
	// rangeRe matches "1-15" or "100 - 150"; a range names tiers, not consumption.
	rangeRe = regexp.MustCompile(`\d(?:[\d,]*\d)?(?:\.\d+)?\s*[-–]\s*\d(?:[\d,]*\d)?(?:\.\d+)?`)

	agriculturalRe = regexp.MustCompile(`(?i)ประเภท\s*(?:ที่\s*)?7|สูบน้ำ|เกษตร|agricultur|\bpump|\b(?:class|type|rate)\s*7\b`)
	timeOfUseRe    = regexp.MustCompile(`(?i)\btou\b|1\.2\.2|time[-\s]?of[-\s]?use`)
	subsidyRe      = regexp.MustCompile(`(?i)สวัสดิการ|บัตรคนจน|ไฟฟรี|welfare|subsid`)
)

// RuleInterpreter extracts billing details with fixed Thai/English patterns.
// It never fails and needs no I/O.
type RuleInterpreter struct{}

func NewRuleInterpreter() *RuleInterpreter {
	return &RuleInterpreter{}
}

func (RuleInterpreter) Interpret(_ context.Context, text string) (model.Interpretation, error) {
	var out model.Interpretation

	switch {
	case agriculturalRe.MatchString(text):
		out.Hint = tariff.HintAgricultural
	case timeOfUseRe.MatchString(text):
		out.Hint = tariff.HintTimeOfUse
	}
	out.SubsidyEligible = subsidyRe.MatchString(text)

	offPeak, rest := extract(offPeakRe, withoutRanges(text))
	peak, rest := extract(peakRe, rest)
	if peak != nil {
		out.PeakUnits = peak
	}

	units := firstNumber(rest, unitWordRe, usedRe, bareRe)
	switch {
	case units != nil:
		out.Units = units
		if peak == nil && offPeak != nil && out.Hint == tariff.HintTimeOfUse {
			p := units.Sub(*offPeak)
			out.PeakUnits = &p
		}
	case peak != nil || offPeak != nil:
		total := decimal.Zero
		if peak != nil {
			total = total.Add(*peak)
		}
		if offPeak != nil {
			total = total.Add(*offPeak)
		}
		out.Units = &total
		if out.PeakUnits == nil {
			zero := decimal.Zero
			out.PeakUnits = &zero
		}
		if out.Hint == tariff.HintNone {
			out.Hint = tariff.HintTimeOfUse
		}
	}
	return out, nil
}

// withoutRanges blanks every numeric range, both ends included.
func withoutRanges(text string) string {
	return rangeRe.ReplaceAllString(text, " ")
}

// extract returns the first number matched by re and text with that match blanked.
func extract(re *regexp.Regexp, text string) (*decimal.Decimal, string) {
	loc := re.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil, text
	}
	v, ok := parseNumber(text[loc[2]:loc[3]])
	if !ok {
		return nil, text
	}
	return &v, text[:loc[0]] + " " + text[loc[1]:]
}

func firstNumber(text string, res ...*regexp.Regexp) *decimal.Decimal {
	for _, re := range res {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v, ok := parseNumber(m[1]); ok {
			return &v
		}
	}
	return nil
}

func parseNumber(s string) (decimal.Decimal, bool) {
	v, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return v, true
}

var _ model.Interpreter = (*RuleInterpreter)(nil)
