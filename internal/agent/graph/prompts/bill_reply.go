package prompts

import (
	"context"
	_ "embed"

	"github.com/cloudwego/eino/schema"
	"github.com/shopspring/decimal"

	"github.com/Natthapon12-yod/smartatsai/internal/agent/model"
	"github.com/Natthapon12-yod/smartatsai/internal/tariff"
)

//go:embed template/bill_reply.md
var billReplyTemplate string

var subsidyCeiling = decimal.NewFromInt(50)

type chargeView struct {
	Label    string
	Units    string
	Rate     string
	Subtotal string
}

// RenderBill turns a breakdown into the Markdown reply shown to the user.
// Amounts are shown to 2 places; the net total uses the breakdown's half-up rounding.
func RenderBill(ctx context.Context, cfg model.PromptConfig, b tariff.BillBreakdown) (string, error) {
	charges := make([]chargeView, 0, len(b.Charges))
	for _, c := range b.Charges {
		charges = append(charges, chargeView{
			Label:    chargeLabel(c),
			Units:    c.Units.String(),
			Rate:     c.Rate.String(),
			Subtotal: money(c.Subtotal),
		})
	}

	vars := map[string]any{
		"AssistantName":    cfg.AssistantName,
		"ClassID":          b.RateClassID,
		"ClassName":        b.RateClassName,
		"Currency":         b.Currency,
		"Units":            b.Units.String(),
		"Charges":          charges,
		"BaseCharge":       money(b.BaseCharge),
		"ServiceFee":       money(b.ServiceFee),
		"FtRate":           b.FtRate.String(),
		"FtCharge":         money(b.FtCharge),
		"PreTaxTotal":      money(b.PreTaxTotal),
		"VATPercent":       percent(b.VATRate),
		"VATAmount":        money(b.VATAmount),
		"ComputedTotal":    money(b.ComputedTotal),
		"NetTotal":         b.NetTotalRounded().StringFixed(2),
		"SubsidyApplied":   b.SubsidyApplied,
		"MaySubsidise":     b.RateClassID == tariff.ClassResidentialSmall && b.Units.LessThanOrEqual(subsidyCeiling),
		"PeakSplitAssumed": b.PeakSplitAssumed,
	}
	return render(ctx, "bill_reply", schema.GoTemplate, schema.AssistantMessage(billReplyTemplate, nil), vars)
}

func chargeLabel(c tariff.TierCharge) string {
	switch c.Label {
	case tariff.LabelPeak:
		return "Peak"
	case tariff.LabelOffPeak:
		return "Off-Peak"
	default:
		return "หน่วยที่ " + c.Label
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
