package prompts

import (
	"context"
	_ "embed"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/shopspring/decimal"

	"github.com/Natthapon12-yod/smartatsai/internal/agent/model"
	"github.com/Natthapon12-yod/smartatsai/internal/tariff"
)

//go:embed template/system_prompt.txt
var coreSystemPrompt string

type classView struct {
	ID         string
	Name       string
	Rates      string
	ServiceFee string
}

// RenderSystem renders the persona prompt pinned at the head of every
// session. The tariff table lists the classes effective on date, or the
// latest schedule when none is.
func RenderSystem(ctx context.Context, cfg model.PromptConfig, catalog *tariff.Catalog, date time.Time) (string, error) {
	classes := catalog.Active(date)
	if len(classes) == 0 {
		classes = catalog.Latest()
	}
	settings := catalog.Settings()

	views := make([]classView, 0, len(classes))
	for _, rc := range classes {
		views = append(views, classView{
			ID:         rc.ID,
			Name:       rc.Name,
			Rates:      describeRates(rc),
			ServiceFee: rc.ServiceFee.String(),
		})
	}

	vars := map[string]any{
		"AssistantName": cfg.AssistantName,
		"SystemName":    cfg.SystemName,
		"Utility":       cfg.Utility,
		"Currency":      settings.Currency,
		"FtRate":        settings.FtRatePerUnit.String(),
		"VATPercent":    percent(settings.VATRate),
		"Period":        period(classes),
		"Classes":       views,
	}
	return render(ctx, "system_prompt", schema.GoTemplate, schema.SystemMessage(coreSystemPrompt), vars)
}

func describeRates(rc tariff.RateClass) string {
	if rc.IsTimeOfUse() {
		return "Peak (" + rc.TimeOfUse.PeakRate.String() + "), Off-Peak (" + rc.TimeOfUse.OffPeakRate.String() + ")"
	}
	parts := make([]string, 0, len(rc.Tiers))
	for _, t := range rc.Tiers {
		parts = append(parts, t.String()+" ("+t.Rate.String()+")")
	}
	return strings.Join(parts, ", ")
}

func period(classes []tariff.RateClass) string {
	var from, to time.Time
	for _, rc := range classes {
		if from.IsZero() || rc.EffectiveFrom.Before(from) {
			from = rc.EffectiveFrom
		}
		if !rc.EffectiveTo.IsZero() && rc.EffectiveTo.After(to) {
			to = rc.EffectiveTo
		}
	}
	if from.IsZero() {
		return "-"
	}
	if to.IsZero() {
		return from.Format(time.DateOnly) + " onwards"
	}
	return from.Format(time.DateOnly) + " - " + to.Format(time.DateOnly)
}

func percent(rate decimal.Decimal) string {
	return rate.Mul(decimal.NewFromInt(100)).String()
}
