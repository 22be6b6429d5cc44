package prompts

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Natthapon12-yod/smartatsai/internal/agent/model"
	"github.com/Natthapon12-yod/smartatsai/internal/tariff"
)

var (
	bangkok    = time.FixedZone("UTC+7", 7*3600)
	inSchedule = time.Date(2026, time.February, 15, 10, 0, 0, 0, bangkok)
	promptCfg  = model.PromptConfig{AssistantName: "น้องไฟดี", SystemName: "Smart ATS", Utility: "กฟภ. (PEA)"}
)

func defaultEngine(t *testing.T) *tariff.Engine {
	t.Helper()
	catalog, err := tariff.DefaultCatalog()
	require.NoError(t, err)
	return tariff.NewEngine(catalog, tariff.WithClock(func() time.Time { return inSchedule }))
}

func TestRenderSystemListsTariffTable(t *testing.T) {
	e := defaultEngine(t)

	out, err := RenderSystem(context.Background(), promptCfg, e.Catalog(), inSchedule)
	require.NoError(t, err)

	assert.Contains(t, out, "'น้องไฟดี'")
	assert.Contains(t, out, "Smart ATS")
	assert.Contains(t, out, "ค่า Ft: 0.0972 THB/หน่วย | VAT: 7%")
	assert.Contains(t, out, "[1.1.1]")
	assert.Contains(t, out, "1-15 (2.3488)")
	assert.Contains(t, out, "401+ (4.4217)")
	assert.Contains(t, out, "Peak (5.7982), Off-Peak (2.6369)")
	assert.Contains(t, out, "ค่าบริการ 115.16 THB")
	assert.Contains(t, out, "2026-01-01 - 2026-04-30")
}

func TestRenderSystemFallsBackToLatestSchedule(t *testing.T) {
	e := defaultEngine(t)

	out, err := RenderSystem(context.Background(), promptCfg, e.Catalog(), time.Date(2027, 1, 1, 0, 0, 0, 0, bangkok))
	require.NoError(t, err)
	assert.Contains(t, out, "[1.1.2]")
}

func TestRenderBill(t *testing.T) {
	e := defaultEngine(t)
	b, err := e.Bill(tariff.BillingRequest{Units: decimal.NewFromInt(120)})
	require.NoError(t, err)

	out, err := RenderBill(context.Background(), promptCfg, b)
	require.NoError(t, err)

	assert.Contains(t, out, "**1.1.1**")
	assert.Contains(t, out, "จำนวนหน่วย: 120 หน่วย")
	assert.Contains(t, out, "หน่วยที่ 1-15: 15 หน่วย x 2.3488 = 35.23 THB")
	assert.Contains(t, out, "**Step 3: ค่า Ft** 120 x 0.0972 = 11.66 THB")
	assert.Contains(t, out, "**Step 5: VAT 7%** 29.91 THB")
	assert.Contains(t, out, "**457.16 THB**")
	assert.NotContains(t, out, "สวัสดิการ")
}

func TestRenderBillSubsidy(t *testing.T) {
	e := defaultEngine(t)
	b, err := e.Bill(tariff.BillingRequest{Units: decimal.NewFromInt(40), SubsidyEligible: true})
	require.NoError(t, err)

	out, err := RenderBill(context.Background(), promptCfg, b)
	require.NoError(t, err)
	assert.Contains(t, out, "**0.00 THB**")
	assert.Contains(t, out, "ยอดที่ต้องชำระจริงคือ 0 THB")

	b, err = e.Bill(tariff.BillingRequest{Units: decimal.NewFromInt(40)})
	require.NoError(t, err)
	out, err = RenderBill(context.Background(), promptCfg, b)
	require.NoError(t, err)
	assert.Contains(t, out, "อาจได้รับสิทธิค่าไฟฟรี")
}

func TestRenderBillTimeOfUseAssumedSplit(t *testing.T) {
	e := defaultEngine(t)
	b, err := e.Bill(tariff.BillingRequest{Units: decimal.NewFromInt(100), Hint: tariff.HintTimeOfUse})
	require.NoError(t, err)

	out, err := RenderBill(context.Background(), promptCfg, b)
	require.NoError(t, err)
	assert.Contains(t, out, "Off-Peak: 100 หน่วย x 2.6369")
	assert.Contains(t, out, "คิดทั้งหมดเป็น Off-Peak")
}

func TestRenderNLUSystem(t *testing.T) {
	out, err := RenderNLUSystem(context.Background(), []string{"agricultural_pump", "time_of_use"})
	require.NoError(t, err)

	assert.Contains(t, out, "(entity<||>units<||>200<||>0.95)##(intent<||>agricultural_pump<||>0.9<||>0.8)<|COMPLETE|>")
	assert.Contains(t, out, "names: agricultural_pump, time_of_use")
	assert.NotContains(t, out, "{TD}")
}
