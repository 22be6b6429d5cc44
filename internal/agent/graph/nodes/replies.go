package nodes

import (
	"errors"
	"fmt"
	"time"

	"github.com/Natthapon12-yod/smartatsai/internal/tariff"
)

// UnavailableText is the polite reply when a collaborator fails.
func UnavailableText(d *Deps) string {
	return fmt.Sprintf("ขออภัยครับคุณพี่ %sขัดข้องนิดหน่อย กรุณาลองใหม่อีกครั้งนะครับ", d.Prompt.AssistantName)
}

func billingErrorText(d *Deps, err error, date time.Time) string {
	switch {
	case errors.Is(err, tariff.ErrInvalidUnits):
		return "ขออภัยครับคุณพี่ จำนวนหน่วยไฟฟ้าต้องเป็นตัวเลขที่ไม่ติดลบ และอยู่ในช่วงของประเภทอัตราที่เลือก รบกวนระบุจำนวนหน่วยอีกครั้งนะครับ"
	case errors.Is(err, tariff.ErrUnknownRateClass):
		return "ขออภัยครับคุณพี่ ไม่พบประเภทอัตราค่าไฟฟ้าที่ระบุในตารางอัตราปัจจุบันครับ"
	case errors.Is(err, tariff.ErrTariffPeriodExpired):
		loc := d.Engine.Catalog().Settings().Location
		return fmt.Sprintf("ขออภัยครับคุณพี่ ตารางอัตราค่าไฟฟ้าที่%sมีอยู่ไม่ครอบคลุมวันที่ %s จึงยังคำนวณให้ไม่ได้ครับ",
			d.Prompt.AssistantName, date.In(loc).Format(time.DateOnly))
	default:
		return UnavailableText(d)
	}
}

// EmptyQueryText is returned for blank messages.
func EmptyQueryText(d *Deps) string {
	return "สวัสดีครับคุณพี่ " + d.Prompt.AssistantName + "พร้อมคำนวณค่าไฟให้ครับ บอกจำนวนหน่วยที่ใช้มาได้เลย เช่น \"ใช้ไฟ 120 หน่วย\""
}
