// Package billing contiene la lógica pura de precios y prorrateo de suscripciones.
// Sin I/O: todo se calcula a partir de entradas inmutables, con decimal exacto y
// redondeo half-even únicamente en las salidas.
package billing

import (
	"github.com/shopspring/decimal"

	"github.com/hostalia/billing-api/internal/domain/entity"
)

// Plan describe una entrada del catálogo de planes. Tier define la jerarquía para
// la regla de elegibilidad de prorrateo (solo upgrades estrictos).
type Plan struct {
	Code         string
	Name         string
	MonthlyPrice decimal.Decimal
	Tier         int
}

// Catálogo publicado. El descuento por periodo vive aquí (no en el call site) para
// que una futura tabla versionada pueda sustituirlo sin tocar el calculador; los
// importes ya facturados quedan congelados en la factura y no se recalculan.
var catalog = map[string]Plan{
	"HOST":     {Code: "HOST", Name: "Anfitrión", MonthlyPrice: decimal.NewFromFloat(29.00), Tier: 1},
	"PRO":      {Code: "PRO", Name: "Profesional", MonthlyPrice: decimal.NewFromFloat(69.00), Tier: 2},
	"BUSINESS": {Code: "BUSINESS", Name: "Empresa", MonthlyPrice: decimal.NewFromFloat(129.00), Tier: 3},
}

// GetPlan devuelve el plan del catálogo por código.
func GetPlan(code string) (Plan, bool) {
	p, ok := catalog[code]
	return p, ok
}

// PeriodMonths meses que cubre cada tipo de periodo.
func PeriodMonths(kind entity.BillingPeriodKind) int {
	switch kind {
	case entity.PeriodSemiannual:
		return 6
	case entity.PeriodAnnual:
		return 12
	default:
		return 1
	}
}

// PeriodDiscountPercent descuento publicado por compromiso de periodo:
// semestral 10%, anual 20%.
func PeriodDiscountPercent(kind entity.BillingPeriodKind) decimal.Decimal {
	switch kind {
	case entity.PeriodSemiannual:
		return decimal.NewFromInt(10)
	case entity.PeriodAnnual:
		return decimal.NewFromInt(20)
	default:
		return decimal.Zero
	}
}

// PeriodRank jerarquía de periodos para la regla de upgrade (mensual < semestral < anual).
func PeriodRank(kind entity.BillingPeriodKind) int {
	switch kind {
	case entity.PeriodSemiannual:
		return 2
	case entity.PeriodAnnual:
		return 3
	default:
		return 1
	}
}

// ParsePeriodKind normaliza la entrada del API ("MONTHLY", "SEMIANNUAL", "ANNUAL").
func ParsePeriodKind(s string) (entity.BillingPeriodKind, bool) {
	switch entity.BillingPeriodKind(s) {
	case entity.PeriodMonthly, entity.PeriodSemiannual, entity.PeriodAnnual:
		return entity.BillingPeriodKind(s), true
	}
	return "", false
}

// PeriodPrice precio total del periodo: mensual × meses × (1 − descuento),
// redondeado half-even al céntimo solo al final.
func PeriodPrice(monthlyPrice decimal.Decimal, kind entity.BillingPeriodKind) decimal.Decimal {
	months := decimal.NewFromInt(int64(PeriodMonths(kind)))
	factor := decimal.NewFromInt(1).Sub(PeriodDiscountPercent(kind).Div(decimal.NewFromInt(100)))
	return monthlyPrice.Mul(months).Mul(factor).RoundBank(2)
}
