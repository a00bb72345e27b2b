package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hostalia/billing-api/internal/domain"
	"github.com/hostalia/billing-api/internal/domain/entity"
)

// CurrentPeriod vista inmutable del periodo pagado vigente del suscriptor.
type CurrentPeriod struct {
	PlanCode   string
	PeriodKind entity.BillingPeriodKind
	StartDate  time.Time
	EndDate    time.Time
	AmountPaid decimal.Decimal
}

// ChangeRequest plan y periodo de destino solicitados.
type ChangeRequest struct {
	Plan       Plan
	PeriodKind entity.BillingPeriodKind
}

// Quote es el presupuesto de prorrateo: objeto de valor efímero, nunca persistido.
// Se recalcula en cada preview y es idempotente (mismas entradas, mismas salidas,
// redondeo incluido).
type Quote struct {
	DaysTotal     int
	DaysUsed      int
	DaysRemaining int
	// DailyRate tarifa diaria redondeada a 4 decimales. Solo informativa: el crédito
	// se calcula con aritmética exacta, nunca a partir de este valor redondeado.
	DailyRate      decimal.Decimal
	CreditAmount   decimal.Decimal
	NewPeriodPrice decimal.Decimal
	NetDue         decimal.Decimal
	NewStartDate   time.Time
	NewEndDate     time.Time
}

// ComputeQuote calcula el crédito por la parte no consumida del periodo vigente y el
// neto a pagar por el nuevo. Función pura; asOf es inyectable para tests.
//
// Reglas:
//   - elegible solo si el destino sube estrictamente de tier, de periodo, o ambos;
//     mismo plan+periodo o cualquier downgrade devuelve domain.ErrNotEligible.
//   - crédito = pagado × díasRestantes ÷ díasTotales, redondeo half-even al céntimo
//     una única vez al final (sin redondeos intermedios que acumulen error).
//   - el crédito nunca se abona en metálico: se capa contra el nuevo cargo (netDue ≥ 0).
//
// Con díasRestantes == 0 la fórmula da crédito 0 y netDue == precio completo sin
// rama especial; con pagado == 0 (periodo promocional) el crédito es 0.
func ComputeQuote(current CurrentPeriod, target ChangeRequest, asOf time.Time) (*Quote, error) {
	daysTotal := daysBetween(current.StartDate, current.EndDate)
	if daysTotal <= 0 {
		return nil, domain.ErrInvalidPeriod
	}
	if current.AmountPaid.IsNegative() {
		return nil, domain.ErrInvalidPeriod
	}

	currentPlan, ok := GetPlan(current.PlanCode)
	if !ok {
		return nil, domain.ErrInvalidInput
	}
	if !isUpgrade(currentPlan, current.PeriodKind, target.Plan, target.PeriodKind) {
		return nil, domain.ErrNotEligible
	}

	daysUsed := daysBetween(current.StartDate, asOf)
	if daysUsed < 0 {
		daysUsed = 0
	}
	if daysUsed > daysTotal {
		daysUsed = daysTotal
	}
	daysRemaining := daysTotal - daysUsed

	total := decimal.NewFromInt(int64(daysTotal))
	remaining := decimal.NewFromInt(int64(daysRemaining))

	credit := current.AmountPaid.Mul(remaining).Div(total).RoundBank(2)
	newPrice := PeriodPrice(target.Plan.MonthlyPrice, target.PeriodKind)

	netDue := newPrice.Sub(credit)
	if netDue.IsNegative() {
		netDue = decimal.Zero
	}

	newStart := asOf
	newEnd := asOf.AddDate(0, PeriodMonths(target.PeriodKind), 0)

	return &Quote{
		DaysTotal:      daysTotal,
		DaysUsed:       daysUsed,
		DaysRemaining:  daysRemaining,
		DailyRate:      current.AmountPaid.Div(total).RoundBank(4),
		CreditAmount:   credit,
		NewPeriodPrice: newPrice,
		NetDue:         netDue,
		NewStartDate:   newStart,
		NewEndDate:     newEnd,
	}, nil
}

// isUpgrade aplica la puerta de política: sube de tier sin bajar de periodo, sube de
// periodo sin bajar de tier, o sube de ambos. Todo lo demás no prorratea.
func isUpgrade(currentPlan Plan, currentKind entity.BillingPeriodKind, targetPlan Plan, targetKind entity.BillingPeriodKind) bool {
	tierUp := targetPlan.Tier > currentPlan.Tier
	tierDown := targetPlan.Tier < currentPlan.Tier
	rankUp := PeriodRank(targetKind) > PeriodRank(currentKind)
	rankDown := PeriodRank(targetKind) < PeriodRank(currentKind)

	if tierDown || rankDown {
		return false
	}
	return tierUp || rankUp
}

// daysBetween días completos entre dos instantes, contados sobre fechas de calendario UTC.
func daysBetween(from, to time.Time) int {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDay.Sub(fromDay) / (24 * time.Hour))
}
