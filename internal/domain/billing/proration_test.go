package billing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostalia/billing-api/internal/domain"
	"github.com/hostalia/billing-api/internal/domain/billing"
	"github.com/hostalia/billing-api/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Escenario de referencia: periodo mensual de 30 días pagado a 29.00 €, cambio
// al plan PRO mensual (69.00 €) el día 10.
//
//	tarifa diaria = 29.00 / 30 = 0.9667
//	crédito       = 0.96667 × 20 días = 19.33  (half-even al céntimo, solo al final)
//	neto a pagar  = 69.00 − 19.33 = 49.67
// ──────────────────────────────────────────────────────────────────────────────

func periodoHost30Dias() billing.CurrentPeriod {
	return billing.CurrentPeriod{
		PlanCode:   "HOST",
		PeriodKind: entity.PeriodMonthly,
		StartDate:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		AmountPaid: decimal.NewFromFloat(29.00),
	}
}

func destinoPro(kind entity.BillingPeriodKind) billing.ChangeRequest {
	plan, _ := billing.GetPlan("PRO")
	return billing.ChangeRequest{Plan: plan, PeriodKind: kind}
}

func TestComputeQuote_EscenarioReferencia(t *testing.T) {
	asOf := time.Date(2025, 6, 11, 9, 30, 0, 0, time.UTC) // día 10 del periodo

	q, err := billing.ComputeQuote(periodoHost30Dias(), destinoPro(entity.PeriodMonthly), asOf)
	require.NoError(t, err)

	assert.Equal(t, 30, q.DaysTotal)
	assert.Equal(t, 10, q.DaysUsed)
	assert.Equal(t, 20, q.DaysRemaining)
	assert.Equal(t, "0.9667", q.DailyRate.StringFixed(4), "tarifa diaria informativa a 4 decimales")
	assert.Equal(t, "19.33", q.CreditAmount.StringFixed(2), "crédito por los 20 días no consumidos")
	assert.Equal(t, "69.00", q.NewPeriodPrice.StringFixed(2))
	assert.Equal(t, "49.67", q.NetDue.StringFixed(2), "neto = precio nuevo − crédito")
}

// TestComputeQuote_InicioDePeriodo con cero días consumidos el crédito debe ser
// el importe pagado exacto (frontera de la propiedad de prorrateo).
func TestComputeQuote_InicioDePeriodo(t *testing.T) {
	asOf := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	q, err := billing.ComputeQuote(periodoHost30Dias(), destinoPro(entity.PeriodMonthly), asOf)
	require.NoError(t, err)

	assert.Equal(t, 0, q.DaysUsed)
	assert.True(t, q.CreditAmount.Equal(decimal.NewFromFloat(29.00)),
		"con daysUsed=0 el crédito es el importe pagado completo, fue %s", q.CreditAmount)
}

// TestComputeQuote_PeriodoAgotado con el periodo consumido la fórmula da crédito 0
// y neto igual al precio completo, sin rama especial.
func TestComputeQuote_PeriodoAgotado(t *testing.T) {
	asOf := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	q, err := billing.ComputeQuote(periodoHost30Dias(), destinoPro(entity.PeriodMonthly), asOf)
	require.NoError(t, err)

	assert.Equal(t, 0, q.DaysRemaining)
	assert.True(t, q.CreditAmount.IsZero(), "crédito debe ser 0 con el periodo agotado")
	assert.True(t, q.NetDue.Equal(q.NewPeriodPrice), "neto debe ser el precio completo del nuevo periodo")
}

// TestComputeQuote_AsOfPosteriorAlFin un asOf más allá del fin del periodo se
// comporta igual que el periodo agotado (clamp, nunca crédito negativo).
func TestComputeQuote_AsOfPosteriorAlFin(t *testing.T) {
	asOf := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)

	q, err := billing.ComputeQuote(periodoHost30Dias(), destinoPro(entity.PeriodMonthly), asOf)
	require.NoError(t, err)

	assert.Equal(t, 0, q.DaysRemaining)
	assert.True(t, q.CreditAmount.IsZero())
}

// TestComputeQuote_MonotoniaCredito para importe y periodo fijos, el crédito nunca
// crece al avanzar los días consumidos, y llega exactamente a 0 al final.
func TestComputeQuote_MonotoniaCredito(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	prev := decimal.NewFromInt(1 << 30)

	for day := 0; day <= 30; day++ {
		asOf := start.AddDate(0, 0, day)
		q, err := billing.ComputeQuote(periodoHost30Dias(), destinoPro(entity.PeriodMonthly), asOf)
		require.NoError(t, err, "día %d", day)

		assert.True(t, q.CreditAmount.LessThanOrEqual(prev),
			"el crédito no puede crecer: día %d, %s > %s", day, q.CreditAmount, prev)
		prev = q.CreditAmount
	}
	assert.True(t, prev.IsZero(), "crédito final debe ser exactamente 0")
}

// TestComputeQuote_PeriodoPromocional importe pagado 0 (periodo de regalo) produce
// crédito 0 y neto igual al precio completo.
func TestComputeQuote_PeriodoPromocional(t *testing.T) {
	current := periodoHost30Dias()
	current.AmountPaid = decimal.Zero
	asOf := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)

	q, err := billing.ComputeQuote(current, destinoPro(entity.PeriodMonthly), asOf)
	require.NoError(t, err)

	assert.True(t, q.CreditAmount.IsZero())
	assert.True(t, q.NetDue.Equal(q.NewPeriodPrice))
}

// ── Puerta de elegibilidad ────────────────────────────────────────────────────

func TestComputeQuote_MismoPlanMismoPeriodo_NoElegible(t *testing.T) {
	plan, _ := billing.GetPlan("HOST")
	asOf := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)

	_, err := billing.ComputeQuote(periodoHost30Dias(),
		billing.ChangeRequest{Plan: plan, PeriodKind: entity.PeriodMonthly}, asOf)
	assert.ErrorIs(t, err, domain.ErrNotEligible)
}

func TestComputeQuote_DowngradeDePlan_NoElegible(t *testing.T) {
	current := periodoHost30Dias()
	current.PlanCode = "PRO"
	plan, _ := billing.GetPlan("HOST")
	asOf := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)

	_, err := billing.ComputeQuote(current,
		billing.ChangeRequest{Plan: plan, PeriodKind: entity.PeriodAnnual}, asOf)
	assert.ErrorIs(t, err, domain.ErrNotEligible,
		"bajar de tier no prorratea aunque el periodo suba")
}

func TestComputeQuote_DowngradeDePeriodo_NoElegible(t *testing.T) {
	current := periodoHost30Dias()
	current.PeriodKind = entity.PeriodAnnual
	current.EndDate = current.StartDate.AddDate(1, 0, 0)
	asOf := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)

	_, err := billing.ComputeQuote(current, destinoPro(entity.PeriodMonthly), asOf)
	assert.ErrorIs(t, err, domain.ErrNotEligible,
		"subir de tier bajando de periodo tampoco prorratea")
}

func TestComputeQuote_UpgradeDePeriodoMismoPlan_Elegible(t *testing.T) {
	plan, _ := billing.GetPlan("HOST")
	asOf := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)

	q, err := billing.ComputeQuote(periodoHost30Dias(),
		billing.ChangeRequest{Plan: plan, PeriodKind: entity.PeriodAnnual}, asOf)
	require.NoError(t, err)

	// 29 × 12 × 0.80 = 278.40 (descuento anual 20%)
	assert.Equal(t, "278.40", q.NewPeriodPrice.StringFixed(2))
}

// ── Validación de entrada ─────────────────────────────────────────────────────

func TestComputeQuote_PeriodoInvalido(t *testing.T) {
	current := periodoHost30Dias()
	current.EndDate = current.StartDate // daysTotal == 0
	asOf := current.StartDate

	_, err := billing.ComputeQuote(current, destinoPro(entity.PeriodMonthly), asOf)
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
}

func TestComputeQuote_Idempotente(t *testing.T) {
	asOf := time.Date(2025, 6, 11, 9, 30, 0, 0, time.UTC)

	q1, err1 := billing.ComputeQuote(periodoHost30Dias(), destinoPro(entity.PeriodSemiannual), asOf)
	q2, err2 := billing.ComputeQuote(periodoHost30Dias(), destinoPro(entity.PeriodSemiannual), asOf)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, q1, q2, "mismas entradas deben producir el mismo presupuesto, redondeo incluido")
}

// TestPeriodPrice_Descuentos precios de periodo publicados: semestral 10%, anual 20%.
func TestPeriodPrice_Descuentos(t *testing.T) {
	monthly := decimal.NewFromFloat(69.00)

	assert.Equal(t, "69.00", billing.PeriodPrice(monthly, entity.PeriodMonthly).StringFixed(2))
	assert.Equal(t, "372.60", billing.PeriodPrice(monthly, entity.PeriodSemiannual).StringFixed(2)) // 69×6×0.90
	assert.Equal(t, "662.40", billing.PeriodPrice(monthly, entity.PeriodAnnual).StringFixed(2))     // 69×12×0.80
}
