package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingPeriodKind duración del periodo de facturación de una suscripción.
type BillingPeriodKind string

const (
	PeriodMonthly    BillingPeriodKind = "MONTHLY"
	PeriodSemiannual BillingPeriodKind = "SEMIANNUAL"
	PeriodAnnual     BillingPeriodKind = "ANNUAL"
)

// Estados de un periodo de suscripción.
const (
	SubscriptionActive     = "ACTIVE"
	SubscriptionSuperseded = "SUPERSEDED" // cerrado por un cambio de plan; nunca se muta el importe
	SubscriptionExpired    = "EXPIRED"
)

// SubscriptionPeriod representa un intervalo pagado de una suscripción.
// AmountPaid es el importe exacto cobrado por este intervalo concreto; no se recalcula
// nunca retroactivamente. Un cambio de plan cierra el periodo (SUPERSEDED) y crea uno
// nuevo que empieza justo después: los periodos se suceden, no se editan.
type SubscriptionPeriod struct {
	ID           string
	SubscriberID string
	PlanCode     string
	PeriodKind   BillingPeriodKind
	StartDate    time.Time
	EndDate      time.Time
	AmountPaid   decimal.Decimal
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
