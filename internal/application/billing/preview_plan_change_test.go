package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appbilling "github.com/hostalia/billing-api/internal/application/billing"
	"github.com/hostalia/billing-api/internal/domain"
	"github.com/hostalia/billing-api/internal/domain/entity"
)

type memSubscriptionRepo struct {
	active map[string]*entity.SubscriptionPeriod
}

func (r *memSubscriptionRepo) Create(_ context.Context, p *entity.SubscriptionPeriod) error {
	r.active[p.SubscriberID] = p
	return nil
}

func (r *memSubscriptionRepo) GetActiveBySubscriber(_ context.Context, subscriberID string) (*entity.SubscriptionPeriod, error) {
	p, ok := r.active[subscriberID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (r *memSubscriptionRepo) Supersede(_ context.Context, id string) error {
	for _, p := range r.active {
		if p.ID == id {
			p.Status = entity.SubscriptionSuperseded
			return nil
		}
	}
	return domain.ErrNotFound
}

func newPreviewEnv() (*appbilling.PreviewPlanChangeUseCase, *memSubscriptionRepo) {
	repo := &memSubscriptionRepo{active: map[string]*entity.SubscriptionPeriod{}}
	return appbilling.NewPreviewPlanChangeUseCase(repo), repo
}

func suscripcionHostMensual(subscriberID string) *entity.SubscriptionPeriod {
	// Periodo vigente que contiene el instante actual del test.
	start := time.Now().UTC().AddDate(0, 0, -10)
	return &entity.SubscriptionPeriod{
		ID:           "per-1",
		SubscriberID: subscriberID,
		PlanCode:     "HOST",
		PeriodKind:   entity.PeriodMonthly,
		StartDate:    start,
		EndDate:      start.AddDate(0, 1, 0),
		AmountPaid:   decimal.NewFromFloat(29.00),
		Status:       entity.SubscriptionActive,
	}
}

func TestPreviewPlanChange_UpgradeDevuelvePresupuesto(t *testing.T) {
	uc, repo := newPreviewEnv()
	repo.active["user-1"] = suscripcionHostMensual("user-1")

	preview, err := uc.Execute(context.Background(), "user-1", "PRO", "MONTHLY")
	require.NoError(t, err)

	assert.Equal(t, "HOST", preview.CurrentPlan)
	assert.Equal(t, "PRO", preview.TargetPlan)
	require.NotNil(t, preview.Quote)
	assert.True(t, preview.Quote.CreditAmount.IsPositive(),
		"con días restantes el crédito debe ser positivo")
	assert.True(t, preview.Quote.NetDue.LessThanOrEqual(preview.Quote.NewPeriodPrice))
}

func TestPreviewPlanChange_MismoPlanYPeriodo(t *testing.T) {
	uc, repo := newPreviewEnv()
	repo.active["user-1"] = suscripcionHostMensual("user-1")

	_, err := uc.Execute(context.Background(), "user-1", "HOST", "MONTHLY")
	require.ErrorIs(t, err, domain.ErrNotEligible)
	assert.Contains(t, err.Error(), "ya tienes el plan",
		"el motivo debe distinguir mismo plan de downgrade")
}

func TestPreviewPlanChange_DowngradeIncluyeFinDePeriodo(t *testing.T) {
	uc, repo := newPreviewEnv()
	sub := suscripcionHostMensual("user-1")
	sub.PlanCode = "BUSINESS"
	repo.active["user-1"] = sub

	_, err := uc.Execute(context.Background(), "user-1", "HOST", "MONTHLY")
	require.ErrorIs(t, err, domain.ErrNotEligible)
	assert.Contains(t, err.Error(), sub.EndDate.Format("2006-01-02"),
		"el mensaje de downgrade debe decir cuándo será posible el cambio")
}

func TestPreviewPlanChange_PlanDesconocido(t *testing.T) {
	uc, repo := newPreviewEnv()
	repo.active["user-1"] = suscripcionHostMensual("user-1")

	_, err := uc.Execute(context.Background(), "user-1", "ENTERPRISE", "MONTHLY")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPreviewPlanChange_PeriodoDesconocido(t *testing.T) {
	uc, repo := newPreviewEnv()
	repo.active["user-1"] = suscripcionHostMensual("user-1")

	_, err := uc.Execute(context.Background(), "user-1", "PRO", "WEEKLY")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPreviewPlanChange_SinSuscripcionActiva(t *testing.T) {
	uc, _ := newPreviewEnv()

	_, err := uc.Execute(context.Background(), "user-sin-sub", "PRO", "MONTHLY")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPreviewPlanChange_EsSoloLectura(t *testing.T) {
	uc, repo := newPreviewEnv()
	sub := suscripcionHostMensual("user-1")
	repo.active["user-1"] = sub

	_, err := uc.Execute(context.Background(), "user-1", "PRO", "ANNUAL")
	require.NoError(t, err)

	assert.Equal(t, entity.SubscriptionActive, sub.Status,
		"el preview no muta la suscripción")
	assert.Equal(t, "HOST", sub.PlanCode)
}
