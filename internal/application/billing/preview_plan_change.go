package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hostalia/billing-api/internal/domain"
	domainbilling "github.com/hostalia/billing-api/internal/domain/billing"
	"github.com/hostalia/billing-api/internal/domain/repository"
)

// PlanChangePreview presupuesto de prorrateo con el contexto del periodo actual.
type PlanChangePreview struct {
	CurrentPlan   string
	CurrentPeriod string
	TargetPlan    string
	TargetPeriod  string
	Quote         *domainbilling.Quote
}

// PreviewPlanChangeUseCase calcula el presupuesto de prorrateo de un cambio de plan.
// Solo lectura: no reserva número, no crea factura, no muta la suscripción. El
// presupuesto es efímero y se recalcula en cada llamada.
type PreviewPlanChangeUseCase struct {
	subscriptionRepo repository.SubscriptionRepository
	now              func() time.Time
}

// NewPreviewPlanChangeUseCase construye el caso de uso.
func NewPreviewPlanChangeUseCase(subscriptionRepo repository.SubscriptionRepository) *PreviewPlanChangeUseCase {
	return &PreviewPlanChangeUseCase{subscriptionRepo: subscriptionRepo, now: time.Now}
}

// Execute calcula el presupuesto para el suscriptor autenticado.
//
// Los rechazos distinguen el motivo para que el frontend pueda explicar al
// usuario: mismo plan y periodo frente a downgrade (que debe esperar al fin del
// periodo vigente, incluido en el mensaje).
func (uc *PreviewPlanChangeUseCase) Execute(ctx context.Context, subscriberID, targetPlanCode, targetPeriod string) (*PlanChangePreview, error) {
	targetPlan, ok := domainbilling.GetPlan(targetPlanCode)
	if !ok {
		return nil, fmt.Errorf("%w: plan desconocido %q", domain.ErrInvalidInput, targetPlanCode)
	}
	kind, ok := domainbilling.ParsePeriodKind(targetPeriod)
	if !ok {
		return nil, fmt.Errorf("%w: periodo desconocido %q", domain.ErrInvalidInput, targetPeriod)
	}

	period, err := uc.subscriptionRepo.GetActiveBySubscriber(ctx, subscriberID)
	if err != nil {
		return nil, err
	}

	current := domainbilling.CurrentPeriod{
		PlanCode:   period.PlanCode,
		PeriodKind: period.PeriodKind,
		StartDate:  period.StartDate,
		EndDate:    period.EndDate,
		AmountPaid: period.AmountPaid,
	}

	quote, err := domainbilling.ComputeQuote(current, domainbilling.ChangeRequest{
		Plan:       targetPlan,
		PeriodKind: kind,
	}, uc.now())
	if err != nil {
		if errors.Is(err, domain.ErrNotEligible) {
			return nil, uc.notEligible(period.PlanCode, string(period.PeriodKind), targetPlan.Code, string(kind), period.EndDate)
		}
		return nil, err
	}

	return &PlanChangePreview{
		CurrentPlan:   period.PlanCode,
		CurrentPeriod: string(period.PeriodKind),
		TargetPlan:    targetPlan.Code,
		TargetPeriod:  string(kind),
		Quote:         quote,
	}, nil
}

// notEligible envuelve ErrNotEligible con el motivo concreto.
func (uc *PreviewPlanChangeUseCase) notEligible(curPlan, curPeriod, tgtPlan, tgtPeriod string, endDate time.Time) error {
	if curPlan == tgtPlan && curPeriod == tgtPeriod {
		return fmt.Errorf("%w: ya tienes el plan %s %s", domain.ErrNotEligible, curPlan, curPeriod)
	}
	return fmt.Errorf("%w: los downgrades se aplican al terminar el periodo vigente (%s)",
		domain.ErrNotEligible, endDate.Format("2006-01-02"))
}
