package repository

import (
	"context"

	"github.com/hostalia/billing-api/internal/domain/entity"
)

// SubscriptionRepository define el puerto de persistencia para periodos de suscripción.
type SubscriptionRepository interface {
	Create(ctx context.Context, period *entity.SubscriptionPeriod) error

	// GetActiveBySubscriber devuelve el periodo ACTIVE del suscriptor, el único que
	// puede prorratearse. domain.ErrNotFound si no tiene suscripción vigente.
	GetActiveBySubscriber(ctx context.Context, subscriberID string) (*entity.SubscriptionPeriod, error)

	// Supersede marca el periodo como SUPERSEDED al aplicarse un upgrade. El periodo
	// antiguo se conserva: el crédito abonado queda trazable contra él.
	Supersede(ctx context.Context, id string) error
}
