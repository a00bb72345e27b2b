package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hostalia/billing-api/internal/domain"
	"github.com/hostalia/billing-api/internal/domain/entity"
	"github.com/hostalia/billing-api/internal/domain/repository"
)

var _ repository.SubscriptionRepository = (*SubscriptionRepo)(nil)

// SubscriptionRepo implementación de SubscriptionRepository (usable con pool o tx).
type SubscriptionRepo struct {
	q Querier
}

// NewSubscriptionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSubscriptionRepository(q Querier) *SubscriptionRepo {
	return &SubscriptionRepo{q: q}
}

// Create persiste un periodo de suscripción.
func (r *SubscriptionRepo) Create(ctx context.Context, p *entity.SubscriptionPeriod) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	query := `
		INSERT INTO subscription_periods (id, subscriber_id, plan_code, period_kind,
			start_date, end_date, amount_paid, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())`
	_, err := r.q.Exec(ctx, query, p.ID, p.SubscriberID, p.PlanCode, string(p.PeriodKind),
		p.StartDate, p.EndDate, p.AmountPaid, p.Status)
	if err != nil {
		return fmt.Errorf("insert subscription period: %w", err)
	}
	return nil
}

// GetActiveBySubscriber devuelve el periodo ACTIVE del suscriptor.
func (r *SubscriptionRepo) GetActiveBySubscriber(ctx context.Context, subscriberID string) (*entity.SubscriptionPeriod, error) {
	query := `
		SELECT id, subscriber_id, plan_code, period_kind, start_date, end_date,
		       amount_paid, status, created_at, updated_at
		FROM subscription_periods
		WHERE subscriber_id = $1 AND status = 'ACTIVE'
		ORDER BY start_date DESC
		LIMIT 1`
	var p entity.SubscriptionPeriod
	var kind string
	err := r.q.QueryRow(ctx, query, subscriberID).Scan(
		&p.ID, &p.SubscriberID, &p.PlanCode, &kind, &p.StartDate, &p.EndDate,
		&p.AmountPaid, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get active subscription: %w", err)
	}
	p.PeriodKind = entity.BillingPeriodKind(kind)
	return &p, nil
}

// Supersede cierra el periodo al aplicarse un cambio de plan. El importe pagado
// queda congelado: solo cambia el estado.
func (r *SubscriptionRepo) Supersede(ctx context.Context, id string) error {
	query := `
		UPDATE subscription_periods
		SET status = 'SUPERSEDED', updated_at = now()
		WHERE id = $1 AND status = 'ACTIVE'`
	tag, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("supersede subscription period: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
