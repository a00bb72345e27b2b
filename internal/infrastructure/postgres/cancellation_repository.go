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

var _ repository.CancellationRepository = (*CancellationRepo)(nil)

// CancellationRepo implementación de CancellationRepository (usable con pool o tx).
type CancellationRepo struct {
	q Querier
}

// NewCancellationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCancellationRepository(q Querier) *CancellationRepo {
	return &CancellationRepo{q: q}
}

// Create persiste el registro de anulación. El índice único sobre invoice_id hace
// de última barrera contra la doble anulación.
func (r *CancellationRepo) Create(ctx context.Context, rec *entity.CancellationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	query := `
		INSERT INTO cancellation_records (id, invoice_id, huella, huella_anterior,
			generated_at, gateway_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())`
	_, err := r.q.Exec(ctx, query, rec.ID, rec.InvoiceID, rec.Huella,
		nullIfEmpty(rec.HuellaAnterior), rec.GeneratedAt, rec.GatewayStatus)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: ya existe registro de anulación", domain.ErrNotCancellable)
		}
		return fmt.Errorf("insert cancellation record: %w", err)
	}
	return nil
}

// GetByInvoiceID devuelve el registro de anulación de la factura.
func (r *CancellationRepo) GetByInvoiceID(ctx context.Context, invoiceID string) (*entity.CancellationRecord, error) {
	query := `
		SELECT id, invoice_id, huella, COALESCE(huella_anterior, ''),
		       generated_at, gateway_status, created_at
		FROM cancellation_records WHERE invoice_id = $1`
	var rec entity.CancellationRecord
	err := r.q.QueryRow(ctx, query, invoiceID).Scan(
		&rec.ID, &rec.InvoiceID, &rec.Huella, &rec.HuellaAnterior,
		&rec.GeneratedAt, &rec.GatewayStatus, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get cancellation record: %w", err)
	}
	return &rec, nil
}

// UpdateGateway actualiza el estado de envío AEAT del registro de anulación.
func (r *CancellationRepo) UpdateGateway(ctx context.Context, id, status string) error {
	query := `UPDATE cancellation_records SET gateway_status = $2 WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update cancellation gateway: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
