package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hostalia/billing-api/internal/domain/entity"
	"github.com/hostalia/billing-api/internal/domain/repository"
)

var _ repository.SubmissionRepository = (*SubmissionRepo)(nil)

// SubmissionRepo auditoría de envíos AEAT. Solo INSERT y SELECT: no hay UPDATE ni
// DELETE sobre esta tabla en todo el código.
type SubmissionRepo struct {
	q Querier
}

// NewSubmissionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSubmissionRepository(q Querier) *SubmissionRepo {
	return &SubmissionRepo{q: q}
}

// Create inserta la fila de auditoría de un intento de envío.
func (r *SubmissionRepo) Create(ctx context.Context, s *entity.FiscalSubmission) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	query := `
		INSERT INTO fiscal_submissions (id, invoice_id, kind, payload, response,
			outcome, error_message, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query, s.ID, s.InvoiceID, s.Kind, s.Payload,
		nullIfEmpty(s.Response), s.Outcome, nullIfEmpty(s.ErrorMessage), s.AttemptedAt)
	if err != nil {
		return fmt.Errorf("insert fiscal submission: %w", err)
	}
	return nil
}

// ListByInvoice historial de intentos de una factura, el más antiguo primero.
func (r *SubmissionRepo) ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.FiscalSubmission, error) {
	query := `
		SELECT id, invoice_id, kind, payload, COALESCE(response, ''),
		       outcome, COALESCE(error_message, ''), attempted_at
		FROM fiscal_submissions WHERE invoice_id = $1 ORDER BY attempted_at`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list fiscal submissions: %w", err)
	}
	defer rows.Close()

	var list []*entity.FiscalSubmission
	for rows.Next() {
		var s entity.FiscalSubmission
		if err := rows.Scan(&s.ID, &s.InvoiceID, &s.Kind, &s.Payload, &s.Response,
			&s.Outcome, &s.ErrorMessage, &s.AttemptedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}
