package repository

import (
	"context"

	"github.com/hostalia/billing-api/internal/domain/entity"
)

// SubmissionRepository define el puerto del registro de auditoría de envíos AEAT.
// Solo inserta y lista: las filas de auditoría nunca se actualizan ni se borran.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *entity.FiscalSubmission) error
	ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.FiscalSubmission, error)
}
