package repository

import (
	"context"

	"github.com/hostalia/billing-api/internal/domain/entity"
)

// CancellationRepository define el puerto de persistencia para registros de anulación.
type CancellationRepository interface {
	Create(ctx context.Context, record *entity.CancellationRecord) error

	// GetByInvoiceID devuelve el registro de anulación de la factura, si existe.
	// Como máximo hay uno: anular dos veces está vetado en el caso de uso.
	GetByInvoiceID(ctx context.Context, invoiceID string) (*entity.CancellationRecord, error)

	// UpdateGateway actualiza el estado de envío AEAT del registro de anulación.
	UpdateGateway(ctx context.Context, id, status string) error
}
