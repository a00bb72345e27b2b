package repository

import (
	"context"

	"github.com/hostalia/billing-api/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para facturas y sus líneas.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	CreateLine(ctx context.Context, line *entity.InvoiceLine) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	GetLines(ctx context.Context, invoiceID string) ([]*entity.InvoiceLine, error)

	// UpdateStatus transiciona solo el estado del ciclo de vida (y cancelled_at si
	// aplica). Los campos facturables y la huella jamás se tocan tras la emisión.
	UpdateStatus(ctx context.Context, id, status string) error

	// UpdateGateway actualiza únicamente los campos de envío AEAT:
	// gateway_status, gateway_csv, gateway_errors.
	UpdateGateway(ctx context.Context, id, status, csv, errs string) error

	// GetStatus devuelve solo los campos de estado (ligero, para polling).
	GetStatus(ctx context.Context, id string) (*entity.Invoice, error)
}
