package billing

import (
	"context"

	"github.com/hostalia/billing-api/internal/domain/entity"
	"github.com/hostalia/billing-api/internal/domain/repository"
)

// InvoiceQueryUseCase consultas de lectura sobre facturas y series.
type InvoiceQueryUseCase struct {
	invoiceRepo    repository.InvoiceRepository
	seriesRepo     repository.InvoiceSeriesRepository
	submissionRepo repository.SubmissionRepository
	cfg            AEATConfig
}

// NewInvoiceQueryUseCase construye el caso de uso.
func NewInvoiceQueryUseCase(
	invoiceRepo repository.InvoiceRepository,
	seriesRepo repository.InvoiceSeriesRepository,
	submissionRepo repository.SubmissionRepository,
	cfg AEATConfig,
) *InvoiceQueryUseCase {
	return &InvoiceQueryUseCase{
		invoiceRepo:    invoiceRepo,
		seriesRepo:     seriesRepo,
		submissionRepo: submissionRepo,
		cfg:            cfg,
	}
}

// GetByID devuelve la factura con sus líneas.
func (uc *InvoiceQueryUseCase) GetByID(ctx context.Context, id string) (*entity.Invoice, []*entity.InvoiceLine, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	lines, err := uc.invoiceRepo.GetLines(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return inv, lines, nil
}

// GetStatus consulta ligera de estado para polling.
func (uc *InvoiceQueryUseCase) GetStatus(ctx context.Context, id string) (*entity.Invoice, error) {
	return uc.invoiceRepo.GetStatus(ctx, id)
}

// ListSubmissions historial de intentos de envío a la AEAT de la factura.
func (uc *InvoiceQueryUseCase) ListSubmissions(ctx context.Context, invoiceID string) ([]*entity.FiscalSubmission, error) {
	return uc.submissionRepo.ListByInvoice(ctx, invoiceID)
}

// NextNumber siguiente número esperado de la serie, sin reservarlo. La reserva
// real ocurre bajo bloqueo dentro de la transacción de emisión: este valor puede
// quedarse obsoleto entre la consulta y la emisión.
func (uc *InvoiceQueryUseCase) NextNumber(ctx context.Context, prefix string, year int) (*entity.InvoiceSeries, error) {
	return uc.seriesRepo.GetByKey(ctx, uc.cfg.IssuerNIF, prefix, year)
}
