package billing

import (
	"context"
	"fmt"

	"github.com/hostalia/billing-api/internal/domain"
	"github.com/hostalia/billing-api/internal/domain/repository"
)

// InvoicePDFUseCase genera la representación gráfica de una factura emitida.
type InvoicePDFUseCase struct {
	invoiceRepo repository.InvoiceRepository
	generator   InvoicePDFGenerator
}

// NewInvoicePDFUseCase construye el caso de uso.
func NewInvoicePDFUseCase(invoiceRepo repository.InvoiceRepository, generator InvoicePDFGenerator) *InvoicePDFUseCase {
	return &InvoicePDFUseCase{invoiceRepo: invoiceRepo, generator: generator}
}

// Execute devuelve el PDF y el nombre de archivo sugerido. Solo hay representación
// gráfica de facturas con huella: un borrador no tiene número ni QR que imprimir.
func (uc *InvoicePDFUseCase) Execute(ctx context.Context, invoiceID string) ([]byte, string, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, "", err
	}
	if inv.Huella == "" {
		return nil, "", fmt.Errorf("%w: la factura aún no tiene huella fiscal", domain.ErrInvalidInput)
	}
	lines, err := uc.invoiceRepo.GetLines(ctx, invoiceID)
	if err != nil {
		return nil, "", err
	}

	pdf, err := uc.generator.Generate(inv, lines)
	if err != nil {
		return nil, "", fmt.Errorf("generación de PDF: %w", err)
	}
	return pdf, fmt.Sprintf("factura-%s.pdf", inv.FullNumber), nil
}
