package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hostalia/billing-api/internal/domain"
	"github.com/hostalia/billing-api/internal/domain/entity"
	"github.com/hostalia/billing-api/internal/domain/repository"
	"github.com/hostalia/billing-api/internal/domain/verifactu"
	"github.com/hostalia/billing-api/pkg/logger"
)

// RectifyInvoiceInput solicitud de rectificativa sobre una factura emitida.
type RectifyInvoiceInput struct {
	OriginalInvoiceID string
	Kind              string // S (sustitución) | I (diferencias)
	Description       string
	Lines             []IssueLineInput
}

// RectifyInvoiceUseCase emite facturas rectificativas (R1). Una rectificativa es
// una factura nueva: consume número de la serie, calcula su propia huella y entra
// en la cadena por el camino normal de emisión. La original no se toca; su resumen
// (número, fecha, total) queda congelado dentro de la rectificativa.
type RectifyInvoiceUseCase struct {
	invoiceRepo repository.InvoiceRepository
	txRunner    FiscalTxRunner
	huella      *verifactu.HuellaService
	gateway     *GatewayOrchestrator
	cfg         AEATConfig
	log         *logger.Logger
	now         func() time.Time
}

// NewRectifyInvoiceUseCase construye el caso de uso. invoiceRepo va atado al pool:
// la lectura de la original ocurre fuera de la transacción de emisión.
func NewRectifyInvoiceUseCase(
	invoiceRepo repository.InvoiceRepository,
	txRunner FiscalTxRunner,
	huella *verifactu.HuellaService,
	gateway *GatewayOrchestrator,
	cfg AEATConfig,
	log *logger.Logger,
) *RectifyInvoiceUseCase {
	return &RectifyInvoiceUseCase{
		invoiceRepo: invoiceRepo,
		txRunner:    txRunner,
		huella:      huella,
		gateway:     gateway,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}
}

// Execute valida la original, construye la rectificativa y la emite encadenada.
func (uc *RectifyInvoiceUseCase) Execute(ctx context.Context, in *RectifyInvoiceInput) (*entity.Invoice, []*entity.InvoiceLine, error) {
	if in == nil {
		return nil, nil, fmt.Errorf("%w: solicitud vacía", domain.ErrInvalidInput)
	}
	kind := strings.ToUpper(strings.TrimSpace(in.Kind))
	if kind != entity.RectificationSubstitution && kind != entity.RectificationDifference {
		return nil, nil, fmt.Errorf("%w: tipo de rectificativa %q (usar S o I)", domain.ErrInvalidInput, in.Kind)
	}

	original, err := uc.invoiceRepo.GetByID(ctx, in.OriginalInvoiceID)
	if err != nil {
		return nil, nil, err
	}
	// Solo se rectifica lo que ya está en la cadena fiscal. Un borrador se edita
	// y una anulada ya no produce efectos que corregir.
	if original.Huella == "" || original.Status == entity.InvoiceStatusDraft ||
		original.Status == entity.InvoiceStatusCancelled {
		return nil, nil, fmt.Errorf("%w: la factura %s no admite rectificación en estado %s",
			domain.ErrInvalidInput, original.FullNumber, original.Status)
	}

	invoiceID := uuid.NewString()
	lines, subtotal, vat, ret := computeLines(invoiceID, in.Lines)

	inv := &entity.Invoice{
		ID:              invoiceID,
		SeriesPrefix:    original.SeriesPrefix,
		IssuerNIF:       uc.cfg.IssuerNIF,
		IssuerName:      uc.cfg.IssuerName,
		RecipientNIF:    original.RecipientNIF,
		RecipientName:   original.RecipientName,
		Description:     strings.TrimSpace(in.Description),
		Subtotal:        subtotal,
		VATAmount:       vat,
		RetentionAmount: ret,
		Total:           subtotal.Add(vat).Sub(ret),
		Status:          entity.InvoiceStatusDraft,
		InvoiceType:     entity.InvoiceTypeR1,

		IsRectifying:        true,
		RectificationKind:   kind,
		RectifiesInvoiceID:  original.ID,
		RectifiedFullNumber: original.FullNumber,
		RectifiedIssueDate:  original.IssueDate,
		RectifiedTotal:      original.Total,

		GatewayStatus: entity.GatewayPending,
	}

	if err := verifactu.ValidateInvoice(inv, lines); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	if err := issueChained(ctx, uc.txRunner, uc.huella, uc.cfg, uc.log, uc.now, inv, lines); err != nil {
		return nil, nil, err
	}

	uc.log.Info().Str("invoice_id", inv.ID).Str("numero", inv.FullNumber).
		Str("rectifica", original.FullNumber).Str("tipo", kind).
		Msg("rectificativa emitida")

	uc.gateway.SubmitAlta(ctx, inv, lines)
	return inv, lines, nil
}
