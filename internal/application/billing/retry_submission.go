package billing

import (
	"context"
	"fmt"

	"github.com/hostalia/billing-api/internal/domain"
	"github.com/hostalia/billing-api/internal/domain/entity"
	"github.com/hostalia/billing-api/internal/domain/repository"
	"github.com/hostalia/billing-api/pkg/logger"
)

// RetrySubmissionUseCase reintento explícito del envío a la AEAT. El sistema
// nunca reenvía solo: este caso de uso es el único camino de reintento.
//
// Guarda de duplicados: solo se reintenta con subestado PENDING o ERROR. Un
// registro ya SUBMITTED o ACCEPTED devuelve ErrDuplicateSubmission; reenviarlo
// duplicaría el registro ante la AEAT.
type RetrySubmissionUseCase struct {
	invoiceRepo repository.InvoiceRepository
	cancelRepo  repository.CancellationRepository
	gateway     *GatewayOrchestrator
	log         *logger.Logger
}

// NewRetrySubmissionUseCase construye el caso de uso.
func NewRetrySubmissionUseCase(
	invoiceRepo repository.InvoiceRepository,
	cancelRepo repository.CancellationRepository,
	gateway *GatewayOrchestrator,
	log *logger.Logger,
) *RetrySubmissionUseCase {
	return &RetrySubmissionUseCase{
		invoiceRepo: invoiceRepo,
		cancelRepo:  cancelRepo,
		gateway:     gateway,
		log:         log,
	}
}

// Execute reintenta el envío pendiente de la factura: el alta si sigue viva, el
// registro de anulación si está CANCELLED.
func (uc *RetrySubmissionUseCase) Execute(ctx context.Context, invoiceID string) (*entity.Invoice, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == entity.InvoiceStatusDraft {
		return nil, fmt.Errorf("%w: un borrador no tiene registro que remitir", domain.ErrInvalidInput)
	}

	if inv.Status == entity.InvoiceStatusCancelled {
		record, err := uc.cancelRepo.GetByInvoiceID(ctx, inv.ID)
		if err != nil {
			return nil, err
		}
		if !retryable(record.GatewayStatus) {
			return nil, fmt.Errorf("%w: anulación en estado %s", domain.ErrDuplicateSubmission, record.GatewayStatus)
		}
		uc.log.Info().Str("invoice_id", inv.ID).Msg("reintentando envío del registro de anulación")
		uc.gateway.SubmitAnulacion(ctx, inv, record)
		return inv, nil
	}

	if !retryable(inv.GatewayStatus) {
		return nil, fmt.Errorf("%w: alta en estado %s", domain.ErrDuplicateSubmission, inv.GatewayStatus)
	}

	lines, err := uc.invoiceRepo.GetLines(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("invoice_id", inv.ID).Msg("reintentando envío del registro de alta")
	uc.gateway.SubmitAlta(ctx, inv, lines)
	return inv, nil
}

func retryable(gatewayStatus string) bool {
	return gatewayStatus == entity.GatewayPending || gatewayStatus == entity.GatewayError
}
