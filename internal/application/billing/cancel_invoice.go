package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hostalia/billing-api/internal/domain"
	"github.com/hostalia/billing-api/internal/domain/entity"
	"github.com/hostalia/billing-api/internal/domain/repository"
	"github.com/hostalia/billing-api/internal/domain/verifactu"
	"github.com/hostalia/billing-api/pkg/logger"
)

// CancelInvoiceUseCase anula facturas emitidas generando el registro de anulación
// encadenado (RegistroAnulacion).
//
// Anular no borra nada: la factura pasa a CANCELLED conservando número, huella e
// importes, y el registro de anulación se encadena a la cola VIGENTE de la serie,
// que puede haber avanzado desde que se emitió la factura. La anulación avanza la
// huella de la serie sin consumir número.
type CancelInvoiceUseCase struct {
	invoiceRepo repository.InvoiceRepository
	txRunner    FiscalTxRunner
	huella      *verifactu.HuellaService
	gateway     *GatewayOrchestrator
	cfg         AEATConfig
	log         *logger.Logger
	now         func() time.Time
}

// NewCancelInvoiceUseCase construye el caso de uso.
func NewCancelInvoiceUseCase(
	invoiceRepo repository.InvoiceRepository,
	txRunner FiscalTxRunner,
	huella *verifactu.HuellaService,
	gateway *GatewayOrchestrator,
	cfg AEATConfig,
	log *logger.Logger,
) *CancelInvoiceUseCase {
	return &CancelInvoiceUseCase{
		invoiceRepo: invoiceRepo,
		txRunner:    txRunner,
		huella:      huella,
		gateway:     gateway,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}
}

// Execute anula la factura y remite el registro de anulación a la AEAT.
func (uc *CancelInvoiceUseCase) Execute(ctx context.Context, invoiceID string) (*entity.Invoice, *entity.CancellationRecord, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	if !cancellable(inv) {
		return nil, nil, fmt.Errorf("%w: estado %s", domain.ErrNotCancellable, inv.Status)
	}

	record := &entity.CancellationRecord{
		ID:            uuid.NewString(),
		InvoiceID:     inv.ID,
		GatewayStatus: entity.GatewayPending,
	}

	var lastErr error
	for attempt := 1; attempt <= maxSeriesRetries; attempt++ {
		lastErr = uc.txRunner.RunFiscal(ctx, func(
			invoiceRepo repository.InvoiceRepository,
			seriesRepo repository.InvoiceSeriesRepository,
			cancellationRepo repository.CancellationRepository,
		) error {
			// Doble anulación: la segunda petición encuentra el registro y aborta.
			if existing, err := cancellationRepo.GetByInvoiceID(ctx, inv.ID); err == nil && existing != nil {
				return fmt.Errorf("%w: ya existe registro de anulación", domain.ErrNotCancellable)
			}

			series, err := seriesRepo.Lock(ctx, uc.cfg.IssuerNIF, inv.SeriesPrefix, inv.Year)
			if err != nil {
				return err
			}

			record.GeneratedAt = uc.now()
			huella, err := uc.huella.CalculateAnulacion(&verifactu.AnulacionParams{
				IDEmisorFacturaAnulada:        inv.IssuerNIF,
				NumSerieFacturaAnulada:        inv.FullNumber,
				FechaExpedicionFacturaAnulada: inv.IssueDate,
				HuellaAnterior:                series.LastHuella,
				FechaHoraHusoGen:              record.GeneratedAt,
			})
			if err != nil {
				return err
			}
			record.Huella = huella
			record.HuellaAnterior = series.LastHuella

			if err := cancellationRepo.Create(ctx, record); err != nil {
				return err
			}
			if err := invoiceRepo.UpdateStatus(ctx, inv.ID, entity.InvoiceStatusCancelled); err != nil {
				return err
			}
			// La anulación avanza la cola de huella sin mover el número.
			return seriesRepo.Advance(ctx, series.ID, series.LastNumber, huella)
		})

		if lastErr == nil {
			break
		}
		if !errors.Is(lastErr, domain.ErrSeriesContention) {
			return nil, nil, lastErr
		}
		uc.log.Warn().Str("invoice_id", inv.ID).Int("intento", attempt).
			Msg("serie bloqueada, reintentando la anulación")
	}
	if lastErr != nil {
		return nil, nil, lastErr
	}

	cancelledAt := record.GeneratedAt
	inv.Status = entity.InvoiceStatusCancelled
	inv.CancelledAt = &cancelledAt

	uc.log.Info().Str("invoice_id", inv.ID).Str("numero", inv.FullNumber).
		Str("huella_anulacion", record.Huella).Msg("factura anulada")

	uc.gateway.SubmitAnulacion(ctx, inv, record)
	return inv, record, nil
}

// cancellable solo facturas ya emitidas con huella fiscal. Un borrador se borra,
// nunca se anula; una anulada no se anula dos veces.
func cancellable(inv *entity.Invoice) bool {
	if inv.Huella == "" {
		return false
	}
	switch inv.Status {
	case entity.InvoiceStatusIssued, entity.InvoiceStatusSent, entity.InvoiceStatusPaid:
		return true
	}
	return false
}
