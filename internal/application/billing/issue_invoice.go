package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hostalia/billing-api/internal/domain"
	"github.com/hostalia/billing-api/internal/domain/entity"
	"github.com/hostalia/billing-api/internal/domain/repository"
	"github.com/hostalia/billing-api/internal/domain/verifactu"
	"github.com/hostalia/billing-api/pkg/logger"
)

// maxSeriesRetries reintentos de la emisión completa ante contención de la serie.
const maxSeriesRetries = 3

// IssueLineInput línea de la factura a emitir. Los importes se calculan aquí,
// nunca los aporta el caller.
type IssueLineInput struct {
	Concept   string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	VATRate   decimal.Decimal
	RetRate   decimal.Decimal
}

// IssueInvoiceInput solicitud de emisión de factura completa (F1).
type IssueInvoiceInput struct {
	SeriesPrefix  string
	RecipientNIF  string
	RecipientName string
	Description   string
	Lines         []IssueLineInput
}

// IssueInvoiceUseCase emite facturas: asigna número gapless, calcula la huella
// encadenada y remite el registro de alta a la AEAT.
//
// La transacción de emisión bloquea la fila de la serie (FOR UPDATE NOWAIT),
// asigna lastNumber+1, calcula la huella con la cola vigente y avanza la serie.
// Si la serie está bloqueada por otra emisión se reintenta la operación completa
// hasta maxSeriesRetries veces; agotados los reintentos aflora ErrSeriesContention.
// El envío a la AEAT ocurre tras el commit: su fallo nunca deshace la emisión.
type IssueInvoiceUseCase struct {
	txRunner FiscalTxRunner
	huella   *verifactu.HuellaService
	gateway  *GatewayOrchestrator
	cfg      AEATConfig
	log      *logger.Logger
	now      func() time.Time
}

// NewIssueInvoiceUseCase construye el caso de uso.
func NewIssueInvoiceUseCase(
	txRunner FiscalTxRunner,
	huella *verifactu.HuellaService,
	gateway *GatewayOrchestrator,
	cfg AEATConfig,
	log *logger.Logger,
) *IssueInvoiceUseCase {
	return &IssueInvoiceUseCase{
		txRunner: txRunner,
		huella:   huella,
		gateway:  gateway,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Execute valida, emite y remite. Devuelve la factura ya emitida con sus líneas.
func (uc *IssueInvoiceUseCase) Execute(ctx context.Context, in *IssueInvoiceInput) (*entity.Invoice, []*entity.InvoiceLine, error) {
	inv, lines, err := uc.buildInvoice(in)
	if err != nil {
		return nil, nil, err
	}

	if err := issueChained(ctx, uc.txRunner, uc.huella, uc.cfg, uc.log, uc.now, inv, lines); err != nil {
		return nil, nil, err
	}

	uc.log.Info().Str("invoice_id", inv.ID).Str("numero", inv.FullNumber).
		Str("huella", inv.Huella).Msg("factura emitida")

	uc.gateway.SubmitAlta(ctx, inv, lines)
	return inv, lines, nil
}

// buildInvoice calcula los importes por línea (redondeo half-even por línea, después
// suma) y valida la factura resultante antes de tocar la base de datos.
func (uc *IssueInvoiceUseCase) buildInvoice(in *IssueInvoiceInput) (*entity.Invoice, []*entity.InvoiceLine, error) {
	if in == nil || strings.TrimSpace(in.SeriesPrefix) == "" {
		return nil, nil, fmt.Errorf("%w: prefijo de serie obligatorio", domain.ErrInvalidInput)
	}

	invoiceID := uuid.NewString()
	lines, subtotal, vat, ret := computeLines(invoiceID, in.Lines)

	inv := &entity.Invoice{
		ID:              invoiceID,
		SeriesPrefix:    strings.TrimSpace(in.SeriesPrefix),
		IssuerNIF:       uc.cfg.IssuerNIF,
		IssuerName:      uc.cfg.IssuerName,
		RecipientNIF:    strings.TrimSpace(in.RecipientNIF),
		RecipientName:   strings.TrimSpace(in.RecipientName),
		Description:     strings.TrimSpace(in.Description),
		Subtotal:        subtotal,
		VATAmount:       vat,
		RetentionAmount: ret,
		Total:           subtotal.Add(vat).Sub(ret),
		Status:          entity.InvoiceStatusDraft,
		InvoiceType:     entity.InvoiceTypeF1,
		GatewayStatus:   entity.GatewayPending,
	}

	if err := verifactu.ValidateInvoice(inv, lines); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return inv, lines, nil
}

// computeLines calcula los importes de cada línea: redondeo half-even por línea
// y después suma. La AEAT concilia línea a línea, no sobre el total.
func computeLines(invoiceID string, in []IssueLineInput) (lines []*entity.InvoiceLine, subtotal, vat, ret decimal.Decimal) {
	cien := decimal.NewFromInt(100)
	for i, l := range in {
		lineSubtotal := l.Quantity.Mul(l.UnitPrice).RoundBank(2)
		lineVAT := lineSubtotal.Mul(l.VATRate).Div(cien).RoundBank(2)
		lineRet := lineSubtotal.Mul(l.RetRate).Div(cien).RoundBank(2)

		lines = append(lines, &entity.InvoiceLine{
			ID:        uuid.NewString(),
			InvoiceID: invoiceID,
			Concept:   l.Concept,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			VATRate:   l.VATRate,
			RetRate:   l.RetRate,
			Subtotal:  lineSubtotal,
			VATAmount: lineVAT,
			RetAmount: lineRet,
			Total:     lineSubtotal.Add(lineVAT).Sub(lineRet),
			Position:  i + 1,
		})
		subtotal = subtotal.Add(lineSubtotal)
		vat = vat.Add(lineVAT)
		ret = ret.Add(lineRet)
	}
	return lines, subtotal, vat, ret
}

// issueChained ejecuta la transacción de emisión con reintentos ante contención.
// Común a facturas F1 y rectificativas R1. Muta inv in place: número, fechas,
// huella y estado ISSUED.
func issueChained(
	ctx context.Context,
	txRunner FiscalTxRunner,
	huellaSvc *verifactu.HuellaService,
	cfg AEATConfig,
	log *logger.Logger,
	now func() time.Time,
	inv *entity.Invoice,
	lines []*entity.InvoiceLine,
) error {
	var lastErr error

	for attempt := 1; attempt <= maxSeriesRetries; attempt++ {
		lastErr = txRunner.RunFiscal(ctx, func(
			invoiceRepo repository.InvoiceRepository,
			seriesRepo repository.InvoiceSeriesRepository,
			_ repository.CancellationRepository,
		) error {
			ts := now()
			year := ts.Year()

			series, err := seriesRepo.Lock(ctx, cfg.IssuerNIF, inv.SeriesPrefix, year)
			if err != nil {
				return err
			}

			number := series.LastNumber + 1
			inv.Year = year
			inv.Number = number
			inv.FullNumber = entity.FormatInvoiceNumber(inv.SeriesPrefix, year, number)
			inv.IssueDate = ts
			inv.GeneratedAt = ts
			inv.HuellaAnterior = series.LastHuella
			inv.Status = entity.InvoiceStatusIssued

			huella, err := huellaSvc.CalculateAlta(&verifactu.AltaParams{
				IDEmisorFactura:        inv.IssuerNIF,
				NumSerieFactura:        inv.FullNumber,
				FechaExpedicionFactura: inv.IssueDate,
				TipoFactura:            inv.InvoiceType,
				CuotaTotal:             inv.VATAmount,
				ImporteTotal:           inv.Subtotal.Add(inv.VATAmount),
				HuellaAnterior:         series.LastHuella,
				FechaHoraHusoGen:       inv.GeneratedAt,
			})
			if err != nil {
				return err
			}
			inv.Huella = huella

			if err := invoiceRepo.Create(ctx, inv); err != nil {
				return err
			}
			for _, l := range lines {
				if err := invoiceRepo.CreateLine(ctx, l); err != nil {
					return err
				}
			}
			return seriesRepo.Advance(ctx, series.ID, number, huella)
		})

		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, domain.ErrSeriesContention) {
			return lastErr
		}
		log.Warn().Str("invoice_id", inv.ID).Int("intento", attempt).
			Msg("serie bloqueada por otra emisión, reintentando")
	}
	return lastErr
}
