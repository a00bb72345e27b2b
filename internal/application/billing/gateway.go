package billing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hostalia/billing-api/internal/domain/entity"
	"github.com/hostalia/billing-api/internal/domain/repository"
	"github.com/hostalia/billing-api/pkg/logger"
)

// Entornos de ejecución del envío Veri*Factu.
const (
	AppEnvDev  = "dev"
	AppEnvTest = "test"
	AppEnvProd = "prod"
)

// GatewayOrchestrator gestiona los envíos al WS Veri*Factu de la AEAT.
//
// Reglas duras:
//   - cada intento escribe una fila de auditoría en fiscal_submissions ANTES de
//     devolver el resultado al caller, con éxito o con fallo;
//   - el subestado de pasarela solo avanza: PENDING → SUBMITTED → ACCEPTED, o a
//     ERROR; nunca retrocede;
//   - aquí no hay reintentos automáticos: reintentar es una operación explícita
//     del caso de uso RetrySubmission.
//
// En AppEnv "dev" no se envía nada y la factura queda en PENDING.
type GatewayOrchestrator struct {
	builder        RegistroBuilder
	submitter      Submitter
	invoiceRepo    repository.InvoiceRepository
	cancelRepo     repository.CancellationRepository
	submissionRepo repository.SubmissionRepository
	cfg            AEATConfig
	log            *logger.Logger
	now            func() time.Time
}

// NewGatewayOrchestrator construye el orquestador. submitter puede ser nil solo
// si AppEnv es "dev".
func NewGatewayOrchestrator(
	builder RegistroBuilder,
	submitter Submitter,
	invoiceRepo repository.InvoiceRepository,
	cancelRepo repository.CancellationRepository,
	submissionRepo repository.SubmissionRepository,
	cfg AEATConfig,
	log *logger.Logger,
) *GatewayOrchestrator {
	return &GatewayOrchestrator{
		builder:        builder,
		submitter:      submitter,
		invoiceRepo:    invoiceRepo,
		cancelRepo:     cancelRepo,
		submissionRepo: submissionRepo,
		cfg:            cfg,
		log:            log,
		now:            time.Now,
	}
}

// SubmitAlta remite el RegistroAlta de la factura y persiste el resultado en los
// campos gateway_* de la factura. No devuelve error al caller por rechazo de la
// AEAT: el rechazo queda en gateway_status = ERROR y es reintentable.
func (g *GatewayOrchestrator) SubmitAlta(ctx context.Context, inv *entity.Invoice, lines []*entity.InvoiceLine) {
	if g.skipSubmission(inv.ID) {
		return
	}

	payload, err := g.builder.BuildAlta(inv, lines)
	if err != nil {
		g.audit(ctx, inv.ID, entity.SubmissionKindAlta, "", "", err.Error())
		g.updateInvoiceGateway(ctx, inv, entity.GatewayError, "", "construcción del registro: "+err.Error())
		return
	}

	status, csv, gwErrs := g.transmit(ctx, inv.ID, entity.SubmissionKindAlta, payload)
	g.updateInvoiceGateway(ctx, inv, status, csv, gwErrs)
}

// SubmitAnulacion remite el RegistroAnulacion y persiste el resultado en el
// registro de anulación. El mismo contrato de auditoría que el alta.
func (g *GatewayOrchestrator) SubmitAnulacion(ctx context.Context, inv *entity.Invoice, record *entity.CancellationRecord) {
	if g.skipSubmission(inv.ID) {
		return
	}

	payload, err := g.builder.BuildAnulacion(inv, record)
	if err != nil {
		g.audit(ctx, inv.ID, entity.SubmissionKindAnulacion, "", "", err.Error())
		g.updateCancellationGateway(ctx, record, entity.GatewayError)
		return
	}

	status, _, _ := g.transmit(ctx, inv.ID, entity.SubmissionKindAnulacion, payload)
	g.updateCancellationGateway(ctx, record, status)
}

// skipSubmission true en modo dev (o sin submitter): el registro queda PENDING.
func (g *GatewayOrchestrator) skipSubmission(invoiceID string) bool {
	appEnv := strings.ToLower(strings.TrimSpace(g.cfg.AppEnv))
	if appEnv == AppEnvDev || appEnv == "" || g.submitter == nil {
		g.log.Info().Str("invoice_id", invoiceID).
			Msg("modo dev: envío a la AEAT omitido, registro queda PENDING")
		return true
	}
	return false
}

// transmit ejecuta la llamada SOAP, escribe la fila de auditoría y mapea el
// resultado al subestado de pasarela.
func (g *GatewayOrchestrator) transmit(ctx context.Context, invoiceID, kind, payload string) (status, csv, gwErrs string) {
	result, err := g.submitter.Submit(ctx, payload, g.cfg.AppEnv)
	if err != nil {
		// Fallo de transporte: la auditoría registra el intento igualmente.
		g.audit(ctx, invoiceID, kind, payload, "", err.Error())
		g.log.Error().Err(err).Str("invoice_id", invoiceID).Str("kind", kind).
			Msg("fallo de transporte contra el WS de la AEAT")
		return entity.GatewayError, "", err.Error()
	}

	g.audit(ctx, invoiceID, kind, payload, result.Response, result.Errors)

	switch {
	case result.Accepted:
		g.log.Info().Str("invoice_id", invoiceID).Str("csv", result.CSV).
			Msg("registro aceptado por la AEAT")
		return entity.GatewayAccepted, result.CSV, ""
	case result.Errors != "":
		g.log.Warn().Str("invoice_id", invoiceID).Str("errores", result.Errors).
			Msg("registro rechazado por la AEAT")
		return entity.GatewayError, "", result.Errors
	default:
		// Remitido sin acuse definitivo: el estado queda en SUBMITTED hasta que
		// un reintento o una consulta posterior lo resuelva.
		return entity.GatewaySubmitted, "", ""
	}
}

// audit inserta la fila append-only de fiscal_submissions. Un fallo al escribirla
// solo se puede loguear: nunca interrumpe el flujo del envío.
func (g *GatewayOrchestrator) audit(ctx context.Context, invoiceID, kind, payload, response, errMsg string) {
	outcome := entity.SubmissionOutcomeSubmitted
	if errMsg != "" {
		outcome = entity.SubmissionOutcomeError
	}
	sub := &entity.FiscalSubmission{
		ID:           uuid.NewString(),
		InvoiceID:    invoiceID,
		Kind:         kind,
		Payload:      payload,
		Response:     response,
		Outcome:      outcome,
		ErrorMessage: errMsg,
		AttemptedAt:  g.now(),
	}
	if err := g.submissionRepo.Create(ctx, sub); err != nil {
		g.log.Error().Err(err).Str("invoice_id", invoiceID).
			Msg("no se pudo persistir la fila de auditoría del envío")
	}
}

func (g *GatewayOrchestrator) updateInvoiceGateway(ctx context.Context, inv *entity.Invoice, status, csv, gwErrs string) {
	if err := g.invoiceRepo.UpdateGateway(ctx, inv.ID, status, csv, gwErrs); err != nil {
		g.log.Error().Err(err).Str("invoice_id", inv.ID).
			Msg("no se pudo persistir el estado de pasarela de la factura")
		return
	}
	inv.GatewayStatus = status
	inv.GatewayCSV = csv
	inv.GatewayErrors = gwErrs
}

func (g *GatewayOrchestrator) updateCancellationGateway(ctx context.Context, record *entity.CancellationRecord, status string) {
	if err := g.cancelRepo.UpdateGateway(ctx, record.ID, status); err != nil {
		g.log.Error().Err(err).Str("invoice_id", record.InvoiceID).
			Msg("no se pudo persistir el estado de pasarela de la anulación")
		return
	}
	record.GatewayStatus = status
}
