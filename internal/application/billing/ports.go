// Package billing contiene los casos de uso de facturación: prorrateo, emisión,
// rectificación, anulación y envío Veri*Factu.
package billing

import (
	"context"

	"github.com/hostalia/billing-api/internal/domain/entity"
	"github.com/hostalia/billing-api/internal/domain/repository"
)

// AEATConfig parámetros Veri*Factu del obligado a expedir.
type AEATConfig struct {
	IssuerNIF   string
	IssuerName  string
	Environment string // "1" producción, "2" pruebas
	// AppEnv controla el envío real: "dev" no envía (la factura queda PENDING),
	// "test" envía a preproducción, "prod" a producción.
	AppEnv string
}

// FiscalTxRunner ejecuta una función dentro de una transacción que incluye los
// repos del núcleo fiscal. Toda emisión, rectificación o anulación pasa por aquí:
// el bloqueo de la serie, la escritura del registro y el avance de la cola deben
// confirmar o deshacerse juntos.
type FiscalTxRunner interface {
	RunFiscal(ctx context.Context, fn func(
		invoiceRepo repository.InvoiceRepository,
		seriesRepo repository.InvoiceSeriesRepository,
		cancellationRepo repository.CancellationRepository,
	) error) error
}

// RegistroBuilder construye los XML RegFactuSistemaFacturacion que viajan a la AEAT.
type RegistroBuilder interface {
	BuildAlta(invoice *entity.Invoice, lines []*entity.InvoiceLine) (string, error)
	BuildAnulacion(invoice *entity.Invoice, record *entity.CancellationRecord) (string, error)
}

// SubmitResult respuesta del WS Veri*Factu ya interpretada.
type SubmitResult struct {
	Accepted bool   // EstadoRegistro Correcto: CSV disponible
	CSV      string // código seguro de verificación
	Errors   string // descripción de errores si fue rechazado
	Response string // cuerpo crudo de la respuesta (snapshot para auditoría)
}

// Submitter cliente del WS Veri*Factu de la AEAT.
type Submitter interface {
	Submit(ctx context.Context, payload string, appEnv string) (*SubmitResult, error)
}

// InvoicePDFGenerator genera la representación gráfica de la factura.
type InvoicePDFGenerator interface {
	Generate(invoice *entity.Invoice, lines []*entity.InvoiceLine) ([]byte, error)
}
