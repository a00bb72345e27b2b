package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ciclo de vida de una factura.
// DRAFT nunca entra en la cadena fiscal: se borra, no se anula.
const (
	InvoiceStatusDraft     = "DRAFT"
	InvoiceStatusIssued    = "ISSUED"
	InvoiceStatusSent      = "SENT"
	InvoiceStatusPaid      = "PAID"
	InvoiceStatusCancelled = "CANCELLED"
)

// Estados del envío al WS Veri*Factu de la AEAT. Subestado ortogonal de ISSUED/SENT/PAID;
// solo avanza: PENDING → SUBMITTED → ACCEPTED, o PENDING/ERROR → ERROR.
const (
	GatewayPending   = "PENDING"
	GatewaySubmitted = "SUBMITTED" // remitido, sin acuse definitivo
	GatewayAccepted  = "ACCEPTED"  // aceptado por la AEAT (CSV recibido)
	GatewayError     = "ERROR"     // reintentable vía operación explícita
)

// Tipos de factura según catálogo AEAT (L2).
const (
	InvoiceTypeF1 = "F1" // factura completa
	InvoiceTypeR1 = "R1" // rectificativa por error fundado en derecho
)

// Tipos de rectificativa (L3): sustitución o por diferencias.
const (
	RectificationSubstitution = "S"
	RectificationDifference   = "I"
)

// MaxDesgloseLines máximo de líneas de desglose que admite un registro Veri*Factu.
const MaxDesgloseLines = 12

// Invoice es el registro fiscal append-only. Una vez calculada la huella, los campos
// facturables son inmutables: las correcciones se hacen emitiendo una rectificativa
// que referencia la original. Solo Status y los campos Gateway* transicionan.
type Invoice struct {
	ID           string
	SeriesPrefix string
	Year         int
	Number       int64  // 0 mientras DRAFT; asignado gapless al emitir
	FullNumber   string // "F-2025-0001"
	IssueDate    time.Time

	IssuerNIF     string
	IssuerName    string
	RecipientNIF  string
	RecipientName string
	Description   string // DescripcionOperacion del registro AEAT

	Subtotal        decimal.Decimal
	VATAmount       decimal.Decimal
	RetentionAmount decimal.Decimal // IRPF retenido (no entra en ImporteTotal AEAT, sí en el neto a cobrar)
	Total           decimal.Decimal

	Status      string
	InvoiceType string // F1 | R1

	IsRectifying       bool
	RectificationKind  string // S | I (solo rectificativas)
	RectifiesInvoiceID string
	// Resumen congelado de la factura rectificada; se fija al emitir para que el
	// registro fiscal sea reproducible aunque la original cambie de estado.
	RectifiedFullNumber string
	RectifiedIssueDate  time.Time
	RectifiedTotal      decimal.Decimal

	Huella         string    // huella SHA-256 del registro de alta
	HuellaAnterior string    // huella previa de la serie ("" = primer registro)
	GeneratedAt    time.Time // FechaHoraHusoGenRegistro: entra en la huella, se fija una sola vez

	GatewayStatus string
	GatewayCSV    string // código seguro de verificación devuelto por la AEAT
	GatewayErrors string

	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InvoiceLine línea de detalle. IVA y retención se redondean por línea (half-even) y
// después se suman; la AEAT concilia línea a línea, no sobre el total.
type InvoiceLine struct {
	ID        string
	InvoiceID string
	Concept   string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	VATRate   decimal.Decimal // porcentaje, ej. 21
	RetRate   decimal.Decimal // porcentaje IRPF, ej. 15

	Subtotal  decimal.Decimal
	VATAmount decimal.Decimal
	RetAmount decimal.Decimal
	Total     decimal.Decimal

	Position int
}

// FormatInvoiceNumber compone el número completo de factura dentro de una serie.
func FormatInvoiceNumber(prefix string, year int, number int64) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, number)
}
