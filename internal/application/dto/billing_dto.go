package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ── Prorrateo ─────────────────────────────────────────────────────────────────

// PreviewProrationRequest solicitud de presupuesto de cambio de plan.
type PreviewProrationRequest struct {
	TargetPlan   string `json:"targetPlan"`   // HOST | PRO | BUSINESS
	TargetPeriod string `json:"targetPeriod"` // MONTHLY | SEMIANNUAL | ANNUAL
}

// ProrationQuoteResponse presupuesto de prorrateo. Efímero: nada de esto se persiste.
type ProrationQuoteResponse struct {
	CurrentPlan    string          `json:"currentPlan"`
	CurrentPeriod  string          `json:"currentPeriod"`
	TargetPlan     string          `json:"targetPlan"`
	TargetPeriod   string          `json:"targetPeriod"`
	DaysTotal      int             `json:"daysTotal"`
	DaysUsed       int             `json:"daysUsed"`
	DaysRemaining  int             `json:"daysRemaining"`
	DailyRate      decimal.Decimal `json:"dailyRate"`
	CreditAmount   decimal.Decimal `json:"creditAmount"`
	NewPeriodPrice decimal.Decimal `json:"newPeriodPrice"`
	NetDue         decimal.Decimal `json:"netDue"`
	NewStartDate   time.Time       `json:"newStartDate"`
	NewEndDate     time.Time       `json:"newEndDate"`
}

// ── Facturas ──────────────────────────────────────────────────────────────────

// InvoiceLineRequest línea de factura en la petición de emisión.
type InvoiceLineRequest struct {
	Concept   string          `json:"concept"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	VATRate   decimal.Decimal `json:"vatRate"` // porcentaje, ej. 21
	RetRate   decimal.Decimal `json:"retRate"` // porcentaje IRPF, ej. 15
}

// CreateInvoiceRequest emisión de factura completa (F1).
type CreateInvoiceRequest struct {
	SeriesPrefix  string               `json:"seriesPrefix"`
	RecipientNIF  string               `json:"recipientNif"`
	RecipientName string               `json:"recipientName"`
	Description   string               `json:"description"`
	Lines         []InvoiceLineRequest `json:"lines"`
}

// RectifyInvoiceRequest emisión de rectificativa (R1) sobre una factura existente.
// Kind "S" sustituye la factura completa; "I" factura solo las diferencias.
type RectifyInvoiceRequest struct {
	Kind        string               `json:"kind"` // S | I
	Description string               `json:"description"`
	Lines       []InvoiceLineRequest `json:"lines"`
}

// InvoiceLineResponse línea de factura con los importes calculados.
type InvoiceLineResponse struct {
	Concept   string          `json:"concept"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	VATRate   decimal.Decimal `json:"vatRate"`
	RetRate   decimal.Decimal `json:"retRate"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	VATAmount decimal.Decimal `json:"vatAmount"`
	RetAmount decimal.Decimal `json:"retAmount"`
	Total     decimal.Decimal `json:"total"`
	Position  int             `json:"position"`
}

// InvoiceResponse factura completa con sus líneas.
type InvoiceResponse struct {
	ID            string          `json:"id"`
	FullNumber    string          `json:"fullNumber"`
	SeriesPrefix  string          `json:"seriesPrefix"`
	Year          int             `json:"year"`
	Number        int64           `json:"number"`
	IssueDate     time.Time       `json:"issueDate"`
	IssuerNIF     string          `json:"issuerNif"`
	IssuerName    string          `json:"issuerName"`
	RecipientNIF  string          `json:"recipientNif"`
	RecipientName string          `json:"recipientName"`
	Description   string          `json:"description"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	VATAmount     decimal.Decimal `json:"vatAmount"`
	Retention     decimal.Decimal `json:"retention"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	InvoiceType   string          `json:"invoiceType"`

	IsRectifying        bool   `json:"isRectifying,omitempty"`
	RectificationKind   string `json:"rectificationKind,omitempty"`
	RectifiedFullNumber string `json:"rectifiedFullNumber,omitempty"`

	Huella        string     `json:"huella"`
	GatewayStatus string     `json:"gatewayStatus"`
	GatewayCSV    string     `json:"gatewayCsv,omitempty"`
	GatewayErrors string     `json:"gatewayErrors,omitempty"`
	CancelledAt   *time.Time `json:"cancelledAt,omitempty"`

	Lines []InvoiceLineResponse `json:"lines,omitempty"`
}

// InvoiceStatusResponse consulta ligera de estado (polling).
type InvoiceStatusResponse struct {
	ID            string `json:"id"`
	FullNumber    string `json:"fullNumber"`
	Status        string `json:"status"`
	GatewayStatus string `json:"gatewayStatus"`
	GatewayCSV    string `json:"gatewayCsv,omitempty"`
	GatewayErrors string `json:"gatewayErrors,omitempty"`
}

// SubmissionResponse fila del registro de auditoría de envíos AEAT.
type SubmissionResponse struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	Outcome      string    `json:"outcome"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	AttemptedAt  time.Time `json:"attemptedAt"`
}

// SeriesNextResponse siguiente número esperado de una serie, sin reservarlo.
type SeriesNextResponse struct {
	IssuerNIF  string `json:"issuerNif"`
	Prefix     string `json:"prefix"`
	Year       int    `json:"year"`
	NextNumber int64  `json:"nextNumber"`
	FullNumber string `json:"fullNumber"`
}
