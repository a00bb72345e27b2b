package entity

import "time"

// CancellationRecord es el registro de anulación encadenado (RegistroAnulacion).
// Anular no borra ni reescribe la factura original ni su huella: añade este registro,
// encadenado a la cola vigente de la serie (no a la huella de la propia factura), y
// transiciona la factura a CANCELLED. Así la anulación tampoco puede desaparecer del
// rastro de auditoría sin romper la cadena.
type CancellationRecord struct {
	ID             string
	InvoiceID      string
	Huella         string
	HuellaAnterior string // cola de la serie en el momento de anular
	GeneratedAt    time.Time
	GatewayStatus  string
	CreatedAt      time.Time
}
