package entity

import "time"

// Clases de registro remitido a la AEAT.
const (
	SubmissionKindAlta      = "ALTA"
	SubmissionKindAnulacion = "ANULACION"
)

// Resultado de un intento de envío.
const (
	SubmissionOutcomeSubmitted = "SUBMITTED"
	SubmissionOutcomeError     = "ERROR"
)

// FiscalSubmission es una fila de auditoría por intento de envío al WS de la AEAT.
// Append-only: se escribe antes de devolver el resultado al caller, con éxito o fallo,
// y nunca se muta. Es la fuente de verdad de "¿llegamos a intentarlo?", independiente
// de que la llamada HTTP prosperase. Un intento fallido no bloquea que un reintento
// posterior cree una fila nueva.
type FiscalSubmission struct {
	ID           string
	InvoiceID    string
	Kind         string // ALTA | ANULACION
	Payload      string // XML exacto remitido (snapshot)
	Response     string // cuerpo de la respuesta (snapshot, puede ser vacío)
	Outcome      string // SUBMITTED | ERROR
	ErrorMessage string
	AttemptedAt  time.Time
}
