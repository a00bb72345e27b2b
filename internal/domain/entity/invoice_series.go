package entity

import "time"

// InvoiceSeries es el puntero de cola de una serie fiscal: el único recurso mutable
// compartido del subsistema. Una fila por (NIF emisor, prefijo, año); se actualiza
// exclusivamente bajo bloqueo de fila dentro de la transacción que emite o anula.
//
// LastNumber garantiza numeración gapless y estrictamente creciente.
// LastHuella encadena tanto registros de alta como de anulación: una anulación
// avanza la huella sin consumir número.
type InvoiceSeries struct {
	ID         string
	IssuerNIF  string
	Prefix     string
	Year       int
	LastNumber int64
	LastHuella string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NextFullNumber devuelve el número completo que recibiría la próxima factura.
// Solo informativo: la reserva real ocurre bajo bloqueo en la transacción de emisión.
func (s *InvoiceSeries) NextFullNumber() string {
	return FormatInvoiceNumber(s.Prefix, s.Year, s.LastNumber+1)
}
