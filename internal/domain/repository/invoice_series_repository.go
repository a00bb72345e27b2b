package repository

import (
	"context"

	"github.com/hostalia/billing-api/internal/domain/entity"
)

// InvoiceSeriesRepository define el puerto de persistencia para series de facturación.
// Una serie es la unidad de numeración gapless y de encadenamiento de huellas:
// (NIF emisor, prefijo, año) → último número asignado + cola de la cadena.
type InvoiceSeriesRepository interface {
	Create(ctx context.Context, series *entity.InvoiceSeries) error
	GetByKey(ctx context.Context, issuerNIF, prefix string, year int) (*entity.InvoiceSeries, error)

	// Lock carga la fila de la serie con bloqueo exclusivo sin espera
	// (SELECT ... FOR UPDATE NOWAIT). Si otra transacción la tiene bloqueada
	// devuelve domain.ErrSeriesContention; el orquestador decide si reintenta.
	// Solo tiene sentido dentro de una transacción.
	Lock(ctx context.Context, issuerNIF, prefix string, year int) (*entity.InvoiceSeries, error)

	// Advance persiste el nuevo último número y la nueva cola de huella de la serie.
	// Las anulaciones avanzan la huella sin mover el número: se pasa el lastNumber
	// que ya tenía la fila.
	Advance(ctx context.Context, id string, lastNumber int64, lastHuella string) error
}
