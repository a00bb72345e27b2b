package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hostalia/billing-api/internal/domain"
	"github.com/hostalia/billing-api/internal/domain/entity"
	"github.com/hostalia/billing-api/internal/domain/repository"
)

var _ repository.InvoiceSeriesRepository = (*SeriesRepo)(nil)

// SeriesRepo implementación de InvoiceSeriesRepository (usable con pool o tx).
type SeriesRepo struct {
	q Querier
}

// NewSeriesRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSeriesRepository(q Querier) *SeriesRepo {
	return &SeriesRepo{q: q}
}

// Create da de alta una serie con el contador a cero.
func (r *SeriesRepo) Create(ctx context.Context, s *entity.InvoiceSeries) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	query := `
		INSERT INTO invoice_series (id, issuer_nif, prefix, year, last_number, last_huella, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())`
	_, err := r.q.Exec(ctx, query, s.ID, s.IssuerNIF, s.Prefix, s.Year, s.LastNumber, s.LastHuella)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("la serie %s-%d ya existe: %w", s.Prefix, s.Year, domain.ErrInvalidInput)
		}
		return fmt.Errorf("insert series: %w", err)
	}
	return nil
}

const seriesColumns = `id, issuer_nif, prefix, year, last_number, COALESCE(last_huella, ''), created_at, updated_at`

// GetByKey lectura sin bloqueo (consultas informativas, nunca para emitir).
func (r *SeriesRepo) GetByKey(ctx context.Context, issuerNIF, prefix string, year int) (*entity.InvoiceSeries, error) {
	query := `SELECT ` + seriesColumns + `
		FROM invoice_series WHERE issuer_nif = $1 AND prefix = $2 AND year = $3`
	return r.scanOne(r.q.QueryRow(ctx, query, issuerNIF, prefix, year))
}

// Lock carga la fila de la serie con FOR UPDATE NOWAIT. Si otra transacción la
// tiene bloqueada, PostgreSQL responde 55P03 y se mapea a ErrSeriesContention:
// fallar rápido y reintentar la emisión entera es más barato que encolar
// transacciones sobre la fila más caliente del sistema.
func (r *SeriesRepo) Lock(ctx context.Context, issuerNIF, prefix string, year int) (*entity.InvoiceSeries, error) {
	query := `SELECT ` + seriesColumns + `
		FROM invoice_series WHERE issuer_nif = $1 AND prefix = $2 AND year = $3
		FOR UPDATE NOWAIT`
	s, err := r.scanOne(r.q.QueryRow(ctx, query, issuerNIF, prefix, year))
	if err != nil {
		if isLockNotAvailable(err) {
			return nil, domain.ErrSeriesContention
		}
		return nil, err
	}
	return s, nil
}

// Advance persiste el nuevo puntero de cola de la serie. El guard last_number <= $2
// hace imposible retroceder el contador aunque un bug del caller lo intentara.
func (r *SeriesRepo) Advance(ctx context.Context, id string, lastNumber int64, lastHuella string) error {
	query := `
		UPDATE invoice_series
		SET last_number = $2, last_huella = $3, updated_at = now()
		WHERE id = $1 AND last_number <= $2`
	tag, err := r.q.Exec(ctx, query, id, lastNumber, lastHuella)
	if err != nil {
		return fmt.Errorf("advance series: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("advance series %s: el contador no puede retroceder", id)
	}
	return nil
}

func (r *SeriesRepo) scanOne(row pgx.Row) (*entity.InvoiceSeries, error) {
	var s entity.InvoiceSeries
	err := row.Scan(&s.ID, &s.IssuerNIF, &s.Prefix, &s.Year, &s.LastNumber, &s.LastHuella,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get series: %w", err)
	}
	return &s, nil
}
