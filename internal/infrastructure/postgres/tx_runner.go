package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hostalia/billing-api/internal/application/billing"
	"github.com/hostalia/billing-api/internal/domain/repository"
)

// Ensure TxRunner implements billing.FiscalTxRunner.
var _ billing.FiscalTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunFiscal inicia una transacción con los repos del núcleo fiscal atados a la tx
// y hace Commit o Rollback. El bloqueo FOR UPDATE de la serie vive y muere con
// esta transacción.
func (r *TxRunner) RunFiscal(ctx context.Context, fn func(
	invoiceRepo repository.InvoiceRepository,
	seriesRepo repository.InvoiceSeriesRepository,
	cancellationRepo repository.CancellationRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	invoiceRepo := NewInvoiceRepository(tx)
	seriesRepo := NewSeriesRepository(tx)
	cancellationRepo := NewCancellationRepository(tx)

	if err := fn(invoiceRepo, seriesRepo, cancellationRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
