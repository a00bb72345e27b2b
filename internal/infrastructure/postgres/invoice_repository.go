package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hostalia/billing-api/internal/domain"
	"github.com/hostalia/billing-api/internal/domain/entity"
	"github.com/hostalia/billing-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// Create persiste la cabecera de la factura. La unicidad (emisor, serie, año,
// número) la garantiza la base de datos: si dos transacciones llegan aquí con el
// mismo número, la segunda falla y su emisión completa se reintenta.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	now := time.Now()
	query := `
		INSERT INTO invoices (
			id, series_prefix, year, number, full_number, issue_date,
			issuer_nif, issuer_name, recipient_nif, recipient_name, description,
			subtotal, vat_amount, retention_amount, total,
			status, invoice_type,
			is_rectifying, rectification_kind, rectifies_invoice_id,
			rectified_full_number, rectified_issue_date, rectified_total,
			huella, huella_anterior, generated_at,
			gateway_status, gateway_csv, gateway_errors,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29,
		        $30, $31)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.SeriesPrefix, inv.Year, inv.Number, inv.FullNumber, inv.IssueDate,
		inv.IssuerNIF, inv.IssuerName, inv.RecipientNIF, inv.RecipientName, inv.Description,
		inv.Subtotal, inv.VATAmount, inv.RetentionAmount, inv.Total,
		inv.Status, inv.InvoiceType,
		inv.IsRectifying, nullIfEmpty(inv.RectificationKind), nullIfEmpty(inv.RectifiesInvoiceID),
		nullIfEmpty(inv.RectifiedFullNumber), nullIfZeroTime(inv.RectifiedIssueDate), inv.RectifiedTotal,
		inv.Huella, nullIfEmpty(inv.HuellaAnterior), inv.GeneratedAt,
		inv.GatewayStatus, nullIfEmpty(inv.GatewayCSV), nullIfEmpty(inv.GatewayErrors),
		now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("número de factura %s ya asignado: %w", inv.FullNumber, domain.ErrSeriesContention)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	inv.CreatedAt = now
	inv.UpdatedAt = now
	return nil
}

// CreateLine persiste una línea de la factura.
func (r *InvoiceRepo) CreateLine(ctx context.Context, line *entity.InvoiceLine) error {
	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	query := `
		INSERT INTO invoice_lines (id, invoice_id, concept, quantity, unit_price,
			vat_rate, ret_rate, subtotal, vat_amount, ret_amount, total, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		line.ID, line.InvoiceID, line.Concept, line.Quantity, line.UnitPrice,
		line.VATRate, line.RetRate, line.Subtotal, line.VATAmount, line.RetAmount,
		line.Total, line.Position,
	)
	if err != nil {
		return fmt.Errorf("insert invoice line: %w", err)
	}
	return nil
}

const invoiceColumns = `
	id, series_prefix, year, number, full_number, issue_date,
	issuer_nif, issuer_name, recipient_nif, recipient_name, description,
	subtotal, vat_amount, retention_amount, total,
	status, invoice_type,
	is_rectifying, COALESCE(rectification_kind, ''), COALESCE(rectifies_invoice_id::text, ''),
	COALESCE(rectified_full_number, ''), rectified_issue_date, rectified_total,
	huella, COALESCE(huella_anterior, ''), generated_at,
	gateway_status, COALESCE(gateway_csv, ''), COALESCE(gateway_errors, ''),
	cancelled_at, created_at, updated_at`

// GetByID obtiene una factura completa por ID.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`

	var inv entity.Invoice
	var rectifiedIssueDate *time.Time
	err := r.q.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.SeriesPrefix, &inv.Year, &inv.Number, &inv.FullNumber, &inv.IssueDate,
		&inv.IssuerNIF, &inv.IssuerName, &inv.RecipientNIF, &inv.RecipientName, &inv.Description,
		&inv.Subtotal, &inv.VATAmount, &inv.RetentionAmount, &inv.Total,
		&inv.Status, &inv.InvoiceType,
		&inv.IsRectifying, &inv.RectificationKind, &inv.RectifiesInvoiceID,
		&inv.RectifiedFullNumber, &rectifiedIssueDate, &inv.RectifiedTotal,
		&inv.Huella, &inv.HuellaAnterior, &inv.GeneratedAt,
		&inv.GatewayStatus, &inv.GatewayCSV, &inv.GatewayErrors,
		&inv.CancelledAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if rectifiedIssueDate != nil {
		inv.RectifiedIssueDate = *rectifiedIssueDate
	}
	return &inv, nil
}

// GetLines obtiene las líneas de una factura en su orden original.
func (r *InvoiceRepo) GetLines(ctx context.Context, invoiceID string) ([]*entity.InvoiceLine, error) {
	query := `
		SELECT id, invoice_id, concept, quantity, unit_price, vat_rate, ret_rate,
		       subtotal, vat_amount, ret_amount, total, position
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY position`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice lines: %w", err)
	}
	defer rows.Close()

	var list []*entity.InvoiceLine
	for rows.Next() {
		var l entity.InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.Concept, &l.Quantity, &l.UnitPrice,
			&l.VATRate, &l.RetRate, &l.Subtotal, &l.VATAmount, &l.RetAmount,
			&l.Total, &l.Position); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

// UpdateStatus transiciona el estado del ciclo de vida. Los campos facturables y
// la huella no se tocan nunca desde aquí.
func (r *InvoiceRepo) UpdateStatus(ctx context.Context, id, status string) error {
	query := `
		UPDATE invoices
		SET status       = $2,
		    cancelled_at = CASE WHEN $2 = 'CANCELLED' THEN now() ELSE cancelled_at END,
		    updated_at   = now()
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateGateway actualiza únicamente los campos de envío AEAT.
func (r *InvoiceRepo) UpdateGateway(ctx context.Context, id, status, csv, errs string) error {
	query := `
		UPDATE invoices
		SET gateway_status = $2,
		    gateway_csv    = $3,
		    gateway_errors = $4,
		    updated_at     = now()
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, id, status, nullIfEmpty(csv), nullIfEmpty(errs))
	if err != nil {
		return fmt.Errorf("update invoice gateway: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetStatus devuelve solo los campos de estado (consulta ligera para polling).
func (r *InvoiceRepo) GetStatus(ctx context.Context, id string) (*entity.Invoice, error) {
	const query = `
		SELECT id, full_number, status, gateway_status,
		       COALESCE(gateway_csv, ''), COALESCE(gateway_errors, '')
		FROM invoices WHERE id = $1`
	var inv entity.Invoice
	err := r.q.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.FullNumber, &inv.Status, &inv.GatewayStatus,
		&inv.GatewayCSV, &inv.GatewayErrors,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get invoice status: %w", err)
	}
	return &inv, nil
}
