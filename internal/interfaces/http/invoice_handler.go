package http

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/hostalia/billing-api/internal/application/billing"
	"github.com/hostalia/billing-api/internal/application/dto"
	"github.com/hostalia/billing-api/internal/domain"
	"github.com/hostalia/billing-api/internal/domain/entity"
)

// InvoiceHandler maneja las peticiones HTTP del núcleo fiscal (protegido).
type InvoiceHandler struct {
	issue   *billing.IssueInvoiceUseCase
	rectify *billing.RectifyInvoiceUseCase
	cancel  *billing.CancelInvoiceUseCase
	retry   *billing.RetrySubmissionUseCase
	query   *billing.InvoiceQueryUseCase
	pdf     *billing.InvoicePDFUseCase
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(
	issue *billing.IssueInvoiceUseCase,
	rectify *billing.RectifyInvoiceUseCase,
	cancel *billing.CancelInvoiceUseCase,
	retry *billing.RetrySubmissionUseCase,
	query *billing.InvoiceQueryUseCase,
	pdf *billing.InvoicePDFUseCase,
) *InvoiceHandler {
	return &InvoiceHandler{issue: issue, rectify: rectify, cancel: cancel, retry: retry, query: query, pdf: pdf}
}

// Create emite una factura completa (F1) con número gapless y huella encadenada.
// POST /api/invoices
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	inv, lines, err := h.issue.Execute(c.Context(), &billing.IssueInvoiceInput{
		SeriesPrefix:  in.SeriesPrefix,
		RecipientNIF:  in.RecipientNIF,
		RecipientName: in.RecipientName,
		Description:   in.Description,
		Lines:         toLineInputs(in.Lines),
	})
	if err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toInvoiceResponse(inv, lines))
}

// Rectify emite una rectificativa (R1) sobre una factura existente.
// POST /api/invoices/:id/rectify
func (h *InvoiceHandler) Rectify(c *fiber.Ctx) error {
	id := c.Params("id")
	var in dto.RectifyInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	inv, lines, err := h.rectify.Execute(c.Context(), &billing.RectifyInvoiceInput{
		OriginalInvoiceID: id,
		Kind:              in.Kind,
		Description:       in.Description,
		Lines:             toLineInputs(in.Lines),
	})
	if err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toInvoiceResponse(inv, lines))
}

// Cancel anula la factura generando el registro de anulación encadenado.
// POST /api/invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c *fiber.Ctx) error {
	inv, _, err := h.cancel.Execute(c.Context(), c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(toInvoiceResponse(inv, nil))
}

// Retry reintenta el envío a la AEAT de una factura en PENDING o ERROR.
// POST /api/invoices/:id/retry-submission
func (h *InvoiceHandler) Retry(c *fiber.Ctx) error {
	inv, err := h.retry.Execute(c.Context(), c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(toStatusResponse(inv))
}

// GetByID obtiene el detalle completo de una factura.
// GET /api/invoices/:id
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	inv, lines, err := h.query.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(toInvoiceResponse(inv, lines))
}

// GetStatus consulta ligera de estado para polling.
// GET /api/invoices/:id/status
func (h *InvoiceHandler) GetStatus(c *fiber.Ctx) error {
	inv, err := h.query.GetStatus(c.Context(), c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(toStatusResponse(inv))
}

// ListSubmissions historial de envíos a la AEAT de la factura.
// GET /api/invoices/:id/submissions
func (h *InvoiceHandler) ListSubmissions(c *fiber.Ctx) error {
	subs, err := h.query.ListSubmissions(c.Context(), c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	out := make([]dto.SubmissionResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, dto.SubmissionResponse{
			ID:           s.ID,
			Kind:         s.Kind,
			Outcome:      s.Outcome,
			ErrorMessage: s.ErrorMessage,
			AttemptedAt:  s.AttemptedAt,
		})
	}
	return c.JSON(out)
}

// GetPDF descarga la representación gráfica de la factura.
// GET /api/invoices/:id/pdf
func (h *InvoiceHandler) GetPDF(c *fiber.Ctx) error {
	pdfBytes, filename, err := h.pdf.Execute(c.Context(), c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdfBytes)
}

// SeriesNext siguiente número esperado de una serie, sin reservarlo.
// GET /api/series/next?prefix=F&year=2025
func (h *InvoiceHandler) SeriesNext(c *fiber.Ctx) error {
	prefix := c.Query("prefix")
	if prefix == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "prefix requerido"})
	}
	year, err := strconv.Atoi(c.Query("year", strconv.Itoa(time.Now().Year())))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "year inválido"})
	}
	series, err := h.query.NextNumber(c.Context(), prefix, year)
	if err != nil {
		return errorJSON(c, err)
	}
	next := series.LastNumber + 1
	return c.JSON(dto.SeriesNextResponse{
		IssuerNIF:  series.IssuerNIF,
		Prefix:     series.Prefix,
		Year:       series.Year,
		NextNumber: next,
		FullNumber: entity.FormatInvoiceNumber(series.Prefix, series.Year, next),
	})
}

// ── Mapeo de errores y DTOs ───────────────────────────────────────────────────

// errorJSON traduce los errores de dominio a códigos HTTP.
func errorJSON(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidPeriod):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotEligible):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "NOT_ELIGIBLE", Message: err.Error()})
	case errors.Is(err, domain.ErrNotCancellable):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NOT_CANCELLABLE", Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicateSubmission):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE_SUBMISSION", Message: err.Error()})
	case errors.Is(err, domain.ErrSeriesContention):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "SERIES_BUSY", Message: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}

func toLineInputs(in []dto.InvoiceLineRequest) []billing.IssueLineInput {
	out := make([]billing.IssueLineInput, 0, len(in))
	for _, l := range in {
		out = append(out, billing.IssueLineInput{
			Concept:   l.Concept,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			VATRate:   l.VATRate,
			RetRate:   l.RetRate,
		})
	}
	return out
}

func toInvoiceResponse(inv *entity.Invoice, lines []*entity.InvoiceLine) dto.InvoiceResponse {
	resp := dto.InvoiceResponse{
		ID:                  inv.ID,
		FullNumber:          inv.FullNumber,
		SeriesPrefix:        inv.SeriesPrefix,
		Year:                inv.Year,
		Number:              inv.Number,
		IssueDate:           inv.IssueDate,
		IssuerNIF:           inv.IssuerNIF,
		IssuerName:          inv.IssuerName,
		RecipientNIF:        inv.RecipientNIF,
		RecipientName:       inv.RecipientName,
		Description:         inv.Description,
		Subtotal:            inv.Subtotal,
		VATAmount:           inv.VATAmount,
		Retention:           inv.RetentionAmount,
		Total:               inv.Total,
		Status:              inv.Status,
		InvoiceType:         inv.InvoiceType,
		IsRectifying:        inv.IsRectifying,
		RectificationKind:   inv.RectificationKind,
		RectifiedFullNumber: inv.RectifiedFullNumber,
		Huella:              inv.Huella,
		GatewayStatus:       inv.GatewayStatus,
		GatewayCSV:          inv.GatewayCSV,
		GatewayErrors:       inv.GatewayErrors,
		CancelledAt:         inv.CancelledAt,
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, dto.InvoiceLineResponse{
			Concept:   l.Concept,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			VATRate:   l.VATRate,
			RetRate:   l.RetRate,
			Subtotal:  l.Subtotal,
			VATAmount: l.VATAmount,
			RetAmount: l.RetAmount,
			Total:     l.Total,
			Position:  l.Position,
		})
	}
	return resp
}

func toStatusResponse(inv *entity.Invoice) dto.InvoiceStatusResponse {
	return dto.InvoiceStatusResponse{
		ID:            inv.ID,
		FullNumber:    inv.FullNumber,
		Status:        inv.Status,
		GatewayStatus: inv.GatewayStatus,
		GatewayCSV:    inv.GatewayCSV,
		GatewayErrors: inv.GatewayErrors,
	}
}
