package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hostalia/billing-api/internal/application/billing"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	IssueInvoice    *billing.IssueInvoiceUseCase
	RectifyInvoice  *billing.RectifyInvoiceUseCase
	CancelInvoice   *billing.CancelInvoiceUseCase
	RetrySubmission *billing.RetrySubmissionUseCase
	InvoiceQuery    *billing.InvoiceQueryUseCase
	InvoicePDF      *billing.InvoicePDFUseCase
	PreviewChange   *billing.PreviewPlanChangeUseCase
	JWTSecret       string
}

// Router registra las rutas de la API. Todo el núcleo fiscal requiere Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	// Facturas (emisión, rectificación, anulación, envío AEAT)
	invoiceHandler := NewInvoiceHandler(
		deps.IssueInvoice, deps.RectifyInvoice, deps.CancelInvoice,
		deps.RetrySubmission, deps.InvoiceQuery, deps.InvoicePDF,
	)
	invoices := api.Group("/invoices")
	invoices.Post("/", invoiceHandler.Create)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Get("/:id/status", invoiceHandler.GetStatus)
	invoices.Get("/:id/submissions", invoiceHandler.ListSubmissions)
	invoices.Get("/:id/pdf", invoiceHandler.GetPDF)
	invoices.Post("/:id/rectify", invoiceHandler.Rectify)
	invoices.Post("/:id/cancel", invoiceHandler.Cancel)
	invoices.Post("/:id/retry-submission", invoiceHandler.Retry)

	// Series de facturación
	api.Get("/series/next", invoiceHandler.SeriesNext)

	// Suscripciones: presupuesto de cambio de plan
	prorationHandler := NewProrationHandler(deps.PreviewChange)
	api.Post("/subscription/plan-change/preview", prorationHandler.Preview)
}
