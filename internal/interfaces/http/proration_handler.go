package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hostalia/billing-api/internal/application/billing"
	"github.com/hostalia/billing-api/internal/application/dto"
)

// ProrationHandler maneja el presupuesto de cambio de plan (protegido).
type ProrationHandler struct {
	preview *billing.PreviewPlanChangeUseCase
}

// NewProrationHandler construye el handler.
func NewProrationHandler(preview *billing.PreviewPlanChangeUseCase) *ProrationHandler {
	return &ProrationHandler{preview: preview}
}

// Preview calcula el presupuesto de prorrateo para el suscriptor autenticado.
// Solo lectura: nada se reserva ni se persiste; el presupuesto caduca al instante.
// POST /api/subscription/plan-change/preview
func (h *ProrationHandler) Preview(c *fiber.Ctx) error {
	subscriberID := GetUserID(c)
	if subscriberID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.PreviewProrationRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	preview, err := h.preview.Execute(c.Context(), subscriberID, in.TargetPlan, in.TargetPeriod)
	if err != nil {
		return errorJSON(c, err)
	}
	q := preview.Quote
	return c.JSON(dto.ProrationQuoteResponse{
		CurrentPlan:    preview.CurrentPlan,
		CurrentPeriod:  preview.CurrentPeriod,
		TargetPlan:     preview.TargetPlan,
		TargetPeriod:   preview.TargetPeriod,
		DaysTotal:      q.DaysTotal,
		DaysUsed:       q.DaysUsed,
		DaysRemaining:  q.DaysRemaining,
		DailyRate:      q.DailyRate,
		CreditAmount:   q.CreditAmount,
		NewPeriodPrice: q.NewPeriodPrice,
		NetDue:         q.NetDue,
		NewStartDate:   q.NewStartDate,
		NewEndDate:     q.NewEndDate,
	})
}
