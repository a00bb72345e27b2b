package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrForbidden    = errors.New("acceso denegado")

	// ErrInvalidPeriod periodo de suscripción mal formado (start >= end). Validación local,
	// nunca llega a almacenamiento.
	ErrInvalidPeriod = errors.New("periodo de suscripción inválido")

	// ErrNotEligible el cambio de plan solicitado no es un upgrade estricto: mismo plan y
	// periodo, o downgrade. No es un fallo; el caller debe usar el checkout estándar.
	ErrNotEligible = errors.New("cambio de plan no elegible para prorrateo")

	// ErrSeriesContention no se pudo bloquear el puntero de cola de la serie dentro del
	// presupuesto de reintentos. Siempre es seguro reintentar la emisión completa.
	ErrSeriesContention = errors.New("serie de facturación en uso, reintentar la emisión")

	// ErrNotCancellable transición de estado inválida: solo se anulan facturas ya emitidas
	// (ISSUED, SENT o PAID) con huella fiscal. Un borrador se borra, nunca se anula.
	ErrNotCancellable = errors.New("la factura no admite anulación en su estado actual")

	// ErrGatewaySubmission el envío al WS de la AEAT falló. Siempre queda registrado en la
	// auditoría de envíos antes de propagarse.
	ErrGatewaySubmission = errors.New("error en el envío al servicio de la AEAT")

	// ErrDuplicateSubmission reintento de envío con gatewayStatus SUBMITTED o ACCEPTED.
	// Es un mal uso del API, no una condición transitoria.
	ErrDuplicateSubmission = errors.New("la factura ya fue remitida a la AEAT")
)
