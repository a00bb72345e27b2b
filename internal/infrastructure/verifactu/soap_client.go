package verifactu

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hostalia/billing-api/internal/application/billing"
)

// ── Constantes de entorno ──────────────────────────────────────────────────────

const (
	// AppEnvTest identifica el entorno de pruebas (preproducción AEAT).
	AppEnvTest = "test"
	// AppEnvProd identifica el entorno de producción AEAT.
	AppEnvProd = "prod"
	// AppEnvDev es el identificador local: no envía al WS de la AEAT.
	AppEnvDev = "dev"

	soapURLTest = "https://prewww1.aeat.es/wlpl/TIKE-CONT/ws/SistemaFacturacion/VerifactuSOAP"
	soapURLProd = "https://www1.agenciatributaria.gob.es/wlpl/TIKE-CONT/ws/SistemaFacturacion/VerifactuSOAP"

	estadoEnvioCorrecto = "Correcto"
)

var _ billing.Submitter = (*SOAPClient)(nil)

// SOAPClient implementa billing.Submitter contra el WS Veri*Factu.
// Usa net/http de la stdlib; no requiere librerías de terceros.
type SOAPClient struct {
	httpClient *http.Client
}

// NewSOAPClient construye el cliente SOAP con un timeout de red generoso (60 s)
// ya que el WS de la AEAT puede tardar varios segundos en responder.
func NewSOAPClient() *SOAPClient {
	return &SOAPClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// ── Estructuras de respuesta SOAP ─────────────────────────────────────────────

type soapResponseEnvelope struct {
	Body soapResponseBody `xml:"Body"`
}

type soapResponseBody struct {
	Respuesta *respuestaRegFactu `xml:"RespuestaRegFactuSistemaFacturacion"`
	Fault     *soapFault         `xml:"Fault"`
}

type respuestaRegFactu struct {
	CSV         string           `xml:"CSV"`
	EstadoEnvio string           `xml:"EstadoEnvio"`
	Lineas      []respuestaLinea `xml:"RespuestaLinea"`
}

type respuestaLinea struct {
	EstadoRegistro     string `xml:"EstadoRegistro"`
	CodigoError        string `xml:"CodigoErrorRegistro"`
	DescripcionError   string `xml:"DescripcionErrorRegistro"`
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

// ── Submit ────────────────────────────────────────────────────────────────────

// Submit entrega el sobre SOAP al WS del entorno indicado y devuelve el resultado
// ya interpretado. Un rechazo de la AEAT no es un error de transporte: viene en
// SubmitResult.Errors con Accepted=false.
func (c *SOAPClient) Submit(ctx context.Context, payload string, appEnv string) (*billing.SubmitResult, error) {
	var soapURL string
	switch appEnv {
	case AppEnvProd:
		soapURL = soapURLProd
	case AppEnvTest:
		soapURL = soapURLTest
	default:
		return nil, fmt.Errorf("soap: entorno desconocido %q (usar 'test' o 'prod')", appEnv)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, soapURL,
		bytes.NewReader([]byte(payload)))
	if err != nil {
		return nil, fmt.Errorf("soap: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("soap: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("soap: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // max 1 MB
	if err != nil {
		return nil, fmt.Errorf("soap: leer respuesta: %w", err)
	}

	return parseResponse(rawBody), nil
}

// parseResponse desempaqueta la respuesta SOAP y extrae estado, CSV y errores.
func parseResponse(rawBody []byte) *billing.SubmitResult {
	raw := string(rawBody)

	var env soapResponseEnvelope
	if err := xml.Unmarshal(rawBody, &env); err != nil {
		// Si no podemos parsear, devolvemos el raw como error pero no abortamos.
		return &billing.SubmitResult{
			Accepted: false,
			Errors:   "no se pudo parsear respuesta SOAP: " + raw,
			Response: raw,
		}
	}

	// SOAP Fault (error de protocolo, autenticación, etc.)
	if env.Body.Fault != nil {
		return &billing.SubmitResult{
			Accepted: false,
			Errors:   fmt.Sprintf("SOAP Fault [%s]: %s", env.Body.Fault.FaultCode, env.Body.Fault.FaultString),
			Response: raw,
		}
	}

	r := env.Body.Respuesta
	if r == nil {
		return &billing.SubmitResult{
			Accepted: false,
			Errors:   "respuesta SOAP vacía o inesperada: " + raw,
			Response: raw,
		}
	}

	var errMsgs []string
	for _, l := range r.Lineas {
		if l.CodigoError != "" || l.DescripcionError != "" {
			errMsgs = append(errMsgs, strings.TrimSpace(l.CodigoError+" "+l.DescripcionError))
		}
	}

	return &billing.SubmitResult{
		Accepted: r.EstadoEnvio == estadoEnvioCorrecto,
		CSV:      r.CSV,
		Errors:   strings.Join(errMsgs, "; "),
		Response: raw,
	}
}
