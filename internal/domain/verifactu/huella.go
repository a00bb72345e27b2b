// Package verifactu: cálculo de la huella de los registros de facturación según
// RD 1007/2023 y la Orden HAC/1177/2024 (sistema Veri*Factu).
// Algoritmo: SHA-256 sobre la cadena clave=valor concatenada con '&' en el orden
// estricto que fija la Orden, con el hash en hexadecimal mayúsculas.

package verifactu

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TipoHuella identifica el algoritmo de huella ante la AEAT. "01" = SHA-256.
const TipoHuella = "01"

// Formatos de fecha que exige la Orden dentro de la cadena de huella.
const (
	layoutFechaExpedicion = "02-01-2006"                // DD-MM-YYYY
	layoutFechaHoraHuso   = "2006-01-02T15:04:05-07:00" // ISO 8601 con huso
)

// AltaParams contiene los campos del RegistroAlta que entran en la huella,
// en el orden exigido por la Orden HAC/1177/2024.
type AltaParams struct {
	IDEmisorFactura        string          // NIF del obligado a expedir
	NumSerieFactura        string          // serie + número completo (ej: F-2025-0042)
	FechaExpedicionFactura time.Time       // fecha de expedición de la factura
	TipoFactura            string          // F1, R1...
	CuotaTotal             decimal.Decimal // cuota repercutida total
	ImporteTotal           decimal.Decimal // importe total de la factura
	HuellaAnterior         string          // huella del registro anterior de la serie; vacía en el primero
	FechaHoraHusoGen       time.Time       // instante de generación del registro, con huso
}

// AnulacionParams contiene los campos del RegistroAnulacion que entran en la huella.
type AnulacionParams struct {
	IDEmisorFacturaAnulada        string
	NumSerieFacturaAnulada        string
	FechaExpedicionFacturaAnulada time.Time
	HuellaAnterior                string // cola vigente de la serie, no la huella de la factura anulada
	FechaHoraHusoGen              time.Time
}

// HuellaService calcula las huellas encadenadas de los registros de facturación.
type HuellaService struct{}

// NewHuellaService crea el servicio.
func NewHuellaService() *HuellaService {
	return &HuellaService{}
}

// CalculateAlta genera la huella de un RegistroAlta.
// Cadena: IDEmisorFactura=&NumSerieFactura=&FechaExpedicionFactura=&TipoFactura=&
// CuotaTotal=&ImporteTotal=&Huella=&FechaHoraHusoGenRegistro= (claves unidas por '&',
// valores sin espacios envolventes). Huella lleva la del registro anterior, vacía en
// el primer registro de la cadena. Importes con punto decimal y 2 decimales.
func (s *HuellaService) CalculateAlta(p *AltaParams) (string, error) {
	if p == nil {
		return "", fmt.Errorf("verifactu: AltaParams es obligatorio")
	}
	if strings.TrimSpace(p.IDEmisorFactura) == "" {
		return "", fmt.Errorf("verifactu: IDEmisorFactura es obligatorio")
	}
	if strings.TrimSpace(p.NumSerieFactura) == "" {
		return "", fmt.Errorf("verifactu: NumSerieFactura es obligatorio")
	}
	if p.TipoFactura == "" {
		return "", fmt.Errorf("verifactu: TipoFactura es obligatorio")
	}
	if p.FechaExpedicionFactura.IsZero() {
		return "", fmt.Errorf("verifactu: FechaExpedicionFactura es obligatoria")
	}
	if p.FechaHoraHusoGen.IsZero() {
		return "", fmt.Errorf("verifactu: FechaHoraHusoGenRegistro es obligatoria")
	}

	cadena := "IDEmisorFactura=" + strings.TrimSpace(p.IDEmisorFactura) +
		"&NumSerieFactura=" + strings.TrimSpace(p.NumSerieFactura) +
		"&FechaExpedicionFactura=" + FormatFechaExpedicion(p.FechaExpedicionFactura) +
		"&TipoFactura=" + p.TipoFactura +
		"&CuotaTotal=" + formatImporte(p.CuotaTotal) +
		"&ImporteTotal=" + formatImporte(p.ImporteTotal) +
		"&Huella=" + strings.TrimSpace(p.HuellaAnterior) +
		"&FechaHoraHusoGenRegistro=" + FormatFechaHoraHuso(p.FechaHoraHusoGen)

	return digest(cadena), nil
}

// CalculateAnulacion genera la huella de un RegistroAnulacion. La cadena usa las
// claves *Anulada y omite tipo e importes; Huella sigue llevando la cola vigente
// de la serie, de modo que la anulación avanza la cadena igual que un alta.
func (s *HuellaService) CalculateAnulacion(p *AnulacionParams) (string, error) {
	if p == nil {
		return "", fmt.Errorf("verifactu: AnulacionParams es obligatorio")
	}
	if strings.TrimSpace(p.IDEmisorFacturaAnulada) == "" {
		return "", fmt.Errorf("verifactu: IDEmisorFacturaAnulada es obligatorio")
	}
	if strings.TrimSpace(p.NumSerieFacturaAnulada) == "" {
		return "", fmt.Errorf("verifactu: NumSerieFacturaAnulada es obligatorio")
	}
	if p.FechaExpedicionFacturaAnulada.IsZero() {
		return "", fmt.Errorf("verifactu: FechaExpedicionFacturaAnulada es obligatoria")
	}
	if p.FechaHoraHusoGen.IsZero() {
		return "", fmt.Errorf("verifactu: FechaHoraHusoGenRegistro es obligatoria")
	}

	cadena := "IDEmisorFacturaAnulada=" + strings.TrimSpace(p.IDEmisorFacturaAnulada) +
		"&NumSerieFacturaAnulada=" + strings.TrimSpace(p.NumSerieFacturaAnulada) +
		"&FechaExpedicionFacturaAnulada=" + FormatFechaExpedicion(p.FechaExpedicionFacturaAnulada) +
		"&Huella=" + strings.TrimSpace(p.HuellaAnterior) +
		"&FechaHoraHusoGenRegistro=" + FormatFechaHoraHuso(p.FechaHoraHusoGen)

	return digest(cadena), nil
}

// FormatFechaExpedicion formatea la fecha de expedición como DD-MM-YYYY.
func FormatFechaExpedicion(t time.Time) string {
	return t.Format(layoutFechaExpedicion)
}

// FormatFechaHoraHuso formatea el instante de generación en ISO 8601 con huso.
func FormatFechaHoraHuso(t time.Time) string {
	return t.Format(layoutFechaHoraHuso)
}

// formatImporte importes para la cadena de huella: punto decimal, 2 decimales, sin miles.
func formatImporte(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

func digest(cadena string) string {
	hash := sha256.Sum256([]byte(cadena))
	return strings.ToUpper(hex.EncodeToString(hash[:]))
}
