// Package verifactu contiene los adaptadores de salida hacia el WS Veri*Factu
// de la AEAT: construcción del XML RegFactuSistemaFacturacion y cliente SOAP.
package verifactu

import (
	"fmt"
	"sort"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/hostalia/billing-api/internal/application/billing"
	"github.com/hostalia/billing-api/internal/domain/entity"
	domverifactu "github.com/hostalia/billing-api/internal/domain/verifactu"
	"github.com/hostalia/billing-api/pkg/config"
)

// Namespaces oficiales según el XSD publicado por la AEAT.
const (
	// SuministroInformacion (tipos)
	nsSF = "https://www2.agenciatributaria.gob.es/static_files/common/internet/dep/aplicaciones/es/aeat/tike/cont/ws/SuministroInformacion.xsd"
	// SuministroLR (operaciones)
	nsSFLR = "https://www2.agenciatributaria.gob.es/static_files/common/internet/dep/aplicaciones/es/aeat/tike/cont/ws/SuministroLR.xsd"
	nsSoap = "http://schemas.xmlsoap.org/soap/envelope/"

	idVersion = "1.0"

	// Catálogo L1 (Impuesto) y L8A (ClaveRegimen): IVA, régimen general.
	impuestoIVA        = "01"
	claveRegimenComun  = "01"
	calificacionSujeta = "S1"
)

var _ billing.RegistroBuilder = (*XMLBuilderService)(nil)

// XMLBuilderService construye los sobres SOAP RegFactuSistemaFacturacion listos
// para remitir a la AEAT. El desglose se agrega por tipo impositivo: el XSD admite
// como máximo 12 DetalleDesglose, no uno por línea de factura.
type XMLBuilderService struct {
	cfg config.AEATConfig
}

// NewXMLBuilderService crea el servicio con los datos del obligado y del sistema informático.
func NewXMLBuilderService(cfg config.AEATConfig) *XMLBuilderService {
	return &XMLBuilderService{cfg: cfg}
}

// BuildAlta genera el sobre SOAP con el RegistroAlta de la factura.
func (s *XMLBuilderService) BuildAlta(inv *entity.Invoice, lines []*entity.InvoiceLine) (string, error) {
	if inv == nil {
		return "", fmt.Errorf("verifactu: factura nula")
	}
	if inv.Huella == "" {
		return "", fmt.Errorf("verifactu: la factura %s no tiene huella calculada", inv.FullNumber)
	}

	doc, body := s.newEnvelope()
	reg := body.CreateElement("sfLR:RegistroFactura")
	alta := reg.CreateElement("sf:RegistroAlta")

	addText(alta, "sf:IDVersion", idVersion)

	idFactura := alta.CreateElement("sf:IDFactura")
	addText(idFactura, "sf:IDEmisorFactura", inv.IssuerNIF)
	addText(idFactura, "sf:NumSerieFactura", inv.FullNumber)
	addText(idFactura, "sf:FechaExpedicionFactura", domverifactu.FormatFechaExpedicion(inv.IssueDate))

	addText(alta, "sf:NombreRazonEmisor", inv.IssuerName)
	addText(alta, "sf:TipoFactura", inv.InvoiceType)

	if inv.IsRectifying {
		if err := s.writeRectificativa(alta, inv); err != nil {
			return "", err
		}
	}

	addText(alta, "sf:DescripcionOperacion", inv.Description)

	if inv.RecipientNIF != "" || inv.RecipientName != "" {
		dest := alta.CreateElement("sf:Destinatarios").CreateElement("sf:IDDestinatario")
		if inv.RecipientNIF != "" {
			addText(dest, "sf:NIF", inv.RecipientNIF)
		}
		addText(dest, "sf:NombreRazon", inv.RecipientName)
	}

	if err := s.writeDesglose(alta, lines); err != nil {
		return "", err
	}

	addText(alta, "sf:CuotaTotal", formatImporte(inv.VATAmount))
	addText(alta, "sf:ImporteTotal", formatImporte(inv.Subtotal.Add(inv.VATAmount)))

	s.writeEncadenamiento(alta, inv.HuellaAnterior)
	s.writeSistemaInformatico(alta)

	addText(alta, "sf:FechaHoraHusoGenRegistro", domverifactu.FormatFechaHoraHuso(inv.GeneratedAt))
	addText(alta, "sf:TipoHuella", domverifactu.TipoHuella)
	addText(alta, "sf:Huella", inv.Huella)

	return serialize(doc)
}

// BuildAnulacion genera el sobre SOAP con el RegistroAnulacion. El XSD usa nombres
// propios para la identificación de la factura anulada (sufijo Anulada).
func (s *XMLBuilderService) BuildAnulacion(inv *entity.Invoice, rec *entity.CancellationRecord) (string, error) {
	if inv == nil || rec == nil {
		return "", fmt.Errorf("verifactu: factura o registro de anulación nulos")
	}
	if rec.Huella == "" {
		return "", fmt.Errorf("verifactu: el registro de anulación de %s no tiene huella", inv.FullNumber)
	}

	doc, body := s.newEnvelope()
	reg := body.CreateElement("sfLR:RegistroFactura")
	anul := reg.CreateElement("sf:RegistroAnulacion")

	addText(anul, "sf:IDVersion", idVersion)

	idFactura := anul.CreateElement("sf:IDFactura")
	addText(idFactura, "sf:IDEmisorFacturaAnulada", inv.IssuerNIF)
	addText(idFactura, "sf:NumSerieFacturaAnulada", inv.FullNumber)
	addText(idFactura, "sf:FechaExpedicionFacturaAnulada", domverifactu.FormatFechaExpedicion(inv.IssueDate))

	s.writeEncadenamiento(anul, rec.HuellaAnterior)
	s.writeSistemaInformatico(anul)

	addText(anul, "sf:FechaHoraHusoGenRegistro", domverifactu.FormatFechaHoraHuso(rec.GeneratedAt))
	addText(anul, "sf:TipoHuella", domverifactu.TipoHuella)
	addText(anul, "sf:Huella", rec.Huella)

	return serialize(doc)
}

// newEnvelope crea el sobre SOAP con la cabecera del obligado a expedir.
func (s *XMLBuilderService) newEnvelope() (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	env := doc.CreateElement("soapenv:Envelope")
	env.CreateAttr("xmlns:soapenv", nsSoap)
	env.CreateAttr("xmlns:sf", nsSF)
	env.CreateAttr("xmlns:sfLR", nsSFLR)
	env.CreateElement("soapenv:Header")

	body := env.CreateElement("soapenv:Body")
	root := body.CreateElement("sfLR:RegFactuSistemaFacturacion")

	cab := root.CreateElement("sf:Cabecera")
	obligado := cab.CreateElement("sf:ObligadoEmision")
	addText(obligado, "sf:NombreRazon", s.cfg.IssuerName)
	addText(obligado, "sf:NIF", s.cfg.IssuerNIF)

	return doc, root
}

// writeDesglose agrega las líneas por tipo impositivo y escribe un DetalleDesglose
// por cada tipo, ordenados de menor a mayor para que la salida sea estable.
func (s *XMLBuilderService) writeDesglose(alta *etree.Element, lines []*entity.InvoiceLine) error {
	if len(lines) == 0 {
		return fmt.Errorf("verifactu: la factura no tiene líneas")
	}

	type bucket struct {
		base  decimal.Decimal
		cuota decimal.Decimal
	}
	byRate := make(map[string]*bucket)
	for _, l := range lines {
		key := l.VATRate.Round(2).StringFixed(2)
		b, ok := byRate[key]
		if !ok {
			b = &bucket{base: decimal.Zero, cuota: decimal.Zero}
			byRate[key] = b
		}
		b.base = b.base.Add(l.Subtotal)
		b.cuota = b.cuota.Add(l.VATAmount)
	}
	if len(byRate) > entity.MaxDesgloseLines {
		return fmt.Errorf("verifactu: %d tipos impositivos distintos, máximo %d", len(byRate), entity.MaxDesgloseLines)
	}

	rates := make([]string, 0, len(byRate))
	for rate := range byRate {
		rates = append(rates, rate)
	}
	sort.Strings(rates)

	desglose := alta.CreateElement("sf:Desglose")
	for _, rate := range rates {
		b := byRate[rate]
		det := desglose.CreateElement("sf:DetalleDesglose")
		addText(det, "sf:Impuesto", impuestoIVA)
		addText(det, "sf:ClaveRegimen", claveRegimenComun)
		addText(det, "sf:CalificacionOperacion", calificacionSujeta)
		addText(det, "sf:TipoImpositivo", rate)
		addText(det, "sf:BaseImponibleOimporteNoSujeto", formatImporte(b.base))
		addText(det, "sf:CuotaRepercutida", formatImporte(b.cuota))
	}
	return nil
}

func (s *XMLBuilderService) writeRectificativa(alta *etree.Element, inv *entity.Invoice) error {
	if inv.RectificationKind != entity.RectificationSubstitution &&
		inv.RectificationKind != entity.RectificationDifference {
		return fmt.Errorf("verifactu: tipo de rectificativa desconocido %q", inv.RectificationKind)
	}
	if inv.RectifiedFullNumber == "" {
		return fmt.Errorf("verifactu: rectificativa %s sin referencia a la factura rectificada", inv.FullNumber)
	}
	addText(alta, "sf:TipoRectificativa", inv.RectificationKind)

	refs := alta.CreateElement("sf:FacturasRectificadas")
	ref := refs.CreateElement("sf:IDFacturaRectificada")
	addText(ref, "sf:IDEmisorFactura", inv.IssuerNIF)
	addText(ref, "sf:NumSerieFactura", inv.RectifiedFullNumber)
	addText(ref, "sf:FechaExpedicionFactura", domverifactu.FormatFechaExpedicion(inv.RectifiedIssueDate))
	return nil
}

// writeEncadenamiento escribe el eslabón con el registro anterior. El primer
// registro de la cadena se marca con PrimerRegistro=S.
func (s *XMLBuilderService) writeEncadenamiento(parent *etree.Element, huellaAnterior string) {
	enc := parent.CreateElement("sf:Encadenamiento")
	if huellaAnterior == "" {
		addText(enc, "sf:PrimerRegistro", "S")
		return
	}
	prev := enc.CreateElement("sf:RegistroAnterior")
	addText(prev, "sf:Huella", huellaAnterior)
}

func (s *XMLBuilderService) writeSistemaInformatico(parent *etree.Element) {
	si := parent.CreateElement("sf:SistemaInformatico")
	addText(si, "sf:NombreRazon", s.cfg.IssuerName)
	addText(si, "sf:NIF", s.cfg.IssuerNIF)
	addText(si, "sf:NombreSistemaInformatico", s.cfg.SoftwareName)
	addText(si, "sf:IdSistemaInformatico", s.cfg.SoftwareID)
	addText(si, "sf:Version", s.cfg.SoftwareVer)
	addText(si, "sf:NumeroInstalacion", s.cfg.Installation)
	addText(si, "sf:TipoUsoPosibleSoloVerifactu", "S")
	addText(si, "sf:TipoUsoPosibleMultiOT", "N")
	addText(si, "sf:IndicadorMultiplesOT", "N")
}

func addText(parent *etree.Element, tag, value string) {
	parent.CreateElement(tag).SetText(value)
}

func formatImporte(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

func serialize(doc *etree.Document) (string, error) {
	doc.Indent(2)
	out, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("verifactu: serializar XML: %w", err)
	}
	return out, nil
}
