// Package pdf implementa la representación gráfica de la factura con el
// contenido que exige el Reglamento Veri*Factu (RD 1007/2023): número completo,
// huella del registro de alta y QR de cotejo en la sede de la AEAT.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Razón social + NIF  │  N° Factura + Fecha          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  DESTINATARIO: Nombre + NIF                                 │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Concepto | P.Unit | IVA | Importe            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Base / IVA / Retención IRPF / TOTAL               │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: Huella + QR cotejo + leyenda VERI*FACTU            │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"net/url"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	marotocfg "github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/hostalia/billing-api/internal/application/billing"
	"github.com/hostalia/billing-api/internal/domain/entity"
	"github.com/hostalia/billing-api/pkg/config"
)

// URLs de cotejo del QR tributario (servicio de validación de la sede AEAT).
const (
	qrURLProd = "https://www2.agenciatributaria.gob.es/wlpl/TIKE-CONT/ValidarQR"
	qrURLTest = "https://prewww2.aeat.es/wlpl/TIKE-CONT/ValidarQR"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 11, Green: 83, Blue: 69}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

var _ billing.InvoicePDFGenerator = (*MarotoPDFGenerator)(nil)

// MarotoPDFGenerator implementa billing.InvoicePDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct {
	cfg     config.AEATConfig
	printer *message.Printer
}

// NewMarotoPDFGenerator construye el generador. Los importes se formatean en
// convención es-ES (punto de miles, coma decimal).
func NewMarotoPDFGenerator(cfg config.AEATConfig) *MarotoPDFGenerator {
	return &MarotoPDFGenerator{
		cfg:     cfg,
		printer: message.NewPrinter(language.EuropeanSpanish),
	}
}

// Generate genera el PDF de la factura y devuelve sus bytes.
func (g *MarotoPDFGenerator) Generate(invoice *entity.Invoice, lines []*entity.InvoiceLine) ([]byte, error) {
	if invoice == nil {
		return nil, fmt.Errorf("pdf: factura nula")
	}

	cfg := marotocfg.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Factura "+invoice.FullNumber, true).
		WithAuthor(invoice.IssuerName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(g.headerRow(invoice))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	if invoice.IsRectifying {
		m.AddRows(g.rectificativaRow(invoice))
	}
	m.AddRows(g.destinatarioRow(invoice))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, r := range g.tableDetailRows(lines) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(g.totalsRow(invoice))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	for _, r := range g.fiscalFooterRows(invoice) {
		m.AddRows(r)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: razón social + NIF (izq) y número + fecha (der).
func (g *MarotoPDFGenerator) headerRow(invoice *entity.Invoice) core.Row {
	title := "FACTURA"
	if invoice.IsRectifying {
		title = "FACTURA RECTIFICATIVA"
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(invoice.IssuerName, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("NIF: "+invoice.IssuerNIF, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(title, props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(invoice.FullNumber, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+invoice.IssueDate.Format("02/01/2006"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// rectificativaRow: referencia a la factura rectificada.
func (g *MarotoPDFGenerator) rectificativaRow(invoice *entity.Invoice) core.Row {
	modalidad := "por sustitución"
	if invoice.RectificationKind == entity.RectificationDifference {
		modalidad = "por diferencias"
	}
	return row.New(8).Add(col.New(12).Add(
		text.New(fmt.Sprintf("Rectifica %s la factura %s de fecha %s.",
			modalidad, invoice.RectifiedFullNumber,
			invoice.RectifiedIssueDate.Format("02/01/2006")),
			props.Text{Size: 8, Top: 2, Color: colorGray}),
	))
}

// destinatarioRow: datos del destinatario de la factura.
func (g *MarotoPDFGenerator) destinatarioRow(invoice *entity.Invoice) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New("DESTINATARIO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(invoice.RecipientName, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New("NIF: "+invoice.RecipientNIF, props.Text{
				Size: 8, Top: 12, Color: colorGray,
			}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de conceptos.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Concepto", 5, align.Left),
		h("P. Unit.", 2, align.Right),
		h("IVA%", 1, align.Center),
		h("Importe", 3, align.Right),
	)
}

// tableDetailRows: una fila por línea de la factura.
func (g *MarotoPDFGenerator) tableDetailRows(lines []*entity.InvoiceLine) []core.Row {
	result := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(
				l.Quantity.String(),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(5).Add(text.New(
				l.Concept,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				g.euros(l.UnitPrice),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(1).Add(text.New(
				l.VATRate.StringFixed(0)+"%",
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(3).Add(text.New(
				g.euros(l.Subtotal),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

// totalsRow: bloque de totales alineado a la derecha. La retención IRPF solo
// aparece cuando existe.
func (g *MarotoPDFGenerator) totalsRow(invoice *entity.Invoice) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2,
		})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	grandLabel := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 2,
		})
	}
	grandValue := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 1,
		})
	}

	labels := []core.Component{label("Base imponible:"), label("IVA:")}
	values := []core.Component{g.valueComp(value, invoice.Subtotal), g.valueComp(value, invoice.VATAmount)}
	if invoice.RetentionAmount.IsPositive() {
		labels = append(labels, label("Retención IRPF:"))
		values = append(values, g.valueComp(value, invoice.RetentionAmount.Neg()))
	}
	labels = append(labels, grandLabel("TOTAL:"))
	values = append(values, g.valueComp(grandValue, invoice.Total))

	return row.New(30).Add(
		col.New(3),
		col.New(3).Add(labels...),
		col.New(3).Add(values...),
		col.New(3),
	)
}

func (g *MarotoPDFGenerator) valueComp(mk func(string) core.Component, d decimal.Decimal) core.Component {
	return mk(g.euros(d))
}

// fiscalFooterRows: huella del registro + QR de cotejo + leyenda Veri*Factu.
func (g *MarotoPDFGenerator) fiscalFooterRows(invoice *entity.Invoice) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("INFORMACIÓN DEL REGISTRO DE FACTURACIÓN", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
	}

	if invoice.Huella != "" {
		rows = append(rows, row.New(8).Add(col.New(12).Add(
			text.New("Huella (SHA-256):", props.Text{
				Style: fontstyle.Bold, Size: 7, Top: 1,
			}),
			text.New(invoice.Huella, props.Text{
				Size: 6.5, Color: colorGray, Top: 5, Left: 2,
			}),
		)))
	}

	rows = append(rows, row.New(3))
	rows = append(rows, row.New(40).Add(
		col.New(4).Add(code.NewQr(g.qrData(invoice), props.Rect{
			Percent: 95,
			Center:  true,
		})),
		col.New(8).Add(
			text.New("QR tributario: escanéalo para cotejar\nesta factura en la sede de la AEAT.", props.Text{
				Size: 8, Top: 4, Left: 3, Color: colorGray,
			}),
			text.New("VERI*FACTU", props.Text{
				Style: fontstyle.Bold, Size: 11, Top: 20,
				Left: 3, Color: colorPrimary,
			}),
			text.New("Factura verificable en la sede electrónica de la AEAT", props.Text{
				Size: 7, Top: 27, Left: 3, Color: colorGray,
			}),
		),
	))

	return rows
}

// qrData compone la URL de cotejo del QR tributario (Orden HAC/1177/2024).
func (g *MarotoPDFGenerator) qrData(invoice *entity.Invoice) string {
	base := qrURLProd
	if g.cfg.Environment != "1" {
		base = qrURLTest
	}
	v := url.Values{}
	v.Set("nif", invoice.IssuerNIF)
	v.Set("numserie", invoice.FullNumber)
	v.Set("fecha", invoice.IssueDate.Format("02-01-2006"))
	v.Set("importe", invoice.Subtotal.Add(invoice.VATAmount).Round(2).StringFixed(2))
	return base + "?" + v.Encode()
}

// euros formatea un importe en convención es-ES con el símbolo del euro.
func (g *MarotoPDFGenerator) euros(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return g.printer.Sprintf("%v €", number.Decimal(f,
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}
