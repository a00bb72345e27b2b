package verifactu

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hostalia/billing-api/internal/domain/entity"
)

// ErrInvalidInvoice agrupa errores de validación de factura.
var ErrInvalidInvoice = errors.New("factura inválida para Veri*Factu")

// ErrInvalidNIF identificación fiscal española mal formada o con letra de control errónea.
var ErrInvalidNIF = errors.New("NIF inválido")

// Letras de control del DNI/NIE, indexadas por resto mod 23.
const dniControlLetters = "TRWAGMYFPDXBNJZSQVHLCKE"

var (
	dniPattern = regexp.MustCompile(`^[0-9]{8}[A-Z]$`)
	niePattern = regexp.MustCompile(`^[XYZ][0-9]{7}[A-Z]$`)
	cifPattern = regexp.MustCompile(`^[ABCDEFGHJKLMNPQRSUVW][0-9]{7}[0-9A-J]$`)
)

// ValidateNIF valida una identificación fiscal española: DNI (8 dígitos + letra),
// NIE (X/Y/Z + 7 dígitos + letra) o CIF de entidad (letra + 7 dígitos + control).
// Normaliza a mayúsculas y sin espacios antes de validar.
func ValidateNIF(nif string) error {
	n := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(nif), " ", ""))
	if n == "" {
		return fmt.Errorf("%w: vacío", ErrInvalidNIF)
	}

	switch {
	case dniPattern.MatchString(n):
		num, _ := strconv.Atoi(n[:8])
		if dniControlLetters[num%23] != n[8] {
			return fmt.Errorf("%w: letra de control incorrecta en %s", ErrInvalidNIF, n)
		}
		return nil

	case niePattern.MatchString(n):
		// X→0, Y→1, Z→2 y después el mismo mod 23 del DNI.
		prefix := map[byte]string{'X': "0", 'Y': "1", 'Z': "2"}[n[0]]
		num, _ := strconv.Atoi(prefix + n[1:8])
		if dniControlLetters[num%23] != n[8] {
			return fmt.Errorf("%w: letra de control incorrecta en %s", ErrInvalidNIF, n)
		}
		return nil

	case cifPattern.MatchString(n):
		if !validCIFControl(n) {
			return fmt.Errorf("%w: dígito de control incorrecto en %s", ErrInvalidNIF, n)
		}
		return nil
	}

	return fmt.Errorf("%w: formato no reconocido (%s)", ErrInvalidNIF, n)
}

// validCIFControl dígito de control del CIF: suma de pares + suma de dígitos del
// doble de los impares; control = (10 − suma mod 10) mod 10. Según la letra
// inicial el control es numérico (A, B, E, H), alfabético (K, P, Q, S, N, W) o
// cualquiera de los dos.
func validCIFControl(cif string) bool {
	digits := cif[1:8]
	sum := 0
	for i := 0; i < 7; i++ {
		d := int(digits[i] - '0')
		if i%2 == 0 { // posiciones impares 1,3,5,7 del CIF
			dd := d * 2
			sum += dd/10 + dd%10
		} else {
			sum += d
		}
	}
	control := (10 - sum%10) % 10
	ctrlChar := cif[8]

	numericOK := ctrlChar == byte('0'+control)
	letterOK := ctrlChar == "JABCDEFGHI"[control]

	switch cif[0] {
	case 'A', 'B', 'E', 'H':
		return numericOK
	case 'K', 'P', 'Q', 'S', 'N', 'W':
		return letterOK
	default:
		return numericOK || letterOK
	}
}

// ValidateInvoice valida la factura y sus líneas antes de emitirla: NIF del emisor
// y del destinatario válidos, al menos una línea (máximo 12, límite del desglose
// Veri*Factu) y totales coherentes con la suma de las líneas.
func ValidateInvoice(invoice *entity.Invoice, lines []*entity.InvoiceLine) error {
	if invoice == nil {
		return fmt.Errorf("%w: factura nula", ErrInvalidInvoice)
	}
	var errs []error

	if err := ValidateNIF(invoice.IssuerNIF); err != nil {
		errs = append(errs, fmt.Errorf("emisor: %w", err))
	}
	if err := ValidateNIF(invoice.RecipientNIF); err != nil {
		errs = append(errs, fmt.Errorf("destinatario: %w", err))
	}

	switch {
	case len(lines) == 0:
		errs = append(errs, fmt.Errorf("%w: la factura debe tener al menos una línea", ErrInvalidInvoice))
	case len(lines) > entity.MaxDesgloseLines:
		errs = append(errs, fmt.Errorf("%w: máximo %d líneas de desglose, hay %d", ErrInvalidInvoice, entity.MaxDesgloseLines, len(lines)))
	default:
		var sumSubtotal, sumVAT, sumRet decimal.Decimal
		for _, l := range lines {
			sumSubtotal = sumSubtotal.Add(l.Subtotal)
			sumVAT = sumVAT.Add(l.VATAmount)
			sumRet = sumRet.Add(l.RetAmount)
		}
		if !invoice.Subtotal.Equal(sumSubtotal) {
			errs = append(errs, fmt.Errorf("subtotal (%s) no coincide con la suma de líneas (%s)", invoice.Subtotal, sumSubtotal))
		}
		if !invoice.VATAmount.Equal(sumVAT) {
			errs = append(errs, fmt.Errorf("cuota de IVA (%s) no coincide con la suma de líneas (%s)", invoice.VATAmount, sumVAT))
		}
		if !invoice.RetentionAmount.Equal(sumRet) {
			errs = append(errs, fmt.Errorf("retención (%s) no coincide con la suma de líneas (%s)", invoice.RetentionAmount, sumRet))
		}
		expectedTotal := sumSubtotal.Add(sumVAT).Sub(sumRet)
		if !invoice.Total.Equal(expectedTotal) {
			errs = append(errs, fmt.Errorf("total (%s) no coincide con base + IVA − retención (%s)", invoice.Total, expectedTotal))
		}
	}

	if invoice.IsRectifying {
		if invoice.InvoiceType != entity.InvoiceTypeR1 {
			errs = append(errs, fmt.Errorf("%w: una rectificativa debe ser de tipo R1", ErrInvalidInvoice))
		}
		if invoice.RectificationKind != entity.RectificationSubstitution && invoice.RectificationKind != entity.RectificationDifference {
			errs = append(errs, fmt.Errorf("%w: tipo de rectificativa desconocido (%s)", ErrInvalidInvoice, invoice.RectificationKind))
		}
		if invoice.RectifiesInvoiceID == "" {
			errs = append(errs, fmt.Errorf("%w: la rectificativa debe referenciar la factura rectificada", ErrInvalidInvoice))
		}
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidInvoice}, errs...)...)
	}
	return nil
}
