package billing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostalia/billing-api/internal/domain"
	"github.com/hostalia/billing-api/internal/domain/entity"
)

// TestCancelInvoice_EncadenaConLaColaVigente la anulación de una factura antigua
// se encadena a la cola ACTUAL de la serie, no a la huella de la propia factura:
// entre medias pudo emitirse cualquier número de registros.
func TestCancelInvoice_EncadenaConLaColaVigente(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	primera, _, err := env.issue.Execute(ctx, solicitudEmision())
	require.NoError(t, err)
	segunda, _, err := env.issue.Execute(ctx, solicitudEmision())
	require.NoError(t, err)

	inv, record, err := env.cancel.Execute(ctx, primera.ID)
	require.NoError(t, err)

	assert.Equal(t, entity.InvoiceStatusCancelled, inv.Status)
	assert.NotNil(t, inv.CancelledAt)
	assert.Equal(t, segunda.Huella, record.HuellaAnterior,
		"la anulación se encadena a la cola vigente, que es la huella de la segunda factura")
	assert.NotEqual(t, primera.Huella, record.HuellaAnterior)
	assert.Len(t, record.Huella, 64)
}

// TestCancelInvoice_AvanzaHuellaSinConsumirNumero la serie avanza su cola de
// huella pero el contador de números no se mueve.
func TestCancelInvoice_AvanzaHuellaSinConsumirNumero(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	inv, _, err := env.issue.Execute(ctx, solicitudEmision())
	require.NoError(t, err)

	_, record, err := env.cancel.Execute(ctx, inv.ID)
	require.NoError(t, err)

	s := env.series()
	assert.Equal(t, int64(1), s.LastNumber, "anular no consume número")
	assert.Equal(t, record.Huella, s.LastHuella, "la cola de la serie es ahora la huella de la anulación")

	// La siguiente emisión se encadena a la anulación y recibe el número 2.
	siguiente, _, err := env.issue.Execute(ctx, solicitudEmision())
	require.NoError(t, err)
	assert.Equal(t, int64(2), siguiente.Number)
	assert.Equal(t, record.Huella, siguiente.HuellaAnterior)
}

// TestCancelInvoice_NoTocaLaFacturaOriginal los campos fiscales de la factura
// anulada quedan intactos: número, huella e importes sobreviven a la anulación.
func TestCancelInvoice_NoTocaLaFacturaOriginal(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	inv, _, err := env.issue.Execute(ctx, solicitudEmision())
	require.NoError(t, err)
	huellaOriginal, numeroOriginal, totalOriginal := inv.Huella, inv.FullNumber, inv.Total

	_, _, err = env.cancel.Execute(ctx, inv.ID)
	require.NoError(t, err)

	persistida := env.store.state.invoices[inv.ID]
	assert.Equal(t, huellaOriginal, persistida.Huella)
	assert.Equal(t, numeroOriginal, persistida.FullNumber)
	assert.True(t, totalOriginal.Equal(persistida.Total))
	assert.Equal(t, entity.InvoiceStatusCancelled, persistida.Status)
}

func TestCancelInvoice_RemiteAnulacionYAudita(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	inv, _, err := env.issue.Execute(ctx, solicitudEmision())
	require.NoError(t, err)

	_, record, err := env.cancel.Execute(ctx, inv.ID)
	require.NoError(t, err)

	assert.Equal(t, entity.GatewayAccepted, record.GatewayStatus)
	require.Len(t, env.store.submissions, 2, "alta + anulación, una fila de auditoría cada una")
	assert.Equal(t, entity.SubmissionKindAnulacion, env.store.submissions[1].Kind)
}

func TestCancelInvoice_DobleAnulacionRechazada(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	inv, _, err := env.issue.Execute(ctx, solicitudEmision())
	require.NoError(t, err)

	_, _, err = env.cancel.Execute(ctx, inv.ID)
	require.NoError(t, err)

	_, _, err = env.cancel.Execute(ctx, inv.ID)
	assert.ErrorIs(t, err, domain.ErrNotCancellable, "una factura anulada no se anula dos veces")
}

func TestCancelInvoice_FacturaInexistente(t *testing.T) {
	env := newTestEnv()
	_, _, err := env.cancel.Execute(context.Background(), "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
