package verifactu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const respuestaCorrecta = `<?xml version="1.0" encoding="UTF-8"?>
<env:Envelope xmlns:env="http://schemas.xmlsoap.org/soap/envelope/">
  <env:Body>
    <tikR:RespuestaRegFactuSistemaFacturacion xmlns:tikR="https://www2.agenciatributaria.gob.es/static_files/common/internet/dep/aplicaciones/es/aeat/tikeV1.0/cont/ws/RespuestaSuministro.xsd">
      <tikR:CSV>A-7GZKSZDFQYBDMY</tikR:CSV>
      <tikR:EstadoEnvio>Correcto</tikR:EstadoEnvio>
      <tikR:RespuestaLinea>
        <tikR:EstadoRegistro>Correcto</tikR:EstadoRegistro>
      </tikR:RespuestaLinea>
    </tikR:RespuestaRegFactuSistemaFacturacion>
  </env:Body>
</env:Envelope>`

const respuestaIncorrecta = `<?xml version="1.0" encoding="UTF-8"?>
<env:Envelope xmlns:env="http://schemas.xmlsoap.org/soap/envelope/">
  <env:Body>
    <tikR:RespuestaRegFactuSistemaFacturacion xmlns:tikR="https://www2.agenciatributaria.gob.es/static_files/common/internet/dep/aplicaciones/es/aeat/tikeV1.0/cont/ws/RespuestaSuministro.xsd">
      <tikR:EstadoEnvio>Incorrecto</tikR:EstadoEnvio>
      <tikR:RespuestaLinea>
        <tikR:EstadoRegistro>Incorrecto</tikR:EstadoRegistro>
        <tikR:CodigoErrorRegistro>4102</tikR:CodigoErrorRegistro>
        <tikR:DescripcionErrorRegistro>El NIF no está identificado en el censo de la AEAT</tikR:DescripcionErrorRegistro>
      </tikR:RespuestaLinea>
    </tikR:RespuestaRegFactuSistemaFacturacion>
  </env:Body>
</env:Envelope>`

const respuestaFault = `<?xml version="1.0" encoding="UTF-8"?>
<env:Envelope xmlns:env="http://schemas.xmlsoap.org/soap/envelope/">
  <env:Body>
    <env:Fault>
      <faultcode>env:Client</faultcode>
      <faultstring>Certificado no admitido</faultstring>
    </env:Fault>
  </env:Body>
</env:Envelope>`

func TestParseResponse_EnvioCorrecto(t *testing.T) {
	res := parseResponse([]byte(respuestaCorrecta))

	assert.True(t, res.Accepted)
	assert.Equal(t, "A-7GZKSZDFQYBDMY", res.CSV)
	assert.Empty(t, res.Errors)
	assert.Contains(t, res.Response, "EstadoEnvio", "la respuesta cruda se conserva para auditoría")
}

func TestParseResponse_EnvioIncorrecto(t *testing.T) {
	res := parseResponse([]byte(respuestaIncorrecta))

	assert.False(t, res.Accepted)
	assert.Empty(t, res.CSV)
	assert.Contains(t, res.Errors, "4102")
	assert.Contains(t, res.Errors, "censo")
}

func TestParseResponse_SOAPFault(t *testing.T) {
	res := parseResponse([]byte(respuestaFault))

	assert.False(t, res.Accepted)
	assert.Contains(t, res.Errors, "SOAP Fault")
	assert.Contains(t, res.Errors, "Certificado no admitido")
}

func TestParseResponse_BasuraNoAborta(t *testing.T) {
	res := parseResponse([]byte("<html>502 Bad Gateway</html"))

	require.NotNil(t, res)
	assert.False(t, res.Accepted)
	assert.Contains(t, res.Errors, "no se pudo parsear")
}

func TestSubmit_EntornoDesconocido(t *testing.T) {
	c := NewSOAPClient()

	_, err := c.Submit(context.Background(), "<x/>", "dev")
	assert.Error(t, err, "dev nunca debe llegar al cliente SOAP")
}
