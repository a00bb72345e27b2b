// Package dto define los contratos de entrada y salida del API HTTP.
package dto

// ErrorResponse cuerpo de error uniforme del API.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
