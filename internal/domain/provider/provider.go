package provider

import "errors"

// Code identifies one of the supported billing providers
type Code string

const (
	CodeNibo      Code = "nibo"
	CodeSafe2Pay  Code = "safe2pay"
	CodeAsaas     Code = "asaas"
	CodeContaAzul Code = "contaazul"
)

// AllCodes lists every supported provider code
func AllCodes() []Code {
	return []Code{CodeNibo, CodeSafe2Pay, CodeAsaas, CodeContaAzul}
}

// ParseCode validates a raw provider identifier
func ParseCode(raw string) (Code, error) {
	switch Code(raw) {
	case CodeNibo, CodeSafe2Pay, CodeAsaas, CodeContaAzul:
		return Code(raw), nil
	}
	return "", ErrUnknownProvider
}

// DefaultCategory returns the invoice category label used when the
// provider does not report one
func (c Code) DefaultCategory() string {
	switch c {
	case CodeNibo:
		return "Nibo"
	case CodeSafe2Pay:
		return "Safe2Pay"
	case CodeAsaas:
		return "Asaas"
	case CodeContaAzul:
		return "Conta Azul"
	}
	return string(c)
}

// Provider-level errors shared by all adapters
var (
	ErrUnknownProvider    = errors.New("provider: unknown provider code")
	ErrNotConfigured      = errors.New("provider: connection not configured")
	ErrRequestFailed      = errors.New("provider: request failed")
	ErrInvalidResponse    = errors.New("provider: invalid response payload")
	ErrUnavailable        = errors.New("provider: upstream unavailable")
	ErrReceivableNotFound = errors.New("provider: receivable not found upstream")
	ErrNotSupported       = errors.New("provider: operation not supported by this provider")
)
