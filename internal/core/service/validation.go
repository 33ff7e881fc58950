package service

import (
	"errors"
	"strings"

	"github.com/sagfo/storefront/internal/core/domain"
)

// ValidationError is a user-input problem that blocks checkout. Message is
// safe to show to the shopper.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string { return e.Message }

func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}

const (
	msgEmptyCart            = "El carrito está vacío."
	msgMissingCustomization = "Por favor, completa los colores de estructura y tapicería para todos los productos de producción."
	msgMissingPaymentProof  = "Es obligatorio adjuntar el comprobante de pago/transferencia."
	msgMissingAddress       = "Por favor ingresa una dirección de entrega escrita."
)

// ValidateCheckout checks the form and cart before anything is submitted.
// It is pure; the first failing rule wins.
func ValidateCheckout(req CheckoutRequest, lines domain.CartSnapshot) error {
	if len(lines) == 0 {
		return ValidationError{Message: msgEmptyCart}
	}

	for _, line := range lines {
		if !line.Equipment.MadeToOrder() {
			continue
		}
		if blank(line.StructureColor) || blank(line.UpholsteryColor) {
			return ValidationError{Message: msgMissingCustomization}
		}
	}

	if !req.PaymentProof.Present() {
		return ValidationError{Message: msgMissingPaymentProof}
	}

	if strings.TrimSpace(req.Customer.Address) == "" {
		return ValidationError{Message: msgMissingAddress}
	}

	return nil
}

func blank(v *string) bool {
	return v == nil || strings.TrimSpace(*v) == ""
}
