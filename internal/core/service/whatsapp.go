package service

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/sagfo/storefront/internal/core/domain"
)

const whatsAppBaseURL = "https://wa.me/"

// WhatsAppURL builds a click-to-chat deep link. Everything but digits is
// stripped from the phone number.
func WhatsAppURL(phone, text string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
	// wa.me expects %20 rather than + for spaces
	return whatsAppBaseURL + digits + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

func PaymentReceivedMessage(order domain.Order) string {
	return fmt.Sprintf("¡Hola %s! 👋 Confirmamos el recibo de tu pago para el pedido #%s. Tu equipo ya está en proceso de gestión.",
		order.CustomerInfo.Name, order.ShortID())
}

func ShippedMessage(order domain.Order) string {
	return fmt.Sprintf("¡Hola %s! 👋 Tu pedido #%s ha sido despachado y está en camino. ¡Pronto disfrutarás de tu equipo SAGFO elite!",
		order.CustomerInfo.Name, order.ShortID())
}

func PendingBalanceMessage(order domain.Order) string {
	var pending int64
	if order.Financials != nil {
		pending = order.Financials.AmountPending
	}
	return fmt.Sprintf("¡Hola %s! 👋 Te contacto de SAGFO Elite. Tu pedido #%s está progresando, pero registramos un saldo pendiente de %s. ¿Nos podrías confirmar el pago para programar el despacho? 🏅",
		order.CustomerInfo.Name, order.ShortID(), FormatPesos(pending))
}

// StatusNotification returns the message sent when an order enters status,
// or "" when that status does not notify the customer.
func StatusNotification(order domain.Order, status domain.OrderStatus) string {
	switch status {
	case domain.OrderStatusReceived:
		return PaymentReceivedMessage(order)
	case domain.OrderStatusInTransit:
		return ShippedMessage(order)
	}
	return ""
}

// OrderSummary is the plain-text summary staff paste into chats.
func OrderSummary(order domain.Order) string {
	c := order.CustomerInfo
	var f domain.OrderFinancials
	if order.Financials != nil {
		f = *order.Financials
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📦 PEDIDO #%s\n", order.ShortID())
	b.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "👤 Cliente: %s\n", orDefault(c.Name, "Cliente SAGFO"))
	fmt.Fprintf(&b, "📞 Tel: %s\n", orDefault(c.Phone, "Sin teléfono"))
	fmt.Fprintf(&b, "📍 Ubicación: %s, %s", orDefault(c.City, "Sin ciudad"), orDefault(c.Department, "Sin depto"))
	if c.Country != "" {
		fmt.Fprintf(&b, " (%s)", c.Country)
	}
	fmt.Fprintf(&b, "\n🏠 Dirección: %s\n\n", orDefault(c.Address, "No especificada"))

	b.WriteString("💰 RESUMEN FINANCIERO\n")
	fmt.Fprintf(&b, "- Total: %s\n", FormatPesos(f.TotalOrderValue))
	fmt.Fprintf(&b, "- Pagado: %s\n", FormatPesos(f.AmountPaid))
	fmt.Fprintf(&b, "- Pendiente: %s\n", FormatPesos(f.AmountPending))
	fmt.Fprintf(&b, "- Método: %s\n\n", order.PaymentMethod.Label())

	b.WriteString("🛒 PRODUCTOS\n")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "- %dx %s\n", item.Quantity, item.Equipment.Name)
		if v := item.StructureColor; v != nil && *v != "" {
			fmt.Fprintf(&b, "  • Estructura: %s\n", *v)
		}
		if v := item.UpholsteryColor; v != nil && *v != "" {
			fmt.Fprintf(&b, "  • Tapicería: %s\n", *v)
		}
		if v := item.SelectedWeight; v != nil && *v != "" {
			fmt.Fprintf(&b, "  • Peso: %s\n", *v)
		}
	}

	fmt.Fprintf(&b, "\n📝 ESTADO: %s\n", strings.ToUpper(string(order.Status)))
	b.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━\n")
	b.WriteString("generado por SAGFO Elite v2")
	return b.String()
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
