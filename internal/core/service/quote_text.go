package service

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sagfo/storefront/internal/core/domain"
)

const quoteTerms = `Términos y Condiciones
- Tiempo de entrega estimado: 25-35 días hábiles.
- Garantía: 5 años en estructura, 1 año en tapicería y partes móviles.
- Forma de pago: 50% anticipo, 50% contra entrega.`

// RenderQuoteText renders the printable quote. Output depends only on its
// arguments so the printed copy always matches the preview.
func RenderQuoteText(q domain.Quote, date time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "COTIZACIÓN ÉLITE\nFecha: %s\n\n", date.Format("02/01/2006"))
	fmt.Fprintf(&b, "Cliente: %s\n", q.CustomerName)
	if q.Destination != "" {
		fmt.Fprintf(&b, "Destino: %s\n", q.Destination)
	}
	b.WriteString("Proveedor: SAGFO FITNESS CO.\n\n")

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Equipo\tCant.\tPrecio Unit.\tSubtotal\t")
	for _, line := range q.Lines {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t\n", line.Name, line.Quantity, FormatPesos(line.UnitPrice), FormatPesos(line.Subtotal))
	}
	tw.Flush()

	fmt.Fprintf(&b, "\nTotal equipos: %d\nTotal inversión: %s\n\n", q.ItemCount, FormatPesos(q.Total))
	b.WriteString(quoteTerms)
	b.WriteString("\n")
	return b.String()
}
