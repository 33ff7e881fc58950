package domain

type PaymentMethod string

const (
	PaymentMethodStandard   PaymentMethod = "standard"
	PaymentMethodProduction PaymentMethod = "production"
	PaymentMethodMixed      PaymentMethod = "mixed"
)

// Label is the wording used in customer-facing summaries.
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentMethodProduction:
		return "Producción (50/50)"
	case PaymentMethodStandard:
		return "Pago Total"
	default:
		return "Mixto"
	}
}

// OrderFinancials amounts are whole pesos.
// AmountPaid + AmountPending always equals TotalOrderValue.
type OrderFinancials struct {
	TotalOrderValue int64         `json:"totalOrderValue"`
	AmountPaid      int64         `json:"amountPaid"`
	AmountPending   int64         `json:"amountPending"`
	PaymentMethod   PaymentMethod `json:"paymentMethod"`
}

func (f OrderFinancials) Balanced() bool {
	return f.AmountPaid+f.AmountPending == f.TotalOrderValue
}

type SplitBreakdown struct {
	InStockTotal    int64 `json:"inStockTotal"`
	ProductionTotal int64 `json:"productionTotal"`
	OrderFinancials
}
