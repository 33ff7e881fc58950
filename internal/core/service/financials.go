package service

import (
	"github.com/shopspring/decimal"

	"github.com/sagfo/storefront/internal/core/domain"
)

// productionDeposit is the share of made-to-order goods collected up front.
var productionDeposit = decimal.NewFromFloat(0.5)

type billableLine struct {
	madeToOrder bool
	subtotal    int64
}

// CalculateFinancials applies the hybrid payment policy to a cart: in-stock
// goods are paid in full, made-to-order goods half now and half on delivery.
// The pending half is rounded half away from zero and the paid amount takes
// the remainder, so paid + pending always equals the total.
func CalculateFinancials(lines domain.CartSnapshot) domain.SplitBreakdown {
	billable := make([]billableLine, 0, len(lines))
	for _, line := range lines {
		billable = append(billable, billableLine{
			madeToOrder: line.Equipment.MadeToOrder(),
			subtotal:    line.Subtotal(),
		})
	}
	return split(billable)
}

// CalculateOrderFinancials is CalculateFinancials over committed order
// items, billed at their purchase-time price.
func CalculateOrderFinancials(items []domain.OrderItem) domain.SplitBreakdown {
	billable := make([]billableLine, 0, len(items))
	for _, item := range items {
		var subtotal int64
		if item.Quantity > 0 {
			subtotal = item.UnitPrice() * int64(item.Quantity)
		}
		billable = append(billable, billableLine{
			madeToOrder: item.Equipment.MadeToOrder(),
			subtotal:    subtotal,
		})
	}
	return split(billable)
}

func split(lines []billableLine) domain.SplitBreakdown {
	var inStock, production int64
	var hasInStock, hasProduction bool

	for _, line := range lines {
		if line.madeToOrder {
			production += line.subtotal
			hasProduction = true
		} else {
			inStock += line.subtotal
			hasInStock = true
		}
	}

	total := inStock + production
	pending := decimal.NewFromInt(production).Mul(productionDeposit).Round(0).IntPart()

	method := domain.PaymentMethodStandard
	switch {
	case hasProduction && hasInStock:
		method = domain.PaymentMethodMixed
	case hasProduction:
		method = domain.PaymentMethodProduction
	}

	return domain.SplitBreakdown{
		InStockTotal:    inStock,
		ProductionTotal: production,
		OrderFinancials: domain.OrderFinancials{
			TotalOrderValue: total,
			AmountPaid:      total - pending,
			AmountPending:   pending,
			PaymentMethod:   method,
		},
	}
}

// UnpricedItems lists equipment IDs billed at zero because their price is
// missing or negative.
func UnpricedItems(lines domain.CartSnapshot) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, line := range lines {
		if line.Equipment.Price > 0 || seen[line.Equipment.ID] {
			continue
		}
		seen[line.Equipment.ID] = true
		ids = append(ids, line.Equipment.ID)
	}
	return ids
}
