package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/sagfo/storefront/internal/core/domain"
	"github.com/sagfo/storefront/internal/port"
)

var (
	ErrOrderNotFound     = port.ErrOrderNotFound
	ErrEquipmentNotFound = errors.New("equipment not found")
	ErrInvalidStatus     = errors.New("invalid order status")
)

type DashboardStats struct {
	TotalRevenue  int64 `json:"totalRevenue"`
	PendingOrders int   `json:"pendingOrders"`
	TotalProducts int   `json:"totalProducts"`
	TotalOrders   int   `json:"totalOrders"`
}

type Debt struct {
	Order       domain.Order `json:"order"`
	ReminderURL string       `json:"reminderUrl"`
}

type StatusChange struct {
	Order     domain.Order `json:"order"`
	NotifyURL string       `json:"notifyUrl,omitempty"`
}

// AdminService backs the back-office screens.
type AdminService struct {
	orders  port.OrderRepository
	catalog port.CatalogRepository
	logger  *zap.Logger
}

func NewAdminService(orders port.OrderRepository, catalog port.CatalogRepository, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{orders: orders, catalog: catalog, logger: logger}
}

func (s *AdminService) Dashboard(ctx context.Context) (DashboardStats, error) {
	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("list orders: %w", err)
	}
	products, err := s.catalog.ListEquipment(ctx)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("list equipment: %w", err)
	}

	stats := DashboardStats{TotalProducts: len(products), TotalOrders: len(orders)}
	for _, o := range orders {
		if o.Financials != nil {
			stats.TotalRevenue += o.Financials.AmountPaid
		}
		if o.Status == domain.OrderStatusPendingApproval {
			stats.PendingOrders++
		}
	}
	return stats, nil
}

// Debts lists orders with an outstanding balance, largest first.
func (s *AdminService) Debts(ctx context.Context) ([]Debt, error) {
	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	debts := []Debt{}
	for _, o := range orders {
		if o.Financials == nil || o.Financials.AmountPending <= 0 {
			continue
		}
		debts = append(debts, Debt{
			Order:       o,
			ReminderURL: WhatsAppURL(o.CustomerInfo.Phone, PendingBalanceMessage(o)),
		})
	}
	sort.SliceStable(debts, func(i, j int) bool {
		return debts[i].Order.Financials.AmountPending > debts[j].Order.Financials.AmountPending
	})
	return debts, nil
}

func (s *AdminService) Order(ctx context.Context, orderID string) (domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return domain.Order{}, ErrOrderNotFound
	}
	return *order, nil
}

// UpdateOrderStatus stores the new status and, for statuses that notify the
// customer, returns the WhatsApp link staff should open.
func (s *AdminService) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus, note string) (StatusChange, error) {
	if !status.Valid() {
		return StatusChange{}, ErrInvalidStatus
	}

	order, err := s.Order(ctx, orderID)
	if err != nil {
		return StatusChange{}, err
	}

	if err := s.orders.UpdateOrderStatus(ctx, orderID, status, note); err != nil {
		return StatusChange{}, fmt.Errorf("update order status: %w", err)
	}
	order.Status = status
	order.StatusNote = note

	change := StatusChange{Order: order}
	if msg := StatusNotification(order, status); msg != "" && order.CustomerInfo.Phone != "" {
		change.NotifyURL = WhatsAppURL(order.CustomerInfo.Phone, msg)
	}

	s.logger.Info("order status changed",
		zap.String("order_id", orderID),
		zap.String("status", string(status)))
	return change, nil
}

func (s *AdminService) OrderQuote(ctx context.Context, orderID string) (domain.Quote, error) {
	order, err := s.Order(ctx, orderID)
	if err != nil {
		return domain.Quote{}, err
	}
	return QuoteFromOrder(order), nil
}

// ManualQuote resolves catalog products by ID and builds an ad-hoc quote.
// A missing price in the request means the catalog price.
func (s *AdminService) ManualQuote(ctx context.Context, lines []ManualQuoteLine, customerName, customerCity string) (domain.Quote, error) {
	items := make([]domain.ManualQuoteItem, 0, len(lines))
	for _, line := range lines {
		product, err := s.catalog.GetEquipment(ctx, line.EquipmentID)
		if err != nil {
			return domain.Quote{}, fmt.Errorf("get equipment: %w", err)
		}
		if product == nil {
			return domain.Quote{}, fmt.Errorf("%w: %s", ErrEquipmentNotFound, line.EquipmentID)
		}

		item := domain.ManualQuoteItem{Product: *product, Quantity: line.Quantity, Price: product.Price}
		if line.Price != nil {
			item.Price = *line.Price
		}
		items = append(items, item)
	}
	return QuoteFromManualSelection(items, customerName, customerCity), nil
}

type ManualQuoteLine struct {
	EquipmentID string `json:"equipmentId"`
	Quantity    int    `json:"quantity"`
	Price       *int64 `json:"price,omitempty"`
}

// BulkUpdatePrices writes only the prices that changed and returns how many
// were updated. It stops at the first failure.
func (s *AdminService) BulkUpdatePrices(ctx context.Context, prices map[string]int64) (int, error) {
	products, err := s.catalog.ListEquipment(ctx)
	if err != nil {
		return 0, fmt.Errorf("list equipment: %w", err)
	}

	updated := 0
	for _, p := range products {
		price, ok := prices[p.ID]
		if !ok || price == p.Price {
			continue
		}
		if price < 0 {
			price = 0
		}
		p.Price = price
		if err := s.catalog.UpdateEquipmentPrice(ctx, p); err != nil {
			return updated, fmt.Errorf("update price of %s: %w", p.ID, err)
		}
		updated++
	}

	s.logger.Info("bulk price update", zap.Int("updated", updated))
	return updated, nil
}

// ToggleQuoteItem resolves equipmentID in the catalog and toggles it in the
// manual quote selection.
func (s *AdminService) ToggleQuoteItem(ctx context.Context, items []domain.ManualQuoteItem, equipmentID string) ([]domain.ManualQuoteItem, error) {
	product, err := s.catalog.GetEquipment(ctx, equipmentID)
	if err != nil {
		return nil, fmt.Errorf("get equipment: %w", err)
	}
	if product == nil {
		return nil, fmt.Errorf("%w: %s", ErrEquipmentNotFound, equipmentID)
	}
	return ToggleManualItem(items, *product), nil
}
