package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sagfo/storefront/internal/adapter/storage"
	"github.com/sagfo/storefront/internal/core/domain"
	"github.com/sagfo/storefront/internal/core/service"
)

// orderLog keeps orders in memory so the run needs only Redis.
type orderLog struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

func (o *orderLog) CreateOrder(ctx context.Context, order domain.Order) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.orders[order.ID] = order
	return nil
}

func (o *orderLog) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	order, ok := o.orders[orderID]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

func (o *orderLog) ListOrders(ctx context.Context) ([]domain.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.Order, 0, len(o.orders))
	for _, order := range o.orders {
		out = append(out, order)
	}
	return out, nil
}

func (o *orderLog) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus, note string) error {
	return errors.New("not supported")
}

var (
	bar   = domain.EquipmentItem{ID: "stress-bar", Name: "Barra Olímpica", Price: 300_000, AvailabilityStatus: domain.AvailabilityInStock}
	press = domain.EquipmentItem{ID: "stress-press", Name: "Prensa 45°", Price: 1_000_001, AvailabilityStatus: domain.AvailabilityMadeToOrder}
)

func main() {
	redisAddr := flag.String("redis", "localhost:6379", "redis address")
	shoppers := flag.Int("shoppers", 50, "concurrent shoppers")
	retries := flag.Int("retries", 3, "submissions per shopper with the same request id")
	workers := flag.Int("workers", 10, "checkout workers")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	defer rdb.Close()

	runID := time.Now().UnixNano()
	redisAdapter := storage.NewRedisAdapter(rdb, time.Hour)
	orders := &orderLog{orders: make(map[string]domain.Order)}
	sessions := service.NewCartSessions(redisAdapter, logger.Named("cart"))
	checkout := service.NewCheckoutService(sessions, orders, redisAdapter, *shoppers, zap.NewNop())
	checkout.Start(*workers)

	var (
		success   atomic.Int32
		duplicate atomic.Int32
		failed    atomic.Int32
		wg        sync.WaitGroup
	)
	start := time.Now()

	for i := 0; i < *shoppers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sessionID := fmt.Sprintf("stress-%d-%d", runID, n)
			if err := fillCart(ctx, sessions, sessionID); err != nil {
				logger.Error("fill cart", zap.String("session", sessionID), zap.Error(err))
				failed.Add(1)
				return
			}

			req := checkoutRequest(fmt.Sprintf("stress-%d-%d", runID, n))
			var inner sync.WaitGroup
			for r := 0; r < *retries; r++ {
				inner.Add(1)
				go func() {
					defer inner.Done()
					_, err := checkout.Submit(ctx, sessionID, req)
					switch {
					case err == nil:
						success.Add(1)
					case errors.Is(err, service.ErrDuplicateRequest), service.IsValidation(err):
						// a retry that lost the race either hits the key or sees the cleared cart
						duplicate.Add(1)
					default:
						logger.Error("checkout", zap.String("session", sessionID), zap.Error(err))
						failed.Add(1)
					}
				}()
			}
			inner.Wait()
		}(i)
	}

	wg.Wait()
	checkout.Close()
	elapsed := time.Since(start)

	stored, _ := orders.ListOrders(ctx)
	var pending int64
	for _, o := range stored {
		pending += o.Financials.AmountPending
	}

	fmt.Println("========== CHECKOUT STRESS RESULTS ==========")
	fmt.Printf("Shoppers:          %d\n", *shoppers)
	fmt.Printf("Submissions:       %d\n", *shoppers**retries)
	fmt.Printf("Successful:        %d\n", success.Load())
	fmt.Printf("Rejected retries:  %d\n", duplicate.Load())
	fmt.Printf("Failed:            %d\n", failed.Load())
	fmt.Printf("Orders stored:     %d\n", len(stored))
	fmt.Printf("Pending balance:   %s\n", service.FormatPesos(pending))
	fmt.Printf("Duration:          %v\n", elapsed)
	fmt.Println("=============================================")

	ok := true
	if int(success.Load()) != *shoppers || len(stored) != *shoppers {
		fmt.Printf("FAIL: expected exactly %d orders, got %d successes and %d stored\n", *shoppers, success.Load(), len(stored))
		ok = false
	}
	// 1,000,001 * 0.5 rounds half away from zero
	if want := int64(*shoppers) * 500_001; pending != want {
		fmt.Printf("FAIL: expected pending total %d, got %d\n", want, pending)
		ok = false
	}
	for i := 0; i < *shoppers; i++ {
		raw, err := rdb.Get(ctx, fmt.Sprintf("cartItems:stress-%d-%d", runID, i)).Result()
		if err != nil || raw != "[]" {
			fmt.Printf("FAIL: cart %d not cleared (%q, %v)\n", i, raw, err)
			ok = false
		}
	}
	if !ok {
		os.Exit(1)
	}
	fmt.Println("PASS: one order per shopper, carts cleared, split intact")
}

func fillCart(ctx context.Context, sessions *service.CartSessions, sessionID string) error {
	cart, err := sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if _, err := cart.AddItem(ctx, bar, domain.Customization{}); err != nil {
		return err
	}
	black, red := "Negro", "Rojo"
	_, err = cart.AddItem(ctx, press, domain.Customization{StructureColor: &black, UpholsteryColor: &red})
	return err
}

func checkoutRequest(requestID string) service.CheckoutRequest {
	return service.CheckoutRequest{
		RequestID: requestID,
		UserID:    "stress",
		Customer: domain.CustomerInfo{
			Name:    "Cliente Prueba",
			Phone:   "300 123 4567",
			City:    "Bogotá",
			Address: "Calle 1 # 2-3",
		},
		PaymentProof: &domain.PaymentProof{FileName: "comprobante.pdf"},
	}
}
