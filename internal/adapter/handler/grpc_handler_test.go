package handler

import (
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/sagfo/storefront/internal/adapter/storage"
	"github.com/sagfo/storefront/internal/core/domain"
	"github.com/sagfo/storefront/internal/core/service"
)

func newFinancialsClient(t *testing.T) (*FinancialsClient, *testApp) {
	t.Helper()
	app := newTestApp(t)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(UnaryLogger(zap.NewNop())))
	RegisterFinancialsServer(srv, NewGRPCHandler(app.checkout, app.catalog, app.admin, zap.NewNop()))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewFinancialsClient(conn), app
}

func TestGRPC_CalculateItems(t *testing.T) {
	client, _ := newFinancialsClient(t)

	resp, err := client.Calculate(context.Background(), &CalculateRequest{Items: []CalculateItem{
		{EquipmentID: "bar", Quantity: 1},
		{EquipmentID: "press", Quantity: 1},
		{EquipmentID: "press", Quantity: 0},
	}})
	require.NoError(t, err)

	assert.Equal(t, int64(1_300_000), resp.TotalOrderValue)
	assert.Equal(t, int64(800_000), resp.AmountPaid)
	assert.Equal(t, int64(500_000), resp.AmountPending)
	assert.Equal(t, domain.PaymentMethodMixed, resp.PaymentMethod)
	assert.Equal(t, "Mixto", resp.PaymentLabel)
}

func TestGRPC_CalculateSession(t *testing.T) {
	client, app := newFinancialsClient(t)
	ctx := context.Background()

	cart, err := app.sessions.Get(ctx, "s1")
	require.NoError(t, err)
	press, err := app.catalog.Equipment(ctx, "press")
	require.NoError(t, err)
	_, err = cart.AddItem(ctx, press, domain.Customization{})
	require.NoError(t, err)

	resp, err := client.Calculate(ctx, &CalculateRequest{SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), resp.ProductionTotal)
	assert.Equal(t, "Producción (50/50)", resp.PaymentLabel)
}

func TestGRPC_CalculateUnknownEquipment(t *testing.T) {
	client, _ := newFinancialsClient(t)

	_, err := client.Calculate(context.Background(), &CalculateRequest{Items: []CalculateItem{{EquipmentID: "ghost", Quantity: 1}}})
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGRPC_ManualQuote(t *testing.T) {
	client, _ := newFinancialsClient(t)
	price := int64(250_000)

	quote, err := client.ManualQuote(context.Background(), &ManualQuoteRPCRequest{
		CustomerName: "Gimnasio Norte",
		Lines: []service.ManualQuoteLine{
			{EquipmentID: "bar", Quantity: 2, Price: &price},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Gimnasio Norte", quote.CustomerName)
	assert.Equal(t, "POR DEFINIR", quote.Destination)
	assert.Equal(t, int64(500_000), quote.Total)
	require.Len(t, quote.Lines, 1)
	assert.Equal(t, "Barra Olímpica", quote.Lines[0].Name)
}

func TestUnaryLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	interceptor := UnaryLogger(zap.New(core))
	info := &grpc.UnaryServerInfo{FullMethod: calculateMethod}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.NotFound, "missing")
	})
	require.Error(t, err)

	entries := logs.FilterMessage("grpc call").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, calculateMethod, fields["method"])
	assert.Equal(t, "NotFound", fields["code"])
}

func TestGRPC_StatusMapping(t *testing.T) {
	h := NewGRPCHandler(nil, nil, nil, zap.NewNop())

	tests := []struct {
		err  error
		code codes.Code
	}{
		{fmt.Errorf("save order: %w", storage.ErrDuplicateOrder), codes.AlreadyExists},
		{service.ErrDuplicateRequest, codes.AlreadyExists},
		{fmt.Errorf("update price: %w", storage.ErrOptimisticLock), codes.Aborted},
		{fmt.Errorf("update order status: %w", storage.ErrOrderNotFound), codes.NotFound},
		{service.ErrCheckoutClosed, codes.Unavailable},
		{domain.ErrAmountOverflow, codes.InvalidArgument},
		{domain.ErrQuantityTooLarge, codes.InvalidArgument},
		{fmt.Errorf("boom"), codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, status.Code(h.toStatus(tt.err)), tt.err.Error())
	}
}
