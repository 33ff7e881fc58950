package handler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/sagfo/storefront/internal/core/domain"
	"github.com/sagfo/storefront/internal/core/service"
	"github.com/sagfo/storefront/internal/port"
)

// The Financials service speaks JSON over gRPC so it needs no generated stubs.
// Clients select the codec with grpc.CallContentSubtype(JSONCodecName).
const JSONCodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return JSONCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type CalculateItem struct {
	EquipmentID string `json:"equipmentId"`
	Quantity    int    `json:"quantity"`
}

// CalculateRequest prices either a live session cart or an explicit list of
// catalog items. SessionID wins when both are set.
type CalculateRequest struct {
	SessionID string          `json:"sessionId,omitempty"`
	Items     []CalculateItem `json:"items,omitempty"`
}

type CalculateResponse struct {
	domain.SplitBreakdown
	PaymentLabel string `json:"paymentLabel"`
}

type ManualQuoteRPCRequest struct {
	CustomerName string                    `json:"customerName"`
	CustomerCity string                    `json:"customerCity"`
	Lines        []service.ManualQuoteLine `json:"lines"`
}

type FinancialsServer interface {
	Calculate(context.Context, *CalculateRequest) (*CalculateResponse, error)
	ManualQuote(context.Context, *ManualQuoteRPCRequest) (*domain.Quote, error)
}

const (
	calculateMethod   = "/storefront.Financials/Calculate"
	manualQuoteMethod = "/storefront.Financials/ManualQuote"
)

var financialsServiceDesc = grpc.ServiceDesc{
	ServiceName: "storefront.Financials",
	HandlerType: (*FinancialsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Calculate", Handler: calculateHandler},
		{MethodName: "ManualQuote", Handler: manualQuoteHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/financials",
}

func RegisterFinancialsServer(s grpc.ServiceRegistrar, srv FinancialsServer) {
	s.RegisterService(&financialsServiceDesc, srv)
}

func calculateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CalculateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FinancialsServer).Calculate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: calculateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FinancialsServer).Calculate(ctx, req.(*CalculateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func manualQuoteHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ManualQuoteRPCRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FinancialsServer).ManualQuote(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: manualQuoteMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FinancialsServer).ManualQuote(ctx, req.(*ManualQuoteRPCRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// FinancialsClient is the caller side of the Financials service.
type FinancialsClient struct {
	cc grpc.ClientConnInterface
}

func NewFinancialsClient(cc grpc.ClientConnInterface) *FinancialsClient {
	return &FinancialsClient{cc: cc}
}

func (c *FinancialsClient) Calculate(ctx context.Context, in *CalculateRequest, opts ...grpc.CallOption) (*CalculateResponse, error) {
	out := new(CalculateResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(JSONCodecName)}, opts...)
	if err := c.cc.Invoke(ctx, calculateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *FinancialsClient) ManualQuote(ctx context.Context, in *ManualQuoteRPCRequest, opts ...grpc.CallOption) (*domain.Quote, error) {
	out := new(domain.Quote)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(JSONCodecName)}, opts...)
	if err := c.cc.Invoke(ctx, manualQuoteMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type GRPCHandler struct {
	checkout *service.CheckoutService
	catalog  *service.CatalogService
	admin    *service.AdminService
	logger   *zap.Logger
}

func NewGRPCHandler(checkout *service.CheckoutService, catalog *service.CatalogService, admin *service.AdminService, logger *zap.Logger) *GRPCHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCHandler{checkout: checkout, catalog: catalog, admin: admin, logger: logger}
}

func (h *GRPCHandler) Calculate(ctx context.Context, req *CalculateRequest) (*CalculateResponse, error) {
	var (
		breakdown domain.SplitBreakdown
		err       error
	)
	if req.SessionID != "" {
		breakdown, err = h.checkout.Quote(ctx, req.SessionID)
	} else {
		breakdown, err = h.calculateItems(ctx, req.Items)
	}
	if err != nil {
		return nil, h.toStatus(err)
	}

	return &CalculateResponse{
		SplitBreakdown: breakdown,
		PaymentLabel:   breakdown.PaymentMethod.Label(),
	}, nil
}

func (h *GRPCHandler) calculateItems(ctx context.Context, items []CalculateItem) (domain.SplitBreakdown, error) {
	lines := make(domain.CartSnapshot, 0, len(items))
	for _, it := range items {
		if it.Quantity < 1 {
			continue
		}
		equipment, err := h.catalog.Equipment(ctx, it.EquipmentID)
		if err != nil {
			return domain.SplitBreakdown{}, err
		}
		lines = append(lines, domain.CartLineItem{CartItemID: it.EquipmentID, Equipment: equipment, Quantity: it.Quantity})
	}
	return service.CalculateFinancials(lines), nil
}

func (h *GRPCHandler) ManualQuote(ctx context.Context, req *ManualQuoteRPCRequest) (*domain.Quote, error) {
	quote, err := h.admin.ManualQuote(ctx, req.Lines, req.CustomerName, req.CustomerCity)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &quote, nil
}

func (h *GRPCHandler) toStatus(err error) error {
	switch {
	case service.IsValidation(err), errors.Is(err, service.ErrMissingSession),
		errors.Is(err, domain.ErrQuantityTooLarge), errors.Is(err, domain.ErrAmountOverflow):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrEquipmentNotFound), errors.Is(err, service.ErrOrderNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrDuplicateRequest), errors.Is(err, port.ErrDuplicateOrder):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, port.ErrOptimisticLock):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, service.ErrCheckoutClosed), errors.Is(err, port.ErrStoreUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}
	h.logger.Error("grpc call failed", zap.Error(err))
	return status.Error(codes.Internal, "internal error")
}

// UnaryLogger logs every unary call with its status code and latency.
func UnaryLogger(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc call",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)))
		return resp, err
	}
}
