package storefront

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hitoshi/cmsshowcase/internal/cart"
	"github.com/hitoshi/cmsshowcase/internal/metrics"
	"github.com/hitoshi/cmsshowcase/internal/model"
	"github.com/hitoshi/cmsshowcase/internal/validation"
)

// DefaultPaymentMethod は支払い方法が指定されない場合の値。実際の決済は行わない。
const DefaultPaymentMethod = "demo"

// CheckoutRequest はチェックアウトの入力。
// SameAsBillingがtrueの場合、Shippingは無視され請求先がコピーされる。
type CheckoutRequest struct {
	Billing       model.Address  `json:"billing"`
	Shipping      *model.Address `json:"shipping,omitempty"`
	SameAsBilling bool           `json:"same_as_billing"`
	PaymentMethod string         `json:"payment_method,omitempty"`
}

// billingAddress は請求先の検証用。配送先と異なりメールアドレスを必須とする。
type billingAddress struct {
	model.Address
	Email string `json:"email" validate:"required,email"`
}

// OrderService はカートから模擬注文を作成し、プロセスの生存期間中保持する。
type OrderService struct {
	cart     *cart.Cart
	validate *validator.Validate
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.RWMutex
	orders map[string]model.Order
}

// NewOrderService はOrderServiceを生成する。
func NewOrderService(c *cart.Cart, m metrics.MetricsCollector, logger *slog.Logger) *OrderService {
	if m == nil {
		m = metrics.Nop{}
	}
	return &OrderService{
		cart:     c,
		validate: validation.New(),
		metrics:  m,
		logger:   logger,
		now:      time.Now,
		orders:   make(map[string]model.Order),
	}
}

// Submit はカートの内容で注文を作成し、カートを空にする。
func (s *OrderService) Submit(ctx context.Context, req CheckoutRequest) (*model.Order, error) {
	if s.cart.ItemCount() == 0 {
		return nil, model.NewCartEmptyError()
	}

	billing := trimAddress(req.Billing)
	if err := s.validate.Struct(billingAddress{Address: billing, Email: billing.Email}); err != nil {
		return nil, model.NewValidationError("billing: " + validation.Message(err))
	}

	shipping := billing
	if !req.SameAsBilling {
		if req.Shipping == nil {
			return nil, model.NewValidationError("shipping: 配送先を入力するか、請求先と同じを選択してください")
		}
		shipping = trimAddress(*req.Shipping)
		if err := s.validate.Struct(shipping); err != nil {
			return nil, model.NewValidationError("shipping: " + validation.Message(err))
		}
	}

	payment := strings.TrimSpace(req.PaymentMethod)
	if payment == "" {
		payment = DefaultPaymentMethod
	}

	// 検証後にカートを取り出す。並行した操作で空になっていれば注文しない
	snapshot := s.cart.Drain()
	if len(snapshot.Lines) == 0 {
		return nil, model.NewCartEmptyError()
	}

	now := s.now()
	order := model.Order{
		ID:            uuid.NewString(),
		OrderKey:      fmt.Sprintf("wc_order_%d", now.UnixMilli()),
		Status:        model.OrderStatusPending,
		Total:         snapshot.Total,
		Billing:       billing,
		Shipping:      shipping,
		LineItems:     snapshot.Lines,
		PaymentMethod: payment,
		CreatedAt:     now,
	}

	s.mu.Lock()
	s.orders[order.ID] = order
	s.mu.Unlock()

	s.metrics.RecordOrderCreated(len(order.LineItems))
	s.logger.Info("模擬注文を作成しました",
		slog.String("order_id", order.ID),
		slog.String("total", order.Total.StringFixed(2)),
		slog.Int("line_count", len(order.LineItems)),
	)

	return copyOrder(order), nil
}

// Get は作成済みの注文を返す。
func (s *OrderService) Get(id string) (*model.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, false
	}
	return copyOrder(order), true
}

func copyOrder(o model.Order) *model.Order {
	o.LineItems = append([]model.CartLine(nil), o.LineItems...)
	return &o
}

func trimAddress(a model.Address) model.Address {
	a.FirstName = strings.TrimSpace(a.FirstName)
	a.LastName = strings.TrimSpace(a.LastName)
	a.Email = strings.TrimSpace(a.Email)
	a.Phone = strings.TrimSpace(a.Phone)
	a.Address1 = strings.TrimSpace(a.Address1)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.Postcode = strings.TrimSpace(a.Postcode)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	return a
}
