package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joao-fontenele/drinkshop/internal/cart"
	"github.com/joao-fontenele/drinkshop/internal/discount"
	"github.com/joao-fontenele/drinkshop/internal/domain"
	"github.com/joao-fontenele/drinkshop/internal/localstore"
	"github.com/joao-fontenele/drinkshop/internal/notify"
	"github.com/joao-fontenele/drinkshop/internal/storeerr"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrSubmitInProgress = errors.New("order submission already in progress")
)

// Submitter stores a composed order and returns the stored record, whose
// id and creation time are the store's.
type Submitter interface {
	Submit(ctx context.Context, order *domain.Order) (*domain.Order, error)
}

type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Request is what the customer fills in at checkout.
type Request struct {
	Customer domain.CustomerInfo `json:"customer_info"`
	Note     string              `json:"note"`
}

// Composer turns the cart into an order and submits it.
type Composer struct {
	cart      *cart.Cart
	storage   Storage
	submitter Submitter
	notifier  notify.Notifier
	logger    *slog.Logger
	now       func() time.Time
	inFlight  atomic.Bool
	cartLock  sync.Locker
}

func NewComposer(c *cart.Cart, storage Storage, submitter Submitter, notifier notify.Notifier, logger *slog.Logger) *Composer {
	return &Composer{
		cart:      c,
		storage:   storage,
		submitter: submitter,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
		cartLock:  noopLocker{},
	}
}

// GuardCart makes Submit hold l while it reads or clears the cart. The call
// to the store runs without it.
func (c *Composer) GuardCart(l sync.Locker) {
	c.cartLock = l
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

// Compose builds the order for the current cart without submitting it.
func (c *Composer) Compose(req Request) (*domain.Order, error) {
	if c.cart.Empty() {
		return nil, ErrEmptyCart
	}

	customer := trimCustomer(req.Customer)
	if err := customer.Validate(); err != nil {
		return nil, err
	}

	lines := c.cart.Lines()
	items := make([]domain.OrderItem, len(lines))
	for i, l := range lines {
		items[i] = domain.OrderItem{
			ItemID:        l.ItemID,
			Name:          l.Name,
			Price:         l.UnitPrice,
			Quantity:      l.Quantity,
			Sugar:         l.Customization.Sugar,
			Ice:           l.Customization.Ice,
			Toppings:      l.Customization.Toppings,
			Customization: l.Label,
		}
	}

	order := &domain.Order{
		Items:     items,
		Customer:  customer,
		Note:      strings.TrimSpace(req.Note),
		Status:    domain.OrderStatusPending,
		IsPaid:    false,
		CreatedAt: c.now().UTC(),
	}
	order.Subtotal = order.ItemsSubtotal()

	if applied, ok := c.cart.Discount(); ok {
		if order.Subtotal < applied.Code.MinOrder {
			return nil, fmt.Errorf("%w: %s requires %d", discount.ErrMinimumNotMet, applied.Code.Code, applied.Code.MinOrder)
		}
		applied.Amount = applied.Code.AmountFor(order.Subtotal)
		order.DiscountAmount = applied.Amount
		order.AppliedDiscount = applied.Record()
	}
	order.Total = discount.Total(order.Subtotal, order.DiscountAmount)

	return order, nil
}

// Submit composes and stores the order. On success the cart and discount
// are cleared and the order becomes the tracked order; on any failure the
// cart is left untouched.
func (c *Composer) Submit(ctx context.Context, req Request) (*domain.Order, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmitInProgress
	}
	defer c.inFlight.Store(false)

	c.cartLock.Lock()
	order, err := c.Compose(req)
	c.cartLock.Unlock()
	if err != nil {
		c.notifyComposeError(err)
		return nil, err
	}

	if err := c.saveCustomer(ctx, order.Customer); err != nil {
		c.logger.Warn("failed to save customer info", "error", err)
	}

	stored, err := c.submitter.Submit(ctx, order)
	if err != nil {
		c.logger.Error("failed to submit order", "error", err)
		c.notifier.Notify("Lỗi đặt hàng", storeerr.Message(err), notify.SeverityError)
		return nil, fmt.Errorf("submit order: %w", err)
	}
	order = stored
	id := order.ID

	c.cartLock.Lock()
	err = c.cart.Clear(ctx)
	c.cartLock.Unlock()
	if err != nil {
		c.logger.Error("failed to clear cart after order", "error", err, "order_id", id)
	}
	if err := c.storage.Set(ctx, localstore.KeyCurrentOrderID, id); err != nil {
		c.logger.Error("failed to save tracked order", "error", err, "order_id", id)
	}

	c.logger.Info("order submitted", "order_id", id, "total", order.Total, "type", order.Customer.Type)
	c.notifier.Notify("Đặt hàng thành công!", "Mã đơn hàng: "+id, notify.SeveritySuccess)
	return order, nil
}

func (c *Composer) notifyComposeError(err error) {
	switch {
	case errors.Is(err, ErrEmptyCart):
		c.notifier.Notify("Giỏ hàng trống", "Vui lòng thêm sản phẩm vào giỏ hàng", notify.SeverityWarning)
	case errors.Is(err, discount.ErrMinimumNotMet):
		c.notifier.Notify("Không đủ điều kiện", "Đơn hàng chưa đạt giá trị tối thiểu của mã giảm giá", notify.SeverityWarning)
	case domain.IsValidation(err):
		c.notifier.Notify("Lỗi nhập liệu", "Vui lòng điền đầy đủ thông tin bắt buộc", notify.SeverityError)
	}
}

func (c *Composer) saveCustomer(ctx context.Context, info domain.CustomerInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return c.storage.Set(ctx, localstore.KeyCustomerInfo, string(data))
}

// SavedCustomer returns the contact details of the last submitted order, used
// to prefill the checkout form.
func SavedCustomer(ctx context.Context, storage Storage) (domain.CustomerInfo, bool, error) {
	raw, ok, err := storage.Get(ctx, localstore.KeyCustomerInfo)
	if err != nil || !ok {
		return domain.CustomerInfo{}, false, err
	}
	var info domain.CustomerInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return domain.CustomerInfo{}, false, fmt.Errorf("decode customer info: %w", err)
	}
	return info, true, nil
}

// TrackedOrderID returns the id of the last order submitted from this device.
func TrackedOrderID(ctx context.Context, storage Storage) (string, bool, error) {
	id, ok, err := storage.Get(ctx, localstore.KeyCurrentOrderID)
	if err != nil {
		return "", false, err
	}
	return id, ok && id != "", nil
}

func trimCustomer(c domain.CustomerInfo) domain.CustomerInfo {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	c.TableNumber = strings.TrimSpace(c.TableNumber)
	return c
}
