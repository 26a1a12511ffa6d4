// Package storefront is the customer-facing session: one controller per
// browser profile owning the cart, checkout, order tracking and
// notification queue.
package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/joao-fontenele/drinkshop/internal/cart"
	"github.com/joao-fontenele/drinkshop/internal/catalog"
	"github.com/joao-fontenele/drinkshop/internal/checkout"
	"github.com/joao-fontenele/drinkshop/internal/discount"
	"github.com/joao-fontenele/drinkshop/internal/domain"
	"github.com/joao-fontenele/drinkshop/internal/localstore"
	"github.com/joao-fontenele/drinkshop/internal/notify"
	"github.com/joao-fontenele/drinkshop/internal/push"
	"github.com/joao-fontenele/drinkshop/internal/telemetry"
	"github.com/joao-fontenele/drinkshop/internal/tracker"
)

var (
	ErrItemNotFound         = errors.New("menu item not found")
	ErrItemUnavailable      = errors.New("menu item is unavailable")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrNoTrackedOrder       = errors.New("no order is being tracked")
)

// Storage is the profile's durable key/value store. *localstore.Store
// implements it.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// OrderService stores orders and reads them back. *orders.Client implements it.
type OrderService interface {
	Submit(ctx context.Context, order *domain.Order) (*domain.Order, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
}

// Registrar binds a device token to an order. *push.Client implements it.
type Registrar interface {
	Register(ctx context.Context, reg push.Registration) error
}

type Deps struct {
	Catalog   *catalog.Catalog
	Discounts *discount.Engine
	Storage   Storage
	Orders    OrderService
	Push      Registrar
	Notifier  *notify.Dispatcher
	Metrics   *telemetry.Metrics
	Logger    *slog.Logger
}

// Settings are the profile preferences kept under localstore.KeySettings.
type Settings struct {
	PushToken string `json:"push_token,omitempty"`
}

// Controller serializes every cart mutation behind one mutex. While a
// checkout is in flight the cart stays readable and mutations fail with
// checkout.ErrSubmitInProgress. The tracker and dispatcher guard themselves,
// so order updates from the event feed do not wait on checkout.
type Controller struct {
	mu         sync.Mutex
	submitting atomic.Bool

	catalog   *catalog.Catalog
	discounts *discount.Engine
	storage   Storage
	orders    OrderService
	push      Registrar
	cart      *cart.Cart
	composer  *checkout.Composer
	tracker   *tracker.Tracker
	notifier  *notify.Dispatcher
	metrics   *telemetry.Metrics
	logger    *slog.Logger
	settings  Settings
}

// New restores the profile from storage: the saved cart, settings and the
// tracked order, whose current status is fetched from the order service.
func New(ctx context.Context, deps Deps) (*Controller, error) {
	c, err := cart.Load(ctx, deps.Storage)
	if err != nil {
		return nil, err
	}

	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.NewDispatcher(deps.Logger)
	}

	ctrl := &Controller{
		catalog:   deps.Catalog,
		discounts: deps.Discounts,
		storage:   deps.Storage,
		orders:    deps.Orders,
		push:      deps.Push,
		cart:      c,
		composer:  checkout.NewComposer(c, deps.Storage, deps.Orders, notifier, deps.Logger),
		tracker:   tracker.New(notifier, deps.Logger),
		notifier:  notifier,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
	}
	ctrl.composer.GuardCart(&ctrl.mu)

	if err := ctrl.loadSettings(ctx); err != nil {
		return nil, err
	}
	if err := ctrl.resumeTracking(ctx); err != nil {
		deps.Logger.Warn("failed to resume order tracking", "error", err)
	}
	return ctrl, nil
}

func (c *Controller) Catalog(f catalog.Filter) []domain.CatalogItem {
	return c.catalog.List(f)
}

func (c *Controller) Toppings() []domain.Topping {
	return c.catalog.Toppings()
}

// CartView is the cart as rendered on the cart page.
type CartView struct {
	Lines    []cart.Line       `json:"lines"`
	Summary  cart.Summary      `json:"summary"`
	Discount *discount.Applied `json:"discount,omitempty"`
}

func (c *Controller) Cart() CartView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// lockCart takes the cart lock for a mutation. It fails while a checkout
// is in flight; on success the caller unlocks c.mu.
func (c *Controller) lockCart() error {
	c.mu.Lock()
	if c.submitting.Load() {
		c.mu.Unlock()
		return checkout.ErrSubmitInProgress
	}
	return nil
}

func (c *Controller) viewLocked() CartView {
	v := CartView{
		Lines:   c.cart.Lines(),
		Summary: c.cart.Summary(),
	}
	if applied, ok := c.cart.Discount(); ok {
		v.Discount = &applied
	}
	return v
}

// AddRequest selects an item and its customization. Nil levels mean 100%;
// a nil quantity means one.
type AddRequest struct {
	ItemID   int      `json:"item_id"`
	Quantity *int     `json:"quantity"`
	Sugar    *int     `json:"sugar"`
	Ice      *int     `json:"ice"`
	Toppings []string `json:"toppings"`
}

func (c *Controller) AddItem(ctx context.Context, req AddRequest) (CartView, error) {
	item, ok := c.catalog.Find(req.ItemID)
	if !ok {
		return CartView{}, fmt.Errorf("%w: %d", ErrItemNotFound, req.ItemID)
	}
	if !item.Available {
		c.notifier.Notify("Hết hàng", item.Name+" hiện không có sẵn", notify.SeverityWarning)
		return CartView{}, fmt.Errorf("%w: %s", ErrItemUnavailable, item.Name)
	}

	custom, err := c.customization(item, req)
	if err != nil {
		return CartView{}, err
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	if err := c.lockCart(); err != nil {
		return CartView{}, err
	}
	defer c.mu.Unlock()

	line, err := c.cart.Add(ctx, item, custom, quantity)
	if err != nil {
		return CartView{}, err
	}

	c.logger.Info("item added to cart", "item_id", item.ID, "quantity", quantity, "line_quantity", line.Quantity)
	c.notifier.Notify("Đã thêm vào giỏ", fmt.Sprintf("%s x%d", item.Name, quantity), notify.SeveritySuccess)
	return c.viewLocked(), nil
}

func (c *Controller) customization(item domain.CatalogItem, req AddRequest) (domain.Customization, error) {
	custom := domain.Customization{Sugar: domain.DefaultLevel, Ice: domain.DefaultLevel}
	if req.Sugar != nil {
		custom.Sugar = domain.Level(*req.Sugar)
	}
	if req.Ice != nil {
		custom.Ice = domain.Level(*req.Ice)
	}

	if len(req.Toppings) == 0 {
		return custom, nil
	}
	if !catalog.AllowsToppings(item.Category) {
		return domain.Customization{}, domain.NewValidationError("toppings", item.Name+" does not take toppings")
	}
	for _, name := range req.Toppings {
		t, ok := c.catalog.Topping(name)
		if !ok {
			return domain.Customization{}, domain.NewValidationError("toppings", "unknown topping "+name)
		}
		custom.Toppings = append(custom.Toppings, t)
	}
	return custom, nil
}

// UpdateLine applies delta when set, otherwise sets the quantity. Either
// way the line keeps at least one unit.
func (c *Controller) UpdateLine(ctx context.Context, index int, delta, quantity *int) (CartView, error) {
	if err := c.lockCart(); err != nil {
		return CartView{}, err
	}
	defer c.mu.Unlock()

	var err error
	switch {
	case delta != nil:
		_, err = c.cart.UpdateQuantity(ctx, index, *delta)
	case quantity != nil:
		_, err = c.cart.SetQuantity(ctx, index, *quantity)
	default:
		return CartView{}, domain.NewValidationError("quantity", "delta or quantity is required")
	}
	if err != nil {
		return CartView{}, err
	}
	return c.viewLocked(), nil
}

func (c *Controller) RemoveLine(ctx context.Context, index int) (CartView, error) {
	if err := c.lockCart(); err != nil {
		return CartView{}, err
	}
	defer c.mu.Unlock()

	line, err := c.cart.Remove(ctx, index)
	if err != nil {
		return CartView{}, err
	}

	c.notifier.Notify("Đã xóa", line.Name+" đã được xóa khỏi giỏ hàng", notify.SeverityInfo)
	return c.viewLocked(), nil
}

// ClearCart empties the cart. It is destructive, so the caller must pass
// confirmed.
func (c *Controller) ClearCart(ctx context.Context, confirmed bool) (CartView, error) {
	if !confirmed {
		return CartView{}, ErrConfirmationRequired
	}

	if err := c.lockCart(); err != nil {
		return CartView{}, err
	}
	defer c.mu.Unlock()

	if err := c.cart.Clear(ctx); err != nil {
		return CartView{}, err
	}

	c.notifier.Notify("Đã xóa giỏ hàng", "Tất cả sản phẩm đã được xóa", notify.SeverityInfo)
	return c.viewLocked(), nil
}

// ApplyDiscount validates code against the current subtotal and makes it
// the cart's only discount.
func (c *Controller) ApplyDiscount(ctx context.Context, code string) (CartView, error) {
	if err := c.lockCart(); err != nil {
		return CartView{}, err
	}
	defer c.mu.Unlock()

	applied, err := c.discounts.Apply(code, c.cart.Subtotal())
	switch {
	case errors.Is(err, discount.ErrUnknownCode):
		c.metrics.DiscountAttempt(ctx, "unknown_code")
		c.notifier.Notify("Mã không hợp lệ", "Mã giảm giá không tồn tại", notify.SeverityError)
		return CartView{}, err
	case errors.Is(err, discount.ErrMinimumNotMet):
		c.metrics.DiscountAttempt(ctx, "minimum_not_met")
		c.notifier.Notify("Không đủ điều kiện", "Đơn hàng chưa đạt giá trị tối thiểu của mã giảm giá", notify.SeverityWarning)
		return CartView{}, err
	case err != nil:
		return CartView{}, err
	}

	if err := c.cart.SetDiscount(ctx, applied); err != nil {
		return CartView{}, err
	}

	c.metrics.DiscountAttempt(ctx, "applied")
	c.notifier.Notify("Áp dụng thành công", applied.Code.Description, notify.SeveritySuccess)
	return c.viewLocked(), nil
}

func (c *Controller) RemoveDiscount(ctx context.Context) (CartView, error) {
	if err := c.lockCart(); err != nil {
		return CartView{}, err
	}
	defer c.mu.Unlock()

	if err := c.cart.ClearDiscount(ctx); err != nil {
		return CartView{}, err
	}
	return c.viewLocked(), nil
}

// SavedCustomer prefills the checkout form from the last order.
func (c *Controller) SavedCustomer(ctx context.Context) (domain.CustomerInfo, bool, error) {
	return checkout.SavedCustomer(ctx, c.storage)
}

// Checkout submits the cart. A second call while one is in flight fails
// with checkout.ErrSubmitInProgress.
func (c *Controller) Checkout(ctx context.Context, req checkout.Request) (*domain.Order, error) {
	if !c.submitting.CompareAndSwap(false, true) {
		return nil, checkout.ErrSubmitInProgress
	}
	defer c.submitting.Store(false)

	order, err := c.composer.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	c.tracker.Track(order.ID, order.CreatedAt)
	c.registerPush(ctx, order)
	return order, nil
}

func (c *Controller) registerPush(ctx context.Context, order *domain.Order) {
	c.mu.Lock()
	token := c.settings.PushToken
	c.mu.Unlock()

	if c.push == nil || token == "" {
		return
	}
	reg := push.Registration{
		Token:    token,
		Audience: push.AudienceCustomer,
		OrderID:  order.ID,
		Phone:    order.Customer.Phone,
	}
	if err := c.push.Register(ctx, reg); err != nil {
		c.logger.Warn("failed to bind push token to order", "error", err, "order_id", order.ID)
	}
}

// Tracking returns the progress of the tracked order.
func (c *Controller) Tracking() (tracker.Progress, []tracker.Progress, error) {
	p, ok := c.tracker.Current()
	if !ok {
		return tracker.Progress{}, nil, ErrNoTrackedOrder
	}
	return p, c.tracker.History(), nil
}

// HandleOrderEvent is the "message received" callback of the order feed.
func (c *Controller) HandleOrderEvent(_ context.Context, event domain.OrderEvent) error {
	switch event.Type {
	case domain.EventOrderStatusChanged, domain.EventOrderCreated:
		c.tracker.Apply(event)
	case domain.EventOrderPaid:
		if event.OrderID == c.tracker.OrderID() {
			c.notifier.NotifyOrder("Đã thanh toán", "Đơn hàng #"+domain.ShortOrderID(event.OrderID)+" đã được thanh toán", event.OrderID, notify.SeveritySuccess)
		}
	}
	return nil
}

func (c *Controller) Notifications(limit int) (active, recent []notify.Notification) {
	return c.notifier.Active(), c.notifier.Recent(limit)
}

func (c *Controller) DismissNotification(id int64) bool {
	return c.notifier.Dismiss(id)
}

// RegisterPush stores the device token and, when an order is tracked, binds
// the token to it right away.
func (c *Controller) RegisterPush(ctx context.Context, token string) error {
	if token == "" {
		return domain.NewValidationError("token", "token is required")
	}

	c.mu.Lock()
	settings := c.settings
	settings.PushToken = token
	err := c.saveSettingsLocked(ctx, settings)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	if c.push == nil {
		return nil
	}
	reg := push.Registration{Token: token, Audience: push.AudienceCustomer, OrderID: c.tracker.OrderID()}
	return c.push.Register(ctx, reg)
}

func (c *Controller) loadSettings(ctx context.Context) error {
	raw, ok, err := c.storage.Get(ctx, localstore.KeySettings)
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}
	if !ok || raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), &c.settings); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}
	return nil
}

func (c *Controller) saveSettingsLocked(ctx context.Context, s Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := c.storage.Set(ctx, localstore.KeySettings, string(data)); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	c.settings = s
	return nil
}

func (c *Controller) resumeTracking(ctx context.Context) error {
	id, ok, err := checkout.TrackedOrderID(ctx, c.storage)
	if err != nil || !ok {
		return err
	}

	order, err := c.orders.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch tracked order %s: %w", id, err)
	}

	at := order.CreatedAt
	if order.UpdatedAt != nil {
		at = *order.UpdatedAt
	}
	c.tracker.Resume(order.ID, order.Status, at)
	c.logger.Info("resumed order tracking", "order_id", order.ID, "status", order.Status)
	return nil
}
