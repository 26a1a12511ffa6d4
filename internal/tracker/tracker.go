package tracker

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/joao-fontenele/drinkshop/internal/domain"
	"github.com/joao-fontenele/drinkshop/internal/notify"
)

var stepLabels = map[domain.OrderStatus]string{
	domain.OrderStatusPending:   "Đặt hàng",
	domain.OrderStatusPreparing: "Chuẩn bị",
	domain.OrderStatusCompleted: "Hoàn thành",
	domain.OrderStatusArchived:  "Lưu trữ",
}

type Step struct {
	Status    domain.OrderStatus `json:"status"`
	Label     string             `json:"label"`
	Active    bool               `json:"active"`
	Completed bool               `json:"completed"`
}

// Progress is the rendered step indicator for one status. Index is -1 when
// the status is not part of the step sequence; such statuses are shown as a
// standalone terminal state with every step inactive.
type Progress struct {
	OrderID     string             `json:"order_id"`
	Status      domain.OrderStatus `json:"status"`
	StatusLabel string             `json:"status_label"`
	Index       int                `json:"index"`
	Terminal    bool               `json:"terminal"`
	Steps       []Step             `json:"steps"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// OffSequence reports whether the status is rendered outside the steps.
func (p Progress) OffSequence() bool {
	return p.Index < 0
}

// Render builds the step indicator for status. Steps at or before the
// current index are active, steps strictly before it are completed.
func Render(status domain.OrderStatus) Progress {
	idx := slices.Index(domain.StatusSequence, status)

	steps := make([]Step, len(domain.StatusSequence))
	for i, s := range domain.StatusSequence {
		steps[i] = Step{
			Status:    s,
			Label:     stepLabels[s],
			Active:    idx >= 0 && i <= idx,
			Completed: idx >= 0 && i < idx,
		}
	}

	return Progress{
		Status:      status,
		StatusLabel: status.Label(),
		Index:       idx,
		Terminal:    idx < 0 || status.Terminal(),
		Steps:       steps,
	}
}

// Tracker follows the one order this storefront submitted last. Statuses
// are taken as reported; the backend decides which transitions are legal.
type Tracker struct {
	mu      sync.Mutex
	orderID string
	current Progress
	history []Progress
	// lastEvent is the feed timestamp of the last applied change. Feed
	// timestamps are only compared with each other.
	lastEvent time.Time
	notifier  notify.Notifier
	logger    *slog.Logger
}

func New(notifier notify.Notifier, logger *slog.Logger) *Tracker {
	return &Tracker{
		notifier: notifier,
		logger:   logger,
	}
}

// Track starts following orderID from the pending state. at is the
// order's creation time as the store recorded it.
func (t *Tracker) Track(orderID string, at time.Time) Progress {
	return t.Resume(orderID, domain.OrderStatusPending, at)
}

// Resume starts following orderID from a status read back from the store,
// without notifying.
func (t *Tracker) Resume(orderID string, status domain.OrderStatus, at time.Time) Progress {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := Render(status)
	p.OrderID = orderID
	p.UpdatedAt = at

	t.orderID = orderID
	t.current = p
	t.history = []Progress{p}
	t.lastEvent = time.Time{}
	return p
}

func (t *Tracker) OrderID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.orderID
}

func (t *Tracker) Current() (Progress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.orderID == "" {
		return Progress{}, false
	}
	return t.current, true
}

// History lists every rendering since Track, oldest first.
func (t *Tracker) History() []Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.history)
}

// Apply feeds one change from the order feed. Events for other orders and
// events older than the last applied one are ignored.
func (t *Tracker) Apply(ev domain.OrderEvent) (Progress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.orderID == "" || ev.OrderID != t.orderID {
		return Progress{}, false
	}
	if !ev.Timestamp.IsZero() && ev.Timestamp.Before(t.lastEvent) {
		t.logger.Warn("stale order update ignored", "order_id", ev.OrderID, "status", ev.Status)
		return t.current, false
	}
	if !ev.Timestamp.IsZero() {
		t.lastEvent = ev.Timestamp
	}

	changed := ev.Status != t.current.Status

	p := Render(ev.Status)
	p.OrderID = ev.OrderID
	p.UpdatedAt = ev.Timestamp
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = t.current.UpdatedAt
	}
	t.current = p

	if !changed {
		return p, false
	}
	t.history = append(t.history, p)

	t.logger.Info("tracked order updated", "order_id", ev.OrderID, "status", ev.Status, "index", p.Index)
	t.notifier.Notify(
		"Cập nhật đơn hàng",
		fmt.Sprintf("Đơn hàng #%s đã %s", domain.ShortOrderID(ev.OrderID), ev.Status.Label()),
		notify.SeverityInfo,
	)
	return p, true
}
