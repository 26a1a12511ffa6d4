package notify

import (
	"log/slog"
	"slices"
	"sync"
	"time"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

const (
	maxActive   = 5
	historySize = 50
)

// Duration is how long a notification of this severity stays visible.
func (s Severity) Duration() time.Duration {
	switch s {
	case SeveritySuccess, SeverityInfo:
		return 4 * time.Second
	case SeverityError:
		return 6 * time.Second
	default:
		return 5 * time.Second
	}
}

type Notification struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message,omitempty"`
	Severity  Severity  `json:"severity"`
	OrderID   string    `json:"order_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// Notifier is the fire-and-forget capability the rest of the storefront uses.
type Notifier interface {
	Notify(title, message string, severity Severity) int64
}

// Dispatcher keeps at most five notifications visible and queues the rest
// until a slot frees up. Visibility is evaluated against the clock on read.
type Dispatcher struct {
	mu      sync.Mutex
	logger  *slog.Logger
	now     func() time.Time
	nextID  int64
	active  []Notification
	queue   []Notification
	history []Notification
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		logger: logger,
		now:    time.Now,
	}
}

func (d *Dispatcher) Notify(title, message string, severity Severity) int64 {
	return d.dispatch(Notification{Title: title, Message: message, Severity: severity})
}

// NotifyOrder attaches the order the notification is about.
func (d *Dispatcher) NotifyOrder(title, message, orderID string, severity Severity) int64 {
	return d.dispatch(Notification{Title: title, Message: message, Severity: severity, OrderID: orderID})
}

func (d *Dispatcher) dispatch(n Notification) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n.Severity == "" {
		n.Severity = SeverityInfo
	}
	d.nextID++
	n.ID = d.nextID
	n.CreatedAt = d.now()

	d.history = append(d.history, n)
	if len(d.history) > historySize {
		d.history = slices.Delete(d.history, 0, len(d.history)-historySize)
	}

	d.expireLocked()
	if len(d.active) >= maxActive {
		d.queue = append(d.queue, n)
	} else {
		d.showLocked(n)
	}

	d.logger.Info("notification dispatched",
		"id", n.ID,
		"title", n.Title,
		"severity", n.Severity,
		"queued", len(d.queue),
	)
	return n.ID
}

// Active returns the visible notifications, oldest first.
func (d *Dispatcher) Active() []Notification {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.expireLocked()
	return slices.Clone(d.active)
}

// Recent returns up to limit notifications, newest first, visible or not.
func (d *Dispatcher) Recent(limit int) []Notification {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := slices.Clone(d.history)
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.expireLocked()
	return len(d.queue)
}

func (d *Dispatcher) Dismiss(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := slices.IndexFunc(d.active, func(n Notification) bool { return n.ID == id })
	if idx < 0 {
		return false
	}
	d.active = slices.Delete(d.active, idx, idx+1)
	d.promoteLocked()
	return true
}

func (d *Dispatcher) DismissAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.active = nil
	d.queue = nil
}

func (d *Dispatcher) showLocked(n Notification) {
	n.ExpiresAt = d.now().Add(n.Severity.Duration())
	d.active = append(d.active, n)
}

func (d *Dispatcher) expireLocked() {
	now := d.now()
	d.active = slices.DeleteFunc(d.active, func(n Notification) bool {
		return !now.Before(n.ExpiresAt)
	})
	d.promoteLocked()
}

func (d *Dispatcher) promoteLocked() {
	for len(d.active) < maxActive && len(d.queue) > 0 {
		next := d.queue[0]
		d.queue = d.queue[1:]
		d.showLocked(next)
	}
}
