package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joao-fontenele/drinkshop/internal/domain"
	"github.com/joao-fontenele/drinkshop/internal/push"
)

const (
	titleStatusChanged = "Cập nhật đơn hàng"
	titleNewOrder      = "Đơn hàng mới"
)

// Sender delivers push messages. *push.Client implements it.
type Sender interface {
	Send(ctx context.Context, msg push.Message) (int, error)
}

// NotificationHandler turns order events into push messages: status changes
// go to the customer's devices, new orders go to staff.
type NotificationHandler struct {
	sender Sender
	logger *slog.Logger
}

func NewNotificationHandler(sender Sender, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		sender: sender,
		logger: logger,
	}
}

// Handle returns an error only when the push service could not be reached,
// so the event is retried.
func (h *NotificationHandler) Handle(ctx context.Context, event domain.OrderEvent) error {
	msg, ok := Compose(event)
	if !ok {
		h.logger.Debug("ignoring order event", "type", event.Type, "order_id", event.OrderID)
		return nil
	}

	h.logger.Info("processing order event", "type", event.Type, "order_id", event.OrderID, "status", event.Status)

	delivered, err := h.sender.Send(ctx, msg)
	if err != nil {
		h.logger.Error("failed to send push", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send push for %s: %w", event.Type, err)
	}

	h.logger.Info("push delivered", "order_id", event.OrderID, "audience", msg.Audience, "devices", delivered)
	return nil
}

// Compose builds the push message for event. ok is false for events that
// notify nobody.
func Compose(event domain.OrderEvent) (push.Message, bool) {
	switch event.Type {
	case domain.EventOrderStatusChanged:
		return push.Message{
			Audience: push.AudienceCustomer,
			OrderID:  event.OrderID,
			Title:    titleStatusChanged,
			Body:     fmt.Sprintf("Đơn hàng #%s đã %s", domain.ShortOrderID(event.OrderID), statusPhrase(event.Status)),
		}, true
	case domain.EventOrderCreated:
		return push.Message{
			Audience: push.AudienceAdmin,
			OrderID:  event.OrderID,
			Title:    titleNewOrder,
			Body:     fmt.Sprintf("Đơn hàng #%s vừa được tạo", domain.ShortOrderID(event.OrderID)),
		}, true
	}
	return push.Message{}, false
}

// statusPhrase is the status worded to follow "đã" in a sentence.
func statusPhrase(s domain.OrderStatus) string {
	switch s {
	case domain.OrderStatusPending:
		return "được tiếp nhận"
	case domain.OrderStatusPreparing:
		return "bắt đầu được chuẩn bị"
	case domain.OrderStatusCompleted:
		return "hoàn thành"
	case domain.OrderStatusArchived:
		return "được lưu trữ"
	case domain.OrderStatusCancelled:
		return "bị hủy"
	}
	return "chuyển sang " + s.Label()
}
