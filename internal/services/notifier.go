package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"warkop_pos/internal/models"
	"warkop_pos/pkg/whatsapp"

	"go.uber.org/zap"
)

// Notifier receives fire-and-forget order events. Implementations must not
// block the caller.
type Notifier interface {
	OrderCreated(order *models.Order)
}

type NopNotifier struct{}

func (NopNotifier) OrderCreated(*models.Order) {}

type whatsappNotifier struct {
	client     *whatsapp.Client
	ownerPhone string
	timeout    time.Duration
	log        *zap.Logger
}

func NewWhatsAppNotifier(client *whatsapp.Client, ownerPhone string, log *zap.Logger) Notifier {
	return &whatsappNotifier{client: client, ownerPhone: ownerPhone, timeout: 15 * time.Second, log: log.Named("notify")}
}

func (n *whatsappNotifier) OrderCreated(order *models.Order) {
	message := formatNewOrderMessage(order)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if _, err := n.client.SendMessage(ctx, n.ownerPhone, message); err != nil {
			n.log.Warn("failed to send new order notification", zap.String("order_id", order.ID), zap.Error(err))
		}
	}()
}

func formatNewOrderMessage(order *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🛎️ *Pesanan baru* %s\n", order.ID)
	fmt.Fprintf(&b, "Pelanggan: %s\n", order.CustomerName)
	if order.TableNumber != nil {
		fmt.Fprintf(&b, "Meja: %s\n", *order.TableNumber)
	} else {
		b.WriteString("Take away\n")
	}
	for _, item := range order.Items {
		fmt.Fprintf(&b, "• %dx %s\n", item.Qty, item.Name)
	}
	fmt.Fprintf(&b, "Total: Rp %d (%s)", order.Total, order.PaymentMethod)
	return b.String()
}
