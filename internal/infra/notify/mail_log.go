package notify

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/usecase"

	"go.uber.org/zap"
)

// MailLogNotifier はメール送信の代わりに本文をログに出す
type MailLogNotifier struct {
	log  *zap.Logger
	from string
}

func NewMailLogNotifier(log *zap.Logger, from string) *MailLogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &MailLogNotifier{log: log, from: from}
}

func (n *MailLogNotifier) Notify(ctx context.Context, ev usecase.OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(ev.Email) == "" {
		return fmt.Errorf("no recipient for order %s", ev.OrderNumber)
	}

	subject, body, ok := render(ev)
	if !ok {
		return nil
	}
	n.log.Info("mail sent",
		zap.String("from", n.from),
		zap.String("to", ev.Email),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

func render(ev usecase.OrderEvent) (subject, body string, ok bool) {
	name := ev.FirstName
	if name == "" {
		name = "customer"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", name)

	switch ev.Type {
	case usecase.EventOrderPlaced:
		subject = "Order Confirmation - " + ev.OrderNumber
		fmt.Fprintf(&b, "Thank you for your order %s.\n\n", ev.OrderNumber)
		for _, it := range ev.Items {
			fmt.Fprintf(&b, "  %s x%d  %s\n", it.ProductName, it.Quantity, it.Price)
		}
		fmt.Fprintf(&b, "\nTotal: %s\n", ev.TotalPrice)
	case usecase.EventOrderPaid:
		subject = "Payment Received - " + ev.OrderNumber
		fmt.Fprintf(&b, "We received your payment of %s for order %s.\n", ev.TotalPrice, ev.OrderNumber)
	case usecase.EventOrderShipped:
		subject = "Your Order Has Shipped - " + ev.OrderNumber
		fmt.Fprintf(&b, "Your order %s is on its way.\n", ev.OrderNumber)
	default:
		return "", "", false
	}
	return subject, b.String(), true
}
