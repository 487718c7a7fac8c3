package notification

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"sync"
	"time"

	"farmart/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	defaultSendTimeout = 15 * time.Second
	maxParallelSends   = 4
)

// Notifier renders emails and delivers them in the background
type Notifier struct {
	sender  Sender
	logger  *zap.Logger
	tmpl    *template.Template
	timeout time.Duration
	wg      sync.WaitGroup
}

// New parses the embedded templates
func New(sender Sender, logger *zap.Logger) (*Notifier, error) {
	tmpl, err := template.New("email").Funcs(template.FuncMap{
		"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &Notifier{
		sender:  sender,
		logger:  logger,
		tmpl:    tmpl,
		timeout: defaultSendTimeout,
	}, nil
}

func (n *Notifier) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := n.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

// Welcome greets a newly registered user
func (n *Notifier) Welcome(user *domain.User) {
	html, err := n.render("welcome.html", struct {
		FirstName string
		IsFarmer  bool
	}{user.FirstName, user.IsFarmer()})
	if err != nil {
		n.logger.Error("Failed to render welcome email", zap.String("user_id", user.ID.String()), zap.Error(err))
		return
	}

	n.dispatch("welcome", []Message{{
		To:      user.Email,
		ToName:  user.FullName(),
		Subject: "Welcome to Farmart",
		HTML:    html,
		Text:    "Welcome to Farmart, " + user.FirstName + "!",
	}})
}

// OrderPlaced confirms the order to the customer and tells every farmer about their own lines
func (n *Notifier) OrderPlaced(order *domain.Order, customer *domain.User, farmers []*domain.User) {
	messages, err := n.orderMessages(order, customer, farmers)
	if err != nil {
		n.logger.Error("Failed to render order emails", zap.String("order_id", order.ID.String()), zap.Error(err))
		return
	}
	n.dispatch("order_placed", messages)
}

func (n *Notifier) orderMessages(order *domain.Order, customer *domain.User, farmers []*domain.User) ([]Message, error) {
	var messages []Message
	customerName := order.ShippingAddress.FirstName + " " + order.ShippingAddress.LastName

	if customer != nil {
		customerName = customer.FullName()
		html, err := n.render("order_confirmation.html", struct {
			CustomerName string
			Order        *domain.Order
		}{customer.FirstName, order})
		if err != nil {
			return nil, err
		}

		messages = append(messages, Message{
			To:      customer.Email,
			ToName:  customer.FullName(),
			Subject: "Order Confirmation - " + order.OrderNumber,
			HTML:    html,
			Text:    fmt.Sprintf("Your order %s totalling %.2f has been placed.", order.OrderNumber, order.TotalAmount),
		})
	}

	for _, farmer := range farmers {
		items := order.ItemsForFarmer(farmer.ID)
		if len(items) == 0 {
			continue
		}
		total := 0.0
		for _, item := range items {
			total += item.Subtotal
		}

		html, err := n.render("farmer_order.html", struct {
			FarmerName   string
			CustomerName string
			OrderNumber  string
			Items        []domain.OrderItem
			Total        float64
			Address      domain.ShippingAddress
		}{farmer.FirstName, customerName, order.OrderNumber, items, total, order.ShippingAddress})
		if err != nil {
			return nil, err
		}

		messages = append(messages, Message{
			To:      farmer.Email,
			ToName:  farmer.FullName(),
			Subject: "New Order Received - " + order.OrderNumber,
			HTML:    html,
			Text:    fmt.Sprintf("You have a new order %s with %d of your animals.", order.OrderNumber, len(items)),
		})
	}

	return messages, nil
}

// dispatch sends the messages concurrently in the background.
// Failures are logged and never reach the caller.
func (n *Notifier) dispatch(event string, messages []Message) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		var g errgroup.Group
		g.SetLimit(maxParallelSends)
		for _, msg := range messages {
			msg := msg
			g.Go(func() error {
				if err := n.sender.Send(ctx, msg); err != nil {
					n.logger.Error("Failed to send email",
						zap.String("event", event),
						zap.String("to", msg.To),
						zap.String("subject", msg.Subject),
						zap.Error(err),
					)
					return err
				}
				return nil
			})
		}

		if err := g.Wait(); err == nil {
			n.logger.Debug("Emails sent", zap.String("event", event), zap.Int("count", len(messages)))
		}
	}()
}

// Wait blocks until in-flight dispatches finish or ctx is done
func (n *Notifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
