// Package notify delivers committed order outcomes to the chat-bot process.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/V1nSky/key-bot/services/api/internal/app"
	"github.com/V1nSky/key-bot/services/api/internal/domain"
)

const (
	EventPaymentSubmitted = "payment_submitted"
	EventOrderConfirmed   = "order_confirmed"
	EventOrderRejected    = "order_rejected"
)

// Event is the JSON body posted to the webhook.
type Event struct {
	Type     string    `json:"type"`
	OrderID  int64     `json:"order_id"`
	UserID   int64     `json:"user_id"`
	Amount   int64     `json:"amount"`
	Status   string    `json:"status"`
	KeyValue string    `json:"key,omitempty"`
	SentAt   time.Time `json:"sent_at"`
}

func newEvent(typ string, o domain.Order) Event {
	return Event{
		Type:    typ,
		OrderID: o.ID,
		UserID:  o.UserID,
		Amount:  o.Amount,
		Status:  string(o.Status),
		SentAt:  time.Now().UTC(),
	}
}

// Log writes each outcome as a structured log line.
type Log struct {
	Logger *slog.Logger
}

func (l Log) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

func (l Log) PaymentSubmitted(ctx context.Context, o domain.Order) error {
	l.logger().InfoContext(ctx, "payment submitted, awaiting review", "order_id", o.ID, "user_id", o.UserID, "amount", o.Amount)
	return nil
}

func (l Log) OrderConfirmed(ctx context.Context, o domain.Order, k domain.Key) error {
	l.logger().InfoContext(ctx, "key delivered", "order_id", o.ID, "user_id", o.UserID, "key_id", k.ID)
	return nil
}

func (l Log) OrderRejected(ctx context.Context, o domain.Order) error {
	l.logger().InfoContext(ctx, "payment rejected", "order_id", o.ID, "user_id", o.UserID)
	return nil
}

// Webhook posts events to URL. A non-2xx response is an error.
type Webhook struct {
	URL    string
	Client *http.Client
}

func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Webhook{URL: url, Client: &http.Client{Timeout: timeout}}
}

func (w *Webhook) PaymentSubmitted(ctx context.Context, o domain.Order) error {
	return w.post(ctx, newEvent(EventPaymentSubmitted, o))
}

func (w *Webhook) OrderConfirmed(ctx context.Context, o domain.Order, k domain.Key) error {
	ev := newEvent(EventOrderConfirmed, o)
	ev.KeyValue = k.Value
	return w.post(ctx, ev)
}

func (w *Webhook) OrderRejected(ctx context.Context, o domain.Order) error {
	return w.post(ctx, newEvent(EventOrderRejected, o))
}

func (w *Webhook) post(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", ev.Type, err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s event: %w", ev.Type, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post %s event: unexpected status %d", ev.Type, resp.StatusCode)
	}
	return nil
}

// Multi fans out to every notifier and joins their errors.
type Multi []app.Notifier

func (m Multi) PaymentSubmitted(ctx context.Context, o domain.Order) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.PaymentSubmitted(ctx, o))
	}
	return errors.Join(errs...)
}

func (m Multi) OrderConfirmed(ctx context.Context, o domain.Order, k domain.Key) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.OrderConfirmed(ctx, o, k))
	}
	return errors.Join(errs...)
}

func (m Multi) OrderRejected(ctx context.Context, o domain.Order) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.OrderRejected(ctx, o))
	}
	return errors.Join(errs...)
}
