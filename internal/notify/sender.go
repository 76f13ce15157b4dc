package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

type Message struct {
	Type      string `json:"type"`
	OrderID   string `json:"order_id"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Note      string `json:"note,omitempty"`
}

// Sender adalah batas keluar sistem; pengiriman email beneran
// hidup di belakang interface ini.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

type LogSender struct{ Log *slog.Logger }

func (s *LogSender) Send(_ context.Context, m Message) error {
	s.Log.Info("notification",
		"type", m.Type, "order_id", m.OrderID, "recipient", m.Recipient, "subject", m.Subject)
	return nil
}

// WebhookSender mem-POST message ke endpoint mail-gateway eksternal.
type WebhookSender struct {
	URL    string
	Client *http.Client
}

func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{URL: url, Client: &http.Client{Timeout: 5 * time.Second}}
}

func (s *WebhookSender) Send(ctx context.Context, m Message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
