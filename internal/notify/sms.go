package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type SMSConfig struct {
	Endpoint string
	APIKey   string
	Sender   string
}

// SMSSender posts reminders to an HTTP SMS gateway.
type SMSSender struct {
	cfg    SMSConfig
	client *http.Client
}

func NewSMSSender(cfg SMSConfig, client *http.Client) *SMSSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &SMSSender{cfg: cfg, client: client}
}

type smsRequest struct {
	To   string `json:"to"`
	From string `json:"from"`
	Text string `json:"text"`
}

func (s *SMSSender) Notify(ctx context.Context, msg Message) error {
	if msg.Contact.PhoneNumber == "" {
		return classify("sms", fmt.Errorf("no phone number"))
	}

	payload, err := json.Marshal(smsRequest{
		To:   msg.Contact.PhoneNumber,
		From: s.cfg.Sender,
		Text: msg.Subject() + "\n" + msg.Body(),
	})
	if err != nil {
		return classify("sms", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return classify("sms", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return classify("sms", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return classify("sms", fmt.Errorf("gateway returned %d: %s", resp.StatusCode, bytes.TrimSpace(body)))
	}
	return nil
}
