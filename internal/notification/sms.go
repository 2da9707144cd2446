package notification

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smukkama/weather-monitor/pkg/config"
)

const smsPrefix = "🌤️ Weather Alert: "

// SMSNotifier sends text messages through the Twilio Messages API
type SMSNotifier struct {
	config config.SMSConfig
	client *http.Client
}

func NewSMSNotifier(cfg config.SMSConfig, client *http.Client) (*SMSNotifier, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromNumber == "" {
		return nil, fmt.Errorf("twilio account sid, auth token and from number are required")
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &SMSNotifier{config: cfg, client: client}, nil
}

// Send posts one SMS. Only 201 Created counts as delivered.
func (s *SMSNotifier) Send(ctx context.Context, req Request) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json",
		strings.TrimRight(s.config.BaseURL, "/"), url.PathEscape(s.config.AccountSID))

	form := url.Values{}
	form.Set("From", s.config.FromNumber)
	form.Set("To", req.Recipient)
	form.Set("Body", smsPrefix+req.Message)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(s.config.AccountSID, s.config.AuthToken)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call twilio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twilio returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
