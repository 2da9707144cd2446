package notification

import (
	"strings"
	"testing"
	"time"

	"github.com/smukkama/weather-monitor/pkg/config"
)

func TestEmailNotifier_BuildMessage(t *testing.T) {
	n, err := NewEmailNotifier(config.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "alerts@example.com"}, nil)
	if err != nil {
		t.Fatalf("NewEmailNotifier failed: %v", err)
	}

	now := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	msg, err := n.buildMessage(Request{
		Channel:   ChannelEmail,
		Recipient: "ops@example.com",
		Subject:   "Weather Alert: temperature in Dubai",
		Message:   "High temperature alert: 47.0°C in Dubai",
	}, now)
	if err != nil {
		t.Fatalf("buildMessage failed: %v", err)
	}

	s := string(msg)
	for _, want := range []string{
		"From: alerts@example.com\r\n",
		"To: ops@example.com\r\n",
		"Subject: Weather Alert: temperature in Dubai\r\n",
		"Content-Type: text/plain; charset=UTF-8\r\n",
		"High temperature alert: 47.0°C in Dubai\r\n",
		"Sent: 2024-01-15 08:00:00 UTC",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("Message missing %q:\n%s", want, s)
		}
	}

	headers, _, found := strings.Cut(s, "\r\n\r\n")
	if !found {
		t.Fatal("Expected blank line between headers and body")
	}
	if strings.Contains(headers, "Weather Monitor Notification Service") {
		t.Error("Body leaked into headers")
	}
}

func TestEmailNotifier_DefaultSubject(t *testing.T) {
	n, _ := NewEmailNotifier(config.SMTPConfig{Host: "h", Port: 25, From: "f@example.com"}, nil)

	msg, err := n.buildMessage(Request{Recipient: "r@example.com", Message: "m"}, time.Now())
	if err != nil {
		t.Fatalf("buildMessage failed: %v", err)
	}
	if !strings.Contains(string(msg), "Subject: Weather Alert\r\n") {
		t.Errorf("Expected default subject:\n%s", msg)
	}
}

func TestNewEmailNotifier_Validation(t *testing.T) {
	tests := []config.SMTPConfig{
		{Port: 587, From: "a@b.c"},
		{Host: "h", From: "a@b.c"},
		{Host: "h", Port: 587},
	}
	for i, cfg := range tests {
		if _, err := NewEmailNotifier(cfg, nil); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestEmailNotifier_HeadersCannotBeInjected(t *testing.T) {
	n, _ := NewEmailNotifier(config.SMTPConfig{Host: "h", Port: 25, From: "f@example.com"}, nil)

	msg, err := n.buildMessage(Request{
		Recipient: "r@example.com\r\nBcc: victim@example.com",
		Subject:   "Weather Alert: aqi in Paris\r\nBcc: attacker@example.com\nX-Evil: 1",
		Message:   "m",
	}, time.Now())
	if err != nil {
		t.Fatalf("buildMessage failed: %v", err)
	}

	headers, _, _ := strings.Cut(string(msg), "\r\n\r\n")
	for _, line := range strings.Split(headers, "\r\n") {
		if strings.HasPrefix(line, "Bcc:") || strings.HasPrefix(line, "X-Evil:") {
			t.Errorf("Injected header line %q:\n%s", line, headers)
		}
	}
	if !strings.Contains(headers, "Subject: Weather Alert: aqi in Paris Bcc: attacker@example.com X-Evil: 1\r\n") {
		t.Errorf("Expected folded subject:\n%s", headers)
	}
}

func TestEmailNotifier_EncodesNonASCIISubject(t *testing.T) {
	n, _ := NewEmailNotifier(config.SMTPConfig{Host: "h", Port: 25, From: "f@example.com"}, nil)

	msg, err := n.buildMessage(Request{Recipient: "r@example.com", Subject: "Weather Alert: temperature in Zürich", Message: "m"}, time.Now())
	if err != nil {
		t.Fatalf("buildMessage failed: %v", err)
	}
	if !strings.Contains(string(msg), "Subject: =?utf-8?q?") {
		t.Errorf("Expected encoded-word subject:\n%s", msg)
	}
}
