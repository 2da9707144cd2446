package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"text/template"
	"time"

	"github.com/smukkama/weather-monitor/pkg/config"
)

var emailBody = template.Must(template.New("alert").Parse(`Weather Alert
=============

{{.Message}}

Sent: {{.SentAt.Format "2006-01-02 15:04:05 MST"}}

---
Weather Monitor Notification Service
`))

// EmailNotifier sends notifications over SMTP with STARTTLS
type EmailNotifier struct {
	config config.SMTPConfig
	logger *slog.Logger
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(cfg config.SMTPConfig, logger *slog.Logger) (*EmailNotifier, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, fmt.Errorf("SMTP host and port are required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailNotifier{config: cfg, logger: logger}, nil
}

// Send delivers one email request
func (e *EmailNotifier) Send(ctx context.Context, req Request) error {
	msg, err := e.buildMessage(req, time.Now())
	if err != nil {
		return fmt.Errorf("failed to render email: %w", err)
	}

	if err := e.sendMail(ctx, req.Recipient, msg); err != nil {
		return err
	}

	e.logger.Debug("email sent", "recipient", req.Recipient, "subject", req.Subject)
	return nil
}

func (e *EmailNotifier) buildMessage(req Request, now time.Time) ([]byte, error) {
	var body bytes.Buffer
	err := emailBody.Execute(&body, struct {
		Message string
		SentAt  time.Time
	}{req.Message, now.UTC()})
	if err != nil {
		return nil, err
	}

	subject := headerValue(req.Subject)
	if subject == "" {
		subject = "Weather Alert"
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", e.config.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", headerValue(req.Recipient)))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject)))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", now.Format(time.RFC1123Z)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(strings.ReplaceAll(body.String(), "\n", "\r\n"))

	return []byte(msg.String()), nil
}

// headerValue folds line breaks into spaces so a value cannot start a new header.
func headerValue(v string) string {
	return strings.TrimSpace(strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(v))
}

func (e *EmailNotifier) sendMail(ctx context.Context, recipient string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)

	dialer := &net.Dialer{Timeout: 30 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, e.config.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: e.config.Host}); err != nil {
			return fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	if e.config.Username != "" && e.config.Password != "" {
		auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(e.config.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(recipient); err != nil {
		return fmt.Errorf("failed to add recipient %s: %w", recipient, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data: %w", err)
	}

	return client.Quit()
}

// TestConnection tests the SMTP connection
func (e *EmailNotifier) TestConnection(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	conn.Close()
	return nil
}
