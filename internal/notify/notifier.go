package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/smtp"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fenilsonani/dircompress/internal/config"
	"github.com/fenilsonani/dircompress/internal/logging"
	"github.com/fenilsonani/dircompress/internal/reporter"
	"github.com/fenilsonani/dircompress/pkg/utils"
)

const (
	TypeRunSuccess = "run_success"
	TypeRunFailure = "run_failure"

	sendTimeout = 30 * time.Second
)

// Message is what every channel receives
type Message struct {
	Title     string
	Body      string
	Timestamp time.Time
	Type      string
	Summary   reporter.Summary
}

// mailFunc delivers one message. Swapped out in tests.
type mailFunc func(ctx context.Context, cfg config.EmailConfig, from string, to []string, msg []byte) error

// Notifier delivers run reports by email and webhook
type Notifier struct {
	config *config.NotificationConfig
	logger *logging.Logger
	client *http.Client
	mail   mailFunc
}

// New creates a new notifier. A nil config disables configured channels;
// an explicit recipient passed to SendRunReport is still honored.
func New(cfg *config.NotificationConfig, logger *logging.Logger) *Notifier {
	if cfg == nil {
		cfg = &config.NotificationConfig{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Notifier{
		config: cfg,
		logger: logger,
		client: &http.Client{Timeout: sendTimeout},
		mail:   sendSMTP,
	}
}

// SendRunReport emails the plain text report to recipient (the -e address)
// and, when notifications are enabled, to the configured recipients and
// webhook. Every failure is logged; the joined error is returned for callers
// that want it, but a run never fails because of it.
func (n *Notifier) SendRunReport(ctx context.Context, s reporter.Summary, recipient string) error {
	msg, err := newMessage(s)
	if err != nil {
		n.logger.Error("Failed to build run report: %v", err)
		return err
	}

	configured := n.config.Enabled && n.wants(s)

	var to []string
	if recipient != "" {
		to = append(to, recipient)
	}
	if configured {
		for _, addr := range n.config.Email.To {
			if addr != "" && addr != recipient {
				to = append(to, addr)
			}
		}
	}

	var errs []error
	if len(to) > 0 {
		if err := n.sendEmail(ctx, msg, to); err != nil {
			n.logger.Error("Failed to send email notification: %v", err)
			errs = append(errs, err)
		} else {
			n.logger.Info("Email notification sent to %s: %s", strings.Join(to, ", "), msg.Title)
		}
	}

	if configured && n.config.Webhook.URL != "" {
		if err := n.sendWebhook(ctx, msg); err != nil {
			n.logger.Error("Failed to send webhook notification: %v", err)
			errs = append(errs, err)
		} else {
			n.logger.Info("Webhook notification sent: %s", msg.Title)
		}
	}

	return errors.Join(errs...)
}

// wants applies the on_success / on_failure switches
func (n *Notifier) wants(s reporter.Summary) bool {
	if s.Status() == "ok" {
		return n.config.OnSuccess
	}
	return n.config.OnFailure
}

func newMessage(s reporter.Summary) (*Message, error) {
	body, err := reporter.Render(s, reporter.FormatSummary)
	if err != nil {
		return nil, err
	}

	msg := &Message{
		Body:      body,
		Timestamp: time.Now(),
		Summary:   s,
	}

	mode := ""
	if s.DryRun {
		mode = " (dry run)"
	}
	if s.Status() == "ok" {
		msg.Type = TypeRunSuccess
		msg.Title = fmt.Sprintf("Compression completed%s: %s, saved %s", mode, s.Target, utils.FormatBytes(s.SavedBytes))
	} else {
		msg.Type = TypeRunFailure
		msg.Title = fmt.Sprintf("Compression %s%s: %s, %d failed", s.Status(), mode, s.Target, len(s.Failed))
	}
	return msg, nil
}

// sendEmail sends the report as a plain text email
func (n *Notifier) sendEmail(ctx context.Context, msg *Message, to []string) error {
	cfg := n.config.Email
	if cfg.SMTPHost == "" {
		return fmt.Errorf("no smtp_host configured, cannot email report")
	}

	from := cfg.From
	if from == "" {
		host, _ := os.Hostname()
		if host == "" {
			host = "localhost"
		}
		from = "dircompress@" + host
	}

	return n.mail(ctx, cfg, from, to, buildEmail(from, to, msg))
}

func buildEmail(from string, to []string, msg *Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Title)
	fmt.Fprintf(&b, "Date: %s\r\n", msg.Timestamp.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return b.Bytes()
}

// sendSMTP talks to the server directly so that use_tls can require TLS.
// Port 465 gets implicit TLS; other ports upgrade with STARTTLS.
func sendSMTP(ctx context.Context, cfg config.EmailConfig, from string, to []string, msg []byte) error {
	addr := net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort))
	tlsConfig := &tls.Config{ServerName: cfg.SMTPHost}
	dialer := &net.Dialer{Timeout: sendTimeout}

	implicitTLS := cfg.UseTLS && cfg.SMTPPort == 465

	var conn net.Conn
	var err error
	if implicitTLS {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(sendTimeout))
	}

	c, err := smtp.NewClient(conn, cfg.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake failed: %w", err)
	}
	defer c.Close()

	if !implicitTLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("starttls failed: %w", err)
			}
		} else if cfg.UseTLS {
			return fmt.Errorf("server %s does not support STARTTLS", addr)
		}
	}

	if cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.SMTPHost)); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := c.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM rejected: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("recipient %s rejected: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA rejected: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("message not accepted: %w", err)
	}
	return c.Quit()
}

// webhookPayload is the JSON body posted to the webhook
type webhookPayload struct {
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Timestamp string           `json:"timestamp"`
	Type      string           `json:"type"`
	Status    string           `json:"status"`
	Data      reporter.Summary `json:"data"`
}

// sendWebhook sends a webhook notification
func (n *Notifier) sendWebhook(ctx context.Context, msg *Message) error {
	cfg := n.config.Webhook

	payload := webhookPayload{
		Title:     msg.Title,
		Message:   msg.Body,
		Timestamp: msg.Timestamp.Format(time.RFC3339),
		Type:      msg.Type,
		Status:    msg.Summary.Status(),
		Data:      msg.Summary,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	method := cfg.Method
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.URL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
