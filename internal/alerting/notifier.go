package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrNotConfigured indicates the notifier is missing its provider credential.
var ErrNotConfigured = errors.New("alerting: email provider not configured")

// Alert 封装一次阈值告警的通知上下文。
type Alert struct {
	RuleID    string
	Threshold decimal.Decimal
	Price     decimal.Decimal
	Email     string
}

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// SendGridNotifier 通过 SendGrid v3 API 发送告警邮件。
type SendGridNotifier struct {
	apiKey    string
	fromEmail string
	fromName  string
	baseURL   string
	client    *http.Client
	logger    zerolog.Logger
}

// NewSendGridNotifier 构造邮件告警器。
func NewSendGridNotifier(apiKey, fromEmail, fromName, baseURL string, timeout time.Duration, logger zerolog.Logger) *SendGridNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.sendgrid.com"
	}
	if fromEmail == "" {
		fromEmail = "alerts@stellarpulse.io"
	}
	if fromName == "" {
		fromName = "StellarPulse Alerts"
	}

	return &SendGridNotifier{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
		logger:    logger.With().Str("component", "alert_email").Logger(),
	}
}

// Configured reports whether a provider credential is present.
func (n *SendGridNotifier) Configured() bool {
	return n.apiKey != ""
}

// Notify 调用 mail/send API 发送纯文本告警邮件。
func (n *SendGridNotifier) Notify(ctx context.Context, alert Alert) error {
	if !n.Configured() {
		return ErrNotConfigured
	}
	if alert.Email == "" {
		// No recipient configured: the email channel is opt-in.
		n.logger.Debug().Str("rule_id", alert.RuleID).Msg("no recipient configured; skipping email")
		return nil
	}

	payload := map[string]any{
		"personalizations": []map[string]any{
			{"to": []map[string]string{{"email": alert.Email}}},
		},
		"from":    map[string]string{"email": n.fromEmail, "name": n.fromName},
		"subject": "🚨 BTC Price Alert Triggered!",
		"content": []map[string]string{
			{"type": "text/plain", "value": renderEmailBody(alert)},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sendgrid payload: %w", err)
	}

	url := n.baseURL + "/v3/mail/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create sendgrid request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sendgrid request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		n.logger.Error().Int("status", resp.StatusCode).
			Str("body", strings.TrimSpace(string(detail))).Msg("sendgrid 响应码异常")
		return fmt.Errorf("sendgrid 响应码异常: %d", resp.StatusCode)
	}

	n.logger.Info().Str("rule_id", alert.RuleID).
		Str("threshold", alert.Threshold.String()).
		Msg("告警邮件已发送")
	return nil
}

func renderEmailBody(alert Alert) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("Heads up! The price of Bitcoin has dropped below your threshold of $%s.\n\n", alert.Threshold.StringFixed(0)))
	builder.WriteString(fmt.Sprintf("The current price is $%s.\n\n", alert.Price.StringFixed(0)))
	builder.WriteString("- The StellarPulse Team")
	return builder.String()
}

// ToastNotifier surfaces alerts as structured log events. It stands in for
// the in-app toast channel, which is rendered outside this process.
type ToastNotifier struct {
	logger zerolog.Logger
}

// NewToastNotifier 构造应用内告警器。
func NewToastNotifier(logger zerolog.Logger) *ToastNotifier {
	return &ToastNotifier{logger: logger.With().Str("component", "alert_toast").Logger()}
}

// Notify emits the in-app notification event.
func (n *ToastNotifier) Notify(ctx context.Context, alert Alert) error {
	n.logger.Info().
		Str("rule_id", alert.RuleID).
		Str("threshold", alert.Threshold.String()).
		Str("price", alert.Price.String()).
		Msg("BTC price alert triggered")
	return nil
}

var (
	_ Notifier = (*SendGridNotifier)(nil)
	_ Notifier = (*ToastNotifier)(nil)
)
