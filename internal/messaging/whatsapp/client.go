// Package whatsapp sends visitor invitations through a WAHA gateway.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"gatehouse/internal/platform/config"
	pkgstrings "gatehouse/pkg/platform/strings"
	"gatehouse/pkg/requestcontext"
)

// Client is safe for concurrent use. The zero URL disables sending.
type Client struct {
	baseURL  string
	apiKey   string
	session  string
	validity time.Duration
	http     *http.Client
	logger   *slog.Logger
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithValidity sets the OTP lifetime quoted in the invitation. It should
// match the visit policy that stamps the OTP expiry.
func WithValidity(d time.Duration) Option {
	return func(c *Client) { c.validity = d }
}

func New(cfg config.WhatsApp, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(cfg.APIURL, "/"),
		apiKey:   cfg.APIKey,
		session:  cfg.Session,
		validity: 30 * time.Minute,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger:   slog.Default(),
	}
	if c.session == "" {
		c.session = "default"
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sendTextRequest struct {
	Session string `json:"session"`
	ChatID  string `json:"chatId"`
	Text    string `json:"text"`
}

// SendInvite reports whether the gateway accepted the message. Every failure
// is logged and reported as false.
func (c *Client) SendInvite(ctx context.Context, phone, visitorName, otp, qrCode string) bool {
	if c.baseURL == "" {
		return false
	}
	body, err := json.Marshal(sendTextRequest{
		Session: c.session,
		ChatID:  ChatID(phone),
		Text:    inviteText(visitorName, otp, qrCode, c.validity),
	})
	if err != nil {
		c.logger.WarnContext(ctx, "whatsapp payload encoding failed", "error", err)
		return false
	}
	if err := c.post(ctx, "/sendText", body); err != nil {
		c.logger.WarnContext(ctx, "whatsapp invite failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return false
	}
	c.logger.InfoContext(ctx, "whatsapp invite sent", "visitor", visitorName)
	return true
}

func (c *Client) post(ctx context.Context, path string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, snippet)
	}
	return nil
}

func inviteText(visitorName, otp, qrCode string, validity time.Duration) string {
	text := fmt.Sprintf("Visitor pass: %s\nYour OTP: %s\nValid for %d minutes.", visitorName, otp, int(validity/time.Minute))
	if qrCode != "" {
		text += "\nQR code: " + qrCode
	}
	return text
}

// ChatID converts a phone number to a WAHA chat id. Numbers without a
// country code are assumed to be Indian.
func ChatID(phone string) string {
	digits := pkgstrings.DigitsOnly(phone)
	switch {
	case strings.HasPrefix(digits, "0"):
		digits = "91" + digits[1:]
	case len(digits) == 10:
		digits = "91" + digits
	}
	return digits + "@c.us"
}
