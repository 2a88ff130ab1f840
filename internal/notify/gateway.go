package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/observability"
)

// Gateway delivers a text message to a phone contact. Implementations are
// fire-and-forget: delivery failures are logged and swallowed, never
// returned to lifecycle callers.
type Gateway interface {
	Send(ctx context.Context, phone, text string)
}

// NormalizePhone strips everything but digits and keeps the trailing ten,
// dropping country prefixes. Returns empty when fewer than ten digits remain.
func NormalizePhone(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	s := digits.String()
	if len(s) < 10 {
		return ""
	}
	return s[len(s)-10:]
}

// HTTPGateway posts messages to the external WhatsApp gateway.
type HTTPGateway struct {
	cfg     config.GatewayConfig
	client  *http.Client
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewHTTPGateway builds the gateway client.
func NewHTTPGateway(cfg config.GatewayConfig, metrics *observability.Metrics, logger *zap.Logger) *HTTPGateway {
	return &HTTPGateway{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout()},
		metrics: metrics,
		logger:  logger,
	}
}

type sendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Send delivers best-effort. Invalid numbers and transport errors are
// logged; the caller never observes them.
func (g *HTTPGateway) Send(ctx context.Context, phone, text string) {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		g.logger.Debug("skipping notification for invalid phone", zap.String("phone", phone))
		return
	}
	if strings.TrimSpace(g.cfg.BaseURL) == "" {
		g.logger.Debug("gateway not configured; dropping notification",
			zap.String("phone", normalized))
		return
	}

	body, err := json.Marshal(sendRequest{Phone: normalized, Message: text})
	if err != nil {
		g.logger.Warn("marshal notification", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		g.logger.Warn("build gateway request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	g.metrics.RecordNotification()
	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("gateway send failed", zap.String("phone", normalized), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		g.logger.Warn("gateway rejected message",
			zap.String("phone", normalized),
			zap.String("status", fmt.Sprintf("%d", resp.StatusCode)))
	}
}
