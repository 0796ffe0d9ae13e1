// Package notify delivers per-anomaly notices and run summaries to Slack
// via an Incoming Webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pratik-mahalle/costpilot/internal/config"
	"github.com/pratik-mahalle/costpilot/internal/domain/anomaly"
	"github.com/pratik-mahalle/costpilot/internal/domain/recommendation"
	"github.com/pratik-mahalle/costpilot/internal/pkg/logger"
)

// SlackNotifier posts messages to a Slack Incoming Webhook. It implements
// remediation.Notifier. Channel is optional; when set it overrides the
// webhook's default channel.
type SlackNotifier struct {
	webhookURL string
	channel    string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewSlackNotifier creates a Slack notifier from configuration
func NewSlackNotifier(cfg config.SlackConfig, log *logger.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: cfg.WebhookURL,
		channel:    cfg.Channel,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     log,
	}
}

// Notify posts a per-anomaly notice including the proposal reference
func (s *SlackNotifier) Notify(ctx context.Context, a *anomaly.Anomaly, rec *recommendation.Recommendation, proposalRef string) error {
	var b strings.Builder
	fmt.Fprintf(&b, ":moneybag: *Cost optimization proposed for %s*\n", a.Service)
	fmt.Fprintf(&b, "> Issue: %s", strings.ReplaceAll(string(a.IssueType), "_", " "))
	if a.ResourceID != "" {
		fmt.Fprintf(&b, " (`%s`)", a.ResourceID)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "> Current cost: $%.2f/mo, estimated savings: $%.2f/mo\n", a.CurrentCost, rec.SavingsEstimate)
	fmt.Fprintf(&b, "> Risk: %s, confidence: %.0f%%\n", rec.RiskLevel, rec.Confidence*100)
	if proposalRef != "" {
		fmt.Fprintf(&b, "> Proposal: %s\n", proposalRef)
	}
	return s.send(ctx, b.String())
}

// NotifySummary posts one run-level digest covering the whole batch
func (s *SlackNotifier) NotifySummary(ctx context.Context, anomalies []*anomaly.Anomaly, totalSavings float64, successCount int) error {
	byService := map[string]int{}
	for _, a := range anomalies {
		byService[a.Service]++
	}
	services := make([]string, 0, len(byService))
	for svc := range byService {
		services = append(services, svc)
	}
	sort.Strings(services)

	var b strings.Builder
	fmt.Fprintf(&b, ":bar_chart: *Cost anomaly run complete*\n")
	fmt.Fprintf(&b, "> Anomalies detected: %d (%d remediated)\n", len(anomalies), successCount)
	fmt.Fprintf(&b, "> Estimated total savings: $%.2f/mo\n", totalSavings)
	for _, svc := range services {
		fmt.Fprintf(&b, "> • %s: %d\n", svc, byService[svc])
	}
	return s.send(ctx, b.String())
}

func (s *SlackNotifier) send(ctx context.Context, message string) error {
	if s.webhookURL == "" {
		return errors.New("slack webhook not configured")
	}
	payload := map[string]any{
		"text": message,
	}
	if s.channel != "" {
		payload["channel"] = s.channel
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}
