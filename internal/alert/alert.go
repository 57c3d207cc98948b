package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/riskwatch/riskwatch/internal/logger"
	"github.com/riskwatch/riskwatch/internal/store"
)

var log = logger.ForComponent("alert")

// Notifier posts a digest of recent events to a Slack-compatible webhook.
// Delivery is best-effort: failures are logged and never break a cycle.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: strings.TrimSpace(webhookURL),
		client:     &http.Client{Timeout: 8 * time.Second},
	}
}

func (n *Notifier) Enabled() bool {
	return n.webhookURL != ""
}

func (n *Notifier) SendDigest(ctx context.Context, events []*store.Event, window time.Duration) {
	if !n.Enabled() {
		return
	}
	if len(events) == 0 {
		log.Debug("no events in alert window")
		return
	}

	msg := Digest(events, window)

	payload, err := json.Marshal(map[string]string{"text": msg})
	if err != nil {
		log.Warn("alert payload failed", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		log.Warn("alert request failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		log.Warn("alert post failed", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Warn("alert post rejected", "status", resp.StatusCode)
		return
	}

	log.Info("alert digest sent", "events", len(events))
}

var severityMarkers = map[string]string{
	"Critical": "🟥",
	"High":     "🟧",
}

// Digest renders the severity-ranked alert message.
func Digest(events []*store.Event, window time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*New vendor risk items (last %s):*\n\n", window)

	for _, e := range events {
		marker, ok := severityMarkers[e.Severity]
		if !ok {
			marker = "🟦"
		}

		risk := e.RiskPrimary
		if risk == "" {
			risk = e.RiskType
		}
		if risk == "" {
			risk = "n/a"
		}

		vendor := e.VendorPrimary
		if vendor == "" {
			vendor = "n/a"
		}

		fmt.Fprintf(&b, "%s *%s* | %s", marker, vendor, risk)
		if e.Severity != "" {
			fmt.Fprintf(&b, " (%s)", e.Severity)
		}
		fmt.Fprintf(&b, " | %s\n%s\n", e.Source, e.Title)
		if e.Link != "" {
			fmt.Fprintf(&b, "%s\n", e.Link)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}
