package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Marseau/sendguard/risk"
)

type SlackNotifier struct {
	SlackWebhookURL string
	// caps webhook traffic during block storms; alerts over the limit are
	// dropped, the audit trail still has them
	Limiter *rate.Limiter
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		SlackWebhookURL: webhookURL,
		Limiter:         rate.NewLimiter(rate.Every(10*time.Second), 5),
	}
}

func (n *SlackNotifier) SendHighRisk(ctx context.Context, tenantID, maskedRecipient string, res risk.AnalysisResult) error {
	if n.Limiter != nil && !n.Limiter.Allow() {
		return nil
	}
	msg := "⚠️ Sendguard High-Risk Decision ⚠️\n"
	msg += fmt.Sprintf("tenant `%s` / recipient `%s` / allowed: %v\n", tenantID, maskedRecipient, res.Allowed)
	if len(res.Reasons) > 0 {
		msg += fmt.Sprintf("Reasons: `%s`\n", strings.Join(res.Reasons, ", "))
	}
	if len(res.Recommendations) > 0 {
		msg += fmt.Sprintf("Recommendations: %s\n", strings.Join(res.Recommendations, "; "))
	}
	return n.sendSlackMsg(ctx, msg)
}

type SlackWebhookBody struct {
	Text string `json:"text"`
}

// Sends a simple slack message to a channel via "incoming webhook".
//
// The slack incoming webhook must be already configured in the slack workplace.
func (n *SlackNotifier) sendSlackMsg(ctx context.Context, msg string) error {
	body, err := json.Marshal(SlackWebhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.SlackWebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	if resp.StatusCode != 200 || buf.String() != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}

var _ Notifier = (*SlackNotifier)(nil)
