package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kjannette/market-etl/internal/dag"
	"github.com/kjannette/market-etl/internal/httputil"
)

type Sender struct {
	webhookURL   string
	pipelineName string
	httpClient   *http.Client
	retry        httputil.RetryConfig
	logger       *slog.Logger
}

func NewSender(webhookURL, pipelineName string, logger *slog.Logger) *Sender {
	if pipelineName == "" {
		pipelineName = "finance_etl_pipeline"
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "notifications")
	return &Sender{
		webhookURL:   webhookURL,
		pipelineName: pipelineName,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
			Logger:      logger,
		},
		logger: logger,
	}
}

// Send logs msg and, when a webhook is configured, posts it. Delivery
// failures are logged and never returned.
func (s *Sender) Send(ctx context.Context, msg string) {
	formatted := fmt.Sprintf("[%s] %s", s.pipelineName, msg)
	s.logger.Info("notification", "message", formatted)

	if s.webhookURL == "" {
		return
	}

	body, err := json.Marshal(s.formatPayload(formatted))
	if err != nil {
		s.logger.Error("marshal notification", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := httputil.Do(ctx, s.httpClient, s.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		s.logger.Error("notification delivery failed after retries", "error", err)
		return
	}
	resp.Body.Close()
}

// NotifyRun reports the outcome of a pipeline run. Degraded runs list the
// tasks that did not succeed so fail-open substitutions stay visible.
func (s *Sender) NotifyRun(ctx context.Context, run *dag.Run, err error) {
	if err != nil {
		s.Send(ctx, "pipeline run could not start: "+err.Error())
		return
	}
	if run == nil {
		return
	}

	msg := run.Summary()
	if run.Succeeded() {
		msg = "OK " + msg
	} else {
		msg = "DEGRADED " + msg
		var lines []string
		for _, res := range run.Results() {
			switch res.Status {
			case dag.StatusFailed:
				lines = append(lines, fmt.Sprintf("%s failed after %d attempt(s): %v", res.ID, res.Attempts, res.Err))
			case dag.StatusUpstreamFailed:
				lines = append(lines, res.ID+" skipped (upstream failed)")
			}
		}
		if len(lines) > 0 {
			msg += "\n" + strings.Join(lines, "\n")
		}
	}
	s.Send(ctx, msg)
}

func (s *Sender) formatPayload(msg string) map[string]string {
	if strings.Contains(s.webhookURL, "discord") {
		return map[string]string{
			"content":  msg,
			"username": s.pipelineName,
		}
	}
	return map[string]string{
		"text":     fmt.Sprintf("`%s`", msg),
		"username": s.pipelineName,
	}
}

func (s *Sender) Enabled() bool {
	return s.webhookURL != ""
}
