package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kjannette/market-etl/internal/dag"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func capture(t *testing.T, received *map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, received)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSend_NoWebhook(t *testing.T) {
	s := NewSender("", "test_pipeline", quiet)
	if s.Enabled() {
		t.Fatal("should not be enabled with empty URL")
	}
	// Should log without error
	s.Send(context.Background(), "hello from test")
}

func TestSend_SlackFormat(t *testing.T) {
	var received map[string]string
	srv := capture(t, &received)

	s := NewSender(srv.URL, "test_pipeline", quiet)
	if !s.Enabled() {
		t.Fatal("should be enabled")
	}

	s.Send(context.Background(), "load committed")

	if received["username"] != "test_pipeline" {
		t.Fatalf("username: got %s", received["username"])
	}
	if received["text"] != "`[test_pipeline] load committed`" {
		t.Fatalf("text: got %q", received["text"])
	}
}

func TestSend_DiscordFormat(t *testing.T) {
	var received map[string]string
	srv := capture(t, &received)

	// URL containing "discord" triggers Discord format
	s := NewSender(srv.URL+"/discord/webhook", "finance", quiet)
	s.Send(context.Background(), "3 rows loaded into sp500_index")

	if received["content"] == "" {
		t.Fatal("content should not be empty for Discord")
	}
	if received["username"] != "finance" {
		t.Fatalf("username: got %s", received["username"])
	}
	if _, hasText := received["text"]; hasText {
		t.Fatal("Discord payload should not have 'text' field")
	}
}

func TestSend_WebhookError(t *testing.T) {
	s := NewSender("http://localhost:1/bogus", "test_pipeline", quiet)
	s.retry.MaxAttempts = 1
	// Should not panic, just log the error
	s.Send(context.Background(), "this will fail gracefully")
}

func TestDefaultPipelineName(t *testing.T) {
	s := NewSender("", "", quiet)
	if s.pipelineName != "finance_etl_pipeline" {
		t.Fatalf("expected default pipeline name, got %s", s.pipelineName)
	}
}

func TestNotifyRun_Degraded(t *testing.T) {
	g := dag.New("finance").
		Add("extract_articles", func(context.Context, dag.Inputs) (any, error) {
			return nil, errors.New("HTTP 503")
		}).
		Add("process_scraped_articles", func(context.Context, dag.Inputs) (any, error) { return nil, nil }).
		Add("process_sp500_index_data", func(context.Context, dag.Inputs) (any, error) { return nil, nil })
	g.Chain("extract_articles", "process_scraped_articles")
	run, err := (&dag.Runner{Logger: quiet}).Run(context.Background(), g)
	if err != nil {
		t.Fatal(err)
	}

	var received map[string]string
	srv := capture(t, &received)
	NewSender(srv.URL+"/discord", "finance", quiet).NotifyRun(context.Background(), run, nil)

	msg := received["content"]
	for _, want := range []string{
		"DEGRADED",
		"1 succeeded, 1 failed, 1 upstream_failed",
		"extract_articles failed after 1 attempt(s): HTTP 503",
		"process_scraped_articles skipped (upstream failed)",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
}

func TestNotifyRun_Success(t *testing.T) {
	g := dag.New("finance").Add("only", func(context.Context, dag.Inputs) (any, error) { return nil, nil })
	run, err := (&dag.Runner{Logger: quiet}).Run(context.Background(), g)
	if err != nil {
		t.Fatal(err)
	}

	var received map[string]string
	srv := capture(t, &received)
	NewSender(srv.URL+"/discord", "finance", quiet).NotifyRun(context.Background(), run, nil)

	if !strings.HasPrefix(received["content"], "[finance] OK finance run ") {
		t.Fatalf("unexpected content %q", received["content"])
	}
}

func TestNotifyRun_StartError(t *testing.T) {
	var received map[string]string
	srv := capture(t, &received)
	NewSender(srv.URL+"/discord", "finance", quiet).NotifyRun(context.Background(), nil, errors.New("dag: cycle detected"))

	if !strings.Contains(received["content"], "could not start: dag: cycle detected") {
		t.Fatalf("unexpected content %q", received["content"])
	}
}
