package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/groupbuy/internal/metrics"
)

const echoProcedure = "/test.v1.EchoService/Echo"

type echoMessage struct {
	Text string `json:"text"`
}

type testCodec struct{}

func (testCodec) Name() string { return "json" }

func (testCodec) Marshal(msg any) ([]byte, error) { return json.Marshal(msg) }

func (testCodec) Unmarshal(data []byte, msg any) error { return json.Unmarshal(data, msg) }

// echo fails with the code named by the request text, or echoes it back.
func echo(_ context.Context, req *connect.Request[echoMessage]) (*connect.Response[echoMessage], error) {
	switch req.Msg.Text {
	case "internal":
		return nil, connect.NewError(connect.CodeInternal, errors.New("ledger unavailable"))
	case "precondition":
		return nil, connect.NewError(connect.CodeFailedPrecondition, errors.New("group is already full"))
	}
	return connect.NewResponse(&echoMessage{Text: req.Msg.Text}), nil
}

func setupEchoServer(t *testing.T, interceptors ...connect.Interceptor) *connect.Client[echoMessage, echoMessage] {
	t.Helper()

	mux := http.NewServeMux()
	mux.Handle(echoProcedure, connect.NewUnaryHandler(echoProcedure, echo,
		connect.WithCodec(testCodec{}),
		connect.WithInterceptors(interceptors...),
	))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return connect.NewClient[echoMessage, echoMessage](http.DefaultClient, server.URL+echoProcedure, connect.WithCodec(testCodec{}))
}

// captureLogs routes the default logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

// rpcCount reads groupbuy_rpc_requests_total for one procedure and code.
func rpcCount(t *testing.T, reg *prometheus.Registry, procedure, code string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != "groupbuy_rpc_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["procedure"] == procedure && labels["code"] == code {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestMetricsInterceptor(t *testing.T) {
	reg := prometheus.NewRegistry()
	client := setupEchoServer(t, MetricsInterceptor(metrics.New(reg)))
	ctx := context.Background()

	for _, text := range []string{"hi", "hello", "precondition", "internal"} {
		_, _ = client.CallUnary(ctx, connect.NewRequest(&echoMessage{Text: text}))
	}

	tests := []struct {
		code string
		want float64
	}{
		{"ok", 2},
		{"failed_precondition", 1},
		{"internal", 1},
	}
	for _, tt := range tests {
		if got := rpcCount(t, reg, echoProcedure, tt.code); got != tt.want {
			t.Errorf("code %s: expected %v calls, got %v", tt.code, tt.want, got)
		}
	}
}

func TestLoggingInterceptorLevels(t *testing.T) {
	logs := captureLogs(t)
	client := setupEchoServer(t, LoggingInterceptor())
	ctx := context.Background()

	tests := []struct {
		text  string
		level string
		msg   string
	}{
		{"hi", "INFO", "RPC ok"},
		{"precondition", "WARN", "RPC error"},
		{"internal", "ERROR", "RPC error"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			logs.Reset()
			_, _ = client.CallUnary(ctx, connect.NewRequest(&echoMessage{Text: tt.text}))

			var entry map[string]any
			line := strings.TrimSpace(logs.String())
			if err := json.Unmarshal([]byte(line), &entry); err != nil {
				t.Fatalf("expected one JSON log line, got %q: %v", line, err)
			}
			if entry["level"] != tt.level {
				t.Errorf("expected level %s, got %v", tt.level, entry["level"])
			}
			if entry["msg"] != tt.msg {
				t.Errorf("expected msg %q, got %v", tt.msg, entry["msg"])
			}
			if entry["procedure"] != echoProcedure {
				t.Errorf("expected procedure %s, got %v", echoProcedure, entry["procedure"])
			}
		})
	}
}
