package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cloudpico-telemetry/internal/publisher"
)

type staticProvider publisher.Snapshot

func (s staticProvider) Snapshot() publisher.Snapshot { return publisher.Snapshot(s) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, providers ...StatusProvider) *httptest.Server {
	t.Helper()

	srv := NewServer(":0", testLogger(), providers...)
	ts := httptest.NewServer(srv.Handler)

	t.Cleanup(ts.Close)
	return ts
}

func mustGetJSON[T any](t *testing.T, client *http.Client, url string, out *T) *http.Response {
	t.Helper()

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	return resp
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	var body map[string]string
	resp := mustGetJSON(t, ts.Client(), ts.URL+"/healthz", &body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusOK)
	}
	if body["status"] != "ok" {
		t.Fatalf("body.status=%q want=%q", body["status"], "ok")
	}
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t,
		staticProvider{Name: "heart-rate", State: "connected", Interval: time.Second, Stats: publisher.Stats{Ticks: 3, Delivered: 3}},
		staticProvider{Name: "env", State: "advertising", Interval: 10 * time.Second, Stats: publisher.Stats{Ticks: 1, SendFailures: 1, LastError: "link down"}},
	)

	var got []publisher.Snapshot
	resp := mustGetJSON(t, ts.Client(), ts.URL+"/status", &got)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusOK)
	}
	if len(got) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(got))
	}
	if got[0].Name != "heart-rate" || got[0].Stats.Delivered != 3 {
		t.Errorf("snapshot[0] = %+v", got[0])
	}
	if got[1].Interval != 10*time.Second || got[1].Stats.LastError != "link down" {
		t.Errorf("snapshot[1] = %+v", got[1])
	}
}

func TestStatus_ByName(t *testing.T) {
	ts := newTestServer(t, staticProvider{Name: "env", State: "idle"})

	t.Run("known", func(t *testing.T) {
		var got publisher.Snapshot
		resp := mustGetJSON(t, ts.Client(), ts.URL+"/status/env", &got)
		if resp.StatusCode != http.StatusOK || got.State != "idle" {
			t.Fatalf("status=%d body=%+v", resp.StatusCode, got)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		var body map[string]any
		resp := mustGetJSON(t, ts.Client(), ts.URL+"/status/nope", &body)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusNotFound)
		}
		if _, ok := body["message"]; !ok {
			t.Fatalf("expected message field, got %v", body)
		}
	})
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t, staticProvider{Name: "env", State: "connected", Stats: publisher.Stats{Delivered: 7}})

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusOK)
	}
	if want := `cloudpico_publisher_delivered_total{publisher="env"} 7`; !strings.Contains(string(body), want) {
		t.Fatalf("metrics missing %q", want)
	}
}

func TestRouting(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{name: "unknown route", method: http.MethodGet, path: "/does-not-exist", want: http.StatusNotFound},
		{name: "wrong method", method: http.MethodPost, path: "/healthz", want: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, nil)
			if err != nil {
				t.Fatalf("new request: %v", err)
			}
			resp, err := ts.Client().Do(req)
			if err != nil {
				t.Fatalf("do: %v", err)
			}
			_ = resp.Body.Close()

			if resp.StatusCode != tt.want {
				t.Fatalf("status=%d want=%d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusBadRequest, "invalid input")

	if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q; want application/json; charset=utf-8", got)
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("Code = %d; want %d", w.Code, http.StatusBadRequest)
	}

	var got map[string]any
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if got["error"] != http.StatusText(http.StatusBadRequest) || got["message"] != "invalid input" {
		t.Errorf("body = %v", got)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	srv := NewServer(addr, testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Serve(ctx, srv, testLogger()) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server not reachable: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}
