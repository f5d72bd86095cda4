package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/trymeuj/aiva/internal/catalog"
	"github.com/trymeuj/aiva/internal/executor"
	"github.com/trymeuj/aiva/internal/orchestrator"
	"github.com/trymeuj/aiva/internal/planner"
	"github.com/trymeuj/aiva/internal/provider"
	"github.com/trymeuj/aiva/internal/state"
	"github.com/trymeuj/aiva/pkg/wire"
)

type downLLM struct{}

func (downLLM) ID() string { return "down" }

func (downLLM) Generate(context.Context, string, provider.GenerateOptions) (string, error) {
	return "", errors.New("provider down")
}

// newTestServer builds a server whose model is unreachable, so every turn
// exercises the deterministic fallbacks.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cat, err := catalog.Embedded()
	if err != nil {
		t.Fatal(err)
	}
	gen := downLLM{}
	agent := orchestrator.New(orchestrator.Deps{
		Generator:     gen,
		Catalog:       cat,
		Planner:       planner.New(gen, cat, planner.ModeMulti),
		Executor:      executor.New(cat),
		History:       state.NewMemoryHistory(),
		HistoryWindow: 5,
	})
	srv := httptest.NewServer(New(":0", agent, cat).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("got %v", body)
	}
}

func TestKnowledgeEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/knowledge")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		APIs         []catalog.Summary   `json:"apis"`
		Capabilities map[string][]string `json:"capabilities"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.APIs) == 0 {
		t.Error("knowledge endpoint should list the catalog")
	}
	if len(body.Capabilities) == 0 {
		t.Error("knowledge endpoint should group capabilities by category")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status %d", resp.StatusCode)
	}
}

func TestWebSocketConversation(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/test-session"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	var welcome wire.Outbound
	if err := wsjson.Read(ctx, conn, &welcome); err != nil {
		t.Fatal(err)
	}
	if welcome.Text != "Hello! How can I help you today?" || welcome.State != "idle" {
		t.Fatalf("welcome: %+v", welcome)
	}

	if err := wsjson.Write(ctx, conn, wire.Inbound{Text: "rate my course as 5 stars"}); err != nil {
		t.Fatal(err)
	}
	var reply wire.Outbound
	if err := wsjson.Read(ctx, conn, &reply); err != nil {
		t.Fatal(err)
	}
	if reply.State != "gathering_parameters" {
		t.Errorf("want gathering_parameters, got %+v", reply)
	}
	if reply.Context != nil {
		t.Error("context must only appear while confirming")
	}
}

func TestWebSocketBareTextFrame(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/bare"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	var welcome wire.Outbound
	if err := wsjson.Read(ctx, conn, &welcome); err != nil {
		t.Fatal(err)
	}

	if err := conn.Write(ctx, websocket.MessageText, []byte("rate my course as 5 stars")); err != nil {
		t.Fatal(err)
	}
	var reply wire.Outbound
	if err := wsjson.Read(ctx, conn, &reply); err != nil {
		t.Fatal(err)
	}
	if reply.Text == "" || reply.State == "" {
		t.Errorf("bare text frame should be handled as a turn, got %+v", reply)
	}
}
