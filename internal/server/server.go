// Package server exposes the conversation agent over WebSocket plus a few
// JSON endpoints: the API knowledge listing, a health probe, and the
// Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trymeuj/aiva/internal/catalog"
	"github.com/trymeuj/aiva/internal/orchestrator"
	"github.com/trymeuj/aiva/pkg/wire"
)

const welcomeText = "Hello! How can I help you today?"

type Server struct {
	agent   *orchestrator.Agent
	catalog *catalog.Catalog
	http    *http.Server
}

func New(listen string, agent *orchestrator.Agent, cat *catalog.Catalog) *Server {
	s := &Server{agent: agent, catalog: cat}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/knowledge", s.handleKnowledge)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("/ws/{session}", s.handleWS)
	mux.HandleFunc("/ws", s.handleWS)

	s.http = &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) ListenAndServe() error { return s.http.ListenAndServe() }

// Handler exposes the route table, mainly for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

func (s *Server) Shutdown(ctx context.Context) error { return s.http.Shutdown(ctx) }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleKnowledge(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"apis":         s.catalog.Summaries(),
		"capabilities": s.catalog.Capabilities(),
	})
}

// handleWS runs one conversation session: a welcome message on connect,
// then one reply per received turn until the client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Browser clients connect from arbitrary dev origins.
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("session %s: websocket accept: %v", sessionID, err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "session ended")

	ctx := r.Context()

	welcome := &wire.Outbound{Text: welcomeText, State: string(orchestrator.StateIdle)}
	if err := wsjson.Write(ctx, conn, welcome); err != nil {
		log.Printf("session %s: writing welcome: %v", sessionID, err)
		return
	}

	for {
		text, err := readTurn(ctx, conn)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				log.Printf("session %s: read: %v", sessionID, err)
			}
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
		if text == "" {
			continue
		}

		out := s.agent.HandleTurn(ctx, sessionID, text)
		if err := wsjson.Write(ctx, conn, out); err != nil {
			log.Printf("session %s: write: %v", sessionID, err)
			return
		}
	}
}

// readTurn reads one frame and extracts the user text. JSON frames use the
// Inbound shape; anything else is taken verbatim as the text.
func readTurn(ctx context.Context, conn *websocket.Conn) (string, error) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return "", err
	}
	if len(data) > 0 && data[0] == '{' {
		var in wire.Inbound
		if json.Unmarshal(data, &in) == nil {
			return in.Text, nil
		}
	}
	return string(data), nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writing response: %v", err)
	}
}
