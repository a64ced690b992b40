// Package httpapi exposes the dashboard snapshot and the automation relay over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"market_dashboard/internal/dashboard"
	"market_dashboard/internal/market"
	"market_dashboard/internal/relay"

	"github.com/rs/zerolog/log"
)

// completionNotice is shown next to the trigger dropdown.
const completionNotice = "Data updates take 2-3 minutes to complete"

const webhookProxyPath = "/api/webhook-proxy"

// Dashboard is the snapshot store the API reads from. *dashboard.Service implements it.
type Dashboard interface {
	Current() *market.Snapshot
	LastError() *dashboard.FetchError
	Refresh(ctx context.Context) (*market.Snapshot, error)
}

// Relay forwards update signals. *relay.Relay implements it.
type Relay interface {
	Trigger(ctx context.Context, id string) (relay.Ack, error)
	Definitions() []relay.Definition
}

// Notifier reports trigger outcomes. *notifications.Client implements it.
type Notifier interface {
	NotifyTrigger(ctx context.Context, label string, err error)
}

type Server struct {
	dashboard Dashboard
	relay     Relay
	notifier  Notifier
}

// NewServer wires the handlers. notifier may be nil.
func NewServer(d Dashboard, r Relay, notifier Notifier) *Server {
	return &Server{dashboard: d, relay: r, notifier: notifier}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc(webhookProxyPath, s.handleWebhookProxy)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("POST /api/dashboard/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/triggers", s.handleTriggers)
	mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods := "GET, POST, OPTIONS"
		if r.URL.Path == webhookProxyPath {
			methods = "POST, OPTIONS"
		}
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type webhookRequest struct {
	WebhookType string `json:"webhookType"`
}

type webhookFailure struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

func (s *Server) handleWebhookProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Debug().Err(err).Msg("Malformed webhook proxy body")
		writeError(w, http.StatusBadRequest, "Invalid webhook type")
		return
	}

	_, err := s.relay.Trigger(r.Context(), req.WebhookType)

	var relayErr *relay.Error
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Webhook triggered successfully",
		})
	case errors.Is(err, relay.ErrConfigMissing):
		writeError(w, http.StatusBadRequest, "Invalid webhook type")
		return
	case errors.Is(err, relay.ErrRemoteRejected) && errors.As(err, &relayErr):
		writeJSON(w, http.StatusInternalServerError, webhookFailure{Error: "Webhook failed", Status: relayErr.StatusCode})
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}

	s.notify(r.Context(), req.WebhookType, err)
}

func (s *Server) notify(ctx context.Context, id string, err error) {
	if s.notifier == nil {
		return
	}
	label := id
	for _, def := range s.relay.Definitions() {
		if def.ID == id && def.Label != "" {
			label = def.Label
			break
		}
	}
	s.notifier.NotifyTrigger(ctx, label, err)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snapshot := s.dashboard.Current()
	if snapshot == nil {
		msg := "Market data not loaded yet"
		if fetchErr := s.dashboard.LastError(); fetchErr != nil {
			msg = fetchErr.Error()
		}
		writeError(w, http.StatusServiceUnavailable, msg)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.dashboard.Refresh(r.Context())
	if err != nil {
		var fetchErr *dashboard.FetchError
		if errors.As(err, &fetchErr) {
			writeJSON(w, http.StatusBadGateway, map[string]string{
				"error": "Failed to fetch market data",
				"sheet": fetchErr.Sheet,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

type triggerInfo struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Configured bool   `json:"configured"`
}

func (s *Server) handleTriggers(w http.ResponseWriter, r *http.Request) {
	defs := s.relay.Definitions()
	triggers := make([]triggerInfo, 0, len(defs))
	for _, def := range defs {
		triggers = append(triggers, triggerInfo{ID: def.ID, Label: def.Label, Configured: def.Configured()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"triggers": triggers,
		"notice":   completionNotice,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
