// Package webhookapi exposes the relay over HTTP: the TradingView-style
// webhook, the connection management endpoints, and the health/status
// projection of the gateway session.
package webhookapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/joripage/tradehook/pkg/logging"
	"github.com/joripage/tradehook/pkg/relay"
	"github.com/joripage/tradehook/pkg/relay/model"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Core is the slice of the relay the HTTP layer drives.
type Core interface {
	Submit(ctx context.Context, in *model.OrderInstruction) *model.OrderOutcome
	Connect(ctx context.Context) error
	Disconnect()
	Status() relay.SessionStatus
	Recent(n int) []relay.JournalEntry
}

type Config struct {
	Host string
	Port int

	// WebhookSecret, when non-empty, must match the "secret" field of every
	// inbound webhook payload.
	WebhookSecret string
}

type Server struct {
	cfg    Config
	core   Core
	log    *logging.Logger
	router *mux.Router
	http   *http.Server
}

func NewServer(cfg Config, core Core, log *logging.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		core:   core,
		log:    log,
		router: mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/webhook", s.handleWebhook).Methods("POST")
	s.router.HandleFunc("/connect", s.handleConnect).Methods("POST")
	s.router.HandleFunc("/disconnect", s.handleDisconnect).Methods("POST")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/status", s.handleStatus).Methods("GET")
	s.router.HandleFunc("/submissions", s.handleSubmissions).Methods("GET")
}

// Handler returns the full middleware-wrapped handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.requestID(s.router))
}

func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info(context.Background(), "http server starting", zap.String("addr", addr))
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithRequestID(r.Context(), uuid.New().String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, WebhookResponse{
			Success: false,
			Message: "invalid JSON body",
		})
		return
	}

	if !s.authorized(payload, r) {
		writeJSON(w, http.StatusUnauthorized, WebhookResponse{
			Success: false,
			Message: "invalid webhook secret",
		})
		return
	}

	in, err := relay.ParseAlert(payload)
	if err != nil {
		s.log.Warn(ctx, "webhook rejected", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, WebhookResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	s.log.Info(ctx, "webhook accepted",
		zap.String("symbol", in.Symbol),
		zap.String("action", string(in.Side)),
		zap.String("quantity", in.Quantity.String()),
		zap.String("order_type", string(in.Kind)))

	out := s.core.Submit(ctx, in)

	resp := WebhookResponse{
		Success:   out.Status == model.OutcomeSubmitted,
		OrderID:   out.OrderID,
		Symbol:    in.Symbol,
		Action:    string(in.Side),
		Quantity:  in.Quantity.String(),
		OrderType: string(in.Kind),
		Status:    string(out.Status),
		Message:   out.Message,
	}
	writeJSON(w, outcomeHTTPStatus(out.Status), resp)
}

// outcomeHTTPStatus keeps the four failure categories distinguishable at the
// HTTP layer: bad input never gets here (400 earlier), broker unreachable is
// a bad gateway, a broker business reject is unprocessable, and an
// indeterminate outcome is a gateway timeout.
func outcomeHTTPStatus(st model.OutcomeStatus) int {
	switch st {
	case model.OutcomeSubmitted:
		return http.StatusOK
	case model.OutcomeRejected:
		return http.StatusUnprocessableEntity
	case model.OutcomeTimedOut:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) authorized(payload map[string]interface{}, r *http.Request) bool {
	if s.cfg.WebhookSecret == "" {
		return true
	}
	got, _ := payload["secret"].(string)
	if got == "" {
		got = r.Header.Get("X-Webhook-Secret")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.WebhookSecret)) == 1
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if err := s.core.Connect(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, MessageResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}
	st := s.core.Status()
	writeJSON(w, http.StatusOK, MessageResponse{
		Success: true,
		Message: fmt.Sprintf("connected to gateway at %s:%d", st.Endpoint.Host, st.Endpoint.Port),
	})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.core.Disconnect()
	writeJSON(w, http.StatusOK, MessageResponse{
		Success: true,
		Message: "disconnected from gateway",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.core.Status()
	health := "healthy"
	if st.State == relay.StateFailed {
		health = "unhealthy"
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      health,
		IBConnected: st.Connected,
		Timestamp:   time.Now().UTC(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.core.Status()
	writeJSON(w, http.StatusOK, StatusResponse{
		Connected: st.Connected,
		Host:      st.Endpoint.Host,
		Port:      st.Endpoint.Port,
		ClientID:  st.Endpoint.ClientID,
		State:     string(st.State),
		LastError: st.LastError,
	})
}

func (s *Server) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries := s.core.Recent(limit)
	out := make([]SubmissionEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, SubmissionEntry{
			Time:     e.Time,
			ClOrdID:  e.ClOrdID,
			Symbol:   e.Symbol,
			Action:   string(e.Side),
			Quantity: e.Quantity.String(),
			Kind:     string(e.Kind),
			Status:   string(e.Status),
			OrderID:  e.OrderID,
			Message:  e.Message,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
