package webhookapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joripage/tradehook/pkg/logging"
	"github.com/joripage/tradehook/pkg/relay"
	"github.com/joripage/tradehook/pkg/relay/model"
)

type fakeCore struct {
	submitted  []*model.OrderInstruction
	outcome    *model.OrderOutcome
	connectErr error
	status     relay.SessionStatus
	entries    []relay.JournalEntry

	disconnects int
}

func (f *fakeCore) Submit(ctx context.Context, in *model.OrderInstruction) *model.OrderOutcome {
	f.submitted = append(f.submitted, in)
	if f.outcome != nil {
		return f.outcome
	}
	return &model.OrderOutcome{OrderID: "42", Status: model.OutcomeSubmitted}
}

func (f *fakeCore) Connect(ctx context.Context) error { return f.connectErr }
func (f *fakeCore) Disconnect()                       { f.disconnects++ }
func (f *fakeCore) Status() relay.SessionStatus       { return f.status }
func (f *fakeCore) Recent(n int) []relay.JournalEntry { return f.entries }

func newTestServer(t *testing.T, cfg Config, core *fakeCore) http.Handler {
	t.Helper()
	return NewServer(cfg, core, logging.NewLogger(logging.ERROR)).Handler()
}

func postJSON(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func marketAlert() map[string]interface{} {
	return map[string]interface{}{
		"action":    "buy",
		"symbol":    "AAPL",
		"quantity":  100,
		"orderType": "market",
	}
}

func TestWebhookSubmitted(t *testing.T) {
	core := &fakeCore{}
	h := newTestServer(t, Config{}, core)

	rec := postJSON(t, h, "/webhook", marketAlert())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp WebhookResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.OrderID != "42" || resp.Status != "SUBMITTED" {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Symbol != "AAPL" || resp.Action != "BUY" || resp.Quantity != "100" {
		t.Errorf("echoed order fields wrong: %+v", resp)
	}
	if len(core.submitted) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(core.submitted))
	}
}

func TestWebhookValidationFailureNeverReachesCore(t *testing.T) {
	core := &fakeCore{}
	h := newTestServer(t, Config{}, core)

	alert := marketAlert()
	delete(alert, "symbol")

	rec := postJSON(t, h, "/webhook", alert)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(core.submitted) != 0 {
		t.Error("invalid payload must not reach the relay")
	}
}

func TestWebhookMalformedJSON(t *testing.T) {
	h := newTestServer(t, Config{}, &fakeCore{})

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestWebhookSecret(t *testing.T) {
	core := &fakeCore{}
	h := newTestServer(t, Config{WebhookSecret: "s3cret"}, core)

	rec := postJSON(t, h, "/webhook", marketAlert())
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing secret: status = %d", rec.Code)
	}

	alert := marketAlert()
	alert["secret"] = "wrong"
	if rec := postJSON(t, h, "/webhook", alert); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: status = %d", rec.Code)
	}

	alert["secret"] = "s3cret"
	if rec := postJSON(t, h, "/webhook", alert); rec.Code != http.StatusOK {
		t.Fatalf("correct secret: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(core.submitted) != 1 {
		t.Errorf("expected 1 submission, got %d", len(core.submitted))
	}
}

func TestWebhookOutcomeStatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		outcome  *model.OrderOutcome
		wantCode int
	}{
		{"rejected", &model.OrderOutcome{Status: model.OutcomeRejected, Message: "margin exceeded"}, http.StatusUnprocessableEntity},
		{"timed out", &model.OrderOutcome{Status: model.OutcomeTimedOut, Message: "no acknowledgment"}, http.StatusGatewayTimeout},
		{"failed", &model.OrderOutcome{Status: model.OutcomeFailed, Message: "gateway connection failed"}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, Config{}, &fakeCore{outcome: tt.outcome})
			rec := postJSON(t, h, "/webhook", marketAlert())
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}

			var resp WebhookResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Success {
				t.Error("non-submitted outcome reported success")
			}
			if resp.Message != tt.outcome.Message {
				t.Errorf("message = %q, want %q", resp.Message, tt.outcome.Message)
			}
		})
	}
}

func TestConnectEndpoint(t *testing.T) {
	core := &fakeCore{status: relay.SessionStatus{
		State:     relay.StateConnected,
		Connected: true,
		Endpoint:  relay.Endpoint{Host: "127.0.0.1", Port: 7497, ClientID: 1},
	}}
	h := newTestServer(t, Config{}, core)

	rec := postJSON(t, h, "/connect", map[string]interface{}{})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	core.connectErr = errors.New("connect 127.0.0.1:7497: gateway refused")
	if rec := postJSON(t, h, "/connect", map[string]interface{}{}); rec.Code != http.StatusBadGateway {
		t.Fatalf("failed connect: status = %d", rec.Code)
	}
}

func TestDisconnectEndpoint(t *testing.T) {
	core := &fakeCore{}
	h := newTestServer(t, Config{}, core)

	rec := postJSON(t, h, "/disconnect", map[string]interface{}{})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if core.disconnects != 1 {
		t.Errorf("disconnects = %d", core.disconnects)
	}
}

func TestHealthEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		status     relay.SessionStatus
		wantHealth string
	}{
		{"disconnected is healthy", relay.SessionStatus{State: relay.StateDisconnected}, "healthy"},
		{"connected is healthy", relay.SessionStatus{State: relay.StateConnected, Connected: true}, "healthy"},
		{"failed is unhealthy", relay.SessionStatus{State: relay.StateFailed, LastError: "gateway refused"}, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, Config{}, &fakeCore{status: tt.status})

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}

			var resp HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.wantHealth {
				t.Errorf("health = %q, want %q", resp.Status, tt.wantHealth)
			}
			if resp.IBConnected != tt.status.Connected {
				t.Errorf("ib_connected = %v", resp.IBConnected)
			}
		})
	}
}

func TestStatusEndpoint(t *testing.T) {
	core := &fakeCore{status: relay.SessionStatus{
		State:     relay.StateFailed,
		Endpoint:  relay.Endpoint{Host: "gw.local", Port: 4002, ClientID: 7},
		LastError: "connect gw.local:4002: gateway unreachable",
	}}
	h := newTestServer(t, Config{}, core)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Connected || resp.Host != "gw.local" || resp.Port != 4002 || resp.ClientID != 7 {
		t.Errorf("unexpected status %+v", resp)
	}
	if resp.State != "FAILED" || resp.LastError == "" {
		t.Errorf("state = %q lastError = %q", resp.State, resp.LastError)
	}
}

func TestSubmissionsEndpoint(t *testing.T) {
	core := &fakeCore{entries: []relay.JournalEntry{{
		Time:     time.Now().UTC(),
		ClOrdID:  "C1",
		Symbol:   "AAPL",
		Side:     model.OrderSideBuy,
		Kind:     model.OrderKindMarket,
		Quantity: decimal.NewFromInt(100),
		Status:   model.OutcomeSubmitted,
		OrderID:  "42",
	}}}
	h := newTestServer(t, Config{}, core)

	req := httptest.NewRequest(http.MethodGet, "/submissions?limit=5", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp []SubmissionEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(resp))
	}
	if resp[0].Symbol != "AAPL" || resp[0].Quantity != "100" || resp[0].Status != "SUBMITTED" {
		t.Errorf("unexpected entry %+v", resp[0])
	}
}
