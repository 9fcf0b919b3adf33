package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/joripage/tradehook/pkg/logging"
	"go.uber.org/zap"
)

type SessionState string

const (
	StateDisconnected SessionState = "DISCONNECTED"
	StateConnecting   SessionState = "CONNECTING"
	StateConnected    SessionState = "CONNECTED"
	StateFailed       SessionState = "FAILED"
)

// SessionStatus is a point-in-time snapshot of the session for status and
// health reporting.
type SessionStatus struct {
	State     SessionState
	Connected bool
	Endpoint  Endpoint
	LastError string
}

type SessionConfig struct {
	Endpoint       Endpoint
	ConnectTimeout time.Duration
}

// connectAttempt is one in-flight handshake. Waiters block on done and then
// adopt err as the attempt's outcome, so N concurrent EnsureConnected calls
// drive exactly one handshake.
type connectAttempt struct {
	done chan struct{}
	err  error
}

// SessionManager owns the single logical gateway session for the process.
// All state transitions are serialized through mu; at most one connect
// attempt is in flight at any time, which keeps the gateway from ever seeing
// two logons with the same client id.
type SessionManager struct {
	gw  Gateway
	cfg SessionConfig
	log *logging.Logger

	mu      sync.Mutex
	state   SessionState
	lastErr error
	attempt *connectAttempt
}

func NewSessionManager(gw Gateway, cfg SessionConfig, log *logging.Logger) *SessionManager {
	return &SessionManager{
		gw:    gw,
		cfg:   cfg,
		log:   log,
		state: StateDisconnected,
	}
}

// Connect performs one explicit connect attempt. No-op success if already
// connected. It never retries; retry policy belongs to the caller.
func (m *SessionManager) Connect(ctx context.Context) error {
	_, err := m.EnsureConnected(ctx)
	return err
}

// Disconnect tears the session down. Always succeeds and is idempotent. If a
// connect attempt is in flight it waits for that attempt to settle first so
// the state machine never observes overlapping transitions.
func (m *SessionManager) Disconnect() {
	for {
		m.mu.Lock()
		if att := m.attempt; att != nil {
			m.mu.Unlock()
			<-att.done
			continue
		}
		if m.state != StateDisconnected {
			m.gw.Disconnect()
			m.state = StateDisconnected
			m.lastErr = nil
			m.log.Info(context.Background(), "gateway session disconnected")
		}
		m.mu.Unlock()
		return
	}
}

// EnsureConnected returns a handle to the active session, performing one
// connect attempt if the session is down. A caller arriving while another
// caller's attempt is in flight waits for that attempt's outcome instead of
// starting a second handshake.
func (m *SessionManager) EnsureConnected(ctx context.Context) (SessionHandle, error) {
	for {
		m.mu.Lock()
		switch {
		case m.state == StateConnected && m.gw.IsConnected():
			m.mu.Unlock()
			return m.gw, nil

		case m.attempt != nil:
			att := m.attempt
			m.mu.Unlock()
			select {
			case <-att.done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			if att.err != nil {
				return nil, att.err
			}
			// Attempt succeeded; loop to pick up the handle (or notice a
			// racing disconnect).

		default:
			// Covers DISCONNECTED, FAILED, and a CONNECTED state whose
			// underlying transport dropped since the last call.
			att := &connectAttempt{done: make(chan struct{})}
			m.attempt = att
			m.state = StateConnecting
			m.mu.Unlock()

			err := m.gw.Connect(ctx, m.cfg.Endpoint, m.cfg.ConnectTimeout)

			if err != nil {
				err = fmt.Errorf("connect %s:%d: %w",
					m.cfg.Endpoint.Host, m.cfg.Endpoint.Port, err)
			}

			m.mu.Lock()
			if err != nil {
				m.state = StateFailed
				m.lastErr = err
				m.log.Error(context.Background(), "gateway connect failed",
					zap.String("host", m.cfg.Endpoint.Host),
					zap.Int("port", m.cfg.Endpoint.Port),
					zap.Error(err))
			} else {
				m.state = StateConnected
				m.lastErr = nil
				m.log.Info(context.Background(), "gateway session connected",
					zap.String("host", m.cfg.Endpoint.Host),
					zap.Int("port", m.cfg.Endpoint.Port),
					zap.Int("client_id", m.cfg.Endpoint.ClientID))
			}
			att.err = err
			m.attempt = nil
			m.mu.Unlock()
			close(att.done)

			if err != nil {
				return nil, err
			}
			return m.gw, nil
		}
	}
}

// Status returns a snapshot of the session. Safe to call from any goroutine;
// it never blocks on a connect attempt.
func (m *SessionManager) Status() SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := SessionStatus{
		State:     m.state,
		Connected: m.state == StateConnected && m.gw.IsConnected(),
		Endpoint:  m.cfg.Endpoint,
	}
	if m.lastErr != nil {
		st.LastError = m.lastErr.Error()
	}
	return st
}
