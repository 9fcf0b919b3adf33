// Package simgateway is a stand-in brokerage gateway for local testing: a
// FIX acceptor that acknowledges every NewOrderSingle with an
// ExecutionReport. A reject list and an ack delay knob let an operator
// exercise the relay's REJECTED and TIMED_OUT paths without a real broker.
package simgateway

import (
	"fmt"
	"strings"
	"time"

	"github.com/quickfixgo/quickfix"
)

type Config struct {
	// Port the acceptor listens on.
	Port int

	// RejectSymbols lists symbols whose orders are answered with a reject.
	RejectSymbols []string

	// AckDelay delays every execution report, for driving the relay into its
	// ack timeout.
	AckDelay time.Duration

	FIXLogPath string
}

func (c Config) rejected(symbol string) bool {
	for _, s := range c.RejectSymbols {
		if strings.EqualFold(s, symbol) {
			return true
		}
	}
	return false
}

type Server struct {
	cfg      Config
	app      *Application
	acceptor *quickfix.Acceptor
}

func NewServer(cfg Config) *Server {
	if cfg.FIXLogPath == "" {
		cfg.FIXLogPath = "log/simgateway"
	}
	return &Server{cfg: cfg}
}

func (s *Server) Start() error {
	settings, err := quickfix.ParseSettings(strings.NewReader(s.settingsText()))
	if err != nil {
		return fmt.Errorf("parse settings: %w", err)
	}

	s.app = newApplication(s.cfg)

	logFactory, err := quickfix.NewFileLogFactory(settings)
	if err != nil {
		return fmt.Errorf("fix log factory: %w", err)
	}
	acceptor, err := quickfix.NewAcceptor(s.app, quickfix.NewMemoryStoreFactory(), settings, logFactory)
	if err != nil {
		return fmt.Errorf("unable to create acceptor: %w", err)
	}

	if err := acceptor.Start(); err != nil {
		return fmt.Errorf("unable to start FIX acceptor: %w", err)
	}
	s.acceptor = acceptor
	return nil
}

func (s *Server) Stop() {
	if s.acceptor != nil {
		s.acceptor.Stop()
		s.acceptor = nil
	}
}

// settingsText pins the client id 1 initiator; a relay configured with a
// different client id needs its own session block here.
func (s *Server) settingsText() string {
	return fmt.Sprintf(`[DEFAULT]
SocketAcceptPort=%d
HeartBtInt=30
ResetOnLogon=Y
FileLogPath=%s

[SESSION]
BeginString=FIX.4.4
SenderCompID=GATEWAY
TargetCompID=TRADEHOOK1
StartTime=00:00:00
EndTime=00:00:00
`, s.cfg.Port, s.cfg.FIXLogPath)
}
