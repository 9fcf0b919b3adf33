// Package relay is the core of the webhook order relay: it validates inbound
// trade signals, owns the single gateway session, and submits each validated
// instruction exactly once, resolving it to a definitive outcome.
package relay

import (
	"context"
	"time"

	"github.com/joripage/tradehook/pkg/logging"
	"github.com/joripage/tradehook/pkg/relay/model"
)

type Config struct {
	Endpoint       Endpoint
	ConnectTimeout time.Duration
	AckTimeout     time.Duration
	JournalSize    int
}

// Service wires the session manager, submission pipeline, and journal into
// the facade the transport layer talks to.
type Service struct {
	sessions *SessionManager
	pipeline *Pipeline
	journal  *Journal
}

func NewService(gw Gateway, cfg Config, log *logging.Logger) *Service {
	journal := NewJournal(cfg.JournalSize)
	sessions := NewSessionManager(gw, SessionConfig{
		Endpoint:       cfg.Endpoint,
		ConnectTimeout: cfg.ConnectTimeout,
	}, log)
	pipeline := NewPipeline(sessions, PipelineConfig{
		AckTimeout: cfg.AckTimeout,
	}, journal, log)

	return &Service{
		sessions: sessions,
		pipeline: pipeline,
		journal:  journal,
	}
}

// Submit validates nothing: it expects an already-validated instruction from
// ParseAlert and performs exactly one submission attempt.
func (s *Service) Submit(ctx context.Context, in *model.OrderInstruction) *model.OrderOutcome {
	return s.pipeline.Submit(ctx, in)
}

func (s *Service) Connect(ctx context.Context) error {
	return s.sessions.Connect(ctx)
}

func (s *Service) Disconnect() {
	s.sessions.Disconnect()
}

func (s *Service) Status() SessionStatus {
	return s.sessions.Status()
}

// Recent returns the latest submission journal entries, newest first.
func (s *Service) Recent(n int) []JournalEntry {
	return s.journal.Recent(n)
}
