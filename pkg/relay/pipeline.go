package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joripage/tradehook/pkg/logging"
	"github.com/joripage/tradehook/pkg/relay/model"
	"go.uber.org/zap"
)

type PipelineConfig struct {
	// AckTimeout bounds the wait for the gateway's first acknowledgment.
	AckTimeout time.Duration
}

// Pipeline turns a validated instruction into exactly one order placement
// against the active session and resolves it to a terminal outcome. It never
// retries a placement; a caller wanting a retry must issue a fresh request,
// which gets its own client order reference.
type Pipeline struct {
	sessions *SessionManager
	cfg      PipelineConfig
	journal  *Journal
	log      *logging.Logger
}

func NewPipeline(sessions *SessionManager, cfg PipelineConfig, journal *Journal, log *logging.Logger) *Pipeline {
	return &Pipeline{
		sessions: sessions,
		cfg:      cfg,
		journal:  journal,
		log:      log,
	}
}

// Submit runs one submission attempt for the instruction. The returned
// outcome is always definitive or explicitly indeterminate (TIMED_OUT);
// errors never escape this boundary.
func (p *Pipeline) Submit(ctx context.Context, in *model.OrderInstruction) *model.OrderOutcome {
	handle, err := p.sessions.EnsureConnected(ctx)
	if err != nil {
		return p.finish(ctx, in, "", &model.OrderOutcome{
			Status:  model.OutcomeFailed,
			Message: fmt.Sprintf("gateway connection failed: %v", err),
		})
	}

	ord := buildGatewayOrder(in)

	acks, err := handle.PlaceOrder(ord)
	if err != nil {
		return p.finish(ctx, in, ord.ClOrdID, &model.OrderOutcome{
			Status:  model.OutcomeFailed,
			Message: fmt.Sprintf("order placement failed: %v", err),
		})
	}
	defer handle.Release(ord.ClOrdID)

	timer := time.NewTimer(p.cfg.AckTimeout)
	defer timer.Stop()

	select {
	case ack := <-acks:
		if ack.Status == AckRejected {
			return p.finish(ctx, in, ord.ClOrdID, &model.OrderOutcome{
				Status:  model.OutcomeRejected,
				Message: ack.Text,
			})
		}
		return p.finish(ctx, in, ord.ClOrdID, &model.OrderOutcome{
			OrderID: ack.OrderID,
			Status:  model.OutcomeSubmitted,
			Message: fmt.Sprintf("order %s submitted", ack.OrderID),
		})

	case <-timer.C:
		return p.finish(ctx, in, ord.ClOrdID, &model.OrderOutcome{
			Status: model.OutcomeTimedOut,
			Message: fmt.Sprintf("no acknowledgment within %s; order may still be live at the gateway",
				p.cfg.AckTimeout),
		})

	case <-ctx.Done():
		// Abandon the wait only. The order is NOT cancelled at the broker.
		return p.finish(ctx, in, ord.ClOrdID, &model.OrderOutcome{
			Status:  model.OutcomeTimedOut,
			Message: fmt.Sprintf("wait abandoned (%v); order may still be live at the gateway", ctx.Err()),
		})
	}
}

// finish journals the outcome and emits the reconciliation log line. A
// TIMED_OUT outcome carries enough context to reconcile manually against the
// brokerage's own order log.
func (p *Pipeline) finish(ctx context.Context, in *model.OrderInstruction, clOrdID string, out *model.OrderOutcome) *model.OrderOutcome {
	p.journal.Record(JournalEntry{
		Time:     time.Now().UTC(),
		ClOrdID:  clOrdID,
		Symbol:   in.Symbol,
		Side:     in.Side,
		Kind:     in.Kind,
		Quantity: in.Quantity,
		Status:   out.Status,
		OrderID:  out.OrderID,
		Message:  out.Message,
	})

	fields := []zap.Field{
		zap.String("cl_ord_id", clOrdID),
		zap.String("symbol", in.Symbol),
		zap.String("side", string(in.Side)),
		zap.String("quantity", in.Quantity.String()),
		zap.String("status", string(out.Status)),
		zap.String("message", out.Message),
	}
	switch out.Status {
	case model.OutcomeSubmitted:
		p.log.Info(ctx, "order submitted", append(fields, zap.String("order_id", out.OrderID))...)
	case model.OutcomeTimedOut:
		p.log.Warn(ctx, "order outcome indeterminate", fields...)
	default:
		p.log.Warn(ctx, "order not submitted", fields...)
	}
	return out
}

// buildGatewayOrder maps the instruction to the gateway order object. Kind
// decides which price travels: MARKET none, LIMIT the limit price, STOP the
// stop price.
func buildGatewayOrder(in *model.OrderInstruction) *GatewayOrder {
	ord := &GatewayOrder{
		ClOrdID:      uuid.New().String(),
		Symbol:       in.Symbol,
		Exchange:     in.Exchange,
		Side:         in.Side,
		Kind:         in.Kind,
		Quantity:     in.Quantity,
		TransactTime: time.Now().UTC(),
	}
	switch in.Kind {
	case model.OrderKindLimit:
		ord.LimitPrice = in.LimitPrice
	case model.OrderKindStop:
		ord.StopPrice = in.StopPrice
	}
	return ord
}
