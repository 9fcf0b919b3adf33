// Package fixgateway implements the relay.Gateway capability as a QuickFIX
// initiator: one logical session to the brokerage gateway, orders out as
// fix44 NewOrderSingle, acknowledgments back as ExecutionReport correlated
// by ClOrdID.
package fixgateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joripage/tradehook/pkg/logging"
	"github.com/joripage/tradehook/pkg/relay"
	"github.com/quickfixgo/fix44/executionreport"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/tag"
	"go.uber.org/zap"
)

// Compile-time interface check.
var _ relay.Gateway = (*Client)(nil)

type Client struct {
	cfg ClientConfig
	log *logging.Logger
	app *application

	mu        sync.Mutex
	initiator *quickfix.Initiator
}

type ClientConfig struct {
	// FIXLogPath is where quickfix writes its session logs.
	FIXLogPath string
}

func NewClient(cfg ClientConfig, log *logging.Logger) *Client {
	c := &Client{
		cfg: cfg,
		log: log,
	}
	c.app = newApplication(log)
	return c
}

// Connect dials the gateway, starts the FIX session, and waits for logon.
// Failures are classified into the relay's ConnectError sentinels. One call,
// one attempt: reconnect policy stays with the caller.
func (c *Client) Connect(ctx context.Context, ep relay.Endpoint, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initiator != nil && c.app.loggedOn.Load() {
		return nil
	}
	if c.initiator != nil {
		c.initiator.Stop()
		c.initiator = nil
	}

	// A plain dial first: quickfix surfaces transport failures asynchronously,
	// and the caller needs unreachable/refused/timeout told apart.
	addr := fmt.Sprintf("%s:%d", ep.Host, ep.Port)
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return classifyDialError(err)
	}
	_ = conn.Close()

	settings, err := buildSettings(ep, c.cfg.FIXLogPath)
	if err != nil {
		return fmt.Errorf("%w: invalid session settings: %v", relay.ErrGatewayUnreachable, err)
	}

	logonCh := c.app.resetLogon()

	logFactory, err := quickfix.NewFileLogFactory(settings)
	if err != nil {
		return fmt.Errorf("%w: fix log factory: %v", relay.ErrGatewayUnreachable, err)
	}
	initiator, err := quickfix.NewInitiator(c.app, quickfix.NewMemoryStoreFactory(), settings, logFactory)
	if err != nil {
		return fmt.Errorf("%w: create initiator: %v", relay.ErrGatewayUnreachable, err)
	}
	if err := initiator.Start(); err != nil {
		return fmt.Errorf("%w: start initiator: %v", relay.ErrGatewayUnreachable, err)
	}

	select {
	case <-logonCh:
		c.initiator = initiator
		return nil
	case <-time.After(timeout):
		initiator.Stop()
		return fmt.Errorf("%w: no logon within %s", relay.ErrConnectTimeout, timeout)
	case <-ctx.Done():
		initiator.Stop()
		return ctx.Err()
	}
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initiator != nil {
		c.initiator.Stop()
		c.initiator = nil
	}
	c.app.loggedOn.Store(false)
}

func (c *Client) IsConnected() bool {
	return c.app.loggedOn.Load()
}

// PlaceOrder sends exactly one NewOrderSingle and registers the ClOrdID for
// acknowledgment correlation. The returned channel receives the first
// execution report for the order.
func (c *Client) PlaceOrder(ord *relay.GatewayOrder) (<-chan relay.Ack, error) {
	if !c.app.loggedOn.Load() {
		return nil, relay.ErrNotConnected
	}
	sessionID, ok := c.app.session()
	if !ok {
		return nil, relay.ErrNotConnected
	}

	ch := make(chan relay.Ack, 1)
	c.app.acks.Store(ord.ClOrdID, ch)

	msg := buildNewOrderSingle(ord)
	msg.SetSenderCompID(sessionID.SenderCompID)
	msg.SetTargetCompID(sessionID.TargetCompID)

	if err := quickfix.SendToTarget(msg, sessionID); err != nil {
		c.app.acks.Delete(ord.ClOrdID)
		return nil, fmt.Errorf("send order: %w", err)
	}
	return ch, nil
}

func (c *Client) Release(clOrdID string) {
	c.app.acks.Delete(clOrdID)
}

func classifyDialError(err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%w: %v", relay.ErrConnectTimeout, err)
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("%w: %v", relay.ErrGatewayRefused, err)
	}
	return fmt.Errorf("%w: %v", relay.ErrGatewayUnreachable, err)
}

// application implements the quickfix.Application interface
type application struct {
	*quickfix.MessageRouter
	log *logging.Logger

	loggedOn atomic.Bool
	acks     sync.Map // ClOrdID -> chan relay.Ack

	mu        sync.Mutex
	sessionID quickfix.SessionID
	hasSess   bool
	logonCh   chan struct{}
}

func newApplication(log *logging.Logger) *application {
	app := &application{
		MessageRouter: quickfix.NewMessageRouter(),
		log:           log,
		logonCh:       make(chan struct{}, 1),
	}
	app.AddRoute(executionreport.Route(app.onExecutionReport))
	return app
}

// resetLogon arms a fresh logon notification for the next connect attempt.
func (a *application) resetLogon() chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logonCh = make(chan struct{}, 1)
	return a.logonCh
}

func (a *application) session() (quickfix.SessionID, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionID, a.hasSess
}

// OnCreate implemented as part of Application interface
func (a *application) OnCreate(sessionID quickfix.SessionID) {
	a.mu.Lock()
	a.sessionID = sessionID
	a.hasSess = true
	a.mu.Unlock()
}

// OnLogon implemented as part of Application interface
func (a *application) OnLogon(sessionID quickfix.SessionID) {
	a.loggedOn.Store(true)
	a.mu.Lock()
	ch := a.logonCh
	a.mu.Unlock()
	select {
	case ch <- struct{}{}:
	default:
	}
	a.log.Info(context.Background(), "fix logon", zap.String("session", sessionID.String()))
}

// OnLogout implemented as part of Application interface
func (a *application) OnLogout(sessionID quickfix.SessionID) {
	a.loggedOn.Store(false)
	a.log.Warn(context.Background(), "fix logout", zap.String("session", sessionID.String()))
}

// ToAdmin implemented as part of Application interface
func (a *application) ToAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) {}

// ToApp implemented as part of Application interface
func (a *application) ToApp(msg *quickfix.Message, sessionID quickfix.SessionID) error {
	if clOrdID, err := msg.Body.GetString(tag.ClOrdID); err == nil {
		a.log.Debug(context.Background(), "fix outbound order", zap.String("cl_ord_id", clOrdID))
	}
	return nil
}

// FromAdmin implemented as part of Application interface
func (a *application) FromAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}

// FromApp implemented as part of Application interface, uses Router on incoming application messages
func (a *application) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return a.Route(msg, sessionID)
}

func (a *application) onExecutionReport(msg executionreport.ExecutionReport, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	ack := ackFromExecutionReport(msg)
	if ack.ClOrdID == "" {
		return nil
	}

	v, ok := a.acks.Load(ack.ClOrdID)
	if !ok {
		// Late report after the submitter stopped waiting. Log it: this is
		// the reconciliation trail for TIMED_OUT orders.
		a.log.Warn(context.Background(), "uncorrelated execution report",
			zap.String("cl_ord_id", ack.ClOrdID),
			zap.String("order_id", ack.OrderID),
			zap.String("status", string(ack.Status)),
			zap.String("text", ack.Text))
		return nil
	}

	// Buffered channel, one waiter per ClOrdID: the first report wins and
	// later ones fall through to default.
	select {
	case v.(chan relay.Ack) <- ack:
	default:
	}
	return nil
}
