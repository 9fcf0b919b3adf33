package relay

import (
	"context"
	"time"

	"github.com/joripage/tradehook/pkg/relay/model"
	"github.com/shopspring/decimal"
)

// Endpoint identifies the gateway process a session connects to. It is fixed
// for the lifetime of the relay process.
type Endpoint struct {
	Host     string
	Port     int
	ClientID int
}

// GatewayOrder is the gateway-specific order object built from a validated
// instruction. Only the price field matching Kind is set.
type GatewayOrder struct {
	ClOrdID      string
	Symbol       string
	Exchange     string
	Side         model.OrderSide
	Kind         model.OrderKind
	Quantity     decimal.Decimal
	LimitPrice   decimal.Decimal
	StopPrice    decimal.Decimal
	TransactTime time.Time
}

type AckStatus string

const (
	AckAccepted AckStatus = "ACCEPTED"
	AckRejected AckStatus = "REJECTED"
)

// Ack is one acknowledgment received from the gateway for a placed order,
// correlated by ClOrdID.
type Ack struct {
	ClOrdID string
	OrderID string
	Status  AckStatus
	Text    string
}

// Gateway is the stateful session object the relay drives. Implementations
// own the wire protocol; the relay owns lifecycle and correlation policy.
type Gateway interface {
	// Connect establishes the session. It returns one of the ConnectError
	// sentinels (ErrGatewayUnreachable, ErrGatewayRefused, ErrConnectTimeout)
	// wrapped with detail, and never retries on its own.
	Connect(ctx context.Context, ep Endpoint, timeout time.Duration) error

	// Disconnect tears the session down. Idempotent.
	Disconnect()

	// IsConnected reports whether the session is currently logged on.
	IsConnected() bool

	// PlaceOrder submits the order once and returns the acknowledgment
	// channel for its ClOrdID. The caller must Release the ClOrdID when it
	// stops waiting.
	PlaceOrder(ord *GatewayOrder) (<-chan Ack, error)

	// Release drops the acknowledgment correlation for a ClOrdID.
	Release(clOrdID string)
}

// SessionHandle is the narrow view of an active session lent to the
// submission pipeline for the duration of one submit call.
type SessionHandle interface {
	PlaceOrder(ord *GatewayOrder) (<-chan Ack, error)
	Release(clOrdID string)
}
