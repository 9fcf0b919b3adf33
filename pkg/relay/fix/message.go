package fixgateway

import (
	"github.com/joripage/tradehook/pkg/relay"
	"github.com/joripage/tradehook/pkg/relay/model"
	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	"github.com/quickfixgo/fix44/executionreport"
	"github.com/quickfixgo/fix44/newordersingle"
)

var (
	sideMapping = map[model.OrderSide]enum.Side{
		model.OrderSideBuy:  enum.Side_BUY,
		model.OrderSideSell: enum.Side_SELL,
	}

	ordTypeMapping = map[model.OrderKind]enum.OrdType{
		model.OrderKindMarket: enum.OrdType_MARKET,
		model.OrderKindLimit:  enum.OrdType_LIMIT,
		model.OrderKindStop:   enum.OrdType_STOP,
	}
)

const (
	priceScale = 2
	qtyScale   = 0
)

// buildNewOrderSingle maps a gateway order onto a fix44 NewOrderSingle. Only
// the price field matching the order kind travels on the wire.
func buildNewOrderSingle(ord *relay.GatewayOrder) newordersingle.NewOrderSingle {
	msg := newordersingle.New(
		field.NewClOrdID(ord.ClOrdID),
		field.NewSide(sideMapping[ord.Side]),
		field.NewTransactTime(ord.TransactTime),
		field.NewOrdType(ordTypeMapping[ord.Kind]))

	msg.SetSymbol(ord.Symbol)
	msg.SetOrderQty(ord.Quantity, qtyScale)
	msg.SetTimeInForce(enum.TimeInForce_DAY)
	msg.SetExDestination(enum.ExDestination(ord.Exchange))

	switch ord.Kind {
	case model.OrderKindLimit:
		msg.SetPrice(ord.LimitPrice, priceScale)
	case model.OrderKindStop:
		msg.SetStopPx(ord.StopPrice, priceScale)
	}

	return msg
}

// ackFromExecutionReport maps the gateway's first execution report for an
// order to the relay acknowledgment. Any non-rejected status that carries an
// order id counts as accepted; the fill lifecycle beyond that is not the
// relay's concern.
func ackFromExecutionReport(msg executionreport.ExecutionReport) relay.Ack {
	clOrdID, _ := msg.GetClOrdID()
	orderID, _ := msg.GetOrderID()
	ordStatus, _ := msg.GetOrdStatus()
	text, _ := msg.GetText()

	ack := relay.Ack{
		ClOrdID: clOrdID,
		OrderID: orderID,
		Text:    text,
		Status:  relay.AckAccepted,
	}
	if ordStatus == enum.OrdStatus_REJECTED {
		ack.Status = relay.AckRejected
	}
	return ack
}
