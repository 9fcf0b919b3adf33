package simgateway

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	"github.com/quickfixgo/fix44/executionreport"
	"github.com/quickfixgo/fix44/newordersingle"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
)

// Application implements the quickfix.Application interface
type Application struct {
	*quickfix.MessageRouter
	cfg Config

	orderSeq int64
}

func newApplication(cfg Config) *Application {
	app := &Application{
		MessageRouter: quickfix.NewMessageRouter(),
		cfg:           cfg,
	}

	app.AddRoute(newordersingle.Route(app.onNewOrderSingle))

	return app
}

// OnCreate implemented as part of Application interface
func (a *Application) OnCreate(sessionID quickfix.SessionID) {}

// OnLogon implemented as part of Application interface
func (a *Application) OnLogon(sessionID quickfix.SessionID) {}

// OnLogout implemented as part of Application interface
func (a *Application) OnLogout(sessionID quickfix.SessionID) {}

// ToAdmin implemented as part of Application interface
func (a *Application) ToAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) {}

// ToApp implemented as part of Application interface
func (a *Application) ToApp(msg *quickfix.Message, sessionID quickfix.SessionID) error {
	return nil
}

// FromAdmin implemented as part of Application interface
func (a *Application) FromAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}

// FromApp implemented as part of Application interface, uses Router on incoming application messages
func (a *Application) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return a.Route(msg, sessionID)
}

func (a *Application) onNewOrderSingle(msg newordersingle.NewOrderSingle, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	clOrdID, _ := msg.GetClOrdID()
	symbol, _ := msg.GetSymbol()
	side, _ := msg.GetSide()
	orderQty, _ := msg.GetOrderQty()

	report := a.buildReport(clOrdID, symbol, side, orderQty)
	report.SetTargetCompID(sessionID.SenderCompID)
	report.SetSenderCompID(sessionID.TargetCompID)

	go func() {
		if a.cfg.AckDelay > 0 {
			time.Sleep(a.cfg.AckDelay)
		}
		_ = quickfix.SendToTarget(report, sessionID)
	}()

	return nil
}

func (a *Application) buildReport(clOrdID, symbol string, side enum.Side, orderQty decimal.Decimal) executionreport.ExecutionReport {
	seq := atomic.AddInt64(&a.orderSeq, 1)
	orderID := fmt.Sprintf("SIM-%06d", seq)

	status := enum.OrdStatus_NEW
	execType := enum.ExecType_NEW
	text := ""
	if a.cfg.rejected(symbol) {
		status = enum.OrdStatus_REJECTED
		execType = enum.ExecType_REJECTED
		text = fmt.Sprintf("unknown symbol %s", symbol)
	}

	report := executionreport.New(
		field.NewOrderID(orderID),
		field.NewExecID(fmt.Sprintf("EXEC-%06d", seq)),
		field.NewExecType(execType),
		field.NewOrdStatus(status),
		field.NewSide(side),
		field.NewLeavesQty(orderQty, 0),
		field.NewCumQty(decimal.Zero, 0),
		field.NewAvgPx(decimal.Zero, 2),
	)
	report.SetClOrdID(clOrdID)
	report.SetSymbol(symbol)
	report.SetOrderQty(orderQty, 0)
	if text != "" {
		report.SetText(text)
	}

	return report
}
