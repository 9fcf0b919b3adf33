package model

import (
	"github.com/shopspring/decimal"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

type OrderKind string

const (
	OrderKindMarket OrderKind = "MARKET"
	OrderKindLimit  OrderKind = "LIMIT"
	OrderKindStop   OrderKind = "STOP"
)

// DefaultExchange is the smart-routing destination used when the inbound
// signal does not name one.
const DefaultExchange = "SMART"

// OrderInstruction is the validated, canonical form of an inbound trade
// signal. Price fields are populated only when consistent with Kind: a LIMIT
// instruction carries LimitPrice, a STOP instruction carries StopPrice, a
// MARKET instruction carries neither.
type OrderInstruction struct {
	Side     OrderSide
	Symbol   string
	Quantity decimal.Decimal
	Kind     OrderKind
	Exchange string

	LimitPrice decimal.Decimal
	StopPrice  decimal.Decimal
}
