package relay

import (
	"encoding/json"
	"strings"

	"github.com/joripage/tradehook/pkg/relay/model"
	"github.com/shopspring/decimal"
)

// ParseAlert validates an untrusted webhook payload and produces the
// canonical order instruction. It is pure and deterministic; on any error the
// gateway is never consulted.
//
// Expected payload:
//
//	{
//	  "action": "BUY" | "SELL",
//	  "symbol": "AAPL",
//	  "quantity": 100,
//	  "orderType": "MARKET" | "LIMIT" | "STOP",   // optional, default MARKET
//	  "limitPrice": 150.00,                       // LIMIT only
//	  "stopPrice": 145.00,                        // STOP only
//	  "exchange": "SMART"                         // optional
//	}
//
// Unknown keys are ignored for forward compatibility.
func ParseAlert(payload map[string]interface{}) (*model.OrderInstruction, error) {
	action, err := stringField(payload, "action", true)
	if err != nil {
		return nil, err
	}
	side := model.OrderSide(strings.ToUpper(action))
	if side != model.OrderSideBuy && side != model.OrderSideSell {
		return nil, validationErr("action", "invalid value %q, must be BUY or SELL", action)
	}

	symbol, err := stringField(payload, "symbol", true)
	if err != nil {
		return nil, err
	}
	symbol = strings.ToUpper(symbol)

	quantity, present, err := numberField(payload, "quantity")
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, validationErr("quantity", "missing field")
	}
	if !quantity.IsInteger() || quantity.Sign() <= 0 {
		return nil, validationErr("quantity", "must be a positive whole number, got %s", quantity)
	}

	orderType, err := stringField(payload, "orderType", false)
	if err != nil {
		return nil, err
	}
	if orderType == "" {
		orderType = string(model.OrderKindMarket)
	}
	kind := model.OrderKind(strings.ToUpper(orderType))
	switch kind {
	case model.OrderKindMarket, model.OrderKindLimit, model.OrderKindStop:
	default:
		return nil, validationErr("orderType", "invalid value %q", orderType)
	}

	limitPrice, limitSet, err := numberField(payload, "limitPrice")
	if err != nil {
		return nil, err
	}
	stopPrice, stopSet, err := numberField(payload, "stopPrice")
	if err != nil {
		return nil, err
	}

	// Cross-field invariant: exactly the price matching the order kind.
	switch kind {
	case model.OrderKindLimit:
		if !limitSet || limitPrice.Sign() <= 0 {
			return nil, validationErr("limitPrice", "required and must be > 0 for LIMIT orders")
		}
		if stopSet {
			return nil, validationErr("stopPrice", "must be absent for LIMIT orders")
		}
	case model.OrderKindStop:
		if !stopSet || stopPrice.Sign() <= 0 {
			return nil, validationErr("stopPrice", "required and must be > 0 for STOP orders")
		}
		if limitSet {
			return nil, validationErr("limitPrice", "must be absent for STOP orders")
		}
	default:
		if limitSet {
			return nil, validationErr("limitPrice", "must be absent for MARKET orders")
		}
		if stopSet {
			return nil, validationErr("stopPrice", "must be absent for MARKET orders")
		}
	}

	exchange, err := stringField(payload, "exchange", false)
	if err != nil {
		return nil, err
	}
	if exchange == "" {
		exchange = model.DefaultExchange
	}

	in := &model.OrderInstruction{
		Side:     side,
		Symbol:   symbol,
		Quantity: quantity,
		Kind:     kind,
		Exchange: exchange,
	}
	switch kind {
	case model.OrderKindLimit:
		in.LimitPrice = limitPrice
	case model.OrderKindStop:
		in.StopPrice = stopPrice
	}
	return in, nil
}

func stringField(payload map[string]interface{}, key string, required bool) (string, error) {
	v, ok := payload[key]
	if !ok || v == nil {
		if required {
			return "", validationErr(key, "missing field")
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", validationErr(key, "must be a string")
	}
	if required && strings.TrimSpace(s) == "" {
		return "", validationErr(key, "missing field")
	}
	return s, nil
}

// numberField accepts the numeric shapes a JSON decoder can hand us:
// float64, json.Number, and numeric strings.
func numberField(payload map[string]interface{}, key string) (decimal.Decimal, bool, error) {
	v, ok := payload[key]
	if !ok || v == nil {
		return decimal.Zero, false, nil
	}

	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), true, nil
	case int:
		return decimal.NewFromInt(int64(n)), true, nil
	case int64:
		return decimal.NewFromInt(n), true, nil
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, false, validationErr(key, "must be a number")
		}
		return d, true, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Zero, false, validationErr(key, "must be a number")
		}
		return d, true, nil
	default:
		return decimal.Zero, false, validationErr(key, "must be a number")
	}
}
