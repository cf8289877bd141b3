package domain

import (
	"errors"
	"fmt"
)

// TradeSignal is the structured trade instruction produced by the parsing
// service. It is a tagged variant over Action x OrderType: new trades carry
// an optional entry zone, a stop-loss and at least one take-profit;
// modifications carry none of those and (for MOVE_SL/MOVE_TP) a single value.
//
// Nullable fields use pointers so "absent" is distinguishable from zero.
type TradeSignal struct {
	Symbol      string    `json:"symbol"`
	Action      Action    `json:"action"`
	OrderType   OrderType `json:"order_type"`
	EntryRange  []float64 `json:"entry_range"` // [min,max], [target] or empty
	StopLoss    *float64  `json:"sl"`
	TakeProfits []float64 `json:"tp_list"`
	Value       *float64  `json:"value"` // target level for MOVE_SL / MOVE_TP
}

// Validation errors for TradeSignal. Payloads failing validation are dropped
// at the ingress boundary and never reach the execution engine.
var (
	ErrMissingSymbol    = errors.New("signal has no symbol")
	ErrUnknownAction    = errors.New("signal action is not BUY, SELL or MODIFY")
	ErrUnknownOrderType = errors.New("signal order type is unknown")
	ErrMissingStopLoss  = errors.New("new trade signal has no stop-loss")
	ErrNoTakeProfits    = errors.New("new trade signal has no take-profits")
	ErrBadEntryRange    = errors.New("entry range must hold at most two prices")
	ErrMissingValue     = errors.New("MOVE_SL/MOVE_TP signal has no value")
	ErrModifyWithLevels = errors.New("MODIFY signal must not carry entry/sl/tp levels")
)

// Validate enforces the signal invariants. A nil error means the signal is a
// well-formed instance of its variant and safe to hand to the engine.
func (s *TradeSignal) Validate() error {
	if s.Symbol == "" {
		return ErrMissingSymbol
	}

	switch s.Action {
	case ActionBuy, ActionSell:
		return s.validateNewTrade()
	case ActionModify:
		return s.validateModify()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, s.Action)
	}
}

func (s *TradeSignal) validateNewTrade() error {
	switch s.OrderType {
	case OrderMarket:
		// Market orders may omit the entry zone entirely.
		if len(s.EntryRange) > 2 {
			return ErrBadEntryRange
		}
	case OrderBuyLimit, OrderSellLimit, OrderBuyStop, OrderSellStop:
		// Pending orders need exactly one trigger price; the engine reports
		// the more specific precondition failure itself, so only the upper
		// bound is checked here.
		if len(s.EntryRange) > 2 {
			return ErrBadEntryRange
		}
	default:
		return fmt.Errorf("%w: %q for action %q", ErrUnknownOrderType, s.OrderType, s.Action)
	}

	if s.StopLoss == nil {
		return ErrMissingStopLoss
	}
	if len(s.TakeProfits) == 0 {
		return ErrNoTakeProfits
	}
	return nil
}

func (s *TradeSignal) validateModify() error {
	switch s.OrderType {
	case OrderBreakEven:
		// No value needed; the stop target is derived from each position.
	case OrderMoveSL, OrderMoveTP:
		if s.Value == nil {
			return ErrMissingValue
		}
	default:
		return fmt.Errorf("%w: %q for action %q", ErrUnknownOrderType, s.OrderType, s.Action)
	}

	if len(s.EntryRange) != 0 || s.StopLoss != nil || len(s.TakeProfits) != 0 {
		return ErrModifyWithLevels
	}
	return nil
}

// Side maps the signal action onto a position side. Only meaningful for
// BUY/SELL signals.
func (s *TradeSignal) Side() PositionSide {
	if s.Action == ActionSell {
		return SideSell
	}
	return SideBuy
}
