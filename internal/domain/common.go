package domain

// Action is the top-level intent of a trade signal.
type Action string

const (
	ActionBuy    Action = "BUY"
	ActionSell   Action = "SELL"
	ActionModify Action = "MODIFY"
)

// OrderType refines the action into a concrete order or modification kind.
type OrderType string

const (
	// New-trade order types.
	OrderMarket    OrderType = "MARKET"
	OrderBuyLimit  OrderType = "BUY_LIMIT"
	OrderSellLimit OrderType = "SELL_LIMIT"
	OrderBuyStop   OrderType = "BUY_STOP"
	OrderSellStop  OrderType = "SELL_STOP"

	// Modification order types.
	OrderBreakEven OrderType = "BREAK_EVEN"
	OrderMoveSL    OrderType = "MOVE_SL"
	OrderMoveTP    OrderType = "MOVE_TP"
)

// IsPending reports whether the order type is a pending (limit/stop) order.
func (o OrderType) IsPending() bool {
	switch o {
	case OrderBuyLimit, OrderSellLimit, OrderBuyStop, OrderSellStop:
		return true
	}
	return false
}

// IsModification reports whether the order type belongs to the MODIFY family.
func (o OrderType) IsModification() bool {
	switch o {
	case OrderBreakEven, OrderMoveSL, OrderMoveTP:
		return true
	}
	return false
}

// PositionSide is the direction of an open position.
type PositionSide string

const (
	SideBuy  PositionSide = "BUY"
	SideSell PositionSide = "SELL"
)

// CloseReason indicates why a deal closed its position.
type CloseReason string

const (
	CloseReasonTakeProfit CloseReason = "TP"
	CloseReasonStopLoss   CloseReason = "SL"
	CloseReasonOther      CloseReason = "OTHER"
)

// ChannelTag identifies the chat channel a signal originated from. It is
// stamped on every order (the platform's magic number) so positions can be
// attributed back to their source and MODIFY operations can be scoped to it.
// Tag zero means "not engine-originated".
type ChannelTag int
