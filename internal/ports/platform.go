package ports

import (
	"context"
	"time"

	"mt5SignalBot/internal/domain"
)

// RetCodeDone is the platform return code for a fully executed request
// (MT5 TRADE_RETCODE_DONE). Anything else is a platform rejection.
const RetCodeDone = 10009

// SymbolInfo carries the instrument properties the engine needs for price
// and distance validation.
type SymbolInfo struct {
	Name        string  // Instrument code
	Point       float64 // Minimum price increment
	Digits      int     // Price decimal places
	StopsLevel  int     // Broker minimum stop distance, in points
	ContractLot float64 // Standard contract size (informational)
}

// Tick is the most recent quote for an instrument.
type Tick struct {
	Bid  float64
	Ask  float64
	Time time.Time
}

// TimePolicy and FillPolicy mirror the platform's order expiration and
// filling modes.
type TimePolicy string

const (
	TimeGTC TimePolicy = "GTC"
)

type FillPolicy string

const (
	FillFOK    FillPolicy = "FOK"    // Fill-or-kill, used for market orders
	FillReturn FillPolicy = "RETURN" // Partial fills allowed, used for pendings
)

// OrderRequest is a single order submission. One signal with N take-profits
// produces N requests sharing FamilyID and Tag.
type OrderRequest struct {
	Symbol     string
	Volume     float64
	Side       domain.PositionSide
	Kind       domain.OrderType // MARKET or a pending kind
	Price      float64          // Execution price (market) or trigger price (pending)
	StopLoss   float64
	TakeProfit float64
	Deviation  int // Max price slippage, in points
	Tag        domain.ChannelTag
	FamilyID   string
	TimeType   TimePolicy
	Filling    FillPolicy
}

// OrderResult is the platform's verdict on a submitted order.
type OrderResult struct {
	RetCode    int    // RetCodeDone on success
	OrderID    int64  // Platform order id (0 on failure)
	Diagnostic string // Platform-reported reason text
}

// Done reports whether the platform executed the request.
func (r *OrderResult) Done() bool {
	return r.RetCode == RetCodeDone
}

// ModifyRequest updates the protective levels of an open position.
type ModifyRequest struct {
	Ticket     int64
	StopLoss   float64
	TakeProfit float64
}

// PositionFilter narrows a position query. Zero values mean "no constraint".
type PositionFilter struct {
	Symbol string
	Tag    domain.ChannelTag
}

// PlatformClient is the boundary to the trading platform's session. The
// platform is not safe for parallel invocation: callers must serialize all
// calls behind a single mutex (see the app service).
type PlatformClient interface {
	// IsConnected reports whether the platform session is usable. Callers
	// treat false as a precondition failure and abandon the operation;
	// reconnection is the session manager's job, not theirs.
	IsConnected() bool

	// GetSymbolInfo retrieves instrument properties, selecting the symbol
	// in the terminal if needed. Returns ErrSymbolNotFound for unknown codes.
	GetSymbolInfo(ctx context.Context, symbol string) (*SymbolInfo, error)

	// GetTick retrieves the latest quote for a symbol.
	GetTick(ctx context.Context, symbol string) (*Tick, error)

	// PlaceOrder submits one order. A non-nil error means the request never
	// reached the platform; a platform rejection comes back as a result
	// with a non-done RetCode.
	PlaceOrder(ctx context.Context, req *OrderRequest) (*OrderResult, error)

	// ModifyPosition updates an open position's stop-loss/take-profit.
	ModifyPosition(ctx context.Context, req *ModifyRequest) (*OrderResult, error)

	// GetPositions lists open positions matching the filter, in platform order.
	GetPositions(ctx context.Context, filter PositionFilter) ([]*domain.Position, error)

	// GetDeals lists historical deals closed within [from, to).
	GetDeals(ctx context.Context, from, to time.Time) ([]*domain.Deal, error)
}
