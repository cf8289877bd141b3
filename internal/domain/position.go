package domain

import "time"

// Position is an open position as reported by the trading platform. It is
// read-only to this engine: positions are created by the platform on order
// fill and mutated only through modification requests (or by the platform
// itself on stop-out / take-profit).
type Position struct {
	Ticket     int64        // Platform ticket id
	Symbol     string       // Instrument code (e.g. "XAUUSD")
	Side       PositionSide // BUY or SELL
	Volume     float64      // Lot size
	OpenPrice  float64      // Fill price
	StopLoss   float64      // Current stop-loss level (0 if none)
	TakeProfit float64      // Current take-profit level (0 if none)
	Tag        ChannelTag   // Magic number: source channel attribution
	FamilyID   string       // Free-form comment carrying the family id
	OpenTime   time.Time    // When the platform opened the position
}

// DealEntry distinguishes deals that opened a position from deals that
// closed one. Only exit deals matter to the monitor and recorder.
type DealEntry string

const (
	DealEntryIn  DealEntry = "IN"
	DealEntryOut DealEntry = "OUT"
)

// Deal is a historical closing record from the platform. Immutable once
// created.
type Deal struct {
	Ticket   int64
	Symbol   string
	Side     PositionSide
	Profit   float64
	Entry    DealEntry
	Reason   CloseReason // How the position exited (TP / SL / other)
	Tag      ChannelTag
	FamilyID string
	Time     time.Time
}

// IsExit reports whether the deal closed a position.
func (d *Deal) IsExit() bool {
	return d.Entry == DealEntryOut
}

// EngineOriginated reports whether the deal traces back to an order this
// engine placed. Manual trades carry tag zero.
func (d *Deal) EngineOriginated() bool {
	return d.Tag != 0
}
