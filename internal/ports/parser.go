package ports

import (
	"context"

	"mt5SignalBot/internal/domain"
)

// SignalParser turns raw chat text into a structured trade signal.
//
// A (nil, nil) return means "not a signal": a terminal no-op, not an
// error. Implementations must validate the payload before returning it;
// partially-typed data never crosses this boundary.
type SignalParser interface {
	ParseSignal(ctx context.Context, rawText string) (*domain.TradeSignal, error)
}
