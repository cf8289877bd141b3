// Package engine is the signal execution core: it takes a validated trade
// signal plus its channel tag, plans the orders or modifications it implies,
// and submits them to the trading platform one by one.
package engine

import (
	"context"
	"fmt"
	"time"

	"mt5SignalBot/internal/domain"
	"mt5SignalBot/internal/ports"
	"mt5SignalBot/internal/pricing"
)

// Config holds the execution parameters shared by every order.
type Config struct {
	// LotSize is the fixed volume for every sibling order.
	LotSize float64
	// Deviation is the max accepted slippage for market orders, in points.
	Deviation int
	// MetalsBEBuffer is added to the entry price when moving a metals
	// position to break-even, locking in a sliver of profit. Zero moves
	// the stop exactly to entry.
	MetalsBEBuffer float64
	// ModifyEpsilon is the level distance below which a modification is
	// considered a no-op and skipped.
	ModifyEpsilon float64
}

const defaultModifyEpsilon = 1e-5

// Engine dispatches signals to the order planner or the modification
// handler. It performs no locking itself: callers must serialize calls
// (the platform API is not safe for parallel invocation).
type Engine struct {
	cfg       Config
	logger    ports.Logger
	platform  ports.PlatformClient
	validator *pricing.Validator

	now func() time.Time // injectable for tests
}

// New creates the execution engine.
func New(cfg Config, logger ports.Logger, platform ports.PlatformClient, validator *pricing.Validator) (*Engine, error) {
	if logger == nil || platform == nil || validator == nil {
		return nil, fmt.Errorf("%w: engine needs logger, platform and validator", ports.ErrMissingDependency)
	}
	if cfg.LotSize <= 0 {
		return nil, fmt.Errorf("%w: LotSize must be positive", ports.ErrConfigurationErr)
	}
	if cfg.Deviation <= 0 {
		cfg.Deviation = 20
	}
	if cfg.ModifyEpsilon <= 0 {
		cfg.ModifyEpsilon = defaultModifyEpsilon
	}
	return &Engine{
		cfg:       cfg,
		logger:    logger,
		platform:  platform,
		validator: validator,
		now:       time.Now,
	}, nil
}

// ExecuteSignal runs one signal to completion. Sibling-level platform
// rejections are logged and absorbed; the returned error is reserved for
// precondition failures (not connected, unknown symbol, invalid signal)
// and validation rejections (price tolerance, stop distance), which the
// caller may retry according to policy.
func (e *Engine) ExecuteSignal(ctx context.Context, sig *domain.TradeSignal, tag domain.ChannelTag) error {
	if !e.platform.IsConnected() {
		return fmt.Errorf("cannot execute signal for %s: %w", sig.Symbol, ports.ErrNotConnected)
	}
	if err := sig.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ports.ErrInvalidSignal, err)
	}

	info, err := e.platform.GetSymbolInfo(ctx, sig.Symbol)
	if err != nil {
		return fmt.Errorf("symbol lookup for %s failed: %w", sig.Symbol, err)
	}

	switch sig.Action {
	case domain.ActionBuy, domain.ActionSell:
		return e.handleNewTrade(ctx, sig, tag, info)
	case domain.ActionModify:
		return e.handleModify(ctx, sig, tag)
	default:
		return fmt.Errorf("%w: action %q", ports.ErrInvalidSignal, sig.Action)
	}
}
