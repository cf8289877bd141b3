// Package pricing holds the pure price and distance checks that gate order
// submission: is the current quote still inside the signal's entry zone, and
// does a pending trigger respect the broker's minimum stop distance.
package pricing

import (
	"fmt"
	"strings"

	"mt5SignalBot/internal/domain"
	"mt5SignalBot/internal/ports"
)

// Config tunes the validator. Zero values fall back to the defaults below.
type Config struct {
	// ToleranceFactor widens the entry zone by this many price increments
	// for ordinary instruments.
	ToleranceFactor float64
	// MetalsTolerance is the absolute tolerance for metals-class
	// instruments, which move too fast for a point-based band.
	MetalsTolerance float64
	// SafetyBufferPoints is added on top of the broker's stops level when
	// validating pending trigger distances.
	SafetyBufferPoints float64
}

const (
	defaultToleranceFactor    = 50.0
	defaultMetalsTolerance    = 2.00
	defaultSafetyBufferPoints = 10.0
)

// Validator answers ACCEPT/REJECT for market entries and pending triggers.
// Stateless; safe for concurrent use.
type Validator struct {
	cfg Config
}

// New creates a validator, filling unset config fields with defaults.
func New(cfg Config) *Validator {
	if cfg.ToleranceFactor <= 0 {
		cfg.ToleranceFactor = defaultToleranceFactor
	}
	if cfg.MetalsTolerance <= 0 {
		cfg.MetalsTolerance = defaultMetalsTolerance
	}
	if cfg.SafetyBufferPoints <= 0 {
		cfg.SafetyBufferPoints = defaultSafetyBufferPoints
	}
	return &Validator{cfg: cfg}
}

// IsMetals reports whether the symbol is a metals-class instrument.
func IsMetals(symbol string) bool {
	u := strings.ToUpper(symbol)
	return strings.Contains(u, "XAU") || strings.Contains(u, "GOLD") ||
		strings.Contains(u, "XAG") || strings.Contains(u, "SILVER")
}

// Tolerance returns the entry tolerance for a symbol given its minimum
// price increment.
func (v *Validator) Tolerance(symbol string, point float64) float64 {
	if IsMetals(symbol) {
		return v.cfg.MetalsTolerance
	}
	return v.cfg.ToleranceFactor * point
}

// CheckMarketEntry decides whether a market order may execute at price
// against the signal's entry range.
//
//   - Two bounds: the zone is [min-tol, max+tol], bound order irrelevant.
//   - One bound: a BUY is rejected above target+tol, a SELL below
//     target-tol; fills on the favorable side are always accepted.
//   - Empty range: no constraint, always accepted.
//
// A rejection wraps ports.ErrPriceOutOfRange and is a deliberate skip, not
// an error condition.
func (v *Validator) CheckMarketEntry(action domain.Action, price float64, entryRange []float64, tolerance float64) error {
	switch len(entryRange) {
	case 0:
		return nil
	case 1:
		target := entryRange[0]
		if action == domain.ActionBuy && price > target+tolerance {
			return fmt.Errorf("%w: price %v above buy target %v (tolerance %v)",
				ports.ErrPriceOutOfRange, price, target, tolerance)
		}
		if action == domain.ActionSell && price < target-tolerance {
			return fmt.Errorf("%w: price %v below sell target %v (tolerance %v)",
				ports.ErrPriceOutOfRange, price, target, tolerance)
		}
		return nil
	default:
		lo, hi := entryRange[0], entryRange[1]
		if lo > hi {
			lo, hi = hi, lo
		}
		if price < lo-tolerance || price > hi+tolerance {
			return fmt.Errorf("%w: price %v outside zone [%v, %v]",
				ports.ErrPriceOutOfRange, price, lo-tolerance, hi+tolerance)
		}
		return nil
	}
}

// CheckPendingDistance decides whether a pending trigger price sits far
// enough from the current market. The minimum distance is the broker's
// stops level plus a safety buffer, both expressed in points.
//
// A rejection wraps ports.ErrStopsTooClose and reports the violated bound.
func (v *Validator) CheckPendingDistance(kind domain.OrderType, trigger, bid, ask, point float64, stopsLevel int) error {
	minDist := float64(stopsLevel)*point + v.cfg.SafetyBufferPoints*point

	switch kind {
	case domain.OrderBuyStop:
		if trigger <= ask+minDist {
			return fmt.Errorf("%w: BUY_STOP trigger %v too close to ask %v (need > %v)",
				ports.ErrStopsTooClose, trigger, ask, ask+minDist)
		}
	case domain.OrderBuyLimit:
		if trigger >= ask-minDist {
			return fmt.Errorf("%w: BUY_LIMIT trigger %v too close to ask %v (need < %v)",
				ports.ErrStopsTooClose, trigger, ask, ask-minDist)
		}
	case domain.OrderSellStop:
		if trigger >= bid-minDist {
			return fmt.Errorf("%w: SELL_STOP trigger %v too close to bid %v (need < %v)",
				ports.ErrStopsTooClose, trigger, bid, bid-minDist)
		}
	case domain.OrderSellLimit:
		if trigger <= bid+minDist {
			return fmt.Errorf("%w: SELL_LIMIT trigger %v too close to bid %v (need > %v)",
				ports.ErrStopsTooClose, trigger, bid, bid+minDist)
		}
	default:
		return fmt.Errorf("%w: %q is not a pending order type", ports.ErrInvalidSignal, kind)
	}
	return nil
}
