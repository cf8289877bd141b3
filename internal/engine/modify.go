package engine

import (
	"context"
	"fmt"
	"math"

	"mt5SignalBot/internal/domain"
	"mt5SignalBot/internal/metrics"
	"mt5SignalBot/internal/ports"
	"mt5SignalBot/internal/pricing"
)

// handleModify applies a MODIFY signal to every open position that shares
// the signal's symbol and the caller's channel tag. The tag filter is the
// cross-channel isolation guarantee: one channel can never move another
// channel's stops. Positions are modified independently; one failure does
// not block its siblings.
func (e *Engine) handleModify(ctx context.Context, sig *domain.TradeSignal, tag domain.ChannelTag) error {
	positions, err := e.platform.GetPositions(ctx, ports.PositionFilter{
		Symbol: sig.Symbol,
		Tag:    tag,
	})
	if err != nil {
		return fmt.Errorf("position query for %s: %w", sig.Symbol, err)
	}
	if len(positions) == 0 {
		e.logger.Warn(ctx, "modify signal matched no positions", map[string]interface{}{
			"symbol": sig.Symbol,
			"tag":    tag,
			"kind":   sig.OrderType,
		})
		return nil
	}

	for _, pos := range positions {
		newSL, newTP := e.modifiedLevels(pos, sig)

		// Skip if nothing would actually change; saves a platform round
		// trip and makes repeated MODIFY signals idempotent.
		if math.Abs(newSL-pos.StopLoss) < e.cfg.ModifyEpsilon &&
			math.Abs(newTP-pos.TakeProfit) < e.cfg.ModifyEpsilon {
			e.logger.Debug(ctx, "modification is a no-op, skipping", map[string]interface{}{
				"ticket": pos.Ticket,
				"kind":   sig.OrderType,
			})
			metrics.ModifiesTotal.WithLabelValues(string(sig.OrderType), metrics.OutcomeSkipped).Inc()
			continue
		}

		result, err := e.platform.ModifyPosition(ctx, &ports.ModifyRequest{
			Ticket:     pos.Ticket,
			StopLoss:   newSL,
			TakeProfit: newTP,
		})
		if err != nil {
			e.logger.Error(ctx, err, "modification failed", map[string]interface{}{
				"ticket": pos.Ticket,
				"kind":   sig.OrderType,
			})
			metrics.ModifiesTotal.WithLabelValues(string(sig.OrderType), metrics.OutcomeFailed).Inc()
			continue
		}
		if !result.Done() {
			e.logger.Error(ctx, ports.ErrModifyRejected, "modification rejected by platform", map[string]interface{}{
				"ticket":  pos.Ticket,
				"kind":    sig.OrderType,
				"retcode": result.RetCode,
				"reason":  result.Diagnostic,
			})
			metrics.ModifiesTotal.WithLabelValues(string(sig.OrderType), metrics.OutcomeFailed).Inc()
			continue
		}

		e.logger.Info(ctx, "position modified", map[string]interface{}{
			"ticket": pos.Ticket,
			"kind":   sig.OrderType,
			"sl":     newSL,
			"tp":     newTP,
		})
		metrics.ModifiesTotal.WithLabelValues(string(sig.OrderType), metrics.OutcomePlaced).Inc()
	}
	return nil
}

// modifiedLevels computes the stop-loss/take-profit a MODIFY signal implies
// for one position. Untouched levels keep their current value.
func (e *Engine) modifiedLevels(pos *domain.Position, sig *domain.TradeSignal) (newSL, newTP float64) {
	newSL, newTP = pos.StopLoss, pos.TakeProfit

	switch sig.OrderType {
	case domain.OrderBreakEven:
		newSL = e.breakEvenStop(pos)
	case domain.OrderMoveSL:
		newSL = *sig.Value
	case domain.OrderMoveTP:
		newTP = *sig.Value
	}
	return newSL, newTP
}

// breakEvenStop returns the entry price, pushed slightly into profit for
// metals instruments, and clamped so the stop never lands behind entry:
// a BUY's break-even stop is never below its open price, a SELL's never
// above it.
func (e *Engine) breakEvenStop(pos *domain.Position) float64 {
	buffer := 0.0
	if pricing.IsMetals(pos.Symbol) {
		buffer = e.cfg.MetalsBEBuffer
	}

	if pos.Side == domain.SideBuy {
		sl := pos.OpenPrice + buffer
		if sl < pos.OpenPrice {
			sl = pos.OpenPrice
		}
		return sl
	}
	sl := pos.OpenPrice - buffer
	if sl > pos.OpenPrice {
		sl = pos.OpenPrice
	}
	return sl
}
