package engine

import (
	"context"
	"fmt"

	"mt5SignalBot/internal/domain"
	"mt5SignalBot/internal/metrics"
	"mt5SignalBot/internal/ports"
)

// handleNewTrade plans and submits one order per take-profit target. All
// siblings share a freshly generated family id, the signal's stop-loss and
// the fixed lot size. Submissions are independent: one rejection never rolls
// back or cancels the siblings already placed.
func (e *Engine) handleNewTrade(ctx context.Context, sig *domain.TradeSignal, tag domain.ChannelTag, info *ports.SymbolInfo) error {
	familyID := domain.NewFamilyID(e.now())

	if sig.OrderType == domain.OrderMarket {
		return e.placeMarketFamily(ctx, sig, tag, info, familyID)
	}
	return e.placePendingFamily(ctx, sig, tag, info, familyID)
}

// placeMarketFamily fetches the execution price once, validates it against
// the entry zone, then submits every sibling at that same price so the whole
// family shares one fill level.
func (e *Engine) placeMarketFamily(ctx context.Context, sig *domain.TradeSignal, tag domain.ChannelTag, info *ports.SymbolInfo, familyID string) error {
	tick, err := e.platform.GetTick(ctx, sig.Symbol)
	if err != nil {
		return fmt.Errorf("tick for %s: %w", sig.Symbol, err)
	}

	price := tick.Ask
	if sig.Action == domain.ActionSell {
		price = tick.Bid
	}

	tolerance := e.validator.Tolerance(sig.Symbol, info.Point)
	if err := e.validator.CheckMarketEntry(sig.Action, price, sig.EntryRange, tolerance); err != nil {
		// A deliberate skip, not a failure: the market may come back into
		// range on a future signal.
		e.logger.Warn(ctx, "market entry rejected", map[string]interface{}{
			"symbol": sig.Symbol,
			"price":  price,
			"reason": err.Error(),
		})
		return err
	}

	e.logger.Info(ctx, "placing market family", map[string]interface{}{
		"symbol": sig.Symbol,
		"side":   sig.Side(),
		"price":  price,
		"count":  len(sig.TakeProfits),
		"family": familyID,
	})

	for _, tp := range sig.TakeProfits {
		e.submitOrder(ctx, &ports.OrderRequest{
			Symbol:     sig.Symbol,
			Volume:     e.cfg.LotSize,
			Side:       sig.Side(),
			Kind:       domain.OrderMarket,
			Price:      price,
			StopLoss:   *sig.StopLoss,
			TakeProfit: tp,
			Deviation:  e.cfg.Deviation,
			Tag:        tag,
			FamilyID:   familyID,
			TimeType:   ports.TimeGTC,
			Filling:    ports.FillFOK,
		})
	}
	return nil
}

// placePendingFamily validates the single trigger price against the broker's
// minimum stop distance, then submits every sibling at that trigger.
func (e *Engine) placePendingFamily(ctx context.Context, sig *domain.TradeSignal, tag domain.ChannelTag, info *ports.SymbolInfo, familyID string) error {
	if len(sig.EntryRange) == 0 {
		return fmt.Errorf("%s %s: %w", sig.OrderType, sig.Symbol, ports.ErrMissingTrigger)
	}
	trigger := sig.EntryRange[0]

	tick, err := e.platform.GetTick(ctx, sig.Symbol)
	if err != nil {
		return fmt.Errorf("tick for %s: %w", sig.Symbol, err)
	}

	if err := e.validator.CheckPendingDistance(sig.OrderType, trigger, tick.Bid, tick.Ask, info.Point, info.StopsLevel); err != nil {
		e.logger.Warn(ctx, "pending trigger rejected", map[string]interface{}{
			"symbol":  sig.Symbol,
			"trigger": trigger,
			"reason":  err.Error(),
		})
		return err
	}

	e.logger.Info(ctx, "placing pending family", map[string]interface{}{
		"symbol":  sig.Symbol,
		"kind":    sig.OrderType,
		"trigger": trigger,
		"count":   len(sig.TakeProfits),
		"family":  familyID,
	})

	for _, tp := range sig.TakeProfits {
		e.submitOrder(ctx, &ports.OrderRequest{
			Symbol:     sig.Symbol,
			Volume:     e.cfg.LotSize,
			Side:       sig.Side(),
			Kind:       sig.OrderType,
			Price:      trigger,
			StopLoss:   *sig.StopLoss,
			TakeProfit: tp,
			Deviation:  e.cfg.Deviation,
			Tag:        tag,
			FamilyID:   familyID,
			TimeType:   ports.TimeGTC,
			Filling:    ports.FillReturn,
		})
	}
	return nil
}

// submitOrder sends one sibling and classifies the outcome by the platform's
// return code. Failures are logged and counted but never abort the family
// loop.
func (e *Engine) submitOrder(ctx context.Context, req *ports.OrderRequest) {
	result, err := e.platform.PlaceOrder(ctx, req)
	if err != nil {
		e.logger.Error(ctx, err, "order submission failed", map[string]interface{}{
			"symbol": req.Symbol,
			"tp":     req.TakeProfit,
			"family": req.FamilyID,
		})
		metrics.OrdersTotal.WithLabelValues(string(req.Kind), metrics.OutcomeFailed).Inc()
		return
	}
	if !result.Done() {
		e.logger.Error(ctx, ports.ErrOrderRejected, "order rejected by platform", map[string]interface{}{
			"symbol":  req.Symbol,
			"tp":      req.TakeProfit,
			"family":  req.FamilyID,
			"retcode": result.RetCode,
			"reason":  result.Diagnostic,
		})
		metrics.OrdersTotal.WithLabelValues(string(req.Kind), metrics.OutcomeFailed).Inc()
		return
	}

	e.logger.Info(ctx, "order placed", map[string]interface{}{
		"symbol": req.Symbol,
		"tp":     req.TakeProfit,
		"family": req.FamilyID,
		"order":  result.OrderID,
	})
	metrics.OrdersTotal.WithLabelValues(string(req.Kind), metrics.OutcomePlaced).Inc()
}
