// Package monitor runs the periodic break-even sweep: once a sibling in a
// family closes at its target, the survivors' stop-loss is moved to entry.
// The monitor only ever tightens risk, it never opens or closes positions.
package monitor

import (
	"context"
	"fmt"
	"time"

	"mt5SignalBot/internal/domain"
	"mt5SignalBot/internal/family"
	"mt5SignalBot/internal/metrics"
	"mt5SignalBot/internal/ports"
)

// SignalExecutor is the slice of the engine the monitor needs: it routes
// synthetic BREAK_EVEN signals back through the regular modification path
// so the clamping rules apply in exactly one place.
type SignalExecutor interface {
	ExecuteSignal(ctx context.Context, sig *domain.TradeSignal, tag domain.ChannelTag) error
}

// Config tunes the sweep.
type Config struct {
	// DealLookback is how far back to scan closed deals for take-profit
	// exits on each tick.
	DealLookback time.Duration
	// Epsilon is the distance below which a stop already counts as
	// sitting at its entry price.
	Epsilon float64
}

const (
	defaultDealLookback = time.Hour
	defaultEpsilon      = 1e-5
)

// Monitor performs one break-even sweep per Tick call. Scheduling and
// platform-call serialization belong to the caller.
type Monitor struct {
	cfg      Config
	logger   ports.Logger
	platform ports.PlatformClient
	executor SignalExecutor

	now func() time.Time
}

// New creates the monitor.
func New(cfg Config, logger ports.Logger, platform ports.PlatformClient, executor SignalExecutor) (*Monitor, error) {
	if logger == nil || platform == nil || executor == nil {
		return nil, fmt.Errorf("%w: monitor needs logger, platform and executor", ports.ErrMissingDependency)
	}
	if cfg.DealLookback <= 0 {
		cfg.DealLookback = defaultDealLookback
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = defaultEpsilon
	}
	return &Monitor{
		cfg:      cfg,
		logger:   logger,
		platform: platform,
		executor: executor,
		now:      time.Now,
	}, nil
}

// Tick runs one sweep: group open positions into families, find families
// with a take-profit exit in the lookback window, and move the survivors of
// the intersection to break-even. Untouched: families with no target hit,
// and positions whose stop already sits at entry.
func (m *Monitor) Tick(ctx context.Context) error {
	if !m.platform.IsConnected() {
		return ports.ErrNotConnected
	}

	positions, err := m.platform.GetPositions(ctx, ports.PositionFilter{})
	if err != nil {
		return fmt.Errorf("position query: %w", err)
	}

	families := family.Group(positions)
	metrics.OpenFamilies.Set(float64(len(families)))
	if len(families) == 0 {
		return nil
	}

	to := m.now()
	deals, err := m.platform.GetDeals(ctx, to.Add(-m.cfg.DealLookback), to)
	if err != nil {
		return fmt.Errorf("deal history query: %w", err)
	}

	targetHit := family.ClosedByTarget(deals)

	for famID, siblings := range families {
		if _, hit := targetHit[famID]; !hit {
			continue
		}
		if !family.NeedsProtection(siblings, m.cfg.Epsilon) {
			continue
		}

		// Route through the engine's modification handler so break-even
		// clamping lives in one place. Scope comes from the first sibling;
		// all siblings of one family share symbol and tag.
		lead := siblings[0]
		m.logger.Info(ctx, "auto break-even triggered", map[string]interface{}{
			"family": famID,
			"symbol": lead.Symbol,
			"tag":    lead.Tag,
			"count":  len(siblings),
		})

		synthetic := &domain.TradeSignal{
			Symbol:    lead.Symbol,
			Action:    domain.ActionModify,
			OrderType: domain.OrderBreakEven,
		}
		if err := m.executor.ExecuteSignal(ctx, synthetic, lead.Tag); err != nil {
			m.logger.Error(ctx, err, "auto break-even failed", map[string]interface{}{
				"family": famID,
			})
			continue
		}
		metrics.AutoBreakEvenTotal.Inc()
	}
	return nil
}
