// Package recorder appends closed-deal outcomes to a flat CSV log. It is
// the only persistence in the system, and it is strictly best-effort: a
// failed log write must never stop trading.
package recorder

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"mt5SignalBot/internal/domain"
	"mt5SignalBot/internal/metrics"
	"mt5SignalBot/internal/ports"
)

var header = []string{"timestamp", "instrument", "side", "channel_tag", "profit", "exit_reason", "family_id"}

// Config for the recorder.
type Config struct {
	// Path of the append-only results log.
	Path string
}

// Recorder fetches deals closed since its watermark on every tick and
// appends one immutable row per engine-originated exit deal. The watermark
// advances monotonically so consecutive ticks neither overlap nor leave a
// gap.
type Recorder struct {
	cfg      Config
	logger   ports.Logger
	platform ports.PlatformClient

	watermark time.Time
	now       func() time.Time
}

// New creates the recorder and writes the header row if the log does not
// exist yet. The watermark starts at the current time: deals that closed
// before startup belong to a previous run.
func New(cfg Config, logger ports.Logger, platform ports.PlatformClient) (*Recorder, error) {
	if logger == nil || platform == nil {
		return nil, fmt.Errorf("%w: recorder needs logger and platform", ports.ErrMissingDependency)
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: recorder log path must be set", ports.ErrConfigurationErr)
	}

	r := &Recorder{
		cfg:      cfg,
		logger:   logger,
		platform: platform,
		now:      time.Now,
	}
	r.watermark = r.now()

	if err := r.ensureLog(); err != nil {
		return nil, fmt.Errorf("initializing results log %s: %w", cfg.Path, err)
	}
	return r, nil
}

// ensureLog creates the log with its header row on first startup only.
func (r *Recorder) ensureLog() error {
	if _, err := os.Stat(r.cfg.Path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	file, err := os.Create(r.cfg.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()
	if err := w.Write(header); err != nil {
		return err
	}
	return w.Error()
}

// Tick records every engine-originated exit deal closed since the previous
// tick. The platform query failing leaves the watermark untouched so the
// window is retried next tick; a log write failing is logged and absorbed.
func (r *Recorder) Tick(ctx context.Context) error {
	if !r.platform.IsConnected() {
		return ports.ErrNotConnected
	}

	to := r.now()
	deals, err := r.platform.GetDeals(ctx, r.watermark, to)
	if err != nil {
		return fmt.Errorf("deal history query: %w", err)
	}
	r.watermark = to

	var outcomes []*domain.Deal
	for _, deal := range deals {
		if deal.IsExit() && deal.EngineOriginated() {
			outcomes = append(outcomes, deal)
		}
	}
	if len(outcomes) == 0 {
		return nil
	}

	if err := r.append(outcomes); err != nil {
		// Never propagated: losing a log row must not stop trading.
		r.logger.Error(ctx, err, "failed to append to results log", map[string]interface{}{
			"path":  r.cfg.Path,
			"deals": len(outcomes),
		})
		return nil
	}

	for _, deal := range outcomes {
		metrics.DealsRecordedTotal.WithLabelValues(string(deal.Reason)).Inc()
	}
	r.logger.Info(ctx, "recorded closed deals", map[string]interface{}{
		"count": len(outcomes),
		"path":  r.cfg.Path,
	})
	return nil
}

func (r *Recorder) append(deals []*domain.Deal) error {
	file, err := os.OpenFile(r.cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	for _, deal := range deals {
		row := []string{
			deal.Time.Format(time.RFC3339),
			deal.Symbol,
			string(deal.Side),
			strconv.Itoa(int(deal.Tag)),
			strconv.FormatFloat(deal.Profit, 'f', 2, 64),
			string(deal.Reason),
			deal.FamilyID,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
