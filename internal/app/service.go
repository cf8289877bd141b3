// Package app wires the signal pipeline together: inbound chat messages are
// parsed and executed one at a time, and a periodic task runs the break-even
// monitor and the result recorder. All platform calls from both paths go
// through one mutex; the platform API is not safe for parallel invocation.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"mt5SignalBot/config"
	"mt5SignalBot/internal/domain"
	"mt5SignalBot/internal/metrics"
	"mt5SignalBot/internal/ports"
)

// SignalExecutor is the engine boundary the service drives.
type SignalExecutor interface {
	ExecuteSignal(ctx context.Context, sig *domain.TradeSignal, tag domain.ChannelTag) error
}

// PeriodicTask is one unit of per-tick work (monitor, recorder).
type PeriodicTask interface {
	Tick(ctx context.Context) error
}

// pendingRetry holds a tolerance-rejected market signal awaiting its single
// re-attempt on the next tick.
type pendingRetry struct {
	sig *domain.TradeSignal
	tag domain.ChannelTag
}

// Service orchestrates the bot.
type Service struct {
	cfg      *config.Config
	logger   ports.Logger
	platform ports.PlatformClient
	parser   ports.SignalParser
	source   ports.MessageSource
	engine   SignalExecutor
	monitor  PeriodicTask
	recorder PeriodicTask

	// platformMu serializes every platform call across the message path
	// and the periodic tick.
	platformMu sync.Mutex

	retryMu sync.Mutex
	retries []pendingRetry
}

// NewService creates the orchestration service.
func NewService(
	cfg *config.Config,
	logger ports.Logger,
	platform ports.PlatformClient,
	parser ports.SignalParser,
	source ports.MessageSource,
	engine SignalExecutor,
	monitor PeriodicTask,
	recorder PeriodicTask,
) (*Service, error) {
	if cfg == nil || logger == nil || platform == nil || parser == nil ||
		source == nil || engine == nil || monitor == nil || recorder == nil {
		return nil, fmt.Errorf("%w: service wiring incomplete", ports.ErrMissingDependency)
	}
	if cfg.MonitorInterval <= 0 {
		return nil, fmt.Errorf("%w: MonitorInterval must be positive", ports.ErrConfigurationErr)
	}
	return &Service{
		cfg:      cfg,
		logger:   logger,
		platform: platform,
		parser:   parser,
		source:   source,
		engine:   engine,
		monitor:  monitor,
		recorder: recorder,
	}, nil
}

// Start runs the bot until the context is cancelled or a shutdown signal
// arrives. The message stream and the periodic tick run concurrently but
// never touch the platform at the same time.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info(ctx, "starting signal service", map[string]interface{}{
		"channels": len(s.cfg.ChannelMap),
		"interval": s.cfg.MonitorInterval.String(),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- s.source.Listen(ctx, s.HandleMessage)
	}()

	ticker := time.NewTicker(s.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "signal service stopped")
			return nil
		case err := <-listenErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("message source stopped: %w", err)
			}
			s.logger.Info(ctx, "message source closed, shutting down")
			return nil
		case <-ticker.C:
			s.runTick(ctx)
		}
	}
}

// HandleMessage is the per-message entry point: parse, then execute. Nothing
// that happens inside may kill the ingestion loop, so everything is caught
// and logged here.
func (s *Service) HandleMessage(ctx context.Context, rawText string, tag domain.ChannelTag) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, fmt.Errorf("panic: %v", r), "message handler panicked", map[string]interface{}{"tag": tag})
		}
	}()

	sig, err := s.parser.ParseSignal(ctx, rawText)
	if err != nil {
		// Parser trouble is indistinguishable from chatter: drop, don't fail.
		s.logger.Warn(ctx, "parser failed, message dropped", map[string]interface{}{
			"tag":   tag,
			"error": err.Error(),
		})
		metrics.SignalsTotal.WithLabelValues(metrics.OutcomeDropped).Inc()
		return
	}
	if sig == nil {
		s.logger.Debug(ctx, "not a trading signal", map[string]interface{}{"tag": tag})
		metrics.SignalsTotal.WithLabelValues(metrics.OutcomeDropped).Inc()
		return
	}

	s.executeSignal(ctx, sig, tag, true)
}

// executeSignal runs one signal under the platform mutex and classifies the
// outcome. allowRetry guards against queueing a signal twice.
func (s *Service) executeSignal(ctx context.Context, sig *domain.TradeSignal, tag domain.ChannelTag, allowRetry bool) {
	err := s.callEngine(ctx, sig, tag)

	switch {
	case err == nil:
		metrics.SignalsTotal.WithLabelValues(metrics.OutcomeExecuted).Inc()
	case errors.Is(err, ports.ErrPriceOutOfRange), errors.Is(err, ports.ErrStopsTooClose):
		metrics.SignalsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		if allowRetry && s.cfg.RetryRejectedEntries && sig.OrderType == domain.OrderMarket {
			s.queueRetry(sig, tag)
			s.logger.Info(ctx, "rejected entry queued for one retry", map[string]interface{}{
				"symbol": sig.Symbol,
				"tag":    tag,
			})
		}
	default:
		s.logger.Error(ctx, err, "signal execution failed", map[string]interface{}{
			"symbol": sig.Symbol,
			"tag":    tag,
		})
		metrics.SignalsTotal.WithLabelValues(metrics.OutcomeError).Inc()
	}
}

// callEngine runs the engine under the platform mutex. The deferred unlock
// keeps the mutex usable even if the engine panics.
func (s *Service) callEngine(ctx context.Context, sig *domain.TradeSignal, tag domain.ChannelTag) error {
	s.platformMu.Lock()
	defer s.platformMu.Unlock()
	return s.engine.ExecuteSignal(ctx, sig, tag)
}

func (s *Service) queueRetry(sig *domain.TradeSignal, tag domain.ChannelTag) {
	s.retryMu.Lock()
	s.retries = append(s.retries, pendingRetry{sig: sig, tag: tag})
	s.retryMu.Unlock()
}

// runTick executes the periodic work: the one-shot retries, the break-even
// monitor, then the recorder. A failure in any of them is logged and never
// terminates the loop.
func (s *Service) runTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, fmt.Errorf("panic: %v", r), "periodic tick panicked")
		}
	}()

	s.retryMu.Lock()
	retries := s.retries
	s.retries = nil
	s.retryMu.Unlock()
	for _, r := range retries {
		s.executeSignal(ctx, r.sig, r.tag, false)
	}

	s.platformMu.Lock()
	defer s.platformMu.Unlock()

	if err := s.monitor.Tick(ctx); err != nil {
		if errors.Is(err, ports.ErrNotConnected) {
			s.logger.Warn(ctx, "skipping monitor tick: platform not connected")
		} else {
			s.logger.Error(ctx, err, "break-even monitor tick failed")
		}
	}
	if err := s.recorder.Tick(ctx); err != nil {
		if errors.Is(err, ports.ErrNotConnected) {
			s.logger.Warn(ctx, "skipping recorder tick: platform not connected")
		} else {
			s.logger.Error(ctx, err, "result recorder tick failed")
		}
	}
}
