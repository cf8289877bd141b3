package main

import (
	"context"
	"log" // Use standard log only for fatal errors before the logger is up
	"net/http"

	"mt5SignalBot/config"
	"mt5SignalBot/internal/adapters/aiparser"
	"mt5SignalBot/internal/adapters/logger"
	"mt5SignalBot/internal/adapters/mt5bridge"
	"mt5SignalBot/internal/adapters/telegram"
	"mt5SignalBot/internal/app"
	"mt5SignalBot/internal/engine"
	"mt5SignalBot/internal/metrics"
	"mt5SignalBot/internal/monitor"
	"mt5SignalBot/internal/pricing"
	"mt5SignalBot/internal/recorder"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger, err := logger.NewZapLogger(logger.ParseLevel(cfg.LogLevel))
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()
	ctx := context.Background()
	appLogger.Info(ctx, "logger initialized", map[string]interface{}{"level": cfg.LogLevel})

	// 3. Initialize Platform Client (MT5 Bridge Adapter)
	bridge, err := mt5bridge.New(mt5bridge.Config{
		URL:                  cfg.BridgeURL,
		Logger:               appLogger,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		CallTimeout:          cfg.CallTimeout,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize MT5 bridge client")
		log.Fatalf("FATAL: Failed to initialize MT5 bridge client: %v", err)
	}
	defer func() {
		if err := bridge.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing MT5 bridge client")
		}
	}()
	appLogger.Info(ctx, "MT5 bridge client initialized")

	// 4. Initialize Signal Parser (OpenRouter Adapter)
	parser, err := aiparser.New(aiparser.Config{
		BaseURL: cfg.ParserBaseURL,
		APIKey:  cfg.ParserAPIKey,
		Model:   cfg.ParserModel,
		Timeout: cfg.ParserTimeout,
		Logger:  appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize signal parser")
		log.Fatalf("FATAL: Failed to initialize signal parser: %v", err)
	}
	appLogger.Info(ctx, "signal parser initialized", map[string]interface{}{"model": cfg.ParserModel})

	// 5. Initialize Message Source (Telegram Adapter)
	source, err := telegram.New(telegram.Config{
		Token:      cfg.TelegramToken,
		ChannelMap: cfg.ChannelMap,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Telegram listener")
		log.Fatalf("FATAL: Failed to initialize Telegram listener: %v", err)
	}
	appLogger.Info(ctx, "Telegram listener initialized", map[string]interface{}{"channels": len(cfg.ChannelMap)})

	// 6. Initialize Execution Engine
	validator := pricing.New(pricing.Config{
		ToleranceFactor:    cfg.TolerancePoints,
		MetalsTolerance:    cfg.MetalsTolerance,
		SafetyBufferPoints: cfg.StopsSafetyPoints,
	})
	exec, err := engine.New(engine.Config{
		LotSize:        cfg.LotSize,
		Deviation:      cfg.DeviationPoints,
		MetalsBEBuffer: cfg.MetalsBEBuffer,
	}, appLogger, bridge, validator)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize execution engine")
		log.Fatalf("FATAL: Failed to initialize execution engine: %v", err)
	}

	// 7. Initialize Periodic Tasks
	beMonitor, err := monitor.New(monitor.Config{
		DealLookback: cfg.DealLookback,
	}, appLogger, bridge, exec)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize break-even monitor")
		log.Fatalf("FATAL: Failed to initialize break-even monitor: %v", err)
	}

	resultRecorder, err := recorder.New(recorder.Config{
		Path: cfg.ResultsLogPath,
	}, appLogger, bridge)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize result recorder")
		log.Fatalf("FATAL: Failed to initialize result recorder: %v", err)
	}

	// 8. Serve Metrics
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			appLogger.Error(ctx, err, "metrics endpoint stopped", map[string]interface{}{"addr": cfg.MetricsAddr})
		}
	}()

	// 9. Initialize and Start the Service
	service, err := app.NewService(cfg, appLogger, bridge, parser, source, exec, beMonitor, resultRecorder)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize service")
		log.Fatalf("FATAL: Failed to initialize service: %v", err)
	}

	if err := service.Start(ctx); err != nil {
		appLogger.Error(ctx, err, "service exited with error")
		log.Fatalf("FATAL: Service exited with error: %v", err)
	}

	appLogger.Info(ctx, "application finished gracefully")
}
