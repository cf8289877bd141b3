package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mt5SignalBot/config"
	"mt5SignalBot/internal/domain"
	"mt5SignalBot/internal/ports"
)

// --- Mocks ---

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (nopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type mockPlatform struct{ connected bool }

func (m *mockPlatform) IsConnected() bool { return m.connected }
func (m *mockPlatform) GetSymbolInfo(ctx context.Context, symbol string) (*ports.SymbolInfo, error) {
	return nil, ports.ErrSymbolNotFound
}
func (m *mockPlatform) GetTick(ctx context.Context, symbol string) (*ports.Tick, error) {
	return nil, errors.New("not implemented")
}
func (m *mockPlatform) PlaceOrder(ctx context.Context, req *ports.OrderRequest) (*ports.OrderResult, error) {
	return nil, errors.New("not implemented")
}
func (m *mockPlatform) ModifyPosition(ctx context.Context, req *ports.ModifyRequest) (*ports.OrderResult, error) {
	return nil, errors.New("not implemented")
}
func (m *mockPlatform) GetPositions(ctx context.Context, filter ports.PositionFilter) ([]*domain.Position, error) {
	return nil, nil
}
func (m *mockPlatform) GetDeals(ctx context.Context, from, to time.Time) ([]*domain.Deal, error) {
	return nil, nil
}

type mockParser struct {
	sig *domain.TradeSignal
	err error
}

func (m *mockParser) ParseSignal(ctx context.Context, rawText string) (*domain.TradeSignal, error) {
	return m.sig, m.err
}

type mockSource struct{ err error }

func (m *mockSource) Listen(ctx context.Context, handler ports.MessageHandler) error {
	if m.err != nil {
		return m.err
	}
	<-ctx.Done()
	return ctx.Err()
}

type executedCall struct {
	sig *domain.TradeSignal
	tag domain.ChannelTag
}

type mockEngine struct {
	calls []executedCall
	errs  []error // consumed per call; nil when exhausted
}

func (m *mockEngine) ExecuteSignal(ctx context.Context, sig *domain.TradeSignal, tag domain.ChannelTag) error {
	m.calls = append(m.calls, executedCall{sig: sig, tag: tag})
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return err
	}
	return nil
}

type mockTask struct {
	ticks int
	err   error
}

func (m *mockTask) Tick(ctx context.Context) error {
	m.ticks++
	return m.err
}

// --- Helpers ---

func fptr(v float64) *float64 { return &v }

func testConfig() *config.Config {
	return &config.Config{
		ChannelMap:      map[int64]domain.ChannelTag{-100: 1001},
		MonitorInterval: time.Minute,
	}
}

func marketSignal() *domain.TradeSignal {
	return &domain.TradeSignal{
		Symbol:      "XAUUSD",
		Action:      domain.ActionBuy,
		OrderType:   domain.OrderMarket,
		EntryRange:  []float64{4000.5},
		StopLoss:    fptr(3995.0),
		TakeProfits: []float64{4005.0},
	}
}

func newTestService(t *testing.T, cfg *config.Config, parser *mockParser, engine *mockEngine, monitor, recorder *mockTask) *Service {
	t.Helper()
	s, err := NewService(cfg, nopLogger{}, &mockPlatform{connected: true}, parser, &mockSource{}, engine, monitor, recorder)
	require.NoError(t, err)
	return s
}

// --- Tests ---

func TestNewServiceValidatesWiring(t *testing.T) {
	_, err := NewService(testConfig(), nopLogger{}, &mockPlatform{}, nil, &mockSource{}, &mockEngine{}, &mockTask{}, &mockTask{})
	assert.ErrorIs(t, err, ports.ErrMissingDependency)

	cfg := testConfig()
	cfg.MonitorInterval = 0
	_, err = NewService(cfg, nopLogger{}, &mockPlatform{}, &mockParser{}, &mockSource{}, &mockEngine{}, &mockTask{}, &mockTask{})
	assert.ErrorIs(t, err, ports.ErrConfigurationErr)
}

func TestHandleMessageExecutesParsedSignal(t *testing.T) {
	engine := &mockEngine{}
	s := newTestService(t, testConfig(), &mockParser{sig: marketSignal()}, engine, &mockTask{}, &mockTask{})

	s.HandleMessage(context.Background(), "GOLD BUY NOW @4000.5 SL 3995 TP 4005", 1001)

	require.Len(t, engine.calls, 1)
	assert.Equal(t, "XAUUSD", engine.calls[0].sig.Symbol)
	assert.Equal(t, domain.ChannelTag(1001), engine.calls[0].tag)
}

func TestHandleMessageDropsChatter(t *testing.T) {
	engine := &mockEngine{}
	s := newTestService(t, testConfig(), &mockParser{sig: nil}, engine, &mockTask{}, &mockTask{})

	s.HandleMessage(context.Background(), "good morning traders", 1001)
	assert.Empty(t, engine.calls)
}

func TestHandleMessageDropsOnParserFailure(t *testing.T) {
	engine := &mockEngine{}
	parser := &mockParser{err: fmt.Errorf("%w: upstream 503", ports.ErrParserUnavailable)}
	s := newTestService(t, testConfig(), parser, engine, &mockTask{}, &mockTask{})

	s.HandleMessage(context.Background(), "GOLD BUY NOW", 1001)
	assert.Empty(t, engine.calls)
}

func TestHandleMessageRecoversFromPanic(t *testing.T) {
	engine := &mockEngine{}
	s := newTestService(t, testConfig(), &mockParser{sig: marketSignal()}, engine, &mockTask{}, &mockTask{})
	s.engine = panicEngine{}

	assert.NotPanics(t, func() {
		s.HandleMessage(context.Background(), "GOLD BUY NOW", 1001)
	})
}

type panicEngine struct{}

func (panicEngine) ExecuteSignal(ctx context.Context, sig *domain.TradeSignal, tag domain.ChannelTag) error {
	panic("boom")
}

func TestRunTickDrivesMonitorAndRecorder(t *testing.T) {
	monitor := &mockTask{}
	recorder := &mockTask{}
	s := newTestService(t, testConfig(), &mockParser{}, &mockEngine{}, monitor, recorder)

	s.runTick(context.Background())

	assert.Equal(t, 1, monitor.ticks)
	assert.Equal(t, 1, recorder.ticks)
}

func TestRunTickMonitorFailureDoesNotBlockRecorder(t *testing.T) {
	monitor := &mockTask{err: errors.New("boom")}
	recorder := &mockTask{}
	s := newTestService(t, testConfig(), &mockParser{}, &mockEngine{}, monitor, recorder)

	s.runTick(context.Background())

	assert.Equal(t, 1, recorder.ticks)
}

func TestRejectedMarketEntryRetriedOnce(t *testing.T) {
	cfg := testConfig()
	cfg.RetryRejectedEntries = true

	// Rejected on arrival, rejected again on the retry.
	engine := &mockEngine{errs: []error{ports.ErrPriceOutOfRange, ports.ErrPriceOutOfRange}}
	s := newTestService(t, cfg, &mockParser{sig: marketSignal()}, engine, &mockTask{}, &mockTask{})

	s.HandleMessage(context.Background(), "GOLD BUY NOW", 1001)
	require.Len(t, engine.calls, 1)

	// First tick drains the retry queue.
	s.runTick(context.Background())
	require.Len(t, engine.calls, 2)

	// A failed retry is never requeued.
	s.runTick(context.Background())
	assert.Len(t, engine.calls, 2)
}

func TestRejectedEntryNotRetriedWhenDisabled(t *testing.T) {
	engine := &mockEngine{errs: []error{ports.ErrPriceOutOfRange}}
	s := newTestService(t, testConfig(), &mockParser{sig: marketSignal()}, engine, &mockTask{}, &mockTask{})

	s.HandleMessage(context.Background(), "GOLD BUY NOW", 1001)
	s.runTick(context.Background())

	assert.Len(t, engine.calls, 1)
}

func TestRejectedPendingEntryNeverRetried(t *testing.T) {
	cfg := testConfig()
	cfg.RetryRejectedEntries = true

	sig := marketSignal()
	sig.OrderType = domain.OrderBuyStop

	engine := &mockEngine{errs: []error{ports.ErrStopsTooClose}}
	s := newTestService(t, cfg, &mockParser{sig: sig}, engine, &mockTask{}, &mockTask{})

	s.HandleMessage(context.Background(), "GOLD BUY STOP", 1001)
	s.runTick(context.Background())

	assert.Len(t, engine.calls, 1, "only market orders qualify for the retry policy")
}

func TestStartStopsOnContextCancel(t *testing.T) {
	s := newTestService(t, testConfig(), &mockParser{}, &mockEngine{}, &mockTask{}, &mockTask{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop on context cancellation")
	}
}

func TestStartReturnsSourceFailure(t *testing.T) {
	s := newTestService(t, testConfig(), &mockParser{}, &mockEngine{}, &mockTask{}, &mockTask{})
	s.source = &mockSource{err: errors.New("telegram stream broken")}

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
}
