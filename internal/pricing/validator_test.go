package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mt5SignalBot/internal/domain"
	"mt5SignalBot/internal/ports"
)

func TestIsMetals(t *testing.T) {
	assert.True(t, IsMetals("XAUUSD"))
	assert.True(t, IsMetals("GOLD"))
	assert.True(t, IsMetals("xauusd"))
	assert.True(t, IsMetals("XAGUSD"))
	assert.False(t, IsMetals("EURUSD"))
	assert.False(t, IsMetals("GBPJPY"))
}

func TestTolerance(t *testing.T) {
	v := New(Config{ToleranceFactor: 50, MetalsTolerance: 2.0})

	// Ordinary instruments scale with the point size.
	assert.InDelta(t, 0.0050, v.Tolerance("EURUSD", 0.0001), 1e-9)
	// Metals get the fixed absolute tolerance regardless of point.
	assert.InDelta(t, 2.0, v.Tolerance("XAUUSD", 0.01), 1e-9)
}

func TestCheckMarketEntry_Zone(t *testing.T) {
	v := New(Config{MetalsTolerance: 2.0})
	tol := 2.0

	tests := []struct {
		name   string
		action domain.Action
		price  float64
		zone   []float64
		accept bool
	}{
		{"inside zone", domain.ActionBuy, 2000.75, []float64{2000.50, 2001.00}, true},
		{"inside widened zone below", domain.ActionBuy, 1998.60, []float64{2000.50, 2001.00}, true},
		{"inside widened zone above", domain.ActionSell, 2002.90, []float64{2000.50, 2001.00}, true},
		{"below widened zone", domain.ActionBuy, 1998.40, []float64{2000.50, 2001.00}, false},
		{"above widened zone", domain.ActionBuy, 2003.10, []float64{2000.50, 2001.00}, false},
		// Bound ordering must not matter.
		{"reversed bounds accept", domain.ActionSell, 2000.75, []float64{2001.00, 2000.50}, true},
		{"reversed bounds reject", domain.ActionSell, 2003.10, []float64{2001.00, 2000.50}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.CheckMarketEntry(tt.action, tt.price, tt.zone, tol)
			if tt.accept {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ports.ErrPriceOutOfRange)
			}
		})
	}
}

func TestCheckMarketEntry_SingleTarget(t *testing.T) {
	v := New(Config{})
	tol := 2.0

	tests := []struct {
		name   string
		action domain.Action
		price  float64
		target float64
		accept bool
	}{
		{"buy at target", domain.ActionBuy, 4000.5, 4000.5, true},
		{"buy within tolerance above", domain.ActionBuy, 4001.0, 4000.5, true},
		{"buy too high", domain.ActionBuy, 4010.0, 4000.5, false},
		{"buy favorable below target", domain.ActionBuy, 3990.0, 4000.5, true},
		{"sell at target", domain.ActionSell, 4000.5, 4000.5, true},
		{"sell within tolerance below", domain.ActionSell, 3999.0, 4000.5, true},
		{"sell too low", domain.ActionSell, 3990.0, 4000.5, false},
		{"sell favorable above target", domain.ActionSell, 4010.0, 4000.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.CheckMarketEntry(tt.action, tt.price, []float64{tt.target}, tol)
			if tt.accept {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ports.ErrPriceOutOfRange)
			}
		})
	}
}

func TestCheckMarketEntry_EmptyRangeAlwaysAccepts(t *testing.T) {
	v := New(Config{})
	assert.NoError(t, v.CheckMarketEntry(domain.ActionBuy, 12345.0, nil, 0.5))
	assert.NoError(t, v.CheckMarketEntry(domain.ActionSell, 0.0001, []float64{}, 0.5))
}

func TestCheckPendingDistance(t *testing.T) {
	// point 0.01, stops level 30 points, safety 10 points => min dist 0.40
	v := New(Config{SafetyBufferPoints: 10})
	const (
		bid        = 2000.00
		ask        = 2000.20
		point      = 0.01
		stopsLevel = 30
	)

	tests := []struct {
		name    string
		kind    domain.OrderType
		trigger float64
		accept  bool
	}{
		{"buy stop far enough above ask", domain.OrderBuyStop, 2000.61, true},
		{"buy stop too close", domain.OrderBuyStop, 2000.60, false},
		{"buy limit far enough below ask", domain.OrderBuyLimit, 1999.79, true},
		{"buy limit too close", domain.OrderBuyLimit, 1999.80, false},
		{"sell stop far enough below bid", domain.OrderSellStop, 1999.59, true},
		{"sell stop too close", domain.OrderSellStop, 1999.60, false},
		{"sell limit far enough above bid", domain.OrderSellLimit, 2000.41, true},
		{"sell limit too close", domain.OrderSellLimit, 2000.40, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.CheckPendingDistance(tt.kind, tt.trigger, bid, ask, point, stopsLevel)
			if tt.accept {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ports.ErrStopsTooClose)
			}
		})
	}
}

func TestCheckPendingDistance_RejectsMarketKind(t *testing.T) {
	v := New(Config{})
	err := v.CheckPendingDistance(domain.OrderMarket, 100, 99, 101, 0.01, 10)
	assert.ErrorIs(t, err, ports.ErrInvalidSignal)
}
