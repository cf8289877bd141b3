package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fptr(v float64) *float64 { return &v }

func TestTradeSignalValidate(t *testing.T) {
	tests := []struct {
		name    string
		sig     TradeSignal
		wantErr error
	}{
		{
			name: "valid market buy",
			sig: TradeSignal{
				Symbol:      "XAUUSD",
				Action:      ActionBuy,
				OrderType:   OrderMarket,
				EntryRange:  []float64{4000.5},
				StopLoss:    fptr(3995.0),
				TakeProfits: []float64{4005.0, 4010.0},
			},
		},
		{
			name: "valid market sell without entry range",
			sig: TradeSignal{
				Symbol:      "EURUSD",
				Action:      ActionSell,
				OrderType:   OrderMarket,
				StopLoss:    fptr(1.0950),
				TakeProfits: []float64{1.0900},
			},
		},
		{
			name: "valid pending buy stop",
			sig: TradeSignal{
				Symbol:      "GBPUSD",
				Action:      ActionBuy,
				OrderType:   OrderBuyStop,
				EntryRange:  []float64{1.2800},
				StopLoss:    fptr(1.2750),
				TakeProfits: []float64{1.2850, 1.2900, 1.2950},
			},
		},
		{
			name: "valid break-even modify",
			sig: TradeSignal{
				Symbol:    "XAUUSD",
				Action:    ActionModify,
				OrderType: OrderBreakEven,
			},
		},
		{
			name: "valid move sl modify",
			sig: TradeSignal{
				Symbol:    "XAUUSD",
				Action:    ActionModify,
				OrderType: OrderMoveSL,
				Value:     fptr(4002.0),
			},
		},
		{
			name:    "missing symbol",
			sig:     TradeSignal{Action: ActionBuy, OrderType: OrderMarket},
			wantErr: ErrMissingSymbol,
		},
		{
			name:    "unknown action",
			sig:     TradeSignal{Symbol: "XAUUSD", Action: "HOLD"},
			wantErr: ErrUnknownAction,
		},
		{
			name: "new trade with modify order type",
			sig: TradeSignal{
				Symbol:      "XAUUSD",
				Action:      ActionBuy,
				OrderType:   OrderBreakEven,
				StopLoss:    fptr(3995.0),
				TakeProfits: []float64{4005.0},
			},
			wantErr: ErrUnknownOrderType,
		},
		{
			name: "missing stop loss",
			sig: TradeSignal{
				Symbol:      "XAUUSD",
				Action:      ActionBuy,
				OrderType:   OrderMarket,
				TakeProfits: []float64{4005.0},
			},
			wantErr: ErrMissingStopLoss,
		},
		{
			name: "no take profits",
			sig: TradeSignal{
				Symbol:    "XAUUSD",
				Action:    ActionBuy,
				OrderType: OrderMarket,
				StopLoss:  fptr(3995.0),
			},
			wantErr: ErrNoTakeProfits,
		},
		{
			name: "entry range too long",
			sig: TradeSignal{
				Symbol:      "XAUUSD",
				Action:      ActionBuy,
				OrderType:   OrderMarket,
				EntryRange:  []float64{4000.0, 4001.0, 4002.0},
				StopLoss:    fptr(3995.0),
				TakeProfits: []float64{4005.0},
			},
			wantErr: ErrBadEntryRange,
		},
		{
			name: "move tp without value",
			sig: TradeSignal{
				Symbol:    "XAUUSD",
				Action:    ActionModify,
				OrderType: OrderMoveTP,
			},
			wantErr: ErrMissingValue,
		},
		{
			name: "modify with market order type",
			sig: TradeSignal{
				Symbol:    "XAUUSD",
				Action:    ActionModify,
				OrderType: OrderMarket,
			},
			wantErr: ErrUnknownOrderType,
		},
		{
			name: "modify carrying trade levels",
			sig: TradeSignal{
				Symbol:    "XAUUSD",
				Action:    ActionModify,
				OrderType: OrderBreakEven,
				StopLoss:  fptr(4000.0),
			},
			wantErr: ErrModifyWithLevels,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sig.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTradeSignalSide(t *testing.T) {
	buy := TradeSignal{Action: ActionBuy}
	sell := TradeSignal{Action: ActionSell}
	assert.Equal(t, SideBuy, buy.Side())
	assert.Equal(t, SideSell, sell.Side())
}

func TestOrderTypeClassification(t *testing.T) {
	assert.False(t, OrderMarket.IsPending())
	assert.True(t, OrderBuyLimit.IsPending())
	assert.True(t, OrderSellStop.IsPending())
	assert.False(t, OrderBreakEven.IsPending())

	assert.True(t, OrderBreakEven.IsModification())
	assert.True(t, OrderMoveSL.IsModification())
	assert.True(t, OrderMoveTP.IsModification())
	assert.False(t, OrderMarket.IsModification())
	assert.False(t, OrderBuyStop.IsModification())
}
