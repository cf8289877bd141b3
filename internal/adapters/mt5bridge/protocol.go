package mt5bridge

import "encoding/json"

// Wire protocol of the gateway EA running inside the MT5 terminal: one
// JSON request per call, one JSON response per request, correlated by id
// over a single websocket connection.

// Method names understood by the gateway.
const (
	methodPing         = "ping"
	methodSymbolInfo   = "symbol_info"
	methodTick         = "tick"
	methodOrderSend    = "order_send"
	methodPositionsGet = "positions_get"
	methodDealsGet     = "history_deals_get"
)

// MT5 numeric constants carried on the wire.
const (
	tradeActionDeal    = 1 // TRADE_ACTION_DEAL: immediate execution
	tradeActionPending = 5 // TRADE_ACTION_PENDING: place pending order
	tradeActionSLTP    = 6 // TRADE_ACTION_SLTP: modify position levels

	orderTypeBuy       = 0
	orderTypeSell      = 1
	orderTypeBuyLimit  = 2
	orderTypeSellLimit = 3
	orderTypeBuyStop   = 4
	orderTypeSellStop  = 5

	orderTimeGTC = 0

	orderFillingFOK    = 0
	orderFillingReturn = 2

	positionTypeBuy = 0 // POSITION_TYPE_BUY; 1 is SELL

	dealEntryOut = 1 // DEAL_ENTRY_OUT: the deal closed a position

	dealReasonSL = 3 // DEAL_REASON_SL
	dealReasonTP = 4 // DEAL_REASON_TP
)

type request struct {
	ID     uint64      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

type response struct {
	ID     uint64          `json:"id"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

type symbolParams struct {
	Symbol string `json:"symbol"`
}

type symbolInfoPayload struct {
	Name        string  `json:"name"`
	Point       float64 `json:"point"`
	Digits      int     `json:"digits"`
	StopsLevel  int     `json:"trade_stops_level"`
	ContractLot float64 `json:"trade_contract_size"`
}

type tickPayload struct {
	Bid  float64 `json:"bid"`
	Ask  float64 `json:"ask"`
	Time int64   `json:"time"` // unix seconds
}

// orderSendParams mirrors the MqlTradeRequest the gateway forwards to
// order_send.
type orderSendParams struct {
	Action      int     `json:"action"`
	Symbol      string  `json:"symbol,omitempty"`
	Volume      float64 `json:"volume,omitempty"`
	Type        int     `json:"type,omitempty"`
	Price       float64 `json:"price,omitempty"`
	StopLoss    float64 `json:"sl"`
	TakeProfit  float64 `json:"tp"`
	Deviation   int     `json:"deviation,omitempty"`
	Magic       int     `json:"magic,omitempty"`
	Comment     string  `json:"comment,omitempty"`
	TypeTime    int     `json:"type_time"`
	TypeFilling int     `json:"type_filling"`
	Position    int64   `json:"position,omitempty"` // ticket, for SLTP modifies
}

type orderResultPayload struct {
	RetCode int    `json:"retcode"`
	Order   int64  `json:"order"`
	Comment string `json:"comment"`
}

type positionsParams struct {
	Symbol string `json:"symbol,omitempty"`
}

type positionPayload struct {
	Ticket     int64   `json:"ticket"`
	Symbol     string  `json:"symbol"`
	Type       int     `json:"type"`
	Volume     float64 `json:"volume"`
	PriceOpen  float64 `json:"price_open"`
	StopLoss   float64 `json:"sl"`
	TakeProfit float64 `json:"tp"`
	Magic      int     `json:"magic"`
	Comment    string  `json:"comment"`
	Time       int64   `json:"time"`
}

type dealsParams struct {
	From int64 `json:"from"` // unix seconds, inclusive
	To   int64 `json:"to"`   // unix seconds, exclusive
}

type dealPayload struct {
	Ticket  int64   `json:"ticket"`
	Symbol  string  `json:"symbol"`
	Type    int     `json:"type"`
	Profit  float64 `json:"profit"`
	Entry   int     `json:"entry"`
	Reason  int     `json:"reason"`
	Magic   int     `json:"magic"`
	Comment string  `json:"comment"`
	Time    int64   `json:"time"`
}
