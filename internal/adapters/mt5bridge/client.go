// Package mt5bridge implements the PlatformClient port over a websocket
// connection to a gateway EA running inside the MetaTrader 5 terminal.
// The terminal owns the broker session; this client owns keeping the
// websocket alive and translating between domain values and the wire.
package mt5bridge

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"mt5SignalBot/internal/domain"
	"mt5SignalBot/internal/ports"
)

// Config for the bridge client.
type Config struct {
	// URL of the gateway websocket endpoint, e.g. "ws://127.0.0.1:8765/mt5".
	URL string
	// Logger is required.
	Logger ports.Logger
	// ReconnectDelay between redial attempts while the link is down.
	ReconnectDelay time.Duration
	// MaxReconnectAttempts per outage; 0 means keep trying forever.
	MaxReconnectAttempts int
	// CallTimeout bounds a single request/response round trip.
	CallTimeout time.Duration
}

// Client is a PlatformClient talking to the MT5 gateway. All calls share
// one connection and one request/response cycle at a time; the mutex below
// enforces that even if the upstream single-flight discipline is violated.
type Client struct {
	cfg    Config
	logger ports.Logger
	dialer *websocket.Dialer

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	seq       uint64

	stop chan struct{}
}

// New creates the client and dials the gateway. A failed first dial is not
// fatal: the keepalive loop keeps retrying and calls fail with
// ErrNotConnected until the link is up.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: bridge URL must be set", ports.ErrConfigurationErr)
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: bridge needs a logger", ports.ErrMissingDependency)
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}

	c := &Client{
		cfg:    cfg,
		logger: cfg.Logger,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.CallTimeout},
		stop:   make(chan struct{}),
	}

	if err := c.dial(); err != nil {
		c.logger.Warn(context.Background(), "initial bridge dial failed, will keep retrying", map[string]interface{}{
			"url":   cfg.URL,
			"error": err.Error(),
		})
	}

	go c.keepalive()
	return c, nil
}

// Close tears down the keepalive loop and the connection.
func (c *Client) Close() error {
	close(c.stop)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected reports whether the gateway link is currently usable.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) dial() error {
	conn, resp, err := c.dialer.Dial(c.cfg.URL, http.Header{})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ports.ErrConnectionFailed, err)
	}

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.logger.Info(context.Background(), "connected to MT5 bridge", map[string]interface{}{"url": c.cfg.URL})
	return nil
}

// keepalive pings the gateway and redials when the link drops. It plays the
// session-manager role: the rest of the engine only ever sees a connected /
// not-connected precondition.
func (c *Client) keepalive() {
	ticker := time.NewTicker(c.cfg.ReconnectDelay)
	defer ticker.Stop()

	attempts := 0
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
		}

		if c.IsConnected() {
			ctx, cancel := context.WithTimeout(context.Background(), c.cfg.CallTimeout)
			err := c.call(ctx, methodPing, nil, nil)
			cancel()
			if err == nil {
				attempts = 0
				continue
			}
			c.logger.Warn(context.Background(), "bridge ping failed, link marked down", map[string]interface{}{
				"error": err.Error(),
			})
		}

		if c.cfg.MaxReconnectAttempts > 0 && attempts >= c.cfg.MaxReconnectAttempts {
			continue // stay down; operator intervention needed
		}
		attempts++
		if err := c.dial(); err != nil {
			c.logger.Warn(context.Background(), "bridge redial failed", map[string]interface{}{
				"attempt": attempts,
				"error":   err.Error(),
			})
		} else {
			attempts = 0
		}
	}
}

// call runs one request/response round trip. Any transport error marks the
// link down so the keepalive loop redials.
func (c *Client) call(ctx context.Context, method string, params, out interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected || c.conn == nil {
		return ports.ErrNotConnected
	}

	c.seq++
	req := request{ID: c.seq, Method: method, Params: params}
	payload, err := sonic.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	deadline := time.Now().Add(c.cfg.CallTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.markDownLocked(err)
		return fmt.Errorf("%w: write %s: %v", ports.ErrPlatformCall, method, err)
	}

	_ = c.conn.SetReadDeadline(deadline)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.markDownLocked(err)
			return fmt.Errorf("%w: read %s: %v", ports.ErrPlatformCall, method, err)
		}

		var resp response
		if err := sonic.Unmarshal(data, &resp); err != nil {
			return fmt.Errorf("%w: %v", ports.ErrBridgeProtocol, err)
		}
		if resp.ID != req.ID {
			// Stale response from a timed-out call; skip it.
			continue
		}
		if resp.Error != "" {
			return fmt.Errorf("%w: %s: %s", ports.ErrPlatformCall, method, resp.Error)
		}
		if out != nil {
			if err := sonic.Unmarshal(resp.Result, out); err != nil {
				return fmt.Errorf("%w: %s result: %v", ports.ErrBridgeProtocol, method, err)
			}
		}
		return nil
	}
}

func (c *Client) markDownLocked(err error) {
	c.connected = false
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// GetSymbolInfo retrieves instrument properties. The gateway selects the
// symbol in the terminal's market watch as a side effect.
func (c *Client) GetSymbolInfo(ctx context.Context, symbol string) (*ports.SymbolInfo, error) {
	var payload symbolInfoPayload
	if err := c.call(ctx, methodSymbolInfo, symbolParams{Symbol: symbol}, &payload); err != nil {
		return nil, err
	}
	if payload.Name == "" {
		return nil, fmt.Errorf("%w: %s", ports.ErrSymbolNotFound, symbol)
	}
	return &ports.SymbolInfo{
		Name:        payload.Name,
		Point:       payload.Point,
		Digits:      payload.Digits,
		StopsLevel:  payload.StopsLevel,
		ContractLot: payload.ContractLot,
	}, nil
}

// GetTick retrieves the latest quote.
func (c *Client) GetTick(ctx context.Context, symbol string) (*ports.Tick, error) {
	var payload tickPayload
	if err := c.call(ctx, methodTick, symbolParams{Symbol: symbol}, &payload); err != nil {
		return nil, err
	}
	return &ports.Tick{
		Bid:  payload.Bid,
		Ask:  payload.Ask,
		Time: time.Unix(payload.Time, 0),
	}, nil
}

// PlaceOrder submits one order request.
func (c *Client) PlaceOrder(ctx context.Context, req *ports.OrderRequest) (*ports.OrderResult, error) {
	action := tradeActionDeal
	if req.Kind.IsPending() {
		action = tradeActionPending
	}

	params := orderSendParams{
		Action:      action,
		Symbol:      req.Symbol,
		Volume:      req.Volume,
		Type:        wireOrderType(req.Side, req.Kind),
		Price:       req.Price,
		StopLoss:    req.StopLoss,
		TakeProfit:  req.TakeProfit,
		Deviation:   req.Deviation,
		Magic:       int(req.Tag),
		Comment:     req.FamilyID,
		TypeTime:    orderTimeGTC,
		TypeFilling: wireFilling(req.Filling),
	}

	var payload orderResultPayload
	if err := c.call(ctx, methodOrderSend, params, &payload); err != nil {
		return nil, err
	}
	return &ports.OrderResult{
		RetCode:    payload.RetCode,
		OrderID:    payload.Order,
		Diagnostic: payload.Comment,
	}, nil
}

// ModifyPosition updates a position's protective levels via a SLTP request.
func (c *Client) ModifyPosition(ctx context.Context, req *ports.ModifyRequest) (*ports.OrderResult, error) {
	params := orderSendParams{
		Action:     tradeActionSLTP,
		Position:   req.Ticket,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
	}

	var payload orderResultPayload
	if err := c.call(ctx, methodOrderSend, params, &payload); err != nil {
		return nil, err
	}
	return &ports.OrderResult{
		RetCode:    payload.RetCode,
		OrderID:    payload.Order,
		Diagnostic: payload.Comment,
	}, nil
}

// GetPositions lists open positions. The symbol filter runs gateway-side,
// the tag filter here.
func (c *Client) GetPositions(ctx context.Context, filter ports.PositionFilter) ([]*domain.Position, error) {
	var payload []positionPayload
	if err := c.call(ctx, methodPositionsGet, positionsParams{Symbol: filter.Symbol}, &payload); err != nil {
		return nil, err
	}

	positions := make([]*domain.Position, 0, len(payload))
	for _, p := range payload {
		if filter.Tag != 0 && domain.ChannelTag(p.Magic) != filter.Tag {
			continue
		}
		side := domain.SideSell
		if p.Type == positionTypeBuy {
			side = domain.SideBuy
		}
		positions = append(positions, &domain.Position{
			Ticket:     p.Ticket,
			Symbol:     p.Symbol,
			Side:       side,
			Volume:     p.Volume,
			OpenPrice:  p.PriceOpen,
			StopLoss:   p.StopLoss,
			TakeProfit: p.TakeProfit,
			Tag:        domain.ChannelTag(p.Magic),
			FamilyID:   p.Comment,
			OpenTime:   time.Unix(p.Time, 0),
		})
	}
	return positions, nil
}

// GetDeals lists historical deals closed within [from, to).
func (c *Client) GetDeals(ctx context.Context, from, to time.Time) ([]*domain.Deal, error) {
	var payload []dealPayload
	if err := c.call(ctx, methodDealsGet, dealsParams{From: from.Unix(), To: to.Unix()}, &payload); err != nil {
		return nil, err
	}

	deals := make([]*domain.Deal, 0, len(payload))
	for _, d := range payload {
		side := domain.SideSell
		if d.Type == orderTypeBuy {
			side = domain.SideBuy
		}
		entry := domain.DealEntryIn
		if d.Entry == dealEntryOut {
			entry = domain.DealEntryOut
		}
		deals = append(deals, &domain.Deal{
			Ticket:   d.Ticket,
			Symbol:   d.Symbol,
			Side:     side,
			Profit:   d.Profit,
			Entry:    entry,
			Reason:   wireReason(d.Reason),
			Tag:      domain.ChannelTag(d.Magic),
			FamilyID: d.Comment,
			Time:     time.Unix(d.Time, 0),
		})
	}
	return deals, nil
}

func wireOrderType(side domain.PositionSide, kind domain.OrderType) int {
	switch kind {
	case domain.OrderBuyLimit:
		return orderTypeBuyLimit
	case domain.OrderSellLimit:
		return orderTypeSellLimit
	case domain.OrderBuyStop:
		return orderTypeBuyStop
	case domain.OrderSellStop:
		return orderTypeSellStop
	default:
		if side == domain.SideSell {
			return orderTypeSell
		}
		return orderTypeBuy
	}
}

func wireFilling(f ports.FillPolicy) int {
	if f == ports.FillReturn {
		return orderFillingReturn
	}
	return orderFillingFOK
}

func wireReason(reason int) domain.CloseReason {
	switch reason {
	case dealReasonTP:
		return domain.CloseReasonTakeProfit
	case dealReasonSL:
		return domain.CloseReasonStopLoss
	default:
		return domain.CloseReasonOther
	}
}
