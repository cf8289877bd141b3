// Package aiparser implements the SignalParser port against an
// OpenAI-compatible chat-completions endpoint (OpenRouter). The model turns
// free-form chat text into the engine's signal JSON; everything that comes
// back malformed, incomplete or explicitly null is treated as "not a
// signal" and dropped.
package aiparser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"mt5SignalBot/internal/domain"
	"mt5SignalBot/internal/ports"
)

const systemPrompt = `You are a trading-signal parser. Convert the given message into the following JSON:

{
  "symbol": "",
  "action": "",
  "order_type": "",
  "entry_range": [],
  "sl": 0,
  "tp_list": [],
  "value": null
}

Rules:
1. SYMBOL: Map "Gold", "GOLD", "XAU", "XAUUSD" -> "XAUUSD". If missing -> null.
2. ACTION: BUY, SELL, or MODIFY. If missing -> null.
3. ORDER TYPE:
   - New orders: MARKET, BUY_LIMIT, SELL_LIMIT, BUY_STOP, SELL_STOP.
   - Modify: BREAK_EVEN, MOVE_SL, MOVE_TP.
4. ENTRY RANGE: MARKET: 1-2 numbers. Pending: 1 number. MODIFY: null.
5. SL: Required for new trades. One number. If missing -> null.
6. TP_LIST: At least 1 TP. If none -> null.
7. MODIFY: MOVE_SL or MOVE_TP -> "value" = updated level. BREAK_EVEN -> value = null. For MODIFY: sl = null, tp_list = null.
8. If not a valid trading signal -> return null.
9. Output JSON only. No text.`

// Config for the parser client.
type Config struct {
	// BaseURL of the chat-completions API.
	BaseURL string
	// APIKey for the provider.
	APIKey string
	// Model identifier, e.g. "tngtech/deepseek-r1t2-chimera:free".
	Model string
	// Timeout per parse request.
	Timeout time.Duration
	// Logger is required.
	Logger ports.Logger
}

// Client calls the model once per message and validates the reply into a
// TradeSignal.
type Client struct {
	cfg    Config
	logger ports.Logger
	http   *http.Client
}

// New creates the parser client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" || cfg.Model == "" {
		return nil, fmt.Errorf("%w: parser API key and model must be set", ports.ErrConfigurationErr)
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: parser needs a logger", ports.ErrMissingDependency)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &Client{
		cfg:    cfg,
		logger: cfg.Logger,
		http:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ParseSignal sends the raw text to the model and validates the structured
// reply. (nil, nil) means the message is not a trading signal.
func (c *Client) ParseSignal(ctx context.Context, rawText string) (*domain.TradeSignal, error) {
	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: rawText},
		},
	}
	reqBody.ResponseFormat.Type = "json_object"

	payload, err := sonic.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ports.ErrParserUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrParserUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrParserUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ports.ErrParserUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ports.ErrParserUnavailable, resp.StatusCode, truncate(string(data), 200))
	}

	var chat chatResponse
	if err := sonic.Unmarshal(data, &chat); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ports.ErrParserUnavailable, err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ports.ErrParserUnavailable)
	}

	return c.decodeSignal(ctx, chat.Choices[0].Message.Content)
}

// decodeSignal turns the model output into a validated signal, tolerating
// the usual model quirks: markdown fences, a literal "null", or the signal
// wrapped in a {"signal": {...}} envelope.
func (c *Client) decodeSignal(ctx context.Context, content string) (*domain.TradeSignal, error) {
	content = stripFences(content)
	if content == "" || strings.EqualFold(content, "null") {
		return nil, nil
	}

	content = unwrapEnvelope(content)

	var sig domain.TradeSignal
	if err := sonic.Unmarshal([]byte(content), &sig); err != nil {
		c.logger.Warn(ctx, "ignoring unparseable model output", map[string]interface{}{
			"output": truncate(content, 120),
		})
		return nil, nil
	}
	if err := sig.Validate(); err != nil {
		// Incomplete data usually means chatter, not a signal.
		c.logger.Debug(ctx, "ignoring incomplete signal payload", map[string]interface{}{
			"reason": err.Error(),
		})
		return nil, nil
	}
	return &sig, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// unwrapEnvelope unwraps {"signal": {...}} if that is the only key.
func unwrapEnvelope(s string) string {
	var envelope map[string]json.RawMessage
	if err := sonic.Unmarshal([]byte(s), &envelope); err != nil {
		return s
	}
	if inner, ok := envelope["signal"]; ok && len(envelope) == 1 {
		return string(inner)
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
