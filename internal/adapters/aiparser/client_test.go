package aiparser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mt5SignalBot/internal/domain"
	"mt5SignalBot/internal/ports"
)

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (nopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

const validSignalJSON = `{"symbol":"XAUUSD","action":"BUY","order_type":"MARKET","entry_range":[4000.5],"sl":3995.0,"tp_list":[4005.0,4010.0]}`

// completionWith wraps model output into a chat-completions response body.
func completionWith(content string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"content":%q}}]}`, content)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := New(Config{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "test-model",
		Logger:  nopLogger{},
	})
	require.NoError(t, err)
	return c, server
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Model: "m", Logger: nopLogger{}})
	assert.ErrorIs(t, err, ports.ErrConfigurationErr)

	_, err = New(Config{APIKey: "k", Model: "m"})
	assert.ErrorIs(t, err, ports.ErrMissingDependency)
}

func TestParseSignalValid(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, completionWith(validSignalJSON))
	})

	sig, err := c.ParseSignal(context.Background(), "GOLD BUY NOW @4000.5 SL 3995 TP 4005 4010")
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, "XAUUSD", sig.Symbol)
	assert.Equal(t, domain.ActionBuy, sig.Action)
	assert.Equal(t, domain.OrderMarket, sig.OrderType)
	require.NotNil(t, sig.StopLoss)
	assert.Equal(t, 3995.0, *sig.StopLoss)
	assert.Equal(t, []float64{4005.0, 4010.0}, sig.TakeProfits)
}

func TestParseSignalNullMeansChatter(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionWith("null"))
	})

	sig, err := c.ParseSignal(context.Background(), "good morning everyone")
	assert.NoError(t, err)
	assert.Nil(t, sig)
}

func TestParseSignalStripsMarkdownFences(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionWith("```json\n"+validSignalJSON+"\n```"))
	})

	sig, err := c.ParseSignal(context.Background(), "GOLD BUY NOW")
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, "XAUUSD", sig.Symbol)
}

func TestParseSignalUnwrapsEnvelope(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionWith(`{"signal":`+validSignalJSON+`}`))
	})

	sig, err := c.ParseSignal(context.Background(), "GOLD BUY NOW")
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, "XAUUSD", sig.Symbol)
}

func TestParseSignalIncompletePayloadDropped(t *testing.T) {
	// No stop-loss: the payload fails validation and counts as chatter.
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionWith(`{"symbol":"XAUUSD","action":"BUY","order_type":"MARKET","tp_list":[4005.0]}`))
	})

	sig, err := c.ParseSignal(context.Background(), "vague gold talk")
	assert.NoError(t, err)
	assert.Nil(t, sig)
}

func TestParseSignalGarbageOutputDropped(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionWith("I think gold looks bullish today"))
	})

	sig, err := c.ParseSignal(context.Background(), "thoughts on gold?")
	assert.NoError(t, err)
	assert.Nil(t, sig)
}

func TestParseSignalAPIErrorPropagates(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := c.ParseSignal(context.Background(), "GOLD BUY NOW")
	assert.ErrorIs(t, err, ports.ErrParserUnavailable)
}

func TestParseSignalNetworkErrorPropagates(t *testing.T) {
	c, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	_, err := c.ParseSignal(context.Background(), "GOLD BUY NOW")
	assert.ErrorIs(t, err, ports.ErrParserUnavailable)
}

func TestParseSignalEmptyCompletion(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	})

	_, err := c.ParseSignal(context.Background(), "GOLD BUY NOW")
	assert.ErrorIs(t, err, ports.ErrParserUnavailable)
}
