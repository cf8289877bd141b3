package ports

import (
	"context"

	"mt5SignalBot/internal/domain"
)

// MessageHandler consumes one inbound chat message that already passed the
// channel-map filter.
type MessageHandler func(ctx context.Context, rawText string, tag domain.ChannelTag)

// MessageSource is the chat-ingestion boundary. Listen blocks until the
// context is cancelled, invoking the handler once per message from a mapped
// channel. Messages from unmapped channels are dropped inside the adapter.
type MessageSource interface {
	Listen(ctx context.Context, handler MessageHandler) error
}
