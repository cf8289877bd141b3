package ports

import "errors"

// Standard application-level errors.
// Adapters and services wrap underlying failures with these so callers can
// classify them with errors.Is.
var (
	// Precondition failures: the operation is abandoned, no retry.
	ErrNotConnected      = errors.New("trading platform is not connected")
	ErrSymbolNotFound    = errors.New("symbol not found on the platform")
	ErrMissingTrigger    = errors.New("pending order signal is missing its trigger price")
	ErrInvalidSignal     = errors.New("signal failed validation")
	ErrConfigurationErr  = errors.New("invalid or missing configuration")
	ErrMissingDependency = errors.New("missing required dependency")

	// Validation rejections: deliberate skips, not errors.
	ErrPriceOutOfRange = errors.New("price outside entry tolerance")
	ErrStopsTooClose   = errors.New("trigger price violates minimum stop distance")

	// Platform failures.
	ErrOrderRejected    = errors.New("platform rejected the order")
	ErrModifyRejected   = errors.New("platform rejected the modification")
	ErrPlatformCall     = errors.New("platform call failed")
	ErrBridgeProtocol   = errors.New("malformed bridge response")
	ErrConnectionFailed = errors.New("failed to connect to the platform bridge")

	// Collaborator failures.
	ErrParserUnavailable = errors.New("signal parser is unavailable")
)
