package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeCredentialsMissing Code = "CREDENTIALS_MISSING"

	// External service errors
	CodeServiceTimeout     Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded  Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Exchange error codes
const (
	// Network failure or non-2xx response from the exchange.
	CodeTransportError Code = "TRANSPORT_ERROR"
	// Exchange rejected the request with a JSON error body.
	CodeExchangeAPIError Code = "EXCHANGE_API_ERROR"
	CodeClockSyncFailed  Code = "CLOCK_SYNC_FAILED"

	// Snapshot validation
	CodeQuoteParseError Code = "QUOTE_PARSE_ERROR"
	CodeInvalidBalance  Code = "INVALID_BALANCE"
	CodeLotSizeNotFound Code = "LOT_SIZE_NOT_FOUND"
)

// Trading error codes
const (
	CodeInvalidPrecision  Code = "INVALID_PRECISION"
	CodeNoConversionPath  Code = "NO_CONVERSION_PATH"
	CodeOrderNotFilled    Code = "ORDER_NOT_FILLED"
	CodeOrderRejected     Code = "ORDER_REJECTED"
	CodeNotInitialized    Code = "NOT_INITIALIZED"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"

	// Circuit breaker errors
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
