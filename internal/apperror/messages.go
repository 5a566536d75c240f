package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",
	CodeCredentialsMissing: "Exchange API credentials are missing",

	CodeServiceTimeout:     "Service request timeout",
	CodeServiceUnavailable: "Service temporarily unavailable",
	CodeRateLimitExceeded:  "Rate limit exceeded",

	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	CodeTransportError:   "Exchange request failed",
	CodeExchangeAPIError: "Exchange API error",
	CodeClockSyncFailed:  "Failed to synchronize with exchange server time",

	CodeQuoteParseError: "Book ticker entry could not be parsed",
	CodeInvalidBalance:  "Account balance entry is invalid",
	CodeLotSizeNotFound: "No LOT_SIZE filter for symbol",

	CodeInvalidPrecision:  "Step size yields no usable precision",
	CodeNoConversionPath:  "No conversion path between stablecoins",
	CodeOrderNotFilled:    "Order was not filled",
	CodeOrderRejected:     "Order was rejected by the exchange",
	CodeNotInitialized:    "Trader has not been initialized",
	CodeInsufficientFunds: "Insufficient free balance",

	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
