package bybit

import (
	"fmt"

	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
)

// Bybit v5 return codes the gateway distinguishes
const (
	ErrCodeInvalidAPIKey       = 10003
	ErrCodeInvalidSignature    = 10004
	ErrCodeInvalidTimestamp    = 10002
	ErrCodeRateLimitExceeded   = 10006
	ErrCodeServerTimeout       = 10000
	ErrCodeInsufficientBalance = 110007
	ErrCodeSymbolNotFound      = 10001
	ErrCodeInvalidQuantity     = 110020
	ErrCodeReduceOnlyRejected  = 110017
	ErrCodeMarketClosed        = 110043
)

// apiError converts a non-zero retCode into a typed gateway error
func apiError(operation string, code int, msg string) *boterrors.GatewayError {
	message := fmt.Sprintf("retCode %d: %s", code, msg)

	var category boterrors.ErrorCategory
	switch code {
	case ErrCodeInvalidAPIKey, ErrCodeInvalidSignature:
		category = boterrors.ErrorCategoryCredentials
	case ErrCodeRateLimitExceeded:
		category = boterrors.ErrorCategoryRateLimit
	case ErrCodeServerTimeout, ErrCodeInvalidTimestamp:
		category = boterrors.ErrorCategoryTimeout
	case ErrCodeInsufficientBalance, ErrCodeInvalidQuantity, ErrCodeReduceOnlyRejected, ErrCodeMarketClosed:
		category = boterrors.ErrorCategoryOrder
	default:
		category = boterrors.ErrorCategoryBroker
	}

	err := boterrors.New(category, "bybit", operation, message).WithContext("ret_code", code)
	if category == boterrors.ErrorCategoryOrder {
		err.WithRetryable(false)
	}
	return err
}
