package openrouter

import (
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"modelkombat/internal/apperrors"
)

// statusError categorizes a non-2xx response.
//
// The categorization logic:
// - 401, 403 → credential invalid
// - anything else → network failure, with rate limiting and server errors named
func statusError(op string, statusCode int, body []byte) error {
	message := gjson.GetBytes(body, "error.message").String()
	if message == "" {
		message = http.StatusText(statusCode)
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s: %d %s", apperrors.ErrCredentialInvalid, op, statusCode, message)
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s: rate limited: %s", apperrors.ErrNetworkFailure, op, message)
	case statusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s: server error %d: %s", apperrors.ErrNetworkFailure, op, statusCode, message)
	default:
		return fmt.Errorf("%w: %s: unexpected status %d: %s", apperrors.ErrNetworkFailure, op, statusCode, message)
	}
}

func networkError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", apperrors.ErrNetworkFailure, op, err)
}
