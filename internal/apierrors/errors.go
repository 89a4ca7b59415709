// Package apierrors carries the typed errors produced by the ChronoSeal
// HTTP transport. Response bodies of the form {error, code, unlock_date}
// become APIError values whose Is method maps the machine-readable code
// onto the public sentinels, so errors.Is works the same for remote and
// local failures.
package apierrors

import (
	"fmt"
	"net/http"

	chronoseal "github.com/chronoseal/capsule-go"
)

// sentinelByCode maps the server's error codes onto public sentinels.
var sentinelByCode = map[string]error{
	"validation":            chronoseal.ErrValidation,
	"mnemonic_invalid":      chronoseal.ErrMnemonicInvalid,
	"invalid_import_data":   chronoseal.ErrInvalidImportData,
	"index_out_of_range":    chronoseal.ErrIndexOutOfRange,
	"webhook_not_found":     chronoseal.ErrWebhookNotFound,
	"vault_not_empty":       chronoseal.ErrVaultNotEmpty,
	"keys_not_found":        chronoseal.ErrKeysNotFound,
	"time_locked":           chronoseal.ErrTimeLocked,
	"signature_invalid":     chronoseal.ErrSignatureInvalid,
	"tag_mismatch":          chronoseal.ErrTagMismatch,
	"decapsulation_failed":  chronoseal.ErrDecapsulation,
	"vault_closed":          chronoseal.ErrVaultClosed,
	"key_generation_failed": chronoseal.ErrKeyGeneration,
	"key_corruption":        chronoseal.ErrKeyCorruption,
}

// APIError is an HTTP error response from a ChronoSeal server.
type APIError struct {
	StatusCode int
	// Code is the machine-readable error code from the response body.
	// Empty when the body was not in the server's error format.
	Code    string
	Message string
	// UnlockDate is set on time_locked refusals.
	UnlockDate string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

// Is implements errors.Is against the public sentinels. Responses without
// a recognized code fall back to status-based matching.
func (e *APIError) Is(target error) bool {
	if sentinel, ok := sentinelByCode[e.Code]; ok {
		return target == sentinel
	}
	// The rate limiter answers before the handlers do, so its 429 carries
	// no chronoseal error code.
	if e.StatusCode == http.StatusTooManyRequests {
		return target == chronoseal.ErrRateLimited
	}
	return false
}

// NetworkError is a transport-level failure: the request never produced an
// HTTP response.
type NetworkError struct {
	Err error
	URL string
	// Attempt is the attempt number that gave up, counting from 1.
	Attempt int
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
