package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	chronoseal "github.com/chronoseal/capsule-go"
)

// errorResponse is the JSON body for failed requests.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	// UnlockDate is set for time-locked refusals so clients can schedule
	// a retry without another lookup.
	UnlockDate string `json:"unlock_date,omitempty"`
}

// respondError maps vault errors onto HTTP statuses. Refusals that are part
// of normal operation (locked capsules, missing keys) get distinct statuses
// so clients can branch without parsing messages.
func respondError(c echo.Context, err error) error {
	resp := errorResponse{
		Error: err.Error(),
		Code:  errorCode(err),
	}

	var timeLocked *chronoseal.TimeLockedError
	if errors.As(err, &timeLocked) {
		resp.UnlockDate = timeLocked.UnlockDate
	}

	return c.JSON(httpStatus(err), resp)
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, chronoseal.ErrValidation),
		errors.Is(err, chronoseal.ErrMnemonicInvalid),
		errors.Is(err, chronoseal.ErrInvalidImportData):
		return http.StatusBadRequest
	case errors.Is(err, chronoseal.ErrIndexOutOfRange),
		errors.Is(err, chronoseal.ErrWebhookNotFound):
		return http.StatusNotFound
	case errors.Is(err, chronoseal.ErrVaultNotEmpty):
		return http.StatusConflict
	case errors.Is(err, chronoseal.ErrKeysNotFound):
		return http.StatusPreconditionFailed
	case errors.Is(err, chronoseal.ErrTimeLocked):
		return http.StatusLocked
	case errors.Is(err, chronoseal.ErrSignatureInvalid),
		errors.Is(err, chronoseal.ErrTagMismatch),
		errors.Is(err, chronoseal.ErrDecapsulation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, chronoseal.ErrVaultClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, chronoseal.ErrValidation):
		return "validation"
	case errors.Is(err, chronoseal.ErrMnemonicInvalid):
		return "mnemonic_invalid"
	case errors.Is(err, chronoseal.ErrInvalidImportData):
		return "invalid_import_data"
	case errors.Is(err, chronoseal.ErrIndexOutOfRange):
		return "index_out_of_range"
	case errors.Is(err, chronoseal.ErrWebhookNotFound):
		return "webhook_not_found"
	case errors.Is(err, chronoseal.ErrVaultNotEmpty):
		return "vault_not_empty"
	case errors.Is(err, chronoseal.ErrKeysNotFound):
		return "keys_not_found"
	case errors.Is(err, chronoseal.ErrTimeLocked):
		return "time_locked"
	case errors.Is(err, chronoseal.ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, chronoseal.ErrTagMismatch):
		return "tag_mismatch"
	case errors.Is(err, chronoseal.ErrDecapsulation):
		return "decapsulation_failed"
	case errors.Is(err, chronoseal.ErrVaultClosed):
		return "vault_closed"
	case errors.Is(err, chronoseal.ErrKeyGeneration):
		return "key_generation_failed"
	case errors.Is(err, chronoseal.ErrKeyCorruption):
		return "key_corruption"
	default:
		return "internal"
	}
}
