package apperr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"gorm.io/gorm"
)

// HTTPStatus maps an error to the status code the REST layer should return.
// Keeps handlers clean by centralizing the mapping.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}

	switch KindOf(err) {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicateInterest, KindInvalidTransition:
		return http.StatusConflict
	case KindIncompleteProfile, KindInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes the structured error body REST callers receive.
func WriteJSON(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	body := map[string]string{
		"error": string(KindOf(err)),
	}
	var ae *Error
	if errors.As(err, &ae) {
		body["message"] = ae.Message
	} else if errors.Is(err, gorm.ErrRecordNotFound) {
		body["error"] = string(KindNotFound)
		body["message"] = "record not found"
	} else {
		body["message"] = "internal server error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
