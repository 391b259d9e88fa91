package transport

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Amund211/notesync/internal/domain"
)

// StatusError is returned for every response outside the 2xx range
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s %s: status %d: %s", e.Unwrap(), e.Method, e.Path, e.Status, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.ErrValidation
	}

	switch {
	case e.Status >= 500:
		return domain.ErrServer
	case e.Status >= 400:
		return domain.ErrClient
	default:
		return domain.ErrUnexpectedStatus
	}
}

type errorResponse struct {
	Message string `json:"message"`
}

func statusErrorFromResponse(method, path string, statusCode int, data []byte) *StatusError {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	message := http.StatusText(statusCode)
	var response errorResponse
	if err := json.Unmarshal(data, &response); err == nil && response.Message != "" {
		message = response.Message
	}
	if message == "" {
		message = "unexpected status"
	}

	return &StatusError{
		Method:  method,
		Path:    path,
		Status:  statusCode,
		Message: message,
	}
}
