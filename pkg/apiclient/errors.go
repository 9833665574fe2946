package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a failed API call. Problem responses fill Title and Detail;
// health envelopes fill Detail from their error field.
type APIError struct {
	StatusCode int    `json:"status"`
	Title      string `json:"title,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	switch {
	case e.Title != "" && e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	case e.Detail != "":
		return e.Detail
	case e.Title != "":
		return e.Title
	default:
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
}

// IsNotFound reports a 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnavailable reports a 503: the host or the catalog is not ready.
func (e *APIError) IsUnavailable() bool {
	return e.StatusCode == http.StatusServiceUnavailable
}

func decodeError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/problem+json") {
		if json.Unmarshal(body, apiErr) == nil {
			apiErr.StatusCode = resp.StatusCode
			return apiErr
		}
	}

	var env envelope
	if json.Unmarshal(body, &env) == nil && env.Error != "" {
		apiErr.Detail = env.Error
		return apiErr
	}

	apiErr.Detail = strings.TrimSpace(string(body))
	return apiErr
}
