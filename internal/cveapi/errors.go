package cveapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"cvelib/internal/domain"
)

// ErrMissingURL is returned when neither an API URL nor a known environment is configured.
var ErrMissingURL = errors.New("missing URL for CVE API")

// ErrInvalidCount is returned when a reservation asks for fewer than one ID.
var ErrInvalidCount = errors.New("count must be at least 1")

// APIError is a non-2xx response from CVE Services.
type APIError struct {
	StatusCode int
	Status     string
	Method     string
	URL        string
	Code       domain.ErrorCode
	Message    string
	Details    json.RawMessage
}

// errorBody is the JSON shape CVE Services uses for errors.
type errorBody struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cve api %s %s: %s", e.Method, e.URL, e.Status)
	if e.Code != "" {
		fmt.Fprintf(&b, ": %s", e.Code)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	return b.String()
}

// newAPIError builds an APIError from a response whose body has already been read.
func newAPIError(method, rawURL string, resp *http.Response, body []byte) *APIError {
	e := &APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Method:     method,
		URL:        rawURL,
	}
	var eb errorBody
	if len(body) > 0 && json.Unmarshal(body, &eb) == nil {
		e.Code = domain.ErrorCode(eb.Error)
		e.Message = eb.Message
		e.Details = eb.Details
	} else if len(body) > 0 {
		e.Message = strings.TrimSpace(truncate(string(body), 512))
	}
	return e
}

// truncate shortens s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// IsCode reports whether err is an APIError carrying the given error code.
func IsCode(err error, code domain.ErrorCode) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// StatusCode returns the HTTP status of an APIError in err's chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is a 404 from CVE Services.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
