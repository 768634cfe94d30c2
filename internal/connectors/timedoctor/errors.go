package timedoctor

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/tdsync/internal/core/domain"
)

// maxErrorBody bounds how much of an error response is kept in messages.
const maxErrorBody = 512

// errorEnvelope is the error body Time Doctor returns on failures.
type errorEnvelope struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// classifyResponse converts a non-2xx response into a domain error.
// The response body is consumed but not closed.
func classifyResponse(resp *http.Response) error {
	msg := readErrorMessage(resp.Body)
	url := ""
	if resp.Request != nil && resp.Request.URL != nil {
		url = redactURL(resp.Request.URL.String())
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &domain.AuthError{StatusCode: resp.StatusCode, Message: msg}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &domain.TransientProviderError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get(HeaderRetryAfter)),
			Err:        domain.ErrRateLimited,
		}
	case resp.StatusCode >= http.StatusInternalServerError:
		return &domain.TransientProviderError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("server error: %s", msg),
		}
	default:
		return &domain.PermanentProviderError{StatusCode: resp.StatusCode, Message: msg, URL: url}
	}
}

func readErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}
	raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))

	var env errorEnvelope
	if json.Unmarshal(raw, &env) == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	return strings.TrimSpace(string(raw))
}

// parseRetryAfter reads a Retry-After header given in seconds.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// redactURL drops the query string, which carries the company id.
func redactURL(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}
