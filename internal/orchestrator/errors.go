package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// NetworkError is a transport-level failure: the request never produced a response.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("orchestrator %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProtocolError is a response the client will not accept: a non-2xx status, a
// body that does not decode, or an explicit {"ok": false}.
type ProtocolError struct {
	Op         string
	URL        string
	StatusCode int
	Reason     string
}

func (e *ProtocolError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("orchestrator %s %s: status %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("orchestrator %s %s: status %d: %s", e.Op, e.URL, e.StatusCode, e.Reason)
}

// IsRetryable reports whether err is a wire failure worth retrying later.
// Both kinds qualify; only the detail differs.
func IsRetryable(err error) bool {
	var ne *NetworkError
	var pe *ProtocolError
	return errors.As(err, &ne) || errors.As(err, &pe)
}

// maxReason caps how much of a plain-text body ends up in an error.
const maxReason = 200

// reason extracts a human-readable reason from an error body.
func reason(body []byte) string {
	var v struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &v) == nil {
		switch {
		case v.Error != "":
			return v.Error
		case v.Message != "":
			return v.Message
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxReason {
		s = s[:maxReason]
	}
	return s
}
