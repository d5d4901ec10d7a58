package types

import "github.com/pkg/errors"

// Failure kinds shared by the pairing flow and the action poller. Wire-level
// failures are typed separately by the orchestrator client.
var (
	ErrInvalidPayload       = errors.New("invalid pairing payload")
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrMissingKeyShare      = errors.New("missing key share")
	ErrPollingTimeout       = errors.New("session polling timeout")
	ErrSessionExpired       = errors.New("session expired")
	ErrUnsupportedAction    = errors.New("unsupported action type")
	ErrMalformedAction      = errors.New("malformed action")
	ErrCorruptKeyShare      = errors.New("corrupt key share")
)
