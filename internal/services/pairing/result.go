package pairing

import (
	"encoding/json"
	"fmt"

	"cosigner/internal/domain"
)

// Step names a state of the pairing state machine.
type Step string

const (
	StepIdle           Step = "idle"
	StepParsing        Step = "parsing"
	StepAuthenticating Step = "authenticating"
	StepClaiming       Step = "claiming"
	StepPolling        Step = "polling-for-bound"
	StepWallet         Step = "wallet-creation"
	StepComplete       Step = "complete"
	StepFailed         Step = "error"
)

// Status is one progress report.
type Status struct {
	Step    Step
	Message string
}

// Status messages for the two completion paths.
const (
	MessageOrchestratorWallet = "Wallet created and keygen completed!"
	MessageLocalWallet        = "Wallet created locally!"
	MessageScanned            = "Data processed successfully!"
)

// WalletPath tells which way wallet creation finished.
type WalletPath string

const (
	// WalletOrchestrator: keygen was reported and the orchestrator returned a record.
	WalletOrchestrator WalletPath = "orchestrator"
	// WalletLocal: the report failed; the wallet exists only on this device.
	WalletLocal WalletPath = "local"
)

// SuccessType tags a pairing success object.
const SuccessType = "pairing_success"

// Success is the structured outcome of a completed pairing.
type Success struct {
	Type          string                `json:"type"`
	SessionStatus domain.SessionStatus  `json:"sessionStatus"`
	PairingData   domain.PairingPayload `json:"pairingData"`
	KeygenData    *domain.KeygenRecord  `json:"keygenData"`
	Wallet        domain.Wallet         `json:"wallet"`
	WalletPath    WalletPath            `json:"walletPath"`
	Message       string                `json:"message"`
}

// Result is what a scan produced: either a completed pairing or, for scans
// that are not pairing requests, the decoded object as is.
type Result struct {
	Success *Success
	Scanned map[string]any
}

// IsPairing reports whether r is a pairing success.
func (r Result) IsPairing() bool { return r.Success != nil }

// MarshalJSON encodes whichever half is set.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Success != nil {
		return json.Marshal(r.Success)
	}
	return json.Marshal(r.Scanned)
}

// StepError is a failed pairing attempt. errors.Is matches Kind (one of the
// domain sentinels, when the failure has a taxonomy kind); errors.As reaches
// the underlying cause.
type StepError struct {
	Step Step
	Kind error
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("pairing failed at step %q: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

func (e *StepError) Is(target error) bool { return e.Kind != nil && target == e.Kind }
