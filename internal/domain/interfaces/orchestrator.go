package interfaces

import (
	"context"

	domaintypes "cosigner/internal/domain/types"
)

// OrchestratorClient is how the device talks to the orchestrator, all with context.
type OrchestratorClient interface {
	// AuthenticatePhone exchanges an identity token for a bearer session that
	// subsequent authenticated calls use.
	AuthenticatePhone(ctx context.Context, idToken string) (domaintypes.AuthResult, error)
	ClaimSession(ctx context.Context, req domaintypes.ClaimRequest) (domaintypes.ClaimResult, error)
	GetSessionStatus(ctx context.Context, id domaintypes.SessionID) (domaintypes.SessionStatus, error)

	GetActions(ctx context.Context, deviceID domaintypes.DeviceID) ([]domaintypes.Action, error)
	KeygenDone(ctx context.Context, report domaintypes.KeygenReport) (domaintypes.KeygenRecord, error)
	SignDone(ctx context.Context, report domaintypes.SignReport) error

	// SetBaseOverride redirects all further calls to base; empty clears the override.
	SetBaseOverride(base string)
}
