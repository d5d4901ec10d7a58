package domain

import (
	interfaces "cosigner/internal/domain/interfaces"
	types "cosigner/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	DeviceID       = types.DeviceID
	SessionID      = types.SessionID
	KeyID          = types.KeyID
	ActionID       = types.ActionID
	SessionState   = types.SessionState
	SessionStatus  = types.SessionStatus
	PairingAction  = types.PairingAction
	PairingPayload = types.PairingPayload
	AuthResult     = types.AuthResult
	ClaimRequest   = types.ClaimRequest
	ClaimResult    = types.ClaimResult
	KeyMaterial    = types.KeyMaterial
	Signature      = types.Signature
	Wallet         = types.Wallet
	KeygenReport   = types.KeygenReport
	KeygenRecord   = types.KeygenRecord
	SignReport     = types.SignReport
	ActionType     = types.ActionType
	ActionStatus   = types.ActionStatus
	Action         = types.Action
	ActionHandler  = types.ActionHandler
	KeygenAction   = types.KeygenAction
	SignAction     = types.SignAction
	ActionList     = types.ActionList
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	SecretStore        = interfaces.SecretStore
	OrchestratorClient = interfaces.OrchestratorClient
	TokenProvider      = interfaces.TokenProvider
	KeyOperations      = interfaces.KeyOperations
)

const (
	SessionPending  = types.SessionPending
	SessionBound    = types.SessionBound
	SessionComplete = types.SessionComplete
	SessionExpired  = types.SessionExpired

	PairingActionPair    = types.PairingActionPair
	PairingActionPairing = types.PairingActionPairing

	ActionKeygen  = types.ActionKeygen
	ActionSign    = types.ActionSign
	ActionPending = types.ActionPending
	ActionDone    = types.ActionDone
	ActionFailed  = types.ActionFailed
)

// Sentinel failure kinds.
var (
	ErrInvalidPayload       = types.ErrInvalidPayload
	ErrNotAuthenticated     = types.ErrNotAuthenticated
	ErrAuthenticationFailed = types.ErrAuthenticationFailed
	ErrMissingKeyShare      = types.ErrMissingKeyShare
	ErrPollingTimeout       = types.ErrPollingTimeout
	ErrSessionExpired       = types.ErrSessionExpired
	ErrUnsupportedAction    = types.ErrUnsupportedAction
	ErrMalformedAction      = types.ErrMalformedAction
	ErrCorruptKeyShare      = types.ErrCorruptKeyShare
)
