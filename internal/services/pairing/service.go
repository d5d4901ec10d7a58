package pairing

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"cosigner/internal/domain"
	"cosigner/internal/store"
)

// Defaults for the wait-for-bound phase.
const (
	DefaultStatusInterval = time.Second
	DefaultTimeout        = 5 * time.Minute
)

// sessionTTL is the expiry stamped on the completed session in a success result.
const sessionTTL = 5 * time.Minute

// Config tunes the wait-for-bound phase. Zero values take the defaults.
type Config struct {
	StatusInterval time.Duration
	Timeout        time.Duration
}

// Observer receives progress and results. Either func may be nil.
type Observer struct {
	OnStatus func(Status)
	OnResult func(Result)
}

// Client is the part of the orchestrator client pairing needs.
type Client interface {
	AuthenticatePhone(ctx context.Context, idToken string) (domain.AuthResult, error)
	ClaimSession(ctx context.Context, req domain.ClaimRequest) (domain.ClaimResult, error)
	GetSessionStatus(ctx context.Context, id domain.SessionID) (domain.SessionStatus, error)
	KeygenDone(ctx context.Context, report domain.KeygenReport) (domain.KeygenRecord, error)
	SetBaseOverride(base string)
}

// Service runs pairing attempts. Attempts are independent; a Service may run
// several concurrently and alongside the action poller.
type Service struct {
	store  domain.SecretStore
	client Client
	keys   domain.KeyOperations
	tokens domain.TokenProvider
	cfg    Config
	log    zerolog.Logger

	obsMu sync.RWMutex
	obs   Observer
}

// New constructs a pairing Service.
func New(
	st domain.SecretStore,
	client Client,
	keys domain.KeyOperations,
	tokens domain.TokenProvider,
	cfg Config,
	log zerolog.Logger,
) *Service {
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = DefaultStatusInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Service{
		store:  st,
		client: client,
		keys:   keys,
		tokens: tokens,
		cfg:    cfg,
		log:    log.With().Str("component", "pairing").Logger(),
	}
}

// Observe sets the observer. It may be called while attempts are running;
// reports after the call go to obs.
func (s *Service) Observe(obs Observer) {
	s.obsMu.Lock()
	s.obs = obs
	s.obsMu.Unlock()
}

func (s *Service) observer() Observer {
	s.obsMu.RLock()
	defer s.obsMu.RUnlock()
	return s.obs
}

// Pair runs one attempt over raw scan text.
//
// Steps:
//  1. Parse. Non-pairing objects are returned as Result.Scanned with no
//     network call.
//  2. Fetch an identity token and authenticate the phone.
//  3. Claim the session for this device.
//  4. Unless the claim already reported BOUND, poll the session status until
//     BOUND, EXPIRED or the timeout.
//  5. Generate key material, store the share, then report keygen. A failed
//     report falls back to a local-only wallet.
//
// On failure the error is a *StepError naming the step.
func (s *Service) Pair(ctx context.Context, raw string) (Result, error) {
	s.status(StepParsing, "Processing pairing data...")
	payload, scanned, err := ParsePayload(raw)
	if err != nil {
		return Result{}, s.fail(StepParsing, domain.ErrInvalidPayload, err)
	}
	if payload == nil {
		res := Result{Scanned: scanned}
		s.status(StepComplete, MessageScanned)
		s.result(res)
		return res, nil
	}
	log := s.log.With().Str("session_id", payload.SessionID.String()).Logger()

	if payload.API != "" {
		s.client.SetBaseOverride(payload.API)
	}

	s.status(StepAuthenticating, "Authenticating with orchestrator...")
	idToken, err := s.tokens.IDToken(ctx)
	if err == nil && idToken == "" {
		err = errors.New("no identity token")
	}
	if err != nil {
		return Result{}, s.fail(StepAuthenticating, domain.ErrNotAuthenticated, errors.Wrap(domain.ErrNotAuthenticated, err.Error()))
	}
	if _, err := s.client.AuthenticatePhone(ctx, idToken); err != nil {
		return Result{}, s.fail(StepAuthenticating, domain.ErrAuthenticationFailed, err)
	}

	s.status(StepClaiming, "Claiming session...")
	deviceID, err := s.store.GetOrCreateDeviceID()
	if err != nil {
		return Result{}, s.fail(StepClaiming, nil, err)
	}
	claim, err := s.client.ClaimSession(ctx, domain.ClaimRequest{
		SessionID: payload.SessionID,
		Nonce:     payload.Nonce,
		DeviceID:  deviceID,
	})
	if err != nil {
		return Result{}, s.fail(StepClaiming, nil, err)
	}
	log.Info().Str("claim_status", string(claim.Status)).Msg("session claimed")

	var bound *domain.SessionStatus
	switch claim.Status {
	case domain.SessionBound:
	case domain.SessionExpired:
		return Result{}, s.fail(StepClaiming, domain.ErrSessionExpired, domain.ErrSessionExpired)
	default:
		st, err := s.waitBound(ctx, payload.SessionID)
		if err != nil {
			var se *StepError
			if errors.As(err, &se) {
				return Result{}, s.fail(se.Step, se.Kind, se.Err)
			}
			return Result{}, s.fail(StepPolling, nil, err)
		}
		bound = &st
	}

	s.status(StepWallet, "Session bound! Creating wallet...")
	km, err := s.keys.Keygen()
	if err != nil {
		return Result{}, s.fail(StepWallet, nil, err)
	}
	if err := store.SaveKeyShare(s.store, km.KeyID, km.Share); err != nil {
		return Result{}, s.fail(StepWallet, nil, err)
	}
	wallet, err := s.keys.DeriveWallet(km)
	if err != nil {
		return Result{}, s.fail(StepWallet, nil, err)
	}

	succ := &Success{
		Type:          SuccessType,
		SessionStatus: completedStatus(payload.SessionID, deviceID, claim, bound),
		PairingData:   *payload,
		Wallet:        wallet,
	}
	rec, err := s.client.KeygenDone(ctx, domain.KeygenReport{
		SessionID: payload.SessionID,
		KeyID:     km.KeyID,
		PublicKey: km.PublicKey,
		Address:   wallet.Address,
		ChainID:   wallet.ChainID,
		Network:   wallet.Network,
	})
	if err != nil {
		log.Warn().Err(err).Str("key_id", km.KeyID.String()).Msg("keygen report failed; keeping local wallet")
		succ.WalletPath, succ.Message = WalletLocal, MessageLocalWallet
	} else {
		succ.KeygenData = &rec
		succ.WalletPath, succ.Message = WalletOrchestrator, MessageOrchestratorWallet
	}

	log.Info().Str("key_id", km.KeyID.String()).Str("wallet_path", string(succ.WalletPath)).Msg("pairing complete")
	s.status(StepComplete, succ.Message)
	res := Result{Success: succ}
	s.result(res)
	return res, nil
}

// waitBound checks the session status once right away, then every interval,
// until it is BOUND. Errors are *StepError.
func (s *Service) waitBound(ctx context.Context, id domain.SessionID) (domain.SessionStatus, error) {
	s.status(StepPolling, "Waiting for the session to be bound...")

	deadline := time.NewTimer(s.cfg.Timeout)
	defer deadline.Stop()
	tick := time.NewTicker(s.cfg.StatusInterval)
	defer tick.Stop()

	for {
		st, err := s.client.GetSessionStatus(ctx, id)
		if err != nil {
			return domain.SessionStatus{}, &StepError{Step: StepPolling, Err: err}
		}
		switch st.Status {
		case domain.SessionBound:
			return st, nil
		case domain.SessionExpired:
			return domain.SessionStatus{}, &StepError{Step: StepPolling, Kind: domain.ErrSessionExpired, Err: domain.ErrSessionExpired}
		case domain.SessionPending:
		default:
			return domain.SessionStatus{}, &StepError{Step: StepPolling, Err: errors.Errorf("unexpected session status %q", st.Status)}
		}

		select {
		case <-ctx.Done():
			return domain.SessionStatus{}, &StepError{Step: StepPolling, Err: ctx.Err()}
		case <-deadline.C:
			err := errors.Wrapf(domain.ErrPollingTimeout, "session not bound after %s", s.cfg.Timeout)
			return domain.SessionStatus{}, &StepError{Step: StepPolling, Kind: domain.ErrPollingTimeout, Err: err}
		case <-tick.C:
		}
	}
}

// completedStatus is the session as it stands once pairing completes.
func completedStatus(id domain.SessionID, device domain.DeviceID, claim domain.ClaimResult, bound *domain.SessionStatus) domain.SessionStatus {
	now := time.Now().UTC()
	st := domain.SessionStatus{
		SessionID: id,
		Status:    domain.SessionComplete,
		DeviceID:  device,
		CreatedAt: now.Format(time.RFC3339),
		ExpiresAt: now.Add(sessionTTL).Format(time.RFC3339),
		BoundAt:   now.Format(time.RFC3339),
	}
	if claim.DeviceID != "" {
		st.DeviceID = claim.DeviceID
	}
	if bound != nil {
		if bound.CreatedAt != "" {
			st.CreatedAt = bound.CreatedAt
		}
		if bound.ExpiresAt != "" {
			st.ExpiresAt = bound.ExpiresAt
		}
		if bound.BoundAt != "" {
			st.BoundAt = bound.BoundAt
		}
	}
	return st
}

func (s *Service) fail(step Step, kind, err error) error {
	se := &StepError{Step: step, Kind: kind, Err: err}
	s.log.Error().Str("step", string(step)).Err(err).Msg("pairing failed")
	s.status(StepFailed, se.Error())
	return se
}

func (s *Service) status(step Step, msg string) {
	if obs := s.observer(); obs.OnStatus != nil {
		obs.OnStatus(Status{Step: step, Message: msg})
	}
}

func (s *Service) result(r Result) {
	if obs := s.observer(); obs.OnResult != nil {
		obs.OnResult(r)
	}
}
