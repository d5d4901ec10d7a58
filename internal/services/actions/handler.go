package actions

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"cosigner/internal/crypto"
	"cosigner/internal/domain"
	"cosigner/internal/store"
)

// Reporter is the part of the orchestrator client handlers report to.
type Reporter interface {
	KeygenDone(ctx context.Context, report domain.KeygenReport) (domain.KeygenRecord, error)
	SignDone(ctx context.Context, report domain.SignReport) error
}

// Handler fulfils actions with the device's key operations.
type Handler struct {
	store    domain.SecretStore
	keys     domain.KeyOperations
	reporter Reporter
	log      zerolog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(st domain.SecretStore, keys domain.KeyOperations, reporter Reporter, log zerolog.Logger) *Handler {
	return &Handler{store: st, keys: keys, reporter: reporter, log: log}
}

// HandleKeygen creates a share, stores it, then reports the public half.
func (h *Handler) HandleKeygen(ctx context.Context, a domain.KeygenAction) error {
	km, err := h.keys.Keygen()
	if err != nil {
		return errors.Wrap(err, "keygen")
	}
	if err := store.SaveKeyShare(h.store, km.KeyID, km.Share); err != nil {
		return err
	}
	if _, err := h.reporter.KeygenDone(ctx, domain.KeygenReport{
		ActionID:  a.ID,
		KeyID:     km.KeyID,
		PublicKey: km.PublicKey,
	}); err != nil {
		return err
	}
	h.log.Info().Str("action_id", a.ID.String()).Str("key_id", km.KeyID.String()).
		Str("fingerprint", crypto.Fingerprint(km.KeyID, km.PublicKey)).Msg("keygen done")
	return nil
}

// HandleSign signs with the share stored for the action's key.
func (h *Handler) HandleSign(ctx context.Context, a domain.SignAction) error {
	shareB64, ok, err := store.LoadKeyShare(h.store, a.KeyID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(domain.ErrMissingKeyShare, "key %s", a.KeyID)
	}
	// Demo signatures depend only on the key id. The share is still checked so
	// a corrupt one fails this action rather than signing as if it were intact.
	if err := crypto.CheckShare(shareB64); err != nil {
		return errors.Wrapf(domain.ErrCorruptKeyShare, "key %s: %v", a.KeyID, err)
	}
	sig, err := h.keys.Sign(a.KeyID, a.MsgHash)
	if err != nil {
		return errors.Wrap(err, "sign")
	}
	if err := h.reporter.SignDone(ctx, domain.SignReport{IntentID: a.SignIntentID, Signature: sig}); err != nil {
		return err
	}
	h.log.Info().Str("action_id", a.ID.String()).Str("intent_id", a.SignIntentID).Msg("sign done")
	return nil
}

var _ domain.ActionHandler = (*Handler)(nil)
