package app

import (
	"context"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"cosigner/internal/crypto"
	"cosigner/internal/domain"
	"cosigner/internal/orchestrator"
	"cosigner/internal/services/actions"
	"cosigner/internal/services/pairing"
	"cosigner/internal/store"
)

// StaticToken is an identity-token provider returning a fixed token.
type StaticToken string

// IDToken returns the token, or ErrNotAuthenticated when none is configured.
func (t StaticToken) IDToken(context.Context) (string, error) {
	if t == "" {
		return "", errors.Wrap(domain.ErrNotAuthenticated, "no identity token configured")
	}
	return string(t), nil
}

// Wire bundles the store, client and services for the CLI.
type Wire struct {
	Config  Config
	Log     zerolog.Logger
	Store   domain.SecretStore
	Client  *orchestrator.Client
	Keys    *crypto.Demo
	Tokens  domain.TokenProvider
	Pairing *pairing.Service
	Actions *actions.Poller
	HTTP    *http.Client
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config, log zerolog.Logger) (*Wire, error) {
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, errors.Wrap(err, "create home")
	}

	st, err := store.Open(cfg.StoreBackend, cfg.Home, cfg.Passphrase, store.WithLogger(log))
	if err != nil {
		return nil, err
	}

	// Ensure an HTTP client is available for outbound calls
	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	client := orchestrator.NewClient(orchestrator.NormalizeAPIBase(cfg.APIBase), httpClient, log)
	keys := crypto.NewDemo()
	tokens := StaticToken(cfg.IDToken)

	pairingSvc := pairing.New(st, client, keys, tokens, pairing.Config{
		StatusInterval: cfg.StatusInterval,
		Timeout:        cfg.PairingTimeout,
	}, log)
	handler := actions.NewHandler(st, keys, client, log.With().Str("component", "actions").Logger())
	poller := actions.New(st, client, handler, client, actions.Config{Backoff: cfg.Backoff}, log)

	return &Wire{
		Config:  cfg,
		Log:     log,
		Store:   st,
		Client:  client,
		Keys:    keys,
		Tokens:  tokens,
		Pairing: pairingSvc,
		Actions: poller,
		HTTP:    httpClient,
	}, nil
}

// Authenticate signs the client in with the configured identity token.
func (w *Wire) Authenticate(ctx context.Context) error {
	tok, err := w.Tokens.IDToken(ctx)
	if err != nil {
		return err
	}
	_, err = w.Client.AuthenticatePhone(ctx, tok)
	return err
}

// Close stops the poller and releases the store.
func (w *Wire) Close() error {
	w.Actions.Stop()
	return w.Store.Close()
}
