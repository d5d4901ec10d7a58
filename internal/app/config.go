package app

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"cosigner/internal/services/actions"
	"cosigner/internal/services/pairing"
	"cosigner/internal/store"
)

// Config keys.
const (
	KeyHome           = "home"
	KeyAPIBase        = "api_base"
	KeyHTTPTimeout    = "http.timeout"
	KeyStoreBackend   = "store.backend"
	KeyPassphrase     = "store.passphrase"
	KeyIDToken        = "auth.id_token"
	KeyBackoff        = "poll.backoff"
	KeyStatusInterval = "pairing.status_interval"
	KeyPairingTimeout = "pairing.timeout"
	KeyLogLevel       = "log.level"
	KeyLogFormat      = "log.format"
)

const envPrefix = "COSIGNER"

// Config holds runtime wiring options for building the app.
type Config struct {
	Home           string        // state directory, e.g. $HOME/.cosigner
	APIBase        string        // orchestrator API base; empty means the platform default
	HTTPTimeout    time.Duration // per-request timeout
	StoreBackend   string        // "file" or "badger"
	Passphrase     string        // protects the key store
	IDToken        string        // static identity token for the CLI
	Backoff        []time.Duration
	StatusInterval time.Duration
	PairingTimeout time.Duration
	LogLevel       string
	LogFormat      string

	HTTP *http.Client // optional; built from HTTPTimeout when nil
}

// NewViper returns a viper instance with defaults and environment binding set up.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyHome, "~/.cosigner")
	v.SetDefault(KeyAPIBase, "")
	v.SetDefault(KeyHTTPTimeout, 15*time.Second)
	v.SetDefault(KeyStoreBackend, store.BackendFile)
	v.SetDefault(KeyBackoff, "3s,5s,8s")
	v.SetDefault(KeyStatusInterval, pairing.DefaultStatusInterval)
	v.SetDefault(KeyPairingTimeout, pairing.DefaultTimeout)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig resolves the home directory, merges <home>/config.yaml when
// present, and reads every key into a Config.
func LoadConfig(v *viper.Viper) (Config, error) {
	home, err := homedir.Expand(v.GetString(KeyHome))
	if err != nil {
		return Config{}, errors.Wrap(err, "expand home")
	}
	home = filepath.Clean(home)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(home)
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return Config{}, errors.Wrap(err, "read config")
		}
	}

	ladder, err := ParseBackoff(v.GetString(KeyBackoff))
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Home:           home,
		APIBase:        v.GetString(KeyAPIBase),
		HTTPTimeout:    v.GetDuration(KeyHTTPTimeout),
		StoreBackend:   v.GetString(KeyStoreBackend),
		Passphrase:     v.GetString(KeyPassphrase),
		IDToken:        v.GetString(KeyIDToken),
		Backoff:        ladder,
		StatusInterval: v.GetDuration(KeyStatusInterval),
		PairingTimeout: v.GetDuration(KeyPairingTimeout),
		LogLevel:       v.GetString(KeyLogLevel),
		LogFormat:      v.GetString(KeyLogFormat),
	}
	return cfg, nil
}

// ParseBackoff parses a comma-separated, non-decreasing list of durations.
// Empty yields the default ladder.
func ParseBackoff(s string) ([]time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return append([]time.Duration(nil), actions.DefaultBackoff...), nil
	}
	var out []time.Duration
	for _, part := range strings.Split(s, ",") {
		d, err := time.ParseDuration(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.Wrapf(err, "%s", KeyBackoff)
		}
		if d <= 0 {
			return nil, errors.Errorf("%s: delay %s must be positive", KeyBackoff, d)
		}
		if n := len(out); n > 0 && d < out[n-1] {
			return nil, errors.Errorf("%s: %s after %s; the ladder must not decrease", KeyBackoff, d, out[n-1])
		}
		out = append(out, d)
	}
	return out, nil
}
