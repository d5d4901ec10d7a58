package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"cosigner/internal/domain"
)

const (
	apiSuffix = "/api"

	// maxBody bounds every response body read.
	maxBody = 1 << 20
)

// DefaultBaseURL is the platform default API base. The android emulator
// reaches the host loopback through 10.0.2.2.
func DefaultBaseURL() string {
	if runtime.GOOS == "android" {
		return "http://10.0.2.2:8080/api"
	}
	return "http://127.0.0.1:8080/api"
}

// NormalizeAPIBase trims trailing slashes and appends /api unless present.
func NormalizeAPIBase(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" || strings.HasSuffix(base, apiSuffix) {
		return base
	}
	return base + apiSuffix
}

// Session is the bearer session issued by AuthenticatePhone.
type Session struct {
	Token  string
	UserID string
}

// Client talks JSON over HTTP to the orchestrator. It holds one current
// session; a later successful authentication replaces it.
type Client struct {
	http *http.Client
	base string
	log  zerolog.Logger

	mu       sync.RWMutex
	override string
	session  *Session
}

// NewClient returns a Client for base (DefaultBaseURL when empty). A nil
// httpClient means http.DefaultClient.
func NewClient(base string, httpClient *http.Client, log zerolog.Logger) *Client {
	if base == "" {
		base = DefaultBaseURL()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		http: httpClient,
		base: strings.TrimRight(base, "/"),
		log:  log.With().Str("component", "orchestrator").Logger(),
	}
}

// SetBaseOverride redirects further calls to NormalizeAPIBase(base). Empty
// clears the override.
func (c *Client) SetBaseOverride(base string) {
	base = NormalizeAPIBase(base)
	c.mu.Lock()
	c.override = base
	c.mu.Unlock()
	if base != "" {
		c.log.Info().Str("base", base).Msg("api base overridden")
	}
}

// BaseURL is the base currently in effect.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.override != "" {
		return c.override
	}
	return c.base
}

// Authenticated reports whether a bearer session is held.
func (c *Client) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session != nil
}

// UserID returns the authenticated user, or "".
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.UserID
}

// ClearSession drops the bearer session (sign-out).
func (c *Client) ClearSession() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.Token
}

func (c *Client) AuthenticatePhone(ctx context.Context, idToken string) (domain.AuthResult, error) {
	var out domain.AuthResult
	in := struct {
		IDToken string `json:"id_token"`
	}{idToken}
	u, err := c.do(ctx, "auth", http.MethodPost, "/auth/phone", in, &out, authNone)
	if err != nil {
		return domain.AuthResult{}, err
	}
	if !out.OK || out.Token == "" || out.UserID == "" {
		return domain.AuthResult{}, &ProtocolError{Op: "auth", URL: u, StatusCode: http.StatusOK, Reason: "authentication rejected"}
	}

	c.mu.Lock()
	c.session = &Session{Token: out.Token, UserID: out.UserID}
	c.mu.Unlock()

	c.log.Debug().Str("user_id", out.UserID).Msg("authenticated")
	return out, nil
}

func (c *Client) ClaimSession(ctx context.Context, req domain.ClaimRequest) (domain.ClaimResult, error) {
	var out domain.ClaimResult
	u, err := c.do(ctx, "claim", http.MethodPost, "/claim_session", req, &out, authRequired)
	if err != nil {
		return domain.ClaimResult{}, err
	}
	if !out.OK {
		return domain.ClaimResult{}, &ProtocolError{Op: "claim", URL: u, StatusCode: http.StatusOK, Reason: "claim rejected"}
	}
	return out, nil
}

// GetSessionStatus probes the status endpoints in order. A protocol error moves
// on to the next path; a network error or cancellation does not.
func (c *Client) GetSessionStatus(ctx context.Context, id domain.SessionID) (domain.SessionStatus, error) {
	seg := "/session/" + url.PathEscape(id.String())
	var last error
	for _, p := range []string{seg + "/status", seg} {
		var out domain.SessionStatus
		_, err := c.do(ctx, "session status", http.MethodGet, p, nil, &out, authRequired)
		if err == nil {
			return out, nil
		}
		var pe *ProtocolError
		if !errors.As(err, &pe) {
			return domain.SessionStatus{}, err
		}
		last = err
	}
	return domain.SessionStatus{}, last
}

func (c *Client) GetActions(ctx context.Context, deviceID domain.DeviceID) ([]domain.Action, error) {
	var out domain.ActionList
	path := "/actions?deviceId=" + url.QueryEscape(deviceID.String())
	if _, err := c.do(ctx, "actions", http.MethodGet, path, nil, &out, authOptional); err != nil {
		return nil, err
	}
	return out.Actions, nil
}

func (c *Client) KeygenDone(ctx context.Context, report domain.KeygenReport) (domain.KeygenRecord, error) {
	var out domain.KeygenRecord
	if _, err := c.do(ctx, "keygen done", http.MethodPost, "/keygen_done", report, &out, authOptional); err != nil {
		return domain.KeygenRecord{}, err
	}
	return out, nil
}

func (c *Client) SignDone(ctx context.Context, report domain.SignReport) error {
	var out struct {
		OK bool `json:"ok"`
	}
	u, err := c.do(ctx, "sign done", http.MethodPost, "/sign_done", report, &out, authOptional)
	if err != nil {
		return err
	}
	if !out.OK {
		return &ProtocolError{Op: "sign done", URL: u, StatusCode: http.StatusOK, Reason: "signature rejected"}
	}
	return nil
}

// GetKeygenStatus returns the keygen record the orchestrator holds for a session.
func (c *Client) GetKeygenStatus(ctx context.Context, id domain.SessionID) (domain.KeygenRecord, error) {
	var out domain.KeygenRecord
	if _, err := c.do(ctx, "keygen status", http.MethodGet, "/keygen/"+url.PathEscape(id.String()), nil, &out, authOptional); err != nil {
		return domain.KeygenRecord{}, err
	}
	return out, nil
}

type authMode int

const (
	authNone authMode = iota
	authOptional
	authRequired
)

// do performs one JSON exchange and returns the URL it used. in and out may be nil.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any, auth authMode) (string, error) {
	u := c.BaseURL() + path

	var tok string
	if auth != authNone {
		tok = c.token()
		if tok == "" && auth == authRequired {
			return u, errors.Wrapf(domain.ErrNotAuthenticated, "orchestrator %s", op)
		}
	}

	var body io.Reader
	if in != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return u, errors.Wrapf(err, "encode %s request", op)
		}
		body = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return u, errors.Wrapf(err, "build %s request", op)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return u, &NetworkError{Op: op, URL: u, Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return u, &NetworkError{Op: op, URL: u, Err: err}
	}
	if resp.StatusCode/100 != 2 {
		c.log.Debug().Str("op", op).Int("status", resp.StatusCode).Msg("request rejected")
		return u, &ProtocolError{Op: op, URL: u, StatusCode: resp.StatusCode, Reason: reason(b)}
	}
	if out != nil {
		if err := json.Unmarshal(b, out); err != nil {
			return u, &ProtocolError{Op: op, URL: u, StatusCode: resp.StatusCode, Reason: "malformed response: " + err.Error()}
		}
	}
	return u, nil
}

var _ domain.OrchestratorClient = (*Client)(nil)
