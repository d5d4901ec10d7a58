package pairing_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"cosigner/internal/crypto"
	"cosigner/internal/domain"
	"cosigner/internal/orchestrator"
	"cosigner/internal/orchestrator/devserver"
	"cosigner/internal/services/pairing"
	"cosigner/internal/store"
)

type staticToken string

func (t staticToken) IDToken(context.Context) (string, error) { return string(t), nil }

var addressRE = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

type harness struct {
	dev    *devserver.Server
	client *orchestrator.Client
	store  *store.FileStore
	dir    string
	svc    *pairing.Service

	mu       sync.Mutex
	statuses []pairing.Status
	results  []pairing.Result
}

func newHarness(t *testing.T, opts devserver.Options, token string, cfg pairing.Config) *harness {
	t.Helper()
	h := &harness{dev: devserver.New(opts, zerolog.Nop())}
	ts := httptest.NewServer(h.dev.Handler())
	t.Cleanup(ts.Close)

	h.client = orchestrator.NewClient(ts.URL+"/api", ts.Client(), zerolog.Nop())
	h.dir = t.TempDir()
	st, err := store.NewFileStore(h.dir, "pass", store.WithScryptParams(1<<10, 8, 1))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	h.store = st
	h.svc = pairing.New(st, h.client, crypto.NewDemo(), staticToken(token), cfg, zerolog.Nop())
	h.svc.Observe(pairing.Observer{
		OnStatus: func(s pairing.Status) {
			h.mu.Lock()
			h.statuses = append(h.statuses, s)
			h.mu.Unlock()
		},
		OnResult: func(r pairing.Result) {
			h.mu.Lock()
			h.results = append(h.results, r)
			h.mu.Unlock()
		},
	})
	return h
}

func (h *harness) networkCalls() int {
	n := 0
	for _, r := range []string{
		devserver.RouteAuth, devserver.RouteClaim, devserver.RouteSessionStatus,
		devserver.RouteSession, devserver.RouteKeygenDone,
	} {
		n += h.dev.Calls(r)
	}
	return n
}

func payloadJSON(t *testing.T, p domain.PairingPayload) string {
	t.Helper()
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return string(b)
}

var fast = pairing.Config{StatusInterval: 5 * time.Millisecond, Timeout: 2 * time.Second}

func TestPair_MalformedPayload_InvalidPayload(t *testing.T) {
	h := newHarness(t, devserver.Options{}, "tok", fast)

	for _, raw := range []string{"", "not json", `{"session_id":`, "[1,2]", "42", "null"} {
		_, err := h.svc.Pair(context.Background(), raw)
		if !errors.Is(err, domain.ErrInvalidPayload) {
			t.Fatalf("%q: want ErrInvalidPayload, got %v", raw, err)
		}
		var se *pairing.StepError
		if !errors.As(err, &se) || se.Step != pairing.StepParsing {
			t.Fatalf("%q: want parsing step error, got %v", raw, err)
		}
	}
	if n := h.networkCalls(); n != 0 {
		t.Fatalf("expected no network calls, got %d", n)
	}
}

func TestPair_NonPairingObject_Forwarded(t *testing.T) {
	h := newHarness(t, devserver.Options{}, "", fast)

	raws := []string{
		`{"hello":"world","n":3}`,
		`{"session_id":"s1","nonce":"n1","action":"login"}`,
		`{"session_id":"s1","action":"pair"}`,
	}
	for _, raw := range raws {
		res, err := h.svc.Pair(context.Background(), raw)
		if err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if res.IsPairing() {
			t.Fatalf("%s: unexpected pairing result", raw)
		}
		var want map[string]any
		_ = json.Unmarshal([]byte(raw), &want)
		got, _ := json.Marshal(res)
		exp, _ := json.Marshal(want)
		if string(got) != string(exp) {
			t.Fatalf("forwarded %s, want %s", got, exp)
		}
	}
	if n := h.networkCalls(); n != 0 {
		t.Fatalf("expected no network calls, got %d", n)
	}
	if len(h.results) != len(raws) {
		t.Fatalf("observer saw %d results", len(h.results))
	}
}

func TestPair_NoIdentityToken_NotAuthenticated(t *testing.T) {
	h := newHarness(t, devserver.Options{}, "", fast)
	p := h.dev.CreateSession()

	_, err := h.svc.Pair(context.Background(), payloadJSON(t, p))
	if !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("want ErrNotAuthenticated, got %v", err)
	}
	if h.networkCalls() != 0 {
		t.Fatal("no request may be sent without an identity token")
	}
	last := h.statuses[len(h.statuses)-1]
	if last.Step != pairing.StepFailed || !strings.Contains(last.Message, domain.ErrNotAuthenticated.Error()) {
		t.Fatalf("final status %+v", last)
	}
}

func TestPair_PendingThenBound_OrchestratorWallet(t *testing.T) {
	h := newHarness(t, devserver.Options{BindAfterPolls: 1}, "tok", fast)
	p := h.dev.CreateSession()

	res, err := h.svc.Pair(context.Background(), payloadJSON(t, p))
	if err != nil {
		t.Fatalf("pair: %v", err)
	}
	if !res.IsPairing() {
		t.Fatal("expected pairing success")
	}
	s := res.Success
	if s.Type != pairing.SuccessType {
		t.Fatalf("type = %q", s.Type)
	}
	if s.SessionStatus.Status != domain.SessionComplete {
		t.Fatalf("session status = %q", s.SessionStatus.Status)
	}
	if !addressRE.MatchString(s.Wallet.Address) {
		t.Fatalf("malformed address %q", s.Wallet.Address)
	}
	if s.WalletPath != pairing.WalletOrchestrator || s.Message != pairing.MessageOrchestratorWallet {
		t.Fatalf("path=%s message=%q", s.WalletPath, s.Message)
	}
	if s.KeygenData == nil || !s.KeygenData.OK {
		t.Fatalf("missing keygen record: %+v", s.KeygenData)
	}
	if got := h.dev.Calls(devserver.RouteSessionStatus); got != 2 {
		t.Fatalf("status polls = %d, want 2 (PENDING then BOUND)", got)
	}

	share, ok, err := store.LoadKeyShare(h.store, s.Wallet.KeyID)
	if err != nil || !ok || share == "" {
		t.Fatalf("share not stored: ok=%v err=%v", ok, err)
	}
	if _, ok := h.dev.Key(s.Wallet.KeyID); !ok {
		t.Fatal("orchestrator did not receive keygen report")
	}
	if st, _ := h.dev.Session(p.SessionID); st.Status != domain.SessionComplete {
		t.Fatalf("server session status = %s", st.Status)
	}

	b, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"type":"pairing_success"`) || !strings.Contains(string(b), `"status":"COMPLETE"`) {
		t.Fatalf("unexpected success json %s", b)
	}

	steps := make([]pairing.Step, 0, len(h.statuses))
	for _, st := range h.statuses {
		steps = append(steps, st.Step)
	}
	want := []pairing.Step{
		pairing.StepParsing, pairing.StepAuthenticating, pairing.StepClaiming,
		pairing.StepPolling, pairing.StepWallet, pairing.StepComplete,
	}
	if len(steps) != len(want) {
		t.Fatalf("steps = %v", steps)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("steps = %v, want %v", steps, want)
		}
	}
}

func TestPair_ClaimReportsBound_SkipsPolling(t *testing.T) {
	h := newHarness(t, devserver.Options{ClaimReportsBound: true}, "tok", fast)
	p := h.dev.CreateSession()

	res, err := h.svc.Pair(context.Background(), payloadJSON(t, p))
	if err != nil {
		t.Fatalf("pair: %v", err)
	}
	if !res.IsPairing() {
		t.Fatal("expected pairing success")
	}
	if n := h.dev.Calls(devserver.RouteSessionStatus) + h.dev.Calls(devserver.RouteSession); n != 0 {
		t.Fatalf("status polled %d times", n)
	}
}

func TestPair_KeygenReportFails_LocalWallet(t *testing.T) {
	h := newHarness(t, devserver.Options{FailKeygenDone: true}, "tok", fast)
	p := h.dev.CreateSession()

	res, err := h.svc.Pair(context.Background(), payloadJSON(t, p))
	if err != nil {
		t.Fatalf("pair: %v", err)
	}
	s := res.Success
	if s == nil {
		t.Fatal("expected pairing success")
	}
	if s.WalletPath != pairing.WalletLocal || s.Message != pairing.MessageLocalWallet {
		t.Fatalf("path=%s message=%q", s.WalletPath, s.Message)
	}
	if s.KeygenData != nil {
		t.Fatal("local wallet must not carry a keygen record")
	}
	if !addressRE.MatchString(s.Wallet.Address) {
		t.Fatalf("malformed address %q", s.Wallet.Address)
	}
	if _, ok, _ := store.LoadKeyShare(h.store, s.Wallet.KeyID); !ok {
		t.Fatal("share not stored before the report")
	}
	last := h.statuses[len(h.statuses)-1]
	if last.Step != pairing.StepComplete || last.Message != pairing.MessageLocalWallet {
		t.Fatalf("last status %+v", last)
	}
}

func TestPair_NeverBound_PollingTimeout(t *testing.T) {
	cfg := pairing.Config{StatusInterval: 5 * time.Millisecond, Timeout: 60 * time.Millisecond}
	h := newHarness(t, devserver.Options{BindAfterPolls: -1}, "tok", cfg)
	p := h.dev.CreateSession()

	_, err := h.svc.Pair(context.Background(), payloadJSON(t, p))
	if !errors.Is(err, domain.ErrPollingTimeout) {
		t.Fatalf("want ErrPollingTimeout, got %v", err)
	}
	var se *pairing.StepError
	if !errors.As(err, &se) || se.Step != pairing.StepPolling {
		t.Fatalf("want polling step error, got %v", err)
	}
	if h.dev.Calls(devserver.RouteSessionStatus) < 2 {
		t.Fatal("expected repeated status polls")
	}
	if h.dev.Calls(devserver.RouteKeygenDone) != 0 {
		t.Fatal("keygen reported despite timeout")
	}
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		t.Fatalf("read store dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("store holds %d secrets, want only the device id", len(entries))
	}
	if len(h.results) != 0 {
		t.Fatal("no result expected on failure")
	}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestPair_ExpiredBeforeClaim_ClaimRejected(t *testing.T) {
	clk := &clock{now: time.Now()}
	h := newHarness(t, devserver.Options{SessionTTL: time.Minute, Now: clk.Now}, "tok", fast)
	p := h.dev.CreateSession()
	clk.Advance(2 * time.Minute)

	_, err := h.svc.Pair(context.Background(), payloadJSON(t, p))
	var se *pairing.StepError
	if !errors.As(err, &se) || se.Step != pairing.StepClaiming {
		t.Fatalf("want claiming step error, got %v", err)
	}
	var pe *orchestrator.ProtocolError
	if !errors.As(err, &pe) || pe.Reason != "session expired" {
		t.Fatalf("want expired claim rejection, got %v", err)
	}
}

func TestPair_ExpiresWhilePolling_SessionExpired(t *testing.T) {
	clk := &clock{now: time.Now()}
	h := newHarness(t, devserver.Options{BindAfterPolls: -1, SessionTTL: time.Minute, Now: clk.Now}, "tok", fast)
	h.svc.Observe(pairing.Observer{OnStatus: func(s pairing.Status) {
		if s.Step == pairing.StepPolling {
			clk.Advance(2 * time.Minute)
		}
	}})
	p := h.dev.CreateSession()

	_, err := h.svc.Pair(context.Background(), payloadJSON(t, p))
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("want ErrSessionExpired, got %v", err)
	}
	if h.dev.Calls(devserver.RouteKeygenDone) != 0 {
		t.Fatal("keygen reported for an expired session")
	}
}

func TestPair_ObserverSwappedDuringAttempt(t *testing.T) {
	h := newHarness(t, devserver.Options{BindAfterPolls: 2}, "tok", fast)
	p := h.dev.CreateSession()

	var mu sync.Mutex
	var late []pairing.Step
	second := pairing.Observer{OnStatus: func(s pairing.Status) {
		mu.Lock()
		late = append(late, s.Step)
		mu.Unlock()
	}}
	h.svc.Observe(pairing.Observer{OnStatus: func(s pairing.Status) {
		if s.Step == pairing.StepPolling {
			h.svc.Observe(second)
		}
	}})

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				h.svc.Observe(second)
			}
		}
	}()

	_, err := h.svc.Pair(context.Background(), payloadJSON(t, p))
	close(stop)
	wg.Wait()
	if err != nil {
		t.Fatalf("pair: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(late) == 0 || late[len(late)-1] != pairing.StepComplete {
		t.Fatalf("replacement observer saw %v", late)
	}
}

func TestPair_APIOverrideApplied(t *testing.T) {
	h := newHarness(t, devserver.Options{ClaimReportsBound: true}, "tok", fast)
	p := h.dev.CreateSession()
	base := h.client.BaseURL()
	p.API = strings.TrimSuffix(base, "/api")

	h.client.SetBaseOverride("http://127.0.0.1:1/api")
	res, err := h.svc.Pair(context.Background(), payloadJSON(t, p))
	if err != nil {
		t.Fatalf("pair: %v", err)
	}
	if !res.IsPairing() {
		t.Fatal("expected pairing success")
	}
	if h.client.BaseURL() != base {
		t.Fatalf("base = %q, want %q", h.client.BaseURL(), base)
	}
}
