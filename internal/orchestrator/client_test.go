package orchestrator_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"cosigner/internal/domain"
	"cosigner/internal/orchestrator"
	"cosigner/internal/orchestrator/devserver"
)

func newPair(t *testing.T, opts devserver.Options) (*devserver.Server, *orchestrator.Client) {
	t.Helper()
	dev := devserver.New(opts, zerolog.Nop())
	ts := httptest.NewServer(dev.Handler())
	t.Cleanup(ts.Close)
	return dev, orchestrator.NewClient(ts.URL+"/api", ts.Client(), zerolog.Nop())
}

func TestNormalizeAPIBase(t *testing.T) {
	cases := map[string]string{
		"http://host:8080":      "http://host:8080/api",
		"http://host:8080/":     "http://host:8080/api",
		"http://host:8080/api":  "http://host:8080/api",
		"http://host:8080/api/": "http://host:8080/api",
		"":                      "",
	}
	for in, want := range cases {
		if got := orchestrator.NormalizeAPIBase(in); got != want {
			t.Errorf("NormalizeAPIBase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClient_BaseOverride(t *testing.T) {
	c := orchestrator.NewClient("http://default/api", nil, zerolog.Nop())
	c.SetBaseOverride("http://other:9000")
	if got := c.BaseURL(); got != "http://other:9000/api" {
		t.Fatalf("override base = %q", got)
	}
	c.SetBaseOverride("")
	if got := c.BaseURL(); got != "http://default/api" {
		t.Fatalf("cleared base = %q", got)
	}
}

func TestClient_AuthenticatedCallsRequireSession(t *testing.T) {
	dev, c := newPair(t, devserver.Options{})
	ctx := context.Background()

	_, err := c.ClaimSession(ctx, domain.ClaimRequest{SessionID: "s", Nonce: "n", DeviceID: "d"})
	if !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("want ErrNotAuthenticated, got %v", err)
	}
	if _, err := c.GetSessionStatus(ctx, "s"); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("want ErrNotAuthenticated, got %v", err)
	}
	if n := dev.Calls(devserver.RouteClaim) + dev.Calls(devserver.RouteSessionStatus); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
}

func TestClient_AuthClaimStatus_OK(t *testing.T) {
	dev, c := newPair(t, devserver.Options{BindAfterPolls: 0})
	ctx := context.Background()
	p := dev.CreateSession()

	res, err := c.AuthenticatePhone(ctx, "id-token")
	if err != nil {
		t.Fatalf("auth: %v", err)
	}
	if !c.Authenticated() || c.UserID() != res.UserID {
		t.Fatalf("session not held: %+v", res)
	}

	claim, err := c.ClaimSession(ctx, domain.ClaimRequest{SessionID: p.SessionID, Nonce: p.Nonce, DeviceID: "dev-1"})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claim.Status != "" {
		t.Fatalf("claim status = %q, want empty", claim.Status)
	}

	st, err := c.GetSessionStatus(ctx, p.SessionID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Status != domain.SessionBound || st.DeviceID != "dev-1" {
		t.Fatalf("unexpected status %+v", st)
	}

	c.ClearSession()
	if c.Authenticated() {
		t.Fatal("session survived ClearSession")
	}
}

func TestClient_StatusFallsBackToSecondPath(t *testing.T) {
	dev, c := newPair(t, devserver.Options{NoStatusSuffix: true, ClaimReportsBound: true})
	ctx := context.Background()
	p := dev.CreateSession()

	if _, err := c.AuthenticatePhone(ctx, "tok"); err != nil {
		t.Fatalf("auth: %v", err)
	}
	claim, err := c.ClaimSession(ctx, domain.ClaimRequest{SessionID: p.SessionID, Nonce: p.Nonce, DeviceID: "d"})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claim.Status != domain.SessionBound {
		t.Fatalf("claim status = %q", claim.Status)
	}
	st, err := c.GetSessionStatus(ctx, p.SessionID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Status != domain.SessionBound {
		t.Fatalf("status = %q", st.Status)
	}
	if dev.Calls(devserver.RouteSession) != 1 {
		t.Fatalf("fallback path calls = %d", dev.Calls(devserver.RouteSession))
	}
}

func TestClient_ProtocolErrorCarriesReason(t *testing.T) {
	dev, c := newPair(t, devserver.Options{})
	ctx := context.Background()
	p := dev.CreateSession()

	if _, err := c.AuthenticatePhone(ctx, "tok"); err != nil {
		t.Fatalf("auth: %v", err)
	}
	_, err := c.ClaimSession(ctx, domain.ClaimRequest{SessionID: p.SessionID, Nonce: "wrong", DeviceID: "d"})

	var pe *orchestrator.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("want *ProtocolError, got %T %v", err, err)
	}
	if pe.StatusCode != http.StatusForbidden || pe.Reason != "nonce mismatch" {
		t.Fatalf("unexpected error %+v", pe)
	}
	if !orchestrator.IsRetryable(err) {
		t.Fatal("protocol errors are retryable")
	}
}

func TestClient_NetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := orchestrator.NewClient(url+"/api", nil, zerolog.Nop())
	_, err := c.GetActions(context.Background(), "d")

	var ne *orchestrator.NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("want *NetworkError, got %T %v", err, err)
	}
	if !orchestrator.IsRetryable(err) {
		t.Fatal("network errors are retryable")
	}
}

func TestClient_AuthRejected(t *testing.T) {
	_, c := newPair(t, devserver.Options{})
	_, err := c.AuthenticatePhone(context.Background(), "")

	var pe *orchestrator.ProtocolError
	if !errors.As(err, &pe) || pe.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401 protocol error, got %v", err)
	}
	if c.Authenticated() {
		t.Fatal("rejected auth must not set a session")
	}
}

func TestClient_ActionsAndReports(t *testing.T) {
	dev, c := newPair(t, devserver.Options{})
	ctx := context.Background()

	kid := dev.EnqueueKeygen("d")
	sid, intent := dev.EnqueueSign("d", "key-1", "0xABCD")

	acts, err := c.GetActions(ctx, "d")
	if err != nil {
		t.Fatalf("actions: %v", err)
	}
	if len(acts) != 2 {
		t.Fatalf("got %d actions", len(acts))
	}
	if k, ok := acts[0].(domain.KeygenAction); !ok || k.ID != kid || k.Status() != domain.ActionPending {
		t.Fatalf("first action %#v", acts[0])
	}
	s, ok := acts[1].(domain.SignAction)
	if !ok || s.ID != sid || s.SignIntentID != intent || s.KeyID != "key-1" || s.MsgHash != "0xABCD" {
		t.Fatalf("second action %#v", acts[1])
	}

	if _, err := c.KeygenDone(ctx, domain.KeygenReport{ActionID: kid, KeyID: "key-1", PublicKey: "pk"}); err != nil {
		t.Fatalf("keygen done: %v", err)
	}
	sig := domain.Signature{R: "aa", S: "bb", V: 27}
	if err := c.SignDone(ctx, domain.SignReport{IntentID: intent, Signature: sig}); err != nil {
		t.Fatalf("sign done: %v", err)
	}

	if st, _ := dev.ActionStatus(kid); st != domain.ActionDone {
		t.Fatalf("keygen action status %s", st)
	}
	if got, ok := dev.Signature(intent); !ok || got != sig {
		t.Fatalf("signature not recorded: %+v", got)
	}
}

func TestClient_KeygenStatus(t *testing.T) {
	dev, c := newPair(t, devserver.Options{})
	ctx := context.Background()
	p := dev.CreateSession()

	if _, err := c.GetKeygenStatus(ctx, p.SessionID); err == nil {
		t.Fatal("expected not found before keygen")
	}
	if _, err := c.KeygenDone(ctx, domain.KeygenReport{SessionID: p.SessionID, KeyID: "k", PublicKey: "pk"}); err != nil {
		t.Fatalf("keygen done: %v", err)
	}
	rec, err := c.GetKeygenStatus(ctx, p.SessionID)
	if err != nil {
		t.Fatalf("keygen status: %v", err)
	}
	if !rec.OK || rec.SessionID != p.SessionID || len(rec.KeygenData) == 0 {
		t.Fatalf("unexpected record %+v", rec)
	}
}
