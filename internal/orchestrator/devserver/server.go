package devserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cosigner/internal/domain"
)

// Route names reported by Calls.
const (
	RouteAuth          = "auth/phone"
	RouteClaim         = "claim_session"
	RouteSessionStatus = "session/status"
	RouteSession       = "session"
	RouteActions       = "actions"
	RouteKeygenDone    = "keygen_done"
	RouteSignDone      = "sign_done"
	RouteKeygenStatus  = "keygen"
)

// DefaultSessionTTL is how long a pairing session stays claimable.
const DefaultSessionTTL = 5 * time.Minute

// Options switches server behaviour.
type Options struct {
	// ClaimReportsBound makes claim_session answer {"status":"BOUND"}.
	ClaimReportsBound bool
	// BindAfterPolls is the number of status reads a claimed session answers
	// PENDING before it turns BOUND. Negative never binds.
	BindAfterPolls int
	// NoStatusSuffix removes /session/{id}/status, leaving /session/{id}.
	NoStatusSuffix bool
	// FailKeygenDone answers keygen_done with 503.
	FailKeygenDone bool
	// BeforeActions runs before /actions is served.
	BeforeActions func()
	// SessionTTL defaults to DefaultSessionTTL.
	SessionTTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type session struct {
	status      domain.SessionStatus
	nonce       string
	claimed     bool
	statusReads int
	keygen      *domain.KeygenRecord
}

type action struct {
	typ     domain.ActionType
	id      domain.ActionID
	status  domain.ActionStatus
	created string
	intent  string
	keyID   domain.KeyID
	msgHash string
}

// Server is an in-memory orchestrator. Safe for concurrent use.
type Server struct {
	opts   Options
	log    zerolog.Logger
	router chi.Router

	mu         sync.Mutex
	tokens     map[string]string // bearer -> user id
	sessions   map[domain.SessionID]*session
	actions    map[domain.DeviceID][]*action
	keys       map[domain.KeyID]domain.KeygenReport
	signatures map[string]domain.Signature
	calls      map[string]int
}

// New builds a Server.
func New(opts Options, log zerolog.Logger) *Server {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		opts:       opts,
		log:        log.With().Str("component", "devserver").Logger(),
		tokens:     make(map[string]string),
		sessions:   make(map[domain.SessionID]*session),
		actions:    make(map[domain.DeviceID][]*action),
		keys:       make(map[domain.KeyID]domain.KeygenReport),
		signatures: make(map[string]domain.Signature),
		calls:      make(map[string]int),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler serving /api.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/phone", s.counted(RouteAuth, s.handleAuth))

		api.Group(func(authed chi.Router) {
			authed.Use(s.requireBearer)
			authed.Post("/claim_session", s.counted(RouteClaim, s.handleClaim))
			if !s.opts.NoStatusSuffix {
				authed.Get("/session/{id}/status", s.counted(RouteSessionStatus, s.handleStatus))
			}
			authed.Get("/session/{id}", s.counted(RouteSession, s.handleStatus))
		})

		api.Get("/actions", s.counted(RouteActions, s.handleActions))
		api.Post("/keygen_done", s.counted(RouteKeygenDone, s.handleKeygenDone))
		api.Post("/sign_done", s.counted(RouteSignDone, s.handleSignDone))
		api.Get("/keygen/{id}", s.counted(RouteKeygenStatus, s.handleKeygenStatus))

		api.Route("/dev", func(dev chi.Router) {
			dev.Post("/sessions", s.handleDevSession)
			dev.Post("/actions", s.handleDevAction)
		})
	})
	return r
}

// Calls returns how many requests route has served.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

func (s *Server) counted(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[route]++
		s.mu.Unlock()
		h(w, r)
	}
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		_, known := s.tokens[tok]
		s.mu.Unlock()
		if !ok || !known {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateSession opens a PENDING pairing session and returns its payload.
func (s *Server) CreateSession() domain.PairingPayload {
	now := s.opts.Now()
	id := domain.SessionID(uuid.NewString())
	nonce := uuid.NewString()

	s.mu.Lock()
	s.sessions[id] = &session{
		nonce: nonce,
		status: domain.SessionStatus{
			SessionID: id,
			Status:    domain.SessionPending,
			CreatedAt: now.UTC().Format(time.RFC3339),
			ExpiresAt: now.Add(s.opts.SessionTTL).UTC().Format(time.RFC3339),
		},
	}
	s.mu.Unlock()

	return domain.PairingPayload{SessionID: id, Nonce: nonce, Action: domain.PairingActionPair}
}

// Session returns the current status of a session.
func (s *Server) Session(id domain.SessionID) (domain.SessionStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return domain.SessionStatus{}, false
	}
	s.expireLocked(sess)
	return sess.status, true
}

// EnqueueKeygen queues a KEYGEN action for device.
func (s *Server) EnqueueKeygen(device domain.DeviceID) domain.ActionID {
	return s.enqueue(device, &action{typ: domain.ActionKeygen})
}

// EnqueueSign queues a SIGN action for device and returns its id and sign intent.
func (s *Server) EnqueueSign(device domain.DeviceID, keyID domain.KeyID, msgHash string) (domain.ActionID, string) {
	a := &action{typ: domain.ActionSign, intent: uuid.NewString(), keyID: keyID, msgHash: msgHash}
	return s.enqueue(device, a), a.intent
}

func (s *Server) enqueue(device domain.DeviceID, a *action) domain.ActionID {
	a.id = domain.ActionID(uuid.NewString())
	a.status = domain.ActionPending
	a.created = s.opts.Now().UTC().Format(time.RFC3339)
	s.mu.Lock()
	s.actions[device] = append(s.actions[device], a)
	s.mu.Unlock()
	return a.id
}

// ActionStatus returns the status of an enqueued action.
func (s *Server) ActionStatus(id domain.ActionID) (domain.ActionStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, list := range s.actions {
		for _, a := range list {
			if a.id == id {
				return a.status, true
			}
		}
	}
	return "", false
}

// Key returns the keygen report received for keyID.
func (s *Server) Key(keyID domain.KeyID) (domain.KeygenReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[keyID]
	return k, ok
}

// Keys returns every keygen report received.
func (s *Server) Keys() []domain.KeygenReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.KeygenReport, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, k)
	}
	return out
}

// Signature returns the signature delivered for a sign intent.
func (s *Server) Signature(intentID string) (domain.Signature, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig, ok := s.signatures[intentID]
	return sig, ok
}

func (s *Server) expireLocked(sess *session) {
	if sess.status.Status != domain.SessionPending {
		return
	}
	exp, err := time.Parse(time.RFC3339, sess.status.ExpiresAt)
	if err == nil && s.opts.Now().After(exp) {
		sess.status.Status = domain.SessionExpired
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"ok": false, "error": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return false
	}
	return true
}
