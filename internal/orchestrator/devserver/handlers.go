package devserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"cosigner/internal/domain"
)

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDToken string `json:"id_token"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.IDToken == "" {
		writeError(w, http.StatusUnauthorized, "missing id_token")
		return
	}
	tok := uuid.NewString()
	user := "dev-" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(req.IDToken)).String()[:8]

	s.mu.Lock()
	s.tokens[tok] = user
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, domain.AuthResult{OK: true, Token: tok, UserID: user})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req domain.ClaimRequest
	if !decode(w, r, &req) {
		return
	}
	if req.SessionID == "" || req.Nonce == "" || req.DeviceID == "" {
		writeError(w, http.StatusBadRequest, "sessionId, nonce and deviceId are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[req.SessionID]
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	s.expireLocked(sess)
	switch {
	case sess.status.Status == domain.SessionExpired:
		writeError(w, http.StatusGone, "session expired")
		return
	case sess.nonce != req.Nonce:
		writeError(w, http.StatusForbidden, "nonce mismatch")
		return
	case sess.claimed && sess.status.DeviceID != req.DeviceID:
		writeError(w, http.StatusConflict, "session already claimed")
		return
	}

	sess.claimed = true
	sess.status.DeviceID = req.DeviceID
	if !s.opts.ClaimReportsBound {
		writeJSON(w, http.StatusOK, domain.ClaimResult{OK: true})
		return
	}
	s.bindLocked(sess)
	writeJSON(w, http.StatusOK, domain.ClaimResult{OK: true, Status: domain.SessionBound, DeviceID: req.DeviceID})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := domain.SessionID(chi.URLParam(r, "id"))

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	s.expireLocked(sess)
	if sess.claimed && sess.status.Status == domain.SessionPending {
		if s.opts.BindAfterPolls >= 0 && sess.statusReads >= s.opts.BindAfterPolls {
			s.bindLocked(sess)
		}
		sess.statusReads++
	}
	writeJSON(w, http.StatusOK, sess.status)
}

func (s *Server) bindLocked(sess *session) {
	sess.status.Status = domain.SessionBound
	sess.status.BoundAt = s.opts.Now().UTC().Format(time.RFC3339)
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	if s.opts.BeforeActions != nil {
		s.opts.BeforeActions()
	}
	device := domain.DeviceID(r.URL.Query().Get("deviceId"))
	if device == "" {
		writeError(w, http.StatusBadRequest, "deviceId is required")
		return
	}

	s.mu.Lock()
	list := make([]domain.Action, 0, len(s.actions[device]))
	for _, a := range s.actions[device] {
		list = append(list, a.wire())
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, domain.ActionList{Actions: list})
}

func (a *action) wire() domain.Action {
	if a.typ == domain.ActionSign {
		return domain.SignAction{
			ID: a.id, State: a.status, CreatedAt: a.created,
			SignIntentID: a.intent, KeyID: a.keyID, MsgHash: a.msgHash,
		}
	}
	return domain.KeygenAction{ID: a.id, State: a.status, CreatedAt: a.created}
}

func (s *Server) handleKeygenDone(w http.ResponseWriter, r *http.Request) {
	if s.opts.FailKeygenDone {
		writeError(w, http.StatusServiceUnavailable, "keygen service unavailable")
		return
	}
	var rep domain.KeygenReport
	if !decode(w, r, &rep) {
		return
	}
	if rep.KeyID == "" || rep.PublicKey == "" {
		writeError(w, http.StatusBadRequest, "keyId and publicKey are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[rep.KeyID] = rep
	if rep.ActionID != "" {
		if a := s.findActionLocked(func(a *action) bool { return a.id == rep.ActionID }); a != nil {
			a.status = domain.ActionDone
		}
	}

	rec := domain.KeygenRecord{OK: true, SessionID: rep.SessionID, Status: string(domain.SessionComplete)}
	rec.KeygenData, _ = json.Marshal(rep)
	if sess, ok := s.sessions[rep.SessionID]; ok {
		sess.status.Status = domain.SessionComplete
		sess.keygen = &rec
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSignDone(w http.ResponseWriter, r *http.Request) {
	var rep domain.SignReport
	if !decode(w, r, &rep) {
		return
	}
	if rep.IntentID == "" {
		writeError(w, http.StatusBadRequest, "intentId is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.signatures[rep.IntentID] = rep.Signature
	if a := s.findActionLocked(func(a *action) bool { return a.intent == rep.IntentID }); a != nil {
		a.status = domain.ActionDone
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleKeygenStatus(w http.ResponseWriter, r *http.Request) {
	id := domain.SessionID(chi.URLParam(r, "id"))

	s.mu.Lock()
	sess, ok := s.sessions[id]
	var rec *domain.KeygenRecord
	if ok {
		rec = sess.keygen
	}
	s.mu.Unlock()

	if rec == nil {
		writeError(w, http.StatusNotFound, "no keygen for session")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDevSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, s.CreateSession())
}

func (s *Server) handleDevAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceID domain.DeviceID   `json:"deviceId"`
		Type     domain.ActionType `json:"type"`
		KeyID    domain.KeyID      `json:"keyId"`
		MsgHash  string            `json:"msgHash"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.DeviceID == "" {
		writeError(w, http.StatusBadRequest, "deviceId is required")
		return
	}
	switch req.Type {
	case domain.ActionKeygen:
		writeJSON(w, http.StatusCreated, map[string]any{"id": s.EnqueueKeygen(req.DeviceID)})
	case domain.ActionSign:
		id, intent := s.EnqueueSign(req.DeviceID, req.KeyID, req.MsgHash)
		writeJSON(w, http.StatusCreated, map[string]any{"id": id, "signIntentId": intent})
	default:
		writeError(w, http.StatusBadRequest, "type must be KEYGEN or SIGN")
	}
}

func (s *Server) findActionLocked(match func(*action) bool) *action {
	for _, list := range s.actions {
		for _, a := range list {
			if match(a) {
				return a
			}
		}
	}
	return nil
}
