package pairing

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"cosigner/internal/domain"
)

// ParsePayload decodes raw scan text. It returns the pairing payload when the
// object carries string session_id and nonce and a pairing action marker; otherwise the
// decoded object is returned for the caller to forward. Text that is not a
// JSON object fails with domain.ErrInvalidPayload.
func ParsePayload(raw string) (*domain.PairingPayload, map[string]any, error) {
	raw = strings.TrimSpace(raw)

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, nil, errors.Wrap(domain.ErrInvalidPayload, err.Error())
	}
	if obj == nil {
		return nil, nil, errors.Wrap(domain.ErrInvalidPayload, "payload is null")
	}

	str := func(k string) string {
		v, _ := obj[k].(string)
		return v
	}
	p := domain.PairingPayload{
		SessionID: domain.SessionID(str("session_id")),
		Nonce:     str("nonce"),
		Action:    domain.PairingAction(str("action")),
	}
	if p.SessionID == "" || p.Nonce == "" || !p.Action.Valid() {
		return nil, obj, nil
	}
	// Optional fields of the wrong type are dropped.
	p.ServerURL = str("server_url")
	p.BrowserOrigin = str("browser_origin")
	p.API = str("api")
	return &p, nil, nil
}
