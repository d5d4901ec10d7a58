package types

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// ActionType is the wire tag of an orchestrator action.
type ActionType string

const (
	ActionKeygen ActionType = "KEYGEN"
	ActionSign   ActionType = "SIGN"
)

// ActionStatus is the server-side state of an action.
type ActionStatus string

const (
	ActionPending ActionStatus = "PENDING"
	ActionDone    ActionStatus = "DONE"
	ActionFailed  ActionStatus = "FAILED"
)

// Action is a unit of work issued by the orchestrator. The set of implementations
// is closed: adding a variant means adding a method to ActionHandler, which breaks
// every handler until it supports the new variant.
type Action interface {
	ActionID() ActionID
	Type() ActionType
	Status() ActionStatus
	Accept(ctx context.Context, h ActionHandler) error

	sealed()
}

// ActionHandler fulfils actions, one method per variant.
type ActionHandler interface {
	HandleKeygen(ctx context.Context, a KeygenAction) error
	HandleSign(ctx context.Context, a SignAction) error
}

// KeygenAction asks the device to create a key share.
type KeygenAction struct {
	ID        ActionID     `json:"id"`
	State     ActionStatus `json:"status"`
	CreatedAt string       `json:"createdAt,omitempty"`
}

func (a KeygenAction) ActionID() ActionID   { return a.ID }
func (a KeygenAction) Type() ActionType     { return ActionKeygen }
func (a KeygenAction) Status() ActionStatus { return a.State }
func (a KeygenAction) sealed()              {}

// Accept dispatches to h.HandleKeygen.
func (a KeygenAction) Accept(ctx context.Context, h ActionHandler) error {
	return h.HandleKeygen(ctx, a)
}

// SignAction asks the device to sign MsgHash with the share stored under KeyID.
type SignAction struct {
	ID           ActionID     `json:"id"`
	State        ActionStatus `json:"status"`
	CreatedAt    string       `json:"createdAt,omitempty"`
	SignIntentID string       `json:"signIntentId"`
	KeyID        KeyID        `json:"keyId"`
	MsgHash      string       `json:"msgHash"`
}

func (a SignAction) ActionID() ActionID   { return a.ID }
func (a SignAction) Type() ActionType     { return ActionSign }
func (a SignAction) Status() ActionStatus { return a.State }
func (a SignAction) sealed()              {}

// Accept dispatches to h.HandleSign.
func (a SignAction) Accept(ctx context.Context, h ActionHandler) error {
	return h.HandleSign(ctx, a)
}

// unsupportedAction carries an action whose type this build does not know.
// Handling it always fails so it shows up in poll state instead of vanishing.
type unsupportedAction struct {
	id    ActionID
	typ   ActionType
	state ActionStatus
}

func (a unsupportedAction) ActionID() ActionID   { return a.id }
func (a unsupportedAction) Type() ActionType     { return a.typ }
func (a unsupportedAction) Status() ActionStatus { return a.state }
func (a unsupportedAction) sealed()              {}

func (a unsupportedAction) Accept(context.Context, ActionHandler) error {
	return errors.Wrapf(ErrUnsupportedAction, "action %s has type %q", a.id, a.typ)
}

// malformedAction stands in for a list entry that failed to decode. Handling it
// returns the decode error; the rest of the batch is unaffected.
type malformedAction struct {
	id    ActionID
	typ   ActionType
	state ActionStatus
	err   error
}

func (a malformedAction) ActionID() ActionID   { return a.id }
func (a malformedAction) Type() ActionType     { return a.typ }
func (a malformedAction) Status() ActionStatus { return a.state }
func (a malformedAction) sealed()              {}

func (a malformedAction) Accept(context.Context, ActionHandler) error {
	return errors.Wrapf(ErrMalformedAction, "action %s (%s): %v", a.id, a.typ, a.err)
}

// salvageHead reads whatever id, type and status strings raw carries. An entry
// without a readable status is taken as pending so its failure is reported.
func salvageHead(raw json.RawMessage) (ActionID, ActionType, ActionStatus) {
	var obj map[string]any
	_ = json.Unmarshal(raw, &obj)
	str := func(k string) string {
		v, _ := obj[k].(string)
		return v
	}
	state := ActionStatus(str("status"))
	if state == "" {
		state = ActionPending
	}
	return ActionID(str("id")), ActionType(str("type")), state
}

// DecodeAction decodes one wire action into its variant.
func DecodeAction(raw json.RawMessage) (Action, error) {
	var head struct {
		ID     ActionID     `json:"id"`
		Type   ActionType   `json:"type"`
		Status ActionStatus `json:"status"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	switch head.Type {
	case ActionKeygen:
		var a KeygenAction
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		return a, nil
	case ActionSign:
		var a SignAction
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		return a, nil
	default:
		return unsupportedAction{id: head.ID, typ: head.Type, state: head.Status}, nil
	}
}

// ActionList is the body of GET /actions.
type ActionList struct {
	Actions []Action
}

// UnmarshalJSON decodes {"actions": [...]} preserving order. Only a broken
// envelope is an error; a bad entry decodes to an action whose handling fails.
func (l *ActionList) UnmarshalJSON(data []byte) error {
	var aux struct {
		Actions []json.RawMessage `json:"actions"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	l.Actions = make([]Action, 0, len(aux.Actions))
	for i, raw := range aux.Actions {
		a, err := DecodeAction(raw)
		if err != nil {
			id, typ, state := salvageHead(raw)
			if id == "" {
				id = ActionID(fmt.Sprintf("#%d", i))
			}
			a = malformedAction{id: id, typ: typ, state: state, err: err}
		}
		l.Actions = append(l.Actions, a)
	}
	return nil
}

// MarshalJSON mirrors UnmarshalJSON, adding the type tag to each entry.
func (l ActionList) MarshalJSON() ([]byte, error) {
	out := make([]any, 0, len(l.Actions))
	for _, a := range l.Actions {
		switch v := a.(type) {
		case KeygenAction:
			out = append(out, struct {
				Type ActionType `json:"type"`
				KeygenAction
			}{ActionKeygen, v})
		case SignAction:
			out = append(out, struct {
				Type ActionType `json:"type"`
				SignAction
			}{ActionSign, v})
		default:
			out = append(out, map[string]any{"id": a.ActionID(), "type": a.Type(), "status": a.Status()})
		}
	}
	return json.Marshal(struct {
		Actions []any `json:"actions"`
	}{out})
}
