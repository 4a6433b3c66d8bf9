package models

import (
	"encoding/json"
	"maps"
	"strings"
)

// Session is the locally held credential used to sign transactions.
type Session struct {
	AccountName string `json:"accountName"`
	Secret      string `json:"accountSecret"`
}

// Complete reports whether both fields are set; partial sessions are never valid.
func (s Session) Complete() bool {
	return strings.TrimSpace(s.AccountName) != "" && strings.TrimSpace(s.Secret) != ""
}

type ActionName string

const (
	ActionLogin     ActionName = "login"
	ActionStartGame ActionName = "startgame"
	ActionPlayCard  ActionName = "playcard"
	ActionNextRound ActionName = "nextround"
	ActionEndGame   ActionName = "endgame"
)

func (n ActionName) Valid() bool {
	switch n {
	case ActionLogin, ActionStartGame, ActionPlayCard, ActionNextRound, ActionEndGame:
		return true
	default:
		return false
	}
}

// ActionRequest is immutable: the payload is copied on the way in and on the way out.
type ActionRequest struct {
	name       ActionName
	payload    map[string]any
	actorField string
}

func NewActionRequest(name ActionName, payload map[string]any) ActionRequest {
	return ActionRequest{name: name, payload: maps.Clone(payload)}
}

func (r ActionRequest) Name() ActionName {
	return r.name
}

// BindActor returns a copy of r whose payload field is set, at dispatch time,
// to the account that authorizes the transaction.
func (r ActionRequest) BindActor(field string) ActionRequest {
	r.payload = maps.Clone(r.payload)
	r.actorField = field
	return r
}

// ActorField is the payload field bound to the authorizing account, or "".
func (r ActionRequest) ActorField() string {
	return r.actorField
}

func (r ActionRequest) Payload() map[string]any {
	if r.payload == nil {
		return map[string]any{}
	}
	return maps.Clone(r.payload)
}

// TransactionResult is the ledger's acceptance receipt. Callers treat it as a
// confirmation token.
type TransactionResult struct {
	TransactionID string          `json:"transaction_id"`
	BlockNum      uint32          `json:"block_num,omitempty"`
	BlockTime     string          `json:"block_time,omitempty"`
	Raw           json.RawMessage `json:"-"`
}

// UserRecord is a row of the contract's users table.
type UserRecord struct {
	Username  string          `json:"username"`
	WinCount  uint16          `json:"win_count"`
	LostCount uint16          `json:"lost_count"`
	Raw       json.RawMessage `json:"-"`
}
