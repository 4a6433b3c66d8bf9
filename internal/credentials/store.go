// Package credentials holds the single live Session of a client process.
//
// Every implementation keeps the Session all-or-nothing: Set refuses partial
// sessions and Get reports absence when either persisted key is missing.
package credentials

import (
	"cardgame/go-client/internal/rpckit"
	"cardgame/go-client/pkg/models"
)

// Persisted key names shared by all key-value backed stores.
const (
	KeyAccountName   = "accountName"
	KeyAccountSecret = "accountSecret"
)

// Store is the only access point to the persisted Session.
type Store interface {
	// Get returns the current Session and whether one is present.
	Get() (models.Session, bool, error)
	// Set replaces the Session as a whole.
	Set(session models.Session) error
	// Clear removes the Session; clearing an empty store is a no-op.
	Clear() error
}

func validateForSet(session models.Session) error {
	if !session.Complete() {
		return rpckit.InvalidInput("session requires both account name and secret")
	}
	return nil
}

func fromKeys(values map[string]string) (models.Session, bool) {
	s := models.Session{AccountName: values[KeyAccountName], Secret: values[KeyAccountSecret]}
	if !s.Complete() {
		return models.Session{}, false
	}
	return s, true
}
