// Package ledgertest provides an in-process ledger for tests of code that
// consumes ledger.Client and signing.Factory.
package ledgertest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cardgame/go-client/internal/ledger"
	"cardgame/go-client/internal/signing"
	"cardgame/go-client/pkg/models"
)

// Submission is one recorded SubmitTransaction call.
type Submission struct {
	Endpoint string
	Envelope ledger.Envelope
	Secret   string
}

// Ledger records every client and signer built through its factories.
// SubmitErr and ReadErr, when set, fail the corresponding calls.
type Ledger struct {
	mu sync.Mutex

	SubmitErr error
	ReadErr   error
	Rows      ledger.TableRows
	// BeforeSubmit runs inside SubmitTransaction before the result is decided.
	BeforeSubmit func(ledger.Envelope)

	Submissions    []Submission
	Queries        []ledger.TableQuery
	ClientsBuilt   int
	SignersBuilt   []string
	SignerFailures map[string]error
}

func New() *Ledger {
	return &Ledger{SignerFailures: make(map[string]error)}
}

func (l *Ledger) ClientFactory() ledger.ClientFactory {
	return func(endpoint string) ledger.Client {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.ClientsBuilt++
		return &client{ledger: l, endpoint: endpoint}
	}
}

func (l *Ledger) SignerFactory() signing.Factory {
	return func(secret string) (signing.Provider, error) {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.SignersBuilt = append(l.SignersBuilt, secret)
		if err, ok := l.SignerFailures[secret]; ok {
			return nil, err
		}
		return signer{secret: secret}, nil
	}
}

// Calls reports how many network-facing calls were made.
func (l *Ledger) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Submissions) + len(l.Queries)
}

func (l *Ledger) LastSubmission() (Submission, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.Submissions) == 0 {
		return Submission{}, false
	}
	return l.Submissions[len(l.Submissions)-1], true
}

type client struct {
	ledger   *Ledger
	endpoint string
}

func (c *client) SubmitTransaction(_ context.Context, env ledger.Envelope, p signing.Provider) (models.TransactionResult, error) {
	s, ok := p.(signer)
	if !ok {
		return models.TransactionResult{}, errors.New("ledgertest: foreign signer")
	}
	c.ledger.mu.Lock()
	hook := c.ledger.BeforeSubmit
	c.ledger.mu.Unlock()
	if hook != nil {
		hook(env)
	}

	c.ledger.mu.Lock()
	defer c.ledger.mu.Unlock()
	c.ledger.Submissions = append(c.ledger.Submissions, Submission{Endpoint: c.endpoint, Envelope: env, Secret: s.secret})
	if c.ledger.SubmitErr != nil {
		return models.TransactionResult{}, c.ledger.SubmitErr
	}
	return models.TransactionResult{
		TransactionID: fmt.Sprintf("tx-%d", len(c.ledger.Submissions)),
		BlockNum:      uint32(1000 + len(c.ledger.Submissions)),
	}, nil
}

func (c *client) ReadTable(_ context.Context, q ledger.TableQuery) (ledger.TableRows, error) {
	c.ledger.mu.Lock()
	defer c.ledger.mu.Unlock()
	c.ledger.Queries = append(c.ledger.Queries, q)
	if c.ledger.ReadErr != nil {
		return ledger.TableRows{}, c.ledger.ReadErr
	}
	return c.ledger.Rows, nil
}

type signer struct {
	secret string
}

func (s signer) PublicKey() string { return "EOS_TEST" }

func (s signer) Sign(digest []byte) (string, error) {
	return fmt.Sprintf("SIG_TEST_%x", digest), nil
}
