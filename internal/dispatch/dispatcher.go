// Package dispatch turns an ActionRequest into a signed single-action
// transaction authorized by whoever is logged in at the moment of the call.
//
// The Session is read from the credential store on every call and the ledger
// client and signer are built per call, so a login or logout is visible to
// the very next dispatch.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cardgame/go-client/internal/credentials"
	"cardgame/go-client/internal/ledger"
	"cardgame/go-client/internal/metrics"
	"cardgame/go-client/internal/platform/ratelimiter"
	"cardgame/go-client/internal/rpckit"
	"cardgame/go-client/internal/signing"
	"cardgame/go-client/pkg/models"
)

type Options struct {
	Store      credentials.Store
	ContractID string
	Endpoint   string
	NewClient  ledger.ClientFactory
	NewSigner  signing.Factory

	// Optional.
	Limiter *ratelimiter.AccountLimiter
	Metrics *metrics.Collector
	Logger  *slog.Logger
	// Serialize runs one dispatch at a time, so concurrent calls never
	// race on the same Session snapshot.
	Serialize bool
}

type Dispatcher struct {
	store     credentials.Store
	contract  string
	endpoint  string
	newClient ledger.ClientFactory
	newSigner signing.Factory
	limiter   *ratelimiter.AccountLimiter
	metrics   *metrics.Collector
	logger    *slog.Logger
	serialize bool

	mu sync.Mutex
}

func New(opts Options) (*Dispatcher, error) {
	switch {
	case opts.Store == nil:
		return nil, errors.New("dispatch: credential store is required")
	case strings.TrimSpace(opts.ContractID) == "":
		return nil, errors.New("dispatch: contract id is required")
	case strings.TrimSpace(opts.Endpoint) == "":
		return nil, errors.New("dispatch: ledger endpoint is required")
	case opts.NewClient == nil:
		return nil, errors.New("dispatch: client factory is required")
	case opts.NewSigner == nil:
		return nil, errors.New("dispatch: signer factory is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{
		store:     opts.Store,
		contract:  opts.ContractID,
		endpoint:  opts.Endpoint,
		newClient: opts.NewClient,
		newSigner: opts.NewSigner,
		limiter:   opts.Limiter,
		metrics:   opts.Metrics,
		logger:    logger,
		serialize: opts.Serialize,
	}, nil
}

// Dispatch submits req once. Failures from the ledger layer are returned
// unchanged; there is no retry.
func (d *Dispatcher) Dispatch(ctx context.Context, req models.ActionRequest) (models.TransactionResult, error) {
	if d.serialize {
		d.mu.Lock()
		defer d.mu.Unlock()
	}
	started := time.Now()
	id := uuid.NewString()
	action := string(req.Name())

	res, actor, err := d.dispatch(ctx, req)
	d.metrics.ObserveTransaction(action, started, err)
	if err != nil {
		d.logger.Warn("dispatch failed",
			"dispatch_id", id,
			"action", action,
			"actor", actor,
			"outcome", metrics.Outcome(err),
			"error", err.Error(),
		)
		return models.TransactionResult{}, err
	}
	d.logger.Debug("dispatch accepted",
		"dispatch_id", id,
		"action", action,
		"actor", actor,
		"transaction_id", res.TransactionID,
		"block_num", res.BlockNum,
		"elapsed", time.Since(started),
	)
	return res, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, req models.ActionRequest) (models.TransactionResult, string, error) {
	if !req.Name().Valid() {
		return models.TransactionResult{}, "", rpckit.InvalidInput(fmt.Sprintf("unknown action %q", req.Name()))
	}
	session, ok, err := d.store.Get()
	if err != nil {
		return models.TransactionResult{}, "", err
	}
	if !ok {
		return models.TransactionResult{}, "", rpckit.SessionMissing()
	}
	if !d.limiter.Allow(session.AccountName) {
		return models.TransactionResult{}, session.AccountName, rpckit.Throttled("submit rate exceeded for account")
	}

	env := BuildEnvelope(d.contract, session.AccountName, req)
	signer, err := d.newSigner(session.Secret)
	if err != nil {
		if rpckit.KindOf(err) == rpckit.KindUnknown {
			err = rpckit.Signing(err)
		}
		return models.TransactionResult{}, session.AccountName, err
	}
	res, err := d.newClient(d.endpoint).SubmitTransaction(ctx, env, signer)
	return res, session.AccountName, err
}

// BuildEnvelope is the single-action transaction for req, authorized by
// actor@active. A field bound with BindActor is set to actor.
func BuildEnvelope(contract, actor string, req models.ActionRequest) ledger.Envelope {
	data := req.Payload()
	if field := req.ActorField(); field != "" {
		data[field] = actor
	}
	return ledger.Envelope{
		Actions: []ledger.Action{{
			Account:       contract,
			Name:          string(req.Name()),
			Authorization: []ledger.PermissionLevel{{Actor: actor, Permission: ledger.PermissionActive}},
			Data:          data,
		}},
		ExpireSeconds: ledger.DefaultExpireSeconds,
		BlocksBehind:  ledger.DefaultBlocksBehind,
	}
}
