// Package catalog is the set of game operations a player can trigger. Each
// operation is a fixed mapping onto one contract action; login is the only
// one that changes who is logged in.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"cardgame/go-client/internal/credentials"
	"cardgame/go-client/internal/ledger"
	"cardgame/go-client/internal/metrics"
	"cardgame/go-client/internal/rpckit"
	"cardgame/go-client/pkg/models"
)

const (
	minSecretLen  = 51
	usernameField = "username"
)

type VerifyMode string

const (
	// VerifyTransaction re-sends the login action to check a stored session.
	VerifyTransaction VerifyMode = "transaction"
	// VerifyQuery checks the users table instead, without a transaction.
	VerifyQuery VerifyMode = "query"
)

func ParseVerifyMode(s string) (VerifyMode, error) {
	switch VerifyMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", VerifyTransaction:
		return VerifyTransaction, nil
	case VerifyQuery:
		return VerifyQuery, nil
	default:
		return "", fmt.Errorf("unknown verify mode %q", s)
	}
}

const accountNotRegistered = "account_not_registered"

// ErrAccountNotRegistered matches, through errors.Is, the failure CurrentUser
// returns in query mode when the users table has no row for the account.
var ErrAccountNotRegistered = &rpckit.Error{Kind: rpckit.KindRejected, Name: accountNotRegistered}

type Dispatcher interface {
	Dispatch(ctx context.Context, req models.ActionRequest) (models.TransactionResult, error)
}

type UserLookup interface {
	LookupUser(ctx context.Context, username string) (models.UserRecord, bool, error)
}

type Options struct {
	Store      credentials.Store
	Dispatcher Dispatcher
	// Users is required only for VerifyQuery.
	Users   UserLookup
	Verify  VerifyMode
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

type Service struct {
	store      credentials.Store
	dispatcher Dispatcher
	users      UserLookup
	verify     VerifyMode
	metrics    *metrics.Collector
	logger     *slog.Logger

	// loginMu keeps login-family operations from interleaving their
	// write/rollback sequences.
	loginMu sync.Mutex
}

func New(opts Options) (*Service, error) {
	if opts.Store == nil || opts.Dispatcher == nil {
		return nil, errors.New("catalog: store and dispatcher are required")
	}
	verify := opts.Verify
	if verify == "" {
		verify = VerifyTransaction
	}
	if verify == VerifyQuery && opts.Users == nil {
		return nil, errors.New("catalog: query verification needs a user lookup")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		store:      opts.Store,
		dispatcher: opts.Dispatcher,
		users:      opts.Users,
		verify:     verify,
		metrics:    opts.Metrics,
		logger:     logger,
	}, nil
}

// Login stages the session, then proves it with a login transaction. Any
// failure, including malformed input, leaves the store empty.
func (s *Service) Login(ctx context.Context, username, secret string) error {
	s.loginMu.Lock()
	defer s.loginMu.Unlock()

	if err := validateCredentials(username, secret); err != nil {
		s.rollback(username, err)
		return err
	}
	if err := s.store.Set(models.Session{AccountName: username, Secret: secret}); err != nil {
		s.rollback(username, err)
		return err
	}
	if _, err := s.dispatcher.Dispatch(ctx, loginRequest(username)); err != nil {
		s.rollback(username, err)
		return err
	}
	s.metrics.ObserveSession("login")
	s.logger.Info("logged in", "username", username)
	return nil
}

// CurrentUser returns the stored account name after verifying it against
// the ledger. Without a stored session it fails at once, without a network call.
func (s *Service) CurrentUser(ctx context.Context) (string, error) {
	s.loginMu.Lock()
	defer s.loginMu.Unlock()

	session, ok, err := s.store.Get()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", rpckit.SessionMissing()
	}

	switch s.verify {
	case VerifyQuery:
		_, found, err := s.users.LookupUser(ctx, session.AccountName)
		if err == nil && !found {
			err = rpckit.Rejected(0, accountNotRegistered, "no users row for "+session.AccountName)
		}
		if err != nil {
			s.rollback(session.AccountName, err)
			return "", err
		}
	default:
		if _, err := s.dispatcher.Dispatch(ctx, loginRequest(session.AccountName)); err != nil {
			s.rollback(session.AccountName, err)
			return "", err
		}
	}
	return session.AccountName, nil
}

func (s *Service) Logout() error {
	s.loginMu.Lock()
	defer s.loginMu.Unlock()
	if err := s.store.Clear(); err != nil {
		return err
	}
	s.metrics.ObserveSession("logout")
	return nil
}

func (s *Service) StartGame(ctx context.Context) (models.TransactionResult, error) {
	return s.play(ctx, models.ActionStartGame, nil)
}

func (s *Service) PlayCard(ctx context.Context, cardIdx int) (models.TransactionResult, error) {
	if cardIdx < 0 {
		return models.TransactionResult{}, rpckit.InvalidInput(fmt.Sprintf("card index %d is negative", cardIdx))
	}
	return s.play(ctx, models.ActionPlayCard, map[string]any{"player_card_idx": cardIdx})
}

func (s *Service) NextRound(ctx context.Context) (models.TransactionResult, error) {
	return s.play(ctx, models.ActionNextRound, nil)
}

func (s *Service) EndGame(ctx context.Context) (models.TransactionResult, error) {
	return s.play(ctx, models.ActionEndGame, nil)
}

// play dispatches a game action for the current account. The dispatcher fills
// username from the same session it signs with. play never writes to the store.
func (s *Service) play(ctx context.Context, name models.ActionName, extra map[string]any) (models.TransactionResult, error) {
	return s.dispatcher.Dispatch(ctx, models.NewActionRequest(name, extra).BindActor(usernameField))
}

func (s *Service) rollback(username string, cause error) {
	s.metrics.ObserveSession("rollback")
	if err := s.store.Clear(); err != nil {
		s.logger.Error("session rollback failed", "username", username, "error", err.Error())
		return
	}
	s.logger.Info("session cleared", "username", username, "outcome", metrics.Outcome(cause))
}

func loginRequest(username string) models.ActionRequest {
	return models.NewActionRequest(models.ActionLogin, map[string]any{usernameField: username})
}

func validateCredentials(username, secret string) error {
	if err := ledger.ValidateAccountName(username); err != nil {
		return err
	}
	if len(secret) < minSecretLen {
		return rpckit.InvalidInput(fmt.Sprintf("secret must be at least %d characters", minSecretLen))
	}
	return nil
}
