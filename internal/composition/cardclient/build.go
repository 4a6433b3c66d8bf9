// Package cardclient wires the credential store, dispatcher, action catalog
// and query client from a validated Config.
package cardclient

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"cardgame/go-client/internal/catalog"
	"cardgame/go-client/internal/config"
	"cardgame/go-client/internal/credentials"
	"cardgame/go-client/internal/dispatch"
	"cardgame/go-client/internal/ledger"
	"cardgame/go-client/internal/metrics"
	"cardgame/go-client/internal/platform/privacylog"
	"cardgame/go-client/internal/platform/ratelimiter"
	"cardgame/go-client/internal/query"
	"cardgame/go-client/internal/signing"
)

// Overrides replaces collaborators, mainly for tests.
type Overrides struct {
	Store     credentials.Store
	NewClient ledger.ClientFactory
	NewSigner signing.Factory
	Registry  prometheus.Registerer
}

type Client struct {
	Catalog *catalog.Service
	Users   *query.Client
	Store   credentials.Store
	Metrics *metrics.Collector
	Logger  *slog.Logger

	closers []func() error
}

func Build(cfg config.Config, logger *slog.Logger, ov Overrides) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = slog.New(privacylog.WrapHandler(logger.Handler()))

	verify, err := catalog.ParseVerifyMode(cfg.Session.Verify)
	if err != nil {
		return nil, err
	}
	m, err := metrics.New(ov.Registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	c := &Client{Metrics: m, Logger: logger}
	c.Store = ov.Store
	if c.Store == nil {
		if c.Store, err = c.openStore(cfg.Session); err != nil {
			return nil, err
		}
	}

	newClient := ov.NewClient
	if newClient == nil {
		newClient = ledger.NewFactory(ledger.WithTimeout(cfg.Ledger.Timeout))
	}
	newSigner := ov.NewSigner
	if newSigner == nil {
		newSigner = signing.NewK1Provider
	}

	d, err := dispatch.New(dispatch.Options{
		Store:      c.Store,
		ContractID: cfg.Ledger.ContractID,
		Endpoint:   cfg.Ledger.HTTPEndpoint,
		NewClient:  newClient,
		NewSigner:  newSigner,
		Limiter:    ratelimiter.New(cfg.Dispatch.SubmitRPS, cfg.Dispatch.SubmitBurst, 0),
		Metrics:    m,
		Logger:     logger.With("component", "dispatch"),
		Serialize:  cfg.Dispatch.Serialize,
	})
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Users, err = query.New(cfg.Ledger.ContractID, cfg.Ledger.HTTPEndpoint, newClient, m, logger.With("component", "query"))
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Catalog, err = catalog.New(catalog.Options{
		Store:      c.Store,
		Dispatcher: d,
		Users:      c.Users,
		Verify:     verify,
		Metrics:    m,
		Logger:     logger.With("component", "catalog"),
	})
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) openStore(cfg config.SessionConfig) (credentials.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return credentials.NewMemoryStore(), nil
	case config.StoreFile:
		if cfg.Passphrase != "" {
			return credentials.NewEncryptedFileStore(cfg.Path, cfg.Passphrase), nil
		}
		return credentials.NewFileStore(cfg.Path), nil
	case config.StoreSQLite:
		s, err := credentials.OpenSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, s.Close)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}

func (c *Client) Close() error {
	var errs []error
	for _, closeFn := range c.closers {
		errs = append(errs, closeFn())
	}
	c.closers = nil
	return errors.Join(errs...)
}
