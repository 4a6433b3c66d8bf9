// Package query performs read-only table lookups. It needs no session and
// never signs anything.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"cardgame/go-client/internal/ledger"
	"cardgame/go-client/internal/metrics"
	"cardgame/go-client/internal/rpckit"
	"cardgame/go-client/pkg/models"
)

const UsersTable = "users"

const (
	outcomeFound  = "found"
	outcomeAbsent = "absent"
	outcomeFailed = "failed"
)

type Client struct {
	contract  string
	endpoint  string
	newClient ledger.ClientFactory
	metrics   *metrics.Collector
	logger    *slog.Logger
}

func New(contract, endpoint string, newClient ledger.ClientFactory, m *metrics.Collector, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(contract) == "" || strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("query: contract id and endpoint are required")
	}
	if newClient == nil {
		return nil, errors.New("query: client factory is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{contract: contract, endpoint: endpoint, newClient: newClient, metrics: m, logger: logger}, nil
}

// GetUserByName returns the users row keyed by username. Read failures are
// logged and reported as absent, indistinguishable from "not found".
func (c *Client) GetUserByName(ctx context.Context, username string) (models.UserRecord, bool) {
	rec, ok, err := c.LookupUser(ctx, username)
	if err != nil {
		c.logger.Warn("user lookup failed", "username", username, "error", err.Error())
		return models.UserRecord{}, false
	}
	return rec, ok
}

// LookupUser is GetUserByName without the failure swallowing: a missing row is
// (zero, false, nil) and a read or decode failure comes back as an error.
func (c *Client) LookupUser(ctx context.Context, username string) (models.UserRecord, bool, error) {
	rows, err := c.newClient(c.endpoint).ReadTable(ctx, ledger.TableQuery{
		JSON:       true,
		Code:       c.contract,
		Scope:      c.contract,
		Table:      UsersTable,
		Limit:      1,
		LowerBound: username,
	})
	if err != nil {
		c.metrics.ObserveQuery(UsersTable, outcomeFailed)
		return models.UserRecord{}, false, err
	}
	if len(rows.Rows) == 0 {
		c.metrics.ObserveQuery(UsersTable, outcomeAbsent)
		return models.UserRecord{}, false, nil
	}

	var rec models.UserRecord
	if err := json.Unmarshal(rows.Rows[0], &rec); err != nil {
		c.metrics.ObserveQuery(UsersTable, outcomeFailed)
		return models.UserRecord{}, false, rpckit.Transport(fmt.Errorf("decode users row: %w", err))
	}
	// lower_bound yields the next row when the key itself is missing.
	if rec.Username != username {
		c.metrics.ObserveQuery(UsersTable, outcomeAbsent)
		return models.UserRecord{}, false, nil
	}
	rec.Raw = append(json.RawMessage(nil), rows.Rows[0]...)
	c.metrics.ObserveQuery(UsersTable, outcomeFound)
	return rec, true, nil
}
