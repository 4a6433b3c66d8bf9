package query

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"cardgame/go-client/internal/ledger"
	"cardgame/go-client/internal/ledger/ledgertest"
	"cardgame/go-client/internal/rpckit"
)

func rows(t *testing.T, values ...map[string]any) ledger.TableRows {
	t.Helper()
	out := ledger.TableRows{}
	for _, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal row failed: %v", err)
		}
		out.Rows = append(out.Rows, raw)
	}
	return out
}

func newTestClient(t *testing.T, fake *ledgertest.Ledger, logger *slog.Logger) *Client {
	t.Helper()
	c, err := New("cardgame", "http://node", fake.ClientFactory(), nil, logger)
	if err != nil {
		t.Fatalf("new query client failed: %v", err)
	}
	return c
}

func TestGetUserByNameIssuesBoundedScan(t *testing.T) {
	fake := ledgertest.New()
	fake.Rows = rows(t, map[string]any{"username": "alice", "win_count": 4, "lost_count": 2})
	c := newTestClient(t, fake, nil)

	rec, ok := c.GetUserByName(context.Background(), "alice")
	if !ok {
		t.Fatal("expected user row")
	}
	if rec.Username != "alice" || rec.WinCount != 4 || rec.LostCount != 2 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if len(rec.Raw) == 0 {
		t.Fatal("expected raw row to be kept")
	}
	want := ledger.TableQuery{JSON: true, Code: "cardgame", Scope: "cardgame", Table: "users", Limit: 1, LowerBound: "alice"}
	if len(fake.Queries) != 1 || fake.Queries[0] != want {
		t.Fatalf("unexpected query: %+v", fake.Queries)
	}
	if len(fake.SignersBuilt) != 0 {
		t.Fatal("queries must not build a signer")
	}
}

func TestGetUserByNameNoRowsIsAbsent(t *testing.T) {
	fake := ledgertest.New()
	c := newTestClient(t, fake, nil)
	if _, ok := c.GetUserByName(context.Background(), "alice"); ok {
		t.Fatal("expected absent result for empty table")
	}
}

func TestGetUserByNameNextRowIsAbsent(t *testing.T) {
	fake := ledgertest.New()
	fake.Rows = rows(t, map[string]any{"username": "bob", "win_count": 1, "lost_count": 0})
	c := newTestClient(t, fake, nil)
	if _, ok := c.GetUserByName(context.Background(), "alice"); ok {
		t.Fatal("a different user returned by the lower bound must not match")
	}
}

func TestGetUserByNameSwallowsTransportFailure(t *testing.T) {
	fake := ledgertest.New()
	fake.ReadErr = rpckit.Transport(context.DeadlineExceeded)
	var buf bytes.Buffer
	c := newTestClient(t, fake, slog.New(slog.NewJSONHandler(&buf, nil)))

	if _, ok := c.GetUserByName(context.Background(), "alice"); ok {
		t.Fatal("expected absent result on transport failure")
	}
	if !strings.Contains(buf.String(), "user lookup failed") {
		t.Fatalf("expected failure to be logged, got %q", buf.String())
	}
}

func TestGetUserByNameUndecodableRowIsAbsent(t *testing.T) {
	fake := ledgertest.New()
	fake.Rows = ledger.TableRows{Rows: []json.RawMessage{json.RawMessage(`{"username": 7}`)}}
	c := newTestClient(t, fake, nil)
	if _, ok := c.GetUserByName(context.Background(), "alice"); ok {
		t.Fatal("expected absent result for undecodable row")
	}
}

func TestLookupUserReportsReadFailure(t *testing.T) {
	fake := ledgertest.New()
	cause := rpckit.Transport(errors.New("connection refused"))
	fake.ReadErr = cause
	c := newTestClient(t, fake, nil)

	_, ok, err := c.LookupUser(context.Background(), "alice")
	if ok || err != cause {
		t.Fatalf("expected the read failure unchanged, got ok=%v err=%v", ok, err)
	}
}

func TestLookupUserMissingRowIsNotAnError(t *testing.T) {
	fake := ledgertest.New()
	fake.Rows = rows(t, map[string]any{"username": "bob", "win_count": 1, "lost_count": 0})
	c := newTestClient(t, fake, nil)

	_, ok, err := c.LookupUser(context.Background(), "alice")
	if ok || err != nil {
		t.Fatalf("expected absent without error, got ok=%v err=%v", ok, err)
	}
}

func TestLookupUserUndecodableRowIsTransport(t *testing.T) {
	fake := ledgertest.New()
	fake.Rows = ledger.TableRows{Rows: []json.RawMessage{json.RawMessage(`{"username": 7}`)}}
	c := newTestClient(t, fake, nil)

	if _, _, err := c.LookupUser(context.Background(), "alice"); rpckit.KindOf(err) != rpckit.KindTransport {
		t.Fatalf("expected transport failure, got %v", err)
	}
}
