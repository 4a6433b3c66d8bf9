package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cardgame/go-client/internal/rpckit"
	"cardgame/go-client/pkg/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQLiteStore keeps the Session as two rows of a key-value table, mirroring
// browser-style local storage. Both rows change inside one transaction.
type SQLiteStore struct {
	db      *sql.DB
	timeout time.Duration
}

func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, rpckit.Store(err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, rpckit.Store(err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLiteStore{db: db, timeout: 5 * time.Second}
	ctx, cancel := s.ctx()
	defer cancel()
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, rpckit.Store(fmt.Errorf("create kv schema: %w", err))
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get() (models.Session, bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM kv WHERE key IN (?, ?)`, KeyAccountName, KeyAccountSecret)
	if err != nil {
		return models.Session{}, false, rpckit.Store(err)
	}
	defer rows.Close()
	values := make(map[string]string, 2)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return models.Session{}, false, rpckit.Store(err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return models.Session{}, false, rpckit.Store(err)
	}
	session, ok := fromKeys(values)
	return session, ok, nil
}

func (s *SQLiteStore) Set(session models.Session) error {
	if err := validateForSet(session); err != nil {
		return err
	}
	return s.inTx(func(ctx context.Context, tx *sql.Tx) error {
		const upsert = `INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`
		if _, err := tx.ExecContext(ctx, upsert, KeyAccountName, session.AccountName); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, upsert, KeyAccountSecret, session.Secret)
		return err
	})
}

func (s *SQLiteStore) Clear() error {
	return s.inTx(func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key IN (?, ?)`, KeyAccountName, KeyAccountSecret)
		return err
	})
}

func (s *SQLiteStore) inTx(fn func(context.Context, *sql.Tx) error) error {
	ctx, cancel := s.ctx()
	defer cancel()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rpckit.Store(err)
	}
	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return rpckit.Store(errors.Join(err, rbErr))
		}
		return rpckit.Store(err)
	}
	if err := tx.Commit(); err != nil {
		return rpckit.Store(err)
	}
	return nil
}

func (s *SQLiteStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}
