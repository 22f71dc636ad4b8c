// Package txstore persists submitted transactions so history survives
// process restarts and concurrent invocations.
package txstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/GuillermoSiaira/simpleswap-cli/internal/model"
)

type Store struct {
	db   *sql.DB
	lock *flock.Flock
}

func Open(path, lockPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create transaction store directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create transaction lock directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open transaction sqlite: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS transactions (
			tx_hash TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			account TEXT NOT NULL,
			chain_id INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);`,
		"CREATE INDEX IF NOT EXISTS idx_transactions_account_updated ON transactions(account, updated_at DESC);",
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init transaction schema: %w", err)
		}
	}
	return &Store{db: db, lock: flock.New(lockPath)}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Save(record model.TransactionRecord) error {
	if strings.TrimSpace(record.Hash) == "" {
		return fmt.Errorf("save transaction: missing hash")
	}
	locked, err := s.lock.TryLockContext(context.Background(), 5*time.Second)
	if err != nil {
		return fmt.Errorf("lock transaction store: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock transaction store: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}
	createdUnix, _ := parseRFC3339Unix(record.SubmittedAt)
	if createdUnix == 0 {
		createdUnix = time.Now().UTC().Unix()
	}
	updatedUnix, _ := parseRFC3339Unix(record.ConfirmedAt)
	if updatedUnix == 0 {
		updatedUnix = time.Now().UTC().Unix()
	}

	_, err = s.db.Exec(`
		INSERT INTO transactions (tx_hash, kind, status, account, chain_id, created_at, updated_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tx_hash) DO UPDATE SET
			kind=excluded.kind,
			status=excluded.status,
			account=excluded.account,
			chain_id=excluded.chain_id,
			updated_at=excluded.updated_at,
			payload=excluded.payload
	`, record.Hash, record.Kind, record.Status, record.Account, record.ChainID, createdUnix, updatedUnix, payload)
	if err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}
	return nil
}

func (s *Store) Get(hash string) (model.TransactionRecord, error) {
	var payload []byte
	err := s.db.QueryRow("SELECT payload FROM transactions WHERE tx_hash = ?", hash).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.TransactionRecord{}, fmt.Errorf("transaction not found: %s", hash)
		}
		return model.TransactionRecord{}, fmt.Errorf("read transaction: %w", err)
	}
	var record model.TransactionRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return model.TransactionRecord{}, fmt.Errorf("decode transaction payload: %w", err)
	}
	return record, nil
}

// List returns the most recently updated transactions, optionally
// filtered to one account.
func (s *Store) List(account string, limit int) ([]model.TransactionRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	var (
		rows *sql.Rows
		err  error
	)
	if strings.TrimSpace(account) == "" {
		rows, err = s.db.Query("SELECT payload FROM transactions ORDER BY updated_at DESC LIMIT ?", limit)
	} else {
		rows, err = s.db.Query("SELECT payload FROM transactions WHERE account = ? COLLATE NOCASE ORDER BY updated_at DESC LIMIT ?", account, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	records := make([]model.TransactionRecord, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		var record model.TransactionRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, fmt.Errorf("decode transaction row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return records, nil
}

func parseRFC3339Unix(v string) (int64, bool) {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return 0, false
	}
	return t.UTC().Unix(), true
}
