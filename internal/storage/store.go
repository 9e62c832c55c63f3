// Package storage is the SQLite persistence adapter. It compiles
// predicate trees into parameterized SQL and keeps the schema current
// through embedded migrations.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ledgerdesk/internal/core"
	"ledgerdesk/internal/log"
	"ledgerdesk/internal/settings"
	"ledgerdesk/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db     *sql.DB
	logger *log.Logger
}

func New(dbPath string, logger *log.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrateUp(dbPath, migrationsFS, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger.WithComponent(log.ComponentStore)}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) SelectActors(ctx context.Context, q store.Query) ([]core.Actor, error) {
	query, args, err := buildSelect(
		"SELECT id, account_number, fullname, email, username, balance, is_admin, is_active, role FROM actors",
		q, actorColumns)
	if err != nil {
		return nil, core.NewQueryError(store.Actors, "select", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.NewQueryError(store.Actors, "select", err)
	}
	defer rows.Close()

	var actors []core.Actor
	for rows.Next() {
		var a core.Actor
		var isAdmin, isActive int64
		if err := rows.Scan(&a.ID, &a.AccountNumber, &a.FullName, &a.Email, &a.Username,
			&a.Balance, &isAdmin, &isActive, &a.Role); err != nil {
			return nil, core.NewQueryError(store.Actors, "scan", err)
		}
		a.IsAdmin = isAdmin != 0
		a.IsActive = isActive != 0
		actors = append(actors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewQueryError(store.Actors, "select", err)
	}
	return actors, nil
}

func (s *SQLiteStore) CountActors(ctx context.Context, where store.Pred) (int64, error) {
	return s.count(ctx, store.Actors, "SELECT COUNT(*) FROM actors", where, actorColumns)
}

func (s *SQLiteStore) SelectTransactions(ctx context.Context, q store.Query) ([]core.Transaction, error) {
	query, args, err := buildSelect(
		"SELECT id, actor_id, created_at, type, amount, status, description FROM transactions",
		q, transactionColumns)
	if err != nil {
		return nil, core.NewQueryError(store.Transactions, "select", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.NewQueryError(store.Transactions, "select", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, core.NewQueryError(store.Transactions, "scan", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewQueryError(store.Transactions, "select", err)
	}
	return txs, nil
}

func (s *SQLiteStore) CountTransactions(ctx context.Context, where store.Pred) (int64, error) {
	return s.count(ctx, store.Transactions, "SELECT COUNT(*) FROM transactions", where, transactionColumns)
}

func (s *SQLiteStore) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, actor_id, created_at, type, amount, status, description FROM transactions WHERE id = ?", id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, core.NewQueryError(store.Transactions, "get", err)
	}
	return t, nil
}

func (s *SQLiteStore) count(ctx context.Context, collection, base string, where store.Pred, columns map[string]string) (int64, error) {
	clause, args, err := compileWhere(where, columns)
	if err != nil {
		return 0, core.NewQueryError(collection, "count", err)
	}
	query := base
	if clause != "" {
		query += " WHERE " + clause
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, core.NewQueryError(collection, "count", err)
	}
	return n, nil
}

// InsertActor and InsertTransaction exist for seeding and tests; the
// console reads only.
func (s *SQLiteStore) InsertActor(ctx context.Context, a core.Actor) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO actors (id, account_number, fullname, email, username, balance, is_admin, is_active, role)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.AccountNumber, a.FullName, a.Email, a.Username,
		a.Balance, bindValue(a.IsAdmin), bindValue(a.IsActive), a.Role)
	if err != nil {
		return core.NewQueryError(store.Actors, "insert", err)
	}
	return nil
}

func (s *SQLiteStore) InsertTransaction(ctx context.Context, t core.Transaction) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, actor_id, created_at, type, amount, status, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ActorID, bindValue(t.CreatedAt), t.Type, t.Amount, t.Status, t.Description)
	if err != nil {
		return core.NewQueryError(store.Transactions, "insert", err)
	}
	return nil
}

func (s *SQLiteStore) AllSettings(ctx context.Context) ([]settings.Setting, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM settings ORDER BY key ASC")
	if err != nil {
		return nil, core.NewQueryError("settings", "select", err)
	}
	defer rows.Close()

	var out []settings.Setting
	for rows.Next() {
		var st settings.Setting
		if err := rows.Scan(&st.Key, &st.Value); err != nil {
			return nil, core.NewQueryError("settings", "scan", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewQueryError("settings", "select", err)
	}
	return out, nil
}

func (s *SQLiteStore) PutSetting(ctx context.Context, st settings.Setting) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		st.Key, st.Value)
	if err != nil {
		return core.NewQueryError("settings", "put", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteSetting(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key)
	if err != nil {
		return core.NewQueryError("settings", "delete", err)
	}
	return nil
}

func buildSelect(base string, q store.Query, columns map[string]string) (string, []any, error) {
	clause, args, err := compileWhere(q.Where, columns)
	if err != nil {
		return "", nil, err
	}
	query := base
	if clause != "" {
		query += " WHERE " + clause
	}
	order, err := compileOrder(q.Order, columns)
	if err != nil {
		return "", nil, err
	}
	if order != "" {
		query += " ORDER BY " + order
	}
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
		if q.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, q.Offset)
		}
	} else if q.Offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, q.Offset)
	}
	return query, args, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var created string
	if err := row.Scan(&t.ID, &t.ActorID, &created, &t.Type, &t.Amount, &t.Status, &t.Description); err != nil {
		return core.Transaction{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	t.CreatedAt = ts
	return t, nil
}
