package storage

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps documents as base64 text in a single table.
type SQLiteStore struct {
	database *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	database, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, ioError(dsn, fmt.Errorf("failed to open database: %w", err))
	}
	// an in-memory database lives only as long as its one connection
	database.SetMaxOpenConns(1)
	s := &SQLiteStore{database: database}
	if err := s.init(); err != nil {
		_ = database.Close()
		return nil, ioError(dsn, err)
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	if _, err := s.database.Exec(
		`CREATE TABLE IF NOT EXISTS documents (
    	id text not null primary key,
        content text not null,
        updated_at timestamp default current_timestamp
		)`,
	); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	slog.Debug("ensured documents table exists")
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, id string, data []byte) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if _, err := s.database.ExecContext(ctx,
		`INSERT INTO documents (id, content) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET content = excluded.content, updated_at = current_timestamp`,
		id, base64.StdEncoding.EncodeToString(data),
	); err != nil {
		return ioError(id, fmt.Errorf("failed to upsert: %w", err))
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) ([]byte, error) {
	var raw string
	err := s.database.QueryRowContext(ctx, `SELECT content FROM documents WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	} else if err != nil {
		return nil, ioError(id, fmt.Errorf("failed to query: %w", err))
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, &Error{Kind: KindSerialization, ID: id, Err: fmt.Errorf("failed to decode: %w", err)}
	}
	return data, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.database.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return ioError(id, fmt.Errorf("failed to delete: %w", err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(id)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	res, err := s.database.QueryContext(ctx, `SELECT id FROM documents ORDER BY id`)
	if err != nil {
		return nil, ioError("", fmt.Errorf("failed to query: %w", err))
	}
	defer func(res *sql.Rows) {
		if err := res.Close(); err != nil {
			slog.Error("failed to close rows", "err", err)
		}
	}(res)
	var ids []string
	for res.Next() {
		var id string
		if err := res.Scan(&id); err != nil {
			return nil, ioError("", fmt.Errorf("failed to scan: %w", err))
		}
		ids = append(ids, id)
	}
	if err := res.Err(); err != nil {
		return nil, ioError("", err)
	}
	return ids, nil
}

func (s *SQLiteStore) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	if err := s.database.QueryRowContext(ctx, `SELECT count(*) FROM documents WHERE id = ?`, id).Scan(&n); err != nil {
		return false, ioError(id, fmt.Errorf("failed to query: %w", err))
	}
	return n > 0, nil
}

func (s *SQLiteStore) Close() error {
	return s.database.Close()
}
