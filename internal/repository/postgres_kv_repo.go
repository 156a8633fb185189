package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresKeyValueRepo はPostgreSQLのkv_entriesテーブルを使用するKeyValueStore。
type PostgresKeyValueRepo struct {
	db *sql.DB
}

// NewPostgresKeyValueRepo はPostgresKeyValueRepoを生成する。
func NewPostgresKeyValueRepo(db *sql.DB) *PostgresKeyValueRepo {
	return &PostgresKeyValueRepo{db: db}
}

// Get は指定キーの値を取得する。
func (r *PostgresKeyValueRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM kv_entries WHERE key = $1`,
		key,
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get kv entry: %w", err)
	}

	return value, true, nil
}

// Set は指定キーに値をUPSERTする。
func (r *PostgresKeyValueRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO kv_entries (key, value, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set kv entry: %w", err)
	}
	return nil
}

// Delete は指定キーを削除する。
func (r *PostgresKeyValueRepo) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM kv_entries WHERE key = $1`,
		key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete kv entry: %w", err)
	}
	return nil
}

// compile-time interface check
var _ KeyValueStore = (*PostgresKeyValueRepo)(nil)
