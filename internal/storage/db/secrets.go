package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StoredSecret is one vault entry
type StoredSecret struct {
	ID        string
	Key       string
	Value     string
	Label     string
	Active    bool
	CreatedAt time.Time
}

// WriteSecret stores value under key as a new secret, makes it the active
// one for that key, and returns its id
func (d *DB) WriteSecret(ctx context.Context, key, value, label string) (string, error) {
	id := uuid.NewString()

	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE secrets SET active = 0 WHERE secret_key = ?`, key); err != nil {
		return "", fmt.Errorf("deactivating secrets: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO secrets (id, secret_key, value, label, active)
        VALUES (?, ?, ?, ?, 1)
    `, id, key, value, label); err != nil {
		return "", fmt.Errorf("saving secret: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing secret: %w", err)
	}
	return id, nil
}

// GetSecret retrieves a secret by id, or the active secret for key when id
// is empty. Returns nil when nothing matches.
func (d *DB) GetSecret(ctx context.Context, key, id string) (*StoredSecret, error) {
	query := `
        SELECT id, secret_key, value, COALESCE(label, ''), active, created_at
        FROM secrets
        WHERE secret_key = ? AND id = ?
    `
	args := []any{key, id}
	if id == "" {
		query = `
        SELECT id, secret_key, value, COALESCE(label, ''), active, created_at
        FROM secrets
        WHERE secret_key = ? AND active = 1
        LIMIT 1
    `
		args = []any{key}
	}

	var s StoredSecret
	err := d.QueryRowContext(ctx, query, args...).
		Scan(&s.ID, &s.Key, &s.Value, &s.Label, &s.Active, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting secret: %w", err)
	}
	return &s, nil
}

// ListSecrets returns every secret grouped by key, oldest first
func (d *DB) ListSecrets(ctx context.Context) (map[string][]StoredSecret, error) {
	rows, err := d.QueryContext(ctx, `
        SELECT id, secret_key, value, COALESCE(label, ''), active, created_at
        FROM secrets
        ORDER BY created_at, rowid
    `)
	if err != nil {
		return nil, fmt.Errorf("listing secrets: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]StoredSecret)
	for rows.Next() {
		var s StoredSecret
		if err := rows.Scan(&s.ID, &s.Key, &s.Value, &s.Label, &s.Active, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning secret: %w", err)
		}
		out[s.Key] = append(out[s.Key], s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating secrets: %w", err)
	}
	return out, nil
}

// RotateSecret makes the secret with id the active one for key
func (d *DB) RotateSecret(ctx context.Context, key, id string) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
        UPDATE secrets SET active = 1
        WHERE secret_key = ? AND id = ?
    `, key, id)
	if err != nil {
		return fmt.Errorf("activating secret: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("secret %s not found for %s", id, key)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE secrets SET active = 0 WHERE secret_key = ? AND id != ?`, key, id); err != nil {
		return fmt.Errorf("deactivating secrets: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rotation: %w", err)
	}
	return nil
}
