package storage

import (
	"context"
	"fmt"
)

// GetOrCreateUser resolves a login (the tailnet login name, or a CLI -user
// flag) to a user ID, creating the row on first sight. last_seen is bumped
// and a non-empty display name replaces the stored one.
func (db *DB) GetOrCreateUser(ctx context.Context, login, displayName string) (int, error) {
	var id int
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO users (login, display_name)
		VALUES ($1, $2)
		ON CONFLICT (login) DO UPDATE
			SET last_seen = NOW(), display_name = COALESCE(NULLIF($2, ''), users.display_name)
		RETURNING id
	`, login, displayName).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("resolving user %q: %w", login, err)
	}
	return id, nil
}

// LookupUser returns the ID of an existing login without creating it.
func (db *DB) LookupUser(ctx context.Context, login string) (int, error) {
	var id int
	err := db.Pool.QueryRow(ctx, `SELECT id FROM users WHERE login = $1`, login).Scan(&id)
	if err != nil {
		return 0, notFound(err, "user "+login)
	}
	return id, nil
}
