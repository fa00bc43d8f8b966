package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []struct {
	name  string
	query string
}{
	{
		name: "users",
		query: `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			photo TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	},
	{
		name: "posts",
		query: `
		CREATE TABLE IF NOT EXISTS posts (
			id BIGSERIAL PRIMARY KEY,
			image TEXT,
			content TEXT,
			city TEXT,
			country TEXT,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	},
	{
		name:  "posts_user_id_idx",
		query: `CREATE INDEX IF NOT EXISTS posts_user_id_idx ON posts (user_id)`,
	},
}

// Migrate creates the tables the repositories rely on
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, s := range schema {
		if _, err := db.Exec(ctx, s.query); err != nil {
			return fmt.Errorf("failed to create %s: %w", s.name, err)
		}
	}
	return nil
}
