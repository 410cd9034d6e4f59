package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS stories (
		key TEXT PRIMARY KEY,
		id UUID NOT NULL,
		guild_id TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		title TEXT NOT NULL,
		genre TEXT NOT NULL DEFAULT '',
		prompt TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		entries JSONB NOT NULL DEFAULT '[]',
		participants JSONB NOT NULL DEFAULT '[]',
		version BIGINT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ,
		doc_url TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stories_active ON stories (guild_id, channel_id) WHERE status = 'active'`,
	`CREATE TABLE IF NOT EXISTS story_archive (
		key TEXT NOT NULL,
		id UUID NOT NULL,
		guild_id TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		title TEXT NOT NULL,
		genre TEXT NOT NULL DEFAULT '',
		prompt TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		entries JSONB NOT NULL DEFAULT '[]',
		participants JSONB NOT NULL DEFAULT '[]',
		version BIGINT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ,
		doc_url TEXT NOT NULL DEFAULT '',
		archived_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_story_archive_key ON story_archive (key, archived_at)`,
	`CREATE TABLE IF NOT EXISTS designated_channels (
		guild_id TEXT PRIMARY KEY,
		channel_id TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
