package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/inkfable/storyweave/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const storyColumns = `key, id, guild_id, channel_id, title, genre, prompt, status, entries, participants, version, started_at, ended_at, doc_url`

func (r *PostgresRepository) Get(ctx context.Context, key string) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+storyColumns+` FROM stories WHERE key = $1`, key)
	return scanStory(row)
}

func (r *PostgresRepository) Create(ctx context.Context, key string, s *repository.Session) (*repository.Session, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	row := tx.QueryRow(ctx, `SELECT status FROM stories WHERE key = $1 FOR UPDATE`, key)
	var status string
	switch err := row.Scan(&status); {
	case err == nil:
		if repository.SessionStatus(status) == repository.SessionStatusActive {
			return nil, repository.ErrAlreadyExists
		}
		// An ended occupant rotates into the archive before the new
		// session takes the key.
		if _, err := tx.Exec(ctx,
			`INSERT INTO story_archive SELECT `+storyColumns+`, NOW() FROM stories WHERE key = $1`, key); err != nil {
			return nil, fmt.Errorf("archive previous story: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM stories WHERE key = $1`, key); err != nil {
			return nil, err
		}
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return nil, err
	}

	entries, participants, err := marshalStoryFields(s)
	if err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO stories (`+storyColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		key, s.ID, s.GuildID, s.ChannelID, s.Title, s.Genre, s.Prompt, string(s.Status),
		entries, participants, s.Version, s.StartedAt, s.EndedAt, s.DocURL)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, repository.ErrAlreadyExists
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

func (r *PostgresRepository) ConditionalUpdate(ctx context.Context, key string, expectedVersion int64, mutate repository.Mutator) (*repository.Session, error) {
	cur, err := r.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if cur.Version != expectedVersion {
		return nil, repository.ErrVersionConflict
	}
	if err := mutate(cur); err != nil {
		return nil, err
	}
	cur.Version = expectedVersion + 1

	entries, participants, err := marshalStoryFields(cur)
	if err != nil {
		return nil, err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE stories
		 SET status = $2, entries = $3, participants = $4, version = $5, ended_at = $6, doc_url = $7
		 WHERE key = $1 AND version = $8`,
		key, string(cur.Status), entries, participants, cur.Version, cur.EndedAt, cur.DocURL, expectedVersion)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		// A concurrent writer committed between our read and this write.
		return nil, repository.ErrVersionConflict
	}
	return cur, nil
}

func (r *PostgresRepository) Archive(ctx context.Context, key string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx,
		`INSERT INTO story_archive SELECT `+storyColumns+`, NOW() FROM stories WHERE key = $1`, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	if _, err := tx.Exec(ctx, `DELETE FROM stories WHERE key = $1`, key); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) DesignatedChannel(ctx context.Context, guildID string) (string, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT channel_id FROM designated_channels WHERE guild_id = $1`, guildID)
	var channelID string
	if err := row.Scan(&channelID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return channelID, nil
}

func (r *PostgresRepository) SetDesignatedChannel(ctx context.Context, guildID, channelID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO designated_channels (guild_id, channel_id, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (guild_id) DO UPDATE SET channel_id = EXCLUDED.channel_id, updated_at = NOW()`,
		guildID, channelID)
	return err
}

func (r *PostgresRepository) RemoveDesignatedChannel(ctx context.Context, guildID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM designated_channels WHERE guild_id = $1`, guildID)
	return err
}

func marshalStoryFields(s *repository.Session) (entries, participants []byte, err error) {
	entries, err = json.Marshal(s.Entries)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal entries: %w", err)
	}
	if s.Participants == nil {
		participants = []byte(`[]`)
	} else if participants, err = json.Marshal(s.Participants); err != nil {
		return nil, nil, fmt.Errorf("marshal participants: %w", err)
	}
	return entries, participants, nil
}

func scanStory(row pgx.Row) (*repository.Session, error) {
	var (
		s            repository.Session
		key          string
		status       string
		entries      []byte
		participants []byte
		endedAt      *time.Time
	)
	err := row.Scan(&key, &s.ID, &s.GuildID, &s.ChannelID, &s.Title, &s.Genre, &s.Prompt,
		&status, &entries, &participants, &s.Version, &s.StartedAt, &endedAt, &s.DocURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	s.Status = repository.SessionStatus(status)
	s.EndedAt = endedAt
	if err := json.Unmarshal(entries, &s.Entries); err != nil {
		return nil, fmt.Errorf("unmarshal entries: %w", err)
	}
	if err := json.Unmarshal(participants, &s.Participants); err != nil {
		return nil, fmt.Errorf("unmarshal participants: %w", err)
	}
	return &s, nil
}
