package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/inkfable/storyweave/internal/repository"
	"github.com/redis/go-redis/v9"
)

// RedisRepository stores each session as one JSON document and relies on
// WATCH/MULTI for its conditional writes: the version field is checked inside
// the watched transaction, and a concurrent write aborts it.
type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func storyKey(key string) string        { return "story:" + key }
func storyArchiveKey(key string) string { return "story:archive:" + key }
func channelKey(guildID string) string  { return "story:channel:" + guildID }

func (r *RedisRepository) Get(ctx context.Context, key string) (*repository.Session, error) {
	raw, err := r.client.Get(ctx, storyKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return unmarshalStory(raw)
}

func (r *RedisRepository) Create(ctx context.Context, key string, s *repository.Session) (*repository.Session, error) {
	k := storyKey(key)
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		var rotated []byte
		raw, err := tx.Get(ctx, k).Bytes()
		switch {
		case err == nil:
			cur, err := unmarshalStory(raw)
			if err != nil {
				return err
			}
			if cur.Status == repository.SessionStatusActive {
				return repository.ErrAlreadyExists
			}
			rotated = raw
		case errors.Is(err, redis.Nil):
		default:
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if rotated != nil {
				pipe.RPush(ctx, storyArchiveKey(key), rotated)
			}
			pipe.Set(ctx, k, payload, 0)
			return nil
		})
		return err
	}, k)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			// A concurrent creator won the key.
			return nil, repository.ErrAlreadyExists
		}
		return nil, err
	}
	return s.Clone(), nil
}

func (r *RedisRepository) ConditionalUpdate(ctx context.Context, key string, expectedVersion int64, mutate repository.Mutator) (*repository.Session, error) {
	k := storyKey(key)
	var updated *repository.Session

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, k).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return repository.ErrNotFound
			}
			return err
		}
		cur, err := unmarshalStory(raw)
		if err != nil {
			return err
		}
		if cur.Version != expectedVersion {
			return repository.ErrVersionConflict
		}
		if err := mutate(cur); err != nil {
			return err
		}
		cur.Version = expectedVersion + 1

		payload, err := json.Marshal(cur)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, payload, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = cur
		return nil
	}, k)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return nil, repository.ErrVersionConflict
		}
		return nil, err
	}
	return updated, nil
}

func (r *RedisRepository) Archive(ctx context.Context, key string) error {
	k := storyKey(key)
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, k).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return repository.ErrNotFound
			}
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, storyArchiveKey(key), raw)
			pipe.Del(ctx, k)
			return nil
		})
		return err
	}, k)
	if errors.Is(err, redis.TxFailedErr) {
		return repository.ErrVersionConflict
	}
	return err
}

func (r *RedisRepository) DesignatedChannel(ctx context.Context, guildID string) (string, error) {
	channelID, err := r.client.Get(ctx, channelKey(guildID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return channelID, nil
}

func (r *RedisRepository) SetDesignatedChannel(ctx context.Context, guildID, channelID string) error {
	return r.client.Set(ctx, channelKey(guildID), channelID, 0).Err()
}

func (r *RedisRepository) RemoveDesignatedChannel(ctx context.Context, guildID string) error {
	return r.client.Del(ctx, channelKey(guildID)).Err()
}

func unmarshalStory(raw []byte) (*repository.Session, error) {
	var s repository.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &s, nil
}
