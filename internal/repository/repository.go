package repository

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means no session occupies the key.
	ErrNotFound = errors.New("story session not found")
	// ErrAlreadyExists means an active session already occupies the key.
	ErrAlreadyExists = errors.New("story session already exists")
	// ErrVersionConflict means a conditional update observed a stale version.
	ErrVersionConflict = errors.New("story session version conflict")
)

// Mutator rewrites a session in place during a conditional update. The store
// applies it to its current copy of the session and bumps the version itself;
// a mutator must never touch Version.
type Mutator func(*Session) error

// StoryStore is durable key-value persistence for story sessions with
// conditional-write support. ConditionalUpdate is the sole mutation
// primitive; a write that does not observe the expected prior version is
// rejected with ErrVersionConflict.
type StoryStore interface {
	// Get returns the session at key, or ErrNotFound.
	Get(ctx context.Context, key string) (*Session, error)
	// Create atomically installs a new session at key. An Active occupant
	// yields ErrAlreadyExists; an Ended occupant is rotated into the
	// archive and replaced.
	Create(ctx context.Context, key string, s *Session) (*Session, error)
	// ConditionalUpdate applies mutate to the current session and commits
	// it only if the stored version still equals expectedVersion.
	ConditionalUpdate(ctx context.Context, key string, expectedVersion int64, mutate Mutator) (*Session, error)
	// Archive moves the session at key out of the hot path. Best-effort;
	// this is the only path that removes entries.
	Archive(ctx context.Context, key string) error
}

// ChannelRegistry holds the per-guild designated bot channel.
type ChannelRegistry interface {
	// DesignatedChannel returns the designated channel id for a guild, or
	// "" when none is set.
	DesignatedChannel(ctx context.Context, guildID string) (string, error)
	SetDesignatedChannel(ctx context.Context, guildID, channelID string) error
	RemoveDesignatedChannel(ctx context.Context, guildID string) error
}

type Repository interface {
	StoryStore
	ChannelRegistry
}
