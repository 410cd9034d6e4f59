package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/inkfable/storyweave/internal/repository"
)

func newStorySession(id string, version int64) *repository.Session {
	return &repository.Session{
		ID:        id,
		GuildID:   "guild-1",
		ChannelID: "ch1",
		Title:     "Story-20260314-1200",
		Status:    repository.SessionStatusActive,
		Entries: []repository.Contribution{{
			Author:         "alice",
			AuthorName:     "Alice",
			Text:           "Once upon a time...",
			Kind:           repository.KindUserText,
			SequenceNumber: 0,
			CreatedAt:      time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		}},
		Participants: []string{"alice"},
		Version:      version,
		StartedAt:    time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Get(context.Background(), "guild-1:ch1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	store := NewMemoryStore()
	created, err := store.Create(context.Background(), "guild-1:ch1", newStorySession("s1", 1))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if created.ID != "s1" || created.Version != 1 {
		t.Fatalf("unexpected created session: %+v", created)
	}

	got, err := store.Get(context.Background(), "guild-1:ch1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	// Mutating the returned copy must not leak into the store.
	got.Entries[0].Text = "tampered"
	again, _ := store.Get(context.Background(), "guild-1:ch1")
	if again.Entries[0].Text != "Once upon a time..." {
		t.Fatal("store returned a shared reference instead of a copy")
	}
}

func TestMemoryStore_CreateOverActiveOccupant(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Create(context.Background(), "guild-1:ch1", newStorySession("s1", 1)); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, err := store.Create(context.Background(), "guild-1:ch1", newStorySession("s2", 1)); !errors.Is(err, repository.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestMemoryStore_CreateRotatesEndedOccupant(t *testing.T) {
	store := NewMemoryStore()
	ended := newStorySession("s1", 5)
	ended.Status = repository.SessionStatusEnded
	if _, err := store.Create(context.Background(), "guild-1:ch1", ended); err != nil {
		t.Fatalf("seeding the ended occupant failed: %v", err)
	}

	if _, err := store.Create(context.Background(), "guild-1:ch1", newStorySession("s2", 1)); err != nil {
		t.Fatalf("expected the ended occupant to rotate out, got %v", err)
	}
	got, err := store.Get(context.Background(), "guild-1:ch1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.ID != "s2" || got.Version != 1 {
		t.Fatalf("expected the new session to occupy the key, got %+v", got)
	}
	if len(store.archived["guild-1:ch1"]) != 1 || store.archived["guild-1:ch1"][0].ID != "s1" {
		t.Fatal("expected the ended occupant in the archive")
	}
}

func TestMemoryStore_ConditionalUpdate(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Create(context.Background(), "guild-1:ch1", newStorySession("s1", 1)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := store.ConditionalUpdate(context.Background(), "guild-1:ch1", 1, func(s *repository.Session) error {
		s.Entries = append(s.Entries, repository.Contribution{
			Author: "bob", Text: "A dragon appeared.", Kind: repository.KindUserText, SequenceNumber: 1,
		})
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.Version != 2 {
		t.Fatalf("expected version bump to 2, got %d", updated.Version)
	}
	if len(updated.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(updated.Entries))
	}
}

func TestMemoryStore_ConditionalUpdateVersionConflict(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Create(context.Background(), "guild-1:ch1", newStorySession("s1", 1)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err := store.ConditionalUpdate(context.Background(), "guild-1:ch1", 7, func(s *repository.Session) error { return nil })
	if !errors.Is(err, repository.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	got, _ := store.Get(context.Background(), "guild-1:ch1")
	if got.Version != 1 {
		t.Fatalf("conflicting update mutated the session, version %d", got.Version)
	}
}

func TestMemoryStore_ConditionalUpdateMutatorError(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Create(context.Background(), "guild-1:ch1", newStorySession("s1", 1)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	wantErr := errors.New("mutator refused")
	_, err := store.ConditionalUpdate(context.Background(), "guild-1:ch1", 1, func(s *repository.Session) error {
		s.Entries = nil
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected the mutator error, got %v", err)
	}
	got, _ := store.Get(context.Background(), "guild-1:ch1")
	if len(got.Entries) != 1 || got.Version != 1 {
		t.Fatal("failed mutation leaked into the store")
	}
}

func TestMemoryStore_Archive(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Create(context.Background(), "guild-1:ch1", newStorySession("s1", 1)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := store.Archive(context.Background(), "guild-1:ch1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := store.Get(context.Background(), "guild-1:ch1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected the session to be gone, got %v", err)
	}
	if err := store.Archive(context.Background(), "guild-1:ch1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second archive, got %v", err)
	}
}

func TestMemoryStore_DesignatedChannels(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	ch, err := store.DesignatedChannel(ctx, "guild-1")
	if err != nil || ch != "" {
		t.Fatalf("expected empty channel, got %q err %v", ch, err)
	}
	if err := store.SetDesignatedChannel(ctx, "guild-1", "ch-story"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if ch, _ := store.DesignatedChannel(ctx, "guild-1"); ch != "ch-story" {
		t.Fatalf("expected ch-story, got %q", ch)
	}
	if err := store.RemoveDesignatedChannel(ctx, "guild-1"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if ch, _ := store.DesignatedChannel(ctx, "guild-1"); ch != "" {
		t.Fatalf("expected the channel to be removed, got %q", ch)
	}
}
