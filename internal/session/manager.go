package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/inkfable/storyweave/internal/config"
	"github.com/inkfable/storyweave/internal/discord"
	"github.com/inkfable/storyweave/internal/export"
	"github.com/inkfable/storyweave/internal/generator"
	"github.com/inkfable/storyweave/internal/repository"
	"github.com/inkfable/storyweave/internal/webhook"
)

var (
	// ErrAlreadyActive means a story session is already active for the key.
	ErrAlreadyActive = errors.New("a story is already active in this channel")
	// ErrNoActiveSession means no active story session exists for the key.
	ErrNoActiveSession = errors.New("no active story in this channel")
	// ErrInvalidInput means the supplied text or arguments were unusable.
	ErrInvalidInput = errors.New("invalid story input")
	// ErrConcurrentModification means the optimistic-write retry budget was
	// exhausted by concurrent writers.
	ErrConcurrentModification = errors.New("story was modified concurrently too many times")
	// ErrNothingToExport means no finished story occupies the channel.
	ErrNothingToExport = errors.New("no finished story to export in this channel")
)

const (
	narratorAuthorID   = "narrator"
	narratorAuthorName = "Narrator"

	webhookSendTimeout = 10 * time.Second
)

type SummaryMode string

const (
	SummaryRecap SummaryMode = "recap"
	SummaryFull  SummaryMode = "full"
)

// Manager is the single authority over story session state. All mutations go
// through the store's conditional-update primitive; concurrent writers for
// the same session are ordered by commit, losers retry with a recomputed
// sequence number.
type Manager struct {
	cfg      *config.Config
	repo     repository.Repository
	gen      generator.Generator
	discord  discord.Client
	webhook  webhook.Sender
	exporter export.Exporter

	now   func() time.Time
	newID func() string
}

func NewManager(cfg *config.Config, repo repository.Repository, gen generator.Generator, dc discord.Client, wh webhook.Sender, exp export.Exporter) *Manager {
	return &Manager{
		cfg:      cfg,
		repo:     repo,
		gen:      gen,
		discord:  dc,
		webhook:  wh,
		exporter: exp,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (m *Manager) sessionKey(guildID, channelID string) string {
	return guildID + ":" + channelID
}

type StartInput struct {
	GuildID     string
	ChannelID   string
	Author      string
	AuthorName  string
	OpeningText string
	Genre       string
	Prompt      string
}

// Start creates a new session. When no opening text is supplied the opening
// is generated from the prompt/genre first, so a gateway failure leaves no
// partial session behind.
func (m *Manager) Start(ctx context.Context, in StartInput) (*repository.Session, error) {
	key := m.sessionKey(in.GuildID, in.ChannelID)
	opening := strings.TrimSpace(in.OpeningText)
	genre := strings.TrimSpace(in.Genre)
	prompt := strings.TrimSpace(in.Prompt)

	openingKind := repository.KindUserText
	openingAuthor, openingAuthorName := in.Author, in.AuthorName

	if opening == "" {
		if genre == "" && prompt == "" {
			return nil, fmt.Errorf("%w: an opening text, a premise, or a genre is required", ErrInvalidInput)
		}
		// Check for an occupant before paying for generation. The create
		// below is still the authoritative uniqueness check.
		if cur, err := m.repo.Get(ctx, key); err == nil {
			if cur.Status == repository.SessionStatusActive {
				return nil, ErrAlreadyActive
			}
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("load session: %w", err)
		}
		text, err := m.gen.Generate(ctx, generator.PromptSpec{
			Role:       generator.RoleOpening,
			Genre:      genre,
			Seed:       prompt,
			CharBudget: m.cfg.PromptCharBudget,
		})
		if err != nil {
			return nil, err
		}
		opening = text
		openingKind = repository.KindAIOpening
		openingAuthor, openingAuthorName = narratorAuthorID, narratorAuthorName
	} else if len(opening) > m.cfg.MaxContributionLength {
		return nil, fmt.Errorf("%w: opening is too long (max %d characters)", ErrInvalidInput, m.cfg.MaxContributionLength)
	}

	now := m.now()
	s := &repository.Session{
		ID:        m.newID(),
		GuildID:   in.GuildID,
		ChannelID: in.ChannelID,
		Title:     "Story-" + now.Format("20060102-1504"),
		Genre:     genre,
		Prompt:    prompt,
		Status:    repository.SessionStatusActive,
		Entries: []repository.Contribution{{
			Author:         openingAuthor,
			AuthorName:     openingAuthorName,
			Text:           opening,
			Kind:           openingKind,
			SequenceNumber: 0,
			CreatedAt:      now,
		}},
		Version:   1,
		StartedAt: now,
	}
	s.AddParticipant(in.Author)

	created, err := m.repo.Create(ctx, key, s)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrAlreadyActive
		}
		return nil, fmt.Errorf("create session: %w", err)
	}
	slog.Info("story session started", "session_key", key, "session_id", created.ID, "opening_kind", string(openingKind))
	return created, nil
}

// AddContribution appends user text under optimistic-concurrency control.
func (m *Manager) AddContribution(ctx context.Context, guildID, channelID, author, authorName, text string) (*repository.Contribution, error) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < m.cfg.MinContributionLength {
		return nil, fmt.Errorf("%w: contribution must be at least %d characters", ErrInvalidInput, m.cfg.MinContributionLength)
	}
	if len(trimmed) > m.cfg.MaxContributionLength {
		return nil, fmt.Errorf("%w: contribution is too long (max %d characters)", ErrInvalidInput, m.cfg.MaxContributionLength)
	}

	key := m.sessionKey(guildID, channelID)
	var out repository.Contribution
	_, err := m.appendEntry(ctx, key, func(s *repository.Session) error {
		if m.cfg.EnforceTurnAlternation {
			if last := s.LastEntry(); last != nil && last.Kind == repository.KindUserText && last.Author == author {
				return fmt.Errorf("%w: wait for someone else to contribute before adding again", ErrInvalidInput)
			}
		}
		out = repository.Contribution{
			Author:         author,
			AuthorName:     authorName,
			Text:           trimmed,
			Kind:           repository.KindUserText,
			SequenceNumber: len(s.Entries),
			CreatedAt:      m.now(),
		}
		s.Entries = append(s.Entries, out)
		s.AddParticipant(author)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

var insertionRoles = map[repository.ContributionKind]generator.Role{
	repository.KindAITwist:     generator.RoleTwist,
	repository.KindAICharacter: generator.RoleCharacter,
	repository.KindAISetting:   generator.RoleSetting,
}

// RequestAIInsertion generates a twist, character, or setting from a bounded
// window of recent entries and appends it as a narrator contribution. A
// gateway failure leaves the session untouched.
func (m *Manager) RequestAIInsertion(ctx context.Context, guildID, channelID string, kind repository.ContributionKind) (*repository.Contribution, error) {
	role, ok := insertionRoles[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported AI insertion kind %q", ErrInvalidInput, kind)
	}

	key := m.sessionKey(guildID, channelID)
	cur, err := m.activeSession(ctx, key)
	if err != nil {
		return nil, err
	}

	text, err := m.gen.Generate(ctx, m.promptSpec(cur, role, false))
	if err != nil {
		return nil, err
	}

	var out repository.Contribution
	_, err = m.appendEntry(ctx, key, func(s *repository.Session) error {
		out = repository.Contribution{
			Author:         narratorAuthorID,
			AuthorName:     narratorAuthorName,
			Text:           text,
			Kind:           kind,
			SequenceNumber: len(s.Entries),
			CreatedAt:      m.now(),
		}
		s.Entries = append(s.Entries, out)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type EndResult struct {
	Session  *repository.Session
	Epilogue *repository.Contribution
	// EpilogueErr reports a failed best-effort epilogue generation. The
	// session still transitions to Ended.
	EpilogueErr error
}

// End freezes the session. The epilogue is attempted with a single gateway
// call before the transition and is not required for closure.
func (m *Manager) End(ctx context.Context, guildID, channelID string, requestEpilogue bool) (EndResult, error) {
	key := m.sessionKey(guildID, channelID)
	cur, err := m.activeSession(ctx, key)
	if err != nil {
		return EndResult{}, err
	}

	var res EndResult
	epilogueText := ""
	if requestEpilogue {
		text, genErr := m.gen.Generate(ctx, m.promptSpec(cur, generator.RoleEpilogue, false))
		if genErr != nil {
			res.EpilogueErr = genErr
			slog.Warn("epilogue generation failed; ending story without it", "session_key", key, "error", genErr)
		} else {
			epilogueText = text
		}
	}

	updated, err := m.appendEntry(ctx, key, func(s *repository.Session) error {
		if epilogueText != "" {
			c := repository.Contribution{
				Author:         narratorAuthorID,
				AuthorName:     narratorAuthorName,
				Text:           epilogueText,
				Kind:           repository.KindAIEpilogue,
				SequenceNumber: len(s.Entries),
				CreatedAt:      m.now(),
			}
			s.Entries = append(s.Entries, c)
			epi := c
			res.Epilogue = &epi
		}
		endedAt := m.now()
		s.Status = repository.SessionStatusEnded
		s.EndedAt = &endedAt
		return nil
	})
	if err != nil {
		return EndResult{}, err
	}
	res.Session = updated
	slog.Info("story session ended", "session_key", key, "session_id", updated.ID, "entries", len(updated.Entries))

	m.notifyStoryComplete(updated)
	return res, nil
}

// Summarize is read-only on every outcome and propagates gateway failures
// verbatim.
func (m *Manager) Summarize(ctx context.Context, guildID, channelID string, mode SummaryMode) (string, error) {
	key := m.sessionKey(guildID, channelID)
	cur, err := m.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNoActiveSession
		}
		return "", fmt.Errorf("load session: %w", err)
	}

	switch mode {
	case SummaryRecap:
		return m.gen.Generate(ctx, m.promptSpec(cur, generator.RoleRecap, false))
	case SummaryFull:
		return m.gen.Generate(ctx, m.promptSpec(cur, generator.RoleSummary, true))
	default:
		return "", fmt.Errorf("%w: unknown summary mode %q", ErrInvalidInput, mode)
	}
}

// Export publishes an ended story through the configured exporter and records
// the document URL on the session. Re-export returns the recorded URL.
func (m *Manager) Export(ctx context.Context, guildID, channelID string) (string, error) {
	key := m.sessionKey(guildID, channelID)
	cur, err := m.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNothingToExport
		}
		return "", fmt.Errorf("load session: %w", err)
	}
	if cur.Status != repository.SessionStatusEnded {
		return "", fmt.Errorf("%w: the story must be ended first", ErrNothingToExport)
	}
	if cur.DocURL != "" {
		return cur.DocURL, nil
	}
	if m.exporter == nil {
		return "", export.ErrUnavailable
	}

	url, err := m.exporter.ExportStory(ctx, cur)
	if err != nil {
		return "", err
	}
	if err := m.recordDocURL(ctx, key, url); err != nil {
		// The document exists even if recording its URL lost every race.
		slog.Warn("failed to record export url on session", "session_key", key, "error", err)
	}
	return url, nil
}

func (m *Manager) recordDocURL(ctx context.Context, key, url string) error {
	for attempt := 1; attempt <= m.cfg.WriteRetryAttempts; attempt++ {
		cur, err := m.repo.Get(ctx, key)
		if err != nil {
			return err
		}
		if cur.DocURL != "" {
			return nil
		}
		_, err = m.repo.ConditionalUpdate(ctx, key, cur.Version, func(s *repository.Session) error {
			s.DocURL = url
			return nil
		})
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		return err
	}
	return ErrConcurrentModification
}

// Archive removes the session from the hot path. Explicit only; nothing else
// deletes entries.
func (m *Manager) Archive(ctx context.Context, guildID, channelID string) error {
	key := m.sessionKey(guildID, channelID)
	if err := m.repo.Archive(ctx, key); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoActiveSession
		}
		return fmt.Errorf("archive session: %w", err)
	}
	slog.Info("story session archived", "session_key", key)
	return nil
}

func (m *Manager) activeSession(ctx context.Context, key string) (*repository.Session, error) {
	cur, err := m.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveSession
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if cur.Status != repository.SessionStatusActive {
		return nil, ErrNoActiveSession
	}
	return cur, nil
}

// appendEntry runs the read-compute-write cycle under optimistic concurrency:
// losers of a version race retry with a fresh read until the attempt budget
// runs out. Mutator errors abort the cycle and propagate unchanged.
func (m *Manager) appendEntry(ctx context.Context, key string, mutate repository.Mutator) (*repository.Session, error) {
	for attempt := 1; attempt <= m.cfg.WriteRetryAttempts; attempt++ {
		cur, err := m.repo.Get(ctx, key)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrNoActiveSession
			}
			return nil, fmt.Errorf("load session: %w", err)
		}
		if cur.Status != repository.SessionStatusActive {
			return nil, ErrNoActiveSession
		}
		updated, err := m.repo.ConditionalUpdate(ctx, key, cur.Version, mutate)
		if err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				slog.Debug("conditional update lost the version race; retrying", "session_key", key, "attempt", attempt)
				continue
			}
			return nil, err
		}
		return updated, nil
	}
	return nil, ErrConcurrentModification
}

func (m *Manager) promptSpec(s *repository.Session, role generator.Role, full bool) generator.PromptSpec {
	entries := s.Entries
	if !full {
		entries = s.RecentEntries(m.cfg.RecentWindowEntries)
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Text)
	}
	return generator.PromptSpec{
		Role:       role,
		Genre:      s.Genre,
		Excerpt:    lines,
		CharBudget: m.cfg.PromptCharBudget,
	}
}

func (m *Manager) notifyStoryComplete(s *repository.Session) {
	if m.webhook == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), webhookSendTimeout)
	defer cancel()

	payload := webhook.StoryPayload{
		SessionID:    s.ID,
		GuildID:      s.GuildID,
		ChannelID:    s.ChannelID,
		Title:        s.Title,
		Genre:        s.Genre,
		StartedAt:    s.StartedAt,
		Participants: s.Participants,
	}
	if s.EndedAt != nil {
		payload.EndedAt = *s.EndedAt
	}
	payload.Entries = make([]webhook.StoryEntry, 0, len(s.Entries))
	for _, e := range s.Entries {
		payload.Entries = append(payload.Entries, webhook.StoryEntry{
			Author:         e.Author,
			AuthorName:     e.AuthorName,
			Kind:           string(e.Kind),
			SequenceNumber: e.SequenceNumber,
			Text:           e.Text,
			CreatedAt:      e.CreatedAt,
		})
	}
	if err := m.webhook.SendStory(ctx, payload); err != nil {
		slog.Error("failed to send story webhook", "session_id", s.ID, "error", err)
	}
}
