package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/inkfable/storyweave/internal/config"
	"github.com/inkfable/storyweave/internal/discord"
	"github.com/inkfable/storyweave/internal/generator"
	"github.com/inkfable/storyweave/internal/repository"
	"github.com/inkfable/storyweave/internal/webhook"
)

type fakeRepo struct {
	mu              sync.Mutex
	sessions        map[string]*repository.Session
	channels        map[string]string
	forcedConflicts int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		sessions: make(map[string]*repository.Session),
		channels: make(map[string]string),
	}
}

func (r *fakeRepo) Get(_ context.Context, key string) (*repository.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.Clone(), nil
}

func (r *fakeRepo) Create(_ context.Context, key string, s *repository.Session) (*repository.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[key]; ok && cur.Status == repository.SessionStatusActive {
		return nil, repository.ErrAlreadyExists
	}
	r.sessions[key] = s.Clone()
	return s.Clone(), nil
}

func (r *fakeRepo) ConditionalUpdate(_ context.Context, key string, expectedVersion int64, mutate repository.Mutator) (*repository.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forcedConflicts > 0 {
		r.forcedConflicts--
		return nil, repository.ErrVersionConflict
	}
	cur, ok := r.sessions[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return nil, repository.ErrVersionConflict
	}
	next := cur.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.Version = expectedVersion + 1
	r.sessions[key] = next
	return next.Clone(), nil
}

func (r *fakeRepo) Archive(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[key]; !ok {
		return repository.ErrNotFound
	}
	delete(r.sessions, key)
	return nil
}

func (r *fakeRepo) DesignatedChannel(_ context.Context, guildID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channels[guildID], nil
}

func (r *fakeRepo) SetDesignatedChannel(_ context.Context, guildID, channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[guildID] = channelID
	return nil
}

func (r *fakeRepo) RemoveDesignatedChannel(_ context.Context, guildID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, guildID)
	return nil
}

func (r *fakeRepo) mustGet(t *testing.T, key string) *repository.Session {
	t.Helper()
	s, err := r.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("failed to get session %q: %v", key, err)
	}
	return s
}

type fakeGenerator struct {
	mu    sync.Mutex
	err   error
	texts map[generator.Role]string
	specs []generator.PromptSpec
}

func (g *fakeGenerator) Generate(_ context.Context, spec generator.PromptSpec) (string, error) {
	g.mu.Lock()
	g.specs = append(g.specs, spec)
	g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	if t, ok := g.texts[spec.Role]; ok {
		return t, nil
	}
	return "generated text", nil
}

func (g *fakeGenerator) lastSpec(t *testing.T) generator.PromptSpec {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.specs) == 0 {
		t.Fatal("expected at least one generation call")
	}
	return g.specs[len(g.specs)-1]
}

type fakeDiscordClient struct {
	mu        sync.Mutex
	sendCalls []string
}

func (d *fakeDiscordClient) Connect(_ context.Context) error { return nil }
func (d *fakeDiscordClient) Close() error                    { return nil }
func (d *fakeDiscordClient) SendChannelMessage(_ string, content string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sendCalls = append(d.sendCalls, content)
	return nil
}
func (d *fakeDiscordClient) RegisterSlashCommandHandler(_ func(discord.SlashCommandEvent)) {}

func (d *fakeDiscordClient) GetBotUserID() (string, error) { return "bot-self", nil }

func (d *fakeDiscordClient) Run() error { return nil }

type fakeWebhookSender struct {
	mu       sync.Mutex
	payloads []webhook.StoryPayload
}

func (w *fakeWebhookSender) SendStory(_ context.Context, payload webhook.StoryPayload) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.payloads = append(w.payloads, payload)
	return nil
}

type fakeExporter struct {
	url   string
	err   error
	calls int
}

func (e *fakeExporter) ExportStory(_ context.Context, _ *repository.Session) (string, error) {
	e.calls++
	if e.err != nil {
		return "", e.err
	}
	return e.url, nil
}

type testEnv struct {
	manager *Manager
	repo    *fakeRepo
	gen     *fakeGenerator
	dc      *fakeDiscordClient
	wh      *fakeWebhookSender
	exp     *fakeExporter
	cfg     *config.Config
}

func newTestEnv() *testEnv {
	cfg := &config.Config{
		Env:                   "test",
		DiscordToken:          "token",
		OpenAIAPIKey:          "key",
		OpenAIModel:           "model",
		GenerationTimeoutSec:  30,
		GenerationMaxRetries:  2,
		StoreBackend:          config.StoreBackendMemory,
		MaxContributionLength: 300,
		MinContributionLength: 1,
		RecentWindowEntries:   5,
		PromptCharBudget:      4000,
		WriteRetryAttempts:    3,
	}
	repo := newFakeRepo()
	gen := &fakeGenerator{texts: map[generator.Role]string{}}
	dc := &fakeDiscordClient{}
	wh := &fakeWebhookSender{}
	exp := &fakeExporter{url: "https://docs.google.com/document/d/test/edit"}
	manager := NewManager(cfg, repo, gen, dc, wh, exp)

	var (
		mu  sync.Mutex
		seq int
	)
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	manager.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return base.Add(time.Duration(seq) * time.Second)
	}
	id := 0
	manager.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		id++
		return fmt.Sprintf("session-%d", id)
	}
	return &testEnv{manager: manager, repo: repo, gen: gen, dc: dc, wh: wh, exp: exp, cfg: cfg}
}

func (e *testEnv) startStory(t *testing.T, opening string) *repository.Session {
	t.Helper()
	s, err := e.manager.Start(context.Background(), StartInput{
		GuildID:     "guild-1",
		ChannelID:   "ch1",
		Author:      "alice",
		AuthorName:  "Alice",
		OpeningText: opening,
	})
	if err != nil {
		t.Fatalf("failed to start story: %v", err)
	}
	return s
}

func assertMonotonicSequence(t *testing.T, entries []repository.Contribution) {
	t.Helper()
	for i := 1; i < len(entries); i++ {
		if entries[i-1].SequenceNumber >= entries[i].SequenceNumber {
			t.Fatalf("sequence numbers not strictly increasing: %d then %d at index %d",
				entries[i-1].SequenceNumber, entries[i].SequenceNumber, i)
		}
	}
}

func TestStart_WithOpeningText(t *testing.T) {
	env := newTestEnv()
	s := env.startStory(t, "Once upon a time...")

	if s.Status != repository.SessionStatusActive {
		t.Fatalf("expected active status, got %s", s.Status)
	}
	if len(s.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(s.Entries))
	}
	opener := s.Entries[0]
	if opener.Author != "alice" || opener.Text != "Once upon a time..." || opener.Kind != repository.KindUserText || opener.SequenceNumber != 0 {
		t.Fatalf("unexpected opening entry: %+v", opener)
	}
	if !s.HasParticipant("alice") {
		t.Fatal("expected alice to be a participant")
	}
	if s.Version != 1 {
		t.Fatalf("expected version 1, got %d", s.Version)
	}
}

func TestStart_SecondStartFails(t *testing.T) {
	env := newTestEnv()
	env.startStory(t, "First opening.")

	_, err := env.manager.Start(context.Background(), StartInput{
		GuildID: "guild-1", ChannelID: "ch1", Author: "bob", AuthorName: "Bob", OpeningText: "Second opening.",
	})
	if !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
	s := env.repo.mustGet(t, "guild-1:ch1")
	if s.Entries[0].Text != "First opening." {
		t.Fatalf("first session content was not retained: %q", s.Entries[0].Text)
	}
}

func TestStart_GeneratedOpening(t *testing.T) {
	env := newTestEnv()
	env.gen.texts[generator.RoleOpening] = "In a quiet village, something stirred."

	s, err := env.manager.Start(context.Background(), StartInput{
		GuildID: "guild-1", ChannelID: "ch1", Author: "alice", AuthorName: "Alice", Genre: "fantasy", Prompt: "a sleepy village",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	opener := s.Entries[0]
	if opener.Kind != repository.KindAIOpening || opener.Author != narratorAuthorID {
		t.Fatalf("unexpected opening entry: %+v", opener)
	}
	if opener.Text != "In a quiet village, something stirred." {
		t.Fatalf("unexpected opening text: %q", opener.Text)
	}
	if !s.HasParticipant("alice") {
		t.Fatal("expected the invoking user to be a participant")
	}
	spec := env.gen.lastSpec(t)
	if spec.Role != generator.RoleOpening || spec.Genre != "fantasy" || spec.Seed != "a sleepy village" {
		t.Fatalf("unexpected prompt spec: %+v", spec)
	}
}

func TestStart_GenerationFailureLeavesNoSession(t *testing.T) {
	env := newTestEnv()
	env.gen.err = generator.ErrUnavailable

	_, err := env.manager.Start(context.Background(), StartInput{
		GuildID: "guild-1", ChannelID: "ch1", Author: "alice", AuthorName: "Alice", Genre: "fantasy",
	})
	if !errors.Is(err, generator.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := env.repo.Get(context.Background(), "guild-1:ch1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected no session to be created, got %v", err)
	}
}

func TestStart_WithoutAnyInput(t *testing.T) {
	env := newTestEnv()
	_, err := env.manager.Start(context.Background(), StartInput{
		GuildID: "guild-1", ChannelID: "ch1", Author: "alice", AuthorName: "Alice",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAddContribution_AppendsInOrder(t *testing.T) {
	env := newTestEnv()
	env.startStory(t, "Once upon a time...")

	c, err := env.manager.AddContribution(context.Background(), "guild-1", "ch1", "bob", "Bob", "A dragon appeared.")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.SequenceNumber != 1 || c.Author != "bob" || c.Kind != repository.KindUserText {
		t.Fatalf("unexpected contribution: %+v", c)
	}

	s := env.repo.mustGet(t, "guild-1:ch1")
	if len(s.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(s.Entries))
	}
	assertMonotonicSequence(t, s.Entries)
	if !s.HasParticipant("bob") {
		t.Fatal("expected bob to be a participant")
	}
	if s.Version != 2 {
		t.Fatalf("expected version 2, got %d", s.Version)
	}
}

func TestAddContribution_OnEndedSession(t *testing.T) {
	env := newTestEnv()
	env.startStory(t, "Once upon a time...")
	if _, err := env.manager.End(context.Background(), "guild-1", "ch1", false); err != nil {
		t.Fatalf("failed to end story: %v", err)
	}
	before := env.repo.mustGet(t, "guild-1:ch1")

	_, err := env.manager.AddContribution(context.Background(), "guild-1", "ch1", "bob", "Bob", "Too late.")
	if !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
	after := env.repo.mustGet(t, "guild-1:ch1")
	if len(after.Entries) != len(before.Entries) || after.Version != before.Version {
		t.Fatalf("ended session was mutated: entries %d->%d version %d->%d",
			len(before.Entries), len(after.Entries), before.Version, after.Version)
	}
}

func TestAddContribution_InvalidText(t *testing.T) {
	env := newTestEnv()
	env.startStory(t, "Once upon a time...")

	if _, err := env.manager.AddContribution(context.Background(), "guild-1", "ch1", "bob", "Bob", "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank text, got %v", err)
	}
	long := make([]byte, env.cfg.MaxContributionLength+1)
	for i := range long {
		long[i] = 'x'
	}
	if _, err := env.manager.AddContribution(context.Background(), "guild-1", "ch1", "bob", "Bob", string(long)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for oversized text, got %v", err)
	}
}

func TestAddContribution_RetriesOnVersionConflict(t *testing.T) {
	env := newTestEnv()
	env.startStory(t, "Once upon a time...")
	env.repo.forcedConflicts = 2

	c, err := env.manager.AddContribution(context.Background(), "guild-1", "ch1", "bob", "Bob", "A dragon appeared.")
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if c.SequenceNumber != 1 {
		t.Fatalf("expected sequence 1, got %d", c.SequenceNumber)
	}
}

func TestAddContribution_RetryBudgetExhausted(t *testing.T) {
	env := newTestEnv()
	env.startStory(t, "Once upon a time...")
	env.repo.forcedConflicts = env.cfg.WriteRetryAttempts

	_, err := env.manager.AddContribution(context.Background(), "guild-1", "ch1", "bob", "Bob", "A dragon appeared.")
	if !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}
}

func TestAddContribution_ConcurrentWritersBothLand(t *testing.T) {
	env := newTestEnv()
	env.startStory(t, "Once upon a time...")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, author := range []string{"bob", "carol"} {
		wg.Add(1)
		go func(i int, author string) {
			defer wg.Done()
			_, errs[i] = env.manager.AddContribution(context.Background(), "guild-1", "ch1", author, author, "Line by "+author)
		}(i, author)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("writer %d failed: %v", i, err)
		}
	}
	s := env.repo.mustGet(t, "guild-1:ch1")
	if len(s.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(s.Entries))
	}
	assertMonotonicSequence(t, s.Entries)
	if s.Version != 3 {
		t.Fatalf("expected version 3 after two commits, got %d", s.Version)
	}
}

func TestAddContribution_TurnAlternation(t *testing.T) {
	env := newTestEnv()
	env.cfg.EnforceTurnAlternation = true
	env.startStory(t, "Once upon a time...")

	if _, err := env.manager.AddContribution(context.Background(), "guild-1", "ch1", "alice", "Alice", "More from me."); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for consecutive turns, got %v", err)
	}
	if _, err := env.manager.AddContribution(context.Background(), "guild-1", "ch1", "bob", "Bob", "My turn."); err != nil {
		t.Fatalf("expected other author to succeed, got %v", err)
	}
}

func TestRequestAIInsertion_AppendsTwist(t *testing.T) {
	env := newTestEnv()
	env.gen.texts[generator.RoleTwist] = "Suddenly, the dragon spoke."
	env.startStory(t, "Once upon a time...")

	c, err := env.manager.RequestAIInsertion(context.Background(), "guild-1", "ch1", repository.KindAITwist)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Kind != repository.KindAITwist || c.Author != narratorAuthorID || c.SequenceNumber != 1 {
		t.Fatalf("unexpected contribution: %+v", c)
	}
	spec := env.gen.lastSpec(t)
	if spec.Role != generator.RoleTwist {
		t.Fatalf("expected twist role, got %s", spec.Role)
	}
}

func TestRequestAIInsertion_UsesBoundedWindow(t *testing.T) {
	env := newTestEnv()
	env.cfg.RecentWindowEntries = 2
	env.startStory(t, "Line zero.")
	for i, author := range []string{"bob", "carol", "dave"} {
		if _, err := env.manager.AddContribution(context.Background(), "guild-1", "ch1", author, author, fmt.Sprintf("Line %d.", i+1)); err != nil {
			t.Fatalf("failed to add contribution: %v", err)
		}
	}

	if _, err := env.manager.RequestAIInsertion(context.Background(), "guild-1", "ch1", repository.KindAISetting); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	spec := env.gen.lastSpec(t)
	if len(spec.Excerpt) != 2 {
		t.Fatalf("expected 2 excerpt lines, got %d", len(spec.Excerpt))
	}
	if spec.Excerpt[0] != "Line 2." || spec.Excerpt[1] != "Line 3." {
		t.Fatalf("expected the two newest lines, got %v", spec.Excerpt)
	}
}

func TestRequestAIInsertion_GatewayFailureLeavesSessionUntouched(t *testing.T) {
	env := newTestEnv()
	env.startStory(t, "Once upon a time...")
	before := env.repo.mustGet(t, "guild-1:ch1")
	env.gen.err = generator.ErrUnavailable

	_, err := env.manager.RequestAIInsertion(context.Background(), "guild-1", "ch1", repository.KindAITwist)
	if !errors.Is(err, generator.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	after := env.repo.mustGet(t, "guild-1:ch1")
	if len(after.Entries) != len(before.Entries) || after.Version != before.Version {
		t.Fatalf("session was mutated on gateway failure: entries %d->%d version %d->%d",
			len(before.Entries), len(after.Entries), before.Version, after.Version)
	}
}

func TestRequestAIInsertion_UnsupportedKind(t *testing.T) {
	env := newTestEnv()
	env.startStory(t, "Once upon a time...")

	if _, err := env.manager.RequestAIInsertion(context.Background(), "guild-1", "ch1", repository.KindUserText); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestEnd_WithEpilogue(t *testing.T) {
	env := newTestEnv()
	env.gen.texts[generator.RoleEpilogue] = "...and they lived happily."
	env.startStory(t, "Once upon a time...")
	if _, err := env.manager.AddContribution(context.Background(), "guild-1", "ch1", "bob", "Bob", "A dragon appeared."); err != nil {
		t.Fatalf("failed to add contribution: %v", err)
	}

	res, err := env.manager.End(context.Background(), "guild-1", "ch1", true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Session.Status != repository.SessionStatusEnded || res.Session.EndedAt == nil {
		t.Fatalf("expected ended session, got %+v", res.Session)
	}
	if res.Epilogue == nil || res.Epilogue.Kind != repository.KindAIEpilogue || res.Epilogue.SequenceNumber != 2 {
		t.Fatalf("unexpected epilogue: %+v", res.Epilogue)
	}
	if res.Epilogue.Text != "...and they lived happily." {
		t.Fatalf("unexpected epilogue text: %q", res.Epilogue.Text)
	}
	assertMonotonicSequence(t, res.Session.Entries)

	if len(env.wh.payloads) != 1 {
		t.Fatalf("expected 1 webhook payload, got %d", len(env.wh.payloads))
	}
	if got := len(env.wh.payloads[0].Entries); got != 3 {
		t.Fatalf("expected 3 entries in webhook payload, got %d", got)
	}
}

func TestEnd_EpilogueFailureStillEnds(t *testing.T) {
	env := newTestEnv()
	env.startStory(t, "Once upon a time...")
	env.gen.err = generator.ErrUnavailable

	res, err := env.manager.End(context.Background(), "guild-1", "ch1", true)
	if err != nil {
		t.Fatalf("expected the session to still end, got %v", err)
	}
	if res.Session.Status != repository.SessionStatusEnded {
		t.Fatalf("expected ended status, got %s", res.Session.Status)
	}
	if res.Epilogue != nil {
		t.Fatalf("expected no epilogue, got %+v", res.Epilogue)
	}
	if !errors.Is(res.EpilogueErr, generator.ErrUnavailable) {
		t.Fatalf("expected reported epilogue failure, got %v", res.EpilogueErr)
	}
}

func TestEnd_NoActiveSession(t *testing.T) {
	env := newTestEnv()
	if _, err := env.manager.End(context.Background(), "guild-1", "ch1", false); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestSummarize_ReadOnly(t *testing.T) {
	env := newTestEnv()
	env.gen.texts[generator.RoleRecap] = "A recap."
	env.startStory(t, "Once upon a time...")
	before := env.repo.mustGet(t, "guild-1:ch1")

	for i := 0; i < 2; i++ {
		text, err := env.manager.Summarize(context.Background(), "guild-1", "ch1", SummaryRecap)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if text != "A recap." {
			t.Fatalf("unexpected summary text: %q", text)
		}
	}
	after := env.repo.mustGet(t, "guild-1:ch1")
	if after.Version != before.Version || len(after.Entries) != len(before.Entries) {
		t.Fatal("summarize mutated session state")
	}
}

func TestSummarize_FullUsesAllEntries(t *testing.T) {
	env := newTestEnv()
	env.cfg.RecentWindowEntries = 1
	env.startStory(t, "Line zero.")
	if _, err := env.manager.AddContribution(context.Background(), "guild-1", "ch1", "bob", "Bob", "Line one."); err != nil {
		t.Fatalf("failed to add contribution: %v", err)
	}

	if _, err := env.manager.Summarize(context.Background(), "guild-1", "ch1", SummaryFull); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	spec := env.gen.lastSpec(t)
	if spec.Role != generator.RoleSummary || len(spec.Excerpt) != 2 {
		t.Fatalf("expected full excerpt, got role %s with %d lines", spec.Role, len(spec.Excerpt))
	}
}

func TestSummarize_PropagatesGatewayFailure(t *testing.T) {
	env := newTestEnv()
	env.startStory(t, "Once upon a time...")
	env.gen.err = generator.ErrUnavailable

	if _, err := env.manager.Summarize(context.Background(), "guild-1", "ch1", SummaryRecap); !errors.Is(err, generator.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestExport_RecordsDocURL(t *testing.T) {
	env := newTestEnv()
	env.startStory(t, "Once upon a time...")
	if _, err := env.manager.End(context.Background(), "guild-1", "ch1", false); err != nil {
		t.Fatalf("failed to end story: %v", err)
	}

	url, err := env.manager.Export(context.Background(), "guild-1", "ch1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if url != env.exp.url {
		t.Fatalf("unexpected export url: %q", url)
	}
	s := env.repo.mustGet(t, "guild-1:ch1")
	if s.DocURL != env.exp.url {
		t.Fatalf("doc url was not recorded, got %q", s.DocURL)
	}

	// Re-export returns the recorded URL without a second exporter call.
	if _, err := env.manager.Export(context.Background(), "guild-1", "ch1"); err != nil {
		t.Fatalf("expected no error on re-export, got %v", err)
	}
	if env.exp.calls != 1 {
		t.Fatalf("expected 1 exporter call, got %d", env.exp.calls)
	}
}

func TestExport_RequiresEndedStory(t *testing.T) {
	env := newTestEnv()
	env.startStory(t, "Once upon a time...")

	if _, err := env.manager.Export(context.Background(), "guild-1", "ch1"); !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}
}

func TestArchive_RemovesSession(t *testing.T) {
	env := newTestEnv()
	env.startStory(t, "Once upon a time...")

	if err := env.manager.Archive(context.Background(), "guild-1", "ch1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := env.repo.Get(context.Background(), "guild-1:ch1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected session to be gone, got %v", err)
	}
	if err := env.manager.Archive(context.Background(), "guild-1", "ch1"); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession on second archive, got %v", err)
	}
}
