package repository

import "time"

type SessionStatus string

const (
	SessionStatusNotStarted SessionStatus = "not_started"
	SessionStatusActive     SessionStatus = "active"
	SessionStatusEnded      SessionStatus = "ended"
)

type ContributionKind string

const (
	KindUserText    ContributionKind = "user_text"
	KindAIOpening   ContributionKind = "ai_opening"
	KindAITwist     ContributionKind = "ai_twist"
	KindAICharacter ContributionKind = "ai_character"
	KindAISetting   ContributionKind = "ai_setting"
	KindAIEpilogue  ContributionKind = "ai_epilogue"
)

// Contribution is one atomic, ordered addition to a story. Contributions are
// immutable once appended; corrections are new contributions.
type Contribution struct {
	Author         string           `json:"author"`
	AuthorName     string           `json:"author_name"`
	Text           string           `json:"text"`
	Kind           ContributionKind `json:"kind"`
	SequenceNumber int              `json:"sequence_number"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Session is one collaborative story instance, keyed by (guild, channel).
// Version increases by one on every committed mutation and is the basis for
// optimistic-concurrency checks and cache invalidation.
type Session struct {
	ID           string         `json:"id"`
	GuildID      string         `json:"guild_id"`
	ChannelID    string         `json:"channel_id"`
	Title        string         `json:"title"`
	Genre        string         `json:"genre"`
	Prompt       string         `json:"prompt"`
	Status       SessionStatus  `json:"status"`
	Entries      []Contribution `json:"entries"`
	Participants []string       `json:"participants"`
	Version      int64          `json:"version"`
	StartedAt    time.Time      `json:"started_at"`
	EndedAt      *time.Time     `json:"ended_at,omitempty"`
	DocURL       string         `json:"doc_url,omitempty"`
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Entries = make([]Contribution, len(s.Entries))
	copy(cp.Entries, s.Entries)
	cp.Participants = make([]string, len(s.Participants))
	copy(cp.Participants, s.Participants)
	if s.EndedAt != nil {
		t := *s.EndedAt
		cp.EndedAt = &t
	}
	return &cp
}

func (s *Session) HasParticipant(userID string) bool {
	for _, p := range s.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// AddParticipant grows the participant set monotonically.
func (s *Session) AddParticipant(userID string) {
	if userID == "" || s.HasParticipant(userID) {
		return
	}
	s.Participants = append(s.Participants, userID)
}

func (s *Session) LastEntry() *Contribution {
	if len(s.Entries) == 0 {
		return nil
	}
	return &s.Entries[len(s.Entries)-1]
}

// RecentEntries returns up to n trailing entries in story order.
func (s *Session) RecentEntries(n int) []Contribution {
	if n <= 0 || len(s.Entries) == 0 {
		return nil
	}
	if n > len(s.Entries) {
		n = len(s.Entries)
	}
	out := make([]Contribution, n)
	copy(out, s.Entries[len(s.Entries)-n:])
	return out
}
