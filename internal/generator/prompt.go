package generator

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleOpening   Role = "opening"
	RoleTwist     Role = "twist"
	RoleCharacter Role = "character"
	RoleSetting   Role = "setting"
	RoleRecap     Role = "recap"
	RoleSummary   Role = "summary"
	RoleEpilogue  Role = "epilogue"
)

const systemPrompt = "You are a creative writing assistant helping a group of people write a story together in a chat channel. Stay consistent with the established narrative and tone."

const defaultCharBudget = 4000

// PromptSpec describes one generation request: the role instruction, the
// story excerpt it should work from, and optional genre metadata. Excerpt
// lines are trimmed to CharBudget characters, newest lines kept, so prompts
// respect the generation service's input limits.
type PromptSpec struct {
	Role       Role
	Genre      string
	Seed       string
	Excerpt    []string
	CharBudget int
}

var roleInstructions = map[Role]string{
	RoleOpening:   "Generate an engaging opening paragraph for a new story. Keep it under 150 words and make it open-ended so others can continue it.",
	RoleTwist:     "Generate an unexpected but coherent plot twist for the story below. Make it surprising but consistent with the established narrative. Two or three sentences.",
	RoleCharacter: "Create a character that would fit well into the story below. Include their name, a brief physical description, their personality, and a potential role in the narrative.",
	RoleSetting:   "Describe a new location or setting that the story below could move into next. Keep it vivid and under 100 words.",
	RoleRecap:     "Provide a concise summary of the story's key events and current situation. Keep it engaging and under 200 words.",
	RoleSummary:   "Provide a complete summary of the whole story from beginning to end. Keep it under 300 words.",
	RoleEpilogue:  "Write a short closing epilogue that wraps up the story below. Two to four sentences, matching the story's tone.",
}

// Render produces the system and user messages for the request.
func (p PromptSpec) Render() (system, user string, err error) {
	instruction, ok := roleInstructions[p.Role]
	if !ok {
		return "", "", fmt.Errorf("unknown prompt role %q", p.Role)
	}

	var b strings.Builder
	b.WriteString(instruction)
	if p.Genre != "" {
		fmt.Fprintf(&b, "\n\nGenre: %s", p.Genre)
	}
	if p.Seed != "" {
		fmt.Fprintf(&b, "\n\nStory premise: %s", p.Seed)
	}
	if excerpt := p.boundedExcerpt(); excerpt != "" {
		fmt.Fprintf(&b, "\n\nStory so far:\n%s", excerpt)
	}
	return systemPrompt, b.String(), nil
}

// boundedExcerpt joins excerpt lines in story order, dropping the oldest
// lines first when the character budget would be exceeded.
func (p PromptSpec) boundedExcerpt() string {
	budget := p.CharBudget
	if budget <= 0 {
		budget = defaultCharBudget
	}
	total := 0
	start := len(p.Excerpt)
	for i := len(p.Excerpt) - 1; i >= 0; i-- {
		need := len(p.Excerpt[i]) + 1
		if total+need > budget {
			break
		}
		total += need
		start = i
	}
	if start == len(p.Excerpt) && len(p.Excerpt) > 0 {
		// Even the newest line alone busts the budget; keep its tail.
		line := p.Excerpt[len(p.Excerpt)-1]
		return line[len(line)-budget:]
	}
	return strings.Join(p.Excerpt[start:], "\n")
}
