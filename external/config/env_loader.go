package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/inkfable/storyweave/internal/config"
)

type envConfig struct {
	Env string `env:"ENV" envDefault:"production"`

	DiscordToken   string `env:"DISCORD_TOKEN,required"`
	DiscordGuildID string `env:"DISCORD_GUILD_ID"`

	OpenAIAPIKey         string `env:"OPENAI_API_KEY,required"`
	OpenAIBaseURL        string `env:"OPENAI_BASE_URL"`
	OpenAIModel          string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	GenerationTimeoutSec int    `env:"GENERATION_TIMEOUT_SEC" envDefault:"30"`
	GenerationMaxRetries int    `env:"GENERATION_MAX_RETRIES" envDefault:"2"`

	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`
	DatabaseURL  string `env:"DATABASE_URL"`
	RedisURL     string `env:"REDIS_URL"`

	MaxContributionLength  int  `env:"MAX_CONTRIBUTION_LENGTH" envDefault:"300"`
	MinContributionLength  int  `env:"MIN_CONTRIBUTION_LENGTH" envDefault:"1"`
	RecentWindowEntries    int  `env:"RECENT_WINDOW_ENTRIES" envDefault:"5"`
	PromptCharBudget       int  `env:"PROMPT_CHAR_BUDGET" envDefault:"4000"`
	WriteRetryAttempts     int  `env:"WRITE_RETRY_ATTEMPTS" envDefault:"3"`
	EnforceTurnAlternation bool `env:"ENFORCE_TURN_ALTERNATION" envDefault:"false"`

	StoryWebhookURL       string `env:"STORY_WEBHOOK_URL"`
	GoogleCredentialsJSON string `env:"GOOGLE_CREDENTIALS_JSON"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                    raw.Env,
		DiscordToken:           raw.DiscordToken,
		DiscordGuildID:         raw.DiscordGuildID,
		OpenAIAPIKey:           raw.OpenAIAPIKey,
		OpenAIBaseURL:          raw.OpenAIBaseURL,
		OpenAIModel:            raw.OpenAIModel,
		GenerationTimeoutSec:   raw.GenerationTimeoutSec,
		GenerationMaxRetries:   raw.GenerationMaxRetries,
		StoreBackend:           raw.StoreBackend,
		DatabaseURL:            raw.DatabaseURL,
		RedisURL:               raw.RedisURL,
		MaxContributionLength:  raw.MaxContributionLength,
		MinContributionLength:  raw.MinContributionLength,
		RecentWindowEntries:    raw.RecentWindowEntries,
		PromptCharBudget:       raw.PromptCharBudget,
		WriteRetryAttempts:     raw.WriteRetryAttempts,
		EnforceTurnAlternation: raw.EnforceTurnAlternation,
		StoryWebhookURL:        raw.StoryWebhookURL,
		GoogleCredentialsJSON:  raw.GoogleCredentialsJSON,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
