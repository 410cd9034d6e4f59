package config

import "fmt"

const (
	StoreBackendMemory   = "memory"
	StoreBackendPostgres = "postgres"
	StoreBackendRedis    = "redis"
)

type Config struct {
	Env string

	DiscordToken   string
	DiscordGuildID string

	OpenAIAPIKey         string
	OpenAIBaseURL        string
	OpenAIModel          string
	GenerationTimeoutSec int
	GenerationMaxRetries int

	StoreBackend string
	DatabaseURL  string
	RedisURL     string

	MaxContributionLength  int
	MinContributionLength  int
	RecentWindowEntries    int
	PromptCharBudget       int
	WriteRetryAttempts     int
	EnforceTurnAlternation bool

	StoryWebhookURL       string
	GoogleCredentialsJSON string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	switch c.StoreBackend {
	case StoreBackendMemory:
	case StoreBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=%s", StoreBackendPostgres)
		}
	case StoreBackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORE_BACKEND=%s", StoreBackendRedis)
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of %s, %s, %s, got %q",
			StoreBackendMemory, StoreBackendPostgres, StoreBackendRedis, c.StoreBackend)
	}
	if c.GenerationTimeoutSec <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT_SEC must be positive, got %d", c.GenerationTimeoutSec)
	}
	if c.GenerationMaxRetries < 0 {
		return fmt.Errorf("GENERATION_MAX_RETRIES must not be negative, got %d", c.GenerationMaxRetries)
	}
	if c.MaxContributionLength <= 0 {
		return fmt.Errorf("MAX_CONTRIBUTION_LENGTH must be positive, got %d", c.MaxContributionLength)
	}
	if c.MinContributionLength <= 0 || c.MinContributionLength > c.MaxContributionLength {
		return fmt.Errorf("MIN_CONTRIBUTION_LENGTH must be within [1, MAX_CONTRIBUTION_LENGTH], got %d", c.MinContributionLength)
	}
	if c.RecentWindowEntries <= 0 {
		return fmt.Errorf("RECENT_WINDOW_ENTRIES must be positive, got %d", c.RecentWindowEntries)
	}
	if c.PromptCharBudget <= 0 {
		return fmt.Errorf("PROMPT_CHAR_BUDGET must be positive, got %d", c.PromptCharBudget)
	}
	if c.WriteRetryAttempts <= 0 {
		return fmt.Errorf("WRITE_RETRY_ATTEMPTS must be positive, got %d", c.WriteRetryAttempts)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "DISCORD_TOKEN", value: c.DiscordToken},
		{name: "OPENAI_API_KEY", value: c.OpenAIAPIKey},
		{name: "OPENAI_MODEL", value: c.OpenAIModel},
		{name: "STORE_BACKEND", value: c.StoreBackend},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
