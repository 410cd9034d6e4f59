package generator

import (
	"time"

	"github.com/inkfable/storyweave/internal/config"
	"github.com/inkfable/storyweave/internal/generator"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (generator.Generator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewOpenAIGateway(OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			Timeout:    time.Duration(cfg.GenerationTimeoutSec) * time.Second,
			MaxRetries: cfg.GenerationMaxRetries,
		})
	})
}
