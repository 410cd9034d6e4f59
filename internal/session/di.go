package session

import (
	"github.com/inkfable/storyweave/internal/config"
	"github.com/inkfable/storyweave/internal/discord"
	"github.com/inkfable/storyweave/internal/export"
	"github.com/inkfable/storyweave/internal/generator"
	"github.com/inkfable/storyweave/internal/repository"
	"github.com/inkfable/storyweave/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		gen := do.MustInvoke[generator.Generator](i)
		dc := do.MustInvoke[discord.Client](i)
		wh := do.MustInvoke[webhook.Sender](i)
		exp := do.MustInvoke[export.Exporter](i)
		return NewManager(cfg, repo, gen, dc, wh, exp), nil
	})
}
