package export

import (
	"context"
	"log/slog"
	"time"

	"github.com/inkfable/storyweave/internal/config"
	exportpkg "github.com/inkfable/storyweave/internal/export"
	"github.com/samber/do/v2"
)

const exporterInitTimeout = 15 * time.Second

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (exportpkg.Exporter, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.GoogleCredentialsJSON == "" {
			slog.Warn("google credentials not configured; story export is disabled")
			return disabledExporter{}, nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), exporterInitTimeout)
		defer cancel()
		return NewGoogleDocsExporter(ctx, cfg.GoogleCredentialsJSON)
	})
}
