package export

import (
	"context"
	"errors"

	"github.com/inkfable/storyweave/internal/repository"
)

// ErrUnavailable means no export backend is configured.
var ErrUnavailable = errors.New("story export is not configured")

// Exporter publishes a finished story session to an external document and
// returns its URL.
type Exporter interface {
	ExportStory(ctx context.Context, s *repository.Session) (string, error)
}
