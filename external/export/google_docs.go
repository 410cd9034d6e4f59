package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	exportpkg "github.com/inkfable/storyweave/internal/export"
	"github.com/inkfable/storyweave/internal/repository"
	docs "google.golang.org/api/docs/v1"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// GoogleDocsExporter publishes finished stories as Google Docs shared by
// link.
type GoogleDocsExporter struct {
	docsService  *docs.Service
	driveService *drive.Service
}

func NewGoogleDocsExporter(ctx context.Context, credentialsJSON string) (*GoogleDocsExporter, error) {
	creds := []byte(credentialsJSON)
	docsService, err := docs.NewService(ctx,
		option.WithCredentialsJSON(creds),
		option.WithScopes(docs.DocumentsScope, drive.DriveFileScope))
	if err != nil {
		return nil, fmt.Errorf("create docs service: %w", err)
	}
	driveService, err := drive.NewService(ctx,
		option.WithCredentialsJSON(creds),
		option.WithScopes(drive.DriveFileScope))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &GoogleDocsExporter{docsService: docsService, driveService: driveService}, nil
}

func (e *GoogleDocsExporter) ExportStory(ctx context.Context, s *repository.Session) (string, error) {
	title := s.Title
	if title == "" {
		title = "Untitled Story"
	}
	doc, err := e.docsService.Documents.Create(&docs.Document{Title: title}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create document: %w", err)
	}

	body := renderStoryText(s)
	_, err = e.docsService.Documents.BatchUpdate(doc.DocumentId, &docs.BatchUpdateDocumentRequest{
		Requests: []*docs.Request{{
			InsertText: &docs.InsertTextRequest{
				Location: &docs.Location{Index: 1},
				Text:     body,
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("write document body: %w", err)
	}

	// Share by link so everyone in the channel can read the export.
	_, err = e.driveService.Permissions.Create(doc.DocumentId, &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}).Context(ctx).Do()
	if err != nil {
		slog.Warn("failed to set link sharing on exported document", "document_id", doc.DocumentId, "error", err)
	}

	return "https://docs.google.com/document/d/" + doc.DocumentId + "/edit", nil
}

func renderStoryText(s *repository.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Started: %s\n", s.StartedAt.Format("2006-01-02"))
	if s.EndedAt != nil {
		fmt.Fprintf(&b, "Completed: %s\n", s.EndedAt.Format("2006-01-02"))
	}
	if s.Genre != "" {
		fmt.Fprintf(&b, "Genre: %s\n", s.Genre)
	}
	authors := make([]string, 0, len(s.Entries))
	seen := make(map[string]struct{})
	for _, e := range s.Entries {
		if _, ok := seen[e.AuthorName]; ok {
			continue
		}
		seen[e.AuthorName] = struct{}{}
		authors = append(authors, e.AuthorName)
	}
	fmt.Fprintf(&b, "Authors: %s\n\n", strings.Join(authors, ", "))
	for _, e := range s.Entries {
		fmt.Fprintf(&b, "%s: %s\n", e.AuthorName, e.Text)
	}
	return b.String()
}

// disabledExporter answers every export with ErrUnavailable. Installed when
// no Google credentials are configured.
type disabledExporter struct{}

func (disabledExporter) ExportStory(context.Context, *repository.Session) (string, error) {
	return "", exportpkg.ErrUnavailable
}
