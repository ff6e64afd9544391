package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/govmatch/docanalysis/internal/models"
)

// ContentHints tells the resolver which sources the caller believes exist.
type ContentHints struct {
	HasFile          bool
	HasEditorContent bool
}

// ResolvedContent is the normalized text payload for a pipeline run.
type ResolvedContent struct {
	Text     string
	Sections []models.Section
	Source   string // "file", "editor", or "extracted"
}

// ContentResolver determines the source of truth for a document's raw text:
// the original file re-fetched from blob storage, structured editor content,
// or the cached extractedText field. First non-empty source wins.
type ContentResolver struct {
	blobs     BlobStore
	extractor TextExtractor
}

// NewContentResolver builds a resolver over the given blob store and extractor.
func NewContentResolver(blobs BlobStore, extractor TextExtractor) *ContentResolver {
	return &ContentResolver{blobs: blobs, extractor: extractor}
}

// Resolve produces the text payload for a document. It has no side effects
// beyond the blob read. Fails with ErrContentUnavailable when every source
// comes up empty.
func (r *ContentResolver) Resolve(ctx context.Context, doc *models.Document, hints ContentHints) (ResolvedContent, error) {
	logCtx := slog.With("documentId", doc.ID)

	// Source 1: re-fetch and extract the original file. Any failure here
	// falls through to the next source rather than aborting the run.
	if hints.HasFile && doc.FilePath != "" {
		text, err := r.fromFile(ctx, doc)
		if err != nil {
			logCtx.Warn("File extraction failed, falling back to stored content.", "error", err)
		} else if strings.TrimSpace(text) != "" {
			return ResolvedContent{Text: text, Source: "file"}, nil
		}
	}

	// Source 2: structured editor content.
	if hints.HasEditorContent && doc.Content != nil {
		if len(doc.Content.Sections) > 0 {
			var b strings.Builder
			for _, section := range doc.Content.Sections {
				b.WriteString(section.Title)
				b.WriteString("\n")
				b.WriteString(section.Content)
				b.WriteString("\n\n")
			}
			text := strings.TrimSpace(b.String())
			if text != "" {
				return ResolvedContent{Text: text, Sections: doc.Content.Sections, Source: "editor"}, nil
			}
		}
		if strings.TrimSpace(doc.Content.ExtractedText) != "" {
			return ResolvedContent{Text: doc.Content.ExtractedText, Source: "editor"}, nil
		}
	}

	// Source 3: the cached extracted text, verbatim.
	if strings.TrimSpace(doc.ExtractedText) != "" {
		return ResolvedContent{Text: doc.ExtractedText, Source: "extracted"}, nil
	}

	return ResolvedContent{}, fmt.Errorf("document %s: %w", doc.ID, ErrContentUnavailable)
}

func (r *ContentResolver) fromFile(ctx context.Context, doc *models.Document) (string, error) {
	data, resolvedKey, err := r.blobs.Download(ctx, doc.FilePath, doc.OrganizationID)
	if err != nil {
		return "", err
	}
	slog.Debug("Downloaded original file.", "documentId", doc.ID, "key", resolvedKey, "bytes", len(data))

	result, err := r.extractor.Extract(ctx, data, doc.MimeType)
	if err != nil {
		return "", err
	}
	if !result.Success {
		return "", fmt.Errorf("extractor reported failure for %s", doc.FilePath)
	}
	return result.Text, nil
}
