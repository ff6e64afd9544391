package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govmatch/docanalysis/internal/models"
)

func TestResolvePrefersFile(t *testing.T) {
	resolver := NewContentResolver(
		&fakeBlobs{data: []byte("%PDF")},
		&fakeExtractor{success: true, text: "extracted from file"},
	)
	doc := &models.Document{
		ID:            "doc-1",
		FilePath:      "doc.pdf",
		MimeType:      "application/pdf",
		ExtractedText: "stale cached text",
	}

	content, err := resolver.Resolve(context.Background(), doc, ContentHints{HasFile: true})
	require.NoError(t, err)
	assert.Equal(t, "extracted from file", content.Text)
	assert.Equal(t, "file", content.Source)
}

func TestResolveFileFailureFallsBackToEditor(t *testing.T) {
	resolver := NewContentResolver(
		&fakeBlobs{err: errors.New("blob gone")},
		&fakeExtractor{},
	)
	doc := &models.Document{
		ID:       "doc-1",
		FilePath: "doc.pdf",
		Content: &models.ContentPayload{
			Sections: []models.Section{
				{Title: "Overview", Content: "First part.", Order: 0},
				{Title: "Details", Content: "Second part.", Order: 1},
			},
		},
	}

	content, err := resolver.Resolve(context.Background(), doc, ContentHints{HasFile: true, HasEditorContent: true})
	require.NoError(t, err)
	assert.Equal(t, "editor", content.Source)
	assert.Equal(t, "Overview\nFirst part.\n\nDetails\nSecond part.", content.Text)
	assert.Len(t, content.Sections, 2)
}

func TestResolveEditorExtractedText(t *testing.T) {
	resolver := NewContentResolver(&fakeBlobs{}, &fakeExtractor{})
	doc := &models.Document{
		ID:      "doc-1",
		Content: &models.ContentPayload{ExtractedText: "editor-held text"},
	}

	content, err := resolver.Resolve(context.Background(), doc, ContentHints{HasEditorContent: true})
	require.NoError(t, err)
	assert.Equal(t, "editor", content.Source)
	assert.Equal(t, "editor-held text", content.Text)
}

func TestResolveCachedTextVerbatim(t *testing.T) {
	resolver := NewContentResolver(&fakeBlobs{}, &fakeExtractor{})
	doc := &models.Document{ID: "doc-1", ExtractedText: "  cached, with padding  "}

	content, err := resolver.Resolve(context.Background(), doc, ContentHints{})
	require.NoError(t, err)
	assert.Equal(t, "extracted", content.Source)
	// The cached text is used exactly as stored.
	assert.Equal(t, "  cached, with padding  ", content.Text)
}

func TestResolveNothingAvailable(t *testing.T) {
	resolver := NewContentResolver(&fakeBlobs{}, &fakeExtractor{})
	doc := &models.Document{ID: "doc-1", ExtractedText: "   "}

	_, err := resolver.Resolve(context.Background(), doc, ContentHints{HasFile: false, HasEditorContent: false})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrContentUnavailable)
}

func TestResolveIsIdempotent(t *testing.T) {
	resolver := NewContentResolver(&fakeBlobs{}, &fakeExtractor{})
	doc := &models.Document{ID: "doc-1", ExtractedText: "stable text"}

	first, err := resolver.Resolve(context.Background(), doc, ContentHints{})
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), doc, ContentHints{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
