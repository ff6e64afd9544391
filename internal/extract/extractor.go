package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Metadata describes the extracted source.
type Metadata struct {
	MimeType  string `json:"mimeType"`
	PageCount int    `json:"pageCount,omitempty"`
	Extractor string `json:"extractor"`
}

// Result is the outcome of a text extraction attempt.
type Result struct {
	Success  bool     `json:"success"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Extractor converts uploaded file bytes into plain text per mime type.
type Extractor struct {
	// PdftotextBin overrides the pdftotext binary path; empty uses PATH lookup.
	PdftotextBin string
}

// New returns an Extractor with default tool paths.
func New() *Extractor {
	return &Extractor{}
}

var textMimeTypes = map[string]bool{
	"text/plain":       true,
	"text/markdown":    true,
	"text/csv":         true,
	"text/html":        true,
	"application/json": true,
}

// Extract produces plain text from the given file content. Unsupported or
// undecodable input returns an error so callers can fall through to another
// content source.
func (e *Extractor) Extract(ctx context.Context, data []byte, mimeType string) (Result, error) {
	base := mimeType
	if i := strings.Index(base, ";"); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}

	switch {
	case textMimeTypes[base] || strings.HasPrefix(base, "text/"):
		if !utf8.Valid(data) {
			return Result{}, fmt.Errorf("file claims %s but is not valid UTF-8", base)
		}
		return Result{
			Success:  true,
			Text:     string(data),
			Metadata: Metadata{MimeType: base, Extractor: "passthrough"},
		}, nil
	case base == "application/pdf":
		return e.extractPDF(ctx, data)
	default:
		return Result{}, fmt.Errorf("unsupported mime type %q", base)
	}
}

// extractPDF validates and optimizes the PDF with pdfcpu, then extracts text
// with pdftotext. Optimization repairs the malformed files that show up in
// real uploads before the text pass runs.
func (e *Extractor) extractPDF(ctx context.Context, data []byte) (Result, error) {
	tmpDir, err := os.MkdirTemp("", "docanalysis-extract-*")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	sourcePath := filepath.Join(tmpDir, "source.pdf")
	if err := os.WriteFile(sourcePath, data, 0o600); err != nil {
		return Result{}, fmt.Errorf("failed to write temp PDF: %w", err)
	}

	optimizedPath := filepath.Join(tmpDir, "optimized.pdf")
	if err := optimizePDF(sourcePath, optimizedPath); err != nil {
		return Result{}, fmt.Errorf("failed to validate/optimize PDF: %w", err)
	}

	pageCount, err := api.PageCountFile(optimizedPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to get page count: %w", err)
	}

	text, err := e.runPdftotext(ctx, optimizedPath)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Success: true,
		Text:    cleanText(text),
		Metadata: Metadata{
			MimeType:  "application/pdf",
			PageCount: pageCount,
			Extractor: "pdftotext",
		},
	}, nil
}

func (e *Extractor) runPdftotext(ctx context.Context, pdfPath string) (string, error) {
	bin := e.PdftotextBin
	if bin == "" {
		bin = "pdftotext"
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-layout", pdfPath, "-")
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	return out.String(), nil
}

func optimizePDF(inPath, outPath string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return api.OptimizeFile(inPath, outPath, cfg)
}

// cleanText collapses control characters and page-break artifacts left by
// PDF extraction.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\f", "\n\n")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' || r >= 0x20 {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
