package core

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

const (
	samplePages        = 2
	sampleCharsPerPage = 500
)

// Transcriber is the OCR fallback. Implementations are best-effort and
// report failure as an empty transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, filePath string) string
}

// ExtractionResult is produced once per submission file and immutable
// thereafter.
type ExtractionResult struct {
	Text            string
	UsedOcr         bool
	SourcePageCount int
}

// Extractor turns a PDF into plain text: direct extraction first, OCR when
// the probes say the document is scanned or the direct text is unusable.
// Extract never fails; the worst case is a descriptive placeholder so
// downstream scoring always receives input.
type Extractor struct {
	ocr      Transcriber
	analyzer *QualityAnalyzer
	decider  DeciderConfig
}

func NewExtractor(ocr Transcriber, analyzer *QualityAnalyzer, decider DeciderConfig) *Extractor {
	return &Extractor{ocr: ocr, analyzer: analyzer, decider: decider}
}

func (e *Extractor) Extract(ctx context.Context, filePath string) ExtractionResult {
	pages := extractPages(filePath)
	direct := joinPages(pages)
	sample := sampleFromPages(pages)

	signals := ExtractionSignals{
		Coverage:       TextCoverage(filePath),
		GarbledRatio:   e.analyzer.GarbledRatio(sample),
		ValidWordRatio: e.analyzer.ValidWordRatio(sample),
		SampleLength:   len([]rune(sample)),
		PageCount:      len(pages),
		HasDictionary:  e.analyzer.HasDictionary(),
	}

	if strings.TrimSpace(direct) != "" && !ShouldUseOcr(e.decider, signals) {
		return ExtractionResult{Text: direct, UsedOcr: false, SourcePageCount: len(pages)}
	}

	slog.Info("direct extraction insufficient, falling back to ocr",
		"file", filePath,
		"coverage", signals.Coverage,
		"garbled_ratio", signals.GarbledRatio,
		"valid_word_ratio", signals.ValidWordRatio,
		"sample_length", signals.SampleLength,
		"page_count", signals.PageCount)

	// One upload and one poll loop for the whole document, never per page.
	if ocrText := e.ocr.Transcribe(ctx, filePath); strings.TrimSpace(ocrText) != "" {
		return ExtractionResult{Text: ocrText, UsedOcr: true, SourcePageCount: len(pages)}
	}

	return ExtractionResult{
		Text: fmt.Sprintf(
			"[Text extraction failed for %s. The document may be empty, corrupted, or in an unsupported format.]",
			filepath.Base(filePath)),
		UsedOcr:         true,
		SourcePageCount: len(pages),
	}
}

// extractPages reads the per-page text of a PDF. A single page's failure is
// logged and skipped; a document that cannot be opened yields no pages.
// Either way the caller falls through to OCR instead of seeing an error.
func extractPages(filePath string) []string {
	doc, err := fitz.New(filePath)
	if err != nil {
		slog.Warn("could not open document for direct extraction", "file", filePath, "error", err)
		return nil
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			slog.Warn("skipping unreadable page", "file", filePath, "page", i, "error", err)
			continue
		}
		pages = append(pages, pageText)
	}
	return pages
}

func joinPages(pages []string) string {
	parts := make([]string, 0, len(pages))
	for i, page := range pages {
		parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", i+1, page))
	}
	return strings.Join(parts, "\n\n")
}

// sampleFromPages takes at most the first two pages, at most 500 characters
// each, as the probe sample for the lexical quality signals.
func sampleFromPages(pages []string) string {
	parts := make([]string, 0, samplePages)
	for _, page := range pages[:min(samplePages, len(pages))] {
		runes := []rune(page)
		parts = append(parts, string(runes[:min(sampleCharsPerPage, len(runes))]))
	}
	return strings.Join(parts, "\n")
}
