package core

import (
	"log/slog"
	"regexp"
	"strconv"

	"github.com/gen2brain/go-fitz"
)

// Coverage ratio returned when the document cannot be probed at all. The
// decision step must never hard-fail because the probe failed, so an
// unreadable file gets a neutral value instead of an error.
const neutralCoverage = 0.5

// Average glyph advance relative to font size, used to estimate the width
// of a rendered text line from its character count.
const glyphAdvanceEm = 0.5

var (
	pageStyleRe = regexp.MustCompile(`<div[^>]*style="[^"]*width:([0-9.]+)pt;height:([0-9.]+)pt`)
	paraStyleRe = regexp.MustCompile(`(?s)<p[^>]*style="[^"]*line-height:([0-9.]+)pt"[^>]*>(.*?)</p>`)
	fontSizeRe  = regexp.MustCompile(`font-size:([0-9.]+)pt`)
	htmlTagRe   = regexp.MustCompile(`<[^>]+>`)
)

// TextCoverage computes the fraction of the document's page area covered by
// text blocks, using the structured-text layout MuPDF reports for each
// page. A document with no measurable page area yields 0.0; a document that
// cannot be opened yields the neutral default.
func TextCoverage(filePath string) float64 {
	doc, err := fitz.New(filePath)
	if err != nil {
		slog.Warn("coverage probe could not open document", "file", filePath, "error", err)
		return neutralCoverage
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		html, err := doc.HTML(i, true)
		if err != nil {
			slog.Warn("coverage probe could not read page layout", "file", filePath, "page", i, "error", err)
			return neutralCoverage
		}
		pages = append(pages, html)
	}

	return coverageFromPages(pages)
}

func coverageFromPages(pages []string) float64 {
	var totalPageArea, totalTextArea float64
	for _, page := range pages {
		pageArea, textArea := pageGeometry(page)
		totalPageArea += pageArea
		totalTextArea += textArea
	}

	if totalPageArea <= 0 {
		return 0.0
	}
	return clip(totalTextArea / totalPageArea)
}

// pageGeometry sums the page area and the estimated bounding-rectangle area
// of every text line on the page. MuPDF's HTML rendering gives each line an
// absolute position and line height; the width is estimated from the visible
// character count and font size.
func pageGeometry(pageHTML string) (pageArea, textArea float64) {
	if m := pageStyleRe.FindStringSubmatch(pageHTML); m != nil {
		pageArea = parsePt(m[1]) * parsePt(m[2])
	}

	for _, m := range paraStyleRe.FindAllStringSubmatch(pageHTML, -1) {
		lineHeight := parsePt(m[1])
		content := m[2]

		fontSize := lineHeight
		if fm := fontSizeRe.FindStringSubmatch(content); fm != nil {
			fontSize = parsePt(fm[1])
		}

		visible := []rune(htmlTagRe.ReplaceAllString(content, ""))
		textArea += lineHeight * fontSize * glyphAdvanceEm * float64(len(visible))
	}

	return pageArea, textArea
}

func parsePt(value string) float64 {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return parsed
}
