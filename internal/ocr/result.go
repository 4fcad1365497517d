package ocr

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// The result schema is not fixed across service versions. Shapes are tried
// in a fixed priority order and the first structurally valid match wins; an
// unknown shape degrades to the stringified payload rather than an error.
type pollResponse struct {
	Status string `json:"status"`

	Results   []pageTranscript `json:"results"`
	Documents []documentEntry  `json:"documents"`

	Transcript string `json:"transcript"`
	Value      string `json:"value"`
	Text       string `json:"text"`
}

type pageTranscript struct {
	PageNumber int    `json:"page_number"`
	Transcript string `json:"transcript"`
}

type documentEntry struct {
	Data []documentPage `json:"data"`
}

type documentPage struct {
	PageNumber int    `json:"page_number"`
	Content    string `json:"content"`
}

func extractTranscript(body []byte) string {
	var response pollResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return string(body)
	}

	if len(response.Results) > 0 {
		pages := make([]string, 0, len(response.Results))
		for _, page := range response.Results {
			pages = append(pages, fmt.Sprintf("--- Page %d ---\n%s", page.PageNumber, page.Transcript))
		}
		return strings.Join(pages, "\n\n")
	}

	if len(response.Documents) > 0 {
		var pages []string
		for _, document := range response.Documents {
			for _, page := range document.Data {
				pages = append(pages, fmt.Sprintf("--- Page %d ---\n%s", page.PageNumber, cleanTranscript(page.Content)))
			}
		}
		if len(pages) > 0 {
			return strings.Join(pages, "\n\n")
		}
	}

	for _, flat := range []string{response.Transcript, response.Value, response.Text} {
		if flat != "" {
			return flat
		}
	}

	return string(body)
}

var (
	sentenceBreakRe = regexp.MustCompile(`([.!?])[ \t]+`)
	blankLinesRe    = regexp.MustCompile(`\n{3,}`)

	scriptDigits = strings.NewReplacer(
		"⁰", "0", "¹", "1", "²", "2", "³", "3", "⁴", "4",
		"⁵", "5", "⁶", "6", "⁷", "7", "⁸", "8", "⁹", "9",
		"₀", "0", "₁", "1", "₂", "2", "₃", "3", "₄", "4",
		"₅", "5", "₆", "6", "₇", "7", "₈", "8", "₉", "9",
	)
)

// cleanTranscript normalizes the quirks of the nested document shape:
// sub/superscript digits become plain digits, sentence-ending punctuation
// starts a new line, and runs of blank lines collapse.
func cleanTranscript(content string) string {
	content = scriptDigits.Replace(content)
	content = sentenceBreakRe.ReplaceAllString(content, "$1\n")
	content = blankLinesRe.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
