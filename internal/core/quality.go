package core

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"
)

// Samples shorter than this carry too little signal to trust, they are
// treated as fully garbled.
const minSampleChars = 10

var (
	// Characters outside the whitelist of word, space, and basic punctuation
	// characters are a strong OCR-noise indicator.
	garbledCharRe  = regexp.MustCompile(`[^\p{L}\p{N}\s.,;:!?'"()\-]`)
	consonantRunRe = regexp.MustCompile(`(?i)[bcdfghjklmnpqrstvwxz]{4,}`)
	alphaTokenRe   = regexp.MustCompile(`[a-zA-Z]{2,}`)
)

// QualityAnalyzer scores how much a text sample looks like real language
// versus extraction noise. The reference word set is read-only after load,
// so a single analyzer is safe to share across tasks.
type QualityAnalyzer struct {
	words map[string]struct{}
}

func NewQualityAnalyzer(words map[string]struct{}) *QualityAnalyzer {
	return &QualityAnalyzer{words: words}
}

// LoadWordSet reads a newline-delimited word list into a case-folded set.
func LoadWordSet(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening word list %s: %w", path, err)
	}
	defer f.Close()

	words := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if word != "" {
			words[word] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading word list %s: %w", path, err)
	}

	return words, nil
}

func (a *QualityAnalyzer) HasDictionary() bool {
	return len(a.words) > 0
}

// GarbledRatio estimates how much of the sample is OCR noise rather than
// real language, as a weighted combination of four indicator ratios, each
// clipped to [0,1].
func (a *QualityAnalyzer) GarbledRatio(sample string) float64 {
	runes := []rune(sample)
	if len(runes) < minSampleChars {
		return 1.0
	}

	charCount := float64(len(runes))
	words := strings.Fields(sample)
	wordCount := float64(max(len(words), 1))

	badChars := float64(len(garbledCharRe.FindAllString(sample, -1)))
	consonantRuns := float64(len(consonantRunRe.FindAllString(sample, -1)))

	singleLetters := 0
	for _, word := range words {
		trimmed := strings.TrimFunc(word, unicode.IsPunct)
		wordRunes := []rune(trimmed)
		if len(wordRunes) == 1 && unicode.IsLetter(wordRunes[0]) {
			singleLetters++
		}
	}

	combiningMarks := 0
	for _, r := range sample {
		if unicode.Is(unicode.Mn, r) {
			combiningMarks++
		}
	}

	score := (clip(badChars/charCount*5) +
		clip(consonantRuns/wordCount*3) +
		clip(float64(singleLetters)/wordCount*2) +
		clip(float64(combiningMarks)/charCount*10)) / 4

	return clip(score)
}

// ValidWordRatio is the fraction of alphabetic tokens present in the
// reference word set, or 0.0 when the sample has no tokens.
func (a *QualityAnalyzer) ValidWordRatio(sample string) float64 {
	tokens := alphaTokenRe.FindAllString(sample, -1)
	if len(tokens) == 0 {
		return 0.0
	}

	valid := 0
	for _, token := range tokens {
		if _, ok := a.words[strings.ToLower(token)]; ok {
			valid++
		}
	}
	return float64(valid) / float64(len(tokens))
}

func clip(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
