// Package textqual scores candidate text for article-likeness. The gate is a
// set of fixed lexical thresholds; it never looks at meaning.
package textqual

import (
	"regexp"
	"strings"
)

// Failure reasons reported when the gate does not pass.
const (
	ReasonLowWordCount     = "low_word_count"
	ReasonShortParagraphs  = "short_paragraphs"
	ReasonDuplicateLines   = "duplicate_lines"
	ReasonBoilerplateHeavy = "boilerplate_heavy"
)

// Gate thresholds. All four must hold for text to pass.
const (
	minWordCount      = 200
	minParagraphChars = 100
	maxLineDupRatio   = 0.35
	maxBoilerplate    = 0.4
)

// boilerplateHints are matched case-insensitively per line; lines containing
// any of them count toward the boilerplate ratio.
var boilerplateHints = []string{
	"cookie",
	"subscribe",
	"subscription",
	"sign in",
	"log in",
	"register",
	"advertisement",
	"privacy policy",
	"terms of service",
	"consent",
	"newsletter",
	"accept all",
}

var (
	trailingWS = regexp.MustCompile(`(?m)[ \t]+$`)
	paraSplit  = regexp.MustCompile(`\n\s*\n`)
	lineSplit  = regexp.MustCompile(`\n+`)
	wordToken  = regexp.MustCompile(`[\p{L}\p{N}']+`)
)

// Report carries the metrics behind a pass/fail decision. Reasons lists the
// thresholds that failed, for the attempt log.
type Report struct {
	Normalized        string
	WordCount         int
	MaxParagraphChars int
	LineDupRatio      float64
	BoilerplateRatio  float64
	Passes            bool
	Reasons           []string
}

// Normalize strips carriage returns, turns tabs into single spaces, trims
// trailing whitespace per line and trims the whole text.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.ReplaceAll(text, "\t", " ")
	text = trailingWS.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Paragraphs splits normalized text into segments separated by blank lines.
func Paragraphs(text string) []string {
	var paras []string
	for _, p := range paraSplit.Split(Normalize(text), -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// WordCount counts Unicode letter/number/apostrophe tokens.
func WordCount(text string) int {
	return len(wordToken.FindAllString(Normalize(text), -1))
}

// Evaluate scores text against the quality gate.
func Evaluate(text string) Report {
	normalized := Normalize(text)
	paragraphs := Paragraphs(normalized)

	maxPara := 0
	for _, p := range paragraphs {
		if len(p) > maxPara {
			maxPara = len(p)
		}
	}

	var lines []string
	for _, line := range lineSplit.Split(normalized, -1) {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	counts := make(map[string]int, len(lines))
	for _, line := range lines {
		counts[line]++
	}
	duplicates := 0
	for _, c := range counts {
		if c > 1 {
			duplicates++
		}
	}
	lineDupRatio := 0.0
	if len(lines) > 0 {
		lineDupRatio = float64(duplicates) / float64(len(lines))
	}

	boilerplate := 0
	for _, line := range lines {
		lower := strings.ToLower(line)
		for _, hint := range boilerplateHints {
			if strings.Contains(lower, hint) {
				boilerplate++
				break
			}
		}
	}
	boilerplateRatio := 0.0
	if len(lines) > 0 {
		boilerplateRatio = float64(boilerplate) / float64(len(lines))
	}

	wc := WordCount(normalized)

	var reasons []string
	if wc < minWordCount {
		reasons = append(reasons, ReasonLowWordCount)
	}
	if maxPara < minParagraphChars {
		reasons = append(reasons, ReasonShortParagraphs)
	}
	if lineDupRatio > maxLineDupRatio {
		reasons = append(reasons, ReasonDuplicateLines)
	}
	if boilerplateRatio > maxBoilerplate {
		reasons = append(reasons, ReasonBoilerplateHeavy)
	}

	return Report{
		Normalized:        normalized,
		WordCount:         wc,
		MaxParagraphChars: maxPara,
		LineDupRatio:      lineDupRatio,
		BoilerplateRatio:  boilerplateRatio,
		Passes:            len(reasons) == 0,
		Reasons:           reasons,
	}
}
