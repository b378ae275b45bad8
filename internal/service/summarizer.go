package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"github.com/arturoeanton/docintel/internal/port"
)

const (
	summaryInputChars = 4000
	summarySentences  = 3
	maxKeywords       = 10
)

const summaryPrompt = `You summarize documents. Reply with a concise summary of at most five sentences,
in the language of the document, without preamble.`

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true, "not": true,
	"you": true, "all": true, "any": true, "can": true, "had": true, "her": true,
	"was": true, "one": true, "our": true, "out": true, "has": true, "have": true,
	"him": true, "his": true, "how": true, "its": true, "may": true, "new": true,
	"now": true, "old": true, "see": true, "two": true, "who": true, "did": true,
	"this": true, "that": true, "with": true, "from": true, "they": true, "will": true,
	"would": true, "there": true, "their": true, "what": true, "about": true, "which": true,
	"when": true, "were": true, "been": true, "into": true, "than": true, "then": true,
	"them": true, "these": true, "some": true, "such": true, "only": true, "also": true,
	"other": true, "more": true, "most": true, "very": true, "each": true, "where": true,
	"should": true, "could": true, "your": true, "shall": true, "being": true, "does": true,
	"los": true, "las": true, "del": true, "una": true, "por": true, "para": true,
	"con": true, "que": true, "como": true, "pero": true, "sus": true, "este": true,
	"esta": true, "son": true, "entre": true, "sobre": true,
}

// Summarizer produces summaries and keywords for extracted text.
type Summarizer struct {
	chat port.ChatProvider
}

// NewSummarizer creates a summarizer. A nil chat provider always yields
// extractive summaries.
func NewSummarizer(chat port.ChatProvider) *Summarizer {
	return &Summarizer{chat: chat}
}

// Summarize asks the chat model for a summary of the start of the text and
// falls back to its first sentences when the model is unavailable.
func (s *Summarizer) Summarize(ctx context.Context, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	if s.chat != nil {
		summary, err := s.chat.Chat(ctx, summaryPrompt, truncateRunes(text, summaryInputChars), nil)
		if err == nil && strings.TrimSpace(summary) != "" {
			return strings.TrimSpace(summary)
		}
		slog.Warn("chat summary failed, using extractive summary", "error", err)
	}
	return extractiveSummary(text, summarySentences)
}

// Keywords returns up to ten frequent terms, most frequent first with ties
// in alphabetical order.
func (s *Summarizer) Keywords(text string) []string {
	counts := make(map[string]int)
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(word)) < 3 || stopWords[word] || isNumber(word) {
			continue
		}
		counts[word]++
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > maxKeywords {
		words = words[:maxKeywords]
	}
	return words
}

func extractiveSummary(text string, n int) string {
	runes := []rune(text)
	var sentences []string
	start := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.Join(strings.Fields(string(runes[start:i+1])), " "); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
		if len(sentences) == n {
			break
		}
	}

	if len(sentences) == 0 {
		return strings.Join(strings.Fields(truncateRunes(text, 300)), " ")
	}
	return strings.Join(sentences, " ")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
