package soruengine

import (
	"regexp"
	"strings"
)

// Text metrics used by the validators. All functions are Unicode-aware so
// Turkish characters count as word characters.

var (
	wordRe      = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	sentSplitRe = regexp.MustCompile(`[.!?]+`)
	sentBoundRe = regexp.MustCompile(`([.!?]+)\s+`)
	wsRe        = regexp.MustCompile(`\s+`)
	uTagRe      = regexp.MustCompile(`(?is)\[u\](.*?)\[/u\]`)
)

// WordCount counts maximal runs of word characters. Empty input counts 0.
func WordCount(s string) int {
	if s == "" {
		return 0
	}
	return len(wordRe.FindAllString(s, -1))
}

// SentenceCount splits on runs of sentence punctuation and counts non-empty
// trimmed fragments. A rough counter, but a sufficient baseline for Turkish.
func SentenceCount(s string) int {
	if s == "" {
		return 0
	}
	n := 0
	for _, p := range sentSplitRe.Split(s, -1) {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}

// SplitSentences splits text into trimmed sentences, keeping terminal
// punctuation with each sentence.
func SplitSentences(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	// insert a hard break after sentence-final punctuation, then split
	marked := sentBoundRe.ReplaceAllString(s, "$1\x00")
	var out []string
	for _, p := range strings.Split(marked, "\x00") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// HasRepetitionLoop flags degenerate generations where a block of window
// consecutive sentences repeats immediately after itself.
func HasRepetitionLoop(s string, window int) bool {
	if s == "" || window < 1 {
		return false
	}
	sentences := SplitSentences(s)
	if len(sentences) < 4 {
		return false
	}
	for i := 0; i+2*window <= len(sentences); i++ {
		block := sentences[i : i+window]
		next := sentences[i+window : i+2*window]
		same := true
		for j := range block {
			if block[j] != next[j] {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}

// ExtractHighlightSpans returns every span marked with [u]...[/u], in order.
func ExtractHighlightSpans(s string) []string {
	if s == "" {
		return nil
	}
	var spans []string
	for _, m := range uTagRe.FindAllStringSubmatch(s, -1) {
		if span := strings.TrimSpace(m[1]); span != "" {
			spans = append(spans, span)
		}
	}
	return spans
}

// NormalizeWhitespace collapses whitespace runs to single spaces and trims.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(wsRe.ReplaceAllString(s, " "))
}

var nonWordRe = regexp.MustCompile(`[^\p{L}\p{N} ]+`)

// NormalizeForComparison lowercases, collapses whitespace and strips
// punctuation. Idempotent: applying it twice equals applying it once.
func NormalizeForComparison(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = wsRe.ReplaceAllString(s, " ")
	s = nonWordRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// HasRepetitionSignals is the stricter looping check the hard validator runs
// on stems and body text. It fires on any of:
//   - the same sentence repeated back to back
//   - a repeat within the last three sentences
//   - any sentence occurring three or more times
func HasRepetitionSignals(s string) bool {
	sentences := SplitSentences(s)
	if len(sentences) < 3 {
		return false
	}
	norm := make([]string, 0, len(sentences))
	for _, sent := range sentences {
		norm = append(norm, NormalizeForComparison(sent))
	}

	for i := 1; i < len(norm); i++ {
		if norm[i] != "" && norm[i] == norm[i-1] {
			return true
		}
	}

	tail := norm[len(norm)-3:]
	seen := map[string]bool{}
	for _, t := range tail {
		if seen[t] {
			return true
		}
		seen[t] = true
	}

	freq := map[string]int{}
	for _, n := range norm {
		if n == "" {
			continue
		}
		freq[n]++
		if freq[n] >= 3 {
			return true
		}
	}
	return false
}

// HighlightAppearsInText reports whether highlight occurs in text, either as
// one of the [u]-marked spans or verbatim in the plain text. Comparison is
// exact after whitespace normalization; no fuzzy matching.
func HighlightAppearsInText(text, highlight string) bool {
	if highlight == "" {
		return false
	}
	t := NormalizeWhitespace(text)
	h := NormalizeWhitespace(highlight)
	if t == "" || h == "" {
		return false
	}
	for _, span := range ExtractHighlightSpans(t) {
		if NormalizeWhitespace(span) == h {
			return true
		}
	}
	return strings.Contains(t, h)
}
