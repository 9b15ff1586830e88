package soruengine

import (
	"strings"
	"unicode"
)

// HardValidator checks universal structural invariants that hold for every
// question type: required fields, a valid answer letter, four distinct
// non-empty choices, no degenerate repetition, no garbage output.
type HardValidator struct{}

// NewHardValidator creates a hard validator.
func NewHardValidator() *HardValidator {
	return &HardValidator{}
}

var validAnswers = map[string]bool{"A": true, "B": true, "C": true, "D": true}

// Validate checks one candidate. A missing required field is fatal and stops
// the run immediately (downstream checks assume presence); after that, all
// remaining errors are collected.
func (hv *HardValidator) Validate(c *Candidate) ValidationResult {
	var errs []string

	required := []struct {
		jsonKey string
		value   string
	}{
		{"soru", c.Stem},
		{"sik_a", c.ChoiceA},
		{"sik_b", c.ChoiceB},
		{"sik_c", c.ChoiceC},
		{"sik_d", c.ChoiceD},
		{"dogru_cevap", c.CorrectAnswer},
		{"question_type", c.QuestionType},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, MissingFieldError(f.jsonKey))
		}
	}
	if len(errs) > 0 {
		return ValidationResult{OK: false, Score: 0, Errors: errs}
	}

	if !validAnswers[strings.ToUpper(strings.TrimSpace(c.CorrectAnswer))] {
		errs = append(errs, ErrInvalidAnswerLetter)
	}

	seen := map[string]bool{}
	distinct := 0
	for _, choice := range c.Choices() {
		norm := NormalizeForComparison(choice)
		if !seen[norm] {
			seen[norm] = true
			distinct++
		}
	}
	if distinct < 4 {
		errs = append(errs, ErrDuplicateChoices)
	}

	stem := strings.TrimSpace(c.Stem)
	if len([]rune(stem)) < 15 {
		errs = append(errs, ErrStemTooShort)
	}

	// body text is optional at this layer; the type contract decides whether
	// it must exist, but a present-yet-tiny text is always suspicious
	text := strings.TrimSpace(c.Text)
	if text != "" && len([]rune(text)) < 30 {
		errs = append(errs, ErrTextTooShort)
	}

	if HasRepetitionSignals(text) {
		errs = append(errs, ErrTextRepetitionLoop)
	}
	if HasRepetitionSignals(stem) {
		errs = append(errs, ErrStemRepetitionLoop)
	}

	if looksLikeGarbage(text) || looksLikeGarbage(stem) {
		errs = append(errs, ErrGarbageTokens)
	}

	ok := len(errs) == 0
	score := 0.0
	if ok {
		score = 1.0
	}
	return ValidationResult{OK: ok, Score: score, Errors: errs}
}

// looksLikeGarbage catches grossly broken generations: five identical
// characters in a row, or more than a quarter of the text being symbols.
// This is not a language filter.
func looksLikeGarbage(s string) bool {
	if s == "" {
		return false
	}
	run := 0
	var prev rune
	for i, r := range s {
		if i > 0 && r == prev {
			run++
			if run >= 4 { // five identical runes total
				return true
			}
		} else {
			run = 0
		}
		prev = r
	}
	nonWord := 0
	total := 0
	for _, r := range s {
		total++
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.IsSpace(r) {
			nonWord++
		}
	}
	return total > 0 && float64(nonWord)/float64(total) > 0.25
}
