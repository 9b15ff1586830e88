package soruengine

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ContractDefaults are the global toggles of the type-rule table.
type ContractDefaults struct {
	HighlightMustAppearInText     *bool `yaml:"highlight_must_appear_in_text"`
	RejectIfTextEmptyWhenRequired *bool `yaml:"reject_if_text_empty_when_required"`
}

// TypeRule is the per-question-type contract. Pointer fields distinguish
// "not declared" from zero.
type TypeRule struct {
	TopicFamily          string   `yaml:"topic_family"`
	TextRequired         *bool    `yaml:"text_required"`
	MinWords             *int     `yaml:"min_words"`
	MaxWords             *int     `yaml:"max_words"`
	MinSentences         *int     `yaml:"min_sentences"`
	MaxSentences         *int     `yaml:"max_sentences"`
	HighlightRequired    bool     `yaml:"highlight_required"`
	HighlightMinWords    *int     `yaml:"highlight_min_words"`
	HighlightMaxWords    *int     `yaml:"highlight_max_words"`
	AllowedQuestionRoots []string `yaml:"allowed_question_roots"`
}

// TextIsRequired defaults to true when the rule does not declare it.
func (r *TypeRule) TextIsRequired() bool {
	if r.TextRequired == nil {
		return true
	}
	return *r.TextRequired
}

// TypeContract is the full rule table, loaded once at startup and immutable
// afterwards.
type TypeContract struct {
	Defaults ContractDefaults     `yaml:"defaults"`
	Rules    map[string]*TypeRule `yaml:"rules"`
}

// LoadTypeContract reads and decodes a YAML rule table. A missing or
// malformed file is an operator error and fails construction.
func LoadTypeContract(path string) (*TypeContract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read type contract: %w", err)
	}
	var contract TypeContract
	if err := yaml.Unmarshal(data, &contract); err != nil {
		return nil, fmt.Errorf("failed to parse type contract %s: %w", path, err)
	}
	if len(contract.Rules) == 0 {
		return nil, fmt.Errorf("type contract %s declares no rules", path)
	}
	return &contract, nil
}

// Rule looks up the contract for a question type, nil if unknown.
func (tc *TypeContract) Rule(questionType string) *TypeRule {
	return tc.Rules[questionType]
}

// Types returns all known question types in stable order.
func (tc *TypeContract) Types() []string {
	types := make([]string, 0, len(tc.Rules))
	for t := range tc.Rules {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// TypesByFamily groups question types by their declared topic family, each
// list in stable order.
func (tc *TypeContract) TypesByFamily() map[string][]string {
	byFamily := make(map[string][]string)
	for t, r := range tc.Rules {
		fam := strings.TrimSpace(r.TopicFamily)
		if fam != "" {
			byFamily[fam] = append(byFamily[fam], t)
		}
	}
	for fam := range byFamily {
		sort.Strings(byFamily[fam])
	}
	return byFamily
}

func (tc *TypeContract) highlightMustAppearInText() bool {
	if tc.Defaults.HighlightMustAppearInText == nil {
		return true
	}
	return *tc.Defaults.HighlightMustAppearInText
}

func (tc *TypeContract) rejectIfTextEmptyWhenRequired() bool {
	if tc.Defaults.RejectIfTextEmptyWhenRequired == nil {
		return true
	}
	return *tc.Defaults.RejectIfTextEmptyWhenRequired
}

// TypeRuleValidator applies the per-question-type contract. It is built to
// catch the class errors the fine-tuned generator actually makes: paragraph
// output for sentence-level types, over/undershooting text length, forgotten
// highlights, topic-family drift.
type TypeRuleValidator struct {
	contract *TypeContract
}

// NewTypeRuleValidator creates a validator over an already-loaded contract.
func NewTypeRuleValidator(contract *TypeContract) *TypeRuleValidator {
	return &TypeRuleValidator{contract: contract}
}

// Validate checks the candidate against the rule for its question type.
// Unknown types soft-pass with half score; the hard validator remains the
// safety net for those.
func (tv *TypeRuleValidator) Validate(c *Candidate) ValidationResult {
	rule := tv.contract.Rule(strings.TrimSpace(c.QuestionType))
	if rule == nil {
		return ValidationResult{OK: true, Score: 0.5, Errors: []string{ErrUnknownQuestionType}}
	}

	var errs []string
	text := c.Text
	wc := WordCount(text)
	sc := SentenceCount(text)

	if rule.TopicFamily != "" {
		actual := strings.TrimSpace(c.TopicFamily)
		if actual != "" && actual != rule.TopicFamily {
			errs = append(errs, ErrTopicFamilyMismatch)
		}
	}

	if rule.TextIsRequired() && strings.TrimSpace(text) == "" && tv.contract.rejectIfTextEmptyWhenRequired() {
		errs = append(errs, ErrTextRequiredButEmpty)
	}

	if rule.MinWords != nil && wc < *rule.MinWords {
		errs = append(errs, ErrTextTooShort)
	}
	if rule.MaxWords != nil && wc > *rule.MaxWords {
		errs = append(errs, ErrTextTooLong)
	}

	if rule.MinSentences != nil && sc < *rule.MinSentences {
		errs = append(errs, ErrTooFewSentences)
	}
	if rule.MaxSentences != nil && sc > *rule.MaxSentences {
		errs = append(errs, ErrTooManySentences)
	}

	highlight := strings.TrimSpace(c.Highlight)
	if rule.HighlightRequired && highlight == "" {
		errs = append(errs, ErrHighlightRequired)
	}

	if highlight != "" {
		hw := WordCount(highlight)
		if rule.HighlightMinWords != nil && hw < *rule.HighlightMinWords {
			errs = append(errs, ErrHighlightTooShort)
		}
		if rule.HighlightMaxWords != nil && hw > *rule.HighlightMaxWords {
			errs = append(errs, ErrHighlightTooLong)
		}
		if tv.contract.highlightMustAppearInText() && !HighlightAppearsInText(text, highlight) {
			errs = append(errs, ErrHighlightNotInText)
		}
	}

	ok := len(errs) == 0
	score := 0.0
	if ok {
		score = 1.0
	}
	return ValidationResult{OK: ok, Score: score, Errors: errs}
}

// highlightRepairable reports whether the failure set consists only of
// highlight errors the repair sub-loop can fix.
func highlightRepairable(errs []string) bool {
	if len(errs) == 0 {
		return false
	}
	fixable := map[string]bool{
		ErrHighlightRequired:  true,
		ErrHighlightNotInText: true,
	}
	for _, e := range errs {
		if !fixable[e] {
			return false
		}
	}
	return true
}
