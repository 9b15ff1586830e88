package soruengine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Candidate is one generated exam question. JSON keys follow the fine-tune
// dataset schema, so candidates round-trip unchanged between the model, the
// validators and the telemetry log.
type Candidate struct {
	Text          string `json:"metin,omitempty"`
	Highlight     string `json:"highlight,omitempty"`
	Stem          string `json:"soru"`
	ChoiceA       string `json:"sik_a"`
	ChoiceB       string `json:"sik_b"`
	ChoiceC       string `json:"sik_c"`
	ChoiceD       string `json:"sik_d"`
	CorrectAnswer string `json:"dogru_cevap"`
	QuestionType  string `json:"question_type"`
	TopicFamily   string `json:"topic_family,omitempty"`
}

// Choices returns the four options in A..D order.
func (c *Candidate) Choices() []string {
	return []string{c.ChoiceA, c.ChoiceB, c.ChoiceC, c.ChoiceD}
}

// ChoiceMap returns the options keyed by their letter.
func (c *Candidate) ChoiceMap() map[string]string {
	return map[string]string{"A": c.ChoiceA, "B": c.ChoiceB, "C": c.ChoiceC, "D": c.ChoiceD}
}

// Clone returns an independent copy. Repair steps produce new candidates
// instead of mutating the one under validation.
func (c *Candidate) Clone() *Candidate {
	cp := *c
	return &cp
}

// ParseCandidate extracts the first {...} block from raw model output and
// decodes it. Alternate key spellings seen in older dataset versions
// (text, soru_koku, vurgulu_ifade) are folded into the canonical fields.
func ParseCandidate(raw string) (*Candidate, error) {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			s = s[i : j+1]
		}
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("candidate is not valid JSON: %w", err)
	}

	str := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := m[k]; ok {
				if sv, ok := v.(string); ok && strings.TrimSpace(sv) != "" {
					return strings.TrimSpace(sv)
				}
			}
		}
		return ""
	}

	return &Candidate{
		Text:          str("metin", "text"),
		Highlight:     str("highlight", "vurgulu_ifade"),
		Stem:          str("soru", "soru_koku"),
		ChoiceA:       str("sik_a"),
		ChoiceB:       str("sik_b"),
		ChoiceC:       str("sik_c"),
		ChoiceD:       str("sik_d"),
		CorrectAnswer: strings.ToUpper(str("dogru_cevap")),
		QuestionType:  str("question_type"),
		TopicFamily:   str("topic_family"),
	}, nil
}

// ValidationResult is the verdict of one validator over a full candidate.
// For the hard and type validators OK is true iff Errors is empty.
type ValidationResult struct {
	OK     bool     `json:"ok"`
	Score  float64  `json:"score"`
	Errors []string `json:"errors"`
}

// Error codes shared by the validators. The pipeline branches on these as a
// closed set, never on substrings.
const (
	ErrInvalidAnswerLetter = "invalid_answer_letter"
	ErrDuplicateChoices    = "duplicate_choices"
	ErrStemTooShort        = "stem_too_short"
	ErrTextTooShort        = "text_too_short"
	ErrTextTooLong         = "text_too_long"
	ErrTextRepetitionLoop  = "text_repetition_loop"
	ErrStemRepetitionLoop  = "stem_repetition_loop"
	ErrGarbageTokens       = "garbage_tokens"

	ErrUnknownQuestionType  = "unknown_question_type"
	ErrTopicFamilyMismatch  = "topic_family_mismatch"
	ErrTextRequiredButEmpty = "text_required_but_empty"
	ErrTooFewSentences      = "too_few_sentences"
	ErrTooManySentences     = "too_many_sentences"
	ErrHighlightRequired    = "highlight_required"
	ErrHighlightTooShort    = "highlight_too_short"
	ErrHighlightTooLong     = "highlight_too_long"
	ErrHighlightNotInText   = "highlight_not_in_text"

	ErrJudgeNoResponse    = "judge_no_response"
	ErrJudgeInvalidAnswer = "judge_invalid_predicted_answer"
	ErrSolverMismatch     = "solver_mismatch"
	ErrLowConfidence      = "low_confidence"
	ErrLowAlignment       = "low_alignment"
	ErrLowQualityScore    = "low_quality_score"
)

// MissingFieldError returns the error code for a missing required field,
// keyed by the field's JSON name.
func MissingFieldError(jsonKey string) string {
	return "missing_" + jsonKey
}

// Stage tags one telemetry record with the pipeline step that rejected (or
// observed) a candidate.
type Stage string

const (
	StageGenerateException         Stage = "generate_exception"
	StageJSONParseFailed           Stage = "json_parse_failed"
	StageJSONRepairFailed          Stage = "json_repair_failed"
	StageJSONRepairException       Stage = "json_repair_exception"
	StageHardFail                  Stage = "hard_fail"
	StageTypeFail                  Stage = "type_fail"
	StageTypeFailAfterRepair       Stage = "type_fail_after_highlight_repair"
	StageTypeFailRepairUnavailable Stage = "type_fail_highlight_repair_unavailable"
	StageHighlightRepairException  Stage = "highlight_repair_exception"
	StageHighlightRepairFailed     Stage = "highlight_repair_failed"
	StageQualityFail               Stage = "quality_fail"
	StageSemanticFail              Stage = "semantic_fail"
	StageJudgeNoResponse           Stage = "judge_no_response"
)

// ErrNoValidCandidate is returned by GenerateBest when all n attempts were
// discarded by some validation stage.
var ErrNoValidCandidate = errors.New("no valid candidate produced")

// GenerationRequest is the request contract shared by the CLI and the HTTP
// front end.
type GenerationRequest struct {
	Prompt       string `json:"prompt"`
	N            int    `json:"n"`
	Mode         string `json:"mode"`
	TopicFamily  string `json:"topic_family,omitempty"`
	QuestionType string `json:"question_type,omitempty"`
	Seed         *int64 `json:"seed,omitempty"`
}

// GenerationResponse is what the front ends return for one generation call.
type GenerationResponse struct {
	SelectedQuestionType string     `json:"selected_question_type"`
	Question             *Candidate `json:"question"`
}

// GeneratedQuestion is an accepted candidate as persisted in the database.
type GeneratedQuestion struct {
	ID           string     `json:"id"`
	RunID        string     `json:"run_id"`
	QuestionType string     `json:"question_type"`
	Candidate    *Candidate `json:"candidate"`
	TotalScore   float64    `json:"total_score"`
	CreatedAt    time.Time  `json:"created_at"`
}
