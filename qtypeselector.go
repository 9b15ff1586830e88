package soruengine

import (
	"fmt"
	"math/rand"
	"sort"
)

// Selection modes for QuestionTypeSelector.
const (
	ModeMixed    = "mixed"
	ModeFamily   = "family"
	ModeExplicit = "explicit_type"
)

// QuestionTypeSelector picks the question type a generation run targets,
// either pinned explicitly, sampled within a topic family, or sampled over
// the whole contract table.
type QuestionTypeSelector struct {
	allTypes []string
	byFamily map[string][]string
}

// NewQuestionTypeSelector indexes an already-loaded contract.
func NewQuestionTypeSelector(contract *TypeContract) *QuestionTypeSelector {
	return &QuestionTypeSelector{
		allTypes: contract.Types(),
		byFamily: contract.TypesByFamily(),
	}
}

// Families returns the known topic families in stable order.
func (qs *QuestionTypeSelector) Families() []string {
	families := make([]string, 0, len(qs.byFamily))
	for fam := range qs.byFamily {
		families = append(families, fam)
	}
	sort.Strings(families)
	return families
}

// Types returns the selectable question types, optionally restricted to one
// family.
func (qs *QuestionTypeSelector) Types(topicFamily string) []string {
	if topicFamily != "" {
		return append([]string(nil), qs.byFamily[topicFamily]...)
	}
	return append([]string(nil), qs.allTypes...)
}

// Select picks a question type. A non-nil seed makes the draw deterministic
// without touching the process-wide random source. Unknown explicit types
// and empty families are caller errors, never silently defaulted.
func (qs *QuestionTypeSelector) Select(mode, topicFamily, explicitType string, seed *int64) (string, error) {
	if mode == "" {
		mode = ModeMixed
	}

	switch mode {
	case ModeExplicit:
		if explicitType == "" {
			return "", fmt.Errorf("mode=%s requires question_type", ModeExplicit)
		}
		for _, t := range qs.allTypes {
			if t == explicitType {
				return explicitType, nil
			}
		}
		return "", fmt.Errorf("unknown question_type: %s", explicitType)

	case ModeFamily:
		if topicFamily == "" {
			return "", fmt.Errorf("mode=%s requires topic_family", ModeFamily)
		}
		candidates := qs.byFamily[topicFamily]
		if len(candidates) == 0 {
			return "", fmt.Errorf("no question types for topic_family: %s", topicFamily)
		}
		return candidates[qs.intn(seed, len(candidates))], nil

	case ModeMixed:
		if len(qs.allTypes) == 0 {
			return "", fmt.Errorf("no question types loaded")
		}
		return qs.allTypes[qs.intn(seed, len(qs.allTypes))], nil

	default:
		return "", fmt.Errorf("unknown selection mode: %s", mode)
	}
}

func (qs *QuestionTypeSelector) intn(seed *int64, n int) int {
	if seed != nil {
		return rand.New(rand.NewSource(*seed)).Intn(n)
	}
	return rand.Intn(n)
}
