package soruengine

import (
	"fmt"
	"strings"
)

// WrapPrompt pins the user prompt to the selected question type and, when
// the contract declares allowed stem phrasings, suggests them. The
// fine-tuned model keys its type behavior off the "Soru tipi:" line.
func WrapPrompt(userPrompt, questionType string, rule *TypeRule) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Soru tipi: %s\n", questionType))
	if rule != nil && len(rule.AllowedQuestionRoots) > 0 {
		sb.WriteString("İzin verilen soru kökleri:\n")
		for _, root := range rule.AllowedQuestionRoots {
			sb.WriteString("- ")
			sb.WriteString(root)
			sb.WriteString("\n")
		}
	}
	sb.WriteString(strings.TrimSpace(userPrompt))
	return sb.String()
}
