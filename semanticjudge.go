package soruengine

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SemanticResult is the judge's verdict: did a second model solve the
// question to the declared key, with enough confidence and topic alignment.
type SemanticResult struct {
	OK           bool           `json:"ok"`
	Score        float64        `json:"score"`
	Errors       []string       `json:"errors"`
	JudgePayload map[string]any `json:"judge_payload,omitempty"`
}

// SemanticJudge delegates to a judge model that solves the candidate and
// scores alignment. The judge client is fixed at construction; callers that
// pass the generator client as the judge correlate the two models' biases,
// which is allowed but not recommended.
type SemanticJudge struct {
	judge         ModelClient
	minConfidence float64
	minAlignment  float64
}

// NewSemanticJudge creates a judge over the given client with the default
// thresholds (confidence 0.55, alignment 6.0/10).
func NewSemanticJudge(judge ModelClient) *SemanticJudge {
	return &SemanticJudge{judge: judge, minConfidence: 0.55, minAlignment: 6.0}
}

// NewSemanticJudgeWithThresholds creates a judge with explicit thresholds.
func NewSemanticJudgeWithThresholds(judge ModelClient, minConfidence, minAlignment float64) *SemanticJudge {
	return &SemanticJudge{judge: judge, minConfidence: minConfidence, minAlignment: minAlignment}
}

// Evaluate asks the judge to solve the candidate and checks the answer
// against the declared key. All failure modes are fatal to the candidate.
func (sj *SemanticJudge) Evaluate(ctx context.Context, c *Candidate, expectedType, expectedFamily string) SemanticResult {
	payload := sj.callJudge(ctx, c, expectedType, expectedFamily)
	if payload == nil {
		return SemanticResult{OK: false, Score: 0, Errors: []string{ErrJudgeNoResponse}}
	}

	var errs []string
	predicted := strings.ToUpper(strings.TrimSpace(stringField(payload, "predicted_answer")))
	confidence := floatField(payload, "confidence")
	alignment := floatField(payload, "alignment")
	declared := strings.ToUpper(strings.TrimSpace(c.CorrectAnswer))

	if !validAnswers[predicted] {
		errs = append(errs, ErrJudgeInvalidAnswer)
	}
	if validAnswers[predicted] && validAnswers[declared] && predicted != declared {
		errs = append(errs, ErrSolverMismatch)
	}
	if confidence < sj.minConfidence {
		errs = append(errs, ErrLowConfidence)
	}
	if alignment < sj.minAlignment {
		errs = append(errs, ErrLowAlignment)
	}

	ok := len(errs) == 0
	score := 0.0
	if ok {
		score = 1.0
	}
	return SemanticResult{OK: ok, Score: score, Errors: errs, JudgePayload: payload}
}

func (sj *SemanticJudge) callJudge(ctx context.Context, c *Candidate, expectedType, expectedFamily string) map[string]any {
	raw, err := sj.judge.Generate(ctx, buildJudgePrompt(c, expectedType, expectedFamily), JudgeOptions)
	if err != nil {
		VerboseLog("judge call failed: %v", err)
		return nil
	}
	return tryParseJSONObject(raw)
}

func buildJudgePrompt(c *Candidate, expectedType, expectedFamily string) string {
	var meta []string
	if expectedFamily != "" {
		meta = append(meta, fmt.Sprintf("- Beklenen konu ailesi: %s", expectedFamily))
	}
	if expectedType != "" {
		meta = append(meta, fmt.Sprintf("- Beklenen soru tipi: %s", expectedType))
	}
	metaBlock := "- Beklenen tip: (belirtilmedi)"
	if len(meta) > 0 {
		metaBlock = strings.Join(meta, "\n")
	}

	questionJSON, _ := json.Marshal(c)

	var sb strings.Builder
	sb.WriteString("Sen bir LGS Türkçe soru denetçisisin.\n")
	sb.WriteString("Görevlerin:\n")
	sb.WriteString("1) Soruyu çöz ve doğru şıkkı (A/B/C/D) tahmin et.\n")
	sb.WriteString("2) Sorunun beklenen konu/tip ile uyumunu 0-10 arası puanla.\n")
	sb.WriteString("3) Eminlik (confidence) 0-1 arası ver.\n\n")
	sb.WriteString(metaBlock)
	sb.WriteString("\n\nSADECE şu JSON şemasıyla cevap ver:\n")
	sb.WriteString(`{"predicted_answer":"A","confidence":0.0,"alignment":0.0,"notes":"kisa"}`)
	sb.WriteString("\n\nSoru JSON:\n")
	sb.Write(questionJSON)
	return sb.String()
}

// tryParseJSONObject extracts the first {...} block and decodes it, nil when
// nothing parseable remains.
func tryParseJSONObject(raw string) map[string]any {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			s = s[i : j+1]
		}
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil
	}
	return obj
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// floatField tolerates numbers arriving as strings; judge models are not
// always disciplined about JSON number types.
func floatField(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	}
	return 0
}
