package soruengine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// maxAttemptTotal is the best possible candidate total: hard + type +
// semantic, each 1.0.
const maxAttemptTotal = 3.0

// DefaultMinQualityScore is the heuristic quality gate the front ends use.
const DefaultMinQualityScore = 70

// PipelineConfig wires a GenerationPipeline. The zero value of each field
// falls back to the documented default.
type PipelineConfig struct {
	// Judge is the client used for semantic checking. When nil, the
	// generator client is reused; that correlates generator and judge
	// biases and is not recommended.
	Judge              ModelClient
	EnableJudge        bool
	JudgeMinConfidence float64 // default 0.55
	JudgeMinAlignment  float64 // default 6.0

	// MinQualityScore gates candidates on the option heuristics; <= 0
	// disables the gate.
	MinQualityScore int

	Telemetry *Telemetry

	// Parallel bounds how many attempts run concurrently; <= 1 runs the
	// attempts sequentially like the single-flow baseline.
	Parallel int

	// StopOnPerfect cancels outstanding attempts once a candidate with the
	// maximum possible total is retained.
	StopOnPerfect bool
}

// GenerationPipeline draws n candidates from the model, repairs malformed
// output, applies the validator cascade and returns the highest-scoring
// survivor. Every rejection is logged to telemetry as a labeled negative.
type GenerationPipeline struct {
	model       ModelClient
	hard        *HardValidator
	typev       *TypeRuleValidator
	semantic    *SemanticJudge
	enableJudge bool
	minQuality  int
	telemetry   *Telemetry
	parallel    int
	stopPerfect bool
}

// NewGenerationPipeline builds the pipeline over a loaded type contract.
func NewGenerationPipeline(model ModelClient, contract *TypeContract, cfg PipelineConfig) *GenerationPipeline {
	judge := cfg.Judge
	if judge == nil {
		if cfg.EnableJudge {
			VerboseLog("no judge endpoint configured, falling back to the generator model (not recommended)")
		}
		judge = model
	}
	minConf := cfg.JudgeMinConfidence
	if minConf <= 0 {
		minConf = 0.55
	}
	minAlign := cfg.JudgeMinAlignment
	if minAlign <= 0 {
		minAlign = 6.0
	}
	parallel := cfg.Parallel
	if parallel < 1 {
		parallel = 1
	}
	return &GenerationPipeline{
		model:       model,
		hard:        NewHardValidator(),
		typev:       NewTypeRuleValidator(contract),
		semantic:    NewSemanticJudgeWithThresholds(judge, minConf, minAlign),
		enableJudge: cfg.EnableJudge,
		minQuality:  cfg.MinQualityScore,
		telemetry:   cfg.Telemetry,
		parallel:    parallel,
		stopPerfect: cfg.StopOnPerfect,
	}
}

// GenerateBest runs n independent attempts and returns the retained
// candidate with the highest total score. Attempt failures are recovered
// and logged; only total exhaustion is an error, wrapping
// ErrNoValidCandidate. Ties keep the first-retained candidate.
func (p *GenerationPipeline) GenerateBest(ctx context.Context, prompt string, n int, expectedType, expectedFamily string) (*Candidate, error) {
	if n < 1 {
		n = 1
	}

	var (
		mu        sync.Mutex
		best      *Candidate
		bestTotal = -1.0
	)

	gctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(p.parallel)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			c, total, ok := p.attempt(gctx, prompt, expectedType, expectedFamily)
			if !ok {
				return nil
			}
			mu.Lock()
			if total > bestTotal {
				best = c
				bestTotal = total
				if p.stopPerfect && total >= maxAttemptTotal {
					cancel()
				}
			}
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	if best == nil {
		return nil, fmt.Errorf("all %d attempts rejected: %w", n, ErrNoValidCandidate)
	}
	return best, nil
}

// attempt runs one candidate through the full draft/parse/validate/judge
// chain. It reports the candidate and its total score, or ok=false when the
// attempt was discarded at any stage.
func (p *GenerationPipeline) attempt(ctx context.Context, prompt, expectedType, expectedFamily string) (*Candidate, float64, bool) {
	raw, err := p.model.Generate(ctx, prompt, DraftOptions)
	if err != nil {
		p.log(StageGenerateException, prompt, "", nil, nil, nil)
		return nil, 0, false
	}

	c, parseErr := ParseCandidate(raw)
	if parseErr != nil {
		p.log(StageJSONParseFailed, prompt, raw, nil, nil, nil)
		c = p.repairJSON(ctx, raw, prompt)
		if c == nil {
			return nil, 0, false
		}
	}

	// type lock: the caller's selection wins over whatever the model claims
	if expectedType != "" {
		c = c.Clone()
		c.QuestionType = expectedType
	}

	hard := p.hard.Validate(c)
	if !hard.OK {
		p.log(StageHardFail, prompt, "", c, hard.Errors, nil)
		return nil, 0, false
	}

	typeRes := p.typev.Validate(c)
	if !typeRes.OK {
		if !highlightRepairable(typeRes.Errors) {
			p.log(StageTypeFail, prompt, "", c, typeRes.Errors, nil)
			return nil, 0, false
		}

		repaired := p.repairHighlight(ctx, c, prompt)
		if repaired == nil {
			p.log(StageTypeFailRepairUnavailable, prompt, "", c, typeRes.Errors, nil)
			return nil, 0, false
		}
		if expectedType != "" {
			repaired.QuestionType = expectedType
		}
		hard2 := p.hard.Validate(repaired)
		type2 := p.typev.Validate(repaired)
		if !hard2.OK || !type2.OK {
			p.log(StageTypeFailAfterRepair, prompt, "", repaired, append(hard2.Errors, type2.Errors...), nil)
			return nil, 0, false
		}
		c = repaired
		hard = hard2
		typeRes = type2
	}

	if p.minQuality > 0 {
		report := QualityCheck(c)
		if report.Score < p.minQuality {
			p.log(StageQualityFail, prompt, "", c, []string{ErrLowQualityScore}, map[string]any{"quality_report": report})
			return nil, 0, false
		}
	}

	semScore := 1.0
	if p.enableJudge {
		sem := p.semantic.Evaluate(ctx, c, expectedType, expectedFamily)
		if !sem.OK {
			p.log(StageSemanticFail, prompt, "", c, sem.Errors, map[string]any{"judge_payload": sem.JudgePayload})
			return nil, 0, false
		}
		semScore = sem.Score
	}

	return c, hard.Score + typeRes.Score + semScore, true
}

// repairJSON gives malformed output one cool repair call. Single-shot, never
// recursive, so per-attempt cost stays bounded.
func (p *GenerationPipeline) repairJSON(ctx context.Context, raw, prompt string) *Candidate {
	var sb strings.Builder
	sb.WriteString("Aşağıdaki metni SADECE geçerli JSON olacak şekilde düzelt. ")
	sb.WriteString("JSON dışında hiçbir açıklama yazma.\n\n")
	sb.WriteString("METIN:\n")
	sb.WriteString(raw)
	sb.WriteString("\n")

	repaired, err := p.model.Generate(ctx, sb.String(), RepairOptions)
	if err != nil {
		p.log(StageJSONRepairException, prompt, raw, nil, nil, nil)
		return nil
	}
	c, parseErr := ParseCandidate(repaired)
	if parseErr != nil {
		p.log(StageJSONRepairFailed, prompt, repaired, nil, nil, nil)
		return nil
	}
	return c
}

// repairHighlight asks the model to fix a missing or drifted highlight. It
// returns a new candidate; the input candidate is never mutated.
func (p *GenerationPipeline) repairHighlight(ctx context.Context, c *Candidate, prompt string) *Candidate {
	encoded, _ := json.Marshal(c)

	var sb strings.Builder
	sb.WriteString("Aşağıdaki JSON bir LGS sorusudur. SADECE JSON döndür. ")
	sb.WriteString("Hedef: underline/altı çizili gereksinimini düzelt.\n")
	sb.WriteString("Kurallar:\n")
	sb.WriteString("- JSON şemasını bozma, anahtarları değiştirme.\n")
	sb.WriteString("- Eğer highlight boşsa, metin içinden 3-8 kelimelik bir ifadeyi highlight olarak seç.\n")
	sb.WriteString("- highlight metin içinde birebir geçmek zorunda.\n")
	sb.WriteString("- metin içinde highlight'ın geçtiği ilk yeri [u]...[/u] ile işaretle.\n")
	sb.WriteString("- SADECE JSON.\n\n")
	sb.WriteString("JSON:\n")
	sb.Write(encoded)

	repaired, err := p.model.Generate(ctx, sb.String(), RepairOptions)
	if err != nil {
		p.log(StageHighlightRepairException, prompt, "", c, nil, nil)
		return nil
	}
	fixed, parseErr := ParseCandidate(repaired)
	if parseErr != nil {
		p.log(StageHighlightRepairFailed, prompt, repaired, nil, nil, nil)
		return nil
	}
	return fixed
}

func (p *GenerationPipeline) log(stage Stage, prompt, raw string, parsed *Candidate, errs []string, extra map[string]any) {
	if p.telemetry == nil {
		return
	}
	p.telemetry.Log(stage, prompt, raw, parsed, errs, extra)
}
