package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"soruengine"
)

func main() {
	var (
		prompt       = flag.String("prompt", "", "Generation prompt (required)")
		n            = flag.Int("n", 5, "Number of candidates to draw (best-of-N)")
		mode         = flag.String("mode", "mixed", "Question type selection mode (mixed, family, explicit_type)")
		family       = flag.String("family", "", "Topic family for mode=family")
		qtype        = flag.String("type", "", "Question type for mode=explicit_type")
		seed         = flag.Int64("seed", -1, "Deterministic selection seed (-1 for random)")
		contractPath = flag.String("contract", "configs/question_type_rules.yaml", "Path to the type contract YAML")
		baseURL      = flag.String("base-url", "", "Generator endpoint (OpenAI-compatible; default api.openai.com)")
		judgeURL     = flag.String("judge-url", "", "Judge endpoint (falls back to the generator, not recommended)")
		apiKey       = flag.String("api-key", "", "API key (or set SORUENGINE_API_KEY / OPENAI_API_KEY)")
		model        = flag.String("model", "", "Generator model name")
		judgeModel   = flag.String("judge-model", "", "Judge model name (defaults to -model)")
		timeout      = flag.Duration("timeout", 2*time.Minute, "Per model call timeout")
		telemetryOut = flag.String("telemetry", "data/hard_negatives.jsonl", "Hard-negative telemetry sink")
		dbPath       = flag.String("db", "", "Optional sqlite database to store the accepted question")
		outputFile   = flag.String("output", "", "Output file for question JSON (default: stdout)")
		noJudge      = flag.Bool("no-judge", false, "Disable the semantic judge stage")
		minQuality   = flag.Int("min-quality", soruengine.DefaultMinQualityScore, "Heuristic quality gate, 0 disables")
		parallel     = flag.Int("parallel", 1, "Concurrent candidate attempts")
		stopPerfect  = flag.Bool("stop-on-perfect", false, "Stop early once a perfect-score candidate is found")
		verbose      = flag.Bool("verbose", false, "Enable verbose debugging output")
	)

	flag.Parse()

	soruengine.SetVerbose(*verbose)

	if *prompt == "" {
		log.Fatal("Prompt is required. Use -prompt flag.")
	}

	if *apiKey == "" {
		*apiKey = os.Getenv("SORUENGINE_API_KEY")
	}
	if *apiKey == "" {
		*apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if *apiKey == "" && *baseURL == "" {
		log.Fatal("API key is required. Use -api-key flag or set SORUENGINE_API_KEY / OPENAI_API_KEY.")
	}

	contract, err := soruengine.LoadTypeContract(*contractPath)
	if err != nil {
		log.Fatalf("Failed to load type contract: %v", err)
	}
	selector := soruengine.NewQuestionTypeSelector(contract)

	telemetry, err := soruengine.NewTelemetry(*telemetryOut)
	if err != nil {
		log.Fatalf("Failed to open telemetry sink: %v", err)
	}
	defer telemetry.Close()

	generator := soruengine.NewOpenAIModel(soruengine.ModelConfig{
		APIKey:  *apiKey,
		BaseURL: *baseURL,
		Model:   *model,
		Timeout: *timeout,
	})

	var judge soruengine.ModelClient
	if *judgeURL != "" || *judgeModel != "" {
		jm := *judgeModel
		if jm == "" {
			jm = *model
		}
		judge = soruengine.NewOpenAIModel(soruengine.ModelConfig{
			APIKey:  *apiKey,
			BaseURL: *judgeURL,
			Model:   jm,
			Timeout: *timeout,
		})
	}

	pipeline := soruengine.NewGenerationPipeline(generator, contract, soruengine.PipelineConfig{
		Judge:           judge,
		EnableJudge:     !*noJudge,
		MinQualityScore: *minQuality,
		Telemetry:       telemetry,
		Parallel:        *parallel,
		StopOnPerfect:   *stopPerfect,
	})

	var seedPtr *int64
	if *seed >= 0 {
		seedPtr = seed
	}
	selectedType, err := selector.Select(*mode, *family, *qtype, seedPtr)
	if err != nil {
		log.Fatalf("Question type selection failed: %v", err)
	}

	rule := contract.Rule(selectedType)
	wrapped := soruengine.WrapPrompt(*prompt, selectedType, rule)

	if *verbose {
		log.Printf("Selected question type: %s", selectedType)
		log.Printf("Drawing %d candidates", *n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	question, err := pipeline.GenerateBest(ctx, wrapped, *n, selectedType, rule.TopicFamily)
	if err != nil {
		log.Fatalf("Generation failed: %v (try again or increase -n)", err)
	}

	if *dbPath != "" {
		if err := storeQuestion(*dbPath, *prompt, *mode, selectedType, *n, question); err != nil {
			log.Printf("Failed to store question: %v", err)
		}
	}

	output, err := json.MarshalIndent(soruengine.GenerationResponse{
		SelectedQuestionType: selectedType,
		Question:             question,
	}, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal question: %v", err)
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, output, 0644); err != nil {
			log.Fatalf("Failed to write output file: %v", err)
		}
		log.Printf("Question saved to: %s", *outputFile)
	} else {
		fmt.Println(string(output))
	}
}

func storeQuestion(dbPath, prompt, mode, selectedType string, n int, question *soruengine.Candidate) error {
	db, err := soruengine.OpenDB(dbPath)
	if err != nil {
		return err
	}
	defer db.CloseDB()

	if err := db.CreateTables(); err != nil {
		return err
	}

	run := &soruengine.DBRun{
		ID:           soruengine.NewID(),
		Prompt:       prompt,
		Mode:         mode,
		QuestionType: selectedType,
		N:            n,
		CreatedAt:    time.Now(),
	}
	if err := db.CreateRun(run); err != nil {
		return err
	}

	return db.SaveQuestion(&soruengine.GeneratedQuestion{
		ID:           soruengine.NewID(),
		RunID:        run.ID,
		QuestionType: selectedType,
		Candidate:    question,
		CreatedAt:    time.Now(),
	})
}
