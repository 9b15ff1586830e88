package main

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"soruengine"

	"github.com/gorilla/sessions"
)

func init() {
	// the session history is a []string and rides inside the gob-encoded cookie
	gob.Register([]string{})
}

const (
	sessionName    = "soruengine-session"
	historyKey     = "recent_questions"
	maxHistorySize = 20
	maxCandidates  = 20
)

type Server struct {
	contract *soruengine.TypeContract
	selector *soruengine.QuestionTypeSelector
	pipeline *soruengine.GenerationPipeline
	db       *soruengine.DB
	store    *sessions.CookieStore
}

func main() {
	soruengine.SetVerbose(os.Getenv("SORUENGINE_VERBOSE") == "1")

	apiKey := os.Getenv("SORUENGINE_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	baseURL := os.Getenv("SORUENGINE_BASE_URL")
	judgeURL := os.Getenv("SORUENGINE_JUDGE_URL")
	if apiKey == "" && baseURL == "" {
		log.Fatal("SORUENGINE_API_KEY or OPENAI_API_KEY environment variable is required")
	}

	contractPath := os.Getenv("SORUENGINE_CONTRACT")
	if contractPath == "" {
		contractPath = "configs/question_type_rules.yaml"
	}
	contract, err := soruengine.LoadTypeContract(contractPath)
	if err != nil {
		log.Fatalf("Failed to load type contract: %v", err)
	}

	db, err := soruengine.OpenDB("./soruengine.db")
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.CloseDB()
	if err := db.CreateTables(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	telemetry, err := soruengine.NewTelemetry("data/hard_negatives.jsonl")
	if err != nil {
		log.Fatalf("Failed to open telemetry sink: %v", err)
	}
	defer telemetry.Close()

	generator := soruengine.NewOpenAIModel(soruengine.ModelConfig{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Model:   os.Getenv("SORUENGINE_MODEL"),
	})
	var judge soruengine.ModelClient
	if judgeURL != "" {
		judge = soruengine.NewOpenAIModel(soruengine.ModelConfig{
			APIKey:  apiKey,
			BaseURL: judgeURL,
			Model:   os.Getenv("SORUENGINE_JUDGE_MODEL"),
		})
	}

	pipeline := soruengine.NewGenerationPipeline(generator, contract, soruengine.PipelineConfig{
		Judge:           judge,
		EnableJudge:     os.Getenv("SORUENGINE_NO_JUDGE") != "1",
		MinQualityScore: soruengine.DefaultMinQualityScore,
		Telemetry:       telemetry,
		Parallel:        2,
	})

	sessionSecret := os.Getenv("SORUENGINE_SESSION_SECRET")
	if sessionSecret == "" {
		sessionSecret = "soruengine-dev-secret"
	}

	server := &Server{
		contract: contract,
		selector: soruengine.NewQuestionTypeSelector(contract),
		pipeline: pipeline,
		db:       db,
		store:    sessions.NewCookieStore([]byte(sessionSecret)),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.handleHealth)
	mux.HandleFunc("/api/generate", server.handleGenerate)
	mux.HandleFunc("/api/question-types", server.handleQuestionTypes)
	mux.HandleFunc("/api/history", server.handleHistory)

	addr := os.Getenv("SORUENGINE_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("Starting server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQuestionTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"families": s.selector.Families(),
		"types":    s.selector.Types(r.URL.Query().Get("topic_family")),
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req soruengine.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Prompt == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "prompt is required"})
		return
	}
	// n is bounded to cap cost per request
	if req.N < 1 {
		req.N = 5
	}
	if req.N > maxCandidates {
		req.N = maxCandidates
	}

	selectedType, err := s.selector.Select(req.Mode, req.TopicFamily, req.QuestionType, req.Seed)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	rule := s.contract.Rule(selectedType)
	wrapped := soruengine.WrapPrompt(req.Prompt, selectedType, rule)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	question, err := s.pipeline.GenerateBest(ctx, wrapped, req.N, selectedType, rule.TopicFamily)
	if err != nil {
		if errors.Is(err, soruengine.ErrNoValidCandidate) {
			writeJSON(w, http.StatusBadGateway, map[string]string{
				"error": "generation failed, try again or increase n",
			})
			return
		}
		log.Printf("Generation error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	questionID := s.persist(&req, selectedType, question)
	if questionID != "" {
		s.appendHistory(w, r, questionID)
	}

	writeJSON(w, http.StatusOK, soruengine.GenerationResponse{
		SelectedQuestionType: selectedType,
		Question:             question,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session, _ := s.store.Get(r, sessionName)
	ids, _ := session.Values[historyKey].([]string)

	questions, err := s.db.GetQuestions(ids)
	if err != nil {
		log.Printf("Failed to load history: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

// persist stores the run and accepted question, returning the question ID.
// Storage failures are logged but never fail the generation response.
func (s *Server) persist(req *soruengine.GenerationRequest, selectedType string, question *soruengine.Candidate) string {
	run := &soruengine.DBRun{
		ID:           soruengine.NewID(),
		Prompt:       req.Prompt,
		Mode:         req.Mode,
		TopicFamily:  req.TopicFamily,
		QuestionType: selectedType,
		N:            req.N,
		CreatedAt:    time.Now(),
	}
	if err := s.db.CreateRun(run); err != nil {
		log.Printf("Failed to store run: %v", err)
		return ""
	}
	q := &soruengine.GeneratedQuestion{
		ID:           soruengine.NewID(),
		RunID:        run.ID,
		QuestionType: selectedType,
		Candidate:    question,
		CreatedAt:    time.Now(),
	}
	if err := s.db.SaveQuestion(q); err != nil {
		log.Printf("Failed to store question: %v", err)
		return ""
	}
	return q.ID
}

func (s *Server) appendHistory(w http.ResponseWriter, r *http.Request, questionID string) {
	session, _ := s.store.Get(r, sessionName)
	ids, _ := session.Values[historyKey].([]string)
	ids = append(ids, questionID)
	if len(ids) > maxHistorySize {
		ids = ids[len(ids)-maxHistorySize:]
	}
	session.Values[historyKey] = ids
	if err := session.Save(r, w); err != nil {
		log.Printf("Failed to save session: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
