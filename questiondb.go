package soruengine

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB persists generation runs and their accepted questions.
type DB struct {
	db *sql.DB
}

// DBRun is one generation request as stored in the database.
type DBRun struct {
	ID           string    `json:"id"`
	Prompt       string    `json:"prompt"`
	Mode         string    `json:"mode"`
	TopicFamily  string    `json:"topic_family"`
	QuestionType string    `json:"question_type"`
	N            int       `json:"n"`
	CreatedAt    time.Time `json:"created_at"`
}

// OpenDB opens a new database connection
func OpenDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{db: db}, nil
}

// CloseDB closes the database connection
func (db *DB) CloseDB() error {
	return db.db.Close()
}

// CreateTables creates the necessary tables if they don't exist
func (db *DB) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			prompt TEXT NOT NULL,
			mode TEXT NOT NULL,
			topic_family TEXT,
			question_type TEXT NOT NULL,
			n INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS questions (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			question_type TEXT NOT NULL,
			candidate TEXT NOT NULL,
			total_score REAL NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id)
		)`,
	}

	for _, query := range queries {
		if _, err := db.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", query, err)
		}
	}
	return nil
}

// CreateRun records one generation request.
func (db *DB) CreateRun(run *DBRun) error {
	_, err := db.db.Exec(
		"INSERT INTO runs (id, prompt, mode, topic_family, question_type, n, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		run.ID, run.Prompt, run.Mode, run.TopicFamily, run.QuestionType, run.N, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// SaveQuestion stores one accepted candidate under its run.
func (db *DB) SaveQuestion(q *GeneratedQuestion) error {
	encoded, err := json.Marshal(q.Candidate)
	if err != nil {
		return fmt.Errorf("failed to marshal candidate: %w", err)
	}
	_, err = db.db.Exec(
		"INSERT INTO questions (id, run_id, question_type, candidate, total_score, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		q.ID, q.RunID, q.QuestionType, string(encoded), q.TotalScore, q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save question: %w", err)
	}
	return nil
}

// GetQuestion retrieves one stored question by ID.
func (db *DB) GetQuestion(id string) (*GeneratedQuestion, error) {
	var (
		q       GeneratedQuestion
		encoded string
	)
	err := db.db.QueryRow(
		"SELECT id, run_id, question_type, candidate, total_score, created_at FROM questions WHERE id = ?",
		id,
	).Scan(&q.ID, &q.RunID, &q.QuestionType, &encoded, &q.TotalScore, &q.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("question not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	if err := json.Unmarshal([]byte(encoded), &q.Candidate); err != nil {
		return nil, fmt.Errorf("failed to unmarshal candidate: %w", err)
	}
	return &q, nil
}

// GetQuestions retrieves stored questions by ID, skipping unknown IDs and
// preserving the input order.
func (db *DB) GetQuestions(ids []string) ([]*GeneratedQuestion, error) {
	questions := make([]*GeneratedQuestion, 0, len(ids))
	for _, id := range ids {
		q, err := db.GetQuestion(id)
		if err != nil {
			continue
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// GetRecentQuestions retrieves the newest stored questions.
func (db *DB) GetRecentQuestions(limit int) ([]*GeneratedQuestion, error) {
	query := "SELECT id, run_id, question_type, candidate, total_score, created_at FROM questions ORDER BY created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	defer rows.Close()

	var questions []*GeneratedQuestion
	for rows.Next() {
		var (
			q       GeneratedQuestion
			encoded string
		)
		if err := rows.Scan(&q.ID, &q.RunID, &q.QuestionType, &encoded, &q.TotalScore, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		if err := json.Unmarshal([]byte(encoded), &q.Candidate); err != nil {
			return nil, fmt.Errorf("failed to unmarshal candidate: %w", err)
		}
		questions = append(questions, &q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}
	return questions, nil
}

// NewID returns a short random identifier for runs and questions.
func NewID() string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 12)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
