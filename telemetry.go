package soruengine

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TelemetryRecord is one line of the hard-negative log: what got rejected,
// where, and why. Records are append-only and never rewritten; the file is
// the input for the negative-training-set builder.
type TelemetryRecord struct {
	TS     string         `json:"ts"`
	Stage  Stage          `json:"stage"`
	Prompt string         `json:"prompt"`
	Raw    string         `json:"raw,omitempty"`
	Parsed *Candidate     `json:"parsed,omitempty"`
	Errors []string       `json:"errors,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// Telemetry appends rejection records to a newline-delimited JSON file.
// Writes are serialized through one mutex-guarded handle and synced before
// Log returns, so a crash never loses training signal. Write failures are
// logged but never abort generation.
type Telemetry struct {
	mu   sync.Mutex
	file *os.File
}

// NewTelemetry opens (or creates) the sink file for appending.
func NewTelemetry(path string) (*Telemetry, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open telemetry file: %w", err)
	}
	return &Telemetry{file: file}, nil
}

// Log appends one record with a UTC timestamp.
func (t *Telemetry) Log(stage Stage, prompt string, raw string, parsed *Candidate, errs []string, extra map[string]any) {
	if t == nil {
		return
	}
	rec := TelemetryRecord{
		TS:     time.Now().UTC().Format(time.RFC3339Nano),
		Stage:  stage,
		Prompt: prompt,
		Raw:    raw,
		Parsed: parsed,
		Errors: errs,
		Extra:  extra,
	}
	line, err := json.Marshal(rec)
	if err != nil {
		log.Printf("telemetry: failed to marshal record: %v", err)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.file.Write(append(line, '\n')); err != nil {
		log.Printf("telemetry: failed to write record: %v", err)
		return
	}
	// flush so the negative-training corpus survives a crash
	t.file.Sync()
}

// Close closes the underlying file.
func (t *Telemetry) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file != nil {
		return t.file.Close()
	}
	return nil
}

// ReadTelemetry loads every parseable record from an NDJSON sink. Broken
// lines are skipped; the log may contain partial writes from a crash.
func ReadTelemetry(path string) ([]TelemetryRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read telemetry file: %w", err)
	}
	var records []TelemetryRecord
	start := 0
	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1
			if len(line) == 0 {
				continue
			}
			var rec TelemetryRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				continue
			}
			records = append(records, rec)
		}
	}
	return records, nil
}
