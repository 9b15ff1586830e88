package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"soruengine"
)

// Builds a negative-training prompt set from the hard-negative telemetry
// log. Each kept record becomes a chat-format "fix this and return only
// JSON" example; rejected generations teach JSON discipline, type-contract
// compliance and highlight handling.

const systemPrompt = "Sen LGS Türkçe soru düzeltme asistanısın.\n" +
	"Kurallar:\n" +
	"- SADECE geçerli JSON döndür.\n" +
	"- JSON şemasını bozma, anahtar isimlerini değiştirme.\n" +
	"- question_type alanına uy.\n" +
	"- Gerekiyorsa highlight/underline şartlarını düzelt.\n" +
	"- Gereksiz açıklama yazma.\n"

const userTemplate = "Aşağıdaki içerik bir LGS Türkçe sorusu üretim çıktısıdır ama hatalıdır.\n" +
	"Hatalar (etiketler): %s\n\n" +
	"Görev:\n" +
	"1) Bu soruyu mümkün olan en az değişiklikle düzelt.\n" +
	"2) SADECE geçerli JSON döndür.\n" +
	"3) Eğer altı çizili/underline gerekiyorsa:\n" +
	"   - highlight boşsa metin içinden 3-8 kelimelik bir ifade seç.\n" +
	"   - highlight metin içinde birebir geçsin.\n" +
	"   - metin içinde highlight'ın geçtiği ilk yeri [u]...[/u] ile işaretle.\n\n" +
	"Girdi:\n%s\n"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type trainingExample struct {
	Messages []chatMessage `json:"messages"`
}

// keepStages are the rejection stages worth training against. Judge
// transport failures and generator exceptions carry no candidate content.
var keepStages = map[soruengine.Stage]bool{
	soruengine.StageJSONParseFailed:           true,
	soruengine.StageJSONRepairFailed:          true,
	soruengine.StageHardFail:                  true,
	soruengine.StageTypeFail:                  true,
	soruengine.StageTypeFailAfterRepair:       true,
	soruengine.StageTypeFailRepairUnavailable: true,
	soruengine.StageQualityFail:               true,
	soruengine.StageSemanticFail:              true,
}

// highlightStages get the needs_highlight_fix tag on top of their errors.
var highlightStages = map[soruengine.Stage]bool{
	soruengine.StageTypeFailAfterRepair:       true,
	soruengine.StageTypeFailRepairUnavailable: true,
}

func main() {
	var (
		inPath   = flag.String("in", "data/hard_negatives.jsonl", "Telemetry NDJSON input")
		outPath  = flag.String("out", "data/negative_training_prompts.jsonl", "Output JSONL path")
		maxItems = flag.Int("max", 5000, "Maximum number of examples")
		dedup    = flag.Bool("dedup", false, "Deduplicate identical stage/errors/payload combinations")
	)
	flag.Parse()

	records, err := soruengine.ReadTelemetry(*inPath)
	if err != nil {
		log.Fatalf("Failed to read telemetry: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	out, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer out.Close()

	stageCounts := map[string]int{}
	errorCounts := map[string]int{}
	kept := 0
	written := 0
	seen := map[string]bool{}

	for _, rec := range records {
		if written >= *maxItems {
			break
		}
		stageCounts[string(rec.Stage)]++
		for _, e := range rec.Errors {
			errorCounts[e]++
		}

		if !keepStages[rec.Stage] {
			continue
		}
		kept++

		payload := pickPayload(rec)
		tags := buildTags(rec)

		if *dedup {
			key := string(rec.Stage) + "|" + strings.Join(tags, ",") + "|" + truncate(payload, 500)
			if seen[key] {
				continue
			}
			seen[key] = true
		}

		example := trainingExample{
			Messages: []chatMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: fmt.Sprintf(userTemplate, strings.Join(tags, ", "), payload)},
			},
		}
		line, err := json.Marshal(example)
		if err != nil {
			continue
		}
		if _, err := out.Write(append(line, '\n')); err != nil {
			log.Fatalf("Failed to write example: %v", err)
		}
		written++
	}

	report := buildReport(*inPath, *outPath, len(records), kept, written, stageCounts, errorCounts)
	reportPath := strings.TrimSuffix(*outPath, filepath.Ext(*outPath)) + ".report.txt"
	if err := os.WriteFile(reportPath, []byte(report), 0644); err != nil {
		log.Printf("Failed to write report: %v", err)
	}
	fmt.Print(report)
}

// pickPayload prefers the parsed candidate; raw model text is the fallback.
func pickPayload(rec soruengine.TelemetryRecord) string {
	if rec.Parsed != nil {
		if data, err := json.Marshal(rec.Parsed); err == nil {
			return string(data)
		}
	}
	if strings.TrimSpace(rec.Raw) != "" {
		return strings.TrimSpace(rec.Raw)
	}
	data, _ := json.Marshal(rec)
	return string(data)
}

func buildTags(rec soruengine.TelemetryRecord) []string {
	tags := map[string]bool{}
	for _, e := range rec.Errors {
		tags[e] = true
	}
	switch rec.Stage {
	case soruengine.StageJSONParseFailed, soruengine.StageJSONRepairFailed:
		tags["needs_json_only"] = true
	}
	if highlightStages[rec.Stage] || tags[soruengine.ErrHighlightRequired] || tags[soruengine.ErrHighlightNotInText] {
		tags["needs_highlight_fix"] = true
	}
	if len(tags) == 0 {
		return []string{string(rec.Stage)}
	}
	sorted := make([]string, 0, len(tags))
	for t := range tags {
		sorted = append(sorted, t)
	}
	sort.Strings(sorted)
	return sorted
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func buildReport(inPath, outPath string, total, kept, written int, stageCounts, errorCounts map[string]int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Input:  %s\n", inPath)
	fmt.Fprintf(&sb, "Output: %s\n", outPath)
	fmt.Fprintf(&sb, "Total input rows: %d\n", total)
	fmt.Fprintf(&sb, "Kept rows:        %d\n", kept)
	fmt.Fprintf(&sb, "Written rows:     %d\n\n", written)

	sb.WriteString("Top stages:\n")
	for _, kv := range sortedCounts(stageCounts) {
		fmt.Fprintf(&sb, "  %s: %d\n", kv.key, kv.count)
	}
	sb.WriteString("\nTop errors:\n")
	for _, kv := range sortedCounts(errorCounts) {
		fmt.Fprintf(&sb, "  %s: %d\n", kv.key, kv.count)
	}
	return sb.String()
}

type countEntry struct {
	key   string
	count int
}

func sortedCounts(counts map[string]int) []countEntry {
	entries := make([]countEntry, 0, len(counts))
	for k, v := range counts {
		entries = append(entries, countEntry{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})
	return entries
}
