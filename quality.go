package soruengine

import (
	"regexp"
	"strings"
)

// Heuristic quality scoring over answer options. These checks rank and
// filter candidates on form: distractors in real exam questions are
// parallel in shape, carry no lazy meta-choices and do not paraphrase the
// correct answer.

// Lazy meta-options ("hepsi", "hiçbiri", "yukarıdakilerin hepsi" ...) that
// undermine the discriminative power of a question.
var lazyOptionRes = []*regexp.Regexp{
	regexp.MustCompile(`yukarıdak(ilerin|i) hepsi`),
	regexp.MustCompile(`yukarıdak(ilerin|i) hiçbiri`),
	regexp.MustCompile(`hiçbiri`),
	regexp.MustCompile(`hepsi`),
	regexp.MustCompile(`hiç bir(i)?`),
}

// Negative stems flip the task: the keyed answer is the one NOT supported by
// the text.
var negativeStemKeywords = []string{
	"ulaşılamaz", "söylenemez", "değinilmemiştir", "yoktur", "değildir",
	"kullanılmamıştır", "uyuşmamaktadır", "bulunmaz", "örnek olamaz",
}

var verbSuffixRe = regexp.MustCompile(`\b(mak|mek|dır|dir|tır|tir|miştir|mıştır|yor|dı|di|du|dü)\b`)

// IsNegativeStem reports whether the stem asks for the unsupported option.
func IsNegativeStem(stem string) bool {
	s := strings.ToLower(stem)
	for _, kw := range negativeStemKeywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// OptionParallelismScore measures how uniform the options are in shape.
// Five features per option: sentence-final punctuation, capitalized start,
// verb suffix presence, lazy phrasing, four-plus words. For each feature the
// majority share is taken; the score is the mean share, 1.0 for perfectly
// parallel options.
func OptionParallelismScore(options []string) float64 {
	if len(options) == 0 {
		return 1.0
	}
	const features = 5
	shapes := make([][features]bool, 0, len(options))
	for _, opt := range options {
		s := strings.TrimSpace(opt)
		lower := strings.ToLower(s)
		shapes = append(shapes, [features]bool{
			strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?"),
			startsUpper(s),
			verbSuffixRe.MatchString(lower),
			strings.Contains(lower, "hepsi") || strings.Contains(lower, "hiçbiri") || strings.Contains(lower, "yukarıdak"),
			WordCount(s) >= 4,
		})
	}
	total := 0.0
	for f := 0; f < features; f++ {
		trues := 0
		for _, shape := range shapes {
			if shape[f] {
				trues++
			}
		}
		majority := trues
		if len(shapes)-trues > majority {
			majority = len(shapes) - trues
		}
		total += float64(majority) / float64(len(shapes))
	}
	return total / features
}

func startsUpper(s string) bool {
	for _, r := range s {
		return strings.ToUpper(string(r)) == string(r) && strings.ToLower(string(r)) != string(r)
	}
	return false
}

// LazyOptionPenalty returns the share of options matching a lazy pattern.
func LazyOptionPenalty(options []string) float64 {
	if len(options) == 0 {
		return 0.0
	}
	lazy := 0
	for _, opt := range options {
		s := strings.ToLower(opt)
		for _, re := range lazyOptionRes {
			if re.MatchString(s) {
				lazy++
				break
			}
		}
	}
	return float64(lazy) / float64(len(options))
}

// CoveragePenalty penalizes distractors that subsume the correct answer's
// wording. For every wrong option the share of the correct answer's tokens
// it reuses is computed; shares above 0.5 count, and the penalty is their
// mean.
func CoveragePenalty(options map[string]string, correct string) float64 {
	correctTokens := tokenSet(options[correct])
	if len(correctTokens) == 0 {
		return 0.0
	}
	var overlaps []float64
	for label, text := range options {
		if label == correct {
			continue
		}
		wrongTokens := tokenSet(text)
		if len(wrongTokens) == 0 {
			continue
		}
		inter := 0
		for tok := range wrongTokens {
			if correctTokens[tok] {
				inter++
			}
		}
		sim := float64(inter) / float64(len(correctTokens))
		if sim > 0.5 {
			overlaps = append(overlaps, sim)
		}
	}
	if len(overlaps) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, o := range overlaps {
		sum += o
	}
	return sum / float64(len(overlaps))
}

// OptionLengthPenalty penalizes large character-length spread among options.
// A spread up to 40 characters is fine; beyond that the penalty grows
// linearly and saturates at 1.0.
func OptionLengthPenalty(options []string) float64 {
	if len(options) == 0 {
		return 1.0
	}
	minLen, maxLen := -1, 0
	for _, opt := range options {
		n := len([]rune(strings.TrimSpace(opt)))
		if minLen < 0 || n < minLen {
			minLen = n
		}
		if n > maxLen {
			maxLen = n
		}
	}
	span := float64(maxLen - minLen)
	if span > 80 {
		return 1.0
	}
	return span / 80.0
}

// OptionRepetitionPenalty penalizes excessive lexical overlap between
// options. Mean pairwise Jaccard similarity above 0.35 is returned as the
// excess, otherwise zero.
func OptionRepetitionPenalty(options []string) float64 {
	sets := make([]map[string]bool, 0, len(options))
	for _, opt := range options {
		sets = append(sets, tokenSet(opt))
	}
	var overlaps []float64
	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); j++ {
			union := map[string]bool{}
			inter := 0
			for tok := range sets[i] {
				union[tok] = true
			}
			for tok := range sets[j] {
				if union[tok] {
					inter++
				}
				union[tok] = true
			}
			if len(union) > 0 {
				overlaps = append(overlaps, float64(inter)/float64(len(union)))
			}
		}
	}
	if len(overlaps) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, o := range overlaps {
		sum += o
	}
	avg := sum / float64(len(overlaps))
	if avg <= 0.35 {
		return 0.0
	}
	return avg - 0.35
}

func tokenSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, tok := range wordRe.FindAllString(strings.ToLower(s), -1) {
		set[tok] = true
	}
	return set
}

// QualityReport is the outcome of the heuristic quality check. Score starts
// at 100 and each issue subtracts a weighted amount; below 70 the candidate
// is considered unacceptable.
type QualityReport struct {
	OK     bool     `json:"ok"`
	Score  int      `json:"score"`
	Issues []string `json:"issues"`
}

// QualityCheck runs all option heuristics over a candidate and aggregates
// them into a single 0-100 report.
func QualityCheck(c *Candidate) QualityReport {
	opts := c.Choices()
	report := QualityReport{OK: true, Score: 100}
	flag := func(issue string, penalty int) {
		report.Issues = append(report.Issues, issue)
		report.Score -= penalty
	}

	if !validAnswers[strings.ToUpper(strings.TrimSpace(c.CorrectAnswer))] {
		flag("correct answer is not one of A-D", 15)
	}

	if lp := OptionLengthPenalty(opts); lp > 0.6 {
		flag("option lengths differ too much", int(20*lp))
	}
	if ps := OptionParallelismScore(opts); ps < 0.6 {
		flag("options are not structurally parallel", int((0.6-ps)*30))
	}
	if rp := OptionRepetitionPenalty(opts); rp > 0 {
		flag("options share too much wording", int(25*rp))
	}
	if lazy := LazyOptionPenalty(opts); lazy > 0 {
		flag("lazy option detected (hepsi/hiçbiri)", int(15*lazy))
	}
	if cov := CoveragePenalty(c.ChoiceMap(), strings.ToUpper(strings.TrimSpace(c.CorrectAnswer))); cov > 0 {
		flag("correct answer wording duplicated in a distractor", int(25*cov))
	}
	if IsNegativeStem(c.Stem) {
		flag("negative stem: keyed answer must be the unsupported one", 3)
	}

	if report.Score < 0 {
		report.Score = 0
	}
	if report.Score < 70 {
		report.OK = false
	}
	return report
}
