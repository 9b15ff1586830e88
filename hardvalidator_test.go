package soruengine_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"soruengine"
)

func validCandidate(qtype string) *soruengine.Candidate {
	return &soruengine.Candidate{
		Text: "Kitap okumak insanın ufkunu genişletir. Her yeni sayfa farklı bir dünyanın kapısını aralar. " +
			"Okuyan insan olaylara daha geniş bir açıdan bakar. Bu yüzden okuma alışkanlığı küçük yaşta kazanılmalıdır.",
		Stem:          "Bu metinde anlatılmak istenen aşağıdakilerden hangisidir?",
		ChoiceA:       "Okumak insanın bakış açısını genişletir.",
		ChoiceB:       "Kitaplar yalnızca ders çalışmak için gereklidir.",
		ChoiceC:       "Okuma alışkanlığı yaşla birlikte kendiliğinden gelişir.",
		ChoiceD:       "Her kitap okuyucusuna aynı dünyayı anlatır.",
		CorrectAnswer: "A",
		QuestionType:  qtype,
	}
}

func TestHardValidatorAcceptsValidCandidate(t *testing.T) {
	require := require.New(t)

	res := soruengine.NewHardValidator().Validate(validCandidate("paragraf_ana_dusunce"))
	require.True(res.OK)
	require.Empty(res.Errors)
	require.Equal(1.0, res.Score)
}

func TestHardValidatorMissingFields(t *testing.T) {
	hv := soruengine.NewHardValidator()

	mutations := map[string]func(*soruengine.Candidate){
		"missing_soru":          func(c *soruengine.Candidate) { c.Stem = "" },
		"missing_sik_a":         func(c *soruengine.Candidate) { c.ChoiceA = "" },
		"missing_sik_b":         func(c *soruengine.Candidate) { c.ChoiceB = "  " },
		"missing_sik_c":         func(c *soruengine.Candidate) { c.ChoiceC = "" },
		"missing_sik_d":         func(c *soruengine.Candidate) { c.ChoiceD = "" },
		"missing_dogru_cevap":   func(c *soruengine.Candidate) { c.CorrectAnswer = "" },
		"missing_question_type": func(c *soruengine.Candidate) { c.QuestionType = "" },
	}

	for code, mutate := range mutations {
		t.Run(code, func(t *testing.T) {
			require := require.New(t)
			c := validCandidate("paragraf_ana_dusunce")
			mutate(c)

			res := hv.Validate(c)
			require.False(res.OK)
			require.Contains(res.Errors, code)
			require.Equal(0.0, res.Score)
		})
	}
}

func TestHardValidatorInvalidAnswerLetter(t *testing.T) {
	require := require.New(t)

	c := validCandidate("paragraf_ana_dusunce")
	c.CorrectAnswer = "E"
	res := soruengine.NewHardValidator().Validate(c)
	require.False(res.OK)
	require.Contains(res.Errors, soruengine.ErrInvalidAnswerLetter)
}

func TestHardValidatorDuplicateChoices(t *testing.T) {
	require := require.New(t)

	c := validCandidate("paragraf_ana_dusunce")
	// duplicates survive normalization differences
	c.ChoiceC = "  okumak insanın bakış açısını genişletir!  "
	res := soruengine.NewHardValidator().Validate(c)
	require.False(res.OK)
	require.Contains(res.Errors, soruengine.ErrDuplicateChoices)
}

func TestHardValidatorShortStemAndText(t *testing.T) {
	require := require.New(t)

	c := validCandidate("paragraf_ana_dusunce")
	c.Stem = "Kısa soru?"
	c.Text = "Çok kısa metin."
	res := soruengine.NewHardValidator().Validate(c)
	require.False(res.OK)
	require.Contains(res.Errors, soruengine.ErrStemTooShort)
	require.Contains(res.Errors, soruengine.ErrTextTooShort)
}

func TestHardValidatorRepetitionLoop(t *testing.T) {
	require := require.New(t)

	c := validCandidate("paragraf_ana_dusunce")
	c.Text = "Kedi bahçede oynadı. Kedi bahçede oynadı. Kedi bahçede oynadı."
	res := soruengine.NewHardValidator().Validate(c)
	require.False(res.OK)
	require.Contains(res.Errors, soruengine.ErrTextRepetitionLoop)
}

func TestHardValidatorGarbageTokens(t *testing.T) {
	require := require.New(t)

	c := validCandidate("paragraf_ana_dusunce")
	c.Text = "Normal başlangıç ama sonra aaaaa" + strings.Repeat("!", 3) + " devam ediyor burada."
	res := soruengine.NewHardValidator().Validate(c)
	require.False(res.OK)
	require.Contains(res.Errors, soruengine.ErrGarbageTokens)
}

func TestHardValidatorCollectsAllErrors(t *testing.T) {
	require := require.New(t)

	c := validCandidate("paragraf_ana_dusunce")
	c.Stem = "Neden böyle oldu ki?"
	c.CorrectAnswer = "X"
	c.ChoiceB = c.ChoiceA
	res := soruengine.NewHardValidator().Validate(c)
	require.False(res.OK)
	require.Contains(res.Errors, soruengine.ErrInvalidAnswerLetter)
	require.Contains(res.Errors, soruengine.ErrDuplicateChoices)
}
