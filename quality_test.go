package soruengine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"soruengine"
)

func TestIsNegativeStem(t *testing.T) {
	require := require.New(t)

	require.True(soruengine.IsNegativeStem("Bu parçadan aşağıdakilerin hangisine ulaşılamaz?"))
	require.True(soruengine.IsNegativeStem("Aşağıdakilerden hangisi söylenemez?"))
	require.False(soruengine.IsNegativeStem("Bu metinde anlatılmak istenen aşağıdakilerden hangisidir?"))
}

func TestLazyOptionPenalty(t *testing.T) {
	require := require.New(t)

	require.Equal(0.0, soruengine.LazyOptionPenalty([]string{
		"Okumak faydalıdır.", "Spor sağlıklıdır.", "Uyku önemlidir.", "Su içmek gereklidir.",
	}))
	require.Equal(0.25, soruengine.LazyOptionPenalty([]string{
		"Okumak faydalıdır.", "Yukarıdakilerin hepsi", "Uyku önemlidir.", "Su içmek gereklidir.",
	}))
}

func TestOptionLengthPenalty(t *testing.T) {
	require := require.New(t)

	require.Equal(0.0, soruengine.OptionLengthPenalty([]string{"aynı boy", "aynı boy", "aynı boy", "aynı boy"}))
	require.Equal(1.0, soruengine.OptionLengthPenalty([]string{
		"kısa",
		"bu seçenek diğerlerinden çok ama çok daha uzun, bitmek bilmeyen bir cümle olarak yazılmıştır",
	}))
}

func TestOptionParallelismScore(t *testing.T) {
	require := require.New(t)

	parallel := []string{
		"Okumak insanın bakış açısını genişletir.",
		"Kitaplar farklı dünyaların kapısını açar.",
		"Her sayfa yeni bir şeyler öğretir.",
		"Düzenli okuma küçük yaşta kazanılmalıdır.",
	}
	require.Equal(1.0, soruengine.OptionParallelismScore(parallel))

	ragged := []string{
		"Okumak insanın bakış açısını genişletir.",
		"hepsi",
		"KİTAP",
		"Her sayfa yeni bir şeyler öğretir",
	}
	require.Less(soruengine.OptionParallelismScore(ragged), 1.0)
}

func TestCoveragePenalty(t *testing.T) {
	require := require.New(t)

	clean := map[string]string{
		"A": "Okumak ufku genişletir.",
		"B": "Spor bedeni güçlendirir.",
		"C": "Uyku zihni dinlendirir.",
		"D": "Su yaşam için gereklidir.",
	}
	require.Equal(0.0, soruengine.CoveragePenalty(clean, "A"))

	leaky := map[string]string{
		"A": "Okumak ufku genişletir.",
		"B": "Okumak ufku genişletir ve zenginleştirir.",
		"C": "Uyku zihni dinlendirir.",
		"D": "Su yaşam için gereklidir.",
	}
	require.Greater(soruengine.CoveragePenalty(leaky, "A"), 0.5)
}

func TestOptionRepetitionPenalty(t *testing.T) {
	require := require.New(t)

	require.Equal(0.0, soruengine.OptionRepetitionPenalty([]string{
		"Okumak ufku genişletir.", "Spor bedeni güçlendirir.", "Uyku zihni dinlendirir.", "Su hayattır.",
	}))
	require.Greater(soruengine.OptionRepetitionPenalty([]string{
		"Okumak ufku genişletir.", "Okumak ufku genişletir.", "Okumak ufku genişletir.", "Okumak ufku genişletir.",
	}), 0.5)
}

func TestQualityCheckCleanCandidate(t *testing.T) {
	require := require.New(t)

	report := soruengine.QualityCheck(validCandidate("paragraf_ana_dusunce"))
	require.True(report.OK)
	require.Equal(100, report.Score)
	require.Empty(report.Issues)
}

func TestQualityCheckRejectsPoorOptions(t *testing.T) {
	require := require.New(t)

	c := validCandidate("paragraf_ana_dusunce")
	c.ChoiceA = "Okumak güzeldir."
	c.ChoiceB = "Hepsi"
	c.ChoiceC = "Yukarıdakilerin hepsi"
	c.ChoiceD = "Okumak güzeldir ve faydalıdır."

	report := soruengine.QualityCheck(c)
	require.False(report.OK)
	require.Less(report.Score, 70)
	require.NotEmpty(report.Issues)
}
