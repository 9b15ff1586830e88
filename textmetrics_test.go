package soruengine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"soruengine"
)

func TestWordCount(t *testing.T) {
	require := require.New(t)
	require.Equal(0, soruengine.WordCount(""))
	require.Equal(3, soruengine.WordCount("Kedi bahçede oynadı."))
	require.Equal(5, soruengine.WordCount("Çocuklar şarkı söyleyip gülüyorlardı, neşeyle."))
	require.Equal(2, soruengine.WordCount("  iki   kelime  "))
}

func TestSentenceCount(t *testing.T) {
	require := require.New(t)
	require.Equal(0, soruengine.SentenceCount(""))
	require.Equal(1, soruengine.SentenceCount("Tek cümle var."))
	require.Equal(3, soruengine.SentenceCount("Bir. İki! Üç?"))
	require.Equal(2, soruengine.SentenceCount("Noktasız biter. Sonuncu cümle"))
	require.Equal(1, soruengine.SentenceCount("Üç nokta... "))
}

func TestHasRepetitionLoopBlocks(t *testing.T) {
	require := require.New(t)

	looping := "Ali okula gitti. Hava güzeldi. Ali okula gitti. Hava güzeldi."
	require.True(soruengine.HasRepetitionLoop(looping, 2))

	clean := "Ali okula gitti. Hava güzeldi. Dersler başladı. Akşam eve döndü. Kitap okudu."
	require.False(soruengine.HasRepetitionLoop(clean, 2))

	// too few sentences for a block comparison
	require.False(soruengine.HasRepetitionLoop("Bir. İki. Üç.", 3))
}

func TestHasRepetitionSignals(t *testing.T) {
	require := require.New(t)

	// same sentence three times
	require.True(soruengine.HasRepetitionSignals("Kedi bahçede oynadı. Kedi bahçede oynadı. Kedi bahçede oynadı."))

	// adjacent repeat
	require.True(soruengine.HasRepetitionSignals("Önce bunu düşündüm. Önce bunu düşündüm. Sonra vazgeçtim."))

	// repeat within the last three sentences
	require.True(soruengine.HasRepetitionSignals("Giriş cümlesi burada. Sonra olaylar gelişti. Akşam oldu. Sonra olaylar gelişti."))

	require.False(soruengine.HasRepetitionSignals("Sabah erken kalktım. Kahvaltı ettim. Okula yürüdüm. Derse girdim."))
	require.False(soruengine.HasRepetitionSignals("Kısa metin."))
}

func TestExtractHighlightSpans(t *testing.T) {
	require := require.New(t)

	require.Nil(soruengine.ExtractHighlightSpans(""))
	require.Nil(soruengine.ExtractHighlightSpans("işaret yok burada"))

	spans := soruengine.ExtractHighlightSpans("Bu [u]altı çizili[/u] bir metin ve [u]ikinci ifade[/u] var.")
	require.Equal([]string{"altı çizili", "ikinci ifade"}, spans)

	// empty spans are dropped
	require.Nil(soruengine.ExtractHighlightSpans("boş [u]  [/u] işaret"))
}

func TestHighlightAppearsInText(t *testing.T) {
	require := require.New(t)

	// marked-span path
	require.True(soruengine.HighlightAppearsInText("Cümlede [u]göz attı[/u] ifadesi geçiyor.", "göz attı"))

	// plain-substring path
	require.True(soruengine.HighlightAppearsInText("Cümlede göz attı ifadesi geçiyor.", "göz attı"))

	// whitespace normalization on both sides
	require.True(soruengine.HighlightAppearsInText("Cümlede göz   attı ifadesi geçiyor.", " göz attı "))

	require.False(soruengine.HighlightAppearsInText("Bu metinde o ifade yok.", "göz attı"))
	require.False(soruengine.HighlightAppearsInText("", "göz attı"))
	require.False(soruengine.HighlightAppearsInText("Metin var.", ""))
}

func TestNormalizeForComparisonIdempotent(t *testing.T) {
	require := require.New(t)

	inputs := []string{
		"  Büyük   HARFLİ  metin!  ",
		"noktalama, işaretli; cümle.",
		"zaten normalize",
		"",
		"Çğıöşü ÜŞÖÇİ",
	}
	for _, in := range inputs {
		once := soruengine.NormalizeForComparison(in)
		twice := soruengine.NormalizeForComparison(once)
		require.Equal(once, twice, "normalization must be idempotent for %q", in)
	}

	require.Equal("merhaba dünya", soruengine.NormalizeForComparison("  Merhaba,   Dünya!  "))
}
