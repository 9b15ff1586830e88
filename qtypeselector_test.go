package soruengine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"soruengine"
)

func newSelector() *soruengine.QuestionTypeSelector {
	return soruengine.NewQuestionTypeSelector(testContract())
}

func TestSelectorExplicitType(t *testing.T) {
	require := require.New(t)
	sel := newSelector()

	got, err := sel.Select(soruengine.ModeExplicit, "", "paragraf_ana_dusunce", nil)
	require.NoError(err)
	require.Equal("paragraf_ana_dusunce", got)

	// unknown explicit type is an error, never a silent default
	_, err = sel.Select(soruengine.ModeExplicit, "", "olmayan_tip", nil)
	require.Error(err)
	require.Contains(err.Error(), "olmayan_tip")

	_, err = sel.Select(soruengine.ModeExplicit, "", "", nil)
	require.Error(err)
}

func TestSelectorFamilyMode(t *testing.T) {
	require := require.New(t)
	sel := newSelector()

	got, err := sel.Select(soruengine.ModeFamily, "Paragraf", "", nil)
	require.NoError(err)
	require.Equal("paragraf_ana_dusunce", got)

	_, err = sel.Select(soruengine.ModeFamily, "Bilinmeyen Aile", "", nil)
	require.Error(err)

	_, err = sel.Select(soruengine.ModeFamily, "", "", nil)
	require.Error(err)
}

func TestSelectorMixedMode(t *testing.T) {
	require := require.New(t)
	sel := newSelector()

	all := sel.Types("")
	for i := 0; i < 20; i++ {
		got, err := sel.Select(soruengine.ModeMixed, "", "", nil)
		require.NoError(err)
		require.Contains(all, got)
	}

	// empty mode defaults to mixed
	got, err := sel.Select("", "", "", nil)
	require.NoError(err)
	require.Contains(all, got)

	_, err = sel.Select("rastgele", "", "", nil)
	require.Error(err)
}

func TestSelectorSeedDeterminism(t *testing.T) {
	require := require.New(t)
	sel := newSelector()

	seed := int64(42)
	first, err := sel.Select(soruengine.ModeMixed, "", "", &seed)
	require.NoError(err)
	for i := 0; i < 10; i++ {
		got, err := sel.Select(soruengine.ModeMixed, "", "", &seed)
		require.NoError(err)
		require.Equal(first, got)
	}
}

func TestSelectorFamiliesAndTypes(t *testing.T) {
	require := require.New(t)
	sel := newSelector()

	require.Equal([]string{"Cumlede Anlam", "Paragraf", "Sozcukte Anlam"}, sel.Families())
	require.Equal([]string{"sozcukte_anlam_cok_anlamlilik"}, sel.Types("Sozcukte Anlam"))
	require.Len(sel.Types(""), 3)
	require.Empty(sel.Types("Bilinmeyen Aile"))
}
