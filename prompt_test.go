package soruengine_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"soruengine"
)

func TestWrapPrompt(t *testing.T) {
	require := require.New(t)

	rule := &soruengine.TypeRule{
		AllowedQuestionRoots: []string{
			"Bu parçanın ana düşüncesi aşağıdakilerden hangisidir?",
			"Bu parçada asıl anlatılmak istenen nedir?",
		},
	}
	got := soruengine.WrapPrompt("  teknoloji konulu bir soru üret  ", "paragraf_ana_dusunce", rule)

	require.True(strings.HasPrefix(got, "Soru tipi: paragraf_ana_dusunce\n"))
	require.Contains(got, "İzin verilen soru kökleri:")
	require.Contains(got, "- Bu parçada asıl anlatılmak istenen nedir?")
	require.True(strings.HasSuffix(got, "teknoloji konulu bir soru üret"))
}

func TestWrapPromptWithoutRoots(t *testing.T) {
	require := require.New(t)

	got := soruengine.WrapPrompt("bir soru üret", "cumlede_anlam_kosul", nil)
	require.Equal("Soru tipi: cumlede_anlam_kosul\nbir soru üret", got)
	require.NotContains(got, "soru kökleri")
}
