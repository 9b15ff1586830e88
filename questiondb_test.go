package soruengine_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"soruengine"
)

func openTestDB(t *testing.T) *soruengine.DB {
	t.Helper()
	db, err := soruengine.OpenDB(filepath.Join(t.TempDir(), "sorular.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.CloseDB() })
	require.NoError(t, db.CreateTables())
	return db
}

func TestQuestionRoundTrip(t *testing.T) {
	require := require.New(t)
	db := openTestDB(t)

	run := &soruengine.DBRun{
		ID:           soruengine.NewID(),
		Prompt:       "teknoloji konulu bir soru üret",
		Mode:         soruengine.ModeExplicit,
		QuestionType: "paragraf_ana_dusunce",
		N:            5,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(db.CreateRun(run))

	q := &soruengine.GeneratedQuestion{
		ID:           soruengine.NewID(),
		RunID:        run.ID,
		QuestionType: "paragraf_ana_dusunce",
		Candidate:    validCandidate("paragraf_ana_dusunce"),
		TotalScore:   3.0,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(db.SaveQuestion(q))

	got, err := db.GetQuestion(q.ID)
	require.NoError(err)
	require.Equal(q.ID, got.ID)
	require.Equal(run.ID, got.RunID)
	require.Equal(3.0, got.TotalScore)
	require.NotNil(got.Candidate)
	require.Equal(q.Candidate.Stem, got.Candidate.Stem)
	require.Equal("A", got.Candidate.CorrectAnswer)
}

func TestGetQuestionNotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.GetQuestion("yok-boyle-bir-id")
	require.Error(t, err)
}

func TestGetQuestionsSkipsUnknownIDs(t *testing.T) {
	require := require.New(t)
	db := openTestDB(t)

	run := &soruengine.DBRun{ID: soruengine.NewID(), Prompt: "p", Mode: soruengine.ModeMixed, QuestionType: "t", N: 1, CreatedAt: time.Now().UTC()}
	require.NoError(db.CreateRun(run))

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		q := &soruengine.GeneratedQuestion{
			ID:           soruengine.NewID(),
			RunID:        run.ID,
			QuestionType: "paragraf_ana_dusunce",
			Candidate:    validCandidate("paragraf_ana_dusunce"),
			TotalScore:   2.5,
			CreatedAt:    time.Now().UTC(),
		}
		require.NoError(db.SaveQuestion(q))
		ids = append(ids, q.ID)
	}

	// request out of order with an unknown ID in the middle
	got, err := db.GetQuestions([]string{ids[2], "bilinmeyen", ids[0]})
	require.NoError(err)
	require.Len(got, 2)
	require.Equal(ids[2], got[0].ID)
	require.Equal(ids[0], got[1].ID)
}

func TestGetRecentQuestions(t *testing.T) {
	require := require.New(t)
	db := openTestDB(t)

	run := &soruengine.DBRun{ID: soruengine.NewID(), Prompt: "p", Mode: soruengine.ModeMixed, QuestionType: "t", N: 1, CreatedAt: time.Now().UTC()}
	require.NoError(db.CreateRun(run))

	base := time.Now().UTC().Add(-time.Hour)
	var newest string
	for i := 0; i < 4; i++ {
		q := &soruengine.GeneratedQuestion{
			ID:           soruengine.NewID(),
			RunID:        run.ID,
			QuestionType: "paragraf_ana_dusunce",
			Candidate:    validCandidate("paragraf_ana_dusunce"),
			TotalScore:   2.5,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(db.SaveQuestion(q))
		newest = q.ID
	}

	got, err := db.GetRecentQuestions(2)
	require.NoError(err)
	require.Len(got, 2)
	require.Equal(newest, got[0].ID)
}

func TestNewIDShape(t *testing.T) {
	require := require.New(t)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id := soruengine.NewID()
		require.Len(id, 12)
		seen[id] = true
	}
	require.Greater(len(seen), 1)
}
