package trend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studylog/fukushu/internal/domain"
)

func day(n int) time.Time {
	return time.Date(2026, 8, 1, 12, 0, 0, 0, time.Local).AddDate(0, 0, n)
}

func record(qid, understanding string, n int) domain.AnswerRecord {
	return domain.AnswerRecord{
		ID:            qid + "-" + understanding,
		QuestionID:    qid,
		IsCorrect:     true,
		Understanding: understanding,
		Timestamp:     day(n),
	}
}

func analyzerTree(ids ...string) domain.Tree {
	questions := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		questions = append(questions, domain.Question{ID: id, Text: "問" + id})
	}
	return domain.Tree{
		{ID: "s1", Name: "刑法", Chapters: []domain.Chapter{
			{ID: "c1", Name: "総論", Questions: questions},
		}},
	}
}

func TestSimpleRevertDetected(t *testing.T) {
	tree := analyzerTree("q1")
	history := []domain.AnswerRecord{
		record("q1", "理解○", 0),
		record("q1", "曖昧△:その他", 3),
	}

	reverts := SimpleReverts(tree, history)
	require.Len(t, reverts, 1)
	assert.Equal(t, "q1", reverts[0].QuestionID)
	assert.Equal(t, "刑法", reverts[0].SubjectName)
	assert.Equal(t, day(0), reverts[0].LastUnderstoodAt)
	assert.Equal(t, day(3), reverts[0].RevertedAt)
}

func TestSimpleRevertRequiresUnderstoodThenAmbiguous(t *testing.T) {
	tree := analyzerTree("q1")

	testCases := []struct {
		name    string
		history []domain.AnswerRecord
	}{
		{"single record", []domain.AnswerRecord{record("q1", "曖昧△", 0)}},
		{"ambiguous then understood", []domain.AnswerRecord{
			record("q1", "曖昧△", 0),
			record("q1", "理解○", 1),
		}},
		{"not-understood then ambiguous", []domain.AnswerRecord{
			record("q1", "理解できていない×", 0),
			record("q1", "曖昧△", 1),
		}},
		{"older revert masked by later answer", []domain.AnswerRecord{
			record("q1", "理解○", 0),
			record("q1", "曖昧△", 1),
			record("q1", "理解○", 2),
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Empty(t, SimpleReverts(tree, tc.history))
		})
	}
}

func TestSimpleRevertSortsOutOfOrderHistory(t *testing.T) {
	tree := analyzerTree("q1")
	// Records arrive unsorted; grouping must sort before the walk.
	history := []domain.AnswerRecord{
		record("q1", "曖昧△", 5),
		record("q1", "理解○", 2),
	}
	require.Len(t, SimpleReverts(tree, history), 1)
}

func TestCompleteRevertCycleFirstTripleWins(t *testing.T) {
	tree := analyzerTree("q1")
	// 理解○, 理解○, 曖昧△, 理解○, 曖昧△: exactly one cycle, built from the
	// first ambiguous, understood, ambiguous triple.
	history := []domain.AnswerRecord{
		record("q1", "理解○", 0),
		record("q1", "理解○", 1),
		record("q1", "曖昧△", 2),
		record("q1", "理解○", 3),
		record("q1", "曖昧△", 4),
	}

	cycles := CompleteRevertCycles(tree, history)
	require.Len(t, cycles, 1)
	assert.Equal(t, day(2), cycles[0].FirstAmbiguousAt)
	assert.Equal(t, day(3), cycles[0].UnderstoodAt)
	assert.Equal(t, day(4), cycles[0].RevertedAt)
}

func TestCompleteRevertCycleStopsAtFirst(t *testing.T) {
	tree := analyzerTree("q1")
	history := []domain.AnswerRecord{
		record("q1", "曖昧△", 0),
		record("q1", "理解○", 1),
		record("q1", "曖昧△", 2),
		record("q1", "理解○", 3),
		record("q1", "曖昧△", 4),
	}

	cycles := CompleteRevertCycles(tree, history)
	require.Len(t, cycles, 1)
	// The second cycle (days 2-4) is not reported.
	assert.Equal(t, day(0), cycles[0].FirstAmbiguousAt)
	assert.Equal(t, day(1), cycles[0].UnderstoodAt)
	assert.Equal(t, day(2), cycles[0].RevertedAt)
}

func TestCompleteRevertCycleIncomplete(t *testing.T) {
	tree := analyzerTree("q1")
	history := []domain.AnswerRecord{
		record("q1", "曖昧△", 0),
		record("q1", "理解○", 1),
	}
	assert.Empty(t, CompleteRevertCycles(tree, history))
}

func TestCyclesAreIndependentAcrossQuestions(t *testing.T) {
	tree := analyzerTree("q1", "q2")
	history := []domain.AnswerRecord{
		record("q1", "曖昧△", 0),
		record("q2", "理解○", 0),
		record("q1", "理解○", 1),
		record("q2", "曖昧△", 1),
		record("q1", "曖昧△", 2),
	}

	cycles := CompleteRevertCycles(tree, history)
	require.Len(t, cycles, 1)
	assert.Equal(t, "q1", cycles[0].QuestionID)
}

func TestAnalyzerSkipsMalformedRecords(t *testing.T) {
	tree := analyzerTree("q1")
	history := []domain.AnswerRecord{
		record("q1", "理解○", 0),
		{ID: "bad", Understanding: "曖昧△", Timestamp: day(1)},            // no question id
		{ID: "bad2", QuestionID: "q1", Understanding: "理解できていない×"}, // no timestamp
		record("q1", "曖昧△", 2),
	}
	require.Len(t, SimpleReverts(tree, history), 1)
}
