package review

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/studylog/fukushu/internal/domain"
)

// RecordAnswer applies one answer to the question identified by questionID,
// updating its summary fields in place and returning the history record to
// append. The tree is the caller's in-memory snapshot; persistence of both the
// updated question and the record is the caller's responsibility, and the two
// must be stored together.
//
// If the question is not in the tree, ErrQuestionNotFound is returned and
// nothing is mutated.
func RecordAnswer(tree domain.Tree, questionID string, isCorrect bool, answer domain.Understanding, now time.Time) (domain.QuestionRef, domain.AnswerRecord, error) {
	ref, err := tree.Find(questionID)
	if err != nil {
		return domain.QuestionRef{}, domain.AnswerRecord{}, err
	}
	q := ref.Question

	previous := q.Understanding
	step := NextInterval(q.Interval, isCorrect, answer, previous)

	q.CorrectRate = nextCorrectRate(q.CorrectRate, q.AnswerCount, isCorrect)
	q.AnswerCount++
	q.LastAnswered = &now

	next := now.AddDate(0, step.Months, step.Days)
	q.NextDate = &next
	q.Interval = step.Interval
	q.PreviousUnderstanding = previous
	q.Understanding = answer

	record := domain.AnswerRecord{
		ID:            uuid.NewString(),
		QuestionID:    questionID,
		IsCorrect:     isCorrect,
		Understanding: answer.String(),
		Timestamp:     now,
	}
	return ref, record, nil
}

// nextCorrectRate folds one answer into the running percentage. The raw
// correct count is never stored; it is recovered from rate × count.
func nextCorrectRate(rate, count int, isCorrect bool) int {
	if count == 0 {
		if isCorrect {
			return 100
		}
		return 0
	}
	correct := float64(rate) * float64(count) / 100
	if isCorrect {
		correct++
	}
	return int(math.Round(correct / float64(count+1) * 100))
}

// Summary is the scheduling state of a question as derived purely from its
// history stream.
type Summary struct {
	Understanding domain.Understanding
	CorrectRate   int
	AnswerCount   int
	LastAnswered  *time.Time
}

// ReconstructFromHistory replays a single question's records in timestamp
// order and rebuilds the summary fields. The question's stored summary must
// always agree with this replay; tests use it to assert the cache and the log
// never diverge. Malformed records are skipped.
func ReconstructFromHistory(questionID string, history []domain.AnswerRecord) Summary {
	records := make([]domain.AnswerRecord, 0, len(history))
	for _, r := range history {
		if r.QuestionID == questionID && r.Valid() {
			records = append(records, r)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	var s Summary
	for _, r := range records {
		s.CorrectRate = nextCorrectRate(s.CorrectRate, s.AnswerCount, r.IsCorrect)
		s.AnswerCount++
		ts := r.Timestamp
		s.LastAnswered = &ts
		s.Understanding = domain.ParseUnderstanding(r.Understanding)
	}
	return s
}
