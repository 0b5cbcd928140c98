// Package trend derives fragile-mastery signals from the answer-history
// stream: revert detection, long-stagnation, and the ambiguous-count time
// series. Everything here is read-only over the tree and the history.
package trend

import (
	"sort"
	"time"

	"github.com/studylog/fukushu/internal/domain"
)

// SimpleRevert reports a question whose last two answers went from understood
// to ambiguous.
type SimpleRevert struct {
	QuestionID       string    `json:"questionId"`
	QuestionText     string    `json:"questionText"`
	SubjectName      string    `json:"subjectName"`
	ChapterName      string    `json:"chapterName"`
	LastUnderstoodAt time.Time `json:"lastUnderstoodAt"`
	RevertedAt       time.Time `json:"revertedAt"`
}

// RevertCycle reports the first full ambiguous → understood → ambiguous walk
// in a question's history.
type RevertCycle struct {
	QuestionID       string    `json:"questionId"`
	QuestionText     string    `json:"questionText"`
	SubjectName      string    `json:"subjectName"`
	ChapterName      string    `json:"chapterName"`
	FirstAmbiguousAt time.Time `json:"firstAmbiguousAt"`
	UnderstoodAt     time.Time `json:"understoodAt"`
	RevertedAt       time.Time `json:"revertedAt"`
}

// walk states for cycle detection. This automaton is derived only; it is
// never written back to the question record.
type cycleState int

const (
	stateInitial cycleState = iota
	stateUnderstoodFirst
	stateAmbiguous
	stateUnderstood
	stateReverted
)

// SimpleReverts scans every question's history and reports those whose final
// two records are 理解○ followed by 曖昧△.
func SimpleReverts(tree domain.Tree, history []domain.AnswerRecord) []SimpleRevert {
	grouped := groupByQuestion(history)
	reverts := []SimpleRevert{}
	tree.Walk(func(s *domain.Subject, c *domain.Chapter, q *domain.Question) {
		records := grouped[q.ID]
		if len(records) < 2 {
			return
		}
		last := records[len(records)-1]
		prev := records[len(records)-2]
		if domain.ParseUnderstanding(last.Understanding).Kind != domain.Ambiguous {
			return
		}
		if domain.ParseUnderstanding(prev.Understanding).Kind != domain.Understood {
			return
		}
		reverts = append(reverts, SimpleRevert{
			QuestionID:       q.ID,
			QuestionText:     q.Text,
			SubjectName:      s.Name,
			ChapterName:      c.Name,
			LastUnderstoodAt: prev.Timestamp,
			RevertedAt:       last.Timestamp,
		})
	})
	return reverts
}

// CompleteRevertCycles walks each question's history through the cycle
// automaton and reports the first completed cycle. Later cycles in the same
// history are not reported.
func CompleteRevertCycles(tree domain.Tree, history []domain.AnswerRecord) []RevertCycle {
	grouped := groupByQuestion(history)
	cycles := []RevertCycle{}
	tree.Walk(func(s *domain.Subject, c *domain.Chapter, q *domain.Question) {
		cycle, ok := detectCycle(grouped[q.ID])
		if !ok {
			return
		}
		cycle.QuestionID = q.ID
		cycle.QuestionText = q.Text
		cycle.SubjectName = s.Name
		cycle.ChapterName = c.Name
		cycles = append(cycles, cycle)
	})
	return cycles
}

func detectCycle(records []domain.AnswerRecord) (RevertCycle, bool) {
	var cycle RevertCycle
	state := stateInitial
	for _, r := range records {
		kind := domain.ParseUnderstanding(r.Understanding).Kind
		switch state {
		case stateInitial:
			if kind == domain.Ambiguous {
				state = stateAmbiguous
				cycle.FirstAmbiguousAt = r.Timestamp
			} else if kind == domain.Understood {
				state = stateUnderstoodFirst
			}
		case stateUnderstoodFirst:
			if kind == domain.Ambiguous {
				state = stateAmbiguous
				cycle.FirstAmbiguousAt = r.Timestamp
			}
		case stateAmbiguous:
			if kind == domain.Understood {
				state = stateUnderstood
				cycle.UnderstoodAt = r.Timestamp
			}
		case stateUnderstood:
			if kind == domain.Ambiguous {
				cycle.RevertedAt = r.Timestamp
				return cycle, true
			}
		}
	}
	return RevertCycle{}, false
}

// groupByQuestion buckets valid records by question id, sorted ascending by
// timestamp. The sort is stable so identical timestamps keep insertion order
// and replay stays deterministic.
func groupByQuestion(history []domain.AnswerRecord) map[string][]domain.AnswerRecord {
	grouped := make(map[string][]domain.AnswerRecord)
	for _, r := range history {
		if !r.Valid() {
			continue
		}
		grouped[r.QuestionID] = append(grouped[r.QuestionID], r)
	}
	for id := range grouped {
		records := grouped[id]
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].Timestamp.Before(records[j].Timestamp)
		})
		grouped[id] = records
	}
	return grouped
}
