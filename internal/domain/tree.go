package domain

import "time"

// Interval labels, ordered from shortest review gap to longest. 未設定 marks a
// question that has never been scheduled.
const (
	IntervalUnset   = "未設定"
	Interval1Day    = "1日"
	Interval3Days   = "3日"
	Interval7Days   = "7日"
	Interval14Days  = "14日"
	Interval1Month  = "1ヶ月"
	Interval3Months = "3ヶ月"
	Interval6Months = "6ヶ月"
)

// Question is a single reviewable item. The scheduling fields are a
// materialized summary of the question's answer history and are only mutated
// by the review scheduler; Text and Comment are left alone.
type Question struct {
	ID                    string        `json:"id"`
	Text                  string        `json:"text"`
	Understanding         Understanding `json:"understanding"`
	PreviousUnderstanding Understanding `json:"previousUnderstanding"`
	Interval              string        `json:"interval"`
	CorrectRate           int           `json:"correctRate"`
	AnswerCount           int           `json:"answerCount"`
	LastAnswered          *time.Time    `json:"lastAnswered"`
	NextDate              *time.Time    `json:"nextDate"`
	Comment               string        `json:"comment"`
}

// Chapter owns an ordered collection of questions.
type Chapter struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// Subject owns an ordered collection of chapters. Subjects and chapters are
// pure containment and carry no scheduling state.
type Subject struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
	Chapters []Chapter `json:"chapters"`
}

// Tree is the full subject hierarchy loaded into memory.
type Tree []Subject

// QuestionRef points at a question inside the tree together with its owning
// subject and chapter, for in-place updates and display denormalization.
type QuestionRef struct {
	Subject  *Subject
	Chapter  *Chapter
	Question *Question
}

// Find locates a question by id. Returns ErrQuestionNotFound when absent.
func (t Tree) Find(questionID string) (QuestionRef, error) {
	for si := range t {
		for ci := range t[si].Chapters {
			for qi := range t[si].Chapters[ci].Questions {
				if t[si].Chapters[ci].Questions[qi].ID == questionID {
					return QuestionRef{
						Subject:  &t[si],
						Chapter:  &t[si].Chapters[ci],
						Question: &t[si].Chapters[ci].Questions[qi],
					}, nil
				}
			}
		}
	}
	return QuestionRef{}, ErrQuestionNotFound
}

// Walk visits every question in tree order.
func (t Tree) Walk(fn func(s *Subject, c *Chapter, q *Question)) {
	for si := range t {
		for ci := range t[si].Chapters {
			for qi := range t[si].Chapters[ci].Questions {
				fn(&t[si], &t[si].Chapters[ci], &t[si].Chapters[ci].Questions[qi])
			}
		}
	}
}

// AnswerRecord is an immutable, append-only log entry for a single answer.
// Understanding holds the post-answer composed string. The history stream is
// the source of truth; the question's summary fields must stay derivable from
// it by replay.
type AnswerRecord struct {
	ID            string    `json:"id"`
	QuestionID    string    `json:"questionId"`
	IsCorrect     bool      `json:"isCorrect"`
	Understanding string    `json:"understanding"`
	Timestamp     time.Time `json:"timestamp"`
}

// Valid reports whether the record carries the fields replay depends on.
// Malformed records are skipped during aggregation, never fatal.
func (r AnswerRecord) Valid() bool {
	return r.QuestionID != "" && !r.Timestamp.IsZero()
}
