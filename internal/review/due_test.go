package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/studylog/fukushu/internal/domain"
)

func ptr(t time.Time) *time.Time { return &t }

func dueTree(day time.Time) domain.Tree {
	return domain.Tree{
		{ID: "s1", Name: "憲法", Color: "#ef4444", Chapters: []domain.Chapter{
			{ID: "c1", Name: "人権", Questions: []domain.Question{
				{ID: "Q10", NextDate: ptr(day)},
				{ID: "Q9", NextDate: ptr(day)},
				{ID: "Q2", NextDate: ptr(day.AddDate(0, 0, -3))},
				{ID: "Q3"}, // never scheduled
			}},
		}},
		{ID: "s2", Name: "民法", Chapters: []domain.Chapter{
			{ID: "c2", Name: "物権", Questions: []domain.Question{
				{ID: "Q1", NextDate: ptr(day.AddDate(0, 0, 1))},
			}},
		}},
	}
}

func TestDueOnExactDayMatch(t *testing.T) {
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.Local)
	tree := dueTree(day)

	due := DueOn(tree, day)
	ids := make([]string, 0, len(due))
	for _, d := range due {
		ids = append(ids, d.ID)
	}
	// Natural ordering: Q9 before Q10.
	assert.Equal(t, []string{"Q9", "Q10"}, ids)

	assert.Empty(t, DueOn(tree, day.AddDate(0, 0, -1)))

	// Time of day on the reference date does not matter.
	evening := day.Add(23 * time.Hour)
	assert.Len(t, DueOn(tree, evening), 2)
}

func TestDueOnOrBeforeCatchUp(t *testing.T) {
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.Local)
	tree := dueTree(day)

	due := DueOnOrBefore(tree, day)
	ids := make([]string, 0, len(due))
	for _, d := range due {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"Q2", "Q9", "Q10"}, ids)

	// Overdue questions remain selected on later dates too.
	later := DueOnOrBefore(tree, day.AddDate(0, 0, 5))
	assert.Len(t, later, 4)
}

func TestDueAttachesOwnership(t *testing.T) {
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.Local)
	due := DueOn(dueTree(day), day)
	assert.Equal(t, "憲法", due[0].SubjectName)
	assert.Equal(t, "人権", due[0].ChapterName)
	assert.Equal(t, "#ef4444", due[0].SubjectColor)
}

func TestDueEmptyTreeIsEmptyList(t *testing.T) {
	assert.Empty(t, DueOn(domain.Tree{}, time.Now()))
	assert.Empty(t, DueOnOrBefore(nil, time.Now()))
}

func TestNaturalLess(t *testing.T) {
	testCases := []struct {
		a, b string
		less bool
	}{
		{"Q9", "Q10", true},
		{"Q10", "Q9", false},
		{"Q2", "Q2", false},
		{"Q2-3", "Q2-10", true},
		{"A1", "B1", true},
		{"Q01", "Q1", true}, // equal value, narrower width wins
		{"Q", "Q1", true},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.less, naturalLess(tc.a, tc.b), "%s < %s", tc.a, tc.b)
	}
}
