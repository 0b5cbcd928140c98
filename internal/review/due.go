package review

import (
	"sort"
	"time"

	"github.com/studylog/fukushu/internal/domain"
)

// DueQuestion is a question selected for review, denormalized with its owning
// subject and chapter for display.
type DueQuestion struct {
	domain.Question
	SubjectName  string `json:"subjectName"`
	SubjectColor string `json:"subjectColor"`
	ChapterName  string `json:"chapterName"`
}

// DueOn returns the questions whose next date, normalized to midnight, falls
// exactly on the given date. Questions without a next date are skipped.
func DueOn(tree domain.Tree, date time.Time) []DueQuestion {
	return selectDue(tree, date, func(next, ref time.Time) bool {
		return next.Equal(ref)
	})
}

// DueOnOrBefore returns the questions due on or before the given date.
// Overdue questions stay selected until they are answered.
func DueOnOrBefore(tree domain.Tree, date time.Time) []DueQuestion {
	return selectDue(tree, date, func(next, ref time.Time) bool {
		return !next.After(ref)
	})
}

func selectDue(tree domain.Tree, date time.Time, match func(next, ref time.Time) bool) []DueQuestion {
	ref := Midnight(date)
	due := []DueQuestion{}
	tree.Walk(func(s *domain.Subject, c *domain.Chapter, q *domain.Question) {
		if q.NextDate == nil {
			return
		}
		next := Midnight(q.NextDate.In(date.Location()))
		if !match(next, ref) {
			return
		}
		due = append(due, DueQuestion{
			Question:     *q,
			SubjectName:  s.Name,
			SubjectColor: s.Color,
			ChapterName:  c.Name,
		})
	})
	sort.SliceStable(due, func(i, j int) bool {
		return naturalLess(due[i].ID, due[j].ID)
	})
	return due
}

// Midnight truncates a timestamp to its calendar date in its own location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// naturalLess compares two ids treating digit runs as numbers, so Q9 sorts
// before Q10. Equal-value runs with differing widths fall back to byte order.
func naturalLess(a, b string) bool {
	for len(a) > 0 && len(b) > 0 {
		if isDigit(a[0]) && isDigit(b[0]) {
			aNum, aRest := splitDigits(a)
			bNum, bRest := splitDigits(b)
			if aNum != bNum {
				// Compare numerically: strip leading zeros, then by
				// length, then lexically.
				at, bt := trimZeros(aNum), trimZeros(bNum)
				if len(at) != len(bt) {
					return len(at) < len(bt)
				}
				if at != bt {
					return at < bt
				}
				return aNum < bNum
			}
			a, b = aRest, bRest
			continue
		}
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func splitDigits(s string) (string, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

func trimZeros(s string) string {
	i := 0
	for i < len(s)-1 && s[i] == '0' {
		i++
	}
	return s[i:]
}
