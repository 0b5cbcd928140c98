package trend

import (
	"math"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/studylog/fukushu/internal/domain"
)

// DefaultStagnationDays is the default threshold after which an unanswered
// ambiguous question counts as stagnant.
const DefaultStagnationDays = 30

// StagnantQuestion is a currently-ambiguous question that has gone unanswered
// for longer than the stagnation threshold.
type StagnantQuestion struct {
	QuestionID   string    `json:"questionId"`
	QuestionText string    `json:"questionText"`
	SubjectName  string    `json:"subjectName"`
	ChapterName  string    `json:"chapterName"`
	LastAnswered time.Time `json:"lastAnswered"`
	DaysSince    int       `json:"daysSince"`
}

// Stagnant returns the ambiguous questions whose last answer is strictly more
// than thresholdDays before now. Day counts compare midnight to midnight, so
// a question at exactly the threshold is not yet stagnant.
func Stagnant(tree domain.Tree, now time.Time, thresholdDays int) []StagnantQuestion {
	today := midnight(now)
	stagnant := []StagnantQuestion{}
	tree.Walk(func(s *domain.Subject, c *domain.Chapter, q *domain.Question) {
		if q.Understanding.Kind != domain.Ambiguous || q.LastAnswered == nil {
			return
		}
		days := daysBetween(midnight(q.LastAnswered.In(now.Location())), today)
		if days <= thresholdDays {
			return
		}
		stagnant = append(stagnant, StagnantQuestion{
			QuestionID:   q.ID,
			QuestionText: q.Text,
			SubjectName:  s.Name,
			ChapterName:  c.Name,
			LastAnswered: *q.LastAnswered,
			DaysSince:    days,
		})
	})
	return stagnant
}

// SubjectCount is the number of currently-ambiguous questions in one subject.
type SubjectCount struct {
	Subject string `json:"subject"`
	Count   int    `json:"count"`
}

// AmbiguousBySubject counts currently-ambiguous questions per subject, sorted
// descending by count with subject name as the tie-break.
func AmbiguousBySubject(tree domain.Tree) []SubjectCount {
	counts := make(map[string]int)
	tree.Walk(func(s *domain.Subject, _ *domain.Chapter, q *domain.Question) {
		if q.Understanding.Kind == domain.Ambiguous {
			counts[s.Name]++
		}
	})
	result := lo.MapToSlice(counts, func(name string, n int) SubjectCount {
		return SubjectCount{Subject: name, Count: n}
	})
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Subject < result[j].Subject
	})
	return result
}

// SeriesPoint is one sample of the "currently ambiguous" count. Date is a
// calendar-date string for daily points and a period label after resampling.
type SeriesPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

const seriesDateLayout = "2006-01-02"

// AmbiguousSeries replays the history stream in ascending timestamp order and
// tracks how many questions are in the ambiguous state over time. The
// last-known map is seeded from each question's current understanding before
// replay; the counter moves only on transitions into or out of ambiguous.
// One point is emitted per calendar date touched by the stream, plus a final
// point at stream end.
func AmbiguousSeries(tree domain.Tree, history []domain.AnswerRecord) []SeriesPoint {
	records := make([]domain.AnswerRecord, 0, len(history))
	for _, r := range history {
		if r.Valid() {
			records = append(records, r)
		}
	}
	if len(records) == 0 {
		return []SeriesPoint{}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	lastKnown := make(map[string]domain.UnderstandingKind)
	tree.Walk(func(_ *domain.Subject, _ *domain.Chapter, q *domain.Question) {
		lastKnown[q.ID] = q.Understanding.Kind
	})

	points := []SeriesPoint{}
	count := 0
	currentDate := records[0].Timestamp.Format(seriesDateLayout)
	for _, r := range records {
		date := r.Timestamp.Format(seriesDateLayout)
		if date != currentDate {
			points = append(points, SeriesPoint{Date: currentDate, Count: count})
			currentDate = date
		}

		kind := domain.ParseUnderstanding(r.Understanding).Kind
		prev := lastKnown[r.QuestionID]
		if prev != domain.Ambiguous && kind == domain.Ambiguous {
			count++
		} else if prev == domain.Ambiguous && kind != domain.Ambiguous {
			if count > 0 {
				count--
			}
		}
		lastKnown[r.QuestionID] = kind
	}
	points = append(points, SeriesPoint{Date: currentDate, Count: count})
	return points
}

// Granularity selects the resampling period for the ambiguous series.
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// Resample converts a daily series into weekly or monthly points. Each period
// takes the value in force at its end; periods without any daily point carry
// the previous value forward instead of dropping to zero. Weekly points are
// labeled by the Monday of the week, monthly points as YYYY-MM.
func Resample(daily []SeriesPoint, g Granularity) []SeriesPoint {
	if g == Daily || len(daily) == 0 {
		return daily
	}

	type bucket struct {
		label string
		start time.Time
	}
	periodOf := func(t time.Time) bucket {
		switch g {
		case Monthly:
			start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
			return bucket{label: start.Format("2006-01"), start: start}
		default:
			start := weekStart(t)
			return bucket{label: start.Format(seriesDateLayout), start: start}
		}
	}
	nextPeriod := func(b bucket) bucket {
		if g == Monthly {
			return periodOf(b.start.AddDate(0, 1, 0))
		}
		return periodOf(b.start.AddDate(0, 0, 7))
	}

	first, err := time.ParseInLocation(seriesDateLayout, daily[0].Date, time.Local)
	if err != nil {
		return []SeriesPoint{}
	}
	last, err := time.ParseInLocation(seriesDateLayout, daily[len(daily)-1].Date, time.Local)
	if err != nil {
		return []SeriesPoint{}
	}

	// Last daily value per period; points with unparseable dates are skipped.
	lastInPeriod := make(map[string]int)
	for _, p := range daily {
		t, err := time.ParseInLocation(seriesDateLayout, p.Date, time.Local)
		if err != nil {
			continue
		}
		lastInPeriod[periodOf(t).label] = p.Count
	}

	resampled := []SeriesPoint{}
	carried := 0
	end := periodOf(last)
	for b := periodOf(first); !b.start.After(end.start); b = nextPeriod(b) {
		if v, ok := lastInPeriod[b.label]; ok {
			carried = v
		}
		resampled = append(resampled, SeriesPoint{Date: b.label, Count: carried})
	}
	return resampled
}

// weekStart returns the Monday of the week containing t.
func weekStart(t time.Time) time.Time {
	d := midnight(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// daysBetween counts calendar days between two midnights. Rounding absorbs
// the hour gained or lost at a DST transition between them.
func daysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
