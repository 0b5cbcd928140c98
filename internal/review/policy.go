// Package review implements the spaced-repetition scheduling engine: the
// interval policy, the answer scheduler that maintains each question's summary
// state, and the due-set selection over the question tree.
package review

import (
	"fmt"

	"github.com/studylog/fukushu/internal/domain"
)

// Step is the policy's verdict for one answer: the new interval label and the
// calendar offset to apply to "now". Month offsets use calendar-month
// arithmetic, not fixed 30-day blocks.
type Step struct {
	Interval string
	Days     int
	Months   int
}

// ambiguousReasonDays maps the exact ambiguous-reason string to the number of
// days until the next review. These are tuned constants; unrecognized reasons
// fall back to defaultAmbiguousDays.
var ambiguousReasonDays = map[string]int{
	"偶然正解した":                        2,
	"正解の選択肢は理解していたが、他の選択肢の理解が不十分だった": 3,
	"合っていたが、根拠が曖昧だった":               3,
	"自信はなかったけど正解した":                 4,
	"問題を覚えてしまっていた":                  5,
	"その他":                           4,
}

const defaultAmbiguousDays = 4

// AmbiguousReasonDays returns the review gap in days for an ambiguous-answer
// reason. Exposed so callers can preview the effect of a reason choice.
func AmbiguousReasonDays(reason string) int {
	if d, ok := ambiguousReasonDays[reason]; ok {
		return d
	}
	return defaultAmbiguousDays
}

// NextInterval computes the next interval for one answer.
//
// priorInterval is the question's stored interval label, answer is the new
// self-assessment, and previous is the understanding snapshot taken before
// this answer was applied. The previous snapshot drives two overrides on the
// understood ladder: a first-ever answer enters at the 1日 rung regardless of
// the stored interval, and recovering from ambiguous enters at the 14日 rung.
// Both fire once, off that snapshot only.
func NextInterval(priorInterval string, isCorrect bool, answer, previous domain.Understanding) Step {
	if !isCorrect {
		return Step{Interval: domain.Interval1Day, Days: 1}
	}

	switch answer.Kind {
	case domain.Ambiguous:
		days := AmbiguousReasonDays(answer.Reason)
		return Step{Interval: fmt.Sprintf("%d日", days), Days: days}
	case domain.Understood:
		rung := priorInterval
		switch previous.Kind {
		case domain.Unset:
			rung = domain.Interval1Day
		case domain.Ambiguous:
			rung = domain.Interval14Days
		}
		return climbLadder(rung)
	default:
		// A correct answer still marked as not understood goes back into
		// the near queue, same as an incorrect one.
		return Step{Interval: domain.Interval1Day, Days: 1}
	}
}

// climbLadder advances one rung on the understood progression. Anything past
// 1ヶ月 (or an unrecognized label) lands on the 6ヶ月 ceiling.
func climbLadder(rung string) Step {
	switch rung {
	case domain.Interval1Day:
		return Step{Interval: domain.Interval3Days, Days: 3}
	case domain.Interval3Days:
		return Step{Interval: domain.Interval7Days, Days: 7}
	case domain.Interval7Days:
		return Step{Interval: domain.Interval14Days, Days: 14}
	case domain.Interval14Days:
		return Step{Interval: domain.Interval1Month, Months: 1}
	case domain.Interval1Month:
		return Step{Interval: domain.Interval3Months, Months: 3}
	default:
		return Step{Interval: domain.Interval6Months, Months: 6}
	}
}
