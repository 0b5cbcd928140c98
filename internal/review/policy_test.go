package review

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studylog/fukushu/internal/domain"
)

func TestNextIntervalIncorrectAlwaysResets(t *testing.T) {
	for _, prior := range []string{
		domain.IntervalUnset,
		domain.Interval1Day,
		domain.Interval7Days,
		domain.Interval1Month,
		domain.Interval6Months,
	} {
		step := NextInterval(prior, false, domain.Understanding{Kind: domain.NotUnderstood}, domain.Understanding{Kind: domain.Understood})
		assert.Equal(t, Step{Interval: domain.Interval1Day, Days: 1}, step, "prior %s", prior)
	}
}

func TestNextIntervalAmbiguousReasonTable(t *testing.T) {
	testCases := []struct {
		reason string
		days   int
	}{
		{"偶然正解した", 2},
		{"正解の選択肢は理解していたが、他の選択肢の理解が不十分だった", 3},
		{"合っていたが、根拠が曖昧だった", 3},
		{"自信はなかったけど正解した", 4},
		{"問題を覚えてしまっていた", 5},
		{"その他", 4},
		{"見たことのない理由", 4}, // default
		{"", 4},         // default
	}

	for _, tc := range testCases {
		t.Run(tc.reason, func(t *testing.T) {
			answer := domain.Understanding{Kind: domain.Ambiguous, Reason: tc.reason}
			step := NextInterval(domain.Interval7Days, true, answer, domain.Understanding{Kind: domain.Understood})
			assert.Equal(t, tc.days, step.Days)
			assert.Zero(t, step.Months)
			assert.Equal(t, map[int]string{2: "2日", 3: "3日", 4: "4日", 5: "5日"}[tc.days], step.Interval)
		})
	}
}

func TestNextIntervalUnderstoodLadder(t *testing.T) {
	understood := domain.Understanding{Kind: domain.Understood}

	testCases := []struct {
		prior    string
		expected Step
	}{
		{domain.Interval1Day, Step{Interval: domain.Interval3Days, Days: 3}},
		{domain.Interval3Days, Step{Interval: domain.Interval7Days, Days: 7}},
		{domain.Interval7Days, Step{Interval: domain.Interval14Days, Days: 14}},
		{domain.Interval14Days, Step{Interval: domain.Interval1Month, Months: 1}},
		{domain.Interval1Month, Step{Interval: domain.Interval3Months, Months: 3}},
		{domain.Interval3Months, Step{Interval: domain.Interval6Months, Months: 6}},
		{domain.Interval6Months, Step{Interval: domain.Interval6Months, Months: 6}},
		{"なにこれ", Step{Interval: domain.Interval6Months, Months: 6}},
	}

	for _, tc := range testCases {
		t.Run(tc.prior, func(t *testing.T) {
			step := NextInterval(tc.prior, true, understood, understood)
			assert.Equal(t, tc.expected, step)
		})
	}
}

func TestNextIntervalFirstCorrectEntersAtOneDay(t *testing.T) {
	// First-ever answer: previous understanding is unset, so the stored
	// interval (even a long one) is ignored and the ladder starts at 1日.
	step := NextInterval(domain.Interval6Months, true,
		domain.Understanding{Kind: domain.Understood},
		domain.Understanding{Kind: domain.Unset})
	assert.Equal(t, Step{Interval: domain.Interval3Days, Days: 3}, step)
}

func TestNextIntervalRecoveryFromAmbiguousSkipsToFourteen(t *testing.T) {
	// Previous understanding ambiguous, now understood: ladder enters at the
	// 14日 rung, which steps to 1ヶ月, regardless of the stored interval.
	step := NextInterval(domain.Interval3Days, true,
		domain.Understanding{Kind: domain.Understood},
		domain.Understanding{Kind: domain.Ambiguous, Reason: "その他"})
	assert.Equal(t, Step{Interval: domain.Interval1Month, Months: 1}, step)
}

func TestNextIntervalIsDeterministic(t *testing.T) {
	answer := domain.Understanding{Kind: domain.Ambiguous, Reason: "偶然正解した"}
	previous := domain.Understanding{Kind: domain.Understood}
	first := NextInterval(domain.Interval7Days, true, answer, previous)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, NextInterval(domain.Interval7Days, true, answer, previous))
	}
}
