package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codearena/judge-api/internal/types"
)

const (
	ac  = types.SubmissionStatusAccepted
	wa  = types.SubmissionStatusWrongAnswer
	rte = types.SubmissionStatusRuntimeError
	tle = types.SubmissionStatusTimeLimitExceeded
	mle = types.SubmissionStatusMemoryLimitExceeded
	ole = types.SubmissionStatusOutputLimitExceeded
)

func verdicts(statuses ...types.SubmissionStatus) []Verdict {
	out := make([]Verdict, 0, len(statuses))
	for i, s := range statuses {
		out = append(out, Verdict{Slug: string(rune('a' + i)), Status: s})
	}
	return out
}

func slugged(pairs ...any) []Verdict {
	out := []Verdict{}
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, Verdict{Slug: pairs[i].(string), Status: pairs[i+1].(types.SubmissionStatus)})
	}
	return out
}

func TestWorst(t *testing.T) {
	tests := []struct {
		name     string
		in       []Verdict
		expected types.SubmissionStatus
	}{
		{name: "AllAccepted", in: verdicts(ac, ac, ac), expected: ac},
		{name: "Empty", in: nil, expected: ac},
		{name: "WrongAnswerLast", in: verdicts(ac, ac, wa), expected: wa},
		{name: "WrongAnswerFirst", in: verdicts(wa, ac, ac), expected: wa},
		{name: "RuntimeBeatsTime", in: verdicts(tle, rte, tle), expected: rte},
		{name: "TimeBeatsMemory", in: verdicts(mle, tle), expected: tle},
		{name: "MemoryBeatsOutput", in: verdicts(ole, mle, ole), expected: mle},
		{name: "OutputBeatsWrong", in: verdicts(wa, ole), expected: ole},
		{name: "OrderIndependent", in: verdicts(rte, wa, ac, tle, mle), expected: rte},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Worst(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	t.Run("NotAVerdict", func(t *testing.T) {
		_, err := Worst(verdicts(ac, types.SubmissionStatusCompilationError))
		require.ErrorIs(t, err, types.ErrUnknownStatus)
	})
}

func TestScoreStandard(t *testing.T) {
	tests := []struct {
		name     string
		in       []Verdict
		point    float64
		expected Outcome
	}{
		{
			name:     "PartialCredit",
			in:       verdicts(ac, ac, wa, ac),
			point:    100,
			expected: Outcome{Status: wa, Score: 75},
		},
		{
			name:     "AllAccepted",
			in:       verdicts(ac, ac, ac),
			point:    30,
			expected: Outcome{Status: ac, Score: 30},
		},
		{
			name:     "NoneAccepted",
			in:       verdicts(tle, rte),
			point:    100,
			expected: Outcome{Status: rte, Score: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Score(types.ScoringMethodStandard, tt.point, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	t.Run("KOverN", func(t *testing.T) {
		// score == k/n * P in plain float64 arithmetic
		in := verdicts(ac, wa, wa)
		got, err := Score(types.ScoringMethodStandard, 10, in)
		require.NoError(t, err)
		assert.Equal(t, float64(1)/float64(3)*10, got.Score)
	})
}

func TestScoreSubtask(t *testing.T) {
	tests := []struct {
		name     string
		in       []Verdict
		point    float64
		expected Outcome
	}{
		{
			name:     "OnlyFullSubtasksCount",
			in:       slugged("s1/1", ac, "s1/2", ac, "s2/1", ac, "s2/2", wa),
			point:    100,
			expected: Outcome{Status: wa, Score: 50},
		},
		{
			name:     "AllSubtasksPass",
			in:       slugged("s1/1", ac, "s2/1", ac, "s2/2", ac, "s2/3", ac),
			point:    100,
			expected: Outcome{Status: ac, Score: 100},
		},
		{
			name:     "NoSubtaskPasses",
			in:       slugged("s1/1", tle, "s1/2", ac, "s2/1", ac, "s2/2", mle),
			point:    100,
			expected: Outcome{Status: tle, Score: 0},
		},
		{
			name:     "InterleavedSlugs",
			in:       slugged("s1/1", ac, "s2/1", wa, "s1/2", ac, "s2/2", ac),
			point:    100,
			expected: Outcome{Status: wa, Score: 50},
		},
		{
			name:     "BareSlugsAreOwnSubtask",
			in:       slugged("1", ac, "2", wa, "3", ac, "4", ac),
			point:    100,
			expected: Outcome{Status: wa, Score: 75},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Score(types.ScoringMethodSubtask, tt.point, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.expected.Status, got.Status)
			assert.InDelta(t, tt.expected.Score, got.Score, 1e-9)
		})
	}

	t.Run("UnevenSubtasks", func(t *testing.T) {
		got, err := Score(
			types.ScoringMethodSubtask,
			90,
			slugged("a/1", ac, "b/1", ac, "b/2", ac, "c/1", rte),
		)
		require.NoError(t, err)
		assert.Equal(t, rte, got.Status)
		assert.InDelta(t, 0.25*90+0.5*90, got.Score, 1e-9)
	})
}

func TestScoreICPC(t *testing.T) {
	got, err := Score(types.ScoringMethodICPC, 100, verdicts(ac, ac, ac))
	require.NoError(t, err)
	assert.Equal(t, Outcome{Status: ac, Score: 100}, got)

	got, err = Score(types.ScoringMethodICPC, 100, verdicts(ac, wa, ac, ac))
	require.NoError(t, err)
	assert.Equal(t, Outcome{Status: wa, Score: 0}, got)
}

func TestScoreEdgeCases(t *testing.T) {
	for _, method := range []types.ScoringMethod{
		types.ScoringMethodStandard,
		types.ScoringMethodSubtask,
		types.ScoringMethodICPC,
	} {
		t.Run("Empty"+string(method), func(t *testing.T) {
			got, err := Score(method, 100, nil)
			require.NoError(t, err)
			assert.Equal(t, Outcome{Status: types.SubmissionStatusInternalError, Score: 0}, got)
		})

		t.Run("UnknownVerdict"+string(method), func(t *testing.T) {
			_, err := Score(method, 100, verdicts(ac, types.SubmissionStatus("PRESENTATION_ERROR")))
			require.ErrorIs(t, err, types.ErrUnknownStatus)
		})
	}

	t.Run("UnknownMethod", func(t *testing.T) {
		_, err := Score(types.ScoringMethod("IOI"), 100, verdicts(ac))
		require.ErrorIs(t, err, ErrUnknownScoringMethod)
	})
}

func TestGroupBySubtask(t *testing.T) {
	groups := GroupBySubtask(slugged("s2/1", ac, "s1/1", wa, "s2/2", ac, "x", ac, "s1/2/deep", ac))

	require.Len(t, groups, 3)
	assert.Equal(t, "s2", groups[0].Slug)
	assert.Len(t, groups[0].Verdicts, 2)
	assert.Equal(t, "s1", groups[1].Slug)
	assert.Len(t, groups[1].Verdicts, 2)
	assert.Equal(t, "x", groups[2].Slug)
}
