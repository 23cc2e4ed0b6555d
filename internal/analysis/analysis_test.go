package analysis

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	apperrors "github.com/ZanzyTHEbar/campus-mcp/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeConcentration(t *testing.T) {
	tests := []struct {
		name                  string
		input                 ConcentrationInput
		expectedScore         float64
		expectedAttendance    float64
		expectedParticipation float64
		expectedInterp        Interpretation
	}{
		{
			name:                  "typical session",
			input:                 ConcentrationInput{TotalStudents: 30, PresentStudents: 25, ActiveParticipants: 20, AverageQuizScore: 75, AttentionDurationMinutes: 60},
			expectedScore:         78.17,
			expectedAttendance:    83.33,
			expectedParticipation: 80,
			expectedInterp:        InterpretationGood,
		},
		{
			name:                  "perfect session caps attention at 90 minutes",
			input:                 ConcentrationInput{TotalStudents: 10, PresentStudents: 10, ActiveParticipants: 10, AverageQuizScore: 100, AttentionDurationMinutes: 180},
			expectedScore:         100,
			expectedAttendance:    100,
			expectedParticipation: 100,
			expectedInterp:        InterpretationExcellent,
		},
		{
			name:                  "nobody present",
			input:                 ConcentrationInput{TotalStudents: 20},
			expectedScore:         0,
			expectedAttendance:    0,
			expectedParticipation: 0,
			expectedInterp:        InterpretationLow,
		},
		{
			name:                  "moderate session",
			input:                 ConcentrationInput{TotalStudents: 20, PresentStudents: 10, ActiveParticipants: 5, AverageQuizScore: 60, AttentionDurationMinutes: 45},
			expectedScore:         53,
			expectedAttendance:    50,
			expectedParticipation: 50,
			expectedInterp:        InterpretationModerate,
		},
		{
			name:                  "bucket uses the unrounded score",
			input:                 ConcentrationInput{TotalStudents: 10, PresentStudents: 10, ActiveParticipants: 10, AverageQuizScore: 66.6533},
			expectedScore:         80,
			expectedAttendance:    100,
			expectedParticipation: 100,
			expectedInterp:        InterpretationGood,
		},
		{
			name:                  "negative counts count as zero",
			input:                 ConcentrationInput{TotalStudents: 10, PresentStudents: -4, ActiveParticipants: -1, AverageQuizScore: 50},
			expectedScore:         15,
			expectedAttendance:    0,
			expectedParticipation: 0,
			expectedInterp:        InterpretationLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := AnalyzeConcentration(tt.input)
			require.NoError(t, err)
			assert.InDelta(t, tt.expectedScore, result.Score, 1e-9)
			assert.InDelta(t, tt.expectedAttendance, result.AttendanceRate, 1e-9)
			assert.InDelta(t, tt.expectedParticipation, result.ParticipationRate, 1e-9)
			assert.Equal(t, tt.expectedInterp, result.Interpretation)
			assert.NotEmpty(t, result.Summary)
			assert.Equal(t, tt.input, result.Metrics)
		})
	}
}

func TestAnalyzeConcentration_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input ConcentrationInput
	}{
		{"zero students", ConcentrationInput{TotalStudents: 0}},
		{"negative students", ConcentrationInput{TotalStudents: -3}},
		{"NaN quiz score", ConcentrationInput{TotalStudents: 5, AverageQuizScore: math.NaN()}},
		{"infinite quiz score", ConcentrationInput{TotalStudents: 5, AverageQuizScore: math.Inf(1)}},
		{"more present than enrolled", ConcentrationInput{TotalStudents: 10, PresentStudents: 20}},
		{"more active than present", ConcentrationInput{TotalStudents: 10, PresentStudents: 5, ActiveParticipants: 6}},
		{"active with nobody present", ConcentrationInput{TotalStudents: 20, ActiveParticipants: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AnalyzeConcentration(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestAnalyzeConcentration_ScoreAlwaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		total := rng.Intn(500) + 1
		present := rng.Intn(total+501) - 500
		in := ConcentrationInput{
			TotalStudents:            total,
			PresentStudents:          present,
			ActiveParticipants:       rng.Intn(max(present, 0)+501) - 500,
			AverageQuizScore:         rng.Float64()*2000 - 1000,
			AttentionDurationMinutes: rng.Intn(1000) - 200,
		}
		result, err := AnalyzeConcentration(in)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.Score, 0.0)
		assert.LessOrEqual(t, result.Score, 100.0)
		assert.GreaterOrEqual(t, result.AttendanceRate, 0.0)
		assert.LessOrEqual(t, result.AttendanceRate, 100.0)
		assert.GreaterOrEqual(t, result.ParticipationRate, 0.0)
		assert.LessOrEqual(t, result.ParticipationRate, 100.0)
	}
}

func TestInterpretConcentration_Boundaries(t *testing.T) {
	assert.Equal(t, InterpretationExcellent, interpretConcentration(80))
	assert.Equal(t, InterpretationGood, interpretConcentration(79.999))
	assert.Equal(t, InterpretationGood, interpretConcentration(60))
	assert.Equal(t, InterpretationModerate, interpretConcentration(40))
	assert.Equal(t, InterpretationLow, interpretConcentration(39.99))
}

func TestConcentrationInput_AcceptsLegacyAttentionKey(t *testing.T) {
	var in ConcentrationInput
	require.NoError(t, json.Unmarshal([]byte(`{"total_students":30,"present_students":25,"attention_duration":60}`), &in))
	assert.Equal(t, 60, in.AttentionDurationMinutes)
	assert.Equal(t, 30, in.TotalStudents)

	require.NoError(t, json.Unmarshal([]byte(`{"total_students":30,"attention_duration_minutes":45,"attention_duration":60}`), &in))
	assert.Equal(t, 45, in.AttentionDurationMinutes)
}

func TestPredictSuccess(t *testing.T) {
	tests := []struct {
		name                string
		input               SuccessInput
		expectedScore       float64
		expectedAbsenceRate float64
		expectedTrend       float64
		expectedProbability Probability
		expectedDirection   TrendDirection
	}{
		{
			name:                "steady strong student",
			input:               SuccessInput{Absences: 2, TotalSessions: 20, Grades: []float64{18, 17, 16}, CurrentAverage: 17},
			expectedScore:       75,
			expectedAbsenceRate: 10,
			expectedTrend:       0,
			expectedProbability: ProbabilityHigh,
			expectedDirection:   TrendStable,
		},
		{
			name:                "improving student with few absences",
			input:               SuccessInput{Absences: 1, TotalSessions: 20, Grades: []float64{16, 17, 18, 12, 11}, CurrentAverage: 15},
			expectedScore:       85,
			expectedAbsenceRate: 5,
			expectedTrend:       5.5,
			expectedProbability: ProbabilityVeryHigh,
			expectedDirection:   TrendPositive,
		},
		{
			name:                "declining student with heavy absences",
			input:               SuccessInput{Absences: 8, TotalSessions: 20, Grades: []float64{8, 7, 9, 14}, CurrentAverage: 9},
			expectedScore:       0,
			expectedAbsenceRate: 40,
			expectedTrend:       -6,
			expectedProbability: ProbabilityLow,
			expectedDirection:   TrendNegative,
		},
		{
			name:                "empty grades fall back to current average",
			input:               SuccessInput{Absences: 5, TotalSessions: 20, CurrentAverage: 12.5},
			expectedScore:       40,
			expectedAbsenceRate: 25,
			expectedTrend:       0,
			expectedProbability: ProbabilityModerate,
			expectedDirection:   TrendStable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := PredictSuccess(tt.input)
			require.NoError(t, err)
			assert.InDelta(t, tt.expectedScore, result.Score, 1e-9)
			assert.InDelta(t, tt.expectedAbsenceRate, result.AbsenceRate, 1e-9)
			assert.InDelta(t, tt.expectedTrend, result.Trend, 1e-9)
			assert.Equal(t, tt.expectedProbability, result.Probability)
			assert.Equal(t, tt.expectedDirection, result.Analysis.TrendDirection)
			assert.Equal(t, tt.input.CurrentAverage, result.CurrentAverage)
		})
	}
}

func TestPredictSuccess_SubstitutedGradesAreEchoed(t *testing.T) {
	result, err := PredictSuccess(SuccessInput{TotalSessions: 10, CurrentAverage: 13})
	require.NoError(t, err)
	assert.Equal(t, []float64{13}, result.Analysis.Grades)
}

func TestPredictSuccess_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input SuccessInput
	}{
		{"zero sessions", SuccessInput{TotalSessions: 0, Grades: []float64{12}}},
		{"no grades and no average", SuccessInput{TotalSessions: 10}},
		{"NaN grade", SuccessInput{TotalSessions: 10, Grades: []float64{12, math.NaN()}}},
		{"infinite average", SuccessInput{TotalSessions: 10, CurrentAverage: math.Inf(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PredictSuccess(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestPredictSuccess_ScoreAlwaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		grades := make([]float64, rng.Intn(8))
		for j := range grades {
			grades[j] = rng.Float64() * 20
		}
		in := SuccessInput{
			Absences:       rng.Intn(100),
			TotalSessions:  rng.Intn(60) + 1,
			Grades:         grades,
			CurrentAverage: rng.Float64()*20 + 0.01,
		}
		result, err := PredictSuccess(in)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.Score, 0.0)
		assert.LessOrEqual(t, result.Score, 100.0)
	}
}

func TestGradeTrend(t *testing.T) {
	assert.Equal(t, 0.0, gradeTrend(nil))
	assert.Equal(t, 0.0, gradeTrend([]float64{15}))
	assert.Equal(t, 0.0, gradeTrend([]float64{10, 20}))
	assert.InDelta(t, 4.0, gradeTrend([]float64{14, 14, 14, 10}), 1e-9)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 83.33, round2(250.0/3))
	assert.Equal(t, 0.13, round2(0.125))
	assert.Equal(t, -1.5, round2(-1.5))
}
