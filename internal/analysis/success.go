package analysis

import (
	"fmt"

	apperrors "github.com/ZanzyTHEbar/campus-mcp/internal/errors"
)

const (
	successBase = 50.0
	// number of leading grades treated as the recent window
	recentWindow = 3
)

// PredictSuccess estimates the likelihood that a student validates the module.
func PredictSuccess(in SuccessInput) (SuccessResult, error) {
	if in.TotalSessions <= 0 {
		return SuccessResult{}, fmt.Errorf("%w: total_sessions must be greater than 0", apperrors.ErrInvalidInput)
	}
	if !finite(in.CurrentAverage) {
		return SuccessResult{}, fmt.Errorf("%w: current_average must be a finite number", apperrors.ErrInvalidInput)
	}

	grades := append([]float64(nil), in.Grades...)
	for i, g := range grades {
		if !finite(g) {
			return SuccessResult{}, fmt.Errorf("%w: grades[%d] must be a finite number", apperrors.ErrInvalidInput, i)
		}
	}
	if len(grades) == 0 {
		if in.CurrentAverage <= 0 {
			return SuccessResult{}, fmt.Errorf("%w: grades or current_average required", apperrors.ErrInvalidInput)
		}
		grades = []float64{in.CurrentAverage}
	}

	absences := nonNegative(in.Absences)
	absenceRate := float64(absences) / float64(in.TotalSessions) * 100
	trend := gradeTrend(grades)

	score := successBase
	switch {
	case absenceRate > 30:
		score -= 30
	case absenceRate > 20:
		score -= 15
	case absenceRate < 10:
		score += 10
	}

	switch {
	case in.CurrentAverage >= 16:
		score += 25
	case in.CurrentAverage >= 14:
		score += 15
	case in.CurrentAverage >= 12:
		score += 5
	case in.CurrentAverage < 10:
		score -= 20
	}

	switch {
	case trend > 2:
		score += 10
	case trend < -2:
		score -= 10
	}

	score = clip(score, 0, 100)

	return SuccessResult{
		Score:          round2(score),
		Probability:    successProbability(score),
		AbsenceRate:    round2(absenceRate),
		CurrentAverage: in.CurrentAverage,
		Trend:          round2(trend),
		Analysis: SuccessAnalysis{
			Absences:       absences,
			TotalSessions:  in.TotalSessions,
			Grades:         grades,
			TrendDirection: trendDirection(trend),
		},
	}, nil
}

// gradeTrend compares the mean of the first grades with the mean of the rest.
// Grades are ordered most recent first.
func gradeTrend(grades []float64) float64 {
	if len(grades) < 2 {
		return 0
	}
	n := min(recentWindow, len(grades))
	recent := mean(grades[:n])
	older := recent
	if len(grades) > recentWindow {
		older = mean(grades[recentWindow:])
	}
	return recent - older
}

func successProbability(score float64) Probability {
	switch {
	case score >= 80:
		return ProbabilityVeryHigh
	case score >= 60:
		return ProbabilityHigh
	case score >= 40:
		return ProbabilityModerate
	default:
		return ProbabilityLow
	}
}

func trendDirection(trend float64) TrendDirection {
	switch {
	case trend > 0:
		return TrendPositive
	case trend < 0:
		return TrendNegative
	default:
		return TrendStable
	}
}
