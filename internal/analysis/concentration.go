package analysis

import (
	"fmt"
	"math"

	apperrors "github.com/ZanzyTHEbar/campus-mcp/internal/errors"
)

var (
	attendanceWeight    = 0.3
	participationWeight = 0.3
	quizWeight          = 0.3
	attentionWeight     = 0.1
	// a full 90 minute session earns the whole attention share
	attentionCapMinutes = 90.0
)

var concentrationSummaries = map[Interpretation]string{
	InterpretationExcellent: "Excellent concentration. The class is highly engaged.",
	InterpretationGood:      "Good concentration. Some improvement is possible.",
	InterpretationModerate:  "Moderate concentration. Corrective actions are recommended.",
	InterpretationLow:       "Low concentration. Intervention is needed.",
}

// AnalyzeConcentration scores the engagement of a class session on a 0-100 scale.
func AnalyzeConcentration(in ConcentrationInput) (ConcentrationResult, error) {
	if in.TotalStudents <= 0 {
		return ConcentrationResult{}, fmt.Errorf("%w: total_students must be greater than 0", apperrors.ErrInvalidInput)
	}
	if !finite(in.AverageQuizScore) {
		return ConcentrationResult{}, fmt.Errorf("%w: average_quiz_score must be a finite number", apperrors.ErrInvalidInput)
	}

	present := nonNegative(in.PresentStudents)
	active := nonNegative(in.ActiveParticipants)
	attention := nonNegative(in.AttentionDurationMinutes)

	if present > in.TotalStudents {
		return ConcentrationResult{}, fmt.Errorf("%w: present_students (%d) exceeds total_students (%d)", apperrors.ErrInvalidInput, present, in.TotalStudents)
	}
	if active > present {
		return ConcentrationResult{}, fmt.Errorf("%w: active_participants (%d) exceeds present_students (%d)", apperrors.ErrInvalidInput, active, present)
	}

	attendance := float64(present) / float64(in.TotalStudents) * 100
	participation := 0.0
	if present > 0 {
		participation = float64(active) / float64(present) * 100
	}
	attentionShare := math.Min(float64(attention)/attentionCapMinutes, 1) * 100

	score := clip(
		attendanceWeight*attendance+
			participationWeight*participation+
			quizWeight*in.AverageQuizScore+
			attentionWeight*attentionShare,
		0, 100)

	interp := interpretConcentration(score)

	return ConcentrationResult{
		Score:             round2(score),
		AttendanceRate:    round2(attendance),
		ParticipationRate: round2(participation),
		Interpretation:    interp,
		Summary:           concentrationSummaries[interp],
		Metrics:           in,
	}, nil
}

func interpretConcentration(score float64) Interpretation {
	switch {
	case score >= 80:
		return InterpretationExcellent
	case score >= 60:
		return InterpretationGood
	case score >= 40:
		return InterpretationModerate
	default:
		return InterpretationLow
	}
}
