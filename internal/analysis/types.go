package analysis

import "encoding/json"

// Interpretation buckets a concentration score.
type Interpretation string

const (
	InterpretationExcellent Interpretation = "excellent"
	InterpretationGood      Interpretation = "good"
	InterpretationModerate  Interpretation = "moderate"
	InterpretationLow       Interpretation = "low"
)

// Probability buckets a success score.
type Probability string

const (
	ProbabilityVeryHigh Probability = "very_high"
	ProbabilityHigh     Probability = "high"
	ProbabilityModerate Probability = "moderate"
	ProbabilityLow      Probability = "low"
)

// TrendDirection is the sign of the grade trend.
type TrendDirection string

const (
	TrendPositive TrendDirection = "positive"
	TrendNegative TrendDirection = "negative"
	TrendStable   TrendDirection = "stable"
)

// ConcentrationInput describes one class session.
type ConcentrationInput struct {
	TotalStudents            int     `json:"total_students" yaml:"total_students"`
	PresentStudents          int     `json:"present_students" yaml:"present_students"`
	ActiveParticipants       int     `json:"active_participants" yaml:"active_participants"`
	AverageQuizScore         float64 `json:"average_quiz_score" yaml:"average_quiz_score"`
	AttentionDurationMinutes int     `json:"attention_duration_minutes" yaml:"attention_duration_minutes"`
}

// UnmarshalJSON accepts attention_duration as an alias of attention_duration_minutes.
func (in *ConcentrationInput) UnmarshalJSON(data []byte) error {
	type plain ConcentrationInput
	var aux struct {
		plain
		AttentionDuration *int `json:"attention_duration"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*in = ConcentrationInput(aux.plain)
	if aux.AttentionDuration != nil && in.AttentionDurationMinutes == 0 {
		in.AttentionDurationMinutes = *aux.AttentionDuration
	}
	return nil
}

// ConcentrationResult is the output of AnalyzeConcentration.
type ConcentrationResult struct {
	Score             float64            `json:"concentration_score" yaml:"concentration_score"`
	AttendanceRate    float64            `json:"attendance_rate" yaml:"attendance_rate"`
	ParticipationRate float64            `json:"participation_rate" yaml:"participation_rate"`
	Interpretation    Interpretation     `json:"interpretation" yaml:"interpretation"`
	Summary           string             `json:"summary" yaml:"summary"`
	Metrics           ConcentrationInput `json:"metrics" yaml:"metrics"`
}

// SuccessInput describes one student's record in a module.
type SuccessInput struct {
	Absences       int       `json:"absences" yaml:"absences"`
	TotalSessions  int       `json:"total_sessions" yaml:"total_sessions"`
	Grades         []float64 `json:"grades" yaml:"grades"`
	CurrentAverage float64   `json:"current_average" yaml:"current_average"`
}

// SuccessAnalysis echoes the inputs that drove a prediction.
type SuccessAnalysis struct {
	Absences       int            `json:"absences" yaml:"absences"`
	TotalSessions  int            `json:"total_sessions" yaml:"total_sessions"`
	Grades         []float64      `json:"grades" yaml:"grades"`
	TrendDirection TrendDirection `json:"trend_direction" yaml:"trend_direction"`
}

// SuccessResult is the output of PredictSuccess.
type SuccessResult struct {
	Score          float64         `json:"success_score" yaml:"success_score"`
	Probability    Probability     `json:"probability" yaml:"probability"`
	AbsenceRate    float64         `json:"absence_rate" yaml:"absence_rate"`
	CurrentAverage float64         `json:"current_average" yaml:"current_average"`
	Trend          float64         `json:"trend" yaml:"trend"`
	Analysis       SuccessAnalysis `json:"analysis" yaml:"analysis"`
}
