package classifier

import (
	"fmt"
	"math"
)

// Decision turns raw model scores into a prediction.
type Decision func(scores []float64, labels []string) (Prediction, error)

// Threshold picks class 0 only when its score exceeds threshold, class 1
// otherwise. The confidence is the chosen class's own score.
func Threshold(threshold float64) Decision {
	return func(scores []float64, labels []string) (Prediction, error) {
		if len(scores) < 2 || len(labels) < 2 {
			return Prediction{}, fmt.Errorf("%w: binary decision needs 2 scores and 2 labels, got %d and %d",
				ErrMalformedOutput, len(scores), len(labels))
		}
		idx := 1
		if scores[0] > threshold {
			idx = 0
		}
		return Prediction{Label: labels[idx], Confidence: scores[idx], Index: idx}, nil
	}
}

// SoftmaxArgmax treats scores as logits and returns the most probable class.
func SoftmaxArgmax(scores []float64, labels []string) (Prediction, error) {
	if len(scores) == 0 || len(scores) != len(labels) {
		return Prediction{}, fmt.Errorf("%w: %d scores for %d labels", ErrMalformedOutput, len(scores), len(labels))
	}

	probs := Softmax(scores)
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return Prediction{Label: labels[best], Confidence: probs[best], Index: best}, nil
}

// Softmax normalizes logits into probabilities.
func Softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}
	hi := logits[0]
	for _, v := range logits[1:] {
		hi = math.Max(hi, v)
	}

	out := make([]float64, len(logits))
	sum := 0.0
	for i, v := range logits {
		out[i] = math.Exp(v - hi)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
