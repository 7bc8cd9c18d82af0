package inference

import (
	"context"
)

// NumClasses is the length of the probability vector returned by the
// classifier, one entry per digit.
const NumClasses = 10

// Predictor submits an encoded digit to a classifier.
type Predictor interface {
	Predict(ctx context.Context, payload []byte) (*PredictionResult, error)
}

type PredictionResult struct {
	// PredictedClass is taken from the response as given; it is not
	// recomputed from Probabilities.
	PredictedClass int       `json:"predicted_class"`
	Confidence     float64   `json:"confidence"`
	Probabilities  []float64 `json:"probabilities"`
}
