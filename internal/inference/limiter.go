package inference

import (
	"context"

	"golang.org/x/time/rate"
)

type limitedPredictor struct {
	limiter  *rate.Limiter
	provider Predictor
}

// NewLimited throttles p with l. A nil limiter disables throttling.
func NewLimited(l *rate.Limiter, p Predictor) Predictor {
	return &limitedPredictor{
		limiter:  l,
		provider: p,
	}
}

func (p *limitedPredictor) Predict(ctx context.Context, payload []byte) (*PredictionResult, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			// the wait would outlive the deadline
			if ctx.Err() == nil {
				return nil, &Error{Kind: TimedOut, Err: err}
			}

			return nil, classify(err)
		}
	}

	return p.provider.Predict(ctx, payload)
}
