package scheduler

import (
	"math/rand"
	"time"

	"solfuzz/internal/types"
)

// We are going to score the campaigns based on many factors
// Each factor implements a Score() method
// The Score() method returns scores for the campaigns based on the factor
type factor interface {
	Score(campaigns []*types.Campaign) []float64
}

type picker struct {
	weightedFactors    map[factor]float64
	schedulingInterval time.Duration
}

func NewPicker(schedulingInterval time.Duration) *picker {
	weightedFactors := make(map[factor]float64)
	weightedFactors[&JobFactor{}] = 1.0
	weightedFactors[&CheckFactor{}] = 1.0

	return &picker{weightedFactors, schedulingInterval}
}

func (p *picker) pick(campaigns []*types.Campaign) (*types.Campaign, time.Duration) {
	finalScores := make([]float64, len(campaigns))

	for f, weight := range p.weightedFactors {
		scores := f.Score(campaigns)
		balancedScores := balance(scores)
		for i, score := range balancedScores {
			finalScores[i] += score * weight
		}
	}

	// Normalize the final scores
	normalScores := balance(finalScores)

	// Pick a campaign based on the normalized scores:
	// sample a random number between 0 and 1, then walk the cumulative scores

	randomNum := rand.Float64()
	cumulativeScore := 0.0
	for i, score := range normalScores {
		cumulativeScore += score
		if randomNum <= cumulativeScore {
			return campaigns[i], p.schedulingInterval
		}
	}
	// If we reach here, it means we didn't pick any campaign
	// This should not happen, but just in case
	// We can pick a random campaign
	return campaigns[rand.Intn(len(campaigns))], p.schedulingInterval
}

// a helper function to return a group of balanced score
func balance(ubScore []float64) []float64 {
	balancedScore := make([]float64, len(ubScore))
	sum := 0.0
	for _, score := range ubScore {
		sum += score
	}
	for idx, score := range ubScore {
		balancedScore[idx] = score / sum
	}
	return balancedScore
}
