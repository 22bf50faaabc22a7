package paychan

import (
	"fmt"
	"math/rand"
)

// MaxSimulationIterations bounds Simulate.
const MaxSimulationIterations = 10000

// Simulation summarizes a run of independent draws.
type Simulation struct {
	Iterations    int     `json:"totalIterations"`
	Executed      int     `json:"executed"`
	Skipped       int     `json:"skipped"`
	ExecutionRate float64 `json:"executionRate"`
	ExpectedRate  float64 `json:"expectedRate"`
	TotalPaid     uint64  `json:"totalPaid"`
	Threshold     uint16  `json:"threshold"`
}

// Simulate runs iterations draws of amount at threshold with seeds taken
// from src. Nothing is stored.
func Simulate(threshold uint16, iterations int, amount uint64, src rand.Source) (Simulation, error) {
	if threshold > Basis {
		return Simulation{}, fmt.Errorf("%w: threshold %d above %d", ErrMalformedRequest, threshold, Basis)
	}
	if iterations < 1 || iterations > MaxSimulationIterations {
		return Simulation{}, fmt.Errorf("%w: iterations must be between 1 and %d", ErrMalformedRequest, MaxSimulationIterations)
	}

	rnd := rand.New(src)
	s := Simulation{
		Iterations:   iterations,
		ExpectedRate: float64(threshold) / Basis,
		Threshold:    threshold,
	}
	for i := 0; i < iterations; i++ {
		if Executes(Draw(0, rnd.Uint64(), 0), threshold) {
			s.Executed++
			s.TotalPaid = satAdd(s.TotalPaid, amount)
		} else {
			s.Skipped++
		}
	}
	s.ExecutionRate = float64(s.Executed) / float64(iterations)
	return s, nil
}
