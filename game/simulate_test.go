package game

import (
	"math"
	"testing"
)

func TestExpectedSurvival(t *testing.T) {
	if got := ExpectedSurvival(0, DefaultTuning); got != 1 {
		t.Errorf("Expected certain survival with no doubles, got %f", got)
	}

	want := (1 - RiskForStep(1, DefaultTuning)) * (1 - RiskForStep(2, DefaultTuning))
	if got := ExpectedSurvival(2, DefaultTuning); math.Abs(got-want) > 1e-12 {
		t.Errorf("Expected %f, got %f", want, got)
	}
}

func TestSimulateStrategyDeterministicDraws(t *testing.T) {
	safe := SimulateStrategy(func() float64 { return 0.999 }, DefaultTuning, 5, 10)
	if safe.CashedOut != 10 || safe.Crashed != 0 || safe.AvgBanked != 32 {
		t.Errorf("Expected every run to bank x32, got %+v", safe)
	}

	doomed := SimulateStrategy(func() float64 { return 0 }, DefaultTuning, 5, 10)
	if doomed.Crashed != 10 || doomed.CrashesByStep[1] != 10 || doomed.AvgBanked != 0 {
		t.Errorf("Expected every run to crash on the first double, got %+v", doomed)
	}
}

func TestSimulateStrategyMatchesCurve(t *testing.T) {
	stats := SimulateStrategy(SeededDraws("risk-curve"), DefaultTuning, 4, 20000)

	if stats.CashedOut+stats.Crashed != stats.Games {
		t.Fatalf("Outcomes do not add up: %+v", stats)
	}
	if math.Abs(stats.SurvivalRate-stats.ExpectedSurvival) > 0.02 {
		t.Errorf("Survival %.4f too far from expected %.4f", stats.SurvivalRate, stats.ExpectedSurvival)
	}
}
