package game

import (
	"math"

	"doubleordie/config"
)

// DefaultTuning is the reference crash curve
var DefaultTuning = Tuning{
	StartValue:     config.StartValue,
	RiskBase:       config.RiskBase,
	RiskGrowthRate: config.RiskGrowthRate,
	RiskMidpoint:   config.RiskMidpoint,
	RiskCap:        config.RiskCap,
}

// RiskForStep returns the crash probability for the given double.
// Result lies in [RiskBase, RiskCap] and never decreases as step grows.
func RiskForStep(step int, t Tuning) float64 {
	logistic := 1 / (1 + math.Exp(-t.RiskGrowthRate*(float64(step)-t.RiskMidpoint)))
	risk := t.RiskBase + (t.RiskCap-t.RiskBase)*logistic
	return math.Max(t.RiskBase, math.Min(t.RiskCap, risk))
}
