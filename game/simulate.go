package game

/* =========================
   RISK SIMULATION
   Plays a fixed "double N times then cash out" strategy to compare the
   observed survival rate with the analytic one.
========================= */

// SimulationStats summarises a batch of simulated runs
type SimulationStats struct {
	Games            int     `json:"games"`
	Target           int     `json:"target"`
	CashedOut        int     `json:"cashedOut"`
	Crashed          int     `json:"crashed"`
	CrashesByStep    []int   `json:"crashesByStep"`
	SurvivalRate     float64 `json:"survivalRate"`
	ExpectedSurvival float64 `json:"expectedSurvival"`
	AvgBanked        float64 `json:"avgBanked"`
	ExpectedBanked   float64 `json:"expectedBanked"`
}

// ExpectedSurvival is the probability of surviving target doubles in a row
func ExpectedSurvival(target int, t Tuning) float64 {
	p := 1.0
	for step := 1; step <= target; step++ {
		p *= 1 - RiskForStep(step, t)
	}
	return p
}

// SimulateStrategy plays games runs that each try target doubles before
// cashing out. Crashed runs bank nothing.
func SimulateStrategy(rng func() float64, t Tuning, target, games int) SimulationStats {
	stats := SimulationStats{
		Games:            games,
		Target:           target,
		CrashesByStep:    make([]int, target+1),
		ExpectedSurvival: ExpectedSurvival(target, t),
	}
	stats.ExpectedBanked = stats.ExpectedSurvival * float64(t.StartValue<<target)

	engine := NewEngine(rng, t)
	var banked int64

	for i := 0; i < games; i++ {
		engine.Start()

		snap := engine.Snapshot()
		for snap.Phase == PhaseRunning && snap.Doubles < target {
			snap = engine.Double()
		}

		if snap.Outcome == OutcomeCrashed {
			stats.Crashed++
			stats.CrashesByStep[snap.Doubles+1]++
			continue
		}

		snap = engine.CashOut()
		stats.CashedOut++
		banked += snap.Value
	}

	if games > 0 {
		stats.SurvivalRate = float64(stats.CashedOut) / float64(games)
		stats.AvgBanked = float64(banked) / float64(games)
	}
	return stats
}
