package game

import (
	"fmt"
	"math/rand"
)

// Engine is the client-side run state machine. It is driven from a single
// UI loop and is not safe for concurrent use.
type Engine struct {
	rng    func() float64
	tuning Tuning

	phase   Phase
	value   int64
	doubles int
	outcome Outcome
	message string
}

// NewEngine builds an engine in IDLE. A nil rng falls back to math/rand.
func NewEngine(rng func() float64, tuning Tuning) *Engine {
	if rng == nil {
		rng = rand.Float64
	}
	e := &Engine{rng: rng, tuning: tuning}
	e.reset()
	return e
}

func (e *Engine) reset() {
	e.phase = PhaseIdle
	e.value = e.tuning.StartValue
	e.doubles = 0
	e.outcome = OutcomeNone
	e.message = "Press DOUBLE to begin."
}

// ResetToIdle drops any run in progress
func (e *Engine) ResetToIdle() Snapshot {
	e.reset()
	return e.Snapshot()
}

// Start begins a fresh run from IDLE or SUMMARY
func (e *Engine) Start() Snapshot {
	if e.phase != PhaseIdle && e.phase != PhaseSummary {
		return e.Snapshot()
	}

	e.phase = PhaseRunning
	e.value = e.tuning.StartValue
	e.doubles = 0
	e.outcome = OutcomeNone
	e.message = "Run started. Risk climbs with every DOUBLE."
	return e.Snapshot()
}

// Double risks the current value for twice as much
func (e *Engine) Double() Snapshot {
	if e.phase != PhaseRunning {
		return e.Snapshot()
	}

	nextStep := e.doubles + 1
	crashChance := RiskForStep(nextStep, e.tuning)

	if e.rng() < crashChance {
		e.phase = PhaseCrashed
		e.outcome = OutcomeCrashed
		e.message = fmt.Sprintf("Crashed at x%d.", e.value)
		return e.finish()
	}

	e.doubles = nextStep
	e.value *= 2
	e.message = fmt.Sprintf("Safe! Multiplied to x%d.", e.value)
	return e.Snapshot()
}

// CashOut banks the current value
func (e *Engine) CashOut() Snapshot {
	if e.phase != PhaseRunning {
		return e.Snapshot()
	}

	e.phase = PhaseCashedOut
	e.outcome = OutcomeCashedOut
	e.message = fmt.Sprintf("Cashed out at x%d.", e.value)
	return e.finish()
}

// finish moves a terminal run straight to SUMMARY
func (e *Engine) finish() Snapshot {
	if e.phase != PhaseCashedOut && e.phase != PhaseCrashed {
		return e.Snapshot()
	}

	e.phase = PhaseSummary
	return e.Snapshot()
}

// Snapshot reports state plus the crash chance of the next double
func (e *Engine) Snapshot() Snapshot {
	next := 0.0
	if e.phase == PhaseRunning {
		next = RiskForStep(e.doubles+1, e.tuning)
	}

	return Snapshot{
		Phase:           e.phase,
		Value:           e.value,
		Doubles:         e.doubles,
		Outcome:         e.outcome,
		Message:         e.message,
		NextCrashChance: next,
		RiskCap:         e.tuning.RiskCap,
	}
}
