package game

// Phase is a step of the run state machine
type Phase string

const (
	PhaseIdle      Phase = "IDLE"
	PhaseRunning   Phase = "RUNNING"
	PhaseCashedOut Phase = "CASHED_OUT"
	PhaseCrashed   Phase = "CRASHED"
	PhaseSummary   Phase = "SUMMARY"
)

// Outcome is how a run ended
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeCrashed   Outcome = "crashed"
	OutcomeCashedOut Outcome = "cashed_out"
)

// Tuning shapes the crash curve
type Tuning struct {
	StartValue     int64   `json:"startValue"`
	RiskBase       float64 `json:"riskBase"`
	RiskGrowthRate float64 `json:"riskGrowthRate"`
	RiskMidpoint   float64 `json:"riskMidpoint"`
	RiskCap        float64 `json:"riskCap"`
}

// Snapshot is a read-only view of the engine after an action
type Snapshot struct {
	Phase           Phase   `json:"phase"`
	Value           int64   `json:"value"`
	Doubles         int     `json:"doubles"`
	Outcome         Outcome `json:"outcome,omitempty"`
	Message         string  `json:"message"`
	NextCrashChance float64 `json:"nextCrashChance"`
	RiskCap         float64 `json:"riskCap"`
}
