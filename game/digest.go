package game

import "encoding/json"

// DigestVersion is the current digest schema
const DigestVersion = 1

// DigestAction is one recorded player action
type DigestAction struct {
	Action  string `json:"action"` // double, cash_out
	DeltaMs int64  `json:"delta_ms"`
	Value   int64  `json:"value"`
	Doubles int    `json:"doubles"`
	Phase   Phase  `json:"phase"`
}

// Digest is the client-assembled audit record of a run.
// The server stores it but does not replay it.
type Digest struct {
	V           int            `json:"v"`
	SeasonID    string         `json:"season_id"`
	StartedAtMs int64          `json:"started_at_ms"`
	DurationMs  int64          `json:"duration_ms"`
	Outcome     Outcome        `json:"outcome"`
	Actions     []DigestAction `json:"actions"`
}

// Encode serializes the digest the way it travels in submitRun
func (d Digest) Encode() (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
