package journal

import (
	"encoding/json"
	"time"
)

// RunRecord is one server session as stored in BBolt.
type RunRecord struct {
	ID        string    `json:"id"`                  // ULID
	URL       string    `json:"url"`                 // address the session served on
	PID       int       `json:"pid"`                 // process ID of the run
	Outcome   string    `json:"outcome"`             // running, stopped or failed
	ExitCode  *int      `json:"exit_code,omitempty"` // set only when the process reported one
	Message   string    `json:"message,omitempty"`   // failure detail or stop reason
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
}

// MarshalBinary implements encoding.BinaryMarshaler for BBolt storage
func (r *RunRecord) MarshalBinary() ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for BBolt storage
func (r *RunRecord) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, r)
}

// Duration returns the run length, using the current time for open runs.
func (r *RunRecord) Duration() time.Duration {
	if r.StartedAt.IsZero() {
		return 0
	}
	end := r.EndedAt
	if end.IsZero() {
		end = time.Now().UTC()
	}
	return end.Sub(r.StartedAt)
}
