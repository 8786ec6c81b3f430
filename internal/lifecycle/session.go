package lifecycle

import "time"

// Session is a point-in-time snapshot of the managed server run. The
// orchestrator is the only writer; everyone else reads copies of it.
//
// Field invariants: Reachable is true only while Status is started; PID is
// non-zero only while the supervisor owns a live process handle; URL is
// non-empty only after a start attempt produced a bound address.
type Session struct {
	Status     Status    `json:"status"`
	URL        string    `json:"url,omitempty"`
	LANURL     string    `json:"lan_url,omitempty"`
	PID        int       `json:"pid,omitempty"`
	Reachable  bool      `json:"reachable"`
	Generation uint64    `json:"generation"`
	StartedAt  time.Time `json:"started_at"`
	LastError  string    `json:"last_error,omitempty"`
}

// Live reports whether the session currently tracks an owned process.
func (s Session) Live() bool {
	return s.Status.IsLive()
}
