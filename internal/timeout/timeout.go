// Package timeout implements tick-counted timeouts. No wall clock is consulted, a timeout only
// advances when its owner polls it once per tick.
package timeout

// Timeout counts the ticks spent in the state that owns it.
type Timeout struct {
	// Current is the progress tick, owners may reset or jump it.
	Current uint32 `json:"current"`
	// Total is the number of ticks since start and is never reset.
	Total   uint32 `json:"total"`
	Started bool   `json:"started"`
}

type Lifecycle int

const (
	Started Lifecycle = iota
	Updated
	Ended
)

func (l Lifecycle) String() string {
	switch l {
	case Started:
		return "started"
	case Updated:
		return "updated"
	default:
		return "ended"
	}
}

// Next advances t by one tick against the budget max. A fresh timeout reports Started with
// Current 0, then Updated once per tick until Current would reach max, which reports Ended.
// On Ended the returned timeout is t unchanged so polling again keeps reporting Ended.
func Next(t Timeout, max uint32) (Timeout, Lifecycle) {
	if !t.Started {
		return Timeout{Started: true}, Started
	}
	if t.Current+1 >= max {
		return t, Ended
	}

	t.Current++
	t.Total++
	return t, Updated
}

// WithCurrent returns t with its progress set to current, already started.
func (t Timeout) WithCurrent(current uint32) Timeout {
	t.Current = current
	t.Started = true
	return t
}

// Unstarted returns t marked as not started so the next poll reports Started again.
func (t Timeout) Unstarted() Timeout {
	t.Started = false
	return t
}
