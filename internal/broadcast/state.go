package broadcast

// State is the loop's run state.
type State int32

const (
	// StateStopped means no loop goroutine has been started yet.
	StateStopped State = iota
	// StateRunning means the loop goroutine is alive, idling or streaming.
	StateRunning
	// StateClosed is terminal; Start is a no-op from here on.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stats is a point-in-time view of loop counters.
type Stats struct {
	State            string `json:"state"`
	Mode             string `json:"mode"`
	Ticks            uint64 `json:"ticks"`
	Frames           uint64 `json:"frames"`
	CaptureErrors    uint64 `json:"capture_errors"`
	Skipped          uint64 `json:"skipped"`
	Deliveries       uint64 `json:"deliveries"`
	DeliveryFailures uint64 `json:"delivery_failures"`
	LastFrameAt      string `json:"last_frame_at,omitempty"`
	Breaker          string `json:"breaker"`
}
