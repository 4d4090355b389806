package monitor

// State is the lifecycle position of a camera session.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateStreaming
	StateAnalyzing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateStreaming:
		return "streaming"
	case StateAnalyzing:
		return "analyzing"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Running reports whether the session owns an open source.
func (s State) Running() bool {
	return s == StateStarting || s == StateStreaming || s == StateAnalyzing
}
