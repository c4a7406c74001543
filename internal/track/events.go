package track

// Events is the set of callbacks a Loop Track invokes to report the state
// changes and progress spec.md §6 lists as "Events emitted". The Session
// Coordinator implements Events once and fans it out (SSE, WebSocket,
// whatever the host wires up); tests implement a recording fake.
type Events interface {
	TrackStateChanged(index int, state State)
	TrackProgress(index int, ratio float64)
	PitchProgress(index int, pct float64)
	Error(index int, kind ErrorKind, message string)
}

// NopEvents discards every callback; embed it to implement Events partially.
type NopEvents struct{}

func (NopEvents) TrackStateChanged(int, State)          {}
func (NopEvents) TrackProgress(int, float64)             {}
func (NopEvents) PitchProgress(int, float64)             {}
func (NopEvents) Error(int, ErrorKind, string)            {}
