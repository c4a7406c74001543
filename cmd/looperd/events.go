package main

import (
	"encoding/json"
	"sync"

	"github.com/jstrand/loopdeck/internal/session"
	"github.com/jstrand/loopdeck/internal/track"
)

// eventEnvelope is the JSON shape written to each SSE subscriber, one of
// spec.md §6's five event kinds per "type".
type eventEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// eventHub implements session.Events and fans every callback out to SSE
// subscribers as JSON, mirroring the teacher's Broadcaster fan-out shape
// but for command/status events rather than PCM frames.
type eventHub struct {
	mu   sync.RWMutex
	subs map[chan eventEnvelope]struct{}
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[chan eventEnvelope]struct{})}
}

func (h *eventHub) Subscribe() chan eventEnvelope {
	ch := make(chan eventEnvelope, 32)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *eventHub) Unsubscribe(ch chan eventEnvelope) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

func (h *eventHub) publish(e eventEnvelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (h *eventHub) TrackStateChanged(i int, s track.State) {
	h.publish(eventEnvelope{Type: "track_state", Data: map[string]any{"track": i, "state": s.String()}})
}

func (h *eventHub) TrackProgress(i int, ratio float64) {
	h.publish(eventEnvelope{Type: "track_progress", Data: map[string]any{"track": i, "ratio": ratio}})
}

func (h *eventHub) TransportChanged(duration float64, bpm int) {
	h.publish(eventEnvelope{Type: "transport", Data: map[string]any{"duration": duration, "bpm": bpm}})
}

func (h *eventHub) PitchProgress(i int, pct float64) {
	h.publish(eventEnvelope{Type: "pitch_progress", Data: map[string]any{"track": i, "pct": pct}})
}

func (h *eventHub) Error(i int, kind track.ErrorKind, message string) {
	h.publish(eventEnvelope{Type: "error", Data: map[string]any{"track": i, "kind": string(kind), "message": message}})
}

var _ session.Events = (*eventHub)(nil)

func (e eventEnvelope) json() ([]byte, error) {
	return json.Marshal(e)
}
