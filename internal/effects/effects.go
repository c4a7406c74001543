// Package effects implements the per-track effect chain: an ordered list of
// tagged-variant descriptors, rebuilt whenever composition changes, with
// bypass and disposal. Runtime DSP nodes (biquad filters, delay lines,
// compressor) are out of scope per spec.md §1 -- Node is a thin handle a
// host-supplied implementation plugs into, and Pitch never gets one: it's
// pre-baked into the track's buffer by the pitch engine instead.
package effects

import "github.com/google/uuid"

// Type identifies an effect variant (spec.md §3 Effect Descriptor).
type Type string

const (
	Pitch      Type = "pitch"
	LowPass    Type = "lowpass"
	HighPass   Type = "highpass"
	Pan        Type = "pan"
	Delay      Type = "delay"
	Compressor Type = "compressor"
)

// Node is the runtime handle for a non-Pitch effect: something that can be
// connected into a signal chain and disposed. A real node implementation
// (biquad filter, delay line, etc.) lives outside this module's scope;
// Node exists so the chain can route around bypassed/Pitch effects without
// caring what's on the other end.
type Node interface {
	Connect(input Node)
	Disconnect()
	Dispose()
}

// Descriptor is one entry in a track's effect chain.
type Descriptor struct {
	ID     string
	Type   Type
	Params map[string]float64
	Bypass bool

	node Node // nil for Pitch and for descriptors never connected
}

// NewDescriptor creates a Descriptor with a fresh ID.
func NewDescriptor(t Type, params map[string]float64) *Descriptor {
	if params == nil {
		params = map[string]float64{}
	}
	return &Descriptor{ID: uuid.NewString(), Type: t, Params: params}
}

// SetParam sets a single parameter, used by Chain.SetParam.
func (d *Descriptor) SetParam(key string, value float64) {
	d.Params[key] = value
}

// AttachNode wires a runtime node into the descriptor, disposing any
// previous one first.
func (d *Descriptor) AttachNode(n Node) {
	if d.node != nil {
		d.node.Dispose()
	}
	d.node = n
}

// Dispose releases the descriptor's runtime node, if any.
func (d *Descriptor) Dispose() {
	if d.node != nil {
		d.node.Disconnect()
		d.node.Dispose()
		d.node = nil
	}
}
