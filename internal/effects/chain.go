package effects

import "fmt"

// Chain is the ordered list of effect descriptors a Loop Track carries
// (spec.md §4.6). Rebuild wires non-bypassed, non-Pitch effects in series
// via connect(source) -> Node, returning the chain's tail so the caller can
// connect it to the track gain / master bus. Pitch descriptors never
// appear in the runtime graph.
type Chain struct {
	descriptors []*Descriptor
}

// NewChain returns an empty effect chain.
func NewChain() *Chain { return &Chain{} }

// Add appends a descriptor to the end of the chain.
func (c *Chain) Add(d *Descriptor) {
	c.descriptors = append(c.descriptors, d)
}

// Remove disposes and removes the descriptor with the given id.
func (c *Chain) Remove(id string) error {
	for i, d := range c.descriptors {
		if d.ID == id {
			d.Dispose()
			c.descriptors = append(c.descriptors[:i], c.descriptors[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("effects: no descriptor with id %q", id)
}

// Move shifts the descriptor with the given id by dir positions (+1 or -1),
// clamped to the chain's bounds.
func (c *Chain) Move(id string, dir int) error {
	idx := c.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("effects: no descriptor with id %q", id)
	}
	newIdx := idx + dir
	if newIdx < 0 || newIdx >= len(c.descriptors) {
		return nil // no-op at the ends, not an error
	}
	c.descriptors[idx], c.descriptors[newIdx] = c.descriptors[newIdx], c.descriptors[idx]
	return nil
}

// ToggleBypass flips the bypass flag on the descriptor with the given id.
func (c *Chain) ToggleBypass(id string) error {
	d := c.find(id)
	if d == nil {
		return fmt.Errorf("effects: no descriptor with id %q", id)
	}
	d.Bypass = !d.Bypass
	return nil
}

// SetParam sets a parameter on the descriptor with the given id.
func (c *Chain) SetParam(id, key string, value float64) error {
	d := c.find(id)
	if d == nil {
		return fmt.Errorf("effects: no descriptor with id %q", id)
	}
	d.SetParam(key, value)
	return nil
}

// Descriptors returns the chain in order. Callers must not mutate the
// returned slice's descriptors' identity (ID/Type); use the Chain mutators.
func (c *Chain) Descriptors() []*Descriptor {
	return c.descriptors
}

// PitchSemitones returns the semitone offset of the chain's Pitch
// descriptor, or 0 if none is present.
func (c *Chain) PitchSemitones() float64 {
	for _, d := range c.descriptors {
		if d.Type == Pitch && !d.Bypass {
			return d.Params["semitones"]
		}
	}
	return 0
}

// Rebuild connects each non-bypassed, non-Pitch descriptor's node in
// series, starting from source, and returns the tail node to be connected
// onward to the track gain / master bus. connect builds (or reuses) the
// Node for a descriptor; Rebuild calls it for every live, connectable
// descriptor in chain order.
func (c *Chain) Rebuild(source Node, connect func(d *Descriptor) Node) Node {
	tail := source
	for _, d := range c.descriptors {
		if d.Bypass || d.Type == Pitch {
			continue
		}
		node := connect(d)
		if node == nil {
			continue
		}
		node.Connect(tail)
		d.AttachNode(node)
		tail = node
	}
	return tail
}

// Clone deep-copies the chain's descriptors (params map included) without
// their runtime nodes -- used for undo snapshots, which must not carry live
// node references into a stack entry.
func (c *Chain) Clone() *Chain {
	out := &Chain{descriptors: make([]*Descriptor, len(c.descriptors))}
	for i, d := range c.descriptors {
		params := make(map[string]float64, len(d.Params))
		for k, v := range d.Params {
			params[k] = v
		}
		out.descriptors[i] = &Descriptor{ID: d.ID, Type: d.Type, Params: params, Bypass: d.Bypass}
	}
	return out
}

// Dispose releases every descriptor's runtime node.
func (c *Chain) Dispose() {
	for _, d := range c.descriptors {
		d.Dispose()
	}
}

func (c *Chain) find(id string) *Descriptor {
	for _, d := range c.descriptors {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func (c *Chain) indexOf(id string) int {
	for i, d := range c.descriptors {
		if d.ID == id {
			return i
		}
	}
	return -1
}
