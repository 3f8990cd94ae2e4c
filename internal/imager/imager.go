package imager

import (
	"time"
)

// ControlKind classifies a camera control
type ControlKind string

const (
	KindNumber ControlKind = "number"
	KindCombo  ControlKind = "combo"
	KindBool   ControlKind = "bool"
)

// Choice is one selectable option of a combo control
type Choice struct {
	Label string
	Value interface{}
}

// Control describes one configurable camera setting and its current value.
// Duration-flavored number controls carry a DurationUnit: the scale, in
// seconds, of one unit of Value (e.g. 1e-6 for a microsecond exposure knob).
type Control struct {
	Name         string
	Kind         ControlKind
	Value        interface{}
	Choices      []Choice
	IsDuration   bool
	DurationUnit float64
}

// Duration converts a duration-flavored control's value to a time.Duration.
// Returns zero for non-duration controls.
func (c Control) Duration() time.Duration {
	if !c.IsDuration {
		return 0
	}
	v, ok := c.Value.(float64)
	if !ok {
		return 0
	}
	return time.Duration(v * c.DurationUnit * float64(time.Second))
}

// Imager represents a camera: its identity and the controls it exposes.
// Frame delivery is a separate concern; sources hand frames directly to
// recorder.Controller.Handle.
type Imager interface {
	// Name returns a human-readable camera identity
	Name() string

	// Controls enumerates the camera's configurable settings with their
	// current values
	Controls() []Control
}
