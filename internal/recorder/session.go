package recorder

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/astroshed/starcapture/internal/imager"
	"github.com/astroshed/starcapture/internal/logger"
)

// sidecarSuffix is appended to the writer's output path to derive the
// metadata file path
const sidecarSuffix = ".txt"

// Session is the metadata record of one recording run. It snapshots the
// camera identity and control values at construction, collects end-of-run
// statistics through Finalize and persists itself as an indented JSON
// sidecar on Close, but only if a base filename was ever bound. The write
// is best-effort: metadata persistence must never abort a recording, so an
// unwritable destination is swallowed.
type Session struct {
	ID         string
	started    time.Time
	filename   string
	properties map[string]interface{}
	closed     bool
}

// NewSession snapshots identity and control state at recording start
func NewSession(camera, observer, telescope string, controls []imager.Control) *Session {
	s := &Session{
		ID:      uuid.NewString(),
		started: time.Now(),
	}
	s.properties = map[string]interface{}{
		"session-id":      s.ID,
		"started":         s.started.Format(time.RFC3339),
		"camera":          camera,
		"observer":        observer,
		"telescope":       telescope,
		"camera-settings": snapshotControls(controls),
	}
	return s
}

// snapshotControls renders each control as a nested document: value and
// type always, a label->value choices map for combos, and seconds/
// milliseconds/microseconds re-expressions for duration controls.
func snapshotControls(controls []imager.Control) map[string]interface{} {
	settings := make(map[string]interface{}, len(controls))
	for _, ctl := range controls {
		entry := map[string]interface{}{
			"value": ctl.Value,
			"type":  string(ctl.Kind),
		}
		if ctl.Kind == imager.KindCombo {
			choices := make(map[string]interface{}, len(ctl.Choices))
			for _, choice := range ctl.Choices {
				choices[choice.Label] = choice.Value
			}
			entry["choices"] = choices
		}
		if ctl.Kind == imager.KindNumber && ctl.IsDuration {
			entry["type"] = "duration"
			if v, ok := ctl.Value.(float64); ok {
				seconds := v * ctl.DurationUnit
				entry["value_seconds"] = seconds
				entry["value_milliseconds"] = seconds * 1000
				entry["value_microseconds"] = seconds * 1000000
			}
		}
		settings[ctl.Name] = entry
	}
	return settings
}

// SetBaseFilename binds the sidecar path, derived from the writer's output
// path. Only the first call takes effect.
func (s *Session) SetBaseFilename(path string) {
	if s.filename != "" || path == "" {
		return
	}
	s.filename = path + sidecarSuffix
}

// Filename returns the bound sidecar path, or empty if none was set
func (s *Session) Filename() string {
	return s.filename
}

// Finalize records end-of-run statistics. Mean FPS divides total frames by
// the elapsed whole seconds, clamped to a minimum of one second so that
// sub-second runs report frames-per-one-second rather than infinity.
func (s *Session) Finalize(totalFrames uint64, width, height int) {
	ended := time.Now()
	elapsed := int64(ended.Sub(s.started).Seconds())
	if elapsed < 1 {
		elapsed = 1
	}
	s.properties["ended"] = ended.Format(time.RFC3339)
	s.properties["total-frames"] = totalFrames
	s.properties["width"] = width
	s.properties["height"] = height
	s.properties["mean-fps"] = float64(totalFrames) / float64(elapsed)
}

// Close persists the sidecar exactly once. Without a bound filename nothing
// is written. Failures are logged and otherwise ignored.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true

	if s.filename == "" {
		return
	}

	data, err := json.MarshalIndent(s.properties, "", "    ")
	if err != nil {
		logger.WithComponent("session").Warn().
			Err(err).
			Msg("Failed to encode session metadata")
		return
	}
	if err := os.WriteFile(s.filename, data, 0644); err != nil {
		logger.WithComponent("session").Warn().
			Err(err).
			Str("path", s.filename).
			Msg("Failed to write session metadata")
		return
	}

	logger.WithComponent("session").Info().
		Str("path", s.filename).
		Msg("Session metadata written")
}
