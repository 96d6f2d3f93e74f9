package meta

// Process-wide tracking switches, read at the start of every dispatched
// operation. Both default to enabled. Mutating them while operations are
// in flight on other goroutines is undefined behavior; callers must
// serialize flag changes against dispatch themselves.
var (
	trackMeta       = true
	trackTransforms = true
)

// TrackMeta reports whether metadata propagation is enabled.
func TrackMeta() bool {
	return trackMeta
}

// SetTrackMeta enables or disables metadata propagation. Takes effect for
// subsequent operations only.
func SetTrackMeta(v bool) {
	trackMeta = v
}

// TrackTransforms reports whether transform-history tracking is enabled.
func TrackTransforms() bool {
	return trackTransforms
}

// SetTrackTransforms enables or disables transform-history tracking.
// Takes effect for subsequent operations only.
func SetTrackTransforms(v bool) {
	trackTransforms = v
}
