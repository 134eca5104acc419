package telemetry

// InstrumentationName identifies spans created by this service.
const InstrumentationName = "github.com/kyotoapp/nextdest"

// Span names.
const (
	SpanRequestSelection = "destination.request_selection"
	SpanAddLocation      = "destination.add_location"
	SpanComputeWeights   = "destination.compute_weights"
)

// Span attribute keys.
const (
	AttrCandidates   = "nextdest.candidates"
	AttrSelectedID   = "nextdest.selected.id"
	AttrSelectedName = "nextdest.selected.name"
	AttrDistanceKm   = "nextdest.selected.distance_km"
	AttrDraw         = "nextdest.draw"
)
