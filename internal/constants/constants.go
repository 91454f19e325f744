// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Face matching constants
const (
	// DefaultRecognizeDistance is the exclusive upper bound on Euclidean distance
	// for a match to count as Recognized or Uncertain
	DefaultRecognizeDistance = 0.5

	// DefaultRecognizedConfidence is the minimum confidence percentage for Recognized
	DefaultRecognizedConfidence = 50.0

	// DefaultUncertainConfidence is the minimum confidence percentage for Uncertain
	DefaultUncertainConfidence = 40.0

	// DefaultReidentifyDistance is the max distance for two unknown sightings
	// to be treated as the same person by the sighting service
	DefaultReidentifyDistance = 0.5
)

// Engine constants
const (
	// DefaultCyclePeriodMillis is the period of the match-and-update loop
	DefaultCyclePeriodMillis = 2000

	// DefaultClearAfter is the number of consecutive empty cycles that clear the room
	DefaultClearAfter = 3

	// DefaultUnknownTTLSeconds is how long an unknown signature suppresses new submissions
	DefaultUnknownTTLSeconds = 30

	// DefaultSignaturePrefix is the number of embedding components in an unknown signature key
	DefaultSignaturePrefix = 10

	// DefaultCropMargin is the padding in pixels added around an unknown face crop
	DefaultCropMargin = 20

	// MaxCropSize is the maximum dimension (width or height) of an uploaded unknown crop
	MaxCropSize = 320

	// CropJPEGQuality is the JPEG quality for uploaded unknown crops
	CropJPEGQuality = 85
)

// Frame source constants
const (
	// DefaultSampleIntervalMillis is how often the snapshot poller grabs a raw frame
	DefaultSampleIntervalMillis = 40

	// DefaultFrameWidth and DefaultFrameHeight are the reference capture resolution
	DefaultFrameWidth  = 1280
	DefaultFrameHeight = 720
)

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// Service constants
const (
	// DefaultCooldownSeconds is the minimum interval between two toggles of one identity
	DefaultCooldownSeconds = 60

	// DefaultSightingLimit is the default number of sightings returned by listings
	DefaultSightingLimit = 50

	// MaxSightingLimit caps the sighting listing page size
	MaxSightingLimit = 500

	// MaxUploadSize is the maximum request body size in bytes (10MB)
	MaxUploadSize = 10 << 20
)
