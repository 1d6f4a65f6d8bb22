package models

// Source type constants: where a playlist's channels came from.
const (
	SourceTypeFile int16 = 0
	SourceTypeURL  int16 = 1
)

// Category labels with special meaning.
const (
	// AllCategory is the synthetic category that matches every channel.
	AllCategory = "All"
	// DefaultCategory is assigned to channels without a group-title.
	DefaultCategory = "General"
)
