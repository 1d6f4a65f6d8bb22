package fetcher

import "github.com/voyagen/tvcatalog/internal/models"

// Result is the outcome of parsing one playlist document.
type Result struct {
	Channels []models.Channel
	// Skipped counts entries dropped for a missing name or an unsupported
	// stream URL.
	Skipped int
}
