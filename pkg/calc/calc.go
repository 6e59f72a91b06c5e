// Package calc holds small pure calculations shared across the pipeline.
package calc

import (
	"math"
	"time"
)

const fullProgress = 100

// Progress calculates the completed percentage for a downloaded/total pair.
func Progress(downloaded, total int) int {
	if total <= 0 {
		return 0
	}

	return RoundToInt(float64(downloaded) / float64(total) * fullProgress)
}

// ETA calculates the estimated remaining time for a transfer started at the
// given time.
func ETA(downloaded, total int, started time.Time) time.Duration {
	if total <= 0 || downloaded <= 0 {
		return 0
	}

	elapsed := time.Since(started)

	return time.Duration(float64(elapsed) * (float64(total)/float64(downloaded) - 1))
}

// RoundToInt rounds v to the nearest int, treating NaN and infinities as zero.
func RoundToInt(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	return int(math.Round(v))
}
