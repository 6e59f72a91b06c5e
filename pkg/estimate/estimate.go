// Package estimate produces best-effort media size figures for encodings
// whose origin reports no byte size.
package estimate

// AssumedDurationS is the fixed duration, in seconds, the heuristic assumes
// when the origin reports none. The resulting figure ranks and displays
// formats; it is never authoritative for allocation or limit enforcement.
const AssumedDurationS = 300

const (
	defaultSize = 100 * 1024 * 1024 // 100 MiB when nothing usable is known

	// Bytes per pixel per frame, by resolution tier.
	coeff1080 = 0.07
	coeff720  = 0.05
	coeffLow  = 0.03

	bitsPerByte    = 8
	bytesPerKbit   = 1000.0 / bitsPerByte
	tier1080Height = 1080
	tier720Height  = 720
)

// Size estimates a download size in bytes from whatever metadata the origin
// supplied. Unknown fields are zero. The function is total: it returns a
// positive figure for any input combination.
func Size(width, height int, fps, totalKbps, videoKbps, audioKbps float64) uint64 {
	switch {
	case totalKbps > 0:
		return fromKbps(totalKbps)
	case videoKbps > 0 && audioKbps > 0:
		return fromKbps(videoKbps + audioKbps)
	case width > 0 && height > 0 && fps > 0:
		coeff := coeffLow

		switch {
		case height >= tier1080Height:
			coeff = coeff1080
		case height >= tier720Height:
			coeff = coeff720
		}

		// Degenerate inputs can truncate to zero; a size figure never is.
		return max(uint64(float64(width)*float64(height)*fps*coeff*AssumedDurationS), 1)
	default:
		return defaultSize
	}
}

func fromKbps(kbps float64) uint64 {
	return max(uint64(kbps*bytesPerKbit*AssumedDurationS), 1)
}
