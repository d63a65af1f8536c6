package timer

const quarterHour = 900 // seconds

// Quantize converts elapsed seconds into billable hours, rounding up to the
// next quarter hour. A started quarter is billed in full.
func Quantize(elapsedSeconds int64) float64 {
	return float64(quarters(elapsedSeconds)) * 0.25
}

func quarters(elapsedSeconds int64) int64 {
	if elapsedSeconds <= 0 {
		return 0
	}
	return (elapsedSeconds + quarterHour - 1) / quarterHour
}
