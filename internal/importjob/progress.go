package importjob

import (
	"fmt"
	"time"
)

const (
	minRunningProgress = 5
	maxRunningProgress = 95
)

// estimateProgress maps elapsed time against the expected run length. The
// remote API reports no progress, so this is a heuristic that never claims
// completion.
func estimateProgress(elapsed, expected time.Duration) int {
	if expected <= 0 {
		return minRunningProgress
	}
	p := int(float64(elapsed) / float64(expected) * 100)
	return max(minRunningProgress, min(p, maxRunningProgress))
}

func runningMessage(elapsed time.Duration) string {
	return fmt.Sprintf("Phantom is running (%s)", elapsed.Round(time.Second))
}
