package pipeline

import "time"

func NextBackoffForTest(current time.Duration) time.Duration {
	return nextBackoff(current, maxBackoff)
}
