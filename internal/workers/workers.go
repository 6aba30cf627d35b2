package workers

import (
	"os"
	"runtime"
	"strconv"
)

// EnvOverride names the environment variable that pins the worker count.
const EnvOverride = "LOAD_WORKERS"

// Count returns the number of workers for a task with the given
// workers-per-CPU multiplier, capped at limit (0 means no cap).
//
// The CPU count comes from GOMAXPROCS, which the runtime derives from the
// container CPU limit. A positive LOAD_WORKERS value replaces the computed
// count but is still capped at limit.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(EnvOverride); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			return capAt(count, limit)
		}
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if workers < 1 {
		workers = 1
	}
	return capAt(workers, limit)
}

func capAt(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}

// ForIO returns the worker count for network and disk bound work such as
// fetching remote playlists (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// ForMixed returns the worker count for work that reads and then parses,
// such as scanning a playlist directory (1.5 per CPU).
func ForMixed(limit int) int {
	return Count(1.5, limit)
}
