package session

// Defaults applied when load is called with non-positive parameters.
// These match what the mobile host ships with: a 2048-token window and four
// decode threads, CPU only.
const (
	defaultNCtx     = 2048
	defaultNThreads = 4
)

// resolveNCtx returns the effective context window for a requested value.
func resolveNCtx(n int) int {
	if n <= 0 {
		return defaultNCtx
	}
	return n
}

// resolveNThreads returns the effective thread count for a requested value.
// The same count is used for prompt prefill and per-token decode batches.
func resolveNThreads(n int) int {
	if n <= 0 {
		return defaultNThreads
	}
	return n
}
