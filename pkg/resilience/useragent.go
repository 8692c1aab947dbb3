package resilience

// DefaultUserAgents is the pool rotated across attempts.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
}

// nextUserAgent picks an index into a pool of n agents that differs from prev
// whenever n > 1. prev < 0 means no previous pick.
func nextUserAgent(n, prev int, rnd RandomSource) int {
	if n <= 1 {
		return 0
	}
	if prev < 0 || prev >= n {
		return rnd.IntN(n)
	}
	i := rnd.IntN(n - 1)
	if i >= prev {
		i++
	}
	return i
}
