package staleness

import "time"

// MemoVerdicts exposes the recorded verdicts of template for white-box assertions.
func (c *Checker) MemoVerdicts(template string) map[time.Time]bool {
	out := make(map[time.Time]bool, len(c.memo[template]))
	for _, v := range c.memo[template] {
		out[v.outputMtime] = v.stale
	}
	return out
}
