package domain

// Verdict is the outcome of one staleness check.
type Verdict struct {
	Target Target
	Stale  bool
}

// Report collects the verdicts of one check run, in target order.
type Report struct {
	Verdicts []Verdict
}

// StaleCount returns the number of stale targets.
func (r *Report) StaleCount() int {
	n := 0
	for _, v := range r.Verdicts {
		if v.Stale {
			n++
		}
	}
	return n
}

// Stale returns the targets that need to be recompiled.
func (r *Report) Stale() []Target {
	targets := make([]Target, 0, r.StaleCount())
	for _, v := range r.Verdicts {
		if v.Stale {
			targets = append(targets, v.Target)
		}
	}
	return targets
}
