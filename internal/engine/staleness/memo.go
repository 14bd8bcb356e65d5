package staleness

import "time"

// verdict records whether a template's imports were stale against an output
// modified at outputMtime.
type verdict struct {
	outputMtime time.Time
	stale       bool
}

// memo holds prior verdicts per template.
//
// Staleness is anti-monotonic in the output mtime: an older output can only be
// staler. A fresh verdict at T therefore answers every query at T or later, and
// a stale verdict at T answers every query strictly earlier than T.
type memo map[string][]verdict

// lookup answers a query for template at outputMtime from a prior verdict, if one applies.
func (m memo) lookup(template string, outputMtime time.Time) (stale, ok bool) {
	for _, v := range m[template] {
		switch {
		case !v.stale && !v.outputMtime.After(outputMtime):
			return false, true
		case v.stale && v.outputMtime.After(outputMtime):
			return true, true
		}
	}
	return false, false
}

// record stores a verdict and drops the ones it makes redundant.
func (m memo) record(template string, outputMtime time.Time, stale bool) {
	kept := m[template][:0]
	for _, v := range m[template] {
		if v.stale == stale && dominates(outputMtime, v.outputMtime, stale) {
			continue
		}
		kept = append(kept, v)
	}
	m[template] = append(kept, verdict{outputMtime: outputMtime, stale: stale})
}

// dominates reports whether a verdict at t answers everything a verdict of the
// same kind at other does.
func dominates(t, other time.Time, stale bool) bool {
	if stale {
		return !other.After(t)
	}
	return !other.Before(t)
}
