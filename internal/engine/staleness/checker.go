// Package staleness decides whether a compiled output must be regenerated from
// its template and everything the template transitively imports.
package staleness

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/core/ports"
	"go.trai.ch/stale/internal/engine/depgraph"
	"go.trai.ch/zerr"
)

// Checker answers staleness queries for one run.
//
// A Checker owns its timestamp cache and staleness memo, so every answer within
// a run is computed against the same view of the filesystem. The dependency
// cache is injected and may be shared with other checkers of the same scope.
// A Checker is not safe for concurrent use.
type Checker struct {
	opts      domain.Options
	probe     ports.FileProbe
	extractor ports.DependencyExtractor
	deps      *depgraph.Cache
	mtimes    *timestamps
	memo      memo
	logger    ports.Logger
	cycles    map[string]struct{}
}

// NewChecker creates a Checker bound to the given extractor options.
func NewChecker(
	opts domain.Options,
	probe ports.FileProbe,
	extractor ports.DependencyExtractor,
	deps *depgraph.Cache,
) *Checker {
	return &Checker{
		opts:      opts,
		probe:     probe,
		extractor: extractor,
		deps:      deps,
		mtimes:    newTimestamps(probe),
		memo:      make(memo),
		cycles:    make(map[string]struct{}),
	}
}

// WithLogger makes the Checker report recovered syntax errors and cut import cycles.
func (c *Checker) WithLogger(l ports.Logger) *Checker {
	c.logger = l
	return c
}

// NeedsUpdate reports whether the output at outputPath must be recompiled from
// the template at templatePath.
//
// A missing output or template is stale. Templates that fail to parse never
// cause an error; failing to stat or read an existing file does.
func (c *Checker) NeedsUpdate(outputPath, templatePath string) (bool, error) {
	output, err := absolute(outputPath)
	if err != nil {
		return false, err
	}
	template, err := absolute(templatePath)
	if err != nil {
		return false, err
	}

	present, err := c.bothExist(output, template)
	if err != nil {
		return false, err
	}
	if !present {
		c.deps.Forget(template)
		return true, nil
	}

	outputMtime, err := c.mtimes.get(output)
	if err != nil {
		return c.staleIfMissing(template, err)
	}
	templateMtime, err := c.mtimes.get(template)
	if err != nil {
		return c.staleIfMissing(template, err)
	}

	if templateMtime.After(outputMtime) {
		return true, nil
	}

	stale, _, err := c.dependenciesStale(template, outputMtime, &trail{})
	return stale, err
}

func (c *Checker) bothExist(output, template string) (bool, error) {
	ok, err := c.probe.Exists(output)
	if err != nil || !ok {
		return false, err
	}
	return c.probe.Exists(template)
}

// staleIfMissing handles a file that vanished between the existence check and the stat.
func (c *Checker) staleIfMissing(template string, err error) (bool, error) {
	if errors.Is(err, fs.ErrNotExist) {
		c.deps.Forget(template)
		return true, nil
	}
	return false, err
}

// noCut is the low link of a result that no cycle cut reached.
const noCut = math.MaxInt

// dependenciesStale reports whether any transitive import of template changed
// after outputMtime.
//
// low is the shallowest trail position a cycle cut reached while computing the
// answer, or noCut. A negative answer is provisional while low sits above
// template's own position, and is kept out of the memo until the cycle closes.
func (c *Checker) dependenciesStale(template string, outputMtime time.Time, tr *trail) (stale bool, low int, err error) {
	if stale, ok := c.memo.lookup(template, outputMtime); ok {
		return stale, noCut, nil
	}

	if at := tr.index(template); at >= 0 {
		c.warnCycle(tr, at)
		return false, at, nil
	}

	entry, err := c.dependencies(template)
	if err != nil {
		return false, noCut, err
	}
	if entry.Broken {
		c.warn(fmt.Sprintf("%s has syntax errors, assuming it has no dependencies", template))
	}

	pos := tr.push(template)
	defer tr.pop()

	low = noCut
	for _, dep := range entry.Imports {
		depStale, depLow, err := c.dependencyUpdated(dep, outputMtime, tr)
		if err != nil {
			return false, noCut, err
		}
		if depStale {
			stale, low = true, noCut
			break
		}
		low = min(low, depLow)
	}

	if low < pos {
		return stale, low, nil
	}
	c.memo.record(template, outputMtime, stale)
	return stale, noCut, nil
}

// dependencyUpdated reports whether dep, or anything it imports, changed after outputMtime.
// A dependency that is gone or no longer parses counts as changed.
func (c *Checker) dependencyUpdated(dep string, outputMtime time.Time, tr *trail) (stale bool, low int, err error) {
	mtime, err := c.mtimes.get(dep)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, noCut, nil
		}
		return false, noCut, err
	}
	if mtime.After(outputMtime) {
		return true, noCut, nil
	}

	entry, err := c.dependencies(dep)
	if err != nil {
		return false, noCut, err
	}
	if entry.Broken {
		return true, noCut, nil
	}

	return c.dependenciesStale(dep, outputMtime, tr)
}

// dependencies returns the direct imports of template, extracting them again
// only when the template changed since they were cached.
func (c *Checker) dependencies(template string) (domain.DependencyEntry, error) {
	mtime, err := c.mtimes.get(template)
	if err != nil {
		return domain.DependencyEntry{}, err
	}
	return c.deps.Resolve(template, mtime, func() (domain.Extraction, error) {
		return c.extractor.Extract(template, c.opts)
	})
}

// warnCycle reports the cycle closing at trail position at, once per run.
func (c *Checker) warnCycle(tr *trail, at int) {
	key := tr.cycleKey(at)
	if _, seen := c.cycles[key]; seen {
		return
	}
	c.cycles[key] = struct{}{}
	c.warn(fmt.Sprintf("%s: %s", domain.ErrDependencyCycle.Error(), tr.cycle(at)))
}

func (c *Checker) warn(msg string) {
	if c.logger != nil {
		c.logger.Warn(msg)
	}
}

func absolute(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrFailedToResolvePath.Error()), "path", path)
	}
	return abs, nil
}

// trail is the stack of templates whose imports are being scanned.
type trail struct {
	order []string
}

// push appends path and returns its position.
func (t *trail) push(path string) int {
	t.order = append(t.order, path)
	return len(t.order) - 1
}

func (t *trail) pop() {
	t.order = t.order[:len(t.order)-1]
}

func (t *trail) index(path string) int {
	return slices.Index(t.order, path)
}

// cycle renders the import chain from position at back to the template there.
func (t *trail) cycle(at int) string {
	return strings.Join(append(slices.Clip(t.order[at:]), t.order[at]), " -> ")
}

// cycleKey names the cycle starting at position at independently of where it was entered.
func (t *trail) cycleKey(at int) string {
	members := slices.Clone(t.order[at:])
	first := slices.Index(members, slices.Min(members))
	return strings.Join(slices.Concat(members[first:], members[:first]), "\x00")
}
