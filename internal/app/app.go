// Package app implements the application layer for stale.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"

	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/core/ports"
	"go.trai.ch/stale/internal/engine/depgraph"
	"go.trai.ch/stale/internal/engine/staleness"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	probe        ports.FileProbe
	extractor    ports.DependencyExtractor
	lister       ports.TemplateLister
	registry     *depgraph.Registry
	logger       ports.Logger
	watcher      ports.Watcher
	tracer       ports.Tracer
	store        ports.DependencyStore
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	probe ports.FileProbe,
	extractor ports.DependencyExtractor,
	lister ports.TemplateLister,
	registry *depgraph.Registry,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		probe:        probe,
		extractor:    extractor,
		lister:       lister,
		registry:     registry,
		logger:       log,
	}
}

// WithWatcher sets the file watcher used by Watch.
func (a *App) WithWatcher(w ports.Watcher) *App {
	a.watcher = w
	return a
}

// WithTracer sets the tracer used to record checks.
func (a *App) WithTracer(t ports.Tracer) *App {
	a.tracer = t
	return a
}

// WithStore sets the store that persists dependency sets between runs.
func (a *App) WithStore(s ports.DependencyStore) *App {
	a.store = s
	return a
}

// CheckOptions configuration for the Check method.
type CheckOptions struct {
	// Dir is where stale.yaml is searched from. Empty means the working directory.
	Dir string
	// Output and Template name a single pair to check instead of the configured targets.
	Output   string
	Template string
	// LoadPaths are appended to the configured load paths.
	LoadPaths []string
	// Workers overrides the configured worker count when positive.
	Workers int
}

func (o CheckOptions) explicit() bool {
	return o.Output != "" || o.Template != ""
}

// jsonSwitcher is implemented by loggers that can switch to JSON output.
type jsonSwitcher interface {
	SetJSON(enable bool)
}

// SetLogJSON switches the logger to JSON output when it supports it.
func (a *App) SetLogJSON(enable bool) {
	if s, ok := a.logger.(jsonSwitcher); ok {
		s.SetJSON(enable)
	}
}

// traceRecorder is implemented by tracers that can export spans.
type traceRecorder interface {
	Record(w io.Writer)
	Shutdown(ctx context.Context) error
}

// RecordTrace exports the spans of later checks to w when the tracer supports it.
func (a *App) RecordTrace(w io.Writer) {
	if r, ok := a.tracer.(traceRecorder); ok {
		r.Record(w)
	}
}

// FlushTrace stops recording and flushes pending spans.
func (a *App) FlushTrace(ctx context.Context) error {
	if r, ok := a.tracer.(traceRecorder); ok {
		return r.Shutdown(ctx)
	}
	return nil
}

func (a *App) startSpan(ctx context.Context, name string) (context.Context, ports.Span) {
	if a.tracer == nil {
		return ctx, noopSpan{}
	}
	return a.tracer.Start(ctx, name)
}

type noopSpan struct{}

func (noopSpan) End()                     {}
func (noopSpan) RecordError(error)        {}
func (noopSpan) SetAttribute(string, any) {}

// Check reports which targets need to be recompiled.
//
// Targets are checked concurrently. Each worker owns a fresh staleness.Checker
// per call, backed by the dependency cache of its scope, and verdicts are
// returned in target order. The first error cancels the remaining checks.
func (a *App) Check(ctx context.Context, opts CheckOptions) (*domain.Report, error) {
	ctx, span := a.startSpan(ctx, "check")
	defer span.End()

	report, err := a.check(ctx, opts, span)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttribute("stale", report.StaleCount())
	return report, nil
}

func (a *App) check(ctx context.Context, opts CheckOptions, span ports.Span) (*domain.Report, error) {
	manifest, err := a.loadManifest(opts)
	if err != nil {
		return nil, err
	}

	loadPaths, err := absolutePaths(opts.LoadPaths)
	if err != nil {
		return nil, err
	}
	options := manifest.Options.WithLoadPaths(loadPaths...)

	targets, err := a.targets(manifest, options, opts)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, domain.ErrNoTargetsSpecified
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = manifest.Workers
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(targets))
	span.SetAttribute("targets", len(targets))
	span.SetAttribute("workers", workers)

	a.seedCaches(manifest.CacheFile, options, workers)

	verdicts := make([]domain.Verdict, len(targets))
	jobs := make(chan int)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := range targets {
			if err := ctx.Err(); err != nil {
				return err
			}
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for w := range workers {
		scope := workerScope(w)
		checker := staleness.NewChecker(options, a.probe, a.extractor, a.registry.For(scope)).
			WithLogger(a.logger)

		g.Go(func() error {
			for i := range jobs {
				stale, err := a.checkTarget(ctx, checker, scope, targets[i])
				if err != nil {
					return err
				}
				verdicts[i] = domain.Verdict{Target: targets[i], Stale: stale}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.Join(domain.ErrCheckFailed, err)
	}

	a.saveCaches(manifest.CacheFile, options)

	return &domain.Report{Verdicts: verdicts}, nil
}

// Watch checks the targets once and then again after every batch of file
// changes below the project root, handing each report to onReport. Failed
// checks are logged and watching continues. Watch returns nil once ctx is done.
func (a *App) Watch(ctx context.Context, opts CheckOptions, onReport func(*domain.Report)) error {
	if a.watcher == nil {
		return domain.ErrWatchFailed
	}

	manifest, err := a.loadManifest(opts)
	if err != nil {
		return err
	}

	if err := a.watcher.Start(ctx, manifest.Root); err != nil {
		return err
	}
	defer func() {
		_ = a.watcher.Stop()
	}()

	a.checkAndReport(ctx, opts, onReport)
	for paths := range a.watcher.Changes() {
		if ctx.Err() != nil {
			return nil
		}
		a.logger.Info(fmt.Sprintf("%d path(s) changed", len(paths)))
		a.checkAndReport(ctx, opts, onReport)
	}
	return nil
}

func (a *App) checkAndReport(ctx context.Context, opts CheckOptions, onReport func(*domain.Report)) {
	report, err := a.Check(ctx, opts)
	switch {
	case err == nil:
		onReport(report)
	case ctx.Err() != nil:
	default:
		a.logger.Error(err)
	}
}

// seedCaches loads persisted dependency sets into the cache of every worker.
// An unreadable cache file only costs a cold start.
func (a *App) seedCaches(path string, options domain.Options, workers int) {
	if a.store == nil || path == "" {
		return
	}

	entries, err := a.store.Load(path, options)
	if err != nil {
		a.logger.Warn(fmt.Sprintf("ignoring dependency cache: %v", err))
		return
	}
	for w := range workers {
		a.registry.For(workerScope(w)).Seed(entries)
	}
}

func (a *App) saveCaches(path string, options domain.Options) {
	if a.store == nil || path == "" {
		return
	}

	if err := a.store.Save(path, options, a.registry.Entries()); err != nil {
		a.logger.Warn(fmt.Sprintf("could not save dependency cache: %v", err))
	}
}

func (a *App) checkTarget(ctx context.Context, checker *staleness.Checker, scope string, target domain.Target) (bool, error) {
	_, span := a.startSpan(ctx, "needs_update")
	defer span.End()
	span.SetAttribute("template", target.Template)
	span.SetAttribute("output", target.Output)
	span.SetAttribute("scope", scope)

	stale, err := checker.NeedsUpdate(target.Output, target.Template)
	if err != nil {
		err = zerr.With(err, "template", target.Template)
		span.RecordError(err)
		return false, err
	}
	span.SetAttribute("stale", stale)
	return stale, nil
}

func (a *App) loadManifest(opts CheckOptions) (*domain.Manifest, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	cwd, err := filepath.Abs(dir)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFailedToResolvePath.Error()), "path", dir)
	}

	manifest, err := a.configLoader.Load(cwd)
	switch {
	case err == nil:
		return manifest, nil
	case opts.explicit() && errors.Is(err, domain.ErrConfigNotFound):
		return &domain.Manifest{Root: cwd, Options: domain.DefaultOptions()}, nil
	default:
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
}

// targets returns the explicit pair when one was given, and otherwise the
// configured targets followed by every template found in the configured locations.
func (a *App) targets(manifest *domain.Manifest, options domain.Options, opts CheckOptions) ([]domain.Target, error) {
	if opts.explicit() {
		if opts.Output == "" || opts.Template == "" {
			return nil, domain.ErrInvalidTarget
		}
		pair, err := absolutePaths([]string{opts.Template, opts.Output})
		if err != nil {
			return nil, err
		}
		return []domain.Target{{Template: pair[0], Output: pair[1]}}, nil
	}

	targets := append([]domain.Target(nil), manifest.Targets...)
	for _, loc := range manifest.Locations {
		templates, err := a.lister.ListTemplates(loc.Source, options.TemplateExtensions())
		if err != nil {
			return nil, zerr.With(err, "location", loc.Source)
		}
		for _, tpl := range templates {
			out, err := loc.OutputFor(tpl)
			if err != nil {
				return nil, zerr.With(zerr.Wrap(err, domain.ErrFailedToResolvePath.Error()), "path", tpl)
			}
			targets = append(targets, domain.Target{Template: tpl, Output: out})
		}
	}
	return targets, nil
}

func workerScope(i int) string {
	return fmt.Sprintf("worker-%d", i)
}

func absolutePaths(paths []string) ([]string, error) {
	res := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrFailedToResolvePath.Error()), "path", p)
		}
		res = append(res, abs)
	}
	return res, nil
}
