package app_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stale/internal/adapters/fs"
	"go.trai.ch/stale/internal/adapters/store"
	"go.trai.ch/stale/internal/adapters/telemetry"
	"go.trai.ch/stale/internal/adapters/template"
	"go.trai.ch/stale/internal/app"
	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/core/ports"
	"go.trai.ch/stale/internal/core/ports/mocks"
	"go.trai.ch/stale/internal/engine/depgraph"
	"go.uber.org/mock/gomock"
)

// project is a temporary directory of templates and outputs with controlled mtimes.
type project struct {
	t    *testing.T
	root string
}

func newProject(t *testing.T) *project {
	t.Helper()
	return &project{t: t, root: t.TempDir()}
}

func (p *project) path(rel string) string {
	return filepath.Join(p.root, filepath.FromSlash(rel))
}

// write creates rel with content and sets its mtime to unix seconds.
func (p *project) write(rel, content string, unix int64) string {
	p.t.Helper()
	path := p.path(rel)
	require.NoError(p.t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
	require.NoError(p.t, os.WriteFile(path, []byte(content), domain.PrivateFilePerm))
	mtime := time.Unix(unix, 0)
	require.NoError(p.t, os.Chtimes(path, mtime, mtime))
	return path
}

type harness struct {
	app      *app.App
	loader   *mocks.MockConfigLoader
	logger   *mocks.MockLogger
	registry *depgraph.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)

	h := &harness{
		loader:   mocks.NewMockConfigLoader(ctrl),
		logger:   mocks.NewMockLogger(ctrl),
		registry: depgraph.NewRegistry(),
	}
	probe := fs.NewProbe()
	h.app = app.New(h.loader, probe, template.NewScanner(probe), fs.NewLister(fs.NewWalker()), h.registry, h.logger)
	return h
}

func TestApp_Check_ConfiguredTargets(t *testing.T) {
	p := newProject(t)
	p.write("src/_colors.ss", "$red: #f00;", 100)
	p.write("src/fresh.ss", `@import "colors";`, 100)
	p.write("src/edited.ss", "body {}", 300)
	p.write("src/themed.ss", `@import "colors";`, 100)
	p.write("public/fresh.css", "", 200)
	p.write("public/edited.css", "", 200)
	p.write("public/themed.css", "", 200)
	// Touching the partial after themed.css was written makes it stale; fresh.css is newer still.
	p.write("src/_colors.ss", "$red: #e00;", 250)
	p.write("public/fresh.css", "", 260)

	h := newHarness(t)
	h.loader.EXPECT().Load(p.root).Return(&domain.Manifest{
		Root:    p.root,
		Options: domain.DefaultOptions(),
		Workers: 2,
		Targets: []domain.Target{
			{Template: p.path("src/fresh.ss"), Output: p.path("public/fresh.css")},
			{Template: p.path("src/edited.ss"), Output: p.path("public/edited.css")},
			{Template: p.path("src/themed.ss"), Output: p.path("public/themed.css")},
			{Template: p.path("src/new.ss"), Output: p.path("public/new.css")},
		},
	}, nil)

	report, err := h.app.Check(context.Background(), app.CheckOptions{Dir: p.root})
	require.NoError(t, err)

	require.Len(t, report.Verdicts, 4)
	assert.False(t, report.Verdicts[0].Stale, "fresh")
	assert.True(t, report.Verdicts[1].Stale, "edited")
	assert.True(t, report.Verdicts[2].Stale, "themed")
	assert.True(t, report.Verdicts[3].Stale, "missing template")
	assert.Equal(t, p.path("src/fresh.ss"), report.Verdicts[0].Target.Template)
	assert.Equal(t, 3, report.StaleCount())

	assert.Equal(t, []string{"worker-0", "worker-1"}, h.registry.Scopes())
}

func TestApp_Check_Locations(t *testing.T) {
	p := newProject(t)
	p.write("src/pages/home.ss", "", 100)
	p.write("src/pages/blog/post.ss", "", 300)
	p.write("src/pages/_layout.ss", "", 100)
	p.write("public/pages/home.css", "", 200)
	p.write("public/pages/blog/post.css", "", 200)

	h := newHarness(t)
	h.loader.EXPECT().Load(p.root).Return(&domain.Manifest{
		Root:    p.root,
		Options: domain.DefaultOptions(),
		Locations: []domain.Location{
			{Source: p.path("src/pages"), Output: p.path("public/pages")},
		},
	}, nil)

	report, err := h.app.Check(context.Background(), app.CheckOptions{Dir: p.root, Workers: 1})
	require.NoError(t, err)

	assert.Equal(t, []domain.Verdict{
		{
			Target: domain.Target{Template: p.path("src/pages/blog/post.ss"), Output: p.path("public/pages/blog/post.css")},
			Stale:  true,
		},
		{
			Target: domain.Target{Template: p.path("src/pages/home.ss"), Output: p.path("public/pages/home.css")},
			Stale:  false,
		},
	}, report.Verdicts)
}

func TestApp_Check_ExplicitPairWithoutConfig(t *testing.T) {
	p := newProject(t)
	tpl := p.write("app.ss", `@import "grid";`, 100)
	out := p.write("app.css", "", 200)
	p.write("lib/_grid.ss", "", 300)

	h := newHarness(t)
	h.loader.EXPECT().Load(p.root).Return(nil, domain.ErrConfigNotFound)

	report, err := h.app.Check(context.Background(), app.CheckOptions{
		Dir:       p.root,
		Output:    out,
		Template:  tpl,
		LoadPaths: []string{p.path("lib")},
	})
	require.NoError(t, err)
	require.Len(t, report.Verdicts, 1)
	assert.True(t, report.Verdicts[0].Stale)
}

func TestApp_Check_SyntaxErrorIsWarned(t *testing.T) {
	p := newProject(t)
	tpl := p.write("app.ss", `@import "unterminated;`, 100)
	out := p.write("app.css", "", 200)

	h := newHarness(t)
	h.loader.EXPECT().Load(p.root).Return(nil, domain.ErrConfigNotFound)
	h.logger.EXPECT().Warn(gomock.Any()).Times(1)

	report, err := h.app.Check(context.Background(), app.CheckOptions{Dir: p.root, Output: out, Template: tpl})
	require.NoError(t, err)
	assert.False(t, report.Verdicts[0].Stale)
}

func TestApp_Check_Errors(t *testing.T) {
	t.Run("config failure", func(t *testing.T) {
		h := newHarness(t)
		h.loader.EXPECT().Load(gomock.Any()).Return(nil, domain.ErrConfigParseFailed)

		_, err := h.app.Check(context.Background(), app.CheckOptions{})
		require.ErrorContains(t, err, "failed to load configuration")
	})

	t.Run("missing config without explicit pair", func(t *testing.T) {
		h := newHarness(t)
		h.loader.EXPECT().Load(gomock.Any()).Return(nil, domain.ErrConfigNotFound)

		_, err := h.app.Check(context.Background(), app.CheckOptions{})
		require.ErrorContains(t, err, domain.ErrConfigNotFound.Error())
	})

	t.Run("no targets", func(t *testing.T) {
		h := newHarness(t)
		h.loader.EXPECT().Load(gomock.Any()).Return(&domain.Manifest{Options: domain.DefaultOptions()}, nil)

		_, err := h.app.Check(context.Background(), app.CheckOptions{})
		require.ErrorIs(t, err, domain.ErrNoTargetsSpecified)
	})

	t.Run("incomplete pair", func(t *testing.T) {
		h := newHarness(t)
		h.loader.EXPECT().Load(gomock.Any()).Return(nil, domain.ErrConfigNotFound)

		_, err := h.app.Check(context.Background(), app.CheckOptions{Output: "app.css"})
		require.ErrorIs(t, err, domain.ErrInvalidTarget)
	})

	t.Run("missing location", func(t *testing.T) {
		h := newHarness(t)
		dir := t.TempDir()
		h.loader.EXPECT().Load(gomock.Any()).Return(&domain.Manifest{
			Options:   domain.DefaultOptions(),
			Locations: []domain.Location{{Source: filepath.Join(dir, "nope"), Output: dir}},
		}, nil)

		_, err := h.app.Check(context.Background(), app.CheckOptions{})
		require.ErrorContains(t, err, domain.ErrPathStatFailed.Error())
	})
}

func TestApp_Check_FilesystemErrorCancelsRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	probe := mocks.NewMockFileProbe(ctrl)
	extractor := mocks.NewMockDependencyExtractor(ctrl)
	lister := mocks.NewMockTemplateLister(ctrl)
	logger := mocks.NewMockLogger(ctrl)

	denied := errors.New("permission denied")
	loader.EXPECT().Load(gomock.Any()).Return(&domain.Manifest{
		Options: domain.DefaultOptions(),
		Targets: []domain.Target{{Template: "/src/app.ss", Output: "/public/app.css"}},
	}, nil)
	probe.EXPECT().Exists("/public/app.css").Return(false, denied)

	a := app.New(loader, probe, extractor, lister, depgraph.NewRegistry(), logger)
	_, err := a.Check(context.Background(), app.CheckOptions{})
	require.ErrorIs(t, err, domain.ErrCheckFailed)
	require.ErrorIs(t, err, denied)
}

func TestApp_Check_Cancelled(t *testing.T) {
	p := newProject(t)
	targets := make([]domain.Target, 0, 8)
	for i := range 8 {
		name := filepath.Join("src", string(rune('a'+i))+".ss")
		targets = append(targets, domain.Target{Template: p.write(name, "", 100), Output: p.path(name + ".css")})
	}

	h := newHarness(t)
	h.loader.EXPECT().Load(gomock.Any()).Return(&domain.Manifest{Options: domain.DefaultOptions(), Targets: targets}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.app.Check(ctx, app.CheckOptions{Dir: p.root, Workers: 1})
	require.ErrorIs(t, err, context.Canceled)
}

type jsonLogger struct {
	*mocks.MockLogger
	json bool
}

func (l *jsonLogger) SetJSON(enable bool) { l.json = enable }

func TestApp_SetLogJSON(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := &jsonLogger{MockLogger: mocks.NewMockLogger(ctrl)}

	a := app.New(nil, nil, nil, nil, depgraph.NewRegistry(), log)
	a.SetLogJSON(true)
	assert.True(t, log.json)

	// Loggers without JSON support are left alone.
	plain := app.New(nil, nil, nil, nil, depgraph.NewRegistry(), mocks.NewMockLogger(ctrl))
	assert.NotPanics(t, func() { plain.SetLogJSON(true) })
}

// batches yields each batch in turn, like a watcher that saw them.
func batches(paths ...[]string) iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		for _, p := range paths {
			if !yield(p) {
				return
			}
		}
	}
}

func TestApp_Watch(t *testing.T) {
	p := newProject(t)
	tpl := p.write("src/app.ss", `@import "colors";`, 100)
	p.write("src/_colors.ss", "", 100)
	out := p.write("public/app.css", "", 200)

	h := newHarness(t)
	w := mocks.NewMockWatcher(gomock.NewController(t))
	h.app.WithWatcher(w)

	manifest := &domain.Manifest{
		Root:    p.root,
		Options: domain.DefaultOptions(),
		Targets: []domain.Target{{Template: tpl, Output: out}},
	}
	h.loader.EXPECT().Load(p.root).Return(manifest, nil).Times(3)

	// The partial is touched between the initial check and the first batch.
	changes := func(yield func([]string) bool) {
		p.write("src/_colors.ss", "$red: #f00;", 300)
		yield([]string{p.path("src/_colors.ss")})
	}

	gomock.InOrder(
		w.EXPECT().Start(gomock.Any(), p.root).Return(nil),
		w.EXPECT().Changes().Return(iter.Seq[[]string](changes)),
		w.EXPECT().Stop().Return(nil),
	)
	h.logger.EXPECT().Info("1 path(s) changed")

	var stale []bool
	err := h.app.Watch(context.Background(), app.CheckOptions{Dir: p.root, Workers: 1}, func(r *domain.Report) {
		stale = append(stale, r.Verdicts[0].Stale)
	})
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, stale)
}

func TestApp_Watch_LogsFailedChecks(t *testing.T) {
	p := newProject(t)

	h := newHarness(t)
	w := mocks.NewMockWatcher(gomock.NewController(t))
	h.app.WithWatcher(w)

	empty := &domain.Manifest{Root: p.root, Options: domain.DefaultOptions()}
	h.loader.EXPECT().Load(p.root).Return(empty, nil).Times(3)

	w.EXPECT().Start(gomock.Any(), p.root).Return(nil)
	w.EXPECT().Changes().Return(batches([]string{p.path("stale.yaml")}))
	w.EXPECT().Stop().Return(nil)
	h.logger.EXPECT().Info(gomock.Any())
	h.logger.EXPECT().Error(domain.ErrNoTargetsSpecified).Times(2)

	err := h.app.Watch(context.Background(), app.CheckOptions{Dir: p.root}, func(*domain.Report) {
		t.Fatal("no report expected")
	})
	require.NoError(t, err)
}

func TestApp_Watch_Errors(t *testing.T) {
	t.Run("no watcher", func(t *testing.T) {
		h := newHarness(t)
		err := h.app.Watch(context.Background(), app.CheckOptions{}, func(*domain.Report) {})
		require.ErrorIs(t, err, domain.ErrWatchFailed)
	})

	t.Run("config not found", func(t *testing.T) {
		h := newHarness(t)
		h.app.WithWatcher(mocks.NewMockWatcher(gomock.NewController(t)))
		h.loader.EXPECT().Load(gomock.Any()).Return(nil, domain.ErrConfigNotFound)

		err := h.app.Watch(context.Background(), app.CheckOptions{}, func(*domain.Report) {})
		require.ErrorIs(t, err, domain.ErrConfigNotFound)
	})

	t.Run("start failed", func(t *testing.T) {
		p := newProject(t)
		h := newHarness(t)
		w := mocks.NewMockWatcher(gomock.NewController(t))
		h.app.WithWatcher(w)
		h.loader.EXPECT().Load(p.root).Return(&domain.Manifest{Root: p.root, Options: domain.DefaultOptions()}, nil)
		w.EXPECT().Start(gomock.Any(), p.root).Return(errors.New("too many open files"))

		err := h.app.Watch(context.Background(), app.CheckOptions{Dir: p.root}, func(*domain.Report) {})
		require.ErrorContains(t, err, "too many open files")
	})
}

func TestApp_Watch_StopsWhenCancelled(t *testing.T) {
	p := newProject(t)
	tpl := p.write("src/app.ss", "", 100)
	out := p.write("public/app.css", "", 200)

	h := newHarness(t)
	w := mocks.NewMockWatcher(gomock.NewController(t))
	h.app.WithWatcher(w)
	h.loader.EXPECT().Load(p.root).Return(&domain.Manifest{
		Root:    p.root,
		Options: domain.DefaultOptions(),
		Targets: []domain.Target{{Template: tpl, Output: out}},
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	w.EXPECT().Start(gomock.Any(), p.root).Return(nil)
	w.EXPECT().Changes().Return(batches([]string{tpl}, []string{tpl}))
	w.EXPECT().Stop().Return(nil)

	reports := 0
	err := h.app.Watch(ctx, app.CheckOptions{Dir: p.root}, func(*domain.Report) {
		reports++
		cancel()
	})
	require.NoError(t, err)
	assert.Equal(t, 1, reports)
}

func TestApp_Check_RecordsTrace(t *testing.T) {
	p := newProject(t)
	tpl := p.write("src/app.ss", "", 100)
	out := p.write("public/app.css", "", 200)
	edited := p.write("src/edited.ss", "", 300)

	h := newHarness(t)
	h.app.WithTracer(telemetry.NewOTelTracer("test"))
	h.loader.EXPECT().Load(p.root).Return(&domain.Manifest{
		Root:    p.root,
		Options: domain.DefaultOptions(),
		Targets: []domain.Target{
			{Template: tpl, Output: out},
			{Template: edited, Output: p.path("public/edited.css")},
		},
	}, nil)

	var buf bytes.Buffer
	h.app.RecordTrace(&buf)
	_, err := h.app.Check(context.Background(), app.CheckOptions{Dir: p.root, Workers: 1})
	require.NoError(t, err)
	require.NoError(t, h.app.FlushTrace(context.Background()))

	var spans []telemetry.SpanRecord
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var rec telemetry.SpanRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		spans = append(spans, rec)
	}

	require.Len(t, spans, 3)
	check := spans[2]
	assert.Equal(t, "check", check.Name)
	assert.InDelta(t, 2, check.Attributes["targets"], 0)
	assert.InDelta(t, 1, check.Attributes["stale"], 0)
	for _, s := range spans[:2] {
		assert.Equal(t, "needs_update", s.Name)
		assert.Equal(t, check.SpanID, s.ParentID)
		assert.Equal(t, "worker-0", s.Attributes["scope"])
	}
}

func TestApp_Check_TraceRecordsErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	tracer := mocks.NewMockTracer(ctrl)
	span := mocks.NewMockSpan(ctrl)

	loader.EXPECT().Load(gomock.Any()).Return(&domain.Manifest{Options: domain.DefaultOptions()}, nil)
	tracer.EXPECT().Start(gomock.Any(), "check").Return(context.Background(), span)
	span.EXPECT().RecordError(domain.ErrNoTargetsSpecified)
	span.EXPECT().End()

	a := app.New(loader, nil, nil, nil, depgraph.NewRegistry(), mocks.NewMockLogger(ctrl)).WithTracer(tracer)
	_, err := a.Check(context.Background(), app.CheckOptions{})
	require.ErrorIs(t, err, domain.ErrNoTargetsSpecified)

	// Tracers without recording support are left alone.
	a.RecordTrace(&bytes.Buffer{})
	assert.NoError(t, a.FlushTrace(context.Background()))
}

// countingExtractor counts the templates that are actually parsed.
type countingExtractor struct {
	ports.DependencyExtractor
	calls atomic.Int32
}

func (c *countingExtractor) Extract(path string, opts domain.Options) (domain.Extraction, error) {
	c.calls.Add(1)
	return c.DependencyExtractor.Extract(path, opts)
}

func TestApp_Check_PersistsDependencies(t *testing.T) {
	p := newProject(t)
	tpl := p.write("src/app.ss", `@import "colors";`, 100)
	p.write("src/_colors.ss", "", 100)
	out := p.write("public/app.css", "", 200)
	cacheFile := p.path(".stale/deps.json")

	manifest := &domain.Manifest{
		Root:      p.root,
		Options:   domain.DefaultOptions(),
		CacheFile: cacheFile,
		Targets:   []domain.Target{{Template: tpl, Output: out}},
	}

	// run checks with a fresh process worth of state: a new app and registry.
	run := func() (*domain.Report, int32) {
		ctrl := gomock.NewController(t)
		loader := mocks.NewMockConfigLoader(ctrl)
		loader.EXPECT().Load(p.root).Return(manifest, nil)

		probe := fs.NewProbe()
		extractor := &countingExtractor{DependencyExtractor: template.NewScanner(probe)}
		a := app.New(loader, probe, extractor, fs.NewLister(fs.NewWalker()), depgraph.NewRegistry(), mocks.NewMockLogger(ctrl)).
			WithStore(store.NewStore())

		report, err := a.Check(context.Background(), app.CheckOptions{Dir: p.root, Workers: 2})
		require.NoError(t, err)
		return report, extractor.calls.Load()
	}

	report, calls := run()
	assert.False(t, report.Verdicts[0].Stale)
	assert.Equal(t, int32(2), calls, "cold run parses the template and its partial")
	assert.FileExists(t, cacheFile)

	report, calls = run()
	assert.False(t, report.Verdicts[0].Stale)
	assert.Zero(t, calls, "warm run answers from the saved dependency sets")

	// Editing the partial changes its mtime, not its import list, so the
	// saved sets still apply and the verdict flips.
	p.write("src/_colors.ss", "$red: #f00;", 300)
	report, calls = run()
	assert.True(t, report.Verdicts[0].Stale)
	assert.Zero(t, calls)

	// Editing the template invalidates its saved set.
	p.write("src/app.ss", `@import "colors";`, 150)
	_, calls = run()
	assert.Equal(t, int32(1), calls)
}

func TestApp_Check_DependencyStoreFailuresAreWarnings(t *testing.T) {
	p := newProject(t)
	tpl := p.write("src/app.ss", "", 100)
	out := p.write("public/app.css", "", 200)

	h := newHarness(t)
	depStore := mocks.NewMockDependencyStore(gomock.NewController(t))
	h.app.WithStore(depStore)

	h.loader.EXPECT().Load(p.root).Return(&domain.Manifest{
		Root:      p.root,
		Options:   domain.DefaultOptions(),
		CacheFile: p.path("deps.json"),
		Targets:   []domain.Target{{Template: tpl, Output: out}},
	}, nil)
	depStore.EXPECT().Load(p.path("deps.json"), domain.DefaultOptions()).Return(nil, errors.New("corrupt"))
	depStore.EXPECT().Save(p.path("deps.json"), domain.DefaultOptions(), gomock.Any()).Return(errors.New("read-only"))
	h.logger.EXPECT().Warn(gomock.Any()).Times(2)

	report, err := h.app.Check(context.Background(), app.CheckOptions{Dir: p.root})
	require.NoError(t, err)
	assert.False(t, report.Verdicts[0].Stale)
}
