package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/stale/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/stale/internal/adapters/fs"        //nolint:depguard // Wired in app layer
	"go.trai.ch/stale/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/stale/internal/adapters/store"     //nolint:depguard // Wired in app layer
	"go.trai.ch/stale/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/stale/internal/adapters/template"  //nolint:depguard // Wired in app layer
	"go.trai.ch/stale/internal/adapters/watcher"   //nolint:depguard // Wired in app layer
	"go.trai.ch/stale/internal/core/ports"
	"go.trai.ch/stale/internal/engine/depgraph"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			fs.ProbeNodeID,
			template.NodeID,
			fs.ListerNodeID,
			depgraph.NodeID,
			logger.NodeID,
			watcher.NodeID,
			telemetry.TracerNodeID,
			store.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			app, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return &Components{App: app, Logger: log}, nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	probe, err := graft.Dep[ports.FileProbe](ctx)
	if err != nil {
		return nil, err
	}

	extractor, err := graft.Dep[ports.DependencyExtractor](ctx)
	if err != nil {
		return nil, err
	}

	lister, err := graft.Dep[ports.TemplateLister](ctx)
	if err != nil {
		return nil, err
	}

	registry, err := graft.Dep[*depgraph.Registry](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	w, err := graft.Dep[ports.Watcher](ctx)
	if err != nil {
		return nil, err
	}

	tracer, err := graft.Dep[ports.Tracer](ctx)
	if err != nil {
		return nil, err
	}

	depStore, err := graft.Dep[ports.DependencyStore](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, probe, extractor, lister, registry, log).
		WithWatcher(w).
		WithTracer(tracer).
		WithStore(depStore), nil
}
