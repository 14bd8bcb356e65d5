package template

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/stale/internal/adapters/fs"
	"go.trai.ch/stale/internal/core/ports"
)

// NodeID is the unique identifier for the template scanner Graft node.
const NodeID graft.ID = "adapter.template.scanner"

func init() {
	graft.Register(graft.Node[ports.DependencyExtractor]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fs.ProbeNodeID},
		Run: func(ctx context.Context) (ports.DependencyExtractor, error) {
			probe, err := graft.Dep[ports.FileProbe](ctx)
			if err != nil {
				return nil, err
			}
			return NewScanner(probe), nil
		},
	})
}
