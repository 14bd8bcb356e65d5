package fs

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/stale/internal/core/ports"
)

const (
	// WalkerNodeID is the unique identifier for the walker Graft node.
	WalkerNodeID graft.ID = "adapter.fs.walker"
	// ProbeNodeID is the unique identifier for the file probe Graft node.
	ProbeNodeID graft.ID = "adapter.fs.probe"
	// ListerNodeID is the unique identifier for the template lister Graft node.
	ListerNodeID graft.ID = "adapter.fs.lister"
)

func init() {
	// Walker Node (Concrete implementation needed by Lister)
	graft.Register(graft.Node[*Walker]{
		ID:        WalkerNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Walker, error) {
			return NewWalker(), nil
		},
	})

	graft.Register(graft.Node[ports.FileProbe]{
		ID:        ProbeNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.FileProbe, error) {
			return NewProbe(), nil
		},
	})

	graft.Register(graft.Node[ports.TemplateLister]{
		ID:        ListerNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{WalkerNodeID},
		Run: func(ctx context.Context) (ports.TemplateLister, error) {
			walker, err := graft.Dep[*Walker](ctx)
			if err != nil {
				return nil, err
			}
			return NewLister(walker), nil
		},
	})
}
