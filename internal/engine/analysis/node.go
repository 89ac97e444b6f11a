package analysis

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/mallard/internal/core/ports"
)

// NodeID is the unique identifier for the analyzer Graft node.
const NodeID graft.ID = "engine.analysis"

func init() {
	graft.Register(graft.Node[ports.Analyzer]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.Analyzer, error) {
			return New(), nil
		},
	})
}
