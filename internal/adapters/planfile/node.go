package planfile

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/mallard/internal/core/ports"
)

// NodeID is the unique identifier for the plan loader Graft node.
const NodeID graft.ID = "adapter.planfile"

func init() {
	graft.Register(graft.Node[ports.PlanLoader]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.PlanLoader, error) {
			return NewLoader(), nil
		},
	})
}
