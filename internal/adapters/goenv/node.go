package goenv

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/mallard/internal/core/ports"
)

// NodeID is the unique identifier for the environment opener Graft node.
const NodeID graft.ID = "adapter.goenv"

func init() {
	graft.Register(graft.Node[ports.EnvironmentOpener]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.EnvironmentOpener, error) {
			return NewOpener(), nil
		},
	})
}
