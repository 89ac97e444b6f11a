package store

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/mallard/internal/core/ports"
)

// NodeID is the unique identifier for the default store Graft node.
const NodeID graft.ID = "adapter.store"

// DefaultPath is the default single-file cache location.
const DefaultPath = ".mallard/cache.json"

func init() {
	graft.Register(graft.Node[ports.Store]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.Store, error) {
			return NewFileStore(DefaultPath)
		},
	})
}
