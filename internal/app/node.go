package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/mallard/internal/adapters/fingerprint" //nolint:depguard // Wired in app layer
	"go.trai.ch/mallard/internal/adapters/goenv"       //nolint:depguard // Wired in app layer
	"go.trai.ch/mallard/internal/adapters/logger"      //nolint:depguard // Wired in app layer
	"go.trai.ch/mallard/internal/adapters/planfile"    //nolint:depguard // Wired in app layer
	"go.trai.ch/mallard/internal/adapters/store"       //nolint:depguard // Wired in app layer
	"go.trai.ch/mallard/internal/adapters/telemetry"   //nolint:depguard // Wired in app layer
	"go.trai.ch/mallard/internal/core/ports"
	"go.trai.ch/mallard/internal/engine/analysis"
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
			planfile.NodeID,
			goenv.NodeID,
			analysis.NodeID,
			fingerprint.NodeID,
			store.NodeID,
			logger.NodeID,
			telemetry.TracerNodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
		},
		Run: runComponentsNode,
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	plans, err := graft.Dep[ports.PlanLoader](ctx)
	if err != nil {
		return nil, err
	}

	envs, err := graft.Dep[ports.EnvironmentOpener](ctx)
	if err != nil {
		return nil, err
	}

	analyzer, err := graft.Dep[ports.Analyzer](ctx)
	if err != nil {
		return nil, err
	}

	fp, err := graft.Dep[ports.Fingerprinter](ctx)
	if err != nil {
		return nil, err
	}

	st, err := graft.Dep[ports.Store](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	tracer, err := graft.Dep[ports.Tracer](ctx)
	if err != nil {
		return nil, err
	}

	return New(plans, envs, analyzer, fp, st, log, tracer), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	application, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	st, err := graft.Dep[ports.Store](ctx)
	if err != nil {
		return nil, err
	}

	tracer, err := graft.Dep[ports.Tracer](ctx)
	if err != nil {
		return nil, err
	}

	analyzer, err := graft.Dep[ports.Analyzer](ctx)
	if err != nil {
		return nil, err
	}

	fp, err := graft.Dep[ports.Fingerprinter](ctx)
	if err != nil {
		return nil, err
	}

	plans, err := graft.Dep[ports.PlanLoader](ctx)
	if err != nil {
		return nil, err
	}

	envs, err := graft.Dep[ports.EnvironmentOpener](ctx)
	if err != nil {
		return nil, err
	}

	return &Components{
		App:      application,
		Logger:   log,
		Store:    st,
		Tracer:   tracer,
		Analyzer: analyzer,
		Fp:       fp,
		Plans:    plans,
		Envs:     envs,
	}, nil
}
