// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/mallard/internal/adapters/fingerprint"
	_ "go.trai.ch/mallard/internal/adapters/goenv"
	_ "go.trai.ch/mallard/internal/adapters/logger"
	_ "go.trai.ch/mallard/internal/adapters/planfile"
	_ "go.trai.ch/mallard/internal/adapters/store"
	_ "go.trai.ch/mallard/internal/adapters/telemetry"
	// Register app and engine nodes.
	_ "go.trai.ch/mallard/internal/app"
	_ "go.trai.ch/mallard/internal/engine/analysis"
)
