package app

import "go.trai.ch/mallard/internal/core/ports"

// Components bundles the App with the ports the CLI layer needs direct
// access to.
type Components struct {
	App      *App
	Logger   ports.Logger
	Store    ports.Store
	Tracer   ports.Tracer
	Analyzer ports.Analyzer
	Fp       ports.Fingerprinter
	Plans    ports.PlanLoader
	Envs     ports.EnvironmentOpener
}
