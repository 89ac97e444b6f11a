package ports

import "go.trai.ch/mallard/internal/core/domain"

// PlanLoader reads a plan file into the ordered target table.
//
//go:generate go run go.uber.org/mock/mockgen -source=plan_loader.go -destination=mocks/mock_plan_loader.go -package=mocks
type PlanLoader interface {
	// Load reads the plan from the given path. Duplicate target names and
	// ill-typed override columns are configuration errors.
	Load(path string) (*domain.Plan, error)
}
