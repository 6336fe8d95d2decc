// Package steps defines the pipeline's task graph: which steps exist, how
// they are grouped and which steps must finish before another may start.
package steps

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	dbpkg "github.com/jonathan/creator-persona/internal/db"
	"github.com/jonathan/creator-persona/internal/types"
)

// Per-platform step kinds, combined with a platform by Name.
const (
	KindFetch   = "fetch"
	KindRank    = "rank"
	KindIngest  = "ingest"
	KindExtract = "extract"
)

// Run-wide steps.
const (
	StepMerge         = "merge"
	StepRenderPersona = "render_persona"
	StepRenderReport  = "render_report"
)

// Name returns the step name for a platform step, e.g. "youtube_rank".
func Name(platform types.Platform, kind string) string {
	return string(platform) + "_" + kind
}

// StepDefinition defines metadata for a pipeline step
type StepDefinition struct {
	Name         string
	Category     string
	Dependencies []string
	// Optional dependencies are waited for but their failure does not block the step.
	Optional []string
}

// StepRegistry holds all step definitions
var StepRegistry = buildRegistry()

func buildRegistry() map[string]StepDefinition {
	reg := map[string]StepDefinition{}
	var extracts []string
	for _, p := range types.Platforms {
		fetch, rank, ingest, extract := Name(p, KindFetch), Name(p, KindRank), Name(p, KindIngest), Name(p, KindExtract)
		reg[fetch] = StepDefinition{Name: fetch, Category: dbpkg.StepCategoryCollection}
		reg[rank] = StepDefinition{Name: rank, Category: dbpkg.StepCategoryCollection, Dependencies: []string{fetch}}
		reg[ingest] = StepDefinition{Name: ingest, Category: dbpkg.StepCategoryIngestion, Dependencies: []string{rank}}
		reg[extract] = StepDefinition{Name: extract, Category: dbpkg.StepCategoryExtraction, Dependencies: []string{ingest}}
		extracts = append(extracts, extract)
	}
	reg[StepMerge] = StepDefinition{Name: StepMerge, Category: dbpkg.StepCategorySynthesis, Optional: extracts}
	reg[StepRenderPersona] = StepDefinition{Name: StepRenderPersona, Category: dbpkg.StepCategorySynthesis, Dependencies: []string{StepMerge}}
	reg[StepRenderReport] = StepDefinition{Name: StepRenderReport, Category: dbpkg.StepCategorySynthesis, Dependencies: []string{StepMerge}}
	return reg
}

// PlatformSteps returns the steps of one platform sub-pipeline in execution order.
func PlatformSteps(platform types.Platform) []string {
	return []string{
		Name(platform, KindFetch),
		Name(platform, KindRank),
		Name(platform, KindIngest),
		Name(platform, KindExtract),
	}
}

// Order returns every registered step in dependency order. Ties are broken
// by name so the order is stable.
func Order() ([]string, error) {
	indegree := make(map[string]int, len(StepRegistry))
	next := make(map[string][]string, len(StepRegistry))
	for name, def := range StepRegistry {
		if _, ok := indegree[name]; !ok {
			indegree[name] = 0
		}
		for _, dep := range append(append([]string(nil), def.Dependencies...), def.Optional...) {
			if _, ok := StepRegistry[dep]; !ok {
				return nil, fmt.Errorf("step %s depends on unknown step %s", name, dep)
			}
			indegree[name]++
			next[dep] = append(next[dep], name)
		}
	}

	var ready []string
	for name, n := range indegree {
		if n == 0 {
			ready = append(ready, name)
		}
	}

	var order []string
	for len(ready) > 0 {
		sort.Strings(ready)
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)
		for _, n := range next[name] {
			indegree[n]--
			if indegree[n] == 0 {
				ready = append(ready, n)
			}
		}
	}

	if len(order) != len(StepRegistry) {
		return nil, fmt.Errorf("step graph has a cycle")
	}
	return order, nil
}

// StepLookup reads recorded step state for a run.
type StepLookup interface {
	GetRunStep(ctx context.Context, runID uuid.UUID, stepName string) (*dbpkg.RunStep, error)
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Step                string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("step %s: missing dependencies: %v", e.Step, e.MissingDependencies)
}

// ValidateDependencies checks that all required dependencies of a step are
// completed and that optional ones are no longer pending.
func ValidateDependencies(ctx context.Context, lookup StepLookup, runID uuid.UUID, stepName string) error {
	def, ok := StepRegistry[stepName]
	if !ok {
		return fmt.Errorf("unknown step: %s", stepName)
	}

	var missing []string

	for _, dep := range def.Dependencies {
		step, err := lookup.GetRunStep(ctx, runID, dep)
		if err != nil {
			return fmt.Errorf("failed to check dependency %s: %w", dep, err)
		}
		if step == nil || step.Status != dbpkg.StepStatusCompleted {
			missing = append(missing, dep)
		}
	}

	for _, dep := range def.Optional {
		step, err := lookup.GetRunStep(ctx, runID, dep)
		if err != nil {
			return fmt.Errorf("failed to check dependency %s: %w", dep, err)
		}
		if step == nil || !finished(step.Status) {
			missing = append(missing, dep)
		}
	}

	if len(missing) > 0 {
		return &DependencyError{
			Step:                stepName,
			MissingDependencies: missing,
		}
	}

	return nil
}

func finished(status string) bool {
	switch status {
	case dbpkg.StepStatusCompleted, dbpkg.StepStatusFailed, dbpkg.StepStatusSkipped:
		return true
	}
	return false
}

// GetAvailableSteps returns steps that can be executed (dependencies met),
// sorted by name.
func GetAvailableSteps(ctx context.Context, lookup StepLookup, runID uuid.UUID) ([]string, error) {
	var available []string

	for stepName := range StepRegistry {
		existing, err := lookup.GetRunStep(ctx, runID, stepName)
		if err != nil {
			return nil, fmt.Errorf("failed to check step %s: %w", stepName, err)
		}
		if existing != nil && (existing.Status == dbpkg.StepStatusCompleted || existing.Status == dbpkg.StepStatusInProgress) {
			continue
		}

		if err := ValidateDependencies(ctx, lookup, runID, stepName); err != nil {
			continue
		}

		available = append(available, stepName)
	}

	sort.Strings(available)
	return available, nil
}

// GetBlockedSteps returns steps whose dependencies are not met, sorted by name.
func GetBlockedSteps(ctx context.Context, lookup StepLookup, runID uuid.UUID) ([]string, error) {
	var blocked []string

	for stepName := range StepRegistry {
		existing, err := lookup.GetRunStep(ctx, runID, stepName)
		if err != nil {
			return nil, fmt.Errorf("failed to check step %s: %w", stepName, err)
		}
		if existing != nil && (existing.Status == dbpkg.StepStatusCompleted || existing.Status == dbpkg.StepStatusInProgress) {
			continue
		}

		if err := ValidateDependencies(ctx, lookup, runID, stepName); err != nil {
			blocked = append(blocked, stepName)
		}
	}

	sort.Strings(blocked)
	return blocked, nil
}
