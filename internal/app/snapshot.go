package app

import (
	"context"
	"errors"
	"fmt"

	"caseplan/api/internal/planflow"
	"caseplan/api/internal/search"
	"caseplan/api/internal/store"
)

// maybeSnapshot applies the day-bucket copy-on-write policy: if the
// given version was last touched on an earlier calendar day, a snapshot
// of its graph is cut and the plan's current version advances to the
// next number. Returns the version the caller should mutate, which is
// the input version when no snapshot was needed.
func (s *Service) maybeSnapshot(ctx context.Context, plan store.Plan, version store.PlanVersion) (store.PlanVersion, error) {
	if version.ID == 0 {
		return version, nil
	}
	if plan.CurrentVersionID == nil || *plan.CurrentVersionID != version.ID {
		return version, nil
	}
	if !planflow.NeedsSnapshot(s.now(), version.UpdatedAt) {
		return version, nil
	}

	next, err := s.cutSnapshot(ctx, plan, version)
	if !errors.Is(err, store.ErrStaleVersion) {
		return next, err
	}

	// Lost the race: a concurrent request already cut today's snapshot.
	// Re-read the advanced row; the gate will normally report no further
	// snapshot is due, but check once more in case the clock rolled on.
	current, err := s.store.GetCurrentVersion(ctx, plan.ID)
	if err != nil {
		return store.PlanVersion{}, fmt.Errorf("reload current version: %w", err)
	}
	if planflow.NeedsSnapshot(s.now(), current.UpdatedAt) {
		return s.cutSnapshot(ctx, plan, current)
	}
	return current, nil
}

// forceSnapshot always branches a new line of history, regardless of
// the day bucket. Used by operations that must leave an auditable
// before-image, such as locking.
func (s *Service) forceSnapshot(ctx context.Context, plan store.Plan, version store.PlanVersion) (store.PlanVersion, error) {
	if version.ID == 0 {
		return version, nil
	}

	const attempts = 3
	for i := 0; i < attempts; i++ {
		next, err := s.cutSnapshot(ctx, plan, version)
		if !errors.Is(err, store.ErrStaleVersion) {
			return next, err
		}
		version, err = s.store.GetCurrentVersion(ctx, plan.ID)
		if err != nil {
			return store.PlanVersion{}, fmt.Errorf("reload current version: %w", err)
		}
	}
	return store.PlanVersion{}, store.ErrStaleVersion
}

// cutSnapshot executes one snapshot attempt: read the graph, clone it
// with fresh UUIDs, and land both writes atomically. The original row
// carries on as the current version under the next number; the clone
// preserves the prior number as the read-only historical record.
func (s *Service) cutSnapshot(ctx context.Context, plan store.Plan, version store.PlanVersion) (store.PlanVersion, error) {
	graph, err := s.store.GetVersionGraph(ctx, version.ID)
	if err != nil {
		return store.PlanVersion{}, fmt.Errorf("load version graph: %w", err)
	}

	clone := planflow.CloneGraph(graph)
	sum := planflow.Checksum(graph)
	clone.Version.Checksum = sum

	next, err := s.store.NextVersionNumber(ctx, plan.ID)
	if err != nil {
		return store.PlanVersion{}, err
	}

	err = s.store.SaveSnapshot(ctx, store.Snapshot{
		Duplicate:           clone,
		OriginalVersionID:   version.ID,
		OriginalLockVersion: graph.Version.LockVersion,
		NextVersionNumber:   next,
		Checksum:            sum,
	})
	if err != nil {
		return store.PlanVersion{}, err
	}

	current, err := s.store.GetCurrentVersion(ctx, plan.ID)
	if err != nil {
		return store.PlanVersion{}, fmt.Errorf("reload current version: %w", err)
	}
	s.reindexVersion(plan, current, graph)
	return current, nil
}

// reindexVersion refreshes search records after the current version's
// number moved. Historical snapshots never enter the index.
func (s *Service) reindexVersion(plan store.Plan, current store.PlanVersion, graph store.VersionGraph) {
	if s.search == nil {
		return
	}
	s.search.IndexPlan(planSearchRecord(plan, current.Version))

	goals := make([]search.GoalRecord, 0, len(graph.Goals))
	for _, g := range graph.Goals {
		goals = append(goals, goalSearchRecord(plan, current.Version, g))
	}
	notes := make([]search.NoteRecord, 0, len(graph.ProgressNotes))
	for _, n := range graph.ProgressNotes {
		notes = append(notes, noteSearchRecord(plan, current.Version, n))
	}
	s.search.ReindexVersion(goals, notes)
}

func planSearchRecord(plan store.Plan, versionNumber int) search.PlanRecord {
	return search.PlanRecord{
		ID:         plan.UUID,
		PersonName: plan.PersonName,
		PlanUUID:   plan.UUID,
		Version:    versionNumber,
	}
}

func goalSearchRecord(plan store.Plan, versionNumber int, g store.Goal) search.GoalRecord {
	return search.GoalRecord{
		ID:         g.UUID,
		Title:      g.Title,
		AreaOfNeed: g.AreaOfNeed,
		Notes:      g.Notes,
		PlanUUID:   plan.UUID,
		Version:    versionNumber,
	}
}

func noteSearchRecord(plan store.Plan, versionNumber int, n store.ProgressNote) search.NoteRecord {
	return search.NoteRecord{
		ID:       n.UUID,
		Title:    n.Title,
		Body:     n.Body,
		PlanUUID: plan.UUID,
		Version:  versionNumber,
	}
}
