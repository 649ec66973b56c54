package planflow

import (
	"github.com/google/uuid"

	"caseplan/api/internal/store"
)

// CloneGraph produces a structurally identical, referentially disjoint
// copy of a version subgraph. It runs in two passes: first every entity
// UUID is remapped to a fresh one, then each entity is copied through
// the mapping rather than by following live store references, so no
// child is ever shared between the original and the copy. Surrogate ids
// are zeroed so the store inserts the copy as new rows.
func CloneGraph(graph store.VersionGraph) store.VersionGraph {
	remap := make(map[string]string)
	rekey := func(old string) string {
		fresh, ok := remap[old]
		if !ok {
			fresh = uuid.NewString()
			remap[old] = fresh
		}
		return fresh
	}

	rekey(graph.Version.UUID)
	for _, goal := range graph.Goals {
		rekey(goal.UUID)
		for _, step := range goal.Steps {
			rekey(step.UUID)
		}
	}
	for _, note := range graph.ProgressNotes {
		rekey(note.UUID)
	}
	if graph.AgreementNote != nil {
		rekey(graph.AgreementNote.UUID)
	}

	version := graph.Version
	version.ID = 0
	version.UUID = remap[graph.Version.UUID]
	version.LockVersion = 0
	version.ReadOnly = true

	out := store.VersionGraph{Version: version}

	out.Goals = make([]store.Goal, 0, len(graph.Goals))
	for _, goal := range graph.Goals {
		copied := goal
		copied.ID = 0
		copied.UUID = remap[goal.UUID]
		copied.PlanVersionID = 0
		// fresh set object, never the original slice
		copied.RelatedAreasOfNeed = append([]string(nil), goal.RelatedAreasOfNeed...)
		copied.Steps = make([]store.Step, 0, len(goal.Steps))
		for _, step := range goal.Steps {
			stepCopy := step
			stepCopy.ID = 0
			stepCopy.UUID = remap[step.UUID]
			stepCopy.GoalID = 0
			copied.Steps = append(copied.Steps, stepCopy)
		}
		out.Goals = append(out.Goals, copied)
	}

	out.ProgressNotes = make([]store.ProgressNote, 0, len(graph.ProgressNotes))
	for _, note := range graph.ProgressNotes {
		noteCopy := note
		noteCopy.ID = 0
		noteCopy.UUID = remap[note.UUID]
		noteCopy.PlanVersionID = 0
		out.ProgressNotes = append(out.ProgressNotes, noteCopy)
	}

	if graph.AgreementNote != nil {
		noteCopy := *graph.AgreementNote
		noteCopy.ID = 0
		noteCopy.UUID = remap[graph.AgreementNote.UUID]
		noteCopy.PlanVersionID = 0
		out.AgreementNote = &noteCopy
	}

	return out
}
