package planflow

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"caseplan/api/internal/store"
)

// checksumGoal and friends are the canonical content shape: identity
// and bookkeeping fields are excluded so a snapshot and its source
// carry the same checksum until one of them diverges.
type checksumStep struct {
	Description string `json:"description"`
	Status      string `json:"status"`
	Actor       string `json:"actor"`
	Order       int    `json:"order"`
}

type checksumGoal struct {
	Title      string         `json:"title"`
	AreaOfNeed string         `json:"areaOfNeed"`
	Related    []string       `json:"related"`
	TargetDate *time.Time     `json:"targetDate"`
	Order      int            `json:"order"`
	Status     string         `json:"status"`
	Notes      string         `json:"notes"`
	Steps      []checksumStep `json:"steps"`
}

type checksumNote struct {
	Title        string `json:"title"`
	Body         string `json:"body"`
	Practitioner string `json:"practitioner"`
	Person       string `json:"person"`
}

type checksumContent struct {
	Agreement     string         `json:"agreement"`
	Goals         []checksumGoal `json:"goals"`
	ProgressNotes []checksumNote `json:"progressNotes"`
}

// Checksum computes the integrity checksum stored on every version row:
// a sha256 over the canonical encoding of the version's content.
func Checksum(graph store.VersionGraph) string {
	content := checksumContent{
		Agreement:     graph.Version.AgreementStatus,
		Goals:         make([]checksumGoal, 0, len(graph.Goals)),
		ProgressNotes: make([]checksumNote, 0, len(graph.ProgressNotes)),
	}
	for _, goal := range graph.Goals {
		entry := checksumGoal{
			Title:      goal.Title,
			AreaOfNeed: goal.AreaOfNeed,
			Related:    append([]string{}, goal.RelatedAreasOfNeed...),
			TargetDate: goal.TargetDate,
			Order:      goal.GoalOrder,
			Status:     goal.Status,
			Notes:      goal.Notes,
			Steps:      make([]checksumStep, 0, len(goal.Steps)),
		}
		for _, step := range goal.Steps {
			entry.Steps = append(entry.Steps, checksumStep{
				Description: step.Description,
				Status:      step.Status,
				Actor:       step.Actor,
				Order:       step.StepOrder,
			})
		}
		content.Goals = append(content.Goals, entry)
	}
	for _, note := range graph.ProgressNotes {
		content.ProgressNotes = append(content.ProgressNotes, checksumNote{
			Title:        note.Title,
			Body:         note.Body,
			Practitioner: note.PractitionerName,
			Person:       note.PersonName,
		})
	}

	encoded, err := json.Marshal(content)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}
