package app

import (
	"context"

	"caseplan/api/internal/export"
)

// GetPlanForExport loads the plan metadata the export renderer needs.
// Service satisfies export.DataStore so exports read through the same
// lookups as the API.
func (s *Service) GetPlanForExport(ctx context.Context, planUUID string) (export.PlanInfo, error) {
	plan, err := s.loadPlan(ctx, planUUID)
	if err != nil {
		return export.PlanInfo{}, err
	}
	return export.PlanInfo{
		UUID:       plan.UUID,
		PersonName: plan.PersonName,
		CreatedBy:  plan.CreatedBy,
	}, nil
}

// GetVersionForExport loads one version's full content for rendering.
func (s *Service) GetVersionForExport(ctx context.Context, planUUID string, number int) (export.VersionInfo, error) {
	plan, err := s.loadPlan(ctx, planUUID)
	if err != nil {
		return export.VersionInfo{}, err
	}
	version, err := s.loadVersionByNumber(ctx, plan, number)
	if err != nil {
		return export.VersionInfo{}, err
	}
	graph, err := s.store.GetVersionGraph(ctx, version.ID)
	if err != nil {
		return export.VersionInfo{}, err
	}

	info := export.VersionInfo{
		UUID:                 version.UUID,
		Number:               version.Version,
		CountersigningStatus: version.CountersigningStatus,
		AgreementStatus:      version.AgreementStatus,
		AgreementDate:        version.AgreementDate,
		ReadOnly:             version.ReadOnly,
		UpdatedAt:            version.UpdatedAt,
	}
	for _, g := range graph.Goals {
		goal := export.GoalInfo{
			Title:        g.Title,
			AreaOfNeed:   g.AreaOfNeed,
			RelatedAreas: g.RelatedAreasOfNeed,
			TargetDate:   g.TargetDate,
			Status:       g.Status,
			Notes:        g.Notes,
		}
		for _, step := range g.Steps {
			goal.Steps = append(goal.Steps, export.StepInfo{
				Description: step.Description,
				Status:      step.Status,
				Actor:       step.Actor,
			})
		}
		info.Goals = append(info.Goals, goal)
	}
	for _, n := range graph.ProgressNotes {
		info.ProgressNotes = append(info.ProgressNotes, export.NoteInfo{
			Title:        n.Title,
			Body:         n.Body,
			Practitioner: n.PractitionerName,
			CreatedAt:    n.CreatedAt,
		})
	}
	if graph.AgreementNote != nil {
		info.AgreementNote = graph.AgreementNote.Body
	}
	return info, nil
}
