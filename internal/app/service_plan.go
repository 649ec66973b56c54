package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"caseplan/api/internal/export"
	"caseplan/api/internal/planflow"
	"caseplan/api/internal/store"
	"caseplan/api/internal/util"
)

type GoalInput struct {
	Title              string     `json:"title"`
	AreaOfNeed         string     `json:"areaOfNeed"`
	RelatedAreasOfNeed []string   `json:"relatedAreasOfNeed"`
	TargetDate         *time.Time `json:"targetDate"`
	Notes              string     `json:"notes"`
	Steps              []StepInput
}

type StepInput struct {
	Description string `json:"description"`
	Status      string `json:"status"`
	Actor       string `json:"actor"`
}

type NoteInput struct {
	Title            string `json:"title"`
	Body             string `json:"body"`
	PractitionerName string `json:"practitionerName"`
	PersonName       string `json:"personName"`
}

type AgreementInput struct {
	Status           string `json:"status"`
	Title            string `json:"title"`
	Body             string `json:"body"`
	PractitionerName string `json:"practitionerName"`
	PersonName       string `json:"personName"`
}

// CreatePlan creates a plan with its initial version 0 in draft state.
func (s *Service) CreatePlan(ctx context.Context, personName, createdBy string) (map[string]any, error) {
	plan := store.Plan{
		UUID:       util.NewUUID(),
		PersonName: trimOrDefault(personName, "Unnamed person"),
		CreatedBy:  createdBy,
	}
	version := store.PlanVersion{
		UUID:                 util.NewUUID(),
		Version:              0,
		CountersigningStatus: string(planflow.Unsigned),
		AgreementStatus:      string(planflow.Draft),
	}
	plan, version, err := s.store.CreatePlan(ctx, plan, version)
	if err != nil {
		return nil, err
	}
	if s.search != nil {
		s.search.IndexPlan(planSearchRecord(plan, version.Version))
	}
	return planSummaryPayload(plan, version), nil
}

// GetPlan returns the plan with its current version's full graph.
func (s *Service) GetPlan(ctx context.Context, planUUID string) (map[string]any, error) {
	plan, err := s.loadPlan(ctx, planUUID)
	if err != nil {
		return nil, err
	}
	current, err := s.loadCurrentVersion(ctx, plan)
	if err != nil {
		return nil, err
	}
	graph, err := s.store.GetVersionGraph(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	payload := planSummaryPayload(plan, current)
	payload["currentVersion"] = versionGraphPayload(graph)
	return payload, nil
}

// ListPlanVersions returns every version of the plan in ascending order,
// for history and audit display.
func (s *Service) ListPlanVersions(ctx context.Context, planUUID string) (map[string]any, error) {
	plan, err := s.loadPlan(ctx, planUUID)
	if err != nil {
		return nil, err
	}
	versions, err := s.store.ListVersions(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(versions))
	for _, v := range versions {
		item := versionPayload(v)
		item["current"] = plan.CurrentVersionID != nil && *plan.CurrentVersionID == v.ID
		items = append(items, item)
	}
	return map[string]any{
		"planUuid": plan.UUID,
		"versions": items,
	}, nil
}

// GetPlanVersion returns one version's full graph by its number.
func (s *Service) GetPlanVersion(ctx context.Context, planUUID string, number int) (map[string]any, error) {
	plan, err := s.loadPlan(ctx, planUUID)
	if err != nil {
		return nil, err
	}
	version, err := s.loadVersionByNumber(ctx, plan, number)
	if err != nil {
		return nil, err
	}
	graph, err := s.store.GetVersionGraph(ctx, version.ID)
	if err != nil {
		return nil, err
	}
	payload := versionGraphPayload(graph)
	payload["planUuid"] = plan.UUID
	payload["current"] = plan.CurrentVersionID != nil && *plan.CurrentVersionID == version.ID
	return payload, nil
}

// AddGoal appends a goal to the plan's current version, branching a new
// version first when the day bucket rolled over.
func (s *Service) AddGoal(ctx context.Context, planUUID string, input GoalInput) (map[string]any, error) {
	if input.Title == "" {
		return nil, validationError("goal title is required")
	}
	plan, current, err := s.currentForMutation(ctx, planUUID)
	if err != nil {
		return nil, err
	}
	goal := store.Goal{
		UUID:               util.NewUUID(),
		Title:              input.Title,
		AreaOfNeed:         input.AreaOfNeed,
		RelatedAreasOfNeed: input.RelatedAreasOfNeed,
		TargetDate:         input.TargetDate,
		Status:             "ACTIVE",
		Notes:              input.Notes,
	}
	for _, step := range input.Steps {
		goal.Steps = append(goal.Steps, store.Step{
			UUID:        util.NewUUID(),
			Description: step.Description,
			Status:      trimOrDefault(step.Status, "NOT_STARTED"),
			Actor:       step.Actor,
		})
	}
	created, err := s.store.AddGoal(ctx, current.ID, goal)
	if err != nil {
		return nil, err
	}
	if s.search != nil {
		s.search.IndexGoal(goalSearchRecord(plan, current.Version, created))
	}
	return map[string]any{
		"planUuid":      plan.UUID,
		"versionNumber": current.Version,
		"goal":          goalPayload(created),
	}, nil
}

// AddProgressNote records a progress note against the current version.
func (s *Service) AddProgressNote(ctx context.Context, planUUID string, input NoteInput) (map[string]any, error) {
	if input.Body == "" {
		return nil, validationError("note body is required")
	}
	plan, current, err := s.currentForMutation(ctx, planUUID)
	if err != nil {
		return nil, err
	}
	note := store.ProgressNote{
		UUID:             util.NewUUID(),
		Title:            input.Title,
		Body:             input.Body,
		PractitionerName: input.PractitionerName,
		PersonName:       trimOrDefault(input.PersonName, plan.PersonName),
	}
	created, err := s.store.AddProgressNote(ctx, current.ID, note)
	if err != nil {
		return nil, err
	}
	if s.search != nil {
		s.search.IndexNote(noteSearchRecord(plan, current.Version, created))
	}
	return map[string]any{
		"planUuid":      plan.UUID,
		"versionNumber": current.Version,
		"note":          notePayload(created),
	}, nil
}

// Agree records the subject's agreement decision on the current version.
// Re-agreeing an already agreed version is a conflict.
func (s *Service) Agree(ctx context.Context, planUUID string, input AgreementInput) (map[string]any, error) {
	status := planflow.AgreementStatus(input.Status)
	if !planflow.ValidAgreement(status) {
		return nil, validationError("invalid agreement status %q", input.Status)
	}
	plan, current, err := s.currentForMutation(ctx, planUUID)
	if err != nil {
		return nil, err
	}
	if current.AgreementStatus == string(planflow.Agreed) {
		return nil, planflow.Conflict(plan.UUID, "plan version is already agreed")
	}
	now := s.now()
	err = s.store.UpdateAgreement(ctx, current.ID, current.LockVersion, string(status), now, store.AgreementNote{
		UUID:             util.NewUUID(),
		AgreementStatus:  string(status),
		Title:            input.Title,
		Body:             input.Body,
		PractitionerName: input.PractitionerName,
		PersonName:       trimOrDefault(input.PersonName, plan.PersonName),
	})
	if err != nil {
		return nil, err
	}
	return transitionPayload(plan, current.Version, current.CountersigningStatus, string(status)), nil
}

// Sign submits the current version for sign-off. SELF closes it out
// directly; COUNTERSIGN and DOUBLE_COUNTERSIGN park it awaiting a
// countersign decision.
func (s *Service) Sign(ctx context.Context, planUUID, signType string) (map[string]any, error) {
	target, ok := planflow.SignTarget(planflow.SignType(signType))
	if !ok {
		return nil, validationError("invalid sign type %q", signType)
	}
	plan, current, err := s.currentForMutation(ctx, planUUID)
	if err != nil {
		return nil, err
	}
	from := planflow.CountersigningStatus(current.CountersigningStatus)
	if !planflow.CanSignFrom(from) {
		return nil, planflow.Conflict(plan.UUID,
			fmt.Sprintf("cannot sign a version in state %s", from))
	}
	if err := s.store.UpdateCountersigning(ctx, current.ID, current.LockVersion, string(target)); err != nil {
		return nil, err
	}
	return transitionPayload(plan, current.Version, string(target), current.AgreementStatus), nil
}

// Lock marks the current version incomplete and always branches a fresh
// version first so the pre-lock state survives as history.
func (s *Service) Lock(ctx context.Context, planUUID, lockType string) (map[string]any, error) {
	target, ok := planflow.LockTarget(planflow.LockType(lockType))
	if !ok {
		return nil, validationError("invalid lock type %q", lockType)
	}
	plan, err := s.loadPlan(ctx, planUUID)
	if err != nil {
		return nil, err
	}
	current, err := s.loadCurrentVersion(ctx, plan)
	if err != nil {
		return nil, err
	}
	current, err = s.forceSnapshot(ctx, plan, current)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateCountersigning(ctx, current.ID, current.LockVersion, string(target)); err != nil {
		return nil, err
	}
	return transitionPayload(plan, current.Version, string(target), current.AgreementStatus), nil
}

// Countersign applies a countersign decision to the version with the
// given number. The version number never changes on this path.
func (s *Service) Countersign(ctx context.Context, planUUID string, number int, kind string) (map[string]any, error) {
	target, ok := planflow.CountersignTarget(planflow.CountersignType(kind))
	if !ok {
		return nil, validationError("invalid countersign type %q", kind)
	}
	plan, err := s.loadPlan(ctx, planUUID)
	if err != nil {
		return nil, err
	}
	version, err := s.loadVersionByNumber(ctx, plan, number)
	if err != nil {
		return nil, err
	}
	from := planflow.CountersigningStatus(version.CountersigningStatus)
	if !planflow.CanCountersignFrom(from) {
		return nil, planflow.Conflict(plan.UUID,
			fmt.Sprintf("cannot countersign version %d in state %s", number, from))
	}
	if err := s.store.UpdateCountersigning(ctx, version.ID, version.LockVersion, string(target)); err != nil {
		return nil, err
	}
	return transitionPayload(plan, version.Version, string(target), version.AgreementStatus), nil
}

// Rollback marks a historical version as rolled back by its number. The
// current version is never the target; rolling it back would orphan the
// plan's live line of history.
func (s *Service) Rollback(ctx context.Context, planUUID string, number int) (map[string]any, error) {
	plan, err := s.loadPlan(ctx, planUUID)
	if err != nil {
		return nil, err
	}
	version, err := s.loadVersionByNumber(ctx, plan, number)
	if err != nil {
		return nil, err
	}
	if plan.CurrentVersionID != nil && *plan.CurrentVersionID == version.ID {
		return nil, planflow.Conflict(plan.UUID,
			fmt.Sprintf("version %d is the current version and cannot be rolled back", number))
	}
	if err := s.store.UpdateCountersigning(ctx, version.ID, version.LockVersion, string(planflow.RolledBack)); err != nil {
		return nil, err
	}
	return transitionPayload(plan, version.Version, string(planflow.RolledBack), version.AgreementStatus), nil
}

// ExportVersion renders a plan version in the requested format.
func (s *Service) ExportVersion(ctx context.Context, planUUID string, number int, format string, includeNotes bool) (*export.Result, error) {
	if s.export == nil {
		return nil, domainError(http.StatusNotImplemented, "EXPORT_DISABLED", "export is not configured", nil)
	}
	return s.export.Export(ctx, export.Request{
		PlanUUID:      planUUID,
		VersionNumber: number,
		Format:        export.Format(format),
		IncludeNotes:  includeNotes,
	})
}

// currentForMutation resolves the plan and applies the day-bucket gate,
// returning the version subsequent writes should land on.
func (s *Service) currentForMutation(ctx context.Context, planUUID string) (store.Plan, store.PlanVersion, error) {
	plan, err := s.loadPlan(ctx, planUUID)
	if err != nil {
		return store.Plan{}, store.PlanVersion{}, err
	}
	current, err := s.loadCurrentVersion(ctx, plan)
	if err != nil {
		return store.Plan{}, store.PlanVersion{}, err
	}
	current, err = s.maybeSnapshot(ctx, plan, current)
	if err != nil {
		return store.Plan{}, store.PlanVersion{}, err
	}
	return plan, current, nil
}

func (s *Service) loadPlan(ctx context.Context, planUUID string) (store.Plan, error) {
	plan, err := s.store.GetPlanByUUID(ctx, planUUID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Plan{}, planflow.NotFound("plan", planUUID)
	}
	return plan, err
}

func (s *Service) loadCurrentVersion(ctx context.Context, plan store.Plan) (store.PlanVersion, error) {
	version, err := s.store.GetCurrentVersion(ctx, plan.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.PlanVersion{}, planflow.NotFound("current version of plan", plan.UUID)
	}
	return version, err
}

func (s *Service) loadVersionByNumber(ctx context.Context, plan store.Plan, number int) (store.PlanVersion, error) {
	version, err := s.store.GetVersionByNumber(ctx, plan.ID, number)
	if errors.Is(err, sql.ErrNoRows) {
		return store.PlanVersion{}, planflow.NotFound("plan version", fmt.Sprintf("%s v%d", plan.UUID, number))
	}
	return version, err
}

func transitionPayload(plan store.Plan, versionNumber int, countersigning, agreement string) map[string]any {
	return map[string]any{
		"planUuid":             plan.UUID,
		"versionNumber":        versionNumber,
		"countersigningStatus": countersigning,
		"agreementStatus":      agreement,
	}
}

func planSummaryPayload(plan store.Plan, version store.PlanVersion) map[string]any {
	return map[string]any{
		"planUuid":             plan.UUID,
		"personName":           plan.PersonName,
		"createdBy":            plan.CreatedBy,
		"createdAt":            plan.CreatedAt,
		"updatedAt":            plan.UpdatedAt,
		"versionNumber":        version.Version,
		"countersigningStatus": version.CountersigningStatus,
		"agreementStatus":      version.AgreementStatus,
	}
}

func versionPayload(v store.PlanVersion) map[string]any {
	return map[string]any{
		"uuid":                 v.UUID,
		"versionNumber":        v.Version,
		"countersigningStatus": v.CountersigningStatus,
		"agreementStatus":      v.AgreementStatus,
		"agreementDate":        v.AgreementDate,
		"readOnly":             v.ReadOnly,
		"checksum":             v.Checksum,
		"createdAt":            v.CreatedAt,
		"updatedAt":            v.UpdatedAt,
	}
}

func versionGraphPayload(graph store.VersionGraph) map[string]any {
	goals := make([]map[string]any, 0, len(graph.Goals))
	for _, g := range graph.Goals {
		goals = append(goals, goalPayload(g))
	}
	notes := make([]map[string]any, 0, len(graph.ProgressNotes))
	for _, n := range graph.ProgressNotes {
		notes = append(notes, notePayload(n))
	}
	payload := versionPayload(graph.Version)
	payload["goals"] = goals
	payload["progressNotes"] = notes
	if graph.AgreementNote != nil {
		payload["agreementNote"] = map[string]any{
			"uuid":             graph.AgreementNote.UUID,
			"agreementStatus":  graph.AgreementNote.AgreementStatus,
			"title":            graph.AgreementNote.Title,
			"body":             graph.AgreementNote.Body,
			"practitionerName": graph.AgreementNote.PractitionerName,
			"personName":       graph.AgreementNote.PersonName,
			"createdAt":        graph.AgreementNote.CreatedAt,
		}
	}
	return payload
}

func goalPayload(g store.Goal) map[string]any {
	steps := make([]map[string]any, 0, len(g.Steps))
	for _, step := range g.Steps {
		steps = append(steps, map[string]any{
			"uuid":        step.UUID,
			"description": step.Description,
			"status":      step.Status,
			"actor":       step.Actor,
			"stepOrder":   step.StepOrder,
		})
	}
	return map[string]any{
		"uuid":               g.UUID,
		"title":              g.Title,
		"areaOfNeed":         g.AreaOfNeed,
		"relatedAreasOfNeed": g.RelatedAreasOfNeed,
		"targetDate":         g.TargetDate,
		"goalOrder":          g.GoalOrder,
		"status":             g.Status,
		"notes":              g.Notes,
		"steps":              steps,
	}
}

func notePayload(n store.ProgressNote) map[string]any {
	return map[string]any{
		"uuid":             n.UUID,
		"title":            n.Title,
		"body":             n.Body,
		"practitionerName": n.PractitionerName,
		"personName":       n.PersonName,
		"createdAt":        n.CreatedAt,
	}
}
