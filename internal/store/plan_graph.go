package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// GetVersionGraph loads the full owned subgraph of one version (goals,
// steps, progress notes and the agreement note) inside a single
// repeatable-read transaction so the copier sees one consistent state.
func (s *PostgresStore) GetVersionGraph(ctx context.Context, versionID int64) (VersionGraph, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return VersionGraph{}, fmt.Errorf("begin graph read: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT `+versionColumns+`
		FROM plan_versions WHERE id=$1
	`, versionID)
	version, err := scanVersion(row)
	if err != nil {
		return VersionGraph{}, err
	}
	graph := VersionGraph{Version: version}

	goalRows, err := tx.QueryContext(ctx, `
		SELECT id, uuid, plan_version_id, title, area_of_need, related_areas_of_need,
			target_date, goal_order, status, status_date, notes, created_at, updated_at
		FROM goals
		WHERE plan_version_id=$1
		ORDER BY goal_order ASC
	`, versionID)
	if err != nil {
		return VersionGraph{}, fmt.Errorf("list goals: %w", err)
	}
	defer goalRows.Close()

	goalIndexByID := make(map[int64]int)
	for goalRows.Next() {
		var goal Goal
		var related []byte
		if err := goalRows.Scan(&goal.ID, &goal.UUID, &goal.PlanVersionID, &goal.Title, &goal.AreaOfNeed, &related,
			&goal.TargetDate, &goal.GoalOrder, &goal.Status, &goal.StatusDate, &goal.Notes, &goal.CreatedAt, &goal.UpdatedAt); err != nil {
			return VersionGraph{}, fmt.Errorf("scan goal: %w", err)
		}
		if err := json.Unmarshal(related, &goal.RelatedAreasOfNeed); err != nil {
			return VersionGraph{}, fmt.Errorf("decode related areas: %w", err)
		}
		goalIndexByID[goal.ID] = len(graph.Goals)
		graph.Goals = append(graph.Goals, goal)
	}
	if err := goalRows.Err(); err != nil {
		return VersionGraph{}, fmt.Errorf("iterate goals: %w", err)
	}

	stepRows, err := tx.QueryContext(ctx, `
		SELECT s.id, s.uuid, s.goal_id, s.description, s.status, s.actor, s.step_order, s.created_at, s.updated_at
		FROM steps s
		JOIN goals g ON g.id = s.goal_id
		WHERE g.plan_version_id=$1
		ORDER BY s.goal_id ASC, s.step_order ASC
	`, versionID)
	if err != nil {
		return VersionGraph{}, fmt.Errorf("list steps: %w", err)
	}
	defer stepRows.Close()

	for stepRows.Next() {
		var step Step
		if err := stepRows.Scan(&step.ID, &step.UUID, &step.GoalID, &step.Description, &step.Status, &step.Actor,
			&step.StepOrder, &step.CreatedAt, &step.UpdatedAt); err != nil {
			return VersionGraph{}, fmt.Errorf("scan step: %w", err)
		}
		idx, ok := goalIndexByID[step.GoalID]
		if !ok {
			return VersionGraph{}, fmt.Errorf("step %s references unknown goal %d", step.UUID, step.GoalID)
		}
		graph.Goals[idx].Steps = append(graph.Goals[idx].Steps, step)
	}
	if err := stepRows.Err(); err != nil {
		return VersionGraph{}, fmt.Errorf("iterate steps: %w", err)
	}

	noteRows, err := tx.QueryContext(ctx, `
		SELECT id, uuid, plan_version_id, title, body, practitioner_name, person_name, created_at
		FROM progress_notes
		WHERE plan_version_id=$1
		ORDER BY created_at ASC, id ASC
	`, versionID)
	if err != nil {
		return VersionGraph{}, fmt.Errorf("list progress notes: %w", err)
	}
	defer noteRows.Close()

	for noteRows.Next() {
		var note ProgressNote
		if err := noteRows.Scan(&note.ID, &note.UUID, &note.PlanVersionID, &note.Title, &note.Body,
			&note.PractitionerName, &note.PersonName, &note.CreatedAt); err != nil {
			return VersionGraph{}, fmt.Errorf("scan progress note: %w", err)
		}
		graph.ProgressNotes = append(graph.ProgressNotes, note)
	}
	if err := noteRows.Err(); err != nil {
		return VersionGraph{}, fmt.Errorf("iterate progress notes: %w", err)
	}

	var agreement AgreementNote
	err = tx.QueryRowContext(ctx, `
		SELECT id, uuid, plan_version_id, agreement_status, title, body, practitioner_name, person_name, created_at
		FROM agreement_notes
		WHERE plan_version_id=$1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, versionID).Scan(&agreement.ID, &agreement.UUID, &agreement.PlanVersionID, &agreement.AgreementStatus,
		&agreement.Title, &agreement.Body, &agreement.PractitionerName, &agreement.PersonName, &agreement.CreatedAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return VersionGraph{}, fmt.Errorf("get agreement note: %w", err)
	}
	if err == nil {
		graph.AgreementNote = &agreement
	}

	if err := tx.Commit(); err != nil {
		return VersionGraph{}, fmt.Errorf("commit graph read: %w", err)
	}
	return graph, nil
}

// SaveSnapshot lands a snapshot cut as one atomic unit: the original
// row is compare-and-swapped to the next version number (it stays the
// plan's current version) and the re-keyed duplicate graph is inserted
// under the prior number. Either all rows land or none do. A lost race
// surfaces as ErrStaleVersion with nothing written.
func (s *PostgresStore) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Advancing the original first frees the (plan_id, version) slot the
	// duplicate is about to take.
	result, err := tx.ExecContext(ctx, `
		UPDATE plan_versions
		SET version=$3, checksum=$4, lock_version=lock_version+1, updated_at=NOW()
		WHERE id=$1 AND lock_version=$2
	`, snap.OriginalVersionID, snap.OriginalLockVersion, snap.NextVersionNumber, snap.Checksum)
	if err != nil {
		return fmt.Errorf("advance current version: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("advance current version rows: %w", err)
	}
	if affected == 0 {
		return ErrStaleVersion
	}

	dup := snap.Duplicate
	var dupVersionID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO plan_versions (uuid, plan_id, version, countersigning_status, agreement_status,
			agreement_date, read_only, checksum, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8)
		RETURNING id
	`, dup.Version.UUID, dup.Version.PlanID, dup.Version.Version, dup.Version.CountersigningStatus,
		dup.Version.AgreementStatus, dup.Version.AgreementDate, dup.Version.Checksum, dup.Version.CreatedAt).Scan(&dupVersionID)
	if err != nil {
		return fmt.Errorf("insert snapshot version: %w", err)
	}

	for _, goal := range dup.Goals {
		related, err := json.Marshal(nonNilStrings(goal.RelatedAreasOfNeed))
		if err != nil {
			return fmt.Errorf("encode related areas: %w", err)
		}
		var goalID int64
		err = tx.QueryRowContext(ctx, `
			INSERT INTO goals (uuid, plan_version_id, title, area_of_need, related_areas_of_need,
				target_date, goal_order, status, status_date, notes)
			VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9, $10)
			RETURNING id
		`, goal.UUID, dupVersionID, goal.Title, goal.AreaOfNeed, string(related),
			goal.TargetDate, goal.GoalOrder, goal.Status, goal.StatusDate, goal.Notes).Scan(&goalID)
		if err != nil {
			return fmt.Errorf("insert snapshot goal: %w", err)
		}
		for _, step := range goal.Steps {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO steps (uuid, goal_id, description, status, actor, step_order)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, step.UUID, goalID, step.Description, step.Status, step.Actor, step.StepOrder); err != nil {
				return fmt.Errorf("insert snapshot step: %w", err)
			}
		}
	}

	for _, note := range dup.ProgressNotes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO progress_notes (uuid, plan_version_id, title, body, practitioner_name, person_name, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, note.UUID, dupVersionID, note.Title, note.Body, note.PractitionerName, note.PersonName, note.CreatedAt); err != nil {
			return fmt.Errorf("insert snapshot progress note: %w", err)
		}
	}

	if dup.AgreementNote != nil {
		note := dup.AgreementNote
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO agreement_notes (uuid, plan_version_id, agreement_status, title, body, practitioner_name, person_name, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, note.UUID, dupVersionID, note.AgreementStatus, note.Title, note.Body,
			note.PractitionerName, note.PersonName, note.CreatedAt); err != nil {
			return fmt.Errorf("insert snapshot agreement note: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// NextVersionNumber computes max(version)+1 across all versions of the
// plan, so rolled-back or superseded rows still hold their slots.
func (s *PostgresStore) NextVersionNumber(ctx context.Context, planID int64) (int, error) {
	var next int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), -1) + 1 FROM plan_versions WHERE plan_id=$1
	`, planID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next version number: %w", err)
	}
	return next, nil
}

// AddGoal appends a goal (and its steps) to a version, assigning the
// next ordering key within that version, and touches the version's
// last-updated timestamp so the day-bucket gate sees the edit.
func (s *PostgresStore) AddGoal(ctx context.Context, versionID int64, goal Goal) (Goal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Goal{}, fmt.Errorf("begin add goal: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	related, err := json.Marshal(nonNilStrings(goal.RelatedAreasOfNeed))
	if err != nil {
		return Goal{}, fmt.Errorf("encode related areas: %w", err)
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO goals (uuid, plan_version_id, title, area_of_need, related_areas_of_need,
			target_date, goal_order, status, status_date, notes)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6,
			(SELECT COALESCE(MAX(goal_order), 0) + 1 FROM goals WHERE plan_version_id=$2),
			$7, $8, $9)
		RETURNING id, goal_order, created_at, updated_at
	`, goal.UUID, versionID, goal.Title, goal.AreaOfNeed, string(related),
		goal.TargetDate, goal.Status, goal.StatusDate, goal.Notes).
		Scan(&goal.ID, &goal.GoalOrder, &goal.CreatedAt, &goal.UpdatedAt)
	if err != nil {
		return Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	goal.PlanVersionID = versionID

	for i := range goal.Steps {
		step := &goal.Steps[i]
		step.GoalID = goal.ID
		step.StepOrder = i + 1
		err = tx.QueryRowContext(ctx, `
			INSERT INTO steps (uuid, goal_id, description, status, actor, step_order)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at
		`, step.UUID, step.GoalID, step.Description, step.Status, step.Actor, step.StepOrder).
			Scan(&step.ID, &step.CreatedAt, &step.UpdatedAt)
		if err != nil {
			return Goal{}, fmt.Errorf("insert step: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE plan_versions SET updated_at=NOW() WHERE id=$1`, versionID); err != nil {
		return Goal{}, fmt.Errorf("touch version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Goal{}, fmt.Errorf("commit add goal: %w", err)
	}
	return goal, nil
}

// AddProgressNote appends a progress note to a version and touches the
// version's last-updated timestamp.
func (s *PostgresStore) AddProgressNote(ctx context.Context, versionID int64, note ProgressNote) (ProgressNote, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ProgressNote{}, fmt.Errorf("begin add note: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO progress_notes (uuid, plan_version_id, title, body, practitioner_name, person_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, note.UUID, versionID, note.Title, note.Body, note.PractitionerName, note.PersonName).
		Scan(&note.ID, &note.CreatedAt)
	if err != nil {
		return ProgressNote{}, fmt.Errorf("insert progress note: %w", err)
	}
	note.PlanVersionID = versionID

	if _, err := tx.ExecContext(ctx, `UPDATE plan_versions SET updated_at=NOW() WHERE id=$1`, versionID); err != nil {
		return ProgressNote{}, fmt.Errorf("touch version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ProgressNote{}, fmt.Errorf("commit add note: %w", err)
	}
	return note, nil
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
