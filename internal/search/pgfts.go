package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
// Goals and notes are searched on the current version of each plan only.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across plans, goals, and progress
// notes using plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	// Plans sub-query. person_name has no stored tsvector, it is short
	// enough to vectorize inline.
	if q.FilterType == "" || q.FilterType == ResultPlan {
		planWhere := "to_tsvector('english', p.person_name) @@ " + tsQuery
		if q.FilterPlanUUID != "" {
			planWhere += fmt.Sprintf(" AND p.uuid = $%d", argN)
			args = append(args, q.FilterPlanUUID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'plan'::text AS type, p.uuid AS id, p.person_name AS title,
				''::text AS snippet,
				p.uuid AS plan_uuid, coalesce(pv.version, 0) AS version_number,
				ts_rank(to_tsvector('english', p.person_name), %s) AS rank
			FROM plans p
			LEFT JOIN plan_versions pv ON pv.id = p.current_version_id
			WHERE %s`, tsQuery, planWhere))
	}

	// Goals sub-query, current versions only
	if q.FilterType == "" || q.FilterType == ResultGoal {
		goalWhere := "g.fts @@ " + tsQuery
		if q.FilterPlanUUID != "" {
			goalWhere += fmt.Sprintf(" AND p.uuid = $%d", argN)
			args = append(args, q.FilterPlanUUID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'goal'::text AS type, g.uuid AS id, g.title,
				ts_headline('english', coalesce(g.notes, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				p.uuid AS plan_uuid, pv.version AS version_number,
				ts_rank(g.fts, %s) AS rank
			FROM goals g
			JOIN plan_versions pv ON pv.id = g.plan_version_id
			JOIN plans p ON p.current_version_id = pv.id
			WHERE %s`, tsQuery, tsQuery, goalWhere))
	}

	// Progress notes sub-query, current versions only
	if q.FilterType == "" || q.FilterType == ResultNote {
		noteWhere := "pn.fts @@ " + tsQuery
		if q.FilterPlanUUID != "" {
			noteWhere += fmt.Sprintf(" AND p.uuid = $%d", argN)
			args = append(args, q.FilterPlanUUID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'note'::text AS type, pn.uuid AS id, pn.title,
				ts_headline('english', coalesce(pn.body, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				p.uuid AS plan_uuid, pv.version AS version_number,
				ts_rank(pn.fts, %s) AS rank
			FROM progress_notes pn
			JOIN plan_versions pv ON pv.id = pn.plan_version_id
			JOIN plans p ON p.current_version_id = pv.id
			WHERE %s`, tsQuery, tsQuery, noteWhere))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, plan_uuid, version_number
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.PlanUUID, &r.VersionNumber); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
// Goals and notes come from current versions only.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]PlanRecord, []GoalRecord, []NoteRecord, error) {
	planRows, err := p.db.QueryContext(ctx, `
		SELECT p.uuid, p.person_name, coalesce(pv.version, 0)
		FROM plans p
		LEFT JOIN plan_versions pv ON pv.id = p.current_version_id
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load plans: %w", err)
	}
	defer planRows.Close()

	plans := make([]PlanRecord, 0)
	for planRows.Next() {
		var r PlanRecord
		if err := planRows.Scan(&r.PlanUUID, &r.PersonName, &r.Version); err != nil {
			return nil, nil, nil, fmt.Errorf("scan plan: %w", err)
		}
		r.ID = r.PlanUUID
		plans = append(plans, r)
	}
	if err := planRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate plans: %w", err)
	}

	goalRows, err := p.db.QueryContext(ctx, `
		SELECT g.uuid, g.title, g.area_of_need, coalesce(g.notes, ''), p.uuid, pv.version
		FROM goals g
		JOIN plan_versions pv ON pv.id = g.plan_version_id
		JOIN plans p ON p.current_version_id = pv.id
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load goals: %w", err)
	}
	defer goalRows.Close()

	goals := make([]GoalRecord, 0)
	for goalRows.Next() {
		var g GoalRecord
		if err := goalRows.Scan(&g.ID, &g.Title, &g.AreaOfNeed, &g.Notes, &g.PlanUUID, &g.Version); err != nil {
			return nil, nil, nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	if err := goalRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate goals: %w", err)
	}

	noteRows, err := p.db.QueryContext(ctx, `
		SELECT pn.uuid, pn.title, pn.body, p.uuid, pv.version
		FROM progress_notes pn
		JOIN plan_versions pv ON pv.id = pn.plan_version_id
		JOIN plans p ON p.current_version_id = pv.id
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load notes: %w", err)
	}
	defer noteRows.Close()

	notes := make([]NoteRecord, 0)
	for noteRows.Next() {
		var n NoteRecord
		if err := noteRows.Scan(&n.ID, &n.Title, &n.Body, &n.PlanUUID, &n.Version); err != nil {
			return nil, nil, nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := noteRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate notes: %w", err)
	}

	return plans, goals, notes, nil
}
