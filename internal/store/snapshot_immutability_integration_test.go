package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

// TestSnapshotContentBlocksUpdate verifies that a goal belonging to a
// read-only plan version cannot be updated once the snapshot is cut.
func TestSnapshotContentBlocksUpdate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	db, err := Open(ctx, getTestDatabaseURL(t))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, `
		SELECT 1 FROM information_schema.triggers
		WHERE trigger_name = 'trg_goals_block_snapshot_write'
	`)
	if err != nil {
		t.Fatalf("immutability trigger not found; migration 0002 may not be applied: %v", err)
	}

	versionID, goalID := seedFrozenVersion(ctx, t, db)
	defer cleanupFrozenVersion(ctx, db, versionID)

	_, err = db.ExecContext(ctx, `UPDATE goals SET title = 'Edited title' WHERE id = $1`, goalID)
	if err == nil {
		t.Fatal("expected UPDATE to be blocked, but it succeeded")
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Fatalf("expected PostgreSQL error, got: %v", err)
	}
	if pgErr.SQLState() != "55000" {
		t.Fatalf("expected SQLSTATE 55000 (object_not_in_prerequisite_state), got: %s", pgErr.SQLState())
	}
}

// TestSnapshotContentBlocksDelete verifies that snapshot content rows
// cannot be deleted either.
func TestSnapshotContentBlocksDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	db, err := Open(ctx, getTestDatabaseURL(t))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()

	versionID, goalID := seedFrozenVersion(ctx, t, db)
	defer cleanupFrozenVersion(ctx, db, versionID)

	_, err = db.ExecContext(ctx, `DELETE FROM goals WHERE id = $1`, goalID)
	if err == nil {
		t.Fatal("expected DELETE to be blocked, but it succeeded")
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Fatalf("expected PostgreSQL error, got: %v", err)
	}
	if pgErr.SQLState() != "55000" {
		t.Fatalf("expected SQLSTATE 55000 (object_not_in_prerequisite_state), got: %s", pgErr.SQLState())
	}
}

// TestLiveVersionContentStaysWritable verifies the guard only applies to
// read-only snapshots; the current version's goals remain editable.
func TestLiveVersionContentStaysWritable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	db, err := Open(ctx, getTestDatabaseURL(t))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()

	versionID, goalID := seedFrozenVersion(ctx, t, db)
	defer cleanupFrozenVersion(ctx, db, versionID)

	if _, err := db.ExecContext(ctx, `UPDATE plan_versions SET read_only = FALSE WHERE id = $1`, versionID); err != nil {
		t.Fatalf("unfreeze version: %v", err)
	}
	if _, err := db.ExecContext(ctx, `UPDATE goals SET title = 'Edited title' WHERE id = $1`, goalID); err != nil {
		t.Fatalf("expected live goal to stay editable: %v", err)
	}
}

// seedFrozenVersion inserts a plan with one read-only version carrying a
// single goal, and returns both row ids.
func seedFrozenVersion(ctx context.Context, t *testing.T, db *sql.DB) (int64, int64) {
	t.Helper()

	var planID int64
	err := db.QueryRowContext(ctx, `
		INSERT INTO plans (uuid, person_name, created_by_name)
		VALUES (gen_random_uuid()::text, 'Immutability Test', 'integration-test')
		RETURNING id
	`).Scan(&planID)
	if err != nil {
		t.Fatalf("insert plan: %v", err)
	}

	var versionID int64
	err = db.QueryRowContext(ctx, `
		INSERT INTO plan_versions (uuid, plan_id, version, read_only)
		VALUES (gen_random_uuid()::text, $1, 0, TRUE)
		RETURNING id
	`, planID).Scan(&versionID)
	if err != nil {
		t.Fatalf("insert version: %v", err)
	}

	var goalID int64
	err = db.QueryRowContext(ctx, `
		INSERT INTO goals (uuid, plan_version_id, title, area_of_need, goal_order)
		VALUES (gen_random_uuid()::text, $1, 'Frozen goal', 'Health', 1)
		RETURNING id
	`, versionID).Scan(&goalID)
	if err != nil {
		t.Fatalf("insert goal: %v", err)
	}

	return versionID, goalID
}

func cleanupFrozenVersion(ctx context.Context, db *sql.DB, versionID int64) {
	_, _ = db.ExecContext(ctx, `UPDATE plan_versions SET read_only = FALSE WHERE id = $1`, versionID)
	_, _ = db.ExecContext(ctx, `DELETE FROM goals WHERE plan_version_id = $1`, versionID)
	var planID int64
	_ = db.QueryRowContext(ctx, `SELECT plan_id FROM plan_versions WHERE id = $1`, versionID).Scan(&planID)
	_, _ = db.ExecContext(ctx, `DELETE FROM plan_versions WHERE id = $1`, versionID)
	_, _ = db.ExecContext(ctx, `DELETE FROM plans WHERE id = $1`, planID)
}

// getTestDatabaseURL returns the database URL for integration tests,
// falling back to the standard Postgres environment variables.
func getTestDatabaseURL(t *testing.T) string {
	t.Helper()

	if url := getenv("TEST_DATABASE_URL", ""); url != "" {
		return url
	}

	host := getenv("POSTGRES_HOST", "localhost")
	port := getenv("POSTGRES_PORT", "5432")
	user := getenv("POSTGRES_USER", "caseplan")
	pass := getenv("POSTGRES_PASSWORD", "caseplan")
	dbname := getenv("POSTGRES_DB", "caseplan_test")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + dbname + "?sslmode=disable"
}

func getenv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
