package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrStaleVersion is returned when a conditional write loses the
// optimistic-lock race: the targeted version row was advanced by a
// concurrent request and the caller must re-read the current version.
var ErrStaleVersion = errors.New("plan version was modified concurrently")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) EnsureUserByName(ctx context.Context, name string) (User, error) {
	const findUser = `SELECT id, display_name, email, role FROM users WHERE display_name = $1`
	var user User
	err := s.db.QueryRowContext(ctx, findUser, name).Scan(&user.ID, &user.DisplayName, &user.Email, &user.Role)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}

	insertUser := `
		INSERT INTO users (display_name, email, role)
		VALUES ($1, CONCAT(LOWER(REPLACE($1, ' ', '.')), '@local.caseplan.dev'), 'practitioner')
		RETURNING id, display_name, email, role
	`
	if err := s.db.QueryRowContext(ctx, insertUser, name).Scan(&user.ID, &user.DisplayName, &user.Email, &user.Role); err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, role, deactivated_at, created_at, updated_at
		FROM users WHERE id=$1
	`, userID).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.Role, &user.DeactivatedAt, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, role, deactivated_at, created_at, updated_at
		FROM users WHERE LOWER(email)=LOWER($1)
	`, email).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.Role, &user.DeactivatedAt, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) (User, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (display_name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, user.DisplayName, user.Email, user.PasswordHash, user.Role).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1
	`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.display_name, u.email, u.role
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&user.ID, &user.DisplayName, &user.Email, &user.Role)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// CreatePlan inserts the plan row together with its version 0 and wires
// the current-version pointer, all in one transaction.
func (s *PostgresStore) CreatePlan(ctx context.Context, plan Plan, version PlanVersion) (Plan, PlanVersion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Plan{}, PlanVersion{}, fmt.Errorf("begin create plan: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO plans (uuid, person_name, created_by_name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, plan.UUID, plan.PersonName, plan.CreatedBy).Scan(&plan.ID, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return Plan{}, PlanVersion{}, fmt.Errorf("insert plan: %w", err)
	}

	version.PlanID = plan.ID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO plan_versions (uuid, plan_id, version, countersigning_status, agreement_status, checksum)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, lock_version, created_at, updated_at
	`, version.UUID, version.PlanID, version.Version, version.CountersigningStatus, version.AgreementStatus, version.Checksum).
		Scan(&version.ID, &version.LockVersion, &version.CreatedAt, &version.UpdatedAt)
	if err != nil {
		return Plan{}, PlanVersion{}, fmt.Errorf("insert plan version: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE plans SET current_version_id=$2 WHERE id=$1`, plan.ID, version.ID); err != nil {
		return Plan{}, PlanVersion{}, fmt.Errorf("set current version: %w", err)
	}
	plan.CurrentVersionID = &version.ID

	if err := tx.Commit(); err != nil {
		return Plan{}, PlanVersion{}, fmt.Errorf("commit create plan: %w", err)
	}
	return plan, version, nil
}

func (s *PostgresStore) GetPlanByUUID(ctx context.Context, planUUID string) (Plan, error) {
	var plan Plan
	err := s.db.QueryRowContext(ctx, `
		SELECT id, uuid, person_name, current_version_id, created_by_name, created_at, updated_at
		FROM plans WHERE uuid=$1
	`, planUUID).Scan(&plan.ID, &plan.UUID, &plan.PersonName, &plan.CurrentVersionID, &plan.CreatedBy, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return Plan{}, err
	}
	return plan, nil
}

const versionColumns = `
	id, uuid, plan_id, version, countersigning_status, agreement_status,
	agreement_date, read_only, checksum, lock_version, created_at, updated_at`

func scanVersion(row interface{ Scan(...any) error }) (PlanVersion, error) {
	var v PlanVersion
	err := row.Scan(&v.ID, &v.UUID, &v.PlanID, &v.Version, &v.CountersigningStatus, &v.AgreementStatus,
		&v.AgreementDate, &v.ReadOnly, &v.Checksum, &v.LockVersion, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return PlanVersion{}, err
	}
	return v, nil
}

// GetCurrentVersion returns the version row the plan currently points
// to. A plan always has one once created.
func (s *PostgresStore) GetCurrentVersion(ctx context.Context, planID int64) (PlanVersion, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+versionColumns+`
		FROM plan_versions
		WHERE id = (SELECT current_version_id FROM plans WHERE id=$1)
	`, planID)
	return scanVersion(row)
}

func (s *PostgresStore) GetVersionByNumber(ctx context.Context, planID int64, number int) (PlanVersion, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+versionColumns+`
		FROM plan_versions
		WHERE plan_id=$1 AND version=$2
	`, planID, number)
	return scanVersion(row)
}

func (s *PostgresStore) ListVersions(ctx context.Context, planID int64) ([]PlanVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+versionColumns+`
		FROM plan_versions
		WHERE plan_id=$1
		ORDER BY version ASC
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("list plan versions: %w", err)
	}
	defer rows.Close()

	items := make([]PlanVersion, 0)
	for rows.Next() {
		item, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan version: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plan versions: %w", err)
	}
	return items, nil
}

// UpdateAgreement applies an agreement transition to a version row and
// stores the accompanying agreement note in the same transaction. The
// write is conditional on the caller's lock token.
func (s *PostgresStore) UpdateAgreement(ctx context.Context, versionID int64, lockVersion int, status string, agreedAt time.Time, note AgreementNote) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin agreement update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE plan_versions
		SET agreement_status=$3, agreement_date=$4, lock_version=lock_version+1, updated_at=NOW()
		WHERE id=$1 AND lock_version=$2
	`, versionID, lockVersion, status, agreedAt)
	if err != nil {
		return fmt.Errorf("update agreement: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update agreement rows: %w", err)
	}
	if affected == 0 {
		return ErrStaleVersion
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO agreement_notes (uuid, plan_version_id, agreement_status, title, body, practitioner_name, person_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, note.UUID, versionID, note.AgreementStatus, note.Title, note.Body, note.PractitionerName, note.PersonName); err != nil {
		return fmt.Errorf("insert agreement note: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit agreement update: %w", err)
	}
	return nil
}

// UpdateCountersigning applies a countersigning transition, conditional
// on the caller's lock token. It never touches the version number.
func (s *PostgresStore) UpdateCountersigning(ctx context.Context, versionID int64, lockVersion int, status string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE plan_versions
		SET countersigning_status=$3, lock_version=lock_version+1, updated_at=NOW()
		WHERE id=$1 AND lock_version=$2
	`, versionID, lockVersion, status)
	if err != nil {
		return fmt.Errorf("update countersigning: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update countersigning rows: %w", err)
	}
	if affected == 0 {
		return ErrStaleVersion
	}
	return nil
}
