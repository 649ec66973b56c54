package app

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"caseplan/api/internal/config"
	"caseplan/api/internal/planflow"
	"caseplan/api/internal/store"
)

type fakeStore struct {
	pingFn                 func(context.Context) error
	ensureUserByNameFn     func(context.Context, string) (store.User, error)
	getUserByIDFn          func(context.Context, string) (store.User, error)
	createPlanFn           func(context.Context, store.Plan, store.PlanVersion) (store.Plan, store.PlanVersion, error)
	getPlanByUUIDFn        func(context.Context, string) (store.Plan, error)
	getCurrentVersionFn    func(context.Context, int64) (store.PlanVersion, error)
	getVersionByNumberFn   func(context.Context, int64, int) (store.PlanVersion, error)
	listVersionsFn         func(context.Context, int64) ([]store.PlanVersion, error)
	getVersionGraphFn      func(context.Context, int64) (store.VersionGraph, error)
	saveSnapshotFn         func(context.Context, store.Snapshot) error
	nextVersionNumberFn    func(context.Context, int64) (int, error)
	addGoalFn              func(context.Context, int64, store.Goal) (store.Goal, error)
	addProgressNoteFn      func(context.Context, int64, store.ProgressNote) (store.ProgressNote, error)
	updateAgreementFn      func(context.Context, int64, int, string, time.Time, store.AgreementNote) error
	updateCountersigningFn func(context.Context, int64, int, string) error
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}
func (f *fakeStore) EnsureUserByName(ctx context.Context, name string) (store.User, error) {
	if f.ensureUserByNameFn != nil {
		return f.ensureUserByNameFn(ctx, name)
	}
	return store.User{ID: "user-1", DisplayName: name, Role: "practitioner"}, nil
}
func (f *fakeStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, userID)
	}
	return store.User{ID: userID, DisplayName: "Test User", Role: "practitioner"}, nil
}
func (f *fakeStore) RevokeAccessToken(context.Context, string, time.Time) error { return nil }
func (f *fakeStore) IsAccessTokenRevoked(context.Context, string) (bool, error) {
	return false, nil
}
func (f *fakeStore) CreatePlan(ctx context.Context, plan store.Plan, version store.PlanVersion) (store.Plan, store.PlanVersion, error) {
	if f.createPlanFn != nil {
		return f.createPlanFn(ctx, plan, version)
	}
	return plan, version, nil
}
func (f *fakeStore) GetPlanByUUID(ctx context.Context, planUUID string) (store.Plan, error) {
	if f.getPlanByUUIDFn != nil {
		return f.getPlanByUUIDFn(ctx, planUUID)
	}
	return store.Plan{}, sql.ErrNoRows
}
func (f *fakeStore) GetCurrentVersion(ctx context.Context, planID int64) (store.PlanVersion, error) {
	if f.getCurrentVersionFn != nil {
		return f.getCurrentVersionFn(ctx, planID)
	}
	return store.PlanVersion{}, sql.ErrNoRows
}
func (f *fakeStore) GetVersionByNumber(ctx context.Context, planID int64, number int) (store.PlanVersion, error) {
	if f.getVersionByNumberFn != nil {
		return f.getVersionByNumberFn(ctx, planID, number)
	}
	return store.PlanVersion{}, sql.ErrNoRows
}
func (f *fakeStore) ListVersions(ctx context.Context, planID int64) ([]store.PlanVersion, error) {
	if f.listVersionsFn != nil {
		return f.listVersionsFn(ctx, planID)
	}
	return nil, nil
}
func (f *fakeStore) GetVersionGraph(ctx context.Context, versionID int64) (store.VersionGraph, error) {
	if f.getVersionGraphFn != nil {
		return f.getVersionGraphFn(ctx, versionID)
	}
	return store.VersionGraph{}, sql.ErrNoRows
}
func (f *fakeStore) SaveSnapshot(ctx context.Context, snapshot store.Snapshot) error {
	if f.saveSnapshotFn != nil {
		return f.saveSnapshotFn(ctx, snapshot)
	}
	return nil
}
func (f *fakeStore) NextVersionNumber(ctx context.Context, planID int64) (int, error) {
	if f.nextVersionNumberFn != nil {
		return f.nextVersionNumberFn(ctx, planID)
	}
	return 1, nil
}
func (f *fakeStore) AddGoal(ctx context.Context, versionID int64, goal store.Goal) (store.Goal, error) {
	if f.addGoalFn != nil {
		return f.addGoalFn(ctx, versionID, goal)
	}
	goal.ID = 100
	goal.PlanVersionID = versionID
	return goal, nil
}
func (f *fakeStore) AddProgressNote(ctx context.Context, versionID int64, note store.ProgressNote) (store.ProgressNote, error) {
	if f.addProgressNoteFn != nil {
		return f.addProgressNoteFn(ctx, versionID, note)
	}
	note.ID = 200
	note.PlanVersionID = versionID
	return note, nil
}
func (f *fakeStore) UpdateAgreement(ctx context.Context, versionID int64, lockVersion int, status string, agreedAt time.Time, note store.AgreementNote) error {
	if f.updateAgreementFn != nil {
		return f.updateAgreementFn(ctx, versionID, lockVersion, status, agreedAt, note)
	}
	return nil
}
func (f *fakeStore) UpdateCountersigning(ctx context.Context, versionID int64, lockVersion int, status string) error {
	if f.updateCountersigningFn != nil {
		return f.updateCountersigningFn(ctx, versionID, lockVersion, status)
	}
	return nil
}
func (f *fakeStore) SaveRefreshSession(context.Context, string, string, time.Time) error { return nil }
func (f *fakeStore) LookupRefreshSession(context.Context, string) (store.User, error) {
	return store.User{}, sql.ErrNoRows
}
func (f *fakeStore) RevokeRefreshSession(context.Context, string) error { return nil }

var testNow = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

func newTestService(fs *fakeStore) *Service {
	return &Service{
		cfg:      config.Config{JWTSecret: "test-secret", AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour},
		store:    fs,
		sessions: fs,
		now:      func() time.Time { return testNow },
	}
}

func int64Ptr(v int64) *int64 { return &v }

// testPlanStore builds a fake around one plan whose current version has
// the given number, statuses and last-updated time.
func testPlanStore(number int, countersigning, agreement string, updatedAt time.Time) (*fakeStore, store.Plan, store.PlanVersion) {
	plan := store.Plan{
		ID:               1,
		UUID:             "6f1c9b52-7e0a-4c33-9f1d-2b8d6a33c001",
		PersonName:       "Sam Taylor",
		CurrentVersionID: int64Ptr(10),
	}
	version := store.PlanVersion{
		ID:                   10,
		UUID:                 "a2b4d6e8-1111-4222-8333-444455556666",
		PlanID:               1,
		Version:              number,
		CountersigningStatus: countersigning,
		AgreementStatus:      agreement,
		LockVersion:          2,
		UpdatedAt:            updatedAt,
	}
	fs := &fakeStore{
		getPlanByUUIDFn: func(_ context.Context, planUUID string) (store.Plan, error) {
			if planUUID != plan.UUID {
				return store.Plan{}, sql.ErrNoRows
			}
			return plan, nil
		},
		getCurrentVersionFn: func(context.Context, int64) (store.PlanVersion, error) {
			return version, nil
		},
		getVersionByNumberFn: func(_ context.Context, _ int64, n int) (store.PlanVersion, error) {
			if n != version.Version {
				return store.PlanVersion{}, sql.ErrNoRows
			}
			return version, nil
		},
	}
	return fs, plan, version
}

func TestCreatePlanStartsAtVersionZero(t *testing.T) {
	var created store.PlanVersion
	fs := &fakeStore{
		createPlanFn: func(_ context.Context, plan store.Plan, version store.PlanVersion) (store.Plan, store.PlanVersion, error) {
			plan.ID = 1
			version.ID = 10
			version.PlanID = 1
			created = version
			return plan, version, nil
		},
	}
	svc := newTestService(fs)

	payload, err := svc.CreatePlan(context.Background(), "Sam Taylor", "pract-1")
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if created.Version != 0 {
		t.Errorf("expected initial version number 0, got %d", created.Version)
	}
	if created.CountersigningStatus != string(planflow.Unsigned) {
		t.Errorf("expected UNSIGNED, got %s", created.CountersigningStatus)
	}
	if created.AgreementStatus != string(planflow.Draft) {
		t.Errorf("expected DRAFT, got %s", created.AgreementStatus)
	}
	if payload["versionNumber"] != 0 {
		t.Errorf("expected payload versionNumber 0, got %v", payload["versionNumber"])
	}
	if payload["personName"] != "Sam Taylor" {
		t.Errorf("expected personName in payload, got %v", payload["personName"])
	}
}

func TestAgreeRejectsAlreadyAgreed(t *testing.T) {
	fs, plan, _ := testPlanStore(0, string(planflow.Unsigned), string(planflow.Agreed), testNow)
	agreementWrites := 0
	fs.updateAgreementFn = func(context.Context, int64, int, string, time.Time, store.AgreementNote) error {
		agreementWrites++
		return nil
	}
	svc := newTestService(fs)

	_, err := svc.Agree(context.Background(), plan.UUID, AgreementInput{Status: "AGREED"})
	var conflict *planflow.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if agreementWrites != 0 {
		t.Errorf("expected no agreement write, got %d", agreementWrites)
	}
}

func TestAgreeSameDayKeepsVersionNumber(t *testing.T) {
	fs, plan, version := testPlanStore(0, string(planflow.Unsigned), string(planflow.Draft), testNow.Add(-2*time.Hour))
	snapshots := 0
	fs.saveSnapshotFn = func(context.Context, store.Snapshot) error {
		snapshots++
		return nil
	}
	var wroteStatus string
	var wroteNote store.AgreementNote
	fs.updateAgreementFn = func(_ context.Context, versionID int64, lockVersion int, status string, _ time.Time, note store.AgreementNote) error {
		if versionID != version.ID {
			t.Errorf("expected write on version %d, got %d", version.ID, versionID)
		}
		if lockVersion != version.LockVersion {
			t.Errorf("expected lock token %d, got %d", version.LockVersion, lockVersion)
		}
		wroteStatus = status
		wroteNote = note
		return nil
	}
	svc := newTestService(fs)

	payload, err := svc.Agree(context.Background(), plan.UUID, AgreementInput{
		Status:           "AGREED",
		Body:             "I agree with this plan",
		PractitionerName: "Pat Jones",
	})
	if err != nil {
		t.Fatalf("Agree: %v", err)
	}
	if snapshots != 0 {
		t.Errorf("same-day agree must not snapshot, got %d snapshots", snapshots)
	}
	if payload["versionNumber"] != 0 {
		t.Errorf("expected versionNumber 0, got %v", payload["versionNumber"])
	}
	if wroteStatus != string(planflow.Agreed) {
		t.Errorf("expected AGREED write, got %s", wroteStatus)
	}
	if wroteNote.Body != "I agree with this plan" || wroteNote.PersonName != "Sam Taylor" {
		t.Errorf("unexpected agreement note: %+v", wroteNote)
	}
}

func TestAgreeInvalidStatusRejected(t *testing.T) {
	fs, plan, _ := testPlanStore(0, string(planflow.Unsigned), string(planflow.Draft), testNow)
	svc := newTestService(fs)

	_, err := svc.Agree(context.Background(), plan.UUID, AgreementInput{Status: "DRAFT"})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 422 {
		t.Fatalf("expected 422 validation error, got %v", err)
	}
}

func TestAddGoalNextDayCutsSnapshot(t *testing.T) {
	yesterday := testNow.Add(-24 * time.Hour)
	fs, plan, version := testPlanStore(0, string(planflow.Unsigned), string(planflow.Draft), yesterday)

	advanced := version
	advanced.Version = 1
	advanced.UpdatedAt = testNow
	snapshotted := false
	var saved store.Snapshot

	fs.getCurrentVersionFn = func(context.Context, int64) (store.PlanVersion, error) {
		if snapshotted {
			return advanced, nil
		}
		return version, nil
	}
	fs.getVersionGraphFn = func(_ context.Context, versionID int64) (store.VersionGraph, error) {
		if versionID != version.ID {
			t.Errorf("expected graph load for version %d, got %d", version.ID, versionID)
		}
		return store.VersionGraph{
			Version: version,
			Goals: []store.Goal{{
				ID: 50, UUID: "goal-uuid-1", PlanVersionID: version.ID,
				Title: "Attend appointments", AreaOfNeed: "Health",
			}},
		}, nil
	}
	fs.saveSnapshotFn = func(_ context.Context, snapshot store.Snapshot) error {
		snapshotted = true
		saved = snapshot
		return nil
	}
	var goalVersionID int64
	fs.addGoalFn = func(_ context.Context, versionID int64, goal store.Goal) (store.Goal, error) {
		goalVersionID = versionID
		goal.ID = 51
		return goal, nil
	}
	svc := newTestService(fs)

	payload, err := svc.AddGoal(context.Background(), plan.UUID, GoalInput{Title: "Find stable housing", AreaOfNeed: "Accommodation"})
	if err != nil {
		t.Fatalf("AddGoal: %v", err)
	}
	if !snapshotted {
		t.Fatal("expected a snapshot before a cross-day edit")
	}
	if saved.NextVersionNumber != 1 {
		t.Errorf("expected original advanced to number 1, got %d", saved.NextVersionNumber)
	}
	if saved.OriginalVersionID != version.ID || saved.OriginalLockVersion != version.LockVersion {
		t.Errorf("snapshot must target the original row: %+v", saved)
	}
	if !saved.Duplicate.Version.ReadOnly {
		t.Error("duplicate must be read-only")
	}
	if saved.Duplicate.Version.Version != 0 {
		t.Errorf("duplicate must keep the old number 0, got %d", saved.Duplicate.Version.Version)
	}
	if len(saved.Duplicate.Goals) != 1 || saved.Duplicate.Goals[0].UUID == "goal-uuid-1" {
		t.Errorf("duplicate goals must be re-keyed copies: %+v", saved.Duplicate.Goals)
	}
	if goalVersionID != advanced.ID {
		t.Errorf("goal must land on the current row %d, got %d", advanced.ID, goalVersionID)
	}
	if payload["versionNumber"] != 1 {
		t.Errorf("expected versionNumber 1 after rollover, got %v", payload["versionNumber"])
	}
}

func TestSnapshotRaceLoserAdoptsWinner(t *testing.T) {
	yesterday := testNow.Add(-24 * time.Hour)
	fs, plan, version := testPlanStore(0, string(planflow.Unsigned), string(planflow.Draft), yesterday)

	advanced := version
	advanced.Version = 1
	advanced.LockVersion = 3
	advanced.UpdatedAt = testNow

	currentCalls := 0
	fs.getCurrentVersionFn = func(context.Context, int64) (store.PlanVersion, error) {
		currentCalls++
		if currentCalls == 1 {
			return version, nil
		}
		return advanced, nil
	}
	fs.getVersionGraphFn = func(context.Context, int64) (store.VersionGraph, error) {
		return store.VersionGraph{Version: version}, nil
	}
	snapshotAttempts := 0
	fs.saveSnapshotFn = func(context.Context, store.Snapshot) error {
		snapshotAttempts++
		return store.ErrStaleVersion
	}
	var noteVersionID int64
	fs.addProgressNoteFn = func(_ context.Context, versionID int64, note store.ProgressNote) (store.ProgressNote, error) {
		noteVersionID = versionID
		return note, nil
	}
	svc := newTestService(fs)

	payload, err := svc.AddProgressNote(context.Background(), plan.UUID, NoteInput{Body: "Visited today"})
	if err != nil {
		t.Fatalf("AddProgressNote after lost race: %v", err)
	}
	if snapshotAttempts != 1 {
		t.Errorf("loser must not retry the snapshot same-day, got %d attempts", snapshotAttempts)
	}
	if noteVersionID != advanced.ID {
		t.Errorf("write must land on the winner's current row, got %d", noteVersionID)
	}
	if payload["versionNumber"] != 1 {
		t.Errorf("expected winner's number 1, got %v", payload["versionNumber"])
	}
}

func TestSignSelfKeepsNumberSameDay(t *testing.T) {
	fs, plan, version := testPlanStore(0, string(planflow.Unsigned), string(planflow.Draft), testNow)
	var wrote string
	fs.updateCountersigningFn = func(_ context.Context, versionID int64, _ int, status string) error {
		if versionID != version.ID {
			t.Errorf("expected write on version %d, got %d", version.ID, versionID)
		}
		wrote = status
		return nil
	}
	svc := newTestService(fs)

	payload, err := svc.Sign(context.Background(), plan.UUID, "SELF")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if wrote != string(planflow.SelfSigned) {
		t.Errorf("expected SELF_SIGNED, got %s", wrote)
	}
	if payload["versionNumber"] != 0 {
		t.Errorf("expected versionNumber 0, got %v", payload["versionNumber"])
	}
}

func TestSignRejectsSignedState(t *testing.T) {
	fs, plan, _ := testPlanStore(0, string(planflow.Countersigned), string(planflow.Draft), testNow)
	svc := newTestService(fs)

	_, err := svc.Sign(context.Background(), plan.UUID, "COUNTERSIGN")
	var conflict *planflow.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestSignRejectsUnknownType(t *testing.T) {
	fs, plan, _ := testPlanStore(0, string(planflow.Unsigned), string(planflow.Draft), testNow)
	svc := newTestService(fs)

	_, err := svc.Sign(context.Background(), plan.UUID, "WITNESS")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 422 {
		t.Fatalf("expected 422 validation error, got %v", err)
	}
}

func TestCountersignNeverChangesNumber(t *testing.T) {
	fs, plan, version := testPlanStore(3, string(planflow.AwaitingCountersign), string(planflow.Agreed), testNow.Add(-48*time.Hour))
	snapshots := 0
	fs.saveSnapshotFn = func(context.Context, store.Snapshot) error {
		snapshots++
		return nil
	}
	var wrote string
	fs.updateCountersigningFn = func(_ context.Context, versionID int64, _ int, status string) error {
		if versionID != version.ID {
			t.Errorf("expected write on version %d, got %d", version.ID, versionID)
		}
		wrote = status
		return nil
	}
	svc := newTestService(fs)

	payload, err := svc.Countersign(context.Background(), plan.UUID, 3, "COUNTERSIGN")
	if err != nil {
		t.Fatalf("Countersign: %v", err)
	}
	if snapshots != 0 {
		t.Errorf("countersign must never snapshot, got %d", snapshots)
	}
	if wrote != string(planflow.Countersigned) {
		t.Errorf("expected COUNTERSIGNED, got %s", wrote)
	}
	if payload["versionNumber"] != 3 {
		t.Errorf("countersign must keep the input number, got %v", payload["versionNumber"])
	}
}

func TestCountersignRejectsWrongState(t *testing.T) {
	fs, plan, _ := testPlanStore(3, string(planflow.Unsigned), string(planflow.Draft), testNow)
	svc := newTestService(fs)

	_, err := svc.Countersign(context.Background(), plan.UUID, 3, "COUNTERSIGN")
	var conflict *planflow.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRollbackTargetsHistoricalVersion(t *testing.T) {
	fs, plan, _ := testPlanStore(1, string(planflow.Unsigned), string(planflow.Draft), testNow)
	historical := store.PlanVersion{
		ID: 9, UUID: "old-version-uuid", PlanID: 1, Version: 0,
		CountersigningStatus: string(planflow.SelfSigned),
		AgreementStatus:      string(planflow.Agreed),
		ReadOnly:             true,
		LockVersion:          1,
	}
	fs.getVersionByNumberFn = func(_ context.Context, _ int64, n int) (store.PlanVersion, error) {
		if n == 0 {
			return historical, nil
		}
		return store.PlanVersion{}, sql.ErrNoRows
	}
	var wrote string
	fs.updateCountersigningFn = func(_ context.Context, versionID int64, _ int, status string) error {
		if versionID != historical.ID {
			t.Errorf("expected write on historical row %d, got %d", historical.ID, versionID)
		}
		wrote = status
		return nil
	}
	svc := newTestService(fs)

	payload, err := svc.Rollback(context.Background(), plan.UUID, 0)
	if err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if wrote != string(planflow.RolledBack) {
		t.Errorf("expected ROLLED_BACK, got %s", wrote)
	}
	if payload["versionNumber"] != 0 {
		t.Errorf("expected versionNumber 0, got %v", payload["versionNumber"])
	}
}

func TestRollbackRejectsCurrentVersion(t *testing.T) {
	fs, plan, _ := testPlanStore(1, string(planflow.Unsigned), string(planflow.Draft), testNow)
	svc := newTestService(fs)

	_, err := svc.Rollback(context.Background(), plan.UUID, 1)
	var conflict *planflow.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLockAlwaysBranchesFirst(t *testing.T) {
	// Same-day updates would not trigger the gate; lock must snapshot anyway.
	fs, plan, version := testPlanStore(0, string(planflow.Unsigned), string(planflow.Draft), testNow)

	advanced := version
	advanced.Version = 1
	advanced.UpdatedAt = testNow
	snapshotted := false

	fs.getCurrentVersionFn = func(context.Context, int64) (store.PlanVersion, error) {
		if snapshotted {
			return advanced, nil
		}
		return version, nil
	}
	fs.getVersionGraphFn = func(context.Context, int64) (store.VersionGraph, error) {
		return store.VersionGraph{Version: version}, nil
	}
	fs.saveSnapshotFn = func(context.Context, store.Snapshot) error {
		snapshotted = true
		return nil
	}
	var wrote string
	fs.updateCountersigningFn = func(_ context.Context, versionID int64, _ int, status string) error {
		if versionID != advanced.ID {
			t.Errorf("expected lock on current row %d, got %d", advanced.ID, versionID)
		}
		wrote = status
		return nil
	}
	svc := newTestService(fs)

	payload, err := svc.Lock(context.Background(), plan.UUID, "INCOMPLETE")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if !snapshotted {
		t.Fatal("lock must always branch a new version first")
	}
	if wrote != string(planflow.LockedIncomplete) {
		t.Errorf("expected LOCKED_INCOMPLETE, got %s", wrote)
	}
	if payload["versionNumber"] != 1 {
		t.Errorf("expected versionNumber 1 after forced branch, got %v", payload["versionNumber"])
	}
}

func TestUnknownPlanIsNotFound(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.GetPlan(context.Background(), "missing-uuid")
	var notFound *planflow.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	_, err = svc.Sign(context.Background(), "missing-uuid", "SELF")
	if !errors.As(err, &notFound) {
		t.Fatalf("expected not found from Sign, got %v", err)
	}
}

func TestListPlanVersionsMarksCurrent(t *testing.T) {
	fs, plan, version := testPlanStore(1, string(planflow.Unsigned), string(planflow.Draft), testNow)
	fs.listVersionsFn = func(context.Context, int64) ([]store.PlanVersion, error) {
		old := version
		old.ID = 9
		old.Version = 0
		old.ReadOnly = true
		return []store.PlanVersion{old, version}, nil
	}
	svc := newTestService(fs)

	payload, err := svc.ListPlanVersions(context.Background(), plan.UUID)
	if err != nil {
		t.Fatalf("ListPlanVersions: %v", err)
	}
	items, ok := payload["versions"].([]map[string]any)
	if !ok || len(items) != 2 {
		t.Fatalf("expected 2 versions, got %v", payload["versions"])
	}
	if items[0]["current"] != false || items[1]["current"] != true {
		t.Errorf("only the pointed row may be current: %v / %v", items[0]["current"], items[1]["current"])
	}
}
