package store

import "time"

type User struct {
	ID            string
	DisplayName   string
	Email         string
	PasswordHash  string
	Role          string
	DeactivatedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Plan is the root aggregate. Its UUID is the stable external identity;
// the current-version pointer is reassigned whenever a snapshot is cut.
type Plan struct {
	ID               int64
	UUID             string
	PersonName       string
	CurrentVersionID *int64
	CreatedBy        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PlanVersion is one immutable-once-superseded snapshot of a plan's
// content. All versions of a plan share PlanID; only the row pointed to
// by plans.current_version_id is writable through the workflow.
type PlanVersion struct {
	ID                   int64
	UUID                 string
	PlanID               int64
	Version              int
	CountersigningStatus string
	AgreementStatus      string
	AgreementDate        *time.Time
	ReadOnly             bool
	Checksum             string
	LockVersion          int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type Goal struct {
	ID                 int64
	UUID               string
	PlanVersionID      int64
	Title              string
	AreaOfNeed         string
	RelatedAreasOfNeed []string
	TargetDate         *time.Time
	GoalOrder          int
	Status             string
	StatusDate         *time.Time
	Notes              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Steps              []Step
}

type Step struct {
	ID          int64
	UUID        string
	GoalID      int64
	Description string
	Status      string
	Actor       string
	StepOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ProgressNote struct {
	ID               int64
	UUID             string
	PlanVersionID    int64
	Title            string
	Body             string
	PractitionerName string
	PersonName       string
	CreatedAt        time.Time
}

type AgreementNote struct {
	ID               int64
	UUID             string
	PlanVersionID    int64
	AgreementStatus  string
	Title            string
	Body             string
	PractitionerName string
	PersonName       string
	CreatedAt        time.Time
}

// VersionGraph is the full owned subgraph of one plan version, loaded
// in a single consistent read. The snapshot copier operates on this
// shape and never follows live store references.
type VersionGraph struct {
	Version       PlanVersion
	Goals         []Goal
	ProgressNotes []ProgressNote
	AgreementNote *AgreementNote
}

// Snapshot is the unit handed to SaveSnapshot: the re-keyed duplicate
// graph to insert, plus the identity and lock token of the original row
// whose version number must be advanced in the same transaction.
type Snapshot struct {
	Duplicate           VersionGraph
	OriginalVersionID   int64
	OriginalLockVersion int
	NextVersionNumber   int
	Checksum            string
}
