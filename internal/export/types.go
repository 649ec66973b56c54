// Package export renders plan versions to HTML, PDF and DOCX.
package export

import (
	"errors"
	"time"
)

// Format represents the export output format
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// Request contains parameters for an export operation
type Request struct {
	PlanUUID      string
	VersionNumber int
	Format        Format
	IncludeNotes  bool
}

// PlanInfo holds plan metadata for export
type PlanInfo struct {
	UUID       string
	PersonName string
	CreatedBy  string
}

// VersionInfo holds a rendered version's content
type VersionInfo struct {
	UUID                 string
	Number               int
	CountersigningStatus string
	AgreementStatus      string
	AgreementDate        *time.Time
	ReadOnly             bool
	UpdatedAt            time.Time
	Goals                []GoalInfo
	ProgressNotes        []NoteInfo
	AgreementNote        string
}

// GoalInfo holds goal content for export
type GoalInfo struct {
	Title        string
	AreaOfNeed   string
	RelatedAreas []string
	TargetDate   *time.Time
	Status       string
	Notes        string
	Steps        []StepInfo
}

// StepInfo holds step content for export
type StepInfo struct {
	Description string
	Status      string
	Actor       string
}

// NoteInfo holds progress note content for export
type NoteInfo struct {
	Title        string
	Body         string
	Practitioner string
	CreatedAt    time.Time
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrContentUnavailable indicates plan content could not be loaded for export.
	ErrContentUnavailable = errors.New("export content unavailable")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
