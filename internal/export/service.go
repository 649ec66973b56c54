package export

import (
	"context"
	"fmt"
)

// DataStore defines the interface for data access
type DataStore interface {
	GetPlanForExport(ctx context.Context, planUUID string) (PlanInfo, error)
	GetVersionForExport(ctx context.Context, planUUID string, number int) (VersionInfo, error)
}

// Service provides plan export functionality
type Service struct {
	store    DataStore
	archiver *Archiver
}

// NewService creates a new export service. archiver may be nil if no
// object store is configured.
func NewService(store DataStore, archiver *Archiver) *Service {
	return &Service{store: store, archiver: archiver}
}

// Export renders the requested plan version in the requested format.
// If an archiver is configured, a copy of the artifact is uploaded as
// a side effect; upload failures do not fail the export.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	plan, err := s.store.GetPlanForExport(ctx, req.PlanUUID)
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}

	version, err := s.store.GetVersionForExport(ctx, req.PlanUUID, req.VersionNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentUnavailable, err)
	}

	data := TemplateData{
		PersonName:           plan.PersonName,
		VersionNumber:        version.Number,
		CountersigningStatus: version.CountersigningStatus,
		AgreementStatus:      version.AgreementStatus,
		AgreementNote:        version.AgreementNote,
		UpdatedAt:            version.UpdatedAt,
		Goals:                version.Goals,
		ProgressNotes:        version.ProgressNotes,
		IncludeNotes:         req.IncludeNotes,
	}
	if version.AgreementDate != nil {
		data.AgreementDate = version.AgreementDate.Format("2 January 2006")
	}

	html, err := RenderPlanHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	title := fmt.Sprintf("plan %s v%d", plan.PersonName, version.Number)

	var result *Result
	switch req.Format {
	case FormatHTML:
		result = &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}
	case FormatPDF:
		result, err = exportPDF(ctx, html, title)
	case FormatDOCX:
		result, err = exportDOCX(ctx, html, title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
	if err != nil {
		return nil, err
	}

	if s.archiver != nil {
		s.archiver.Archive(plan.UUID, version.Number, result)
	}
	return result, nil
}
