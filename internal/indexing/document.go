package indexing

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"natjus/internal/extraction"
)

// Document is a record projected onto the index field set.
type Document struct {
	SourceFilename          string
	DocumentKind            string
	CaseNumber              string
	NoteNumber              string
	DiagnosisCode           string
	Subject                 string
	Classification          string
	Outcome                 string
	OutcomeInferred         bool
	FullText                string
	TextPartial             bool
	PageCount               int
	PagesRead               int
	SubmissionDate          string // yyyy-MM-dd, empty when unknown
	ObjectOfRequest         string
	ClassifierTags          string
	ComplementaryInfo       string
	MedicationAndSupplyList string
	IsLegacy                bool
	AttachmentLocator       string
	ContentSHA256           string
	ExtractedAt             time.Time
	Attachment              string // base64 PDF bytes
}

func Project(rec extraction.Record) Document {
	date, _ := extraction.NormalizeDate(rec.SubmissionDate)
	return Document{
		SourceFilename:          rec.SourceFilename,
		DocumentKind:            string(rec.DocumentKind),
		CaseNumber:              rec.CaseNumber,
		NoteNumber:              rec.NoteNumber,
		DiagnosisCode:           rec.DiagnosisCode,
		Subject:                 rec.Subject,
		Classification:          rec.Classification,
		Outcome:                 string(rec.Outcome),
		OutcomeInferred:         rec.OutcomeInferred,
		FullText:                rec.FullText,
		TextPartial:             rec.TextPartial,
		PageCount:               rec.PageCount,
		PagesRead:               rec.PagesRead,
		SubmissionDate:          date,
		ObjectOfRequest:         rec.ObjectOfRequest,
		ClassifierTags:          rec.ClassifierTags,
		ComplementaryInfo:       rec.ComplementaryInfo,
		MedicationAndSupplyList: rec.MedicationAndSupplyList,
		IsLegacy:                rec.IsLegacy,
		AttachmentLocator:       rec.AttachmentLocator,
		ContentSHA256:           rec.ContentSHA256,
		ExtractedAt:             rec.ExtractedAt,
	}
}

// Attach loads the source PDF from dir as the document's binary attachment.
func (d *Document) Attach(dir string) error {
	data, err := os.ReadFile(filepath.Join(dir, filepath.Base(d.SourceFilename)))
	if err != nil {
		return fmt.Errorf("attachment unavailable: %w", err)
	}
	d.Attachment = base64.StdEncoding.EncodeToString(data)
	return nil
}

// Properties renders the document as index properties. Unset dates and a
// missing attachment are left out.
func (d Document) Properties() map[string]any {
	props := map[string]any{
		"source_filename":            d.SourceFilename,
		"document_kind":              d.DocumentKind,
		"case_number":                d.CaseNumber,
		"note_number":                d.NoteNumber,
		"diagnosis_code":             d.DiagnosisCode,
		"subject":                    d.Subject,
		"classification":             d.Classification,
		"outcome":                    d.Outcome,
		"outcome_inferred":           d.OutcomeInferred,
		"full_text":                  d.FullText,
		"text_partial":               d.TextPartial,
		"page_count":                 d.PageCount,
		"pages_read":                 d.PagesRead,
		"object_of_request":          d.ObjectOfRequest,
		"classifier_tags":            d.ClassifierTags,
		"complementary_info":         d.ComplementaryInfo,
		"medication_and_supply_list": d.MedicationAndSupplyList,
		"is_legacy":                  d.IsLegacy,
		"attachment_locator":         d.AttachmentLocator,
		"content_sha256":             d.ContentSHA256,
	}
	if d.SubmissionDate != "" {
		if t, err := time.Parse(time.DateOnly, d.SubmissionDate); err == nil {
			props["submission_date"] = t.Format(time.RFC3339)
		}
	}
	if !d.ExtractedAt.IsZero() {
		props["extracted_at"] = d.ExtractedAt.UTC().Format(time.RFC3339)
	}
	if d.Attachment != "" {
		props["attachment"] = d.Attachment
	}
	return props
}
