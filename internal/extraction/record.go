package extraction

import (
	"path/filepath"
	"strings"
	"time"
)

// Unknown marks a field the engine could not extract. Fields are never omitted.
const Unknown = "unknown"

type DocumentKind string

const (
	KindTechnicalNote DocumentKind = "technical_note"
	KindOpinion       DocumentKind = "opinion"
)

type Outcome string

const (
	OutcomeFavorable          Outcome = "favorable"
	OutcomeUnfavorable        Outcome = "unfavorable"
	OutcomePartiallyFavorable Outcome = "partially_favorable"
	OutcomeInconclusive       Outcome = "inconclusive"
	OutcomeUnknown            Outcome = "unknown"
)

// Record is the metadata extracted from one source document.
type Record struct {
	SourceFilename          string       `json:"source_filename"`
	DocumentKind            DocumentKind `json:"document_kind"`
	CaseNumber              string       `json:"case_number"`
	NoteNumber              string       `json:"note_number"`
	DiagnosisCode           string       `json:"diagnosis_code"`
	Subject                 string       `json:"subject"`
	Classification          string       `json:"classification"`
	Outcome                 Outcome      `json:"outcome"`
	OutcomeInferred         bool         `json:"outcome_inferred"`
	FullText                string       `json:"full_text"`
	TextPartial             bool         `json:"text_partial"`
	PageCount               int          `json:"page_count"`
	PagesRead               int          `json:"pages_read"`
	SubmissionDate          string       `json:"submission_date"`
	ObjectOfRequest         string       `json:"object_of_request"`
	ClassifierTags          string       `json:"classifier_tags"`
	ComplementaryInfo       string       `json:"complementary_info"`
	MedicationAndSupplyList string       `json:"medication_and_supply_list"`
	IsLegacy                bool         `json:"is_legacy"`
	AttachmentLocator       string       `json:"attachment_locator"`
	ContentSHA256           string       `json:"content_sha256"`
	ExtractedAt             time.Time    `json:"extracted_at"`
}

// NewRecord returns a record for filename with every optional field at its sentinel.
func NewRecord(filename string) Record {
	name := filepath.Base(filename)
	return Record{
		SourceFilename:          name,
		DocumentKind:            KindFromFilename(name),
		CaseNumber:              Unknown,
		NoteNumber:              Unknown,
		DiagnosisCode:           Unknown,
		Subject:                 Unknown,
		Classification:          Unknown,
		Outcome:                 OutcomeUnknown,
		SubmissionDate:          Unknown,
		ObjectOfRequest:         Unknown,
		ClassifierTags:          Unknown,
		ComplementaryInfo:       Unknown,
		MedicationAndSupplyList: Unknown,
	}
}

// KindFromFilename classifies by filename tokens: "N.T" or "NOTA" mean a technical note.
func KindFromFilename(name string) DocumentKind {
	if strings.Contains(name, "N.T") || strings.Contains(strings.ToUpper(name), "NOTA") {
		return KindTechnicalNote
	}
	return KindOpinion
}

// IsKnown reports whether v holds an extracted value.
func IsKnown(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != Unknown
}
