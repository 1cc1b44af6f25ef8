package extraction

import "path/filepath"

// Engine turns extracted text plus the source filename into a Record. Each
// field is a Chain; a miss leaves the field at Unknown and never fails.
type Engine struct {
	CaseNumber      Chain
	NoteNumber      Chain
	DiagnosisCode   Chain
	Subject         Chain
	ObjectOfRequest Chain
	SubmissionDate  Chain
}

func NewEngine() *Engine {
	return &Engine{
		CaseNumber:      CaseNumber,
		NoteNumber:      NoteNumber,
		DiagnosisCode:   DiagnosisCode,
		Subject:         Chain{Subject},
		ObjectOfRequest: Chain{ObjectOfRequest},
		SubmissionDate:  Chain{SubmissionDate},
	}
}

func (e *Engine) Extract(text, filename string) Record {
	rec := NewRecord(filename)
	rec.FullText = text

	in := Input{Text: text, Filename: filepath.Base(filename)}
	fill := func(dst *string, c Chain) {
		if v, ok := c.Match(in); ok {
			*dst = v
		}
	}
	fill(&rec.CaseNumber, e.CaseNumber)
	fill(&rec.NoteNumber, e.NoteNumber)
	fill(&rec.DiagnosisCode, e.DiagnosisCode)
	fill(&rec.Subject, e.Subject)
	fill(&rec.ObjectOfRequest, e.ObjectOfRequest)
	fill(&rec.SubmissionDate, e.SubmissionDate)

	out := ClassifyOutcome(text)
	rec.Outcome = out.Outcome
	rec.OutcomeInferred = out.Inferred

	return rec
}
