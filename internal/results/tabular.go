package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"natjus/internal/extraction"
)

const sheetName = "Metadados"

// Columns is the tabular projection of a record. The full text is left out.
var Columns = []string{
	"source_filename",
	"document_kind",
	"case_number",
	"note_number",
	"diagnosis_code",
	"subject",
	"classification",
	"outcome",
	"outcome_inferred",
	"text_partial",
	"page_count",
	"pages_read",
	"submission_date",
	"object_of_request",
	"classifier_tags",
	"complementary_info",
	"medication_and_supply_list",
	"is_legacy",
	"attachment_locator",
	"content_sha256",
	"extracted_at",
}

func row(r extraction.Record) []string {
	extracted := ""
	if !r.ExtractedAt.IsZero() {
		extracted = r.ExtractedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		r.SourceFilename,
		string(r.DocumentKind),
		r.CaseNumber,
		r.NoteNumber,
		r.DiagnosisCode,
		r.Subject,
		r.Classification,
		string(r.Outcome),
		strconv.FormatBool(r.OutcomeInferred),
		strconv.FormatBool(r.TextPartial),
		strconv.Itoa(r.PageCount),
		strconv.Itoa(r.PagesRead),
		r.SubmissionDate,
		r.ObjectOfRequest,
		r.ClassifierTags,
		r.ComplementaryInfo,
		r.MedicationAndSupplyList,
		strconv.FormatBool(r.IsLegacy),
		r.AttachmentLocator,
		r.ContentSHA256,
		extracted,
	}
}

// WriteCSV writes a UTF-8 CSV with a byte order mark so spreadsheet tools
// pick the right encoding.
func WriteCSV(w io.Writer, recs []extraction.Record) error {
	if _, err := w.Write([]byte("\ufeff")); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range recs {
		if err := cw.Write(row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteXLSX(w io.Writer, recs []extraction.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	index, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	for i, h := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}
	for n, r := range recs {
		for i, v := range row(r) {
			cell, _ := excelize.CoordinatesToCellName(i+1, n+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("xlsx cell %s: %w", cell, err)
			}
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 48) // filename
	_ = f.SetColWidth(sheetName, "F", "F", 60) // subject
	_ = f.SetColWidth(sheetName, "N", "N", 60) // object of request

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}
