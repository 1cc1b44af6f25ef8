package extraction

// FieldCoverage is the extraction rate of one field over a record set.
type FieldCoverage struct {
	Field     string  `json:"field"`
	Extracted int     `json:"extracted"`
	Missing   int     `json:"missing"`
	Rate      float64 `json:"rate"`
}

var coverageFields = []struct {
	name string
	get  func(r Record) string
}{
	{"case_number", func(r Record) string { return r.CaseNumber }},
	{"note_number", func(r Record) string { return r.NoteNumber }},
	{"diagnosis_code", func(r Record) string { return r.DiagnosisCode }},
	{"subject", func(r Record) string { return r.Subject }},
	{"classification", func(r Record) string { return r.Classification }},
	{"outcome", func(r Record) string { return string(r.Outcome) }},
	{"submission_date", func(r Record) string { return r.SubmissionDate }},
	{"object_of_request", func(r Record) string { return r.ObjectOfRequest }},
	{"classifier_tags", func(r Record) string { return r.ClassifierTags }},
	{"complementary_info", func(r Record) string { return r.ComplementaryInfo }},
	{"medication_and_supply_list", func(r Record) string { return r.MedicationAndSupplyList }},
}

// Coverage reports, per optional field, how many records carry a value.
func Coverage(records []Record) []FieldCoverage {
	out := make([]FieldCoverage, 0, len(coverageFields))
	for _, f := range coverageFields {
		c := FieldCoverage{Field: f.name}
		for _, r := range records {
			if IsKnown(f.get(r)) {
				c.Extracted++
			}
		}
		c.Missing = len(records) - c.Extracted
		if len(records) > 0 {
			c.Rate = float64(c.Extracted) / float64(len(records)) * 100
		}
		out = append(out, c)
	}
	return out
}
