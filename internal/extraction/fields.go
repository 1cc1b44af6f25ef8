package extraction

import (
	"regexp"
	"strings"
)

const (
	frontMatterChars = 2000
	footerChars      = 1000
	subjectMaxRunes  = 500
	clauseMaxChars   = 300
	requestSeparator = " | "
)

// CNJ case number: NNNNNNN-DD.AAAA.J.TR.OOOO
var caseNumberRE = regexp.MustCompile(`\d{7}-\d{2}\.\d{4}\.\d\.\d{2}\.\d{4}`)

var CaseNumber = Chain{
	Pattern(caseNumberRE, FullText, 0),
	Pattern(caseNumberRE, Filename, 0),
}

var (
	noteNumberRE     = regexp.MustCompile(`(?i)(?:Nota\s+T[ée]cnica|Parecer)(?:\s+T[ée]cnico)?\s*(?:n[º°.]?|número)?\s*(\d+(?:[./-]\d{4})?)`)
	filenameNumberRE = regexp.MustCompile(`^(\d+)\s`)
)

var NoteNumber = Chain{
	Pattern(noteNumberRE, FrontMatter(frontMatterChars), 1),
	Pattern(filenameNumberRE, Filename, 1),
}

var (
	cidLabelRE   = regexp.MustCompile(`CID(?:[\s-]*10)?\s*[:\-]?\s*([A-Z]\d{2}(?:\.?\d)?)`)
	cidSpacedRE  = regexp.MustCompile(`CID(?:[\s-]*10)?\s*[:\-]?\s*([A-Z](?:[ \t]*\d){2}(?:[ \t]*\.[ \t]*\d)?)`)
	cidDiagnosis = regexp.MustCompile(`(?i:diagn[óo]stico)[^\n]{0,120}?\b([A-Z]\d{2}(?:\.?\d)?)\b`)
)

var DiagnosisCode = Chain{
	Normalized(Pattern(cidLabelRE, FullText, 1), normalizeCode),
	Normalized(Pattern(cidSpacedRE, FullText, 1), normalizeCode),
	Normalized(Pattern(cidDiagnosis, FullText, 1), normalizeCode),
}

func normalizeCode(v string) string {
	return strings.ToUpper(strings.Join(strings.Fields(v), ""))
}

var (
	subjectLabelRE = regexp.MustCompile(`(?i)assunto\s*[:\-]\s*`)
	// A section heading is one of the known titles at the start of a line.
	sectionHeadingRE = regexp.MustCompile(`(?i)\n[ \t]*(?:\d+(?:\.\d+)*[.)]?[ \t]*)?(?:cid\b|diagn[óo]stico|processo\b|paciente|requerente|requerido|interessad[oa]|solicitante|solicita[çc][ãa]o|relat[óo]rio|hist[óo]rico|an[áa]lise|fundamenta[çc][ãa]o|discuss[ãa]o|conclus[ãa]o|conclus[õo]es|parecer\b|nota\s+t[ée]cnica|data\b|objeto\b|quesitos?\b|respostas?\b|refer[êe]ncias)`)
)

// Subject captures the text after "Assunto:" up to the next section heading.
func Subject(in Input) (string, bool) {
	loc := subjectLabelRE.FindStringIndex(in.Text)
	if loc == nil {
		return "", false
	}
	rest := in.Text[loc[1]:]
	if h := sectionHeadingRE.FindStringIndex(rest); h != nil {
		rest = rest[:h[0]]
	}
	v := truncateRunes(collapseSpace(rest), subjectMaxRunes)
	return v, v != ""
}

// requestTerms is the vocabulary that introduces the object of a request.
var requestTerms = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bsolicita(?:[çc][ãa]o|[çc][õo]es|do|da)?\b`),
	regexp.MustCompile(`(?i)\brequer(?:e|imento)?\b`),
	regexp.MustCompile(`(?i)\bprescri[çc][ãa]o\b`),
	regexp.MustCompile(`(?i)\bmedicamentos?\b`),
	regexp.MustCompile(`(?i)\bprocedimentos?\b`),
}

var clauseRE = regexp.MustCompile(`^[\s:\-–]*([^.;!?]+)`)

// ObjectOfRequest accumulates the clause that follows each vocabulary term.
func ObjectOfRequest(in Input) (string, bool) {
	var found []string
	for _, term := range requestTerms {
		loc := term.FindStringIndex(in.Text)
		if loc == nil {
			continue
		}
		m := clauseRE.FindStringSubmatch(in.Text[loc[1]:])
		if m == nil {
			continue
		}
		clause := truncateRunes(collapseSpace(m[1]), clauseMaxChars)
		if len([]rune(clause)) < 3 {
			continue
		}
		found = addDistinct(found, clause)
	}
	if len(found) == 0 {
		return "", false
	}
	return strings.Join(found, requestSeparator), true
}

// addDistinct appends v unless an existing entry already contains it, and
// drops entries that v contains.
func addDistinct(list []string, v string) []string {
	lv := strings.ToLower(v)
	kept := make([]string, 0, len(list)+1)
	for _, e := range list {
		le := strings.ToLower(e)
		if strings.Contains(le, lv) {
			return list
		}
		if !strings.Contains(lv, le) {
			kept = append(kept, e)
		}
	}
	return append(kept, v)
}
