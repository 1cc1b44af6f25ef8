package extraction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// months maps Portuguese month names to their number. "marco" covers text
// where the cedilla was lost in extraction.
var months = map[string]time.Month{
	"janeiro":   time.January,
	"fevereiro": time.February,
	"março":     time.March,
	"marco":     time.March,
	"abril":     time.April,
	"maio":      time.May,
	"junho":     time.June,
	"julho":     time.July,
	"agosto":    time.August,
	"setembro":  time.September,
	"outubro":   time.October,
	"novembro":  time.November,
	"dezembro":  time.December,
}

// MonthNumber looks up a Portuguese month name, ignoring case.
func MonthNumber(name string) (time.Month, bool) {
	m, ok := months[strings.ToLower(strings.TrimSpace(name))]
	return m, ok
}

// "<City>[-UF], <d> de <mês> de <yyyy>". Goiânia tolerates a missing comma.
var datePhraseRE = regexp.MustCompile(
	`(?:(?i:goi[âa]nia)(?:[ \t]*-[ \t]*GO)?[ \t]*,?|\p{Lu}\p{L}+(?:[ \t]+(?:d[aeo]s?[ \t]+)?\p{Lu}\p{L}+){0,3}(?:[ \t]*[-/][ \t]*[A-Z]{2})?[ \t]*,)` +
		`\s*(\d{1,2})[º°]?\s*(?i:de)\s*(\p{L}+?)\s*(?i:de)\s*(\d{4})`)

var dateValueRE = regexp.MustCompile(`(\d{1,2})[º°]?\s*(?i:de)\s*(\p{L}+?)\s*(?i:de)\s*(\d{4})`)

// citationWords name legal instruments, not places. "Lei, 19 de setembro de
// 1990" cites a statute and is never a submission date.
var citationWords = map[string]bool{
	"lei":          true,
	"leis":         true,
	"constituição": true,
	"constituicao": true,
	"federal":      true,
	"decreto":      true,
	"portaria":     true,
	"resolução":    true,
	"resolucao":    true,
	"emenda":       true,
	"súmula":       true,
	"sumula":       true,
	"provimento":   true,
}

func isCitation(match string) bool {
	place, _, _ := strings.Cut(match, ",")
	for _, w := range strings.Fields(place) {
		if citationWords[strings.ToLower(w)] {
			return true
		}
	}
	return false
}

// SubmissionDate returns the last dated location phrase of the text as
// "<d> de <mês> de <yyyy>". The last phrase is authoritative; when its month is
// not recognized the field stays unset. Statute citations are skipped.
func SubmissionDate(in Input) (string, bool) {
	all := datePhraseRE.FindAllStringSubmatch(in.Text, -1)
	var m []string
	for i := len(all) - 1; i >= 0; i-- {
		if !isCitation(all[i][0]) {
			m = all[i]
			break
		}
	}
	if m == nil {
		return "", false
	}
	phrase := fmt.Sprintf("%s de %s de %s", m[1], strings.ToLower(m[2]), m[3])
	if _, ok := NormalizeDate(phrase); !ok {
		return "", false
	}
	return phrase, true
}

// NormalizeDate converts "10 de janeiro de 2025" into "2025-01-10".
func NormalizeDate(phrase string) (string, bool) {
	m := dateValueRE.FindStringSubmatch(phrase)
	if m == nil {
		return "", false
	}
	month, ok := MonthNumber(m[2])
	if !ok {
		return "", false
	}
	day, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[3])
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return "", false
	}
	return t.Format(time.DateOnly), true
}
