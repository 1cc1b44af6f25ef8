package extraction

import "regexp"

const conclusionMaxRunes = 4000

var (
	conclusionHeadingRE = regexp.MustCompile(`(?im)^[ \t]*(?:\d+(?:\.\d+)*[.)]?[ \t]*|[IVX]+[ \t]*[-.)][ \t]*)?(?:conclus[ãa]o|conclus[õo]es|parecer[ \t]+conclusivo)\b`)

	partiallyRE   = regexp.MustCompile(`(?i)parcialmente\s+favor[áa]vel`)
	unfavorableRE = regexp.MustCompile(`(?i)\bdesfavor[áa]vel|\bn[ãa]o\s+favor[áa]vel`)
	favorableRE   = regexp.MustCompile(`(?i)\bfavor[áa]vel`)
)

// OutcomeResult distinguishes an explicit conclusion from the trailing-text guess.
type OutcomeResult struct {
	Outcome  Outcome
	Inferred bool
}

// ClassifyOutcome reads the conclusion section when there is one. Partially
// favorable beats unfavorable, which beats favorable; a section with none of
// them is inconclusive. Without a section only the footer is scanned for a
// bare "favorável", and such a result is marked inferred.
func ClassifyOutcome(text string) OutcomeResult {
	if section, ok := conclusionSection(text); ok {
		return OutcomeResult{Outcome: classifySection(section)}
	}
	// A negated mention ("não favorável") in the footer also matches here.
	if favorableRE.MatchString(tailRunes(text, footerChars)) {
		return OutcomeResult{Outcome: OutcomeFavorable, Inferred: true}
	}
	return OutcomeResult{Outcome: OutcomeUnknown}
}

func conclusionSection(text string) (string, bool) {
	all := conclusionHeadingRE.FindAllStringIndex(text, -1)
	if len(all) == 0 {
		return "", false
	}
	last := all[len(all)-1]
	return headRunes(text[last[0]:], conclusionMaxRunes), true
}

func classifySection(section string) Outcome {
	switch {
	case partiallyRE.MatchString(section):
		return OutcomePartiallyFavorable
	case unfavorableRE.MatchString(section):
		return OutcomeUnfavorable
	case favorableRE.MatchString(section):
		return OutcomeFavorable
	default:
		return OutcomeInconclusive
	}
}
