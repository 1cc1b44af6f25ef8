package extraction

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Input is the evidence available to a matcher.
type Input struct {
	Text     string
	Filename string
}

// Matcher inspects the input and returns a value when it recognizes one.
type Matcher func(in Input) (string, bool)

// Chain tries its matchers in order; the first match wins.
type Chain []Matcher

func (c Chain) Match(in Input) (string, bool) {
	for _, m := range c {
		if v, ok := m(in); ok {
			return v, true
		}
	}
	return "", false
}

// Source selects the part of the input a matcher looks at.
type Source func(in Input) string

func FullText(in Input) string { return in.Text }

func Filename(in Input) string { return in.Filename }

// FrontMatter is the first n characters of the text.
func FrontMatter(n int) Source {
	return func(in Input) string { return headRunes(in.Text, n) }
}

// Footer is the last n characters of the text.
func Footer(n int) Source {
	return func(in Input) string { return tailRunes(in.Text, n) }
}

// Pattern matches re against src and returns capture group, or the whole match for group 0.
func Pattern(re *regexp.Regexp, src Source, group int) Matcher {
	return func(in Input) (string, bool) {
		m := re.FindStringSubmatch(src(in))
		if m == nil || group >= len(m) {
			return "", false
		}
		v := strings.TrimSpace(m[group])
		return v, v != ""
	}
}

// Normalized post-processes the value of m, dropping it when fn returns "".
func Normalized(m Matcher, fn func(string) string) Matcher {
	return func(in Input) (string, bool) {
		v, ok := m(in)
		if !ok {
			return "", false
		}
		v = fn(v)
		return v, v != ""
	}
}

func headRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func tailRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	total := utf8.RuneCountInString(s)
	if total <= n {
		return s
	}
	skip := total - n
	i := 0
	for pos := range s {
		if i == skip {
			return s[pos:]
		}
		i++
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	return headRunes(s, n)
}
