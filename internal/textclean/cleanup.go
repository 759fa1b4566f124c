// Package textclean post-processes generated text. Generative backends
// occasionally prepend commentary, labels, or quoting despite explicit
// instructions not to; these heuristics strip such artifacts
// deterministically.
package textclean

import "strings"

// quotePairs are the wrapping quote characters stripped as a matched
// pair, straight and typographic.
var quotePairs = [][2]string{
	{`"`, `"`},
	{`'`, `'`},
	{"“", "”"}, // “ ”
	{"‘", "’"}, // ‘ ’
	{"«", "»"}, // « »
	{"„", "“"}, // „ “
	{"`", "`"},
}

// labels are recognized leading labels, matched case-insensitively and
// followed by a colon.
var labels = []string{
	"answer",
	"result",
	"translation",
	"translated text",
	"output",
	"response",
	"ответ",
	"результат",
	"перевод",
	"réponse",
	"antwort",
	"respuesta",
}

// Clean normalizes a model result against the source content it was
// derived from. The steps are order-sensitive; truncation can re-expose
// wrapping artifacts, so quote and label stripping runs a second time at
// the end.
func Clean(result, source string) string {
	s := strings.TrimSpace(result)
	s = stripWrappingQuotes(s)
	s = stripLeadingLabel(s)

	sourceLines := nonEmptyLines(source)
	resultLines := nonEmptyLines(s)

	switch {
	case len(sourceLines) <= 1 && len(resultLines) > 1:
		// Single-line source must yield a single-line result.
		s = resultLines[0]
	case len(sourceLines) > 1 && len(resultLines) > 2*len(sourceLines):
		s = strings.Join(resultLines[:len(sourceLines)], "\n")
	}

	if source != "" && len(s) > 3*len(source) {
		s = firstLineOrSentence(s)
	}

	s = stripWrappingQuotes(strings.TrimSpace(s))
	s = stripLeadingLabel(s)
	return strings.TrimSpace(s)
}

func stripWrappingQuotes(s string) string {
	for _, pair := range quotePairs {
		if len(s) > len(pair[0])+len(pair[1]) &&
			strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) {
			return strings.TrimSpace(s[len(pair[0]) : len(s)-len(pair[1])])
		}
	}
	return s
}

func stripLeadingLabel(s string) string {
	lower := strings.ToLower(s)
	for _, label := range labels {
		if strings.HasPrefix(lower, label) {
			rest := s[len(label):]
			if strings.HasPrefix(rest, ":") {
				return strings.TrimSpace(rest[1:])
			}
		}
	}
	return s
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func firstLineOrSentence(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}
