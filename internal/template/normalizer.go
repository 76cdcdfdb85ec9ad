package template

import (
	"regexp"
	"strconv"
	"strings"
)

var markerRe = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// examplePool backs purely numeric markers ({{1}}, {{2}}, ...) that carry no
// naming hint to classify.
var examplePool = []string{
	"Mario Rossi",
	"mario.rossi@example.com",
	"+39 333 123 4567",
	"15/03/2025",
}

// Normalize rewrites every {{...}} marker in text to sequential positional
// form ({{1}}, {{2}}, ...) in first-occurrence order and synthesizes one
// example value per unique marker. The platform rejects templates whose
// example count does not match the positional count, so this must stay pure
// and deterministic. Running it on its own output is a no-op.
func Normalize(text string) (string, []string) {
	matches := markerRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	var order []string
	seen := map[string]bool{}
	for _, m := range matches {
		inner := m[1]
		if !seen[inner] {
			seen[inner] = true
			order = append(order, inner)
		}
	}

	position := make(map[string]int, len(order))
	examples := make([]string, 0, len(order))
	for i, inner := range order {
		position[inner] = i + 1
		examples = append(examples, exampleFor(inner, i))
	}

	// Every occurrence of a marker maps to the same positional form. A single
	// rewrite pass keeps already-positional markers from colliding with
	// freshly renumbered ones.
	positional := markerRe.ReplaceAllStringFunc(text, func(m string) string {
		inner := markerRe.FindStringSubmatch(m)[1]
		return "{{" + strconv.Itoa(position[inner]) + "}}"
	})

	return positional, examples
}

// exampleFor classifies a marker's inner content by substring heuristics and
// produces a plausible example value for it.
func exampleFor(inner string, index int) string {
	lower := strings.ToLower(inner)

	switch {
	case strings.Contains(lower, "name") || strings.Contains(lower, "nome"):
		return "Mario Rossi"
	case strings.Contains(lower, "email"):
		return "mario.rossi@example.com"
	case strings.Contains(lower, "phone") || strings.Contains(lower, "telefono"):
		return "+39 333 123 4567"
	case strings.Contains(lower, "date") || strings.Contains(lower, "data"):
		return "15/03/2025"
	case strings.Contains(lower, "amount") || strings.Contains(lower, "importo") || strings.Contains(lower, "prezzo"):
		return "€ 49,90"
	case strings.Contains(lower, "link") || strings.Contains(lower, "url"):
		return "https://example.com"
	case isNumeric(lower):
		return examplePool[index%len(examplePool)]
	default:
		return "[" + inner + "]"
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
