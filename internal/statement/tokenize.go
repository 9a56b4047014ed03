package statement

import "strings"

// Tokenize splits one statement line into its fields. Descriptions are
// frequently double-quoted and contain embedded commas, so a plain split
// breaks them apart; runs of fragments belonging to one quoted field are
// re-merged before unquoting.
func Tokenize(line string) []string {
	parts := strings.Split(line, ",")

	var fields []string
	for i := 0; i < len(parts); i++ {
		p := parts[i]
		if !opensQuote(p) {
			fields = append(fields, unquote(p))
			continue
		}

		// Accumulate fragments until one closes the quote.
		merged := p
		for i+1 < len(parts) {
			i++
			merged += "," + parts[i]
			if closesQuote(parts[i]) {
				break
			}
		}
		fields = append(fields, unquote(merged))
	}
	return fields
}

// opensQuote reports whether a fragment starts a quoted field without
// finishing it.
func opensQuote(s string) bool {
	if !strings.HasPrefix(s, `"`) {
		return false
	}
	return len(s) == 1 || !strings.HasSuffix(s, `"`)
}

// closesQuote reports whether a fragment ends a quoted field started earlier.
func closesQuote(s string) bool {
	return !strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`)
}

// unquote strips surrounding double quotes and collapses escaped quotes.
func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
	}
	return strings.ReplaceAll(s, `""`, `"`)
}
