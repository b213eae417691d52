package engine

import "regexp"

// Redaction masks applied to texts before they enter the audit log.
var piiPatterns = []struct {
	rx   *regexp.Regexp
	mask string
}{
	{regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`), "<EMAIL>"},
	{regexp.MustCompile(`\b\d{10,16}\b`), "<NUMBER>"},
}

// Redact masks email addresses and long digit runs (card/account numbers).
func Redact(s string) string {
	for _, p := range piiPatterns {
		s = p.rx.ReplaceAllString(s, p.mask)
	}
	return s
}
