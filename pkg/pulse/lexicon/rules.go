package lexicon

import "strings"

// minRuleLength keeps short words (bus, gas, yes) away from the suffix rules.
const minRuleLength = 4

// applySuffixRules reduces a regular English plural to its singular form.
// Every rule strictly shortens the token.
func applySuffixRules(token string) string {
	if len(token) < minRuleLength || !strings.HasSuffix(token, "s") {
		return token
	}

	switch {
	case strings.HasSuffix(token, "ss"),
		strings.HasSuffix(token, "us"),
		strings.HasSuffix(token, "is"),
		strings.HasSuffix(token, "ous"):
		return token
	case strings.HasSuffix(token, "sses"):
		return strings.TrimSuffix(token, "es")
	case strings.HasSuffix(token, "ies") && len(token) > 4:
		return strings.TrimSuffix(token, "ies") + "y"
	case strings.HasSuffix(token, "xes"),
		strings.HasSuffix(token, "ches"),
		strings.HasSuffix(token, "shes"),
		strings.HasSuffix(token, "oes"):
		return strings.TrimSuffix(token, "es")
	}
	return strings.TrimSuffix(token, "s")
}
