package locator

import "regexp"

// DefaultWeight is assigned to paths that match no rule.
const DefaultWeight = 10

// Rule assigns Weight to paths matching Pattern.
type Rule struct {
	Pattern *regexp.Regexp
	Weight  int
}

// DefaultRules prefers system-wide installs over per-user ones, canary over
// stable within the same location, and penalizes mounted volumes.
func DefaultRules(home string) []Rule {
	rules := []Rule{}
	if home != "" {
		h := regexp.QuoteMeta(home)
		rules = append(rules,
			Rule{regexp.MustCompile(`^` + h + `/Applications/.*Chrome\.app`), 50},
			Rule{regexp.MustCompile(`^` + h + `/Applications/.*Chrome Canary\.app`), 51},
		)
	}
	return append(rules,
		Rule{regexp.MustCompile(`^/Applications/.*Chrome\.app`), 100},
		Rule{regexp.MustCompile(`^/Applications/.*Chrome Canary\.app`), 101},
		Rule{regexp.MustCompile(`^/Volumes/.*Chrome\.app`), -2},
		Rule{regexp.MustCompile(`^/Volumes/.*Chrome Canary\.app`), -1},
	)
}

// Score returns the weight of the first rule matching path, or DefaultWeight.
func Score(rules []Rule, path string) int {
	for _, r := range rules {
		if r.Pattern.MatchString(path) {
			return r.Weight
		}
	}
	return DefaultWeight
}
