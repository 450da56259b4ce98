// Package classify sorts unreferenced files into removal-risk tiers.
//
// Rules are an ordered list evaluated first-match-wins. The last rule matches
// everything, so every file lands in exactly one tier.
package classify

import (
	"path"
	"sort"
	"strings"
)

// Tier is a removal-risk bucket.
type Tier string

const (
	SafeToRemove           Tier = "safe_to_remove"
	PotentialFalsePositive Tier = "potential_false_positive"
	KeepForReference       Tier = "keep_for_reference"
	ReviewRequired         Tier = "review_required"
)

// Tiers lists every tier in rule priority order.
var Tiers = []Tier{SafeToRemove, PotentialFalsePositive, KeepForReference, ReviewRequired}

// Rule assigns Tier to files for which Match returns true.
type Rule struct {
	Name  string
	Tier  Tier
	Match func(file string) bool
}

// DefaultRules is the ordered rule list used by Classify.
var DefaultRules = []Rule{
	{Name: "consolidated or performance tests", Tier: SafeToRemove, Match: hasPrefix("tests-consolidated/", "tests/performance/")},
	{Name: "test file suffix", Tier: SafeToRemove, Match: hasSuffix("-test.nix")},
	{Name: "backup artifact", Tier: SafeToRemove, Match: isBackup},
	{Name: "temporary artifact", Tier: SafeToRemove, Match: isTemporary},
	{Name: "obsolete library", Tier: SafeToRemove, Match: isObsoleteLibrary},
	{Name: "bootstrap file", Tier: PotentialFalsePositive, Match: isBootstrap},
	{Name: "config path", Tier: PotentialFalsePositive, Match: contains("config")},
	{Name: "overlay", Tier: PotentialFalsePositive, Match: hasPrefix("overlays/")},
	{Name: "reference material", Tier: KeepForReference, Match: contains("example", "template", "documentation")},
	{Name: "default", Tier: ReviewRequired, Match: func(string) bool { return true }},
}

// Classify returns the tier of the first rule in DefaultRules matching file.
func Classify(file string) Tier {
	tier, _ := ClassifyWith(DefaultRules, file)
	return tier
}

// ClassifyWith evaluates rules in order and returns the first match along
// with the rule's name. A file matching no rule is ReviewRequired.
func ClassifyWith(rules []Rule, file string) (Tier, string) {
	for _, r := range rules {
		if r.Match(file) {
			return r.Tier, r.Name
		}
	}
	return ReviewRequired, ""
}

// Partition splits files into tiers. Every tier is present in the result and
// each list is sorted and non-nil.
func Partition(files []string) map[Tier][]string {
	out := make(map[Tier][]string, len(Tiers))
	for _, t := range Tiers {
		out[t] = []string{}
	}
	for _, f := range files {
		t := Classify(f)
		out[t] = append(out[t], f)
	}
	for _, t := range Tiers {
		sort.Strings(out[t])
	}
	return out
}

func hasPrefix(prefixes ...string) func(string) bool {
	return func(file string) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(file, p) {
				return true
			}
		}
		return false
	}
}

func hasSuffix(suffixes ...string) func(string) bool {
	return func(file string) bool {
		for _, s := range suffixes {
			if strings.HasSuffix(file, s) {
				return true
			}
		}
		return false
	}
}

// contains matches the lowercased path against each word.
func contains(words ...string) func(string) bool {
	return func(file string) bool {
		lower := strings.ToLower(file)
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}
}

func isBackup(file string) bool {
	return contains("backup")(file) || hasSuffix(".bak.nix", ".orig.nix", "~")(file)
}

// temporaryTokens must appear as a whole path token; "template" is not a
// temporary file.
var temporaryTokens = map[string]bool{"temp": true, "tmp": true, "temporary": true}

func isTemporary(file string) bool {
	for _, tok := range tokens(file) {
		if temporaryTokens[tok] {
			return true
		}
	}
	return false
}

// tokens splits the lowercased path on every non-alphanumeric rune.
func tokens(file string) []string {
	return strings.FieldsFunc(strings.ToLower(file), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

func isObsoleteLibrary(file string) bool {
	return strings.HasPrefix(file, "lib/auto-update-") || file == "lib/existing-tests.nix"
}

func isBootstrap(file string) bool {
	return path.Base(file) == "default.nix"
}
