package classify

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var caseFolder = cases.Fold()

// Fold normalizes text for matching: Unicode NFC plus case folding, so feed
// titles with odd widths or casings still hit the keyword patterns.
func Fold(s string) string {
	return caseFolder.String(norm.NFC.String(s))
}

type vendorPattern struct {
	canonical string
	pattern   *regexp.Regexp
}

// Classifier matches vendors and risk types against event text. All matching
// runs over folded text with case-insensitive patterns.
type Classifier struct {
	rules      *RuleSet
	vendorPats []vendorPattern
	riskPats   map[string]*regexp.Regexp
	tagPats    []tagPattern
}

type tagPattern struct {
	re       *regexp.Regexp
	riskType string
	severity string
}

func New(rules *RuleSet) (*Classifier, error) {
	c := &Classifier{
		rules:    rules,
		riskPats: make(map[string]*regexp.Regexp),
	}

	for _, canonical := range rules.Vendors {
		names := append([]string{canonical}, rules.Aliases[canonical]...)
		var subs []string
		for _, name := range names {
			tokens := strings.FieldsFunc(name, func(r rune) bool {
				return r == ' ' || r == '-' || r == '.'
			})
			if len(tokens) == 0 {
				continue
			}
			escaped := make([]string, len(tokens))
			for i, tok := range tokens {
				escaped[i] = regexp.QuoteMeta(tok)
			}
			subs = append(subs, `\b`+strings.Join(escaped, `[\s\-.]+`)+`\b`)
		}
		if len(subs) == 0 {
			continue
		}

		re, err := regexp.Compile(`(?i)` + strings.Join(subs, "|"))
		if err != nil {
			return nil, fmt.Errorf("vendor pattern %s: %w", canonical, err)
		}
		c.vendorPats = append(c.vendorPats, vendorPattern{canonical: canonical, pattern: re})
	}

	for risk, keywords := range rules.RiskKeywords {
		var trimmed []string
		for _, kw := range keywords {
			if kw = strings.TrimSpace(kw); kw != "" {
				trimmed = append(trimmed, regexp.QuoteMeta(Fold(kw)))
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		re, err := regexp.Compile(`(?i)` + strings.Join(trimmed, "|"))
		if err != nil {
			return nil, fmt.Errorf("risk pattern %s: %w", risk, err)
		}
		c.riskPats[risk] = re
	}

	for _, rule := range defaultTagRules() {
		re, err := regexp.Compile(`(?i)` + rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("tag pattern %q: %w", rule.Pattern, err)
		}
		c.tagPats = append(c.tagPats, tagPattern{re: re, riskType: rule.RiskType, severity: rule.Severity})
	}

	return c, nil
}

// Vendors returns every canonical vendor matched in the text, in the order of
// the configured vendor list.
func (c *Classifier) Vendors(text string) []string {
	folded := Fold(text)

	var matched []string
	for _, vp := range c.vendorPats {
		if vp.pattern.MatchString(folded) {
			matched = append(matched, vp.canonical)
		}
	}
	return matched
}

// PrimaryVendor returns the first configured vendor matched in the text, or
// empty when none match.
func (c *Classifier) PrimaryVendor(text string) string {
	folded := Fold(text)
	for _, vp := range c.vendorPats {
		if vp.pattern.MatchString(folded) {
			return vp.canonical
		}
	}
	return ""
}

// Risks returns every risk type triggered by the text, with the heuristic
// boosts and defaulting rules applied: a vendor-only match defaults to
// "vendor", and nothing is ever left without a risk while "unclassified" is
// configured.
func (c *Classifier) Risks(text string, vendorMatched bool) []string {
	folded := Fold(text)

	var risks []string
	seen := map[string]bool{}
	add := func(risk string) {
		if risk != "" && !seen[risk] && c.rules.hasRisk(risk) {
			seen[risk] = true
			risks = append(risks, risk)
		}
	}

	for _, risk := range c.rules.RiskTypes {
		if re, ok := c.riskPats[risk]; ok && re.MatchString(folded) {
			add(risk)
		}
	}

	if containsAny(folded, "tariff", "export control", "sanction", "embargo") {
		add("geopolitical")
		add("regulatory")
	}
	if containsAny(folded, "shutdown", "halt production", "line down", "fab outage", "blackout", "power outage") {
		add("capacity")
	}
	if containsAny(folded, "strike", "walkout", "layoff") {
		add("workforce")
	}

	if len(risks) == 0 && vendorMatched {
		add("vendor")
	}
	if len(risks) == 0 {
		add("unclassified")
	}

	return risks
}

// Tag applies the lightweight category table and returns the first matching
// risk type and severity, or empty strings when nothing matches.
func (c *Classifier) Tag(text string) (riskType, severity string) {
	folded := Fold(text)
	for _, tp := range c.tagPats {
		if tp.re.MatchString(folded) {
			return tp.riskType, tp.severity
		}
	}
	return "", ""
}

// Primary scores every keyword-backed risk and picks a single primary one,
// breaking ties by the model's precedence order. Fallbacks mirror the risk
// defaulting: obvious geopolitical phrases, then vendor, then unclassified.
func (c *Classifier) Primary(text string, vendorMatched bool) (string, float64) {
	folded := Fold(text)
	model := c.rules.Model

	scores := make(map[string]float64, len(c.riskPats))
	for risk, re := range c.riskPats {
		if re.MatchString(folded) {
			scores[risk] += model.Weights[risk]
		}
	}

	if containsAny(folded, foldAll(model.SeverityBoost["major"])...) {
		for risk := range scores {
			scores[risk] += model.SeverityWeights["major"]
		}
	} else if containsAny(folded, foldAll(model.SeverityBoost["minor"])...) {
		for risk := range scores {
			scores[risk] += model.SeverityWeights["minor"]
		}
	}

	risk, score := pickPrimary(scores, model.Precedence)

	if risk == "unclassified" {
		switch {
		case containsAny(folded, "tariff", "export control", "sanction", "embargo"):
			risk = "geopolitical"
			if score < 0.6 {
				score = 0.6
			}
		case vendorMatched:
			risk = "vendor"
			if score < 0.4 {
				score = 0.4
			}
		}
	}

	return risk, score
}

func pickPrimary(scores map[string]float64, precedence []string) (string, float64) {
	best := 0.0
	for _, v := range scores {
		if v > best {
			best = v
		}
	}
	if best <= 0 {
		return "unclassified", 0
	}

	var tied []string
	for risk, v := range scores {
		if v == best {
			tied = append(tied, risk)
		}
	}

	for _, risk := range precedence {
		for _, t := range tied {
			if t == risk {
				return risk, best
			}
		}
	}

	// No precedence entry covers the tie; fall back to a stable choice.
	min := tied[0]
	for _, t := range tied[1:] {
		if t < min {
			min = t
		}
	}
	return min, best
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func foldAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = Fold(w)
	}
	return out
}
