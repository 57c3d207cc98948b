package classify

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/riskwatch/riskwatch/internal/logger"
)

var log = logger.ForComponent("classify")

const (
	vendorsFile      = "vendors.csv"
	aliasesFile      = "vendor_aliases.json"
	riskTypesFile    = "risk_types.json"
	riskKeywordsFile = "risk_keywords.json"
	riskModelFile    = "risk_model.json"
)

// Model drives the primary-risk scoring pass: per-risk weights, a precedence
// order for tie-breaking, and severity keyword boosts applied across the
// board.
type Model struct {
	Precedence      []string            `json:"precedence"`
	Weights         map[string]float64  `json:"weights"`
	SeverityBoost   map[string][]string `json:"severity_boost"`
	SeverityWeights map[string]float64  `json:"severity_weights"`
}

// RuleSet is the classifier configuration, loaded from a config directory
// with built-in defaults for anything missing.
type RuleSet struct {
	Vendors      []string
	Aliases      map[string][]string
	RiskTypes    []string
	RiskKeywords map[string][]string
	Model        Model
}

// HasReclassifyConfig reports whether the directory carries the keyword rules
// the full reclassify pass needs. The pipeline skips the pass otherwise.
func HasReclassifyConfig(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, riskKeywordsFile))
	return err == nil
}

// HasPrimaryConfig reports whether the directory carries a scoring model for
// the primary-risk pass.
func HasPrimaryConfig(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, riskModelFile))
	return err == nil
}

// LoadRuleSet reads the classifier configuration from dir. Each file is
// optional; defaults cover whatever is absent.
func LoadRuleSet(dir string) (*RuleSet, error) {
	rules := defaultRuleSet()

	if dir == "" {
		return rules, nil
	}

	vendors, err := loadVendorsCSV(filepath.Join(dir, vendorsFile))
	if err != nil {
		return nil, err
	}
	if len(vendors) > 0 {
		rules.Vendors = vendors
	}

	if err := loadJSONIfPresent(filepath.Join(dir, aliasesFile), &rules.Aliases); err != nil {
		return nil, err
	}

	var riskTypes struct {
		Risks []string `json:"risks"`
	}
	if err := loadJSONIfPresent(filepath.Join(dir, riskTypesFile), &riskTypes); err != nil {
		return nil, err
	}
	if len(riskTypes.Risks) > 0 {
		rules.RiskTypes = riskTypes.Risks
	}

	keywords := map[string][]string{}
	if err := loadJSONIfPresent(filepath.Join(dir, riskKeywordsFile), &keywords); err != nil {
		return nil, err
	}
	if len(keywords) > 0 {
		rules.RiskKeywords = keywords
	}

	var model Model
	if err := loadJSONIfPresent(filepath.Join(dir, riskModelFile), &model); err != nil {
		return nil, err
	}
	if model.Weights != nil || len(model.Precedence) > 0 {
		rules.Model = model
	}

	return rules, nil
}

func loadVendorsCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	// First column by default; a "vendor" header column wins.
	col := 0
	start := 0
	for i, name := range records[0] {
		if strings.EqualFold(strings.TrimSpace(name), "vendor") {
			col = i
			start = 1
			break
		}
	}
	if start == 0 && looksLikeHeader(records[0][col]) {
		start = 1
	}

	var vendors []string
	for _, record := range records[start:] {
		if col >= len(record) {
			continue
		}
		v := strings.TrimSpace(record[col])
		if v != "" {
			vendors = append(vendors, v)
		}
	}

	return vendors, nil
}

func looksLikeHeader(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "vendor" || s == "name" || s == "company"
}

func loadJSONIfPresent(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// CanonicalVendor resolves an alias to its canonical vendor name.
func (r *RuleSet) CanonicalVendor(name string) string {
	for canonical, aliases := range r.Aliases {
		if strings.EqualFold(name, canonical) {
			return canonical
		}
		for _, alias := range aliases {
			if strings.EqualFold(name, alias) {
				return canonical
			}
		}
	}
	return name
}

func (r *RuleSet) hasRisk(name string) bool {
	for _, risk := range r.RiskTypes {
		if risk == name {
			return true
		}
	}
	return false
}
