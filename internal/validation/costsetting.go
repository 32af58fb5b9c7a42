// Package validation holds the cost-setting validator: per-setting field and
// business rules plus cross-setting combination rules. It never mutates
// anything and never fails fast, so callers always see the complete finding
// set.
package validation

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ainur/freight-quotes/internal/model"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one validation result. SettingID is nil for findings that apply
// to the whole batch rather than a single setting.
type Finding struct {
	SettingID *uuid.UUID        `json:"setting_id,omitempty"`
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Severity  Severity          `json:"severity"`
	Context   map[string]string `json:"context,omitempty"`
}

const (
	MaxNameLength = 100
	MaxMultiplier = 10.0
	MinBaseValue  = 0.01
	MaxBaseValue  = 1_000_000.0
)

var validCategories = map[string]struct{}{
	model.CategoryBase:          {},
	model.CategoryVariable:      {},
	model.CategoryCargoSpecific: {},
}

var validTypes = map[string]struct{}{
	model.CostTypeFuel:        {},
	model.CostTypeDriver:      {},
	model.CostTypeMaintenance: {},
	model.CostTypeTime:        {},
	model.CostTypeWeight:      {},
	model.CostTypeVolume:      {},
	model.CostTypeHandling:    {},
	model.CostTypeInsurance:   {},
	model.CostTypeOverhead:    {},
	model.CostTypeToll:        {},
}

var validCurrencies = map[string]struct{}{
	"EUR": {},
	"USD": {},
	"GBP": {},
}

type typeRule struct {
	MinValue         float64
	MaxValue         float64
	RequiredCategory string
}

var typeRules = map[string]typeRule{
	model.CostTypeFuel:        {MinValue: 0.1, MaxValue: 5.0, RequiredCategory: model.CategoryVariable},
	model.CostTypeMaintenance: {MinValue: 0.05, MaxValue: 10.0, RequiredCategory: model.CategoryVariable},
	model.CostTypeTime:        {MinValue: 1.0, MaxValue: 200.0, RequiredCategory: model.CategoryVariable},
	model.CostTypeWeight:      {MinValue: 0.01, MaxValue: 1.0, RequiredCategory: model.CategoryCargoSpecific},
}

// requiredTypes must all be present among enabled settings.
var requiredTypes = []string{model.CostTypeFuel, model.CostTypeMaintenance, model.CostTypeTime}

var incompatibleTypes = map[string][]string{
	model.CostTypeWeight:    {model.CostTypeVolume},
	model.CostTypeInsurance: {model.CostTypeOverhead},
}

// ValidateSetting checks one setting against field and business rules.
func ValidateSetting(setting model.CostSetting) []Finding {
	var findings []Finding
	id := setting.ID

	switch {
	case setting.Name == "":
		findings = append(findings, finding(&id, "MISSING_NAME", "Name is required", SeverityError, nil))
	case utf8.RuneCountInString(setting.Name) > MaxNameLength:
		findings = append(findings, finding(&id, "NAME_TOO_LONG",
			fmt.Sprintf("Name must be at most %d characters", MaxNameLength), SeverityError, nil))
	}

	switch {
	case setting.Type == "":
		findings = append(findings, finding(&id, "MISSING_TYPE", "Type is required", SeverityError, nil))
	default:
		if _, ok := validTypes[setting.Type]; !ok {
			findings = append(findings, finding(&id, "INVALID_TYPE",
				fmt.Sprintf("Invalid type %q. Must be one of: %s", setting.Type, joinKeys(validTypes)), SeverityError, nil))
		}
	}

	switch {
	case setting.Category == "":
		findings = append(findings, finding(&id, "MISSING_CATEGORY", "Category is required", SeverityError, nil))
	default:
		if _, ok := validCategories[setting.Category]; !ok {
			findings = append(findings, finding(&id, "INVALID_CATEGORY",
				fmt.Sprintf("Invalid category %q. Must be one of: %s", setting.Category, joinKeys(validCategories)), SeverityError, nil))
		}
	}

	if _, ok := validCurrencies[setting.Currency]; !ok {
		findings = append(findings, finding(&id, "INVALID_CURRENCY",
			fmt.Sprintf("Invalid currency %q. Must be one of: %s", setting.Currency, joinKeys(validCurrencies)), SeverityError, nil))
	}

	findings = append(findings, validateBusinessRules(setting)...)
	return findings
}

func validateBusinessRules(setting model.CostSetting) []Finding {
	var findings []Finding
	id := setting.ID

	switch {
	case setting.BaseValue < MinBaseValue:
		findings = append(findings, finding(&id, "BASE_VALUE_TOO_LOW",
			fmt.Sprintf("Base value must be at least %.2f", MinBaseValue), SeverityError,
			map[string]string{"min_value": fmt.Sprintf("%g", MinBaseValue)}))
	case setting.BaseValue > MaxBaseValue:
		findings = append(findings, finding(&id, "BASE_VALUE_TOO_HIGH",
			fmt.Sprintf("Base value cannot exceed %.0f", MaxBaseValue), SeverityError,
			map[string]string{"max_value": fmt.Sprintf("%g", MaxBaseValue)}))
	}

	switch {
	case setting.Multiplier <= 0:
		findings = append(findings, finding(&id, "INVALID_MULTIPLIER",
			"Multiplier must be greater than 0", SeverityError, nil))
	case setting.Multiplier > MaxMultiplier:
		// A very large multiplier is suspicious but not forbidden.
		findings = append(findings, finding(&id, "MULTIPLIER_TOO_HIGH",
			fmt.Sprintf("Multiplier exceeds %.0f", MaxMultiplier), SeverityWarning, nil))
	}

	if rule, ok := typeRules[setting.Type]; ok {
		if setting.BaseValue < rule.MinValue {
			findings = append(findings, finding(&id, "TYPE_SPECIFIC_VALUE_TOO_LOW",
				fmt.Sprintf("%s base value must be at least %g", setting.Type, rule.MinValue), SeverityError,
				map[string]string{"type": setting.Type, "min_value": fmt.Sprintf("%g", rule.MinValue)}))
		}
		if setting.BaseValue > rule.MaxValue {
			findings = append(findings, finding(&id, "TYPE_SPECIFIC_VALUE_TOO_HIGH",
				fmt.Sprintf("%s base value cannot exceed %g", setting.Type, rule.MaxValue), SeverityError,
				map[string]string{"type": setting.Type, "max_value": fmt.Sprintf("%g", rule.MaxValue)}))
		}
		if setting.Category != rule.RequiredCategory {
			findings = append(findings, finding(&id, "INVALID_TYPE_CATEGORY",
				fmt.Sprintf("%s must be in category %s", setting.Type, rule.RequiredCategory), SeverityError,
				map[string]string{"type": setting.Type, "required_category": rule.RequiredCategory}))
		}
	}

	return findings
}

// ValidateCombinations checks rules that only make sense over the whole
// list: required core types, duplicates, and incompatible pairs.
func ValidateCombinations(settings []model.CostSetting) []Finding {
	var findings []Finding

	enabledTypes := make(map[string]struct{})
	for _, s := range settings {
		if s.IsEnabled {
			enabledTypes[s.Type] = struct{}{}
		}
	}
	var missing []string
	for _, required := range requiredTypes {
		if _, ok := enabledTypes[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		findings = append(findings, finding(nil, "MISSING_REQUIRED_TYPES",
			fmt.Sprintf("Missing required cost types: %s", strings.Join(missing, ", ")), SeverityError,
			map[string]string{"missing_types": strings.Join(missing, ",")}))
	}

	seen := make(map[string]struct{})
	for _, s := range settings {
		id := s.ID
		if _, dup := seen[s.Type]; dup {
			findings = append(findings, finding(&id, "DUPLICATE_TYPE",
				fmt.Sprintf("Duplicate setting type: %s", s.Type), SeverityError,
				map[string]string{"type": s.Type}))
		}
		seen[s.Type] = struct{}{}

		var conflicts []string
		for _, other := range incompatibleTypes[s.Type] {
			if _, present := seen[other]; present {
				conflicts = append(conflicts, other)
			}
		}
		for blocker, blocked := range incompatibleTypes {
			if blocker == s.Type {
				continue
			}
			if _, present := seen[blocker]; !present {
				continue
			}
			for _, b := range blocked {
				if b == s.Type {
					conflicts = append(conflicts, blocker)
				}
			}
		}
		if len(conflicts) > 0 {
			sort.Strings(conflicts)
			findings = append(findings, finding(&id, "INCOMPATIBLE_TYPES",
				fmt.Sprintf("%s cannot be used with: %s", s.Type, strings.Join(conflicts, ", ")), SeverityError,
				map[string]string{"type": s.Type, "conflicts": strings.Join(conflicts, ",")}))
		}
	}

	return findings
}

// ValidateAll runs per-setting checks for every setting plus the combination
// checks. The result is independent of input order apart from finding order.
func ValidateAll(settings []model.CostSetting) []Finding {
	var findings []Finding
	for _, s := range settings {
		findings = append(findings, ValidateSetting(s)...)
	}
	findings = append(findings, ValidateCombinations(settings)...)
	return findings
}

// Split partitions findings by severity.
func Split(findings []Finding) (errs, warnings []Finding) {
	for _, f := range findings {
		if f.Severity == SeverityWarning {
			warnings = append(warnings, f)
		} else {
			errs = append(errs, f)
		}
	}
	return errs, warnings
}

func finding(settingID *uuid.UUID, code, message string, severity Severity, context map[string]string) Finding {
	return Finding{SettingID: settingID, Code: code, Message: message, Severity: severity, Context: context}
}

func joinKeys(set map[string]struct{}) string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
