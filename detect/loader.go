package detect

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"argus/core"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// maxRuleFileSize guards against accidentally loading huge files.
const maxRuleFileSize = 10 * 1024 * 1024 // 10MB

var ruleValidator = validator.New()

// LoadRules loads detection rules from a YAML or JSON rule file. JSON files
// are optionally validated against a rules_schema.json placed next to them.
// Rules with invalid regex conditions are logged and skipped rather than
// failing the whole file; structurally invalid rules fail the load.
func LoadRules(filename string, logger *zap.SugaredLogger) ([]core.DetectionRule, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to stat rules file: %w", err)
	}
	if info.Size() > maxRuleFileSize {
		return nil, fmt.Errorf("rules file exceeds maximum size of %d bytes", maxRuleFileSize)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	isYAML := strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml")

	// Validate against JSON schema when one ships alongside the rule file
	if !isYAML {
		if err := validateAgainstSchema(filename, data, logger); err != nil {
			return nil, err
		}
	}

	var ruleSet core.RuleSet
	if isYAML {
		err = yaml.Unmarshal(data, &ruleSet)
	} else {
		err = json.Unmarshal(data, &ruleSet)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal rules: %w", err)
	}

	valid := make([]core.DetectionRule, 0, len(ruleSet.Rules))
	for _, rule := range ruleSet.Rules {
		if err := ruleValidator.Struct(rule); err != nil {
			return nil, fmt.Errorf("rule %s failed validation: %w", rule.ID, err)
		}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("rule validation failed: %w", err)
		}
		if len(rule.Conditions) == 0 {
			logger.Warnf("Rule %s has no conditions and will never match", rule.ID)
		}
		if !compileRegexConditions(rule, logger) {
			continue
		}
		valid = append(valid, rule)
	}

	logger.Infof("Loaded %d rules from %s", len(valid), filename)
	return valid, nil
}

// compileRegexConditions pre-validates every regex condition in the rule.
// Rules carrying a broken pattern are skipped so one bad rule cannot poison
// the engine.
func compileRegexConditions(rule core.DetectionRule, logger *zap.SugaredLogger) bool {
	for i, cond := range rule.Conditions {
		if cond.Operator != core.OperatorRegex {
			continue
		}
		pattern, ok := cond.Value.AsString()
		if !ok {
			logger.Errorf("Rule %s condition %d: regex operator requires a string value, skipping rule", rule.ID, i)
			return false
		}
		if err := ValidatePattern(pattern); err != nil {
			logger.Errorf("Invalid regex pattern in rule %s condition %d: %v, skipping rule", rule.ID, i, err)
			return false
		}
	}
	return true
}

// validateAgainstSchema validates JSON rule files against a sibling
// rules_schema.json, if present.
func validateAgainstSchema(filename string, data []byte, logger *zap.SugaredLogger) error {
	schemaFilename := filepath.Join(filepath.Dir(filename), "rules_schema.json")
	schemaData, err := os.ReadFile(schemaFilename)
	if err != nil {
		logger.Warnf("Schema file not found, skipping validation: %v", err)
		return nil
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaData)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate rules against schema: %w", err)
	}
	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return fmt.Errorf("rules validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
