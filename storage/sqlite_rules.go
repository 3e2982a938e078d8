package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"argus/core"

	"go.uber.org/zap"
)

// SQLiteRuleStorage handles detection rule persistence in SQLite. The engine
// itself only ever reads the in-memory RuleStore; this adapter exists so a
// deployment can survive restarts by rehydrating the store at startup.
type SQLiteRuleStorage struct {
	sqlite *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteRuleStorage creates a new SQLite rule storage handler.
func NewSQLiteRuleStorage(sqlite *SQLite, logger *zap.SugaredLogger) *SQLiteRuleStorage {
	return &SQLiteRuleStorage{
		sqlite: sqlite,
		logger: logger,
	}
}

// ruleColumns is the column list shared by all rule queries.
const ruleColumns = `id, name, description, enabled, priority, conditions, actions,
	author, tags, mitre_tactics, mitre_techniques, rule_references, created_at, updated_at`

// SaveRule inserts or replaces a rule.
func (srs *SQLiteRuleStorage) SaveRule(rule *core.DetectionRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}
	actions, err := json.Marshal(rule.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}
	tags, err := json.Marshal(rule.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	tactics, err := json.Marshal(rule.MitreTactics)
	if err != nil {
		return fmt.Errorf("failed to marshal mitre tactics: %w", err)
	}
	techniques, err := json.Marshal(rule.MitreTechniques)
	if err != nil {
		return fmt.Errorf("failed to marshal mitre techniques: %w", err)
	}
	references, err := json.Marshal(rule.References)
	if err != nil {
		return fmt.Errorf("failed to marshal references: %w", err)
	}

	now := time.Now().UTC()
	createdAt := rule.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	query := `
		INSERT INTO rules (` + ruleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			enabled = excluded.enabled,
			priority = excluded.priority,
			conditions = excluded.conditions,
			actions = excluded.actions,
			author = excluded.author,
			tags = excluded.tags,
			mitre_tactics = excluded.mitre_tactics,
			mitre_techniques = excluded.mitre_techniques,
			rule_references = excluded.rule_references,
			updated_at = excluded.updated_at
	`
	db, err := srs.sqlite.conn()
	if err != nil {
		return err
	}
	_, err = db.Exec(query,
		rule.ID, rule.Name, rule.Description, rule.Enabled, rule.Priority,
		string(conditions), string(actions), rule.Author, string(tags),
		string(tactics), string(techniques), string(references), createdAt, now)
	if err != nil {
		return fmt.Errorf("failed to save rule %s: %w", rule.ID, err)
	}
	return nil
}

// GetRule retrieves a single rule by ID. Returns ErrRuleNotFound if absent.
func (srs *SQLiteRuleStorage) GetRule(id string) (*core.DetectionRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE id = ?`

	db, err := srs.sqlite.conn()
	if err != nil {
		return nil, err
	}
	row := db.QueryRow(query, id)
	rule, err := srs.scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to get rule %s: %w", id, err)
	}
	return rule, nil
}

// GetAllRules retrieves all persisted rules ordered by creation time.
func (srs *SQLiteRuleStorage) GetAllRules() ([]core.DetectionRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules ORDER BY created_at DESC`

	db, err := srs.sqlite.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []core.DetectionRule
	for rows.Next() {
		rule, err := srs.scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}
	return rules, nil
}

// DeleteRule removes a rule by ID. Returns ErrRuleNotFound if absent.
func (srs *SQLiteRuleStorage) DeleteRule(id string) error {
	db, err := srs.sqlite.conn()
	if err != nil {
		return err
	}
	result, err := db.Exec("DELETE FROM rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete rule %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// GetRuleCount returns the total number of persisted rules.
func (srs *SQLiteRuleStorage) GetRuleCount() (int64, error) {
	db, err := srs.sqlite.conn()
	if err != nil {
		return 0, err
	}
	var count int64
	err = db.QueryRow("SELECT COUNT(*) FROM rules").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count rules: %w", err)
	}
	return count, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanRule.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanRule decodes one rules table row into a DetectionRule.
func (srs *SQLiteRuleStorage) scanRule(row rowScanner) (*core.DetectionRule, error) {
	var rule core.DetectionRule
	var conditions, actions, tags, tactics, techniques, references string

	err := row.Scan(&rule.ID, &rule.Name, &rule.Description, &rule.Enabled,
		&rule.Priority, &conditions, &actions, &rule.Author, &tags,
		&tactics, &techniques, &references, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(conditions), &rule.Conditions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conditions for rule %s: %w", rule.ID, err)
	}
	if err := json.Unmarshal([]byte(actions), &rule.Actions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal actions for rule %s: %w", rule.ID, err)
	}
	if err := json.Unmarshal([]byte(tags), &rule.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags for rule %s: %w", rule.ID, err)
	}
	if err := json.Unmarshal([]byte(tactics), &rule.MitreTactics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mitre tactics for rule %s: %w", rule.ID, err)
	}
	if err := json.Unmarshal([]byte(techniques), &rule.MitreTechniques); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mitre techniques for rule %s: %w", rule.ID, err)
	}
	if err := json.Unmarshal([]byte(references), &rule.References); err != nil {
		return nil, fmt.Errorf("failed to unmarshal references for rule %s: %w", rule.ID, err)
	}
	return &rule, nil
}
