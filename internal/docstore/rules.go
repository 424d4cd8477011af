package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// NewRuleParams carries the fields for a rule insert.
type NewRuleParams struct {
	Name           string
	Priority       int
	Active         bool
	ConditionsJSON string
	ActionsJSON    string
}

// CreateRule inserts a classification rule.
func (s *Store) CreateRule(ctx context.Context, params NewRuleParams) (*Rule, error) {
	if params.Name == "" {
		return nil, errors.New("rule name is required")
	}
	if params.ConditionsJSON == "" || params.ActionsJSON == "" {
		return nil, errors.New("rule conditions and actions are required")
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO rules (name, priority, active, conditions_json, actions_json, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		params.Name,
		params.Priority,
		boolToInt(params.Active),
		params.ConditionsJSON,
		params.ActionsJSON,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetRule(ctx, id)
}

// GetRule fetches a rule by identifier.
func (s *Store) GetRule(ctx context.Context, id int64) (*Rule, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rule: %w", err)
	}
	return rule, nil
}

// ActiveRules returns active rules ordered by ascending priority, so lower
// numbers win when several rules match.
func (s *Store) ActiveRules(ctx context.Context) ([]*Rule, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+ruleColumns+` FROM rules WHERE active = 1 ORDER BY priority, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query active rules: %w", err)
	}
	defer rows.Close()
	return collectRules(rows)
}

// ListRules returns all rules ordered by priority.
func (s *Store) ListRules(ctx context.Context) ([]*Rule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+ruleColumns+` FROM rules ORDER BY priority, id`)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()
	return collectRules(rows)
}

// SetRuleActive toggles a rule on or off.
func (s *Store) SetRuleActive(ctx context.Context, id int64, active bool) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE rules SET active = ?, updated_at = ? WHERE id = ?`,
		boolToInt(active),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("set rule active: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRule removes a rule by identifier.
func (s *Store) DeleteRule(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

const ruleColumns = "id, name, priority, active, conditions_json, actions_json, created_at, updated_at"

func collectRules(rows *sql.Rows) ([]*Rule, error) {
	var rules []*Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func scanRule(scanner interface{ Scan(dest ...any) error }) (*Rule, error) {
	var (
		id         int64
		name       string
		priority   int
		active     int
		conditions string
		actions    string
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(&id, &name, &priority, &active, &conditions, &actions, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	rule := &Rule{
		ID:             id,
		Name:           name,
		Priority:       priority,
		Active:         active != 0,
		ConditionsJSON: conditions,
		ActionsJSON:    actions,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		rule.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		rule.UpdatedAt = updated
	}
	return rule, nil
}
