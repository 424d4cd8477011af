package api

import (
	"context"
	"encoding/json"
	"fmt"

	"docsort/internal/docstore"
	"docsort/internal/rules"
	"docsort/internal/services"
)

// AddRule validates and stores a classification rule. Conditions and actions
// are checked up front so the classify stage never meets a malformed rule.
func (s *Service) AddRule(ctx context.Context, params docstore.NewRuleParams) (*docstore.Rule, error) {
	if _, err := rules.ParseConditions(params.ConditionsJSON); err != nil {
		return nil, services.Wrap(services.ErrValidation, "rules", "add rule",
			"rule conditions are invalid", err)
	}
	if _, err := rules.ParseActions(params.ActionsJSON); err != nil {
		return nil, services.Wrap(services.ErrValidation, "rules", "add rule",
			"rule actions are invalid", err)
	}
	rule, err := s.docs.CreateRule(ctx, params)
	if err != nil {
		return nil, err
	}
	s.auditRule(ctx, rule.ID, "created", rule.Name)
	return rule, nil
}

// Rules lists all rules by priority.
func (s *Service) Rules(ctx context.Context) ([]*docstore.Rule, error) {
	return s.docs.ListRules(ctx)
}

// SetRuleActive toggles a rule on or off.
func (s *Service) SetRuleActive(ctx context.Context, id int64, active bool) error {
	if err := s.docs.SetRuleActive(ctx, id, active); err != nil {
		return err
	}
	action := "disabled"
	if active {
		action = "enabled"
	}
	s.auditRule(ctx, id, action, "")
	return nil
}

// DeleteRule removes a rule permanently.
func (s *Service) DeleteRule(ctx context.Context, id int64) error {
	deleted, err := s.docs.DeleteRule(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("rule %d not found", id)
	}
	s.auditRule(ctx, id, "deleted", "")
	return nil
}

func (s *Service) auditRule(ctx context.Context, id int64, action, name string) {
	detail, _ := json.Marshal(map[string]any{"action": action, "name": name})
	_ = s.docs.AppendAudit(ctx, docstore.AuditEvent{
		ResourceType: docstore.ResourceRule,
		ResourceID:   id,
		EventType:    docstore.EventRuleChanged,
		Actor:        docstore.ActorSystem,
		DetailJSON:   string(detail),
	})
}
