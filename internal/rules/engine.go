// Package rules evaluates deterministic classification rules against a
// document. Rules run before the model classifier; the first active rule
// whose conditions all hold decides the classification with full confidence.
package rules

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"docsort/internal/docstore"
	"docsort/internal/services"
)

// Conditions are the predicates a rule checks. Every present condition must
// hold for the rule to match.
type Conditions struct {
	FilenameRegex    string `json:"filename_regex,omitempty"`
	MimeType         string `json:"mime_type,omitempty"`
	MimeTypeContains string `json:"mime_type_contains,omitempty"`
	FileSizeMin      *int64 `json:"file_size_min,omitempty"`
	FileSizeMax      *int64 `json:"file_size_max,omitempty"`
	TextContains     string `json:"text_contains,omitempty"`
}

// Empty reports whether no condition is set.
func (c Conditions) Empty() bool {
	return c.FilenameRegex == "" &&
		c.MimeType == "" &&
		c.MimeTypeContains == "" &&
		c.FileSizeMin == nil &&
		c.FileSizeMax == nil &&
		c.TextContains == ""
}

// Actions are the classification a matching rule assigns.
type Actions struct {
	Category          string `json:"category,omitempty"`
	TargetPath        string `json:"target_path,omitempty"`
	SuggestedFilename string `json:"suggested_filename,omitempty"`
}

// Input is the document view the engine evaluates conditions against.
type Input struct {
	Filename  string
	MimeType  string
	SizeBytes int64
	Text      string
}

// Match pairs a matched rule with its decoded actions.
type Match struct {
	Rule    *docstore.Rule
	Actions Actions
}

// ParseConditions decodes and validates a conditions document.
func ParseConditions(raw string) (Conditions, error) {
	var conditions Conditions
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&conditions); err != nil {
		return Conditions{}, fmt.Errorf("decode conditions: %w", err)
	}
	if conditions.Empty() {
		return Conditions{}, fmt.Errorf("conditions must set at least one predicate")
	}
	if conditions.FilenameRegex != "" {
		if _, err := regexp.Compile(conditions.FilenameRegex); err != nil {
			return Conditions{}, fmt.Errorf("compile filename_regex: %w", err)
		}
	}
	if conditions.FileSizeMin != nil && conditions.FileSizeMax != nil &&
		*conditions.FileSizeMin > *conditions.FileSizeMax {
		return Conditions{}, fmt.Errorf("file_size_min exceeds file_size_max")
	}
	return conditions, nil
}

// ParseActions decodes and validates an actions document.
func ParseActions(raw string) (Actions, error) {
	var actions Actions
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&actions); err != nil {
		return Actions{}, fmt.Errorf("decode actions: %w", err)
	}
	if actions.Category == "" {
		return Actions{}, fmt.Errorf("actions must set a category")
	}
	return actions, nil
}

// FirstMatch evaluates rules in the given order and returns the first match,
// or nil when no rule applies. Rules must already be sorted by priority.
// A malformed rule is a configuration error, not a document failure.
func FirstMatch(ruleSet []*docstore.Rule, in Input) (*Match, error) {
	for _, rule := range ruleSet {
		conditions, err := ParseConditions(rule.ConditionsJSON)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "classify", "parse rule",
				fmt.Sprintf("rule %q has invalid conditions", rule.Name), err)
		}
		matched, err := conditions.match(in)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "classify", "evaluate rule",
				fmt.Sprintf("rule %q failed to evaluate", rule.Name), err)
		}
		if !matched {
			continue
		}
		actions, err := ParseActions(rule.ActionsJSON)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "classify", "parse rule",
				fmt.Sprintf("rule %q has invalid actions", rule.Name), err)
		}
		return &Match{Rule: rule, Actions: actions}, nil
	}
	return nil, nil
}

func (c Conditions) match(in Input) (bool, error) {
	if c.FilenameRegex != "" {
		re, err := regexp.Compile(c.FilenameRegex)
		if err != nil {
			return false, err
		}
		if !re.MatchString(in.Filename) {
			return false, nil
		}
	}
	if c.MimeType != "" && !strings.EqualFold(c.MimeType, in.MimeType) {
		return false, nil
	}
	if c.MimeTypeContains != "" &&
		!strings.Contains(strings.ToLower(in.MimeType), strings.ToLower(c.MimeTypeContains)) {
		return false, nil
	}
	if c.FileSizeMin != nil && in.SizeBytes < *c.FileSizeMin {
		return false, nil
	}
	if c.FileSizeMax != nil && in.SizeBytes > *c.FileSizeMax {
		return false, nil
	}
	if c.TextContains != "" &&
		!strings.Contains(strings.ToLower(in.Text), strings.ToLower(c.TextContains)) {
		return false, nil
	}
	return true, nil
}
