package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"docsort/internal/api"
	"docsort/internal/docstore"
)

func newRulesCommand(ctx *commandContext) *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage classification rules",
	}
	rulesCmd.AddCommand(newRulesListCommand(ctx))
	rulesCmd.AddCommand(newRulesAddCommand(ctx))
	rulesCmd.AddCommand(newRulesToggleCommand(ctx, "enable", true))
	rulesCmd.AddCommand(newRulesToggleCommand(ctx, "disable", false))
	rulesCmd.AddCommand(newRulesDeleteCommand(ctx))
	return rulesCmd
}

func newRulesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules by priority",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				rules, err := svc.Rules(cmd.Context())
				if err != nil {
					return err
				}
				if len(rules) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No rules defined")
					return nil
				}
				rows := make([][]string, 0, len(rules))
				for _, rule := range rules {
					active := "yes"
					if !rule.Active {
						active = "no"
					}
					rows = append(rows, []string{
						strconv.FormatInt(rule.ID, 10),
						strconv.Itoa(rule.Priority),
						rule.Name,
						active,
						truncate(rule.ConditionsJSON, 40),
						truncate(rule.ActionsJSON, 40),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]column{numCol("ID"), numCol("Prio"), textCol("Name"), textCol("Active"),
						textCol("Conditions"), textCol("Actions")},
					rows,
				))
				return nil
			})
		},
	}
}

func newRulesAddCommand(ctx *commandContext) *cobra.Command {
	var nameFlag, conditionsFlag, actionsFlag string
	var priorityFlag int
	var inactiveFlag bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a classification rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				rule, err := svc.AddRule(cmd.Context(), docstore.NewRuleParams{
					Name:           nameFlag,
					Priority:       priorityFlag,
					Active:         !inactiveFlag,
					ConditionsJSON: conditionsFlag,
					ActionsJSON:    actionsFlag,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rule %d (%s) created\n", rule.ID, rule.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&nameFlag, "name", "", "Rule name")
	cmd.Flags().IntVar(&priorityFlag, "priority", 100, "Rule priority (lower runs first)")
	cmd.Flags().StringVar(&conditionsFlag, "conditions", "", "Conditions as JSON")
	cmd.Flags().StringVar(&actionsFlag, "actions", "", "Actions as JSON")
	cmd.Flags().BoolVar(&inactiveFlag, "inactive", false, "Create the rule disabled")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("conditions")
	_ = cmd.MarkFlagRequired("actions")
	return cmd
}

func newRulesToggleCommand(ctx *commandContext, verb string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id>",
		Short: capitalize(verb) + " a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *api.Service) error {
				if err := svc.SetRuleActive(cmd.Context(), id, active); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rule %d %sd\n", id, verb)
				return nil
			})
		},
	}
}

func newRulesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *api.Service) error {
				if err := svc.DeleteRule(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rule %d deleted\n", id)
				return nil
			})
		},
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
