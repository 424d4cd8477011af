package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"docsort/internal/api"
	"docsort/internal/docstore"
)

func newDocsCommand(ctx *commandContext) *cobra.Command {
	docsCmd := &cobra.Command{
		Use:   "docs",
		Short: "Inspect and review documents",
	}
	docsCmd.AddCommand(newDocsListCommand(ctx))
	docsCmd.AddCommand(newDocsShowCommand(ctx))
	docsCmd.AddCommand(newDocsApproveCommand(ctx))
	docsCmd.AddCommand(newDocsRejectCommand(ctx))
	docsCmd.AddCommand(newDocsResetCommand(ctx))
	docsCmd.AddCommand(newDocsAuditCommand(ctx))
	return docsCmd
}

func newDocsListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var categoryFlag string
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := docstore.ListFilter{
				Category: categoryFlag,
				Limit:    limitFlag,
			}
			for _, raw := range statusFlags {
				status := docstore.Status(raw)
				if !status.Valid() {
					return fmt.Errorf("unknown status %q", raw)
				}
				filter.Statuses = append(filter.Statuses, status)
			}
			return ctx.withService(func(svc *api.Service) error {
				docs, err := svc.Documents(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if len(docs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No documents found")
					return nil
				}
				rows := make([][]string, 0, len(docs))
				for _, doc := range docs {
					rows = append(rows, []string{
						strconv.FormatInt(doc.ID, 10),
						string(doc.Status),
						truncate(doc.OriginalName, 40),
						orDash(doc.Category),
						formatConfidence(doc.Confidence),
						formatBytes(doc.SizeBytes),
						formatTime(doc.CreatedAt),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]column{numCol("ID"), textCol("Status"), textCol("Name"), textCol("Category"),
						numCol("Conf"), numCol("Size"), textCol("Created")},
					rows,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&statusFlags, "status", nil, "Filter by status (repeatable)")
	cmd.Flags().StringVar(&categoryFlag, "category", "", "Filter by category")
	cmd.Flags().IntVar(&limitFlag, "limit", 50, "Maximum number of documents")
	return cmd
}

func newDocsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one document in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *api.Service) error {
				doc, err := svc.Document(cmd.Context(), id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Document %d (%s)\n", doc.ID, doc.Status)
				fmt.Fprintf(out, "  Name:        %s\n", doc.OriginalName)
				fmt.Fprintf(out, "  Title:       %s\n", orDash(doc.Title))
				fmt.Fprintf(out, "  Hash:        %s\n", doc.ContentHash)
				fmt.Fprintf(out, "  MIME:        %s  Size: %s\n", orDash(doc.MimeType), formatBytes(doc.SizeBytes))
				fmt.Fprintf(out, "  Stored:      %s\n", orDash(doc.StoredPath))
				fmt.Fprintf(out, "  Final:       %s\n", orDash(doc.FinalPath))
				fmt.Fprintf(out, "  Category:    %s (%s, confidence %s)\n",
					orDash(doc.Category), orDash(doc.ClassifierSource), formatConfidence(doc.Confidence))
				fmt.Fprintf(out, "  Target:      %s / %s\n", orDash(doc.TargetPath), orDash(doc.SuggestedFilename))
				if doc.MatchedRule != "" {
					fmt.Fprintf(out, "  Rule:        %s\n", doc.MatchedRule)
				}
				if doc.UserCategory != "" || doc.UserTargetPath != "" || doc.UserFilename != "" {
					fmt.Fprintf(out, "  Overrides:   %s / %s / %s\n",
						orDash(doc.UserCategory), orDash(doc.UserTargetPath), orDash(doc.UserFilename))
				}
				if doc.PageCount > 0 {
					fmt.Fprintf(out, "  Pages:       %d\n", doc.PageCount)
				}
				if doc.OCRNeeded {
					fmt.Fprintln(out, "  OCR:         needed")
				}
				if doc.ReviewReason != "" {
					fmt.Fprintf(out, "  Review:      %s\n", doc.ReviewReason)
				}
				if doc.ErrorMessage != "" {
					fmt.Fprintf(out, "  Error:       %s\n", doc.ErrorMessage)
				}
				if doc.CanonicalID != nil {
					fmt.Fprintf(out, "  Duplicate of: %d\n", *doc.CanonicalID)
				}
				fmt.Fprintf(out, "  Created:     %s\n", formatTime(doc.CreatedAt))
				fmt.Fprintf(out, "  Analyzed:    %s\n", formatTimePtr(doc.AnalyzedAt))
				fmt.Fprintf(out, "  Approved:    %s (%s)\n", formatTimePtr(doc.ApprovedAt), orDash(doc.ApprovedBy))
				fmt.Fprintf(out, "  Committed:   %s\n", formatTimePtr(doc.CommittedAt))
				return nil
			})
		},
	}
}

func newDocsApproveCommand(ctx *commandContext) *cobra.Command {
	var byFlag, categoryFlag, targetFlag, filenameFlag string

	cmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a document's classification and queue the commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *api.Service) error {
				doc, err := svc.Approve(cmd.Context(), api.ApproveParams{
					DocumentID:        id,
					ApprovedBy:        byFlag,
					Category:          categoryFlag,
					TargetPath:        targetFlag,
					SuggestedFilename: filenameFlag,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Document %d approved (%s -> %s); commit queued\n",
					doc.ID, doc.EffectiveCategory(), doc.EffectiveTargetPath())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&byFlag, "by", "", "Name of the approver")
	cmd.Flags().StringVar(&categoryFlag, "category", "", "Override the category")
	cmd.Flags().StringVar(&targetFlag, "target", "", "Override the target directory")
	cmd.Flags().StringVar(&filenameFlag, "filename", "", "Override the final filename")
	return cmd
}

func newDocsRejectCommand(ctx *commandContext) *cobra.Command {
	var byFlag, reasonFlag string

	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *api.Service) error {
				doc, err := svc.Reject(cmd.Context(), id, byFlag, reasonFlag)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Document %d rejected\n", doc.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&byFlag, "by", "", "Name of the reviewer")
	cmd.Flags().StringVar(&reasonFlag, "reason", "", "Why the document was rejected")
	return cmd
}

func newDocsResetCommand(ctx *commandContext) *cobra.Command {
	var byFlag string

	cmd := &cobra.Command{
		Use:   "reset <id>",
		Short: "Send an errored document back through the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *api.Service) error {
				doc, err := svc.Reset(cmd.Context(), id, byFlag)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Document %d reset; extraction queued\n", doc.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&byFlag, "by", "", "Name of the operator")
	return cmd
}

func newDocsAuditCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "audit <id>",
		Short: "Show a document's audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *api.Service) error {
				events, err := svc.DocumentAudit(cmd.Context(), id)
				if err != nil {
					return err
				}
				if len(events) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No audit events")
					return nil
				}
				rows := make([][]string, 0, len(events))
				for _, event := range events {
					rows = append(rows, []string{
						formatTime(event.CreatedAt),
						event.EventType,
						event.Actor,
						truncate(event.DetailJSON, 60),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]column{textCol("Time"), textCol("Event"), textCol("Actor"), textCol("Detail")},
					rows,
				))
				return nil
			})
		},
	}
}
