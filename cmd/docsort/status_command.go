package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"docsort/internal/api"
	"docsort/internal/docstore"
	"docsort/internal/jobqueue"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pipeline status",
		RunE: func(cmd *cobra.Command, args []string) error {
			colorize := isatty.IsTerminal(os.Stdout.Fd())
			return ctx.withService(func(svc *api.Service) error {
				overview, err := svc.Overview(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()

				fmt.Fprintln(out, "Documents:")
				for _, status := range documentStatusOrder() {
					count := overview.Documents[status]
					if count == 0 {
						continue
					}
					fmt.Fprintln(out, renderCountLine(string(status), count, documentStatusColor(status), colorize))
				}
				if len(overview.Documents) == 0 {
					fmt.Fprintln(out, "  none")
				}

				fmt.Fprintln(out, "Jobs:")
				for _, status := range jobStatusOrder() {
					count := overview.Jobs[status]
					if count == 0 {
						continue
					}
					fmt.Fprintln(out, renderCountLine(string(status), count, jobStatusColor(status), colorize))
				}
				if len(overview.Jobs) == 0 {
					fmt.Fprintln(out, "  none")
				}
				return nil
			})
		},
	}
}

func renderCountLine(label string, count int, color string, colorize bool) string {
	line := fmt.Sprintf("  %-14s %d", label, count)
	if colorize && color != "" {
		return color + line + ansiReset
	}
	return line
}

func documentStatusOrder() []docstore.Status {
	return []docstore.Status{
		docstore.StatusIngested,
		docstore.StatusAnalyzing,
		docstore.StatusAnalyzed,
		docstore.StatusNeedsReview,
		docstore.StatusApproved,
		docstore.StatusCommitted,
		docstore.StatusError,
		docstore.StatusDuplicate,
	}
}

func documentStatusColor(status docstore.Status) string {
	switch status {
	case docstore.StatusCommitted:
		return ansiGreen
	case docstore.StatusNeedsReview:
		return ansiYellow
	case docstore.StatusError:
		return ansiRed
	default:
		return ""
	}
}

func jobStatusOrder() []jobqueue.Status {
	return []jobqueue.Status{
		jobqueue.StatusPending,
		jobqueue.StatusRunning,
		jobqueue.StatusCompleted,
		jobqueue.StatusFailed,
		jobqueue.StatusCancelled,
	}
}

func jobStatusColor(status jobqueue.Status) string {
	switch status {
	case jobqueue.StatusCompleted:
		return ansiGreen
	case jobqueue.StatusFailed:
		return ansiRed
	default:
		return ""
	}
}
