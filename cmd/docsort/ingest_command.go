package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"docsort/internal/api"
	"docsort/internal/docstore"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Ingest files into the pipeline immediately",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				out := cmd.OutOrStdout()
				for _, arg := range args {
					abs, err := filepath.Abs(arg)
					if err != nil {
						return fmt.Errorf("resolve %q: %w", arg, err)
					}
					doc, err := svc.Ingest(cmd.Context(), abs)
					if err != nil {
						return fmt.Errorf("ingest %s: %w", arg, err)
					}
					switch doc.Status {
					case docstore.StatusDuplicate:
						fmt.Fprintf(out, "%s: duplicate of document %d\n", arg, *doc.CanonicalID)
					default:
						fmt.Fprintf(out, "%s: ingested as document %d\n", arg, doc.ID)
					}
				}
				return nil
			})
		},
	}
}
