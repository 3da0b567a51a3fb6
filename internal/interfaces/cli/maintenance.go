package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

func newCleanupCommand(rootOpts *RootOptions) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove stale files from the temporary directory",
		Long: `Remove stale files from the temporary directory below storage.base_path.

Without --older-than the generation.temp_cleanup_age setting applies.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, rootOpts, false, func(a *App) error {
				removed, err := a.Service.CleanupTemp(cmd.Context(), olderThan)
				if err != nil {
					return err
				}
				view := map[string]int{"removed": removed}
				return newPrinter(rootOpts, cmd.OutOrStdout()).success(view, func(w io.Writer) {
					fmt.Fprintf(w, "Removed %d temporary files\n", removed)
				})
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "remove files last modified before this age (e.g. 24h)")

	return cmd
}

func newTypesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List document types and page sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, rootOpts, false, func(a *App) error {
				types := a.Service.GetDocumentTypes()
				sizes := a.Service.GetPageSizes()
				view := map[string]any{"document_types": types, "page_sizes": sizes}

				p := newPrinter(rootOpts, cmd.OutOrStdout())
				return p.success(view, func(w io.Writer) {
					rows := make([][]string, len(types))
					for i, t := range types {
						rows[i] = []string{t.Code, t.DisplayName}
					}
					p.table([]string{"TYPE", "NAME"}, rows)
					fmt.Fprintln(w)

					rows = make([][]string, len(sizes))
					for i, s := range sizes {
						rows[i] = []string{s.Code, fmt.Sprintf("%gmm x %gmm", s.Width, s.Height)}
					}
					p.table([]string{"PAGE SIZE", "DIMENSIONS"}, rows)
				})
			})
		},
	}
}
