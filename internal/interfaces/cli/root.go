// Package cli is the docgen command line: template and asset management,
// document generation and maintenance on top of the generation service.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	Format     string // "text" | "json"
	Verbose    bool

	// newEncoder replaces the configured PDF engine; nil uses the configuration
	newEncoder encoderFactory
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the docgen CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docgen",
		Short: "docgen - branded PDF documents from templates",
		Long: `docgen resolves HTML templates against JSON or YAML data, applies branding
and assets, and lays the result out as a PDF.

Templates are versioned; every change creates a new version that keeps a link
to its parent. Generated documents are written below storage.base_path and can
be mirrored to an S3-compatible bucket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file (default ./config.toml)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log at debug level")

	cmd.AddCommand(newRenderCommand(opts))
	cmd.AddCommand(newGenerateCommand(opts))
	cmd.AddCommand(newPreviewCommand(opts))
	cmd.AddCommand(newTemplateCommand(opts))
	cmd.AddCommand(newAssetCommand(opts))
	cmd.AddCommand(newCleanupCommand(opts))
	cmd.AddCommand(newTypesCommand(opts))

	return cmd
}
