package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	app "github.com/docforge/backend/internal/application/printing"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	DataFile     string
	MetadataFile string
	OutputName   string
	QRData       string
	Watermark    string
	Out          string
}

func newGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate <template-id>",
		Short: "Generate and store a document from a template version",
		Long: `Generate and store a document from a template version.

The document is written below storage.base_path/documents and, when a bucket
is configured, mirrored to object storage. The template must be active.

Example:
  docgen generate 0b6c9a3e-... --data order.json --output-name INV-2024-001`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.DataFile, "data", "d", "", "data file (.json or .yaml, - for stdin)")
	cmd.Flags().StringVar(&opts.MetadataFile, "metadata", "", "metadata merged over the template defaults")
	cmd.Flags().StringVar(&opts.OutputName, "output-name", "", "file name hint for the stored document")
	cmd.Flags().StringVar(&opts.QRData, "qr", "", "payload encoded as {{ qr_code }}")
	cmd.Flags().StringVar(&opts.Watermark, "watermark", "", "watermark text")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "also write the PDF to this file")

	return cmd
}

func runGenerate(cmd *cobra.Command, opts *GenerateOptions, arg string) error {
	id, err := parseID("template", arg)
	if err != nil {
		return err
	}
	data, err := readDataFile(opts.DataFile, cmd.InOrStdin())
	if err != nil {
		return err
	}
	metadata, err := readDataFile(opts.MetadataFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	return runWithApp(cmd, opts.RootOptions, true, func(a *App) error {
		result, err := a.Service.Generate(cmd.Context(), app.GenerateRequest{
			TemplateID:     id,
			Data:           data,
			Metadata:       metadata,
			OutputFilename: opts.OutputName,
			QRData:         opts.QRData,
			WatermarkText:  opts.Watermark,
		})
		if err != nil {
			return err
		}
		return printResult(cmd, opts.RootOptions, result, opts.Out)
	})
}

// PreviewOptions holds flags for the preview command.
type PreviewOptions struct {
	*RootOptions
	DataFile     string
	MetadataFile string
	QRData       string
	Out          string
}

func newPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PreviewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "preview <template-id>",
		Short: "Render a template version to a local file without storing it",
		Long: `Render a template version to a local file without storing it.

Missing data falls back to the example values declared on the template
variables, and inactive templates can be previewed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.DataFile, "data", "d", "", "data file (.json or .yaml, - for stdin)")
	cmd.Flags().StringVar(&opts.MetadataFile, "metadata", "", "metadata merged over the template defaults")
	cmd.Flags().StringVar(&opts.QRData, "qr", "", "payload encoded as {{ qr_code }}")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output file (default preview_<name>.pdf)")

	return cmd
}

func runPreview(cmd *cobra.Command, opts *PreviewOptions, arg string) error {
	id, err := parseID("template", arg)
	if err != nil {
		return err
	}
	data, err := readDataFile(opts.DataFile, cmd.InOrStdin())
	if err != nil {
		return err
	}
	metadata, err := readDataFile(opts.MetadataFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	return runWithApp(cmd, opts.RootOptions, true, func(a *App) error {
		resp, err := a.Service.Preview(cmd.Context(), app.PreviewRequest{
			TemplateID: id,
			Data:       data,
			Metadata:   metadata,
			QRData:     opts.QRData,
		})
		if err != nil {
			return err
		}
		out := opts.Out
		if out == "" {
			out = resp.Filename
		}
		if err := writeOutput(out, resp.Data); err != nil {
			return err
		}
		view := struct {
			File  string `json:"file"`
			Size  int64  `json:"size"`
			Pages int    `json:"pages"`
		}{out, resp.Size, resp.Pages}
		return newPrinter(opts.RootOptions, cmd.OutOrStdout()).success(view, func(w io.Writer) {
			fmt.Fprintf(w, "Preview written to %s (%d bytes, %d pages)\n", out, resp.Size, resp.Pages)
		})
	})
}
