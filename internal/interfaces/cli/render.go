package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	app "github.com/docforge/backend/internal/application/printing"
	"github.com/docforge/backend/internal/domain/printing"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	TemplateFile string
	CSSFile      string
	DataFile     string
	MetadataFile string
	BrandingFile string
	Title        string
	QRData       string
	Watermark    string
	Out          string
	Persist      bool
}

func newRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render an HTML template file to PDF without storing a template",
		Long: `Render an HTML template file to PDF without storing a template.

The markup is resolved against --data, styled from --branding and --css, and
laid out by the configured engine. Nothing touches the database.

Example:
  docgen render --template-file invoice.html --data invoice.json --out invoice.pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.TemplateFile, "template-file", "t", "", "HTML template file (required)")
	cmd.Flags().StringVar(&opts.CSSFile, "css", "", "extra stylesheet appended after the branding styles")
	cmd.Flags().StringVarP(&opts.DataFile, "data", "d", "", "data file (.json or .yaml, - for stdin)")
	cmd.Flags().StringVar(&opts.MetadataFile, "metadata", "", "metadata file exposed as {{ metadata }}")
	cmd.Flags().StringVar(&opts.BrandingFile, "branding", "", "branding file (.json or .yaml)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "document title")
	cmd.Flags().StringVar(&opts.QRData, "qr", "", "payload encoded as {{ qr_code }}")
	cmd.Flags().StringVar(&opts.Watermark, "watermark", "", "watermark text")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write the PDF to this file")
	cmd.Flags().BoolVar(&opts.Persist, "persist", false, "also store the PDF in the document store")
	_ = cmd.MarkFlagRequired("template-file")

	return cmd
}

func runRender(cmd *cobra.Command, opts *RenderOptions) error {
	html, err := readTextFile(opts.TemplateFile)
	if err != nil {
		return err
	}
	css, err := readTextFile(opts.CSSFile)
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
	var branding *printing.BrandingConfig
	if opts.BrandingFile != "" {
		branding = &printing.BrandingConfig{}
		if err := decodeFile(opts.BrandingFile, cmd.InOrStdin(), branding); err != nil {
			return err
		}
	}

	return runWithApp(cmd, opts.RootOptions, false, func(a *App) error {
		result, err := a.Service.Render(cmd.Context(), app.RenderRequest{
			Title:          opts.Title,
			HTMLContent:    html,
			CSSContent:     css,
			Branding:       branding,
			Data:           data,
			Metadata:       metadata,
			QRData:         opts.QRData,
			WatermarkText:  opts.Watermark,
			OutputFilename: opts.Title,
			Persist:        opts.Persist,
		})
		if err != nil {
			return err
		}
		return printResult(cmd, opts.RootOptions, result, opts.Out)
	})
}

// printResult writes the PDF to out when set and reports the result
func printResult(cmd *cobra.Command, opts *RootOptions, result *printing.GenerationResult, out string) error {
	if out != "" {
		if err := writeOutput(out, result.Data); err != nil {
			return err
		}
	}
	return newPrinter(opts, cmd.OutOrStdout()).success(resultView(result, out), func(w io.Writer) {
		fmt.Fprintln(w, result.Message)
		if result.Path != "" {
			fmt.Fprintf(w, "  path:  %s\n", result.Path)
		}
		if result.URL != "" {
			fmt.Fprintf(w, "  url:   %s\n", result.URL)
		}
		if out != "" {
			fmt.Fprintf(w, "  file:  %s\n", out)
		}
		fmt.Fprintf(w, "  size:  %d bytes\n", result.Size)
		fmt.Fprintf(w, "  pages: %d\n", result.Pages)
	})
}

type generationView struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
	URL     string `json:"url,omitempty"`
	File    string `json:"file,omitempty"`
	Size    int64  `json:"size"`
	Pages   int    `json:"pages"`
}

func resultView(r *printing.GenerationResult, out string) generationView {
	return generationView{
		Success: r.Success,
		Message: r.Message,
		Path:    r.Path,
		URL:     r.URL,
		File:    out,
		Size:    r.Size,
		Pages:   r.Pages,
	}
}
