package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	app "github.com/docforge/backend/internal/application/printing"
)

func newAssetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "asset",
		Aliases: []string{"assets"},
		Short:   "Manage template assets such as logos and signatures",
	}

	cmd.AddCommand(newAssetUploadCommand(rootOpts))
	cmd.AddCommand(newAssetListCommand(rootOpts))
	cmd.AddCommand(newAssetDeleteCommand(rootOpts))
	cmd.AddCommand(newAssetResizeCommand(rootOpts))
	cmd.AddCommand(newAssetReconcileCommand(rootOpts))

	return cmd
}

// AssetUploadOptions holds flags for asset upload.
type AssetUploadOptions struct {
	*RootOptions
	Role      string
	Name      string
	IsDefault bool
	Display   map[string]string
}

func newAssetUploadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AssetUploadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "upload <template-id> <file>",
		Short: "Store a file and attach it to a template",
		Long: `Store a file and attach it to a template.

Allowed extensions are png, jpg, jpeg, gif, svg and webp. The first logo of a
template, or the one marked --default, is inlined as {{ assets.logo }}.

Example:
  docgen asset upload 0b6c9a3e-... logo.png --role logo --display width=160`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssetUpload(cmd, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.Role, "role", "image", "logo|image|signature|watermark")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name (default the file name)")
	cmd.Flags().BoolVar(&opts.IsDefault, "default", false, "prefer this asset for its role")
	cmd.Flags().StringToStringVar(&opts.Display, "display", nil, "display settings as key=value pairs")

	return cmd
}

func runAssetUpload(cmd *cobra.Command, opts *AssetUploadOptions, templateArg, file string) error {
	templateID, err := parseID("template", templateArg)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read "+file, err)
	}
	var display map[string]any
	if len(opts.Display) > 0 {
		display = make(map[string]any, len(opts.Display))
		for k, v := range opts.Display {
			display[k] = v
		}
	}

	return runWithApp(cmd, opts.RootOptions, true, func(a *App) error {
		asset, err := a.Service.UploadAsset(cmd.Context(), app.UploadAssetRequest{
			TemplateID:    templateID,
			Role:          opts.Role,
			Filename:      filepath.Base(file),
			Name:          opts.Name,
			Data:          data,
			DisplayConfig: display,
			IsDefault:     opts.IsDefault,
		})
		if err != nil {
			return err
		}
		return printAsset(cmd, opts.RootOptions, "Uploaded", asset)
	})
}

func newAssetListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list <template-id>",
		Aliases: []string{"ls"},
		Short:   "List the assets of a template",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			templateID, err := parseID("template", args[0])
			if err != nil {
				return err
			}
			return runWithApp(cmd, rootOpts, true, func(a *App) error {
				assets, err := a.Service.ListAssets(cmd.Context(), templateID)
				if err != nil {
					return err
				}
				p := newPrinter(rootOpts, cmd.OutOrStdout())
				return p.success(assets, func(w io.Writer) {
					if len(assets) == 0 {
						fmt.Fprintln(w, "No assets found")
						return
					}
					rows := make([][]string, len(assets))
					for i, as := range assets {
						rows[i] = []string{as.ID, as.Role, as.Name, as.MimeType, strconv.FormatInt(as.FileSize, 10), strconv.FormatBool(as.IsDefault), as.StoragePath}
					}
					p.table([]string{"ID", "ROLE", "NAME", "TYPE", "SIZE", "DEFAULT", "PATH"}, rows)
				})
			})
		},
	}
}

func newAssetDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <asset-id>",
		Aliases: []string{"rm"},
		Short:   "Delete an asset record and its file",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("asset", args[0])
			if err != nil {
				return err
			}
			return runWithApp(cmd, rootOpts, true, func(a *App) error {
				if err := a.Service.DeleteAsset(cmd.Context(), id); err != nil {
					return err
				}
				view := map[string]string{"id": id.String()}
				return newPrinter(rootOpts, cmd.OutOrStdout()).success(view, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted asset %s\n", id)
				})
			})
		},
	}
}

func newAssetResizeCommand(rootOpts *RootOptions) *cobra.Command {
	var maxWidth, maxHeight, quality int

	cmd := &cobra.Command{
		Use:   "resize <asset-id>",
		Short: "Store a scaled copy of a raster asset as a new asset",
		Long: `Store a scaled copy of a raster asset as a new asset.

The aspect ratio is kept and images are never enlarged. The original asset
is left untouched. GIF and SVG assets cannot be resized.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("asset", args[0])
			if err != nil {
				return err
			}
			return runWithApp(cmd, rootOpts, true, func(a *App) error {
				asset, err := a.Service.ResizeAsset(cmd.Context(), app.ResizeAssetRequest{
					AssetID:   id,
					MaxWidth:  maxWidth,
					MaxHeight: maxHeight,
					Quality:   quality,
				})
				if err != nil {
					return err
				}
				return printAsset(cmd, rootOpts, "Resized", asset)
			})
		},
	}

	cmd.Flags().IntVar(&maxWidth, "max-width", 0, "maximum width in pixels")
	cmd.Flags().IntVar(&maxHeight, "max-height", 0, "maximum height in pixels")
	cmd.Flags().IntVar(&quality, "quality", 0, "JPEG quality 1-100 (default 85)")

	return cmd
}

func newAssetReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	var removeOrphans bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare asset records with the files in storage",
		Long: `Compare asset records with the files in storage.

Files without a record are orphans; records whose file is missing are
dangling. --remove-orphans deletes orphan files. Dangling records are only
reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, rootOpts, true, func(a *App) error {
				report, err := a.Service.ReconcileAssets(cmd.Context(), removeOrphans)
				if err != nil {
					return err
				}
				return newPrinter(rootOpts, cmd.OutOrStdout()).success(report, func(w io.Writer) {
					fmt.Fprintf(w, "Orphan files: %d\n", len(report.OrphanFiles))
					for _, f := range report.OrphanFiles {
						fmt.Fprintf(w, "  %s\n", f)
					}
					fmt.Fprintf(w, "Dangling assets: %d\n", len(report.DanglingAssets))
					for _, id := range report.DanglingAssets {
						fmt.Fprintf(w, "  %s\n", id)
					}
					if removeOrphans {
						fmt.Fprintf(w, "Removed files: %d\n", report.RemovedFiles)
					}
				})
			})
		},
	}

	cmd.Flags().BoolVar(&removeOrphans, "remove-orphans", false, "delete files that have no asset record")

	return cmd
}

func printAsset(cmd *cobra.Command, opts *RootOptions, verb string, as *app.AssetResponse) error {
	return newPrinter(opts, cmd.OutOrStdout()).success(as, func(w io.Writer) {
		fmt.Fprintf(w, "%s asset %s\n", verb, as.Name)
		fmt.Fprintf(w, "  id:       %s\n", as.ID)
		fmt.Fprintf(w, "  template: %s\n", as.TemplateID)
		fmt.Fprintf(w, "  role:     %s\n", as.Role)
		fmt.Fprintf(w, "  path:     %s\n", as.StoragePath)
		fmt.Fprintf(w, "  url:      %s\n", as.URL)
		fmt.Fprintf(w, "  size:     %d bytes\n", as.FileSize)
		if as.Width != nil && as.Height != nil {
			fmt.Fprintf(w, "  pixels:   %dx%d\n", *as.Width, *as.Height)
		}
	})
}
