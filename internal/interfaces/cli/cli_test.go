package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	app "github.com/docforge/backend/internal/application/printing"
	"github.com/docforge/backend/internal/infrastructure/config"
	infra "github.com/docforge/backend/internal/infrastructure/printing"
	"github.com/docforge/backend/internal/infrastructure/storage"
)

var testPDF = []byte("%PDF-1.7 cli test")

// recordingEncoder returns a fixed PDF and keeps the last markup it was given
type recordingEncoder struct {
	lastHTML string
	calls    int
}

func (e *recordingEncoder) Encode(_ context.Context, req *infra.EncodeRequest) (*infra.EncodeResult, error) {
	e.lastHTML = req.HTML
	e.calls++
	return &infra.EncodeResult{PDFData: testPDF, PageCount: 1}, nil
}

func (e *recordingEncoder) Close() error { return nil }

type testEnv struct {
	t       *testing.T
	dir     string
	base    string
	config  string
	metrics string
	encoder *recordingEncoder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		t:       t,
		dir:     dir,
		base:    filepath.Join(dir, "data"),
		metrics: filepath.Join(dir, "docgen.prom"),
		encoder: &recordingEncoder{},
	}
	env.config = writeFile(t, dir, "config.toml", `
[database]
driver = "sqlite"
path = "`+filepath.ToSlash(filepath.Join(dir, "docgen.db"))+`"

[log]
level = "error"

[storage]
base_path = "`+filepath.ToSlash(env.base)+`"
base_url = "https://docs.example.com/files"

[telemetry]
metrics_textfile = "`+filepath.ToSlash(env.metrics)+`"
`)
	return env
}

// run executes one docgen invocation against the environment
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	opts := &RootOptions{
		newEncoder: func(*config.Config, *storage.FileStore, *zap.Logger) (infra.Encoder, error) {
			return e.encoder, nil
		},
	}
	root := newRootCommand(opts)
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--config", e.config}, args...))
	err := root.Execute()
	return out.String(), err
}

func decodeData[T any](t *testing.T, out string) T {
	t.Helper()
	var resp struct {
		Status string `json:"status"`
		Data   T      `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestCLI_TemplateLifecycle(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run("--format", "json", "template", "import", "--starters", "--type", "invoice", "--type", "receipt")
	require.NoError(t, err)
	imported := decodeData[[]app.TemplateResponse](t, out)
	require.Len(t, imported, 2)
	invoice := imported[0]
	assert.Equal(t, "invoice-standard", invoice.Name)
	assert.Equal(t, 1, invoice.Version)
	assert.True(t, invoice.IsActive)

	data := writeFile(t, env.dir, "invoice.yaml", `
invoice:
  number: INV-7
  date: "2024-10-01"
customer:
  name: Acme <Ltd>
items:
  - description: Widget
    quantity: 2
    unit_price: 617.25
    amount: 1234.5
total: 1234.5
`)

	t.Run("list filters by type", func(t *testing.T) {
		out, err := env.run("--format", "json", "template", "list", "--type", "receipt")
		require.NoError(t, err)

		list := decodeData[app.ListTemplatesResponse](t, out)
		assert.EqualValues(t, 1, list.Total)
		require.Len(t, list.Items, 1)
		assert.Equal(t, "receipt-basic", list.Items[0].Name)
	})

	t.Run("text list", func(t *testing.T) {
		out, err := env.run("template", "list")
		require.NoError(t, err)

		assert.Contains(t, out, "invoice-standard")
		assert.Contains(t, out, "receipt-basic")
		assert.Contains(t, out, "2 of 2 templates")
	})

	t.Run("generate stores the document", func(t *testing.T) {
		local := filepath.Join(env.dir, "copies", "inv7.pdf")

		out, err := env.run("--format", "json", "generate", invoice.ID, "--data", data, "--output-name", "INV-7", "--out", local)
		require.NoError(t, err)

		result := decodeData[generationView](t, out)
		assert.True(t, result.Success)
		assert.Equal(t, int64(len(testPDF)), result.Size)
		assert.Contains(t, result.URL, "https://docs.example.com/files/documents/")

		stored, err := os.ReadFile(filepath.Join(env.base, filepath.FromSlash(result.Path)))
		require.NoError(t, err)
		assert.Equal(t, testPDF, stored)
		copied, err := os.ReadFile(local)
		require.NoError(t, err)
		assert.Equal(t, testPDF, copied)

		assert.Contains(t, env.encoder.lastHTML, "Invoice INV-7")
		assert.Contains(t, env.encoder.lastHTML, "Acme &lt;Ltd&gt;")
		assert.Contains(t, env.encoder.lastHTML, "Total $1,234.50")

		metrics, err := os.ReadFile(env.metrics)
		require.NoError(t, err)
		assert.Contains(t, string(metrics), "docgen_documents_total")
	})

	t.Run("new version and deactivate", func(t *testing.T) {
		html := writeFile(t, env.dir, "v2.html", "<h1>{{ invoice.number }}</h1>")

		out, err := env.run("--format", "json", "template", "version", invoice.ID, "--html-file", html)
		require.NoError(t, err)
		v2 := decodeData[app.TemplateResponse](t, out)
		assert.Equal(t, 2, v2.Version)
		assert.Equal(t, invoice.ID, v2.ParentID)
		assert.Equal(t, invoice.FamilyID, v2.FamilyID)

		_, err = env.run("template", "deactivate", v2.ID)
		require.NoError(t, err)

		_, err = env.run("generate", v2.ID)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
	})

	t.Run("preview writes a local file", func(t *testing.T) {
		out := filepath.Join(env.dir, "preview.pdf")

		text, err := env.run("preview", invoice.ID, "--data", data, "--out", out)
		require.NoError(t, err)

		assert.Contains(t, text, "Preview written to "+out)
		got, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, testPDF, got)
	})

	t.Run("unknown template", func(t *testing.T) {
		_, err := env.run("template", "show", "0b6c9a3e-8f1e-4b7a-9f51-3f1c2d4e5a6b")
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
	})
}

func TestCLI_Assets(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run("--format", "json", "template", "import", "--starters", "--type", "invoice")
	require.NoError(t, err)
	invoice := decodeData[[]app.TemplateResponse](t, out)[0]

	logo := writeFile(t, env.dir, "logo.svg", `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"/>`)

	out, err = env.run("--format", "json", "asset", "upload", invoice.ID, logo, "--role", "logo", "--display", "align=right")
	require.NoError(t, err)
	asset := decodeData[app.AssetResponse](t, out)
	assert.Equal(t, "logo", asset.Role)
	assert.Equal(t, "logo.svg", asset.Name)
	assert.Equal(t, "right", asset.DisplayConfig["align"])
	assert.FileExists(t, filepath.Join(env.base, filepath.FromSlash(asset.StoragePath)))

	out, err = env.run("--format", "json", "asset", "list", invoice.ID)
	require.NoError(t, err)
	assert.Len(t, decodeData[[]app.AssetResponse](t, out), 1)

	stray := filepath.Join(env.base, "assets", "image", "stray.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(stray), 0o755))
	require.NoError(t, os.WriteFile(stray, []byte("x"), 0o644))

	out, err = env.run("--format", "json", "asset", "reconcile", "--remove-orphans")
	require.NoError(t, err)
	report := decodeData[app.ReconcileResponse](t, out)
	assert.Equal(t, []string{"assets/image/stray.png"}, report.OrphanFiles)
	assert.Equal(t, 1, report.RemovedFiles)
	assert.NoFileExists(t, stray)

	_, err = env.run("asset", "delete", asset.ID)
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(env.base, filepath.FromSlash(asset.StoragePath)))

	_, err = env.run("asset", "upload", invoice.ID, logo, "--role", "background")
	require.Error(t, err)
}

func TestCLI_RenderWithoutDatabase(t *testing.T) {
	env := newTestEnv(t)
	tmpl := writeFile(t, env.dir, "note.html", "<p>Hello {{ name | upper }}</p>")
	out := filepath.Join(env.dir, "note.pdf")

	data := writeFile(t, env.dir, "note.json", `{"name": "ada"}`)

	text, err := env.run("render", "--template-file", tmpl, "--data", data, "--out", out, "--title", "Note")
	require.NoError(t, err)

	assert.Contains(t, text, "file:  "+out)
	assert.Contains(t, env.encoder.lastHTML, "Hello ADA")
	assert.NoFileExists(t, filepath.Join(env.dir, "docgen.db"))
}

func TestCLI_Types(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run("types")
	require.NoError(t, err)

	assert.Contains(t, out, "purchase_order")
	assert.Contains(t, out, "A4")
	assert.Contains(t, out, "210mm x 297mm")
}
