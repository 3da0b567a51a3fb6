package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/docforge/backend/internal/infrastructure/templating"
)

const versionLayout = "20060102150405"

const upTemplate = `-- Migration: {{ name | safe }}
-- Created: {{ created | safe }}
{% if description %}-- Description: {{ description | safe }}
{% endif %}
-- Write your UP migration SQL here
`

const downTemplate = `-- Migration: {{ name | safe }} (Rollback)
-- Created: {{ created | safe }}

-- Write your DOWN migration SQL here
`

// MigrationFile describes a created up/down pair
type MigrationFile struct {
	Version  string
	Name     string
	UpPath   string
	DownPath string
}

// Creator scaffolds migration files. Now is overridable for tests.
type Creator struct {
	Dir      string
	Now      func() time.Time
	resolver *templating.Resolver
}

// NewCreator creates a Creator writing into dir
func NewCreator(dir string) *Creator {
	return &Creator{Dir: dir, Now: time.Now, resolver: templating.NewResolver(templating.WithStrict(true))}
}

// Create writes <version>_<name>.up.sql and .down.sql. Existing files are never overwritten.
func (c *Creator) Create(name, description string) (*MigrationFile, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	now := c.Now()
	mf := &MigrationFile{
		Version: now.Format(versionLayout),
		Name:    slug,
	}
	base := mf.Version + "_" + slug
	mf.UpPath = filepath.Join(c.Dir, base+".up.sql")
	mf.DownPath = filepath.Join(c.Dir, base+".down.sql")

	data := map[string]any{
		"name":        slug,
		"description": strings.TrimSpace(description),
		"created":     now.Format(time.RFC3339),
	}
	if err := c.write(mf.UpPath, upTemplate, data); err != nil {
		return nil, fmt.Errorf("failed to create up migration: %w", err)
	}
	if err := c.write(mf.DownPath, downTemplate, data); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, fmt.Errorf("failed to create down migration: %w", err)
	}
	return mf, nil
}

func (c *Creator) write(path, source string, data map[string]any) error {
	body, err := c.resolver.Resolve(source, data)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(body); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// sanitizeName lowercases name and collapses separators into single underscores
func sanitizeName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			pendingSep = true
		}
	}
	return b.String()
}

// ListMigrations returns the sorted base names of the up migrations in dir
func ListMigrations(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if base, ok := strings.CutSuffix(entry.Name(), ".up.sql"); ok && base != "" {
			names = append(names, base)
		}
	}
	slices.Sort(names)
	return names, nil
}
