package document

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/satishbabariya/schemakit/internal/core/schema"
	"github.com/satishbabariya/schemakit/internal/debug"
)

// Ext is the extension of schema documents.
const Ext = ".xml"

// Loader reads every document below a root directory.
type Loader struct {
	fs afero.Fs
}

// NewLoader returns a Loader on fsys; nil means the OS filesystem.
func NewLoader(fsys afero.Fs) *Loader {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Loader{fs: fsys}
}

// Files lists the documents below root in lexical order.
func (l *Loader) Files(root string) ([]string, error) {
	var files []string
	err := afero.Walk(l.fs, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.EqualFold(filepath.Ext(path), Ext) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list schema documents in %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// Load parses every document below root.
func (l *Loader) Load(root string) ([]*schema.Schema, error) {
	files, err := l.Files(root)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s documents in %s: %w", Ext, root, schema.ErrNoBaseSchema)
	}

	docs := make([]*schema.Schema, 0, len(files))
	for _, path := range files {
		f, err := l.fs.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		s, err := Parse(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		debug.Debug("Loaded schema document", "path", path, "tables", len(s.Tables), "extension", s.ExtensionGuid)
		docs = append(docs, s)
	}
	return docs, nil
}

// LoadAndAssemble loads, assembles and validates the documents below root.
func (l *Loader) LoadAndAssemble(root string, filter ...uuid.UUID) (*schema.Schema, error) {
	docs, err := l.Load(root)
	if err != nil {
		return nil, err
	}
	s, err := schema.Assemble(docs, filter...)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save writes s to path, creating parent directories.
func (l *Loader) Save(path string, s *schema.Schema) error {
	data, err := Write(s)
	if err != nil {
		return err
	}
	if err := l.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	return afero.WriteFile(l.fs, path, data, 0o644)
}
