package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/tubelife/pkg/domain"
	"github.com/aretw0/tubelife/pkg/schema"
)

// Format selects the encoding of newly saved files.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// extensions are tried in this order on Load.
var extensions = []string{".json", ".yaml", ".yml"}

// Store implements ports.SequenceStore using the local filesystem.
// Each sequence is one payload document named after the sequence.
type Store struct {
	BasePath string
	Format   Format
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".tubelife/sequences".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".tubelife", "sequences")
	}
	return &Store{BasePath: basePath, Format: FormatJSON}
}

// Path returns the file a sequence with the given name is saved to.
func (s *Store) Path(name string) string {
	ext := ".json"
	if s.Format == FormatYAML {
		ext = ".yaml"
	}
	return filepath.Join(s.BasePath, name+ext)
}

// Save writes the sequence atomically: temp file, fsync, rename.
// Copies of the sequence in other formats are removed.
func (s *Store) Save(ctx context.Context, seq domain.Sequence) error {
	if err := checkName(seq.Name); err != nil {
		return err
	}
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure sequence directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if s.Format == FormatYAML {
		data, err = schema.MarshalYAML(seq)
	} else {
		data, err = schema.MarshalIndent(seq)
	}
	if err != nil {
		return err
	}

	destPath := s.Path(seq.Name)
	if err := writeAtomic(s.BasePath, destPath, data); err != nil {
		return err
	}

	for _, ext := range extensions {
		other := filepath.Join(s.BasePath, seq.Name+ext)
		if other == destPath {
			continue
		}
		if err := os.Remove(other); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale copy %s: %w", other, err)
		}
	}
	return nil
}

func writeAtomic(dir, destPath string, data []byte) error {
	// Same directory as the destination, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(dir, "tmp-"+filepath.Base(destPath)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Windows refuses to rename over an existing file.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing sequence file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Load reads name.json, name.yaml or name.yml, in that order.
func (s *Store) Load(ctx context.Context, name string) (domain.Sequence, error) {
	if err := checkName(name); err != nil {
		return domain.Sequence{}, err
	}
	for _, ext := range extensions {
		path := filepath.Join(s.BasePath, name+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return domain.Sequence{}, fmt.Errorf("failed to read sequence file: %w", err)
		}
		seq, err := ReadDocument(path, data)
		if err != nil {
			return domain.Sequence{}, err
		}
		seq.Name = name
		return seq, nil
	}
	return domain.Sequence{}, domain.ErrSequenceNotFound
}

// ReadDocument decodes a payload by the extension of path.
func ReadDocument(path string, data []byte) (domain.Sequence, error) {
	var (
		seq domain.Sequence
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		seq, err = schema.UnmarshalYAML(data)
	default:
		seq, err = schema.Unmarshal(data)
	}
	if err != nil {
		return domain.Sequence{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return seq, nil
}

// Delete removes every copy of the sequence.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	for _, ext := range extensions {
		err := os.Remove(filepath.Join(s.BasePath, name+ext))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete sequence file: %w", err)
		}
	}
	return nil
}

// List returns the names of all sequence documents in the directory.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sequences: %w", err)
	}

	seen := make(map[string]struct{})
	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), "tmp-") {
			continue
		}
		ext := filepath.Ext(entry.Name())
		for _, known := range extensions {
			if ext != known {
				continue
			}
			name := strings.TrimSuffix(entry.Name(), ext)
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("sequence name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid sequence name %q", name)
	}
	return nil
}
