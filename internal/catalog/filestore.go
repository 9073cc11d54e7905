package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileStore persists the catalog as a JSON file on local disk. This is the
// default storage backend.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed catalog store at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the location of the catalog file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the persisted catalog. A missing file yields (nil, nil).
func (s *FileStore) Load(ctx context.Context) ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing catalog file %s: %w", s.path, err)
	}
	return records, nil
}

// Save overwrites the catalog file with the given records.
func (s *FileStore) Save(ctx context.Context, records []Record) error {
	if records == nil {
		records = []Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("writing catalog file %s: %w", s.path, err)
	}
	return nil
}
