// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	json "github.com/goccy/go-json"
)

// catalogFilename is the catalog document, stored beside the artifacts.
const catalogFilename = "catalog.json"

// Catalog is the durable store of artifact records: a single JSON array
// read in full and rewritten in full on every mutation. It guards against
// concurrent use within one process only; multi-process writers would race
// and lose updates.
type Catalog struct {
	mu   sync.RWMutex
	path string
}

// NewCatalog returns a catalog rooted in dir, creating dir if needed.
func NewCatalog(dir string) (*Catalog, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("%w: failed to create backup directory: %v", ErrCatalogUnavailable, err)
	}
	return &Catalog{path: filepath.Join(dir, catalogFilename)}, nil
}

// Dir returns the directory holding the catalog and its artifacts.
func (c *Catalog) Dir() string {
	return filepath.Dir(c.path)
}

// List returns all records sorted newest first. A missing catalog file is
// an empty list, not an error.
func (c *Catalog) List() ([]Artifact, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.read()
}

// Get returns the record with the given id, or ErrArtifactNotFound.
func (c *Catalog) Get(id string) (*Artifact, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	records, err := c.read()
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			return &records[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, id)
}

// Add appends a record and rewrites the catalog.
func (c *Catalog) Add(record Artifact) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.read()
	if err != nil {
		return err
	}
	records = append(records, record)
	return c.write(records)
}

// Remove rewrites the catalog without the given record. It returns
// ErrArtifactNotFound if the id has no record.
func (c *Catalog) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.read()
	if err != nil {
		return err
	}

	kept := records[:0]
	found := false
	for _, r := range records {
		if r.ID == id {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrArtifactNotFound, id)
	}
	return c.write(kept)
}

// read loads and sorts the catalog. Callers must hold at least a read lock.
func (c *Catalog) read() ([]Artifact, error) {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return []Artifact{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	var records []Artifact
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: malformed catalog: %v", ErrCatalogUnavailable, err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// write rewrites the catalog document in full. Callers must hold the write
// lock.
func (c *Catalog) write(records []Artifact) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to encode catalog: %v", ErrCatalogUnavailable, err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("%w: failed to write catalog: %v", ErrCatalogUnavailable, err)
	}
	return nil
}
