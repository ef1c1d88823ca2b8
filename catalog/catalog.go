package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shiro46mt/jp-medicine-master/logging"
)

// FileEntry is one historical file of a dataset.
type FileEntry struct {
	Path string // identifier relative to the dataset directory, e.g. "2016/20161208.csv"
	Date string // embedded YYYYMMDD date
	Dir  string // fiscal-year directory ("2016"), empty for flat datasets
}

// Catalog is an immutable snapshot of the files available per dataset kind.
type Catalog struct {
	Updated string
	entries map[Kind][]FileEntry
}

// rawCatalog mirrors data_catalog.json.
type rawCatalog struct {
	Update string `json:"update"`
	Data   []struct {
		ID    string   `json:"id"`
		Files []string `json:"files"`
	} `json:"data"`
}

// Decode parses the repository's data_catalog.json.
func Decode(r io.Reader) (*Catalog, error) {
	var raw rawCatalog
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode data catalog: %w", err)
	}

	files := make(map[Kind][]string, len(raw.Data))
	for _, item := range raw.Data {
		kind := Kind(item.ID)
		if _, ok := specs[kind]; !ok {
			logging.Debug("Ignoring unknown dataset in catalog", "id", item.ID, "files", len(item.Files))
			continue
		}
		files[kind] = append(files[kind], item.Files...)
	}

	return New(raw.Update, files)
}

// New builds a catalog from identifiers grouped by kind. Identifiers without an embedded
// date can never be resolved and are dropped with a warning.
func New(updated string, files map[Kind][]string) (*Catalog, error) {
	c := &Catalog{Updated: updated, entries: make(map[Kind][]FileEntry, len(files))}

	for kind, paths := range files {
		spec, err := Spec(kind)
		if err != nil {
			return nil, err
		}

		entries := make([]FileEntry, 0, len(paths))
		skipped := 0
		for _, p := range paths {
			date, ok := spec.DateOf(p)
			if !ok {
				skipped++
				continue
			}
			entries = append(entries, FileEntry{Path: p, Date: date, Dir: dirOf(p)})
		}
		if skipped > 0 {
			logging.Warn("Catalog entries without an embedded date were dropped", "kind", kind, "skipped", skipped)
		}

		sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
		c.entries[kind] = entries
	}

	return c, nil
}

// Files returns the entries of kind, sorted by identifier.
func (c *Catalog) Files(kind Kind) ([]FileEntry, error) {
	if _, err := Spec(kind); err != nil {
		return nil, err
	}
	return c.entries[kind], nil
}

// Count returns the number of entries across all kinds.
func (c *Catalog) Count() int {
	n := 0
	for _, e := range c.entries {
		n += len(e)
	}
	return n
}

func dirOf(p string) string {
	i := strings.Index(p, "/")
	if i != 4 || !isDigits(p[:4]) {
		return ""
	}
	return p[:4]
}
