// Package loader turns one resolved catalog file into a typed, semantically named table.
package loader

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shiro46mt/jp-medicine-master/catalog"
	"github.com/shiro46mt/jp-medicine-master/errs"
	"github.com/shiro46mt/jp-medicine-master/interfaces"
	"github.com/shiro46mt/jp-medicine-master/logging"
	"github.com/shiro46mt/jp-medicine-master/table"
)

// Options tunes a single load.
type Options struct {
	// IncludeProvenance appends a "file" column holding the resolved identifier.
	IncludeProvenance bool
}

// Loader loads tables against one immutable catalog snapshot.
type Loader struct {
	catalog *catalog.Catalog
	fetcher interfaces.RawTableFetcher
}

// New binds a loader to a catalog snapshot and a raw-file source.
func New(c *catalog.Catalog, fetcher interfaces.RawTableFetcher) *Loader {
	return &Loader{catalog: c, fetcher: fetcher}
}

// Catalog returns the snapshot the loader resolves against.
func (l *Loader) Catalog() *catalog.Catalog { return l.catalog }

// Resolve exposes the resolution step alone.
func (l *Loader) Resolve(kind catalog.Kind, sel catalog.Selector) (catalog.FileEntry, error) {
	return catalog.Resolve(l.catalog, kind, sel)
}

// Load resolves kind/sel to a file, fetches it and normalizes it: placeholder headers are
// renamed and the kind's numeric columns are coerced. The returned table is owned by the caller.
func (l *Loader) Load(kind catalog.Kind, sel catalog.Selector, opts Options) (*table.Table, error) {
	spec, err := catalog.Spec(kind)
	if err != nil {
		return nil, errs.Wrap("load", string(kind), sel.String(), err)
	}

	entry, err := catalog.Resolve(l.catalog, kind, sel)
	if err != nil {
		return nil, err
	}

	raw, err := l.fetcher.FetchRawTable(kind, entry)
	if err != nil {
		return nil, errs.Source(string(kind), sel.String(), entry.Path, err)
	}

	t, err := build(kind, entry.Path, raw)
	if err != nil {
		return nil, err
	}

	if err := applyRenames(t, spec); err != nil {
		return nil, err
	}
	if err := coerceNumeric(t, spec); err != nil {
		return nil, err
	}

	if opts.IncludeProvenance {
		src := table.Text(entry.Path)
		t.AddColumn(table.ProvenanceColumn, func(table.Row) table.Value { return src })
	}

	logging.Debug("Table loaded",
		"kind", kind,
		"selector", sel.String(),
		"file", entry.Path,
		"rows", humanize.Comma(int64(t.Len())))

	return t, nil
}

// build converts raw cells into a table. The first record is the header.
func build(kind catalog.Kind, identifier string, raw [][]string) (*table.Table, error) {
	if len(raw) == 0 {
		return nil, errs.Schema(string(kind), identifier, "file has no header row")
	}

	header := headerNames(raw[0])

	t := table.New(kind, identifier, header)
	t.Rows = make([]table.Row, 0, len(raw)-1)

	skippedEmptyLines := 0
	paddedRows := 0
	truncatedRows := 0

	for _, rec := range raw[1:] {
		if isBlank(rec) {
			skippedEmptyLines++
			continue
		}

		switch {
		case len(rec) < len(header):
			paddedRows++
		case len(rec) > len(header):
			truncatedRows++
		}

		row := make(table.Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = table.Text(strings.TrimSpace(rec[i]))
			}
		}
		t.Append(row)
	}

	if skippedEmptyLines > 0 || paddedRows > 0 || truncatedRows > 0 {
		logging.Info(fmt.Sprintf("%s skip statistics", identifier),
			"kind", kind,
			"empty_lines", skippedEmptyLines,
			"padded_rows", paddedRows,
			"truncated_rows", truncatedRows,
			"records_parsed", t.Len())
	}

	return t, nil
}

// headerNames cleans the header row. Blank cells become "Unnamed: <index>" (0-based) and a
// repeated name X becomes X.1, X.2, ... so that every column keeps its own cells.
func headerNames(rec []string) []string {
	header := make([]string, len(rec))
	seen := make(map[string]bool, len(rec))

	for i, h := range rec {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}

		name := h
		for n := 1; seen[name]; n++ {
			name = fmt.Sprintf("%s.%d", h, n)
		}
		seen[name] = true
		header[i] = name
	}
	return header
}

func applyRenames(t *table.Table, spec catalog.KindSpec) error {
	for _, rule := range spec.Renames {
		if t.Rename(rule.From, rule.To) || t.HasColumn(rule.To) {
			continue
		}
		if rule.Optional {
			logging.Warn("Placeholder column not found", "kind", spec.Kind, "file", t.Source, "column", rule.From)
			continue
		}
		return errs.Schema(string(spec.Kind), t.Source, "column %q (or %q) not found", rule.From, rule.To)
	}
	return nil
}

func coerceNumeric(t *table.Table, spec catalog.KindSpec) error {
	for _, col := range spec.Numeric {
		if !t.HasColumn(col.Name) {
			if col.Optional {
				logging.Debug("Optional numeric column absent", "kind", spec.Kind, "file", t.Source, "column", col.Name)
				continue
			}
			return errs.Schema(string(spec.Kind), t.Source, "required column %q not found", col.Name)
		}

		for i, row := range t.Rows {
			cell := row[col.Name]
			if cell.IsNull() || cell.IsNumber() {
				continue
			}
			v, err := table.ParseNumber(cell.String())
			if err != nil {
				return errs.Schema(string(spec.Kind), t.Source, "column %q data row %d: cannot parse %q as a number",
					col.Name, i+1, cell.String())
			}
			row[col.Name] = v
		}
	}
	return nil
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
