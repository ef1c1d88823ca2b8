// Package csvexport writes tables and classified views as UTF-8 CSV under the file names the
// published datasets use.
package csvexport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shiro46mt/jp-medicine-master/catalog"
	"github.com/shiro46mt/jp-medicine-master/crossref"
	"github.com/shiro46mt/jp-medicine-master/table"
)

// Published column names of the classified views.
const (
	colAGTag      = "AG区分"
	colBSTag      = "BS区分"
	colYJ         = "YJコード"
	colIngredient = "BS成分名"
)

var baseColumns = []string{crossref.ColDrugCode, crossref.ColPriceCode, crossref.ColName}

// WriteTable writes the header followed by every row of t.
func WriteTable(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("failed to write %s table: %w", t.Kind, err)
	}
	return nil
}

// WriteAuthorizedGenerics writes an authorized-generic view. YJコード holds the listing code
// for AG rows and the price-list code for originals.
func WriteAuthorizedGenerics(w io.Writer, rows []crossref.Row) error {
	header := append(append([]string{}, baseColumns...), colAGTag, colYJ)
	return writeRows(w, header, rows, func(r crossref.Row) []string {
		return []string{r.DrugCode, r.PriceCode, r.Name, r.Tag.Label(), r.SecondaryCode}
	})
}

// WriteBiosimilars writes a biosimilar view.
func WriteBiosimilars(w io.Writer, rows []crossref.Row) error {
	header := append(append([]string{}, baseColumns...), colBSTag, colIngredient)
	return writeRows(w, header, rows, func(r crossref.Row) []string {
		return []string{r.DrugCode, r.PriceCode, r.Name, r.Tag.Label(), r.Ingredient}
	})
}

func writeRows(w io.Writer, header []string, rows []crossref.Row, record func(crossref.Row) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(record(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// AGFileName is the published name of the authorized-generic list.
func AGFileName(updated string) string { return "AG一覧_" + updated + ".csv" }

// BSFileName is the published name of the biosimilar list.
func BSFileName(updated string) string { return "BS_" + updated + ".csv" }

// TableFileName names a dataset export after its kind and the date embedded in its source
// identifier. Sources without a date fall back to the kind alone.
func TableFileName(t *table.Table) string {
	return ViewFileName(string(t.Kind), t)
}

// ViewFileName names an export of t with a custom prefix, dated like TableFileName.
func ViewFileName(prefix string, t *table.Table) string {
	spec, err := catalog.Spec(t.Kind)
	if err == nil {
		if date, ok := spec.DateOf(t.Source); ok {
			return fmt.Sprintf("%s_%s.csv", prefix, date)
		}
	}
	return prefix + ".csv"
}

// Save writes name under dir through write. The directory must already exist. Content goes to
// a temporary file first so a failed write never leaves a truncated export behind.
func Save(dir, name string, write func(io.Writer) error) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("no such directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%q is not a directory", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close export file: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move export into place: %w", err)
	}
	return path, nil
}

// ErrEmpty is returned by SaveTable for a table without rows.
var ErrEmpty = errors.New("nothing to export")

// SaveTable exports t into dir under its published name.
func SaveTable(dir string, t *table.Table) (string, error) {
	if t.Len() == 0 {
		return "", fmt.Errorf("%s: %w", t.Kind, ErrEmpty)
	}
	return Save(dir, TableFileName(t), func(w io.Writer) error { return WriteTable(w, t) })
}
