// Package views composes loader and crossref into the published derived datasets.
package views

import (
	"fmt"
	"slices"

	"github.com/shiro46mt/jp-medicine-master/catalog"
	"github.com/shiro46mt/jp-medicine-master/crossref"
	"github.com/shiro46mt/jp-medicine-master/errs"
	"github.com/shiro46mt/jp-medicine-master/interfaces"
	"github.com/shiro46mt/jp-medicine-master/loader"
	"github.com/shiro46mt/jp-medicine-master/logging"
	"github.com/shiro46mt/jp-medicine-master/table"
)

const (
	colChangeKind  = "変更区分"
	colLongListed  = "長期収載品関連"
	colYJ          = "YJコード"
	colHOTReceipt  = "レセプト電算処理システムコード（１）"
	colHOTYJ       = "個別医薬品コード"
	deletedChange  = 9
	taxRevisionDay = "20191001"
)

// Classified is a cross-reference result stamped with the publication date of its source.
type Classified struct {
	Updated string `json:"updated"`
	crossref.Result
}

// FullYear returns the fiscal-year-end drug master of year completed with the rows that were
// deleted during the year (transitional measures expiring at the end of September).
func FullYear(l *loader.Loader, year int) (*table.Table, error) {
	yearEnd, err := l.Load(catalog.KindY, catalog.FiscalYear(year), loader.Options{})
	if err != nil {
		return nil, err
	}

	// The 2019 mid-year revision moved to October with the consumption-tax increase.
	date := fmt.Sprintf("%04d0928", year)
	if year == 2019 {
		date = taxRevisionDay
	}
	midYear, err := l.Load(catalog.KindY, catalog.OnDate(date), loader.Options{})
	if err != nil {
		return nil, err
	}

	deleted := midYear.Filter(func(r table.Row) bool {
		f, ok := r.Get(colChangeKind).Float()
		return ok && f == deletedChange
	})
	if deleted.Len() == 0 {
		return nil, errs.Wrap("y-all", string(catalog.KindY), catalog.FiscalYear(year).String(),
			fmt.Errorf("%w: snapshot %s has no deleted rows", errs.ErrIntegrity, midYear.Source))
	}

	out := table.New(catalog.KindY, yearEnd.Source, yearEnd.Columns)
	for _, c := range deleted.Columns {
		if !out.HasColumn(c) {
			out.Columns = append(out.Columns, c)
		}
	}
	out.Rows = slices.Concat(yearEnd.Rows, deleted.Rows)
	out.SortStableBy(crossref.ColDrugCode)

	logging.Info("Full-year drug master built", "year", year, "year_end_rows", yearEnd.Len(), "deleted_rows", deleted.Len())
	return out, nil
}

// HOTSelector maps a drug-master selector onto the HOT9 snapshot to join with. A bare
// revision year is translated to the date at which HOT9 carries that revision.
func HOTSelector(sel catalog.Selector) catalog.Selector {
	k, ok := sel.Revision()
	if !ok {
		return sel
	}
	switch {
	case k < 2018:
		return catalog.OnDate(fmt.Sprintf("%04d0331", k+2))
	case k == 2018:
		return catalog.OnDate(catalog.TaxTransitionDate)
	default:
		return catalog.OnDate(fmt.Sprintf("%04d0331", k+1))
	}
}

// AugmentedCode adds the YJ code to the drug master through HOT9. Rows without a direct
// match fall back to the product named by 長期収載品関連.
func AugmentedCode(l *loader.Loader, sel catalog.Selector) (*table.Table, error) {
	y, err := l.Load(catalog.KindY, sel, loader.Options{})
	if err != nil {
		return nil, err
	}
	hot, err := l.Load(catalog.KindHOT9, HOTSelector(sel), loader.Options{})
	if err != nil {
		return nil, err
	}

	hot.Rename(colHOTReceipt, crossref.ColDrugCode)
	hot.Rename(colHOTYJ, colYJ)
	for _, c := range []string{crossref.ColDrugCode, colYJ} {
		if !hot.HasColumn(c) {
			return nil, errs.Schema(string(catalog.KindHOT9), hot.Source, "column %q not found", c)
		}
	}

	byCode := make(map[string][]table.Value)
	for _, r := range hot.Rows {
		code := r.Get(crossref.ColDrugCode).String()
		if code == "" {
			continue
		}
		byCode[code] = append(byCode[code], r.Get(colYJ))
	}
	matches := func(code string) []table.Value {
		if m := byCode[code]; code != "" && len(m) > 0 {
			return m
		}
		return []table.Value{table.Null()}
	}

	out := table.New(catalog.KindY, y.Source, y.Columns)
	if !out.HasColumn(colYJ) {
		out.Columns = append(out.Columns, colYJ)
	}
	out.Rows = make([]table.Row, 0, y.Len())

	unmatched := 0
	for _, r := range y.Rows {
		for _, direct := range matches(r.Get(crossref.ColDrugCode).String()) {
			for _, related := range matches(r.Get(colLongListed).String()) {
				row := r.Clone()
				switch {
				case !direct.IsNull():
					row[colYJ] = direct
				case !related.IsNull():
					row[colYJ] = related
				default:
					row[colYJ] = table.Null()
					unmatched++
				}
				out.Append(row)
			}
		}
	}

	logging.Info("YJ codes attached", "y", y.Source, "hot9", hot.Source, "rows", out.Len(), "without_yj", unmatched)
	return out, nil
}

// Biosimilars lists biosimilars and their reference products for sel. The view is stamped
// with the date of the generic-information file it was built from.
func Biosimilars(l *loader.Loader, sel catalog.Selector) (*Classified, error) {
	if y, ok := sel.Year(); ok {
		years, err := BiosimilarYears(l.Catalog())
		if err != nil {
			return nil, err
		}
		if !slices.Contains(years, y) {
			return nil, errs.Wrap("bs", string(catalog.KindGeneric), sel.String(),
				fmt.Errorf("%w: %d is not a valid year, supported years are %v", errs.ErrInvalidSelector, y, years))
		}
	}

	ge, err := l.Load(catalog.KindGeneric, sel, loader.Options{IncludeProvenance: true})
	if err != nil {
		return nil, err
	}
	y, err := l.Load(catalog.KindY, sel, loader.Options{})
	if err != nil {
		return nil, err
	}

	spec, _ := catalog.Spec(catalog.KindGeneric)
	updated, _ := spec.DateOf(ge.Source)

	return &Classified{Updated: updated, Result: crossref.Biosimilars(y, ge)}, nil
}

// AuthorizedGenerics matches the authorized-generic listing against the latest drug master.
func AuthorizedGenerics(l *loader.Loader, src interfaces.AGListFetcher) (*Classified, error) {
	list, err := src.FetchAGList()
	if err != nil {
		return nil, errs.Wrap("ag", "", "latest", fmt.Errorf("%w: %w", errs.ErrSourceUnavailable, err))
	}

	y, err := l.Load(catalog.KindY, catalog.Latest(), loader.Options{})
	if err != nil {
		return nil, err
	}

	res := crossref.AuthorizedGenerics(y, list.Pairs)
	logging.Info("Authorized generics matched",
		"pairs", len(list.Pairs), "rows", len(res.Rows), "unmatched", len(res.Warnings), "updated", list.Updated)

	return &Classified{Updated: list.Updated, Result: res}, nil
}

// BiosimilarYears lists the fiscal years available for both the drug master and the
// generic-information table.
func BiosimilarYears(c *catalog.Catalog) ([]int, error) {
	yYears, err := catalog.FiscalYears(c, catalog.KindY)
	if err != nil {
		return nil, err
	}
	geYears, err := catalog.FiscalYears(c, catalog.KindGeneric)
	if err != nil {
		return nil, err
	}

	years := make([]int, 0, len(yYears))
	for _, y := range yYears {
		if slices.Contains(geYears, y) {
			years = append(years, y)
		}
	}
	return years, nil
}
