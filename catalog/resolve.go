package catalog

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/shiro46mt/jp-medicine-master/errs"
)

// TaxTransitionDate is the last day before the October 2019 consumption-tax increase.
// Files of the 2019 directory were published ahead of it and must not be picked on that day.
const TaxTransitionDate = "20190930"

// Resolve picks the file of kind designated by sel.
//
// Files of a new fiscal directory are published before the April cutover, so an exact date
// in January-March (or on TaxTransitionDate) ignores the directory of its own calendar year.
func Resolve(c *Catalog, kind Kind, sel Selector) (FileEntry, error) {
	files, err := c.Files(kind)
	if err != nil {
		return FileEntry{}, errs.Wrap("resolve", string(kind), sel.String(), err)
	}

	var candidates []FileEntry

	switch sel.kind {
	case selectDate:
		if err := ValidateDate(sel.date); err != nil {
			return FileEntry{}, errs.Wrap("resolve", string(kind), sel.String(), err)
		}
		candidates = filter(files, func(f FileEntry) bool { return f.Date <= sel.date })

		year := sel.date[:4]
		month, _ := strconv.Atoi(sel.date[4:6])
		if month < 4 || sel.date == TaxTransitionDate {
			candidates = filter(candidates, func(f FileEntry) bool { return f.Dir != year })
		}

	case selectFiscalYear:
		cutoff := fmt.Sprintf("%04d0331", sel.year+1)
		next := strconv.Itoa(sel.year + 1)
		candidates = filter(files, func(f FileEntry) bool { return f.Date <= cutoff && f.Dir != next })

	case selectRevision:
		dir := strconv.Itoa(sel.year)
		candidates = filter(files, func(f FileEntry) bool { return f.Dir == dir })

	default:
		candidates = files
	}

	if len(candidates) == 0 {
		return FileEntry{}, errs.Wrap("resolve", string(kind), sel.String(),
			fmt.Errorf("%w: no %s file for %s", errs.ErrNoMatchingFile, kind, sel))
	}

	return maxEntry(candidates), nil
}

// FiscalYears lists the fiscal years of kind that resolve to a file, oldest first.
func FiscalYears(c *Catalog, kind Kind) ([]int, error) {
	files, err := c.Files(kind)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool)
	for _, f := range files {
		y, _ := strconv.Atoi(f.Date[:4])
		if m, _ := strconv.Atoi(f.Date[4:6]); m < 4 {
			y--
		}
		seen[y] = true
	}

	years := make([]int, 0, len(seen))
	for y := range seen {
		if _, err := Resolve(c, kind, FiscalYear(y)); err == nil {
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years, nil
}

// RevisionYears lists the price-revision directories of kind, oldest first.
func RevisionYears(c *Catalog, kind Kind) ([]int, error) {
	files, err := c.Files(kind)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool)
	for _, f := range files {
		if f.Dir == "" {
			continue
		}
		y, _ := strconv.Atoi(f.Dir)
		seen[y] = true
	}

	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years, nil
}

func filter(files []FileEntry, keep func(FileEntry) bool) []FileEntry {
	out := make([]FileEntry, 0, len(files))
	for _, f := range files {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

func maxEntry(files []FileEntry) FileEntry {
	best := files[0]
	for _, f := range files[1:] {
		if f.Path > best.Path {
			best = f
		}
	}
	return best
}
